package Controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"TeleCare/Middleware"
	"TeleCare/Models"
	"TeleCare/Store"
)

type hubPostInput struct {
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl"`
}

type campaignInput struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Goal        float64 `json:"goal"`
	ImageURL    string  `json:"imageUrl"`
}

type transactionInput struct {
	CampaignID string  `json:"campaignId"`
	Amount     float64 `json:"amount"`
}

type feedbackInput struct {
	BookingID string `json:"bookingId"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

func (h *Handler) ListHubPosts(c *gin.Context) {
	posts, err := Store.List[Models.HubPost](c.Request.Context(), h.Store, Models.HubPath, h.Logger)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, newestFirst(lo.Values(posts),
		func(p Models.HubPost) time.Time { return p.CreatedAt },
		func(p Models.HubPost) string { return p.ID },
	))
}

func (h *Handler) CreateHubPost(c *gin.Context) {
	var input hubPostInput
	if !bindJSON(c, &input) {
		return
	}
	session := Middleware.CurrentSession(c)
	post := &Models.HubPost{
		AuthorID:   session.UID,
		AuthorName: session.DisplayName(),
		Content:    input.Content,
		ImageURL:   input.ImageURL,
		CreatedAt:  h.now().UTC(),
	}
	if err := post.Validate(); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if _, err := h.Store.Push(c.Request.Context(), Models.HubPath, post); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// ListCampaigns shows verified campaigns first, newest first within each group.
func (h *Handler) ListCampaigns(c *gin.Context) {
	campaigns, err := Store.List[Models.Campaign](c.Request.Context(), h.Store, Models.CampaignsPath, h.Logger)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	list := newestFirst(lo.Values(campaigns),
		func(p Models.Campaign) time.Time { return p.CreatedAt },
		func(p Models.Campaign) string { return p.ID },
	)
	verified, pending := lo.FilterReject(list, func(p Models.Campaign, _ int) bool { return p.Verified })
	c.JSON(http.StatusOK, append(verified, pending...))
}

func (h *Handler) CreateCampaign(c *gin.Context) {
	var input campaignInput
	if !bindJSON(c, &input) {
		return
	}
	session := Middleware.CurrentSession(c)
	campaign := &Models.Campaign{
		Title:       input.Title,
		Description: input.Description,
		Goal:        input.Goal,
		ImageURL:    input.ImageURL,
		CreatedBy:   session.UID,
		CreatedAt:   h.now().UTC(),
	}
	if err := campaign.Validate(); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if _, err := h.Store.Push(c.Request.Context(), Models.CampaignsPath, campaign); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, campaign)
}

// updateCampaign applies fn to the stored campaign atomically.
func (h *Handler) updateCampaign(c *gin.Context, id string, fn func(*Models.Campaign) error) (Models.Campaign, error) {
	var updated Models.Campaign
	err := h.Store.Update(c.Request.Context(), Models.CampaignPath(id), func(current json.RawMessage) (any, error) {
		if len(current) == 0 {
			return nil, Store.ErrNotFound
		}
		var campaign Models.Campaign
		if err := Store.Decode(current, &campaign); err != nil {
			return nil, err
		}
		if err := fn(&campaign); err != nil {
			return nil, err
		}
		updated = campaign
		return campaign, nil
	})
	return updated, err
}

func (h *Handler) VerifyCampaign(c *gin.Context) {
	id, ok := keyParam(c, "id")
	if !ok {
		return
	}
	session := Middleware.CurrentSession(c)
	campaign, err := h.updateCampaign(c, id, func(p *Models.Campaign) error {
		if !p.Verified {
			p.Verified = true
			p.VerifiedBy = session.UID
		}
		return nil
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.notify(campaign.CreatedBy, "Campaign verified", `"`+campaign.Title+`" was verified by a doctor.`,
		map[string]string{"type": "campaign", "campaignId": id})
	c.JSON(http.StatusOK, campaign)
}

// Donate adds to the campaign total first, then records the transaction.
func (h *Handler) Donate(c *gin.Context) {
	var input transactionInput
	if !bindJSON(c, &input) {
		return
	}
	session := Middleware.CurrentSession(c)
	tx := &Models.Transaction{
		CampaignID: input.CampaignID,
		DonorID:    session.UID,
		Amount:     input.Amount,
		CreatedAt:  h.now().UTC(),
	}
	if err := tx.Validate(); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if _, err := h.updateCampaign(c, tx.CampaignID, func(p *Models.Campaign) error {
		p.Raised += tx.Amount
		return nil
	}); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if _, err := h.Store.Push(c.Request.Context(), Models.TransactionsPath, tx); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

// ListTransactions shows doctors every donation and everyone else their own.
// An optional campaignId query narrows the list.
func (h *Handler) ListTransactions(c *gin.Context) {
	txs, err := Store.List[Models.Transaction](c.Request.Context(), h.Store, Models.TransactionsPath, h.Logger)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	session := Middleware.CurrentSession(c)
	campaignID := c.Query("campaignId")
	list := lo.Filter(lo.Values(txs), func(t Models.Transaction, _ int) bool {
		if campaignID != "" && t.CampaignID != campaignID {
			return false
		}
		return session.IsDoctor() || t.DonorID == session.UID
	})
	c.JSON(http.StatusOK, newestFirst(list,
		func(t Models.Transaction) time.Time { return t.CreatedAt },
		func(t Models.Transaction) string { return t.ID },
	))
}

func (h *Handler) SubmitFeedback(c *gin.Context) {
	var input feedbackInput
	if !bindJSON(c, &input) {
		return
	}
	session := Middleware.CurrentSession(c)
	feedback := &Models.Feedback{
		UserID:    session.UID,
		BookingID: input.BookingID,
		Rating:    input.Rating,
		Comment:   input.Comment,
		CreatedAt: h.now().UTC(),
	}
	if err := feedback.Validate(); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if _, err := h.Store.Push(c.Request.Context(), Models.FeedbackPath, feedback); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, feedback)
}

func (h *Handler) ListFeedback(c *gin.Context) {
	feedback, err := Store.List[Models.Feedback](c.Request.Context(), h.Store, Models.FeedbackPath, h.Logger)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, newestFirst(lo.Values(feedback),
		func(f Models.Feedback) time.Time { return f.CreatedAt },
		func(f Models.Feedback) string { return f.ID },
	))
}
