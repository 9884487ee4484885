package Models

import (
	"strings"
	"time"
)

// Campaign is a donation post. Anyone may create one; it is shown as verified
// only after a doctor vouches for it.
type Campaign struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Goal        float64   `json:"goal"`
	Raised      float64   `json:"raised"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CreatedBy   string    `json:"createdBy"`
	Verified    bool      `json:"verified"`
	VerifiedBy  string    `json:"verifiedBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (c *Campaign) Validate() error {
	var fields []string
	c.Title = strings.TrimSpace(c.Title)
	c.Description = strings.TrimSpace(c.Description)
	if c.Title == "" {
		fields = append(fields, "title is required")
	} else if len(c.Title) > 200 {
		fields = append(fields, "title must be at most 200 characters")
	}
	if len(c.Description) > 5000 {
		fields = append(fields, "description must be at most 5000 characters")
	}
	if c.Goal <= 0 {
		fields = append(fields, "goal must be positive")
	}
	return validation(fields)
}

type Transaction struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaignId"`
	DonorID    string    `json:"donorId"`
	Amount     float64   `json:"amount"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (t *Transaction) Validate() error {
	var fields []string
	if !ValidKey(t.CampaignID) {
		fields = append(fields, "campaignId is required")
	}
	if t.Amount <= 0 {
		fields = append(fields, "amount must be positive")
	}
	return validation(fields)
}

// HubPost is a message on the doctors' collaborative board.
type HubPost struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Content    string    `json:"content"`
	ImageURL   string    `json:"imageUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (p *HubPost) Validate() error {
	var fields []string
	p.Content = strings.TrimSpace(p.Content)
	if p.Content == "" {
		fields = append(fields, "content is required")
	} else if len(p.Content) > 5000 {
		fields = append(fields, "content must be at most 5000 characters")
	}
	return validation(fields)
}

func (c *Campaign) SetID(id string) { c.ID = id }
func (t *Transaction) SetID(id string) { t.ID = id }
func (p *HubPost) SetID(id string) { p.ID = id }
