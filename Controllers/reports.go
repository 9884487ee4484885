package Controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"TeleCare/Middleware"
	"TeleCare/Models"
	"TeleCare/Store"
)

type reportInput struct {
	Type     string  `json:"type"`
	Location *string `json:"location"`
}

func (h *Handler) SubmitReport(c *gin.Context) {
	var input reportInput
	if !bindJSON(c, &input) {
		return
	}
	session := Middleware.CurrentSession(c)
	report := &Models.Report{
		Type:       input.Type,
		Location:   input.Location,
		ReporterID: session.UID,
		CreatedAt:  h.now().UTC(),
	}
	if err := report.Validate(); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if _, err := h.Store.Push(c.Request.Context(), Models.ReportsPath, report); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.Metrics.ReportsSubmitted.Inc()
	c.JSON(http.StatusCreated, report)
}

// ListReports returns every report, newest first. Reporter ids are only shown
// to doctors and to the reporter.
func (h *Handler) ListReports(c *gin.Context) {
	reports, err := Store.List[Models.Report](c.Request.Context(), h.Store, Models.ReportsPath, h.Logger)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	session := Middleware.CurrentSession(c)
	list := lo.MapToSlice(reports, func(key string, r Models.Report) Models.Report {
		if r.ID == "" {
			r.ID = key
		}
		if !session.IsDoctor() && !r.OwnedBy(session.UID) {
			r.ReporterID = ""
		}
		return r
	})
	c.JSON(http.StatusOK, newestFirst(list,
		func(r Models.Report) time.Time { return r.CreatedAt },
		func(r Models.Report) string { return r.ID },
	))
}

func (h *Handler) DeleteReport(c *gin.Context) {
	id, ok := keyParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	var report Models.Report
	if err := h.Store.Get(ctx, Models.ReportPath(id), &report); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	session := Middleware.CurrentSession(c)
	if !session.IsDoctor() && !report.OwnedBy(session.UID) {
		respondError(c, h.Logger, Models.ErrForbidden)
		return
	}
	if err := h.Store.Remove(ctx, Models.ReportPath(id)); err != nil && !errors.Is(err, Store.ErrNotFound) {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "report deleted"})
}
