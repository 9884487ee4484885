package Controllers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"TeleCare/Models"
	"TeleCare/Outbreaks"
	"TeleCare/Store"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *Handler) localAggregation(c *gin.Context) ([]Models.Report, Outbreaks.Table, bool) {
	reports, err := Store.List[Models.Report](c.Request.Context(), h.Store, Models.ReportsPath, h.Logger)
	if err != nil {
		respondError(c, h.Logger, err)
		return nil, nil, false
	}
	list := lo.Values(reports)
	return list, Outbreaks.Aggregate(list), true
}

// GetOutbreaks aggregates the stored reports by city and condition.
func (h *Handler) GetOutbreaks(c *gin.Context) {
	reports, table, ok := h.localAggregation(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"totalReports": len(reports),
		"entries":      table.Entries(),
	})
}

func (h *Handler) GetInsights(c *gin.Context) {
	c.JSON(http.StatusOK, h.Insights.Current())
}

// RefreshInsights starts a fetch outside the request so a slow generator
// with retries never holds the connection open.
func (h *Handler) RefreshInsights(c *gin.Context) {
	if !h.Insights.RefreshAsync(h.BaseContext) {
		c.JSON(http.StatusAccepted, gin.H{"message": Outbreaks.ErrFetchInProgress.Error(), "insight": h.Insights.Current()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "insight fetch started", "insight": h.Insights.Current()})
}

func (h *Handler) ExportOutbreaks(c *gin.Context) {
	_, table, ok := h.localAggregation(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := Outbreaks.WriteXLSX(&buf, table.Entries()); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	filename := fmt.Sprintf("outbreaks-%s.xlsx", h.now().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
