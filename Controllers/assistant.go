package Controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"TeleCare/Middleware"
	"TeleCare/Models"
)

const (
	maxAssistantMessage = 2000
	maxAssistantHistory = 10
)

type assistantTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type assistantInput struct {
	Message string          `json:"message"`
	History []assistantTurn `json:"history"`
}

// Ask answers a free-form health question. The reply is advisory and the
// prompt tells the model to refer the user to a doctor.
func (h *Handler) Ask(c *gin.Context) {
	var input assistantInput
	if !bindJSON(c, &input) {
		return
	}
	input.Message = strings.TrimSpace(input.Message)
	if input.Message == "" || len(input.Message) > maxAssistantMessage {
		respondError(c, h.Logger, &Models.ValidationError{Fields: []string{"message must be between 1 and 2000 characters"}})
		return
	}

	reply, err := h.Assistant.Generate(c.Request.Context(), assistantPrompt(Middleware.CurrentSession(c), input))
	switch {
	case err == nil:
		h.Metrics.AssistantRequests.WithLabelValues("ok").Inc()
	case errors.Is(err, Models.ErrNotConfigured):
		h.Metrics.AssistantRequests.WithLabelValues("unconfigured").Inc()
	default:
		h.Metrics.AssistantRequests.WithLabelValues("failed").Inc()
	}
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": strings.TrimSpace(reply)})
}

func assistantPrompt(session Models.Session, input assistantInput) string {
	var sb strings.Builder
	sb.WriteString("You are the TeleCare health assistant. Give short, plain-language general health information. ")
	sb.WriteString("You cannot diagnose or prescribe. Recommend booking a consultation with a doctor for anything serious, ")
	sb.WriteString("and tell the user to contact emergency services for emergencies.\n\n")

	history := input.History
	if len(history) > maxAssistantHistory {
		history = history[len(history)-maxAssistantHistory:]
	}
	for _, turn := range lo.Filter(history, func(t assistantTurn, _ int) bool { return strings.TrimSpace(t.Text) != "" }) {
		speaker := "User"
		if turn.Role == "assistant" || turn.Role == "model" {
			speaker = "Assistant"
		}
		sb.WriteString(speaker + ": " + strings.TrimSpace(turn.Text) + "\n")
	}
	sb.WriteString("User (" + string(session.Role) + "): " + input.Message + "\nAssistant:")
	return sb.String()
}
