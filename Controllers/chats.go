package Controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"TeleCare/Middleware"
	"TeleCare/Models"
	"TeleCare/Store"
)

type chatInput struct {
	Text string `json:"text"`
}

// chatRoom resolves :roomId and returns the member who is not the caller.
func (h *Handler) chatRoom(c *gin.Context) (string, string, Models.Session, bool) {
	roomID, ok := keyParam(c, "roomId")
	if !ok {
		return "", "", Models.Session{}, false
	}
	first, second, ok := Models.ChatRoomMembers(roomID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid roomId"})
		return "", "", Models.Session{}, false
	}
	session := Middleware.CurrentSession(c)
	switch session.UID {
	case first:
		return roomID, second, session, true
	case second:
		return roomID, first, session, true
	}
	respondError(c, h.Logger, Models.ErrForbidden)
	return "", "", Models.Session{}, false
}

func (h *Handler) GetChat(c *gin.Context) {
	roomID, _, _, ok := h.chatRoom(c)
	if !ok {
		return
	}
	messages, err := Store.List[Models.ChatMessage](c.Request.Context(), h.Store, Models.ChatRoomPath(roomID), h.Logger)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, oldestFirst(lo.Values(messages),
		func(m Models.ChatMessage) time.Time { return m.CreatedAt },
		func(m Models.ChatMessage) string { return m.ID },
	))
}

func (h *Handler) SendChat(c *gin.Context) {
	roomID, other, session, ok := h.chatRoom(c)
	if !ok {
		return
	}
	var input chatInput
	if !bindJSON(c, &input) {
		return
	}
	msg := &Models.ChatMessage{
		SenderID:   session.UID,
		SenderName: session.DisplayName(),
		Text:       input.Text,
		CreatedAt:  h.now().UTC(),
	}
	if err := msg.Validate(); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if _, err := h.Store.Push(c.Request.Context(), Models.ChatRoomPath(roomID), msg); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.notify(other, session.DisplayName(), msg.Text, map[string]string{"type": "chat", "roomId": roomID})
	c.JSON(http.StatusCreated, msg)
}
