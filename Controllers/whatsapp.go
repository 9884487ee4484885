package Controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// WhatsappStatus reports whether the reminder gateway has a linked device.
func (h *Handler) WhatsappStatus(c *gin.Context) {
	loggedIn, err := h.Whatsapp.LoggedIn(c.Request.Context())
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"loggedIn": loggedIn})
}

// WhatsappQRCode returns the PNG an admin scans to link the gateway.
func (h *Handler) WhatsappQRCode(c *gin.Context) {
	png, err := h.Whatsapp.LoginQRCode(c.Request.Context())
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}
