package Controllers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"TeleCare/ImageHost"
	"TeleCare/Middleware"
)

// UploadImage forwards a multipart "image" file to the configured host and
// returns its public URL.
func (h *Handler) UploadImage(c *gin.Context) {
	limit := h.Config.ImageHost.MaxUploadSizeByte
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)

	header, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	if header.Size > limit {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("image must be at most %d bytes", limit)})
		return
	}
	file, err := header.Open()
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if _, _, err := ImageHost.DetectType(data); err != nil {
		respondError(c, h.Logger, err)
		return
	}

	url, err := h.Images.Upload(c.Request.Context(), header.Filename, data)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.Logger.Info("image uploaded",
		zap.String("uid", Middleware.CurrentSession(c).UID),
		zap.Int("bytes", len(data)),
	)
	c.JSON(http.StatusCreated, gin.H{"url": url})
}
