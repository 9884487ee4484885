package Controllers

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"TeleCare/Gemini"
	"TeleCare/ImageHost"
	"TeleCare/Models"
	"TeleCare/Store"
)

// respondError maps a domain error to a status code. Anything unrecognised
// is logged and reported as a 500 without its message.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var validErr *Models.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": validErr.Fields})
		return
	}

	switch {
	case errors.Is(err, Store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, Models.ErrInvalidTransition),
		errors.Is(err, Models.ErrNoPaymentPending),
		errors.Is(err, Models.ErrSlotTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, Models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	case errors.Is(err, Store.ErrInvalidPath),
		errors.Is(err, Models.ErrNotDoctor):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ImageHost.ErrUnsupportedType):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
	case errors.Is(err, Models.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": Models.ErrNotConfigured.Error()})
	case errors.Is(err, Gemini.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "assistant temporarily unavailable"})
	default:
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return false
	}
	return true
}

// keyParam reads a path parameter that is used as a store key.
func keyParam(c *gin.Context, name string) (string, bool) {
	v := c.Param(name)
	if !Models.ValidKey(v) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return "", false
	}
	return v, true
}

// newestFirst sorts by creation time descending, id breaking ties.
func newestFirst[T any](items []T, createdAt func(T) time.Time, id func(T) string) []T {
	sort.Slice(items, func(i, j int) bool {
		a, b := createdAt(items[i]), createdAt(items[j])
		if a.Equal(b) {
			return id(items[i]) > id(items[j])
		}
		return a.After(b)
	})
	return items
}

// oldestFirst is the chat and feed order.
func oldestFirst[T any](items []T, createdAt func(T) time.Time, id func(T) string) []T {
	sort.Slice(items, func(i, j int) bool {
		a, b := createdAt(items[i]), createdAt(items[j])
		if a.Equal(b) {
			return id(items[i]) < id(items[j])
		}
		return a.Before(b)
	})
	return items
}
