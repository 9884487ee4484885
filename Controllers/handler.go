package Controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"TeleCare/Config"
	"TeleCare/ImageHost"
	"TeleCare/Metrics"
	"TeleCare/Models"
	"TeleCare/Outbreaks"
	"TeleCare/SSE"
	"TeleCare/Store"
	"TeleCare/VideoRoom"
)

// Notifier delivers push notifications to a user's registered devices.
type Notifier interface {
	RegisterToken(ctx context.Context, uid string, token Models.DeviceToken) error
	NotifyUserAsync(uid, title, body string, data map[string]string)
}

// WhatsappGateway is the admin view of the reminder gateway.
type WhatsappGateway interface {
	LoggedIn(ctx context.Context) (bool, error)
	LoginQRCode(ctx context.Context) ([]byte, error)
}

type Dependencies struct {
	Store     Store.Store
	Hub       *SSE.Hub
	Insights  *Outbreaks.Insights
	Assistant Outbreaks.Generator
	Images    ImageHost.Uploader
	Rooms     *VideoRoom.Issuer
	Notifier  Notifier
	Whatsapp  WhatsappGateway
	Config    *Config.Config
	Metrics   *Metrics.Collector
	Logger    *zap.Logger
	// BaseContext outlives single requests; background work started by a
	// handler is cancelled with it on shutdown.
	BaseContext context.Context
}

// Handler serves every protected route. Each resource lives in its own file.
type Handler struct {
	Dependencies
	now func() time.Time
}

func NewHandler(deps Dependencies) *Handler {
	if deps.BaseContext == nil {
		deps.BaseContext = context.Background()
	}
	return &Handler{Dependencies: deps, now: time.Now}
}

func (h *Handler) notify(uid, title, body string, data map[string]string) {
	if h.Notifier == nil || uid == "" {
		return
	}
	h.Notifier.NotifyUserAsync(uid, title, body, data)
}

// Healthz is the unauthenticated liveness probe.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "subscribers": h.Hub.Count()})
}
