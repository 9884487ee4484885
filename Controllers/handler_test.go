package Controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"TeleCare/Config"
	"TeleCare/Metrics"
	"TeleCare/Middleware"
	"TeleCare/Models"
	"TeleCare/Outbreaks"
	"TeleCare/SSE"
	"TeleCare/Store"
	"TeleCare/VideoRoom"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var fixedNow = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

// tokenVerifier accepts tokens of the form "uid:role".
type tokenVerifier struct{}

func (tokenVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	uid, role, _ := strings.Cut(idToken, ":")
	return &auth.Token{UID: uid, Claims: map[string]interface{}{"role": role, "name": "User " + uid}}, nil
}

type sentNotification struct {
	UID   string
	Title string
}

type recordingNotifier struct {
	mu     sync.Mutex
	sent   []sentNotification
	tokens map[string][]Models.DeviceToken
}

func (n *recordingNotifier) RegisterToken(ctx context.Context, uid string, token Models.DeviceToken) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.tokens == nil {
		n.tokens = map[string][]Models.DeviceToken{}
	}
	n.tokens[uid] = append(n.tokens[uid], token)
	return nil
}

func (n *recordingNotifier) NotifyUserAsync(uid, title, body string, data map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{UID: uid, Title: title})
}

func (n *recordingNotifier) Sent() []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentNotification(nil), n.sent...)
}

type fakeGenerator struct {
	reply string
	err   error
}

func (g fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.reply, g.err
}

type fakeUploader struct{ uploaded []string }

func (u *fakeUploader) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	u.uploaded = append(u.uploaded, filename)
	return "https://img.example/" + filename, nil
}

type fakeGateway struct{}

func (fakeGateway) LoggedIn(ctx context.Context) (bool, error)     { return true, nil }
func (fakeGateway) LoginQRCode(ctx context.Context) ([]byte, error) { return []byte("png"), nil }

type harness struct {
	router   *gin.Engine
	handler  *Handler
	store    Store.Store
	notifier *recordingNotifier
	uploader *fakeUploader
}

func newHarness(t *testing.T, assistant Outbreaks.Generator) *harness {
	t.Helper()
	metrics := Metrics.NewCollector("test")
	logger := zap.NewNop()
	backing := Store.NewMemory()
	hub := SSE.NewHub(backing, metrics, logger)
	store := Store.WithNotifications(backing, hub)
	if assistant == nil {
		assistant = fakeGenerator{reply: "Drink water and rest."}
	}

	cfg := &Config.Config{
		ImageHost: Config.ImageHostConfig{MaxUploadSizeByte: 1 << 20},
		Video:     Config.VideoConfig{JitsiDomain: "meet.jit.si"},
		Outbreak:  Config.OutbreakConfig{PollInterval: time.Minute, RetryBaseDelay: time.Millisecond, MaxRetries: 1},
		RateLimit: Config.RateLimitConfig{RequestsPerSecond: 100, BurstSize: 100},
	}
	notifier := &recordingNotifier{}
	uploader := &fakeUploader{}
	h := NewHandler(Dependencies{
		Store:     store,
		Hub:       hub,
		Insights:  Outbreaks.NewInsights(store, assistant, cfg.Outbreak, metrics, logger),
		Assistant: assistant,
		Images:    uploader,
		Rooms:     VideoRoom.NewIssuer(cfg.Video),
		Notifier:  notifier,
		Whatsapp:  fakeGateway{},
		Config:    cfg,
		Metrics:   metrics,
		Logger:    logger,
	})
	h.now = func() time.Time { return fixedNow }

	r := gin.New()
	api := r.Group("/api/protected", Middleware.FirebaseAuth(tokenVerifier{}, logger))
	api.GET("/me", h.Me)
	api.PUT("/me/preferences", h.UpdatePreferences)
	api.POST("/tokens", h.RegisterToken)
	api.GET("/doctors", h.ListDoctors)
	api.POST("/reports", Middleware.RequirePatient(), h.SubmitReport)
	api.GET("/reports", h.ListReports)
	api.DELETE("/reports/:id", h.DeleteReport)
	api.GET("/outbreaks", h.GetOutbreaks)
	api.GET("/outbreaks/export", Middleware.RequireDoctor(), h.ExportOutbreaks)
	api.GET("/prescriptions/:patientId", h.GetThread)
	api.POST("/prescriptions/:patientId/messages", h.SendPrescriptionMessage)
	api.POST("/prescriptions/:patientId/claim", Middleware.RequirePatient(), h.ClaimPayment)
	api.POST("/prescriptions/:patientId/verify", Middleware.RequireDoctor(), h.VerifyPayment)
	api.DELETE("/prescriptions/:patientId", Middleware.RequireDoctor(), h.ClearThread)
	api.POST("/bookings", Middleware.RequirePatient(), h.CreateBooking)
	api.GET("/bookings", h.ListBookings)
	api.DELETE("/bookings/:id", h.CancelBooking)
	api.GET("/bookings/:id/room", h.JoinRoom)
	api.GET("/chats/:roomId", h.GetChat)
	api.POST("/chats/:roomId", h.SendChat)
	api.GET("/campaigns", h.ListCampaigns)
	api.POST("/campaigns", h.CreateCampaign)
	api.POST("/campaigns/:id/verify", Middleware.RequireDoctor(), h.VerifyCampaign)
	api.GET("/transactions", h.ListTransactions)
	api.POST("/transactions", h.Donate)
	api.POST("/assistant", h.Ask)
	api.POST("/media", h.UploadImage)
	api.GET("/subscribe", h.Subscribe)
	api.GET("/admin/whatsapp/status", Middleware.RequireAdmin(), h.WhatsappStatus)
	api.GET("/admin/whatsapp/qr", Middleware.RequireAdmin(), h.WhatsappQRCode)

	return &harness{router: r, handler: h, store: store, notifier: notifier, uploader: uploader}
}

func (h *harness) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

const (
	patientToken      = "p1:patient"
	otherPatientToken = "p2:patient"
	doctorToken       = "d1:doctor"
	adminToken        = "a1:admin"
)
