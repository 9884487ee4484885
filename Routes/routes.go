package Routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"TeleCare/Config"
	"TeleCare/Controllers"
	"TeleCare/Metrics"
	"TeleCare/Middleware"
)

const subscribePath = "/api/protected/subscribe"

type Options struct {
	Config   *Config.Config
	Handler  *Controllers.Handler
	Verifier Middleware.TokenVerifier
	Limiter  *Middleware.RateLimiter
	Metrics  *Metrics.Collector
	Logger   *zap.Logger
}

func ConfigRoutes(router *gin.Engine, opts Options) {
	h := opts.Handler

	router.Use(gin.Recovery())
	router.Use(Middleware.RequestID())
	router.Use(Middleware.RequestLogger(opts.Logger))
	router.Use(Middleware.Instrument(opts.Metrics))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     opts.Config.CORS.AllowedOrigins,
		AllowMethods:     opts.Config.CORS.AllowedMethods,
		AllowHeaders:     opts.Config.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           opts.Config.CORS.MaxAge,
	}))
	// Gzip Compression, except for event streams which must flush per event
	router.Use(gzip.Gzip(gzip.BestSpeed, gzip.WithExcludedPaths([]string{subscribePath})))

	// Public routes
	router.GET("/healthz", h.Healthz)
	router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))

	// Authorized routes
	authorized := router.Group("/api/protected")
	authorized.Use(Middleware.FirebaseAuth(opts.Verifier, opts.Logger))
	{
		// User-related routes
		authorized.GET("/me", h.Me)
		authorized.PUT("/me/preferences", h.UpdatePreferences)
		authorized.POST("/tokens", h.RegisterToken)
		authorized.GET("/doctors", h.ListDoctors)

		// Outbreak-related routes
		authorized.POST("/reports", Middleware.RequirePatient(), h.SubmitReport)
		authorized.GET("/reports", h.ListReports)
		authorized.DELETE("/reports/:id", h.DeleteReport)
		authorized.GET("/outbreaks", h.GetOutbreaks)
		authorized.GET("/outbreaks/insights", h.GetInsights)
		authorized.POST("/outbreaks/insights/refresh", Middleware.RequireDoctor(), h.RefreshInsights)
		authorized.GET("/outbreaks/export", Middleware.RequireDoctor(), h.ExportOutbreaks)

		// Prescription-related routes
		authorized.GET("/prescriptions/:patientId", h.GetThread)
		authorized.POST("/prescriptions/:patientId/messages", h.SendPrescriptionMessage)
		authorized.POST("/prescriptions/:patientId/claim", Middleware.RequirePatient(), h.ClaimPayment)
		authorized.POST("/prescriptions/:patientId/verify", Middleware.RequireDoctor(), h.VerifyPayment)
		authorized.DELETE("/prescriptions/:patientId", Middleware.RequireDoctor(), h.ClearThread)

		// Consultation-related routes
		authorized.POST("/bookings", Middleware.RequirePatient(), h.CreateBooking)
		authorized.GET("/bookings", h.ListBookings)
		authorized.DELETE("/bookings/:id", h.CancelBooking)
		authorized.GET("/bookings/:id/room", h.JoinRoom)
		authorized.GET("/chats/:roomId", h.GetChat)
		authorized.POST("/chats/:roomId", h.SendChat)
		authorized.POST("/feedback", h.SubmitFeedback)
		authorized.GET("/feedback", Middleware.RequireDoctor(), h.ListFeedback)

		// Community-related routes
		authorized.GET("/hub", Middleware.RequireDoctor(), h.ListHubPosts)
		authorized.POST("/hub", Middleware.RequireDoctor(), h.CreateHubPost)
		authorized.GET("/campaigns", h.ListCampaigns)
		authorized.POST("/campaigns", h.CreateCampaign)
		authorized.POST("/campaigns/:id/verify", Middleware.RequireDoctor(), h.VerifyCampaign)
		authorized.GET("/transactions", h.ListTransactions)
		authorized.POST("/transactions", h.Donate)

		// Assistant and media routes
		authorized.POST("/assistant", opts.Limiter.Middleware(), h.Ask)
		authorized.POST("/media", opts.Limiter.Middleware(), h.UploadImage)

		// WhatsApp-related routes
		authorized.GET("/admin/whatsapp/status", Middleware.RequireAdmin(), h.WhatsappStatus)
		authorized.GET("/admin/whatsapp/qr", Middleware.RequireAdmin(), h.WhatsappQRCode)

		// SSE (Server-Sent Events) route
		authorized.GET("/subscribe", h.Subscribe)
	}
}
