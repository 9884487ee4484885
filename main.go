package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	firebase "firebase.google.com/go/v4"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"TeleCare/Config"
	"TeleCare/Controllers"
	"TeleCare/CronJobs"
	"TeleCare/FirebaseMessaging"
	"TeleCare/Gemini"
	"TeleCare/ImageHost"
	"TeleCare/Logger"
	"TeleCare/Metrics"
	"TeleCare/Middleware"
	"TeleCare/Outbreaks"
	"TeleCare/Routes"
	"TeleCare/SSE"
	"TeleCare/Store"
	"TeleCare/Tracer"
	"TeleCare/VideoRoom"
	"TeleCare/Whatsapp"
)

func main() {
	cfg, err := Config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := Logger.New(cfg.Log, cfg.App)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("telecare stopped", zap.Error(err))
	}
}

func run(cfg *Config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := Tracer.Init(ctx, cfg.Tracing, cfg.App)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	metrics := Metrics.NewCollector(cfg.App.Name)

	// Firebase Auth issues every identity, so the app exists whatever the store driver.
	app, err := FirebaseMessaging.NewApp(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	verifier, err := app.Auth(ctx)
	if err != nil {
		return fmt.Errorf("initialising firebase auth: %w", err)
	}

	backing, err := openStore(ctx, cfg, app, logger)
	if err != nil {
		return err
	}
	defer backing.Close()

	hub := SSE.NewHub(backing, metrics, logger)
	store := Store.WithNotifications(backing, hub)

	var sender FirebaseMessaging.Sender
	if messenger, err := FirebaseMessaging.NewMessenger(ctx, app, logger); err != nil {
		logger.Warn("push notifications disabled", zap.Error(err))
	} else {
		sender = messenger
	}
	notifier := FirebaseMessaging.NewNotifier(store, sender, metrics, logger)

	images, err := openImageHost(ctx, cfg.ImageHost)
	if err != nil {
		return err
	}

	gemini := Gemini.New(cfg.Gemini, logger)
	if !gemini.Configured() {
		logger.Warn("GEMINI_API_KEY not set, outbreak insights and the assistant are disabled")
	}
	insights := Outbreaks.NewInsights(store, gemini, cfg.Outbreak, metrics, logger)
	whatsapp := Whatsapp.NewClient(cfg.Reminder.WhatsappServiceURL, logger)
	limiter := Middleware.NewRateLimiter(cfg.RateLimit)

	workers := CronJobs.NewWorkers(CronJobs.Dependencies{
		Store:    store,
		Pusher:   notifier,
		Whatsapp: whatsapp,
		Insights: insights,
		Hub:      hub,
		Limiter:  limiter,
		Config:   cfg,
		Metrics:  metrics,
		Logger:   logger,
	})
	if _, err := workers.Start(); err != nil {
		return fmt.Errorf("starting workers: %w", err)
	}
	defer workers.Stop()

	handler := Controllers.NewHandler(Controllers.Dependencies{
		Store:       store,
		Hub:         hub,
		Insights:    insights,
		Assistant:   gemini,
		Images:      images,
		Rooms:       VideoRoom.NewIssuer(cfg.Video),
		Notifier:    notifier,
		Whatsapp:    whatsapp,
		Config:      cfg,
		Metrics:     metrics,
		Logger:      logger,
		BaseContext: ctx,
	})

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	Routes.ConfigRoutes(router, Routes.Options{
		Config:   cfg,
		Handler:  handler,
		Verifier: verifier,
		Limiter:  limiter,
		Metrics:  metrics,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("telecare listening",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.Store.Driver),
			zap.String("env", cfg.App.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serving http: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg *Config.Config, app *firebase.App, logger *zap.Logger) (Store.Store, error) {
	switch cfg.Store.Driver {
	case Config.StoreFirebase:
		return Store.NewFirebase(ctx, app)
	case Config.StorePostgres:
		return Store.NewPostgres(cfg.Database, logger)
	default:
		logger.Warn("using the in-memory store, data is lost on restart")
		return Store.NewMemory(), nil
	}
}

func openImageHost(ctx context.Context, cfg Config.ImageHostConfig) (ImageHost.Uploader, error) {
	if cfg.Driver == Config.ImageHostS3 {
		return ImageHost.NewS3(ctx, cfg.S3Bucket, cfg.S3PublicBaseURL)
	}
	return ImageHost.NewImgBB(cfg.ImgBBAPIKey, cfg.ImgBBEndpoint), nil
}
