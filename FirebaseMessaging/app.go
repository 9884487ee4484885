package FirebaseMessaging

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"TeleCare/Config"
)

// NewApp initialises the Firebase app shared by the database, auth and
// messaging clients. Without a service account path it falls back to
// application default credentials.
func NewApp(ctx context.Context, cfg Config.StoreConfig, logger *zap.Logger) (*firebase.App, error) {
	conf := &firebase.Config{DatabaseURL: cfg.FirebaseDatabaseURL}

	var opts []option.ClientOption
	if cfg.FirebaseServiceAccountPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseServiceAccountPath))
	} else {
		logger.Info("FIREBASE_SERVICE_ACCOUNT_PATH not set, using application default credentials")
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialising firebase app: %w", err)
	}
	return app, nil
}
