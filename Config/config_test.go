package Config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3005, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:3005", cfg.Server.Address())
	assert.Equal(t, 10*time.Minute, cfg.Outbreak.PollInterval)
	assert.Equal(t, 2*time.Second, cfg.Outbreak.RetryBaseDelay)
	assert.Equal(t, 3, cfg.Outbreak.MaxRetries)
	assert.Equal(t, ImageHostImgBB, cfg.ImageHost.Driver)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("OUTBREAK_POLL_INTERVAL", "90s")
	t.Setenv("OUTBREAK_MAX_RETRIES", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("GEMINI_ENDPOINT", "https://gemini.example/v1/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.Store.Driver)
	assert.Equal(t, 90*time.Second, cfg.Outbreak.PollInterval)
	assert.Equal(t, 5, cfg.Outbreak.MaxRetries)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "https://gemini.example/v1", cfg.Gemini.Endpoint)
}

func TestLoadRejectsFirebaseWithoutURL(t *testing.T) {
	t.Setenv("STORE_DRIVER", "firebase")
	t.Setenv("FIREBASE_DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FIREBASE_DATABASE_URL")
}

func TestLoadRejectsUnknownDrivers(t *testing.T) {
	t.Setenv("STORE_DRIVER", "redis")
	t.Setenv("IMAGE_HOST_DRIVER", "ftp")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER")
	assert.Contains(t, err.Error(), "IMAGE_HOST_DRIVER")
}
