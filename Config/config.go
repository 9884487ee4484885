package Config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Log       LogConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Gemini    GeminiConfig
	Outbreak  OutbreakConfig
	ImageHost ImageHostConfig
	Video     VideoConfig
	Reminder  ReminderConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Tracing   TracingConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Version     string
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LogConfig struct {
	Level      string
	Format     string
	OutputPath string
}

const (
	StoreFirebase = "firebase"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type StoreConfig struct {
	Driver                     string
	FirebaseDatabaseURL        string
	FirebaseServiceAccountPath string
	// ResyncInterval re-reads subscribed paths to pick up writes made by other clients.
	ResyncInterval time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

type GeminiConfig struct {
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration
}

type OutbreakConfig struct {
	PollInterval   time.Duration
	RetryBaseDelay time.Duration
	MaxRetries     int
}

const (
	ImageHostImgBB = "imgbb"
	ImageHostS3    = "s3"
)

type ImageHostConfig struct {
	Driver            string
	ImgBBAPIKey       string
	ImgBBEndpoint     string
	S3Bucket          string
	S3PublicBaseURL   string
	MaxUploadSizeByte int64
}

type VideoConfig struct {
	JitsiDomain    string
	JitsiAppID     string
	JitsiAppSecret string
	TokenTTL       time.Duration
}

type ReminderConfig struct {
	Lead               time.Duration
	WhatsappServiceURL string
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         time.Duration
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

type TracingConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	SampleRate   float64
}

func defaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "telecare")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_VERSION", "0.0.0")

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 3005)
	v.SetDefault("SERVER_READ_TIMEOUT", 15*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 0)
	v.SetDefault("SERVER_IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_OUTPUT", "stdout")

	v.SetDefault("STORE_DRIVER", StoreFirebase)
	v.SetDefault("STORE_RESYNC_INTERVAL", 30*time.Second)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_NAME", "telecare")
	v.SetDefault("DB_USER", "telecare")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	v.SetDefault("GEMINI_ENDPOINT", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("GEMINI_TIMEOUT", 60*time.Second)

	v.SetDefault("OUTBREAK_POLL_INTERVAL", 10*time.Minute)
	v.SetDefault("OUTBREAK_RETRY_BASE_DELAY", 2*time.Second)
	v.SetDefault("OUTBREAK_MAX_RETRIES", 3)

	v.SetDefault("IMAGE_HOST_DRIVER", ImageHostImgBB)
	v.SetDefault("IMGBB_ENDPOINT", "https://api.imgbb.com/1/upload")
	v.SetDefault("MAX_UPLOAD_SIZE_BYTES", 10<<20)

	v.SetDefault("JITSI_DOMAIN", "meet.jit.si")
	v.SetDefault("ROOM_TOKEN_TTL", 2*time.Hour)

	v.SetDefault("REMINDER_LEAD", 3*time.Hour)

	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS")
	v.SetDefault("CORS_ALLOWED_HEADERS", "Origin,Content-Type,Accept,Authorization,X-Request-ID")
	v.SetDefault("CORS_MAX_AGE", 12*time.Hour)

	v.SetDefault("RATE_LIMIT_RPS", 5.0)
	v.SetDefault("RATE_LIMIT_BURST", 10)

	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_SERVICE_NAME", "telecare")
	v.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("TRACING_SAMPLE_RATE", 0.1)
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	v := viper.New()
	v.AutomaticEnv()
	defaults(v)

	cfg := &Config{
		App: AppConfig{
			Name:        v.GetString("APP_NAME"),
			Environment: v.GetString("APP_ENV"),
			Version:     v.GetString("APP_VERSION"),
		},
		Server: ServerConfig{
			Host:            v.GetString("SERVER_HOST"),
			Port:            v.GetInt("SERVER_PORT"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:     v.GetDuration("SERVER_IDLE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
		},
		Log: LogConfig{
			Level:      v.GetString("LOG_LEVEL"),
			Format:     v.GetString("LOG_FORMAT"),
			OutputPath: v.GetString("LOG_OUTPUT"),
		},
		Store: StoreConfig{
			Driver:                     strings.ToLower(v.GetString("STORE_DRIVER")),
			FirebaseDatabaseURL:        v.GetString("FIREBASE_DATABASE_URL"),
			FirebaseServiceAccountPath: v.GetString("FIREBASE_SERVICE_ACCOUNT_PATH"),
			ResyncInterval:             v.GetDuration("STORE_RESYNC_INTERVAL"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Gemini: GeminiConfig{
			APIKey:   v.GetString("GEMINI_API_KEY"),
			Model:    v.GetString("GEMINI_MODEL"),
			Endpoint: strings.TrimRight(v.GetString("GEMINI_ENDPOINT"), "/"),
			Timeout:  v.GetDuration("GEMINI_TIMEOUT"),
		},
		Outbreak: OutbreakConfig{
			PollInterval:   v.GetDuration("OUTBREAK_POLL_INTERVAL"),
			RetryBaseDelay: v.GetDuration("OUTBREAK_RETRY_BASE_DELAY"),
			MaxRetries:     v.GetInt("OUTBREAK_MAX_RETRIES"),
		},
		ImageHost: ImageHostConfig{
			Driver:            strings.ToLower(v.GetString("IMAGE_HOST_DRIVER")),
			ImgBBAPIKey:       v.GetString("IMGBB_API_KEY"),
			ImgBBEndpoint:     v.GetString("IMGBB_ENDPOINT"),
			S3Bucket:          v.GetString("S3_BUCKET"),
			S3PublicBaseURL:   strings.TrimRight(v.GetString("S3_PUBLIC_BASE_URL"), "/"),
			MaxUploadSizeByte: v.GetInt64("MAX_UPLOAD_SIZE_BYTES"),
		},
		Video: VideoConfig{
			JitsiDomain:    v.GetString("JITSI_DOMAIN"),
			JitsiAppID:     v.GetString("JITSI_APP_ID"),
			JitsiAppSecret: v.GetString("JITSI_APP_SECRET"),
			TokenTTL:       v.GetDuration("ROOM_TOKEN_TTL"),
		},
		Reminder: ReminderConfig{
			Lead:               v.GetDuration("REMINDER_LEAD"),
			WhatsappServiceURL: strings.TrimRight(v.GetString("WHATSAPP_SERVICE_URL"), "/"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			AllowedMethods: splitList(v.GetString("CORS_ALLOWED_METHODS")),
			AllowedHeaders: splitList(v.GetString("CORS_ALLOWED_HEADERS")),
			MaxAge:         v.GetDuration("CORS_MAX_AGE"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: v.GetFloat64("RATE_LIMIT_RPS"),
			BurstSize:         v.GetInt("RATE_LIMIT_BURST"),
		},
		Tracing: TracingConfig{
			Enabled:      v.GetBool("TRACING_ENABLED"),
			ServiceName:  v.GetString("TRACING_SERVICE_NAME"),
			OTLPEndpoint: v.GetString("OTLP_ENDPOINT"),
			SampleRate:   v.GetFloat64("TRACING_SAMPLE_RATE"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate only rejects settings the process cannot start without. Optional
// integrations (Gemini, image host, Jitsi secret) are reported per request.
func validate(cfg *Config) error {
	var errs []string

	switch cfg.Store.Driver {
	case StoreFirebase:
		if cfg.Store.FirebaseDatabaseURL == "" {
			errs = append(errs, "FIREBASE_DATABASE_URL is required when STORE_DRIVER=firebase")
		}
	case StorePostgres:
		if cfg.Database.Password == "" && cfg.App.Environment != "development" {
			errs = append(errs, "DB_PASSWORD is required in non-development environments")
		}
	case StoreMemory:
		if cfg.App.Environment == "production" {
			errs = append(errs, "STORE_DRIVER=memory is not allowed in production")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORE_DRIVER %q is not one of firebase, postgres, memory", cfg.Store.Driver))
	}

	switch cfg.ImageHost.Driver {
	case ImageHostImgBB, ImageHostS3:
	default:
		errs = append(errs, fmt.Sprintf("IMAGE_HOST_DRIVER %q is not one of imgbb, s3", cfg.ImageHost.Driver))
	}

	if cfg.Outbreak.PollInterval <= 0 {
		errs = append(errs, "OUTBREAK_POLL_INTERVAL must be positive")
	}
	if cfg.Outbreak.MaxRetries < 0 {
		errs = append(errs, "OUTBREAK_MAX_RETRIES must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			result = append(result, t)
		}
	}
	return result
}
