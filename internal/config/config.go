package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port string `envconfig:"PORT" default:"8080"`
	Env  string `envconfig:"ENV" default:"development"` // development, staging, production

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Firebase
	FirebaseProjectID string `envconfig:"FIREBASE_PROJECT_ID"`

	// CloudSearch (candidate search domain)
	AWSRegion              string `envconfig:"AWS_REGION" default:"us-east-1"`
	CloudSearchEndpoint    string `envconfig:"CLOUDSEARCH_ENDPOINT"`
	CloudSearchDocEndpoint string `envconfig:"CLOUDSEARCH_DOC_ENDPOINT"`

	// Push notifications
	OneSignalAppID   string `envconfig:"ONESIGNAL_APP_ID"`
	OneSignalRESTKey string `envconfig:"ONESIGNAL_REST_KEY"`
	OneSignalBaseURL string `envconfig:"ONESIGNAL_BASE_URL" default:"https://onesignal.com"`

	// Social networks
	EventbriteBaseURL string        `envconfig:"EVENTBRITE_BASE_URL" default:"https://www.eventbriteapi.com"`
	EventSyncInterval time.Duration `envconfig:"EVENT_SYNC_INTERVAL" default:"1h"`

	// Devices not seen for this long are purged
	DeviceTTL time.Duration `envconfig:"DEVICE_TTL" default:"2160h"`

	// Stripe
	StripeSecretKey      string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret  string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	StripePriceProMo     string `envconfig:"STRIPE_PRICE_PRO_MONTHLY"`
	StripePriceProAn     string `envconfig:"STRIPE_PRICE_PRO_ANNUAL"`
	StripePriceProPlusMo string `envconfig:"STRIPE_PRICE_PRO_PLUS_MONTHLY"`
	StripePriceProPlusAn string `envconfig:"STRIPE_PRICE_PRO_PLUS_ANNUAL"`
	FrontendURL          string `envconfig:"FRONTEND_URL" default:"http://localhost:5173"`

	// Rate Limiting
	RateLimitRPS int `envconfig:"RATE_LIMIT_RPS" default:"10"`

	// CORS
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,https://talentpool.app"`
}

func Load() (*Config, error) {
	// .env is optional; variables already set in the environment win
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RateLimitRPS <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_RPS must be positive, got %d", cfg.RateLimitRPS)
	}

	return &cfg, nil
}

// SearchEnabled reports whether a CloudSearch domain is configured
func (c *Config) SearchEnabled() bool {
	return c.CloudSearchEndpoint != ""
}

// PushEnabled reports whether OneSignal credentials are configured
func (c *Config) PushEnabled() bool {
	return c.OneSignalAppID != "" && c.OneSignalRESTKey != ""
}
