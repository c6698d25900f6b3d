package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	GeminiAPIKey   string   `env:"GEMINI_API_KEY,required"`
	DatabaseURL    string   `env:"DATABASE_URL,required"`
	LocalStorePath string   `env:"LOCAL_STORE_PATH" envDefault:"data/cosmic-creator.sqlite"`
	Port           int      `env:"PORT" envDefault:"3000"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// Cloud storage: Supabase
	SupabaseURL        string `env:"SUPABASE_URL"`
	SupabaseServiceKey string `env:"SUPABASE_SERVICE_KEY"`
	ImagesBucket       string `env:"IMAGES_BUCKET" envDefault:"starnation-images"`
	VideosBucket       string `env:"VIDEOS_BUCKET" envDefault:"starnation-videos"`

	// Payment: Stripe
	StripeEnabled   bool   `env:"STRIPE_ENABLED" envDefault:"false"`
	StripeSecretKey string `env:"STRIPE_SECRET_KEY"`
	StripePriceID   string `env:"STRIPE_PRICE_ID"`

	// Rate limiting of generation endpoints
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"6"`

	// Telegram logging
	BotToken                string `env:"BOT_TOKEN"`
	LogTelegramChatID       int64  `env:"LOG_TELEGRAM_CHAT_ID"`
	LogTopicError           int    `env:"LOG_TOPIC_ERROR"`
	LogTopicRegistration    int    `env:"LOG_TOPIC_REGISTRATION"`
	LogTopicPayment         int    `env:"LOG_TOPIC_PAYMENT"`
	LogTopicVideoManifested int    `env:"LOG_TOPIC_VIDEO_MANIFESTED"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.StripeEnabled && (cfg.StripeSecretKey == "" || cfg.StripePriceID == "") {
		return nil, fmt.Errorf("parse config: STRIPE_SECRET_KEY and STRIPE_PRICE_ID are required when STRIPE_ENABLED")
	}
	return cfg, nil
}

// CloudEnabled reports whether Supabase Storage credentials are configured.
func (c *Config) CloudEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseServiceKey != ""
}

// StorageEndpoint returns the Storage API root for the configured project.
func (c *Config) StorageEndpoint() string {
	return strings.TrimRight(c.SupabaseURL, "/") + "/storage/v1"
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
