// Package config loads application configuration from environment variables.
//
// Everything the server needs at startup lives in one Config struct that is
// parsed once in main and passed down explicitly. There is deliberately no
// package-level state: components receive the slice of configuration they
// need through their constructors, so tests can construct any configuration
// without touching the process environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// ProviderCredentials holds the OAuth client registration for one identity
// provider. An empty ClientID disables the provider — the server simply does
// not register its routes.
type ProviderCredentials struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
}

// Enabled reports whether the provider was configured.
func (c ProviderCredentials) Enabled() bool {
	return c.ClientID != ""
}

// Config is the full server configuration.
//
// env tags are read by caarlos0/env. Defaults suit local development; every
// secret must come from the environment and has no default.
type Config struct {
	Port    int    `env:"PORT"     envDefault:"3000"`
	BaseURL string `env:"BASE_URL" envDefault:""` // external URL for OAuth callbacks; derived from Port when empty
	DBPath  string `env:"DB_PATH"  envDefault:"data/storyhub.db"`

	// Session lifetime is a store-eviction knob, not a protocol guarantee:
	// sessions die at logout regardless, and merely get garbage-collected
	// after this duration.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// Payment. PostPriceCents is the fixed amount charged per authored post.
	StripeSecretKey      string `env:"STRIPE_SECRET_KEY"`
	StripePublishableKey string `env:"STRIPE_PUBLISHABLE_KEY"`
	PostPriceCents       int64  `env:"POST_PRICE_CENTS" envDefault:"2500"`
	PaymentCurrency      string `env:"PAYMENT_CURRENCY" envDefault:"usd"`

	Google    ProviderCredentials `envPrefix:"GOOGLE_"`
	Facebook  ProviderCredentials `envPrefix:"FACEBOOK_"`
	Instagram ProviderCredentials `envPrefix:"INSTAGRAM_"`

	// Login attempts per minute tolerated from a single client address
	// before the auth routes start returning 429.
	LoginRatePerMinute int `env:"LOGIN_RATE_PER_MINUTE" envDefault:"10"`
}

// Load parses configuration from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing environment: %w", err)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.PostPriceCents <= 0 {
		return errors.New("config: POST_PRICE_CENTS must be positive")
	}
	if c.SessionTTL <= 0 {
		return errors.New("config: SESSION_TTL must be positive")
	}
	return nil
}

// CallbackURL returns the OAuth redirect URL for the named provider,
// e.g. "http://localhost:3000/auth/google/callback".
func (c Config) CallbackURL(provider string) string {
	return fmt.Sprintf("%s/auth/%s/callback", c.BaseURL, provider)
}
