package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port                 int    `env:"PORT" envDefault:"8080"`
	DatabaseURL          string `env:"DATABASE_URL"`
	RedisURL             string `env:"REDIS_URL,required"`
	ConnTokenSecret      string `env:"CONN_TOKEN_SECRET"`
	SessionSecret        string `env:"SESSION_SECRET"`
	ConnectBaseURL       string `env:"CONNECT_BASE_URL" envDefault:"https://connect.walletbridge.app/connect"`
	CallbackURL          string `env:"CALLBACK_URL" envDefault:"/v1/connections/callback"`
	ReturnToURL          string `env:"RETURN_TO_URL" envDefault:""`
	ConnectionTTLSeconds int    `env:"CONNECTION_TTL_SECONDS" envDefault:"300"`
	SweepIntervalSeconds int    `env:"SWEEP_INTERVAL_SECONDS" envDefault:"60"`
	StoreTimeoutSeconds  int    `env:"STORE_TIMEOUT_SECONDS" envDefault:"5"`
	StrictCallbackLookup bool   `env:"STRICT_CALLBACK_LOOKUP" envDefault:"false"`
	RequireDurableStore  bool   `env:"REQUIRE_DURABLE_STORE" envDefault:"false"`
	RateLimitPerMin      int    `env:"RATE_LIMIT_PER_MIN" envDefault:"30"`
	LogLevel             string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) ConnectionTTL() time.Duration {
	return time.Duration(c.ConnectionTTLSeconds) * time.Second
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// TokenSecret is the key material for connection tokens. CONN_TOKEN_SECRET
// wins; SESSION_SECRET is the fallback so deployments with a single secret
// still get signed tokens.
func (c *Config) TokenSecret() string {
	if c.ConnTokenSecret != "" {
		return c.ConnTokenSecret
	}
	return c.SessionSecret
}

func (c *Config) Validate(isProduction bool) error {
	if c.TokenSecret() == "" {
		return fmt.Errorf("CONN_TOKEN_SECRET or SESSION_SECRET must be set")
	}

	if isProduction {
		if err := validateSecret("CONN_TOKEN_SECRET", c.TokenSecret()); err != nil {
			return err
		}

		if c.DatabaseURL == "" && !c.RequireDurableStore {
			log.Warn().Msg("DATABASE_URL is empty in production: connections will not survive restarts")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
		if !strings.HasPrefix(c.ConnectBaseURL, "https://") {
			log.Warn().Msg("CONNECT_BASE_URL is not https in production: connection tokens travel in the URL")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
