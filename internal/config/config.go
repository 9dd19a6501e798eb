// config.go

// Environment variable loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// OAuthProvider holds the five required settings for one OAuth2 provider.
type OAuthProvider struct {
	AuthorizationURL string
	TokenURL         string
	ClientID         string
	ClientSecret     string
	CallbackURL      string
}

// Config holds all env configuration vars for authflow.
type Config struct {
	Port     string
	LogLevel slog.Level

	// Session layer. SessionSecret is always required -- it signs the
	// cookie backend. RedisURL / DatabaseURL are optional and select the
	// session backend: DatabaseURL wins, then RedisURL, else signed cookie.
	SessionSecret string
	SessionTTL    time.Duration
	RedisURL      string
	DatabaseURL   string

	// Generic OAuth2 provider, registered as "oauth2".
	// Enabled when OAUTH_CLIENT_ID is set; then all five fields are required.
	OAuth *OAuthProvider

	// Google provider, registered as "google".
	// Enabled when GOOGLE_CLIENT_ID is set.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string
}

// LoadConfig reads environment variables and returns a validated Config.
// Returns an error if SESSION_SECRET is missing or a provider is half-configured.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}

	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		cfg.Port = "7865"
	}

	// Parse log level, default to info
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		cfg.LogLevel = slog.LevelInfo
	}

	cfg.SessionTTL = envDuration("SESSION_TTL", 24*time.Hour)
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	// Generic provider -- all five settings must be present together so a
	// half-configured provider fails at startup, not mid-flow.
	if os.Getenv("OAUTH_CLIENT_ID") != "" {
		p := &OAuthProvider{
			AuthorizationURL: os.Getenv("OAUTH_AUTHORIZATION_URL"),
			TokenURL:         os.Getenv("OAUTH_TOKEN_URL"),
			ClientID:         os.Getenv("OAUTH_CLIENT_ID"),
			ClientSecret:     os.Getenv("OAUTH_CLIENT_SECRET"),
			CallbackURL:      os.Getenv("OAUTH_CALLBACK_URL"),
		}
		if p.AuthorizationURL == "" || p.TokenURL == "" || p.ClientSecret == "" || p.CallbackURL == "" {
			return nil, fmt.Errorf("OAUTH_CLIENT_ID is set but OAUTH_AUTHORIZATION_URL, OAUTH_TOKEN_URL, OAUTH_CLIENT_SECRET, and OAUTH_CALLBACK_URL are all required with it")
		}
		cfg.OAuth = p
	}

	// Google provider.
	if os.Getenv("GOOGLE_CLIENT_ID") != "" {
		cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
		cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
		cfg.GoogleCallbackURL = os.Getenv("GOOGLE_CALLBACK_URL")
		if cfg.GoogleClientSecret == "" || cfg.GoogleCallbackURL == "" {
			return nil, fmt.Errorf("GOOGLE_CLIENT_ID is set but GOOGLE_CLIENT_SECRET and GOOGLE_CALLBACK_URL are required with it")
		}
	}

	return cfg, nil
}

// envDuration reads an env var as time.Duration, returning def if missing or unparseable.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("invalid env var, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}
