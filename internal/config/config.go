// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full process configuration.
type Config struct {
	Addr        string
	DatabaseURL string
	// WebDir, when set, is served as a static front-end at "/".
	WebDir string

	Redis struct {
		Addr     string
		Password string
		DB       int
		DateTTL  time.Duration
	}

	Log struct {
		Level  string
		Format string
	}

	Auth struct {
		ForwardHeader string
		ProvisionRole string
		SessionTTL    time.Duration
		OIDC          struct {
			Issuer       string
			ClientID     string
			ClientSecret string
			RedirectURL  string
		}
	}

	// LockFinalSheets rejects updates to finalized weight sheets.
	LockFinalSheets bool
}

// OIDCEnabled reports whether enough SSO settings are present to use it.
func (c *Config) OIDCEnabled() bool {
	return c.Auth.OIDC.Issuer != "" && c.Auth.OIDC.ClientID != ""
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.Addr = getEnv("ADDR", ":8080")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.WebDir = os.Getenv("WEB_DIR")

	cfg.Redis.Addr = os.Getenv("REDIS_ADDR")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("config: REDIS_DB: %w", err)
	}
	cfg.Redis.DB = db
	if cfg.Redis.DateTTL, err = time.ParseDuration(getEnv("DATE_CACHE_TTL", "5m")); err != nil {
		return nil, fmt.Errorf("config: DATE_CACHE_TTL: %w", err)
	}

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Auth.ForwardHeader = os.Getenv("FORWARD_AUTH_HEADER")
	cfg.Auth.ProvisionRole = os.Getenv("PROVISION_EMPLOYEE_ROLE")
	if cfg.Auth.SessionTTL, err = time.ParseDuration(getEnv("SESSION_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("config: SESSION_TTL: %w", err)
	}
	cfg.Auth.OIDC.Issuer = os.Getenv("OIDC_ISSUER")
	cfg.Auth.OIDC.ClientID = os.Getenv("OIDC_CLIENT_ID")
	cfg.Auth.OIDC.ClientSecret = os.Getenv("OIDC_CLIENT_SECRET")
	cfg.Auth.OIDC.RedirectURL = os.Getenv("OIDC_REDIRECT_URL")

	if cfg.LockFinalSheets, err = strconv.ParseBool(getEnv("LOCK_FINAL_SHEETS", "false")); err != nil {
		return nil, fmt.Errorf("config: LOCK_FINAL_SHEETS: %w", err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
