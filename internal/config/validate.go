package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// JWT secrets
	if len(c.JWT.AccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 characters")
	}
	if len(c.JWT.RefreshSecret) < 32 {
		errs = append(errs, "JWT_REFRESH_SECRET must be at least 32 characters")
	}
	if c.JWT.AccessSecret != "" && c.JWT.RefreshSecret != "" && c.JWT.AccessSecret == c.JWT.RefreshSecret {
		errs = append(errs, "JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	// Encryption key: must be exactly 64 hex chars (32 bytes)
	if c.Encryption.Key == "" {
		errs = append(errs, "ENCRYPTION_KEY is required")
	} else if len(c.Encryption.Key) != 64 {
		errs = append(errs, "ENCRYPTION_KEY must be exactly 64 hex characters (32 bytes)")
	} else if _, err := hex.DecodeString(c.Encryption.Key); err != nil {
		errs = append(errs, "ENCRYPTION_KEY must be valid hex")
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1-65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1-65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1-65535, got %d", c.Redis.Port))
	}

	switch c.Cache.Backend {
	case "redis", "memory":
	default:
		errs = append(errs, fmt.Sprintf("CACHE_BACKEND must be redis or memory, got %q", c.Cache.Backend))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, "CACHE_TTL must be positive")
	}

	switch c.Billing.Provider {
	case "razorpay", "stripe":
	default:
		errs = append(errs, fmt.Sprintf("BILLING_PROVIDER must be razorpay or stripe, got %q", c.Billing.Provider))
	}
	if c.Billing.TotalCount < 1 {
		errs = append(errs, "BILLING_TOTAL_COUNT must be at least 1")
	}

	if c.LLM.Timeout <= 0 {
		errs = append(errs, "LLM_TIMEOUT must be positive")
	} else if wt := c.Server.WriteTimeoutOrDefault(); wt <= c.LLM.Timeout {
		errs = append(errs, fmt.Sprintf("SERVER_WRITE_TIMEOUT (%s) must exceed LLM_TIMEOUT (%s)", wt, c.LLM.Timeout))
	}
	if c.Chat.RateLimit < 1 {
		errs = append(errs, "CHAT_RATE_LIMIT must be at least 1")
	}

	// Upstream credentials: warn only, the affected endpoints answer with an error
	if c.LLM.APIKey == "" {
		slog.Warn("LLM_API_KEY is empty, chat requests will fail upstream")
	}
	if c.Billing.KeyID == "" || c.Billing.KeySecret == "" || c.Billing.PlanID == "" {
		slog.Warn("billing credentials incomplete, subscription endpoints will report misconfiguration")
	}
	if c.Internal.APIKey == "" {
		slog.Warn("INTERNAL_API_KEY is empty, internal account endpoints are disabled")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}

// BillingConfigured reports whether subscription calls can reach the provider.
func (c *Config) BillingConfigured() bool {
	return c.Billing.KeyID != "" && c.Billing.KeySecret != "" && c.Billing.PlanID != ""
}
