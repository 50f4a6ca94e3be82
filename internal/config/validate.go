package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	if len(c.JWT.Secret) < 32 {
		errs = append(errs, "JWT_SECRET must be at least 32 characters")
	}
	if len(c.Assets.SigningKey) < 32 {
		errs = append(errs, "ASSETS_SIGNING_KEY must be at least 32 characters")
	}
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1-65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1-65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1-65535, got %d", c.Redis.Port))
	}

	if c.Quota.UserDailyLimit < 1 {
		errs = append(errs, fmt.Sprintf("QUOTA_USER_DAILY_LIMIT must be positive, got %d", c.Quota.UserDailyLimit))
	}
	if c.Quota.DailyBudgetUSD <= 0 {
		errs = append(errs, fmt.Sprintf("QUOTA_DAILY_BUDGET_USD must be positive, got %v", c.Quota.DailyBudgetUSD))
	}
	if c.Quota.ImageCostUSD <= 0 {
		errs = append(errs, fmt.Sprintf("QUOTA_IMAGE_COST_USD must be positive, got %v", c.Quota.ImageCostUSD))
	}
	if c.Quota.ImageCostUSD > c.Quota.DailyBudgetUSD {
		errs = append(errs, "QUOTA_IMAGE_COST_USD exceeds QUOTA_DAILY_BUDGET_USD, no generation could ever be reserved")
	}

	if c.Support.SessionMaxMsgs < 1 {
		errs = append(errs, fmt.Sprintf("SUPPORT_SESSION_MAX_MSGS must be positive, got %d", c.Support.SessionMaxMsgs))
	}
	if c.Support.SessionWindow <= 0 {
		errs = append(errs, "SUPPORT_SESSION_WINDOW must be positive")
	}

	// Missing collaborator credentials degrade features rather than block startup.
	if c.Gemini.APIKey == "" {
		slog.Warn("GEMINI_API_KEY is empty — generation and classification will fail upstream")
	}
	if c.Support.GitHubToken == "" {
		slog.Warn("SUPPORT_GITHUB_TOKEN is empty — support tickets cannot be filed")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
