package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.DefaultCalendarID != "primary" {
		t.Errorf("expected default calendar primary, got %s", cfg.DefaultCalendarID)
	}
	if cfg.LockoutWindow != time.Hour {
		t.Errorf("expected default lockout window 1h, got %s", cfg.LockoutWindow)
	}
	if cfg.FolioPrefix != "ATU" {
		t.Errorf("expected default folio prefix ATU, got %s", cfg.FolioPrefix)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOCKOUT_ENABLED", "true")
	t.Setenv("LOCKOUT_MAX_ATTEMPTS", "3")
	t.Setenv("LOCKOUT_WINDOW", "10m")
	t.Setenv("RATE_LIMIT_PER_SECOND", "2.5")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if !cfg.LockoutEnabled {
		t.Error("expected lockout enabled")
	}
	if cfg.LockoutMaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", cfg.LockoutMaxAttempts)
	}
	if cfg.LockoutWindow != 10*time.Minute {
		t.Errorf("expected 10m window, got %s", cfg.LockoutWindow)
	}
	if cfg.RateLimitPerSecond != 2.5 {
		t.Errorf("expected 2.5 rps, got %f", cfg.RateLimitPerSecond)
	}
}
