package config

import (
	"testing"
	"time"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/stays")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Auth.TokenExpiry != time.Hour {
		t.Fatalf("expected 60 minute token expiry, got %s", cfg.Auth.TokenExpiry)
	}
	if cfg.Auth.TokenSecret != "" {
		t.Fatalf("expected empty token secret by default, got %q", cfg.Auth.TokenSecret)
	}
	if cfg.RateLimit.LoginPerMinute != 10 {
		t.Fatalf("expected login rate limit 10, got %d", cfg.RateLimit.LoginPerMinute)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/stays")
	t.Setenv("TOKEN_EXPIRY_MINUTES", "15")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Auth.TokenExpiry != 15*time.Minute {
		t.Fatalf("expected 15 minute expiry, got %s", cfg.Auth.TokenExpiry)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Environment != "production" {
		t.Fatalf("expected production environment, got %q", cfg.Environment)
	}
}

func TestLoadSMTPRequiresHost(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/stays")
	t.Setenv("SMTP_ENABLED", "true")
	t.Setenv("SMTP_HOST", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when SMTP enabled without host")
	}
}
