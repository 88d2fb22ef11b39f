package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadReadsSectionsAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: "9090"
auth:
  secret: from-file
  token_ttl: 2h
sqlite:
  path: quiz.db
wizard:
  session_ttl: 30m
  on_quiz_mismatch: reject
  option_validation: lazy
notify:
  sendgrid:
    from_email: quiz@example.com
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("QUIZ_JWT_SECRET", "from-env")
	t.Setenv("SENDGRID_API_KEY", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.SQLite.Path != "quiz.db" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Auth.Secret != "from-env" {
		t.Fatalf("expected env secret override, got %q", cfg.Auth.Secret)
	}
	if cfg.Wizard.OnQuizMismatch != "reject" || cfg.Wizard.OptionValidation != "lazy" {
		t.Fatalf("unexpected wizard config %+v", cfg.Wizard)
	}
	if cfg.Notify.SendGrid.FromEmail != "quiz@example.com" || cfg.Notify.SendGrid.APIKey != "" {
		t.Fatalf("unexpected notify config %+v", cfg.Notify)
	}
	if got := TTLDuration(cfg.Wizard.SessionTTL, time.Hour); got != 30*time.Minute {
		t.Fatalf("expected 30m, got %v", got)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for empty, got %v", got)
	}
	if got := TTLDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for garbage, got %v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error")
	}
}
