package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "LOG_LEVEL", "JWT_EXPIRES_DAYS", "NODE_ENV"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Port != "5175" || cfg.LogLevel != "info" || cfg.JWTExpiresDays != 14 {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.Production() {
		t.Fatal("default environment should not be production")
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")
	t.Setenv("NODE_ENV", "production")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("PORT=9000\nNODE_ENV=development\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9000" {
		t.Fatalf("port = %q, want 9000 from .env", cfg.Port)
	}
	// godotenv never overrides variables already set.
	if !cfg.Production() {
		t.Fatal("NODE_ENV from the process should win over .env")
	}
	os.Unsetenv("PORT")
}

func TestParseRejectsBadInt(t *testing.T) {
	t.Setenv("JWT_EXPIRES_DAYS", "soon")
	if _, err := Parse(); err == nil {
		t.Fatal("expected error for non-integer JWT_EXPIRES_DAYS")
	}
}
