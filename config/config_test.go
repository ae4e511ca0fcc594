package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PG_HOST", "db.internal")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Postgres.Host != "db.internal" {
		t.Fatalf("expected PG_HOST override, got %q", cfg.Postgres.Host)
	}
	if !cfg.Server.IsProduction() {
		t.Fatalf("expected production env, got %q", cfg.Server.Env)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.RateLimit.Window != time.Minute {
		t.Fatalf("expected 1m window, got %s", cfg.RateLimit.Window)
	}
	if cfg.Report.DefaultUser != "admin" {
		t.Fatalf("expected default user admin, got %q", cfg.Report.DefaultUser)
	}
	if cfg.Dedupe.Capacity == 0 || cfg.Dedupe.FalsePositiveRate <= 0 {
		t.Fatalf("expected dedupe defaults, got %+v", cfg.Dedupe)
	}
}
