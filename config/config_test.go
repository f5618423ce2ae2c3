package config_test

import (
	"testing"

	"github.com/zline/bi-engine/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Port)
	}
	if cfg.DBPath != "dashboard.db" {
		t.Errorf("default db path = %q", cfg.DBPath)
	}
	if cfg.CurrentPeriod == "" {
		t.Error("default current period missing")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_PATH", ":memory:")
	t.Setenv("CURRENT_PERIOD", "March/2026")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9090 || cfg.DBPath != ":memory:" || cfg.CurrentPeriod != "March/2026" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoad_BadPort(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for malformed PORT")
	}
}
