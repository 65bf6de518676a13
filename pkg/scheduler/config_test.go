package scheduler

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scheduler.yaml")
	content := `
timezone: UTC
status_addr: ":9000"
schedules:
  pipeline:
    cron: "30 5 * * *"
    enabled: true
    description: nightly pipeline
  reconcile:
    cron: "0 * * * *"
    enabled: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.TimeZone != "UTC" {
		t.Errorf("TimeZone = %q, want UTC", cfg.TimeZone)
	}
	if cfg.StatusAddr != ":9000" {
		t.Errorf("StatusAddr = %q, want :9000", cfg.StatusAddr)
	}
	if len(cfg.Schedules) != 2 {
		t.Fatalf("got %d schedules, want 2", len(cfg.Schedules))
	}
	if s := cfg.Schedules["pipeline"]; s.Cron != "30 5 * * *" || !s.Enabled {
		t.Errorf("pipeline schedule = %+v", s)
	}
	if s := cfg.Schedules["reconcile"]; s.Enabled {
		t.Error("reconcile schedule should be disabled")
	}
}

func TestLoadConfigRedisEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scheduler.yaml")
	if err := os.WriteFile(path, []byte("redis_addr: file:6379\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("REDIS_ADDR", "env:6379")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.RedisAddr != "env:6379" {
		t.Errorf("RedisAddr = %q, want the environment override", cfg.RedisAddr)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.TimeZone == "" || cfg.StatusAddr == "" {
		t.Errorf("incomplete defaults: %+v", cfg)
	}
	s, ok := cfg.Schedules["pipeline"]
	if !ok || !s.Enabled || s.Cron == "" {
		t.Errorf("default pipeline schedule = %+v ok=%v", s, ok)
	}
}
