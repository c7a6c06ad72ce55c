package cfg

import (
	"testing"
	"time"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.DBPath != "./data/sitemap.db" {
		t.Errorf("Expected default db path, got '%s'", cfg.DBPath)
	}
	if cfg.StateBackend != "sqlite" {
		t.Errorf("Expected sqlite state backend, got '%s'", cfg.StateBackend)
	}
	if cfg.GenerationSchedule != "@every 1m" {
		t.Errorf("Expected generation schedule '@every 1m', got '%s'", cfg.GenerationSchedule)
	}
	if cfg.IncrementalSchedule != "@every 10m" {
		t.Errorf("Expected incremental schedule '@every 10m', got '%s'", cfg.IncrementalSchedule)
	}
	if cfg.StaleLookback != 48*time.Hour {
		t.Errorf("Expected 48h stale lookback, got %v", cfg.StaleLookback)
	}
	if cfg.APIRateLimit != 60 {
		t.Errorf("Expected rate limit 60, got %d", cfg.APIRateLimit)
	}
	if Get() != cfg {
		t.Error("Expected Get to return the loaded configuration")
	}
}

func TestLoadFlags(t *testing.T) {
	cfg, err := load([]string{
		"--db-path", "/tmp/site.db",
		"--base-url", "https://blog.example.com",
		"--state-backend", "redis",
		"--redis-db", "3",
		"--stale-lookback", "12",
		"--generation-schedule", "*/2 * * * *",
		"--debug",
	})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.DBPath != "/tmp/site.db" {
		t.Errorf("Expected db path '/tmp/site.db', got '%s'", cfg.DBPath)
	}
	if cfg.BaseUrl != "https://blog.example.com" {
		t.Errorf("Expected base URL override, got '%s'", cfg.BaseUrl)
	}
	if cfg.StateBackend != "redis" || cfg.RedisDB != 3 {
		t.Errorf("Expected redis backend on db 3, got %s/%d", cfg.StateBackend, cfg.RedisDB)
	}
	if cfg.StaleLookback != 12*time.Hour {
		t.Errorf("Expected 12h stale lookback, got %v", cfg.StaleLookback)
	}
	if cfg.GenerationSchedule != "*/2 * * * *" {
		t.Errorf("Expected cron generation schedule, got '%s'", cfg.GenerationSchedule)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	if _, err := load([]string{"--state-backend", "memcached"}); err == nil {
		t.Error("Expected error for unknown state backend")
	}
	if _, err := load([]string{"--stale-lookback", "0"}); err == nil {
		t.Error("Expected error for zero stale lookback")
	}
}
