package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"API_ADDR", "BINDER_MAX_LEVEL", "REDIS_URL", "MEILI_URL", "S3_ENDPOINT", "S3_USE_SSL", "BINDER_DRAFT_TTL_SECONDS", "BINDER_DB_MAX_OPEN_CONNS", "BINDER_DB_MAX_IDLE_CONNS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Addr != ":8787" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.MaxLevel != 8 {
		t.Errorf("MaxLevel = %d", cfg.MaxLevel)
	}
	if cfg.DBMaxOpenConns != 20 || cfg.DBMaxIdleConns != 10 {
		t.Errorf("pool = %d/%d", cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	}
	if cfg.DraftTTL != 24*time.Hour {
		t.Errorf("DraftTTL = %s", cfg.DraftTTL)
	}
	if cfg.RedisURL != "" || cfg.MeiliURL != "" || cfg.S3Endpoint != "" {
		t.Errorf("optional integrations should default to disabled: %+v", cfg)
	}
	if cfg.S3Bucket != "binder-content" || cfg.S3UseSSL {
		t.Errorf("unexpected S3 defaults: %q %v", cfg.S3Bucket, cfg.S3UseSSL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_ADDR", ":9000")
	t.Setenv("BINDER_MAX_LEVEL", "4")
	t.Setenv("BINDER_DRAFT_TTL_SECONDS", "60")
	t.Setenv("S3_USE_SSL", "true")

	cfg := Load()
	if cfg.Addr != ":9000" || cfg.MaxLevel != 4 || cfg.DraftTTL != time.Minute || !cfg.S3UseSSL {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("BINDER_MAX_LEVEL", "deep")
	t.Setenv("S3_USE_SSL", "maybe")

	cfg := Load()
	if cfg.MaxLevel != 8 || cfg.S3UseSSL {
		t.Fatalf("malformed values should fall back: %+v", cfg)
	}
}
