package config

import "testing"

func TestGetEnv(t *testing.T) {
	t.Setenv("CFG_VALUE", "custom")
	if got := getEnv("CFG_VALUE", "default"); got != "custom" {
		t.Fatalf("getEnv returned %q, want custom", got)
	}

	// Empty environment value should fall back to default
	t.Setenv("CFG_EMPTY", "")
	if got := getEnv("CFG_EMPTY", "fallback"); got != "fallback" {
		t.Fatalf("getEnv returned %q, want fallback", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("CFG_INT", "45")
	if got := getEnvInt("CFG_INT", 32); got != 45 {
		t.Fatalf("getEnvInt returned %d, want 45", got)
	}

	t.Setenv("CFG_INT", "not-a-number")
	if got := getEnvInt("CFG_INT", 32); got != 32 {
		t.Fatalf("getEnvInt returned %d, want fallback 32", got)
	}
}

func TestGetEnvFloat(t *testing.T) {
	t.Setenv("CFG_FLOAT", "181.5")
	if got := getEnvFloat("CFG_FLOAT", 172); got != 181.5 {
		t.Fatalf("getEnvFloat returned %v, want 181.5", got)
	}

	t.Setenv("CFG_FLOAT", "tall")
	if got := getEnvFloat("CFG_FLOAT", 172); got != 172 {
		t.Fatalf("getEnvFloat returned %v, want fallback 172", got)
	}
}

func TestLoad(t *testing.T) {
	// Ensure defaults when env vars are empty.
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_PATH", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("FIDELITY_MODE", "")
	t.Setenv("DRY_RUN", "")
	t.Setenv("PROFILE_AGE", "")
	t.Setenv("HEALTH_STORE_URL", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_WEEKLY_SUMMARY_MODEL", "")

	cfg := Load()
	if cfg.Port != "8080" || cfg.DatabasePath != "vitalsim.db" || cfg.LogLevel != "info" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Mode != "DETAILED" || cfg.DryRun {
		t.Fatalf("mode defaults not applied: %+v", cfg)
	}
	if cfg.ProfileAge != 32 || cfg.ProfileHeightCM != 172 || cfg.ProfileWeightKG != 70 {
		t.Fatalf("profile defaults not applied: %+v", cfg)
	}

	// Custom values override defaults
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_PATH", "/tmp/sim.db")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("FIDELITY_MODE", "PLAIN")
	t.Setenv("DRY_RUN", "true")
	t.Setenv("PROFILE_AGE", "28")
	t.Setenv("HEALTH_STORE_URL", "http://gateway.example")
	t.Setenv("OPENAI_API_KEY", "key")
	t.Setenv("OPENAI_WEEKLY_SUMMARY_MODEL", "model")

	cfg = Load()
	if cfg.Port != "9090" || cfg.DatabasePath != "/tmp/sim.db" || cfg.LogLevel != "debug" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.Mode != "PLAIN" || !cfg.DryRun || cfg.ProfileAge != 28 {
		t.Fatalf("mode overrides not applied: %+v", cfg)
	}
	if cfg.HealthStoreURL != "http://gateway.example" {
		t.Fatalf("gateway override missing: %+v", cfg)
	}
	if cfg.OpenAIAPIKey != "key" || cfg.OpenAIWeeklySummaryModel != "model" {
		t.Fatalf("openai env overrides missing: %+v", cfg)
	}
}
