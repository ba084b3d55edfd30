package config

import (
	"os"
	"path/filepath"
	"testing"
)

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	os.Unsetenv("PULSE_SCORING_PROFILE")
	os.Unsetenv("PULSE_API_PORT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Scoring defaults
	if cfg.Scoring.Profile != "hybrid" {
		t.Errorf("Scoring.Profile: got %q, want %q", cfg.Scoring.Profile, "hybrid")
	}
	if cfg.Scoring.TrendWeight != 0.30 {
		t.Errorf("Scoring.TrendWeight: got %f, want 0.30", cfg.Scoring.TrendWeight)
	}
	if cfg.Scoring.VolatilityWeight != 0.20 {
		t.Errorf("Scoring.VolatilityWeight: got %f, want 0.20", cfg.Scoring.VolatilityWeight)
	}
	if cfg.Scoring.RetailWeight != 0.50 {
		t.Errorf("Scoring.RetailWeight: got %f, want 0.50", cfg.Scoring.RetailWeight)
	}
	if cfg.Scoring.RetailSentiment != 0.50 || cfg.Scoring.RetailAnomaly != 0.30 || cfg.Scoring.RetailAcceleration != 0.20 {
		t.Error("retail sub-weight defaults wrong")
	}
	if cfg.Scoring.ZWindow != 20 {
		t.Errorf("Scoring.ZWindow: got %d, want 20", cfg.Scoring.ZWindow)
	}
	if cfg.Scoring.MarketTicker != "SPY" {
		t.Errorf("Scoring.MarketTicker: got %q, want %q", cfg.Scoring.MarketTicker, "SPY")
	}
	if cfg.Scoring.Concurrency != 4 {
		t.Errorf("Scoring.Concurrency: got %d, want 4", cfg.Scoring.Concurrency)
	}

	// Simulation defaults
	if cfg.Simulation.FastPeriod != 50 || cfg.Simulation.SlowPeriod != 200 {
		t.Errorf("SMA period defaults wrong: %d/%d", cfg.Simulation.FastPeriod, cfg.Simulation.SlowPeriod)
	}
	if cfg.Simulation.ConfirmBars != 5 {
		t.Errorf("Simulation.ConfirmBars: got %d, want 5", cfg.Simulation.ConfirmBars)
	}
	if cfg.Simulation.ReentryThreshold != 0.02 {
		t.Errorf("Simulation.ReentryThreshold: got %f, want 0.02", cfg.Simulation.ReentryThreshold)
	}
	if cfg.Simulation.ReentryWindow != 20 {
		t.Errorf("Simulation.ReentryWindow: got %d, want 20", cfg.Simulation.ReentryWindow)
	}

	// Risk defaults
	if cfg.Risk.Confidence != 0.95 {
		t.Errorf("Risk.Confidence: got %f, want 0.95", cfg.Risk.Confidence)
	}
	if cfg.Risk.MinSamples != 30 {
		t.Errorf("Risk.MinSamples: got %d, want 30", cfg.Risk.MinSamples)
	}

	// Data defaults
	if cfg.Data.Dir != "./data" {
		t.Errorf("Data.Dir: got %q, want %q", cfg.Data.Dir, "./data")
	}
	if !cfg.Data.NewsEnabled {
		t.Error("Data.NewsEnabled should default to true")
	}

	// API defaults
	if cfg.API.Host != "0.0.0.0" {
		t.Errorf("API.Host: got %q, want %q", cfg.API.Host, "0.0.0.0")
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port: got %d, want 8080", cfg.API.Port)
	}
	if len(cfg.API.CORSOrigins) == 0 {
		t.Error("API.CORSOrigins should have a default")
	}
}

// ── LoadFromFile ──

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "test_config.yaml")
	content := []byte(`
scoring:
  profile: "classic"
  z_window: 30
  market_ticker: "QQQ"
simulation:
  confirm_bars: 3
  reentry_threshold: 0.03
risk:
  confidence: 0.99
data:
  dir: "/var/lib/pulse/data"
api:
  port: 9090
`)
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.Scoring.Profile != "classic" {
		t.Errorf("Scoring.Profile: got %q, want %q", cfg.Scoring.Profile, "classic")
	}
	if cfg.Scoring.ZWindow != 30 {
		t.Errorf("Scoring.ZWindow: got %d, want 30", cfg.Scoring.ZWindow)
	}
	if cfg.Scoring.MarketTicker != "QQQ" {
		t.Errorf("Scoring.MarketTicker: got %q, want %q", cfg.Scoring.MarketTicker, "QQQ")
	}
	if cfg.Simulation.ConfirmBars != 3 {
		t.Errorf("Simulation.ConfirmBars: got %d, want 3", cfg.Simulation.ConfirmBars)
	}
	if cfg.Simulation.ReentryThreshold != 0.03 {
		t.Errorf("Simulation.ReentryThreshold: got %f, want 0.03", cfg.Simulation.ReentryThreshold)
	}
	if cfg.Risk.Confidence != 0.99 {
		t.Errorf("Risk.Confidence: got %f, want 0.99", cfg.Risk.Confidence)
	}
	if cfg.Data.Dir != "/var/lib/pulse/data" {
		t.Errorf("Data.Dir: got %q", cfg.Data.Dir)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port: got %d, want 9090", cfg.API.Port)
	}
	// Untouched sections keep their defaults.
	if cfg.Simulation.SlowPeriod != 200 {
		t.Errorf("Simulation.SlowPeriod should keep default 200, got %d", cfg.Simulation.SlowPeriod)
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("LoadFromFile() with nonexistent path should return error")
	}
}

// ── Validate ──

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		return &Config{
			Scoring:    ScoringConfig{Profile: "hybrid"},
			Simulation: SimulationConfig{FastPeriod: 50, SlowPeriod: 200},
			Risk:       RiskConfig{Confidence: 0.95},
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg := base()
	cfg.Scoring.Profile = "blended"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown profile must be rejected")
	}

	cfg = base()
	cfg.Simulation.FastPeriod = 200
	if err := cfg.Validate(); err == nil {
		t.Error("fast period >= slow period must be rejected")
	}

	cfg = base()
	cfg.Risk.Confidence = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("confidence outside (0, 1) must be rejected")
	}
}

func TestLoadFromFileRejectsInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "bad.yaml")
	if err := os.WriteFile(cfgPath, []byte("scoring:\n  profile: \"blended\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(cfgPath); err == nil {
		t.Error("invalid profile in file must fail Load")
	}
}

// ── homeDir ──

func TestHomeDirReturnsNonEmpty(t *testing.T) {
	if homeDir() == "" {
		t.Error("homeDir() should not return empty string")
	}
}
