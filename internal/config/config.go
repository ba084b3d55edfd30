// Package config handles configuration loading for pulse.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Scoring    ScoringConfig    `mapstructure:"scoring"    yaml:"scoring" json:"scoring"`
	Simulation SimulationConfig `mapstructure:"simulation" yaml:"simulation" json:"simulation"`
	Risk       RiskConfig       `mapstructure:"risk"       yaml:"risk" json:"risk"`
	Data       DataConfig       `mapstructure:"data"       yaml:"data" json:"data"`
	API        APIConfig        `mapstructure:"api"        yaml:"api" json:"api"`
}

// ScoringConfig holds pressure-score fusion settings.
type ScoringConfig struct {
	Profile            string  `mapstructure:"profile"             yaml:"profile" json:"profile"` // "hybrid" or "classic"
	TrendWeight        float64 `mapstructure:"trend_weight"        yaml:"trend_weight" json:"trend_weight"`
	VolatilityWeight   float64 `mapstructure:"volatility_weight"   yaml:"volatility_weight" json:"volatility_weight"`
	RetailWeight       float64 `mapstructure:"retail_weight"       yaml:"retail_weight" json:"retail_weight"`
	SentimentWeight    float64 `mapstructure:"sentiment_weight"    yaml:"sentiment_weight" json:"sentiment_weight"` // classic profile
	AttentionWeight    float64 `mapstructure:"attention_weight"    yaml:"attention_weight" json:"attention_weight"` // classic profile
	RetailSentiment    float64 `mapstructure:"retail_sentiment"    yaml:"retail_sentiment" json:"retail_sentiment"`
	RetailAnomaly      float64 `mapstructure:"retail_anomaly"      yaml:"retail_anomaly" json:"retail_anomaly"`
	RetailAcceleration float64 `mapstructure:"retail_acceleration" yaml:"retail_acceleration" json:"retail_acceleration"`
	ZWindow            int     `mapstructure:"z_window"            yaml:"z_window" json:"z_window"`
	MarketTicker       string  `mapstructure:"market_ticker"       yaml:"market_ticker" json:"market_ticker"`
	Concurrency        int     `mapstructure:"concurrency"         yaml:"concurrency" json:"concurrency"`
}

// SimulationConfig holds strategy simulation settings.
type SimulationConfig struct {
	FastPeriod       int     `mapstructure:"fast_period"       yaml:"fast_period" json:"fast_period"`
	SlowPeriod       int     `mapstructure:"slow_period"       yaml:"slow_period" json:"slow_period"`
	ConfirmBars      int     `mapstructure:"confirm_bars"      yaml:"confirm_bars" json:"confirm_bars"`
	ReentryThreshold float64 `mapstructure:"reentry_threshold" yaml:"reentry_threshold" json:"reentry_threshold"`
	ReentryWindow    int     `mapstructure:"reentry_window"    yaml:"reentry_window" json:"reentry_window"`
}

// RiskConfig holds risk assessment settings.
type RiskConfig struct {
	Confidence float64 `mapstructure:"confidence"  yaml:"confidence" json:"confidence"`
	MinSamples int     `mapstructure:"min_samples" yaml:"min_samples" json:"min_samples"`
}

// DataConfig holds data source settings.
type DataConfig struct {
	Dir         string `mapstructure:"dir"          yaml:"dir" json:"dir"` // CSV series directory
	NewsEnabled bool   `mapstructure:"news_enabled" yaml:"news_enabled" json:"news_enabled"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host" json:"host"`
	Port        int      `mapstructure:"port"         yaml:"port" json:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins" json:"cors_origins"`
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.pulse/config.yaml (home directory)
//  3. /etc/pulse/config.yaml (system)
//
// Environment variables override config file values.
// Format: PULSE_<SECTION>_<KEY>, e.g., PULSE_API_PORT.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".pulse"))
	v.AddConfigPath("/etc/pulse")

	v.SetEnvPrefix("PULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file not existing is fine, defaults + env vars apply.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("PULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that defaults alone cannot
// guarantee once a file or the environment has overridden them.
func (c *Config) Validate() error {
	switch c.Scoring.Profile {
	case "hybrid", "classic":
	default:
		return fmt.Errorf("scoring.profile must be hybrid or classic, got %q", c.Scoring.Profile)
	}
	if c.Simulation.FastPeriod >= c.Simulation.SlowPeriod {
		return fmt.Errorf("simulation.fast_period (%d) must be below slow_period (%d)",
			c.Simulation.FastPeriod, c.Simulation.SlowPeriod)
	}
	if c.Risk.Confidence <= 0 || c.Risk.Confidence >= 1 {
		return fmt.Errorf("risk.confidence must be in (0, 1), got %g", c.Risk.Confidence)
	}
	return nil
}

// setDefaults sets the documented defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Scoring defaults (hybrid-retail profile)
	v.SetDefault("scoring.profile", "hybrid")
	v.SetDefault("scoring.trend_weight", 0.30)
	v.SetDefault("scoring.volatility_weight", 0.20)
	v.SetDefault("scoring.retail_weight", 0.50)
	v.SetDefault("scoring.sentiment_weight", 0.25)
	v.SetDefault("scoring.attention_weight", 0.25)
	v.SetDefault("scoring.retail_sentiment", 0.50)
	v.SetDefault("scoring.retail_anomaly", 0.30)
	v.SetDefault("scoring.retail_acceleration", 0.20)
	v.SetDefault("scoring.z_window", 20)
	v.SetDefault("scoring.market_ticker", "SPY")
	v.SetDefault("scoring.concurrency", 4)

	// Simulation defaults
	v.SetDefault("simulation.fast_period", 50)
	v.SetDefault("simulation.slow_period", 200)
	v.SetDefault("simulation.confirm_bars", 5)
	v.SetDefault("simulation.reentry_threshold", 0.02)
	v.SetDefault("simulation.reentry_window", 20)

	// Risk defaults
	v.SetDefault("risk.confidence", 0.95)
	v.SetDefault("risk.min_samples", 30)

	// Data defaults
	v.SetDefault("data.dir", "./data")
	v.SetDefault("data.news_enabled", true)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
