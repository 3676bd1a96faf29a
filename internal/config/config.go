// Package config loads famine-sim configuration from a YAML file, FAMINE_*
// environment variables and a .env file, with defaults for everything.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the main configuration struct combining all sub-configs.
type Config struct {
	Simulation SimulationConfig `mapstructure:"simulation"`
	Data       DataConfig       `mapstructure:"data"`
	Tuning     Tuning           `mapstructure:"tuning"`
	Storage    StorageConfig    `mapstructure:"storage"`
	API        APIConfig        `mapstructure:"api"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// SimulationConfig holds the game-level parameters.
type SimulationConfig struct {
	StartYear int   `mapstructure:"start_year" validate:"gte=1900,lte=2200"`
	Seed      int64 `mapstructure:"seed"` // 0 draws a random seed

	// ScaleFactor maps reference-year data onto the start year.
	ScaleFactor float64 `mapstructure:"scale_factor" validate:"gt=0,lte=10"`

	Workers         int     `mapstructure:"workers" validate:"gte=1,lte=64"`
	FamineThreshold float64 `mapstructure:"famine_threshold" validate:"gt=0,lte=1"`

	// YearInterval is the pause between years when auto-advancing.
	YearInterval time.Duration `mapstructure:"year_interval" validate:"gte=0"`
	Years        int           `mapstructure:"years" validate:"gte=0"` // 0 runs until stopped
}

// DataConfig selects the world data provider.
type DataConfig struct {
	// Dataset is a YAML dataset path; empty uses the built-in synthetic data.
	Dataset string `mapstructure:"dataset"`
}

// StorageConfig holds the run history store and year archive locations.
type StorageConfig struct {
	DBPath     string `mapstructure:"db_path"`     // Empty disables the history store
	ArchiveDir string `mapstructure:"archive_dir"` // Empty disables the year archive
}

// APIConfig holds the diagnostics HTTP server settings.
type APIConfig struct {
	Port      int     `mapstructure:"port" validate:"gte=1,lte=65535"`
	RateLimit float64 `mapstructure:"rate_limit" validate:"gt=0"` // Requests per second per client
	Burst     int     `mapstructure:"burst" validate:"gte=1"`
}

// LoadConfig loads configuration with priority: environment variables, then the
// config file, then defaults.
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("famine")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix("FAMINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	SetDefaults(&cfg)

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	cfg := &Config{}
	SetDefaults(cfg)
	return cfg
}

// bindEnvKeys registers the keys that may come only from the environment;
// AutomaticEnv alone does not surface them to Unmarshal.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"simulation.start_year", "simulation.seed", "simulation.scale_factor", "simulation.workers",
		"simulation.famine_threshold", "simulation.year_interval", "simulation.years",
		"data.dataset",
		"storage.db_path", "storage.archive_dir",
		"api.port", "api.rate_limit", "api.burst",
		"logging.level", "logging.format",
	} {
		_ = v.BindEnv(key)
	}
}
