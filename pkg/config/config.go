// Package config provides configuration loading and validation for viewflux tools.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidHibernation = errors.New("hibernation threshold must not be negative")
	ErrInvalidLogLevel    = errors.New("unknown log level")
	ErrInvalidLogFormat   = errors.New("unknown log format")
)

// Default configuration values.
const (
	defaultHibernationThreshold = 1000
)

// Config holds all configuration for viewflux tools.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Replay  ReplayConfig  `mapstructure:"replay"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// EngineConfig holds collection engine configuration.
type EngineConfig struct {
	// HibernationThreshold is the minimum arena node count before a dormant
	// filter index is compressed. Zero compresses unconditionally.
	HibernationThreshold int `mapstructure:"hibernation_threshold"`

	// BufferDerived inserts a buffering stage after every derived view in
	// replayed pipelines.
	BufferDerived bool `mapstructure:"buffer_derived"`
}

// ReplayConfig holds scenario replay configuration.
type ReplayConfig struct {
	// ScenarioDir is searched for scenario files given by bare name.
	ScenarioDir string `mapstructure:"scenario_dir"`

	// ShowTables renders snapshots as tables instead of plain rows.
	ShowTables bool `mapstructure:"show_tables"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds metric pipeline configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	// Set defaults.
	setDefaults(viperCfg)

	// Read config file.
	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("config")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/viewflux")
	}

	// Read environment variables.
	viperCfg.SetEnvPrefix("VIEWFLUX")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file.
	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	// Engine defaults.
	viperCfg.SetDefault("engine.hibernation_threshold", defaultHibernationThreshold)
	viperCfg.SetDefault("engine.buffer_derived", false)

	// Replay defaults.
	viperCfg.SetDefault("replay.scenario_dir", ".")
	viperCfg.SetDefault("replay.show_tables", true)

	// Logging defaults.
	viperCfg.SetDefault("logging.level", "info")
	viperCfg.SetDefault("logging.format", "text")

	// Metrics defaults.
	viperCfg.SetDefault("metrics.enabled", false)
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	if config.Engine.HibernationThreshold < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidHibernation, config.Engine.HibernationThreshold)
	}

	switch config.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, config.Logging.Level)
	}

	switch config.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	return nil
}
