package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/cityfs/pkg/adapter/fuse"
	"github.com/marmos91/cityfs/pkg/adapter/webdav"
	"github.com/spf13/viper"
)

// Config represents the complete cityfs configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority, applied as overrides)
//  2. Environment variables (CITYFS_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
//
// Collaborator Configuration Pattern:
// The dataset source, alias table and weather provider are selected by a
// Type field. Each type has its own options map, decoded by the matching
// factory; only the section matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains process-wide settings
	Server ServerConfig `mapstructure:"server"`

	// Dataset selects where the city CSV is read from
	Dataset DatasetConfig `mapstructure:"dataset"`

	// Aliases selects the country code to directory name table
	Aliases AliasesConfig `mapstructure:"aliases"`

	// Weather configures the open-time weather lookup
	Weather WeatherConfig `mapstructure:"weather"`

	// Filesystem controls the shape of the virtual namespace
	Filesystem FilesystemConfig `mapstructure:"filesystem"`

	// Metrics controls Prometheus metrics collection
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Adapters contains presentation adapter configurations
	Adapters AdaptersConfig `mapstructure:"adapters"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains process-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for adapters to stop
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// DatasetConfig specifies the dataset source.
type DatasetConfig struct {
	// Type specifies where the dataset is read from
	// Valid values: filesystem, s3, http
	Type string `mapstructure:"type" validate:"required,oneof=filesystem s3 http"`

	// Filesystem options: path
	Filesystem map[string]any `mapstructure:"filesystem"`

	// S3 options: region, bucket, key, endpoint, access_key_id,
	// secret_access_key, max_retries
	S3 map[string]any `mapstructure:"s3"`

	// HTTP options: url, timeout
	HTTP map[string]any `mapstructure:"http"`
}

// AliasesConfig specifies the country alias table.
type AliasesConfig struct {
	// Type selects the table
	// Valid values: builtin (ISO 3166 names), geonames (countryInfo.txt), none (raw codes)
	Type string `mapstructure:"type" validate:"required,oneof=builtin geonames none"`

	// Geonames options: path
	Geonames map[string]any `mapstructure:"geonames"`
}

// WeatherConfig configures weather enrichment.
type WeatherConfig struct {
	// Enabled turns weather lookups on. When false, opened files hold the
	// same placeholder content their size is computed from.
	Enabled bool `mapstructure:"enabled"`

	// Provider selects the weather service
	// Valid values: openweathermap
	Provider string `mapstructure:"provider" validate:"required,oneof=openweathermap"`

	// OpenWeatherMap options: base_url, api_key, timeout
	OpenWeatherMap map[string]any `mapstructure:"openweathermap"`

	// RequestsPerSecond throttles outbound lookups. 0 disables throttling.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`

	// Burst is the number of lookups allowed at once above the sustained rate
	Burst int `mapstructure:"burst" validate:"gte=0"`
}

// FilesystemConfig controls the virtual namespace.
type FilesystemConfig struct {
	// FileExtension is appended to city names in listings, e.g. ".txt"
	FileExtension string `mapstructure:"file_extension" validate:"required,startswith=.,excludes=/"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	// Enabled starts the metrics HTTP server
	Enabled bool `mapstructure:"enabled"`

	// Port is the metrics HTTP port
	Port int `mapstructure:"port" validate:"gte=0,lte=65535"`
}

// AdaptersConfig contains all presentation adapter configurations.
type AdaptersConfig struct {
	// FUSE mounts the filesystem through the kernel.
	FUSE fuse.Config `mapstructure:"fuse"`

	// WebDAV serves the filesystem over HTTP.
	// Both use the adapter's Config type directly to avoid duplication.
	WebDAV webdav.Config `mapstructure:"webdav"`
}

// Override mutates a loaded configuration before defaults and validation,
// typically to apply command line flags.
type Override func(*Config)

// Load loads configuration from file, environment, overrides and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//   - overrides: Applied in order after the file and environment
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string, overrides ...Override) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, override := range overrides {
		override(&cfg)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use CITYFS_ prefix and underscores
	// Example: CITYFS_WEATHER_OPENWEATHERMAP_API_KEY=...
	v.SetEnvPrefix("CITYFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Booleans whose zero value is not the default, and keys that must be
	// known to viper for environment overrides to reach them.
	v.SetDefault("weather.enabled", true)
	v.SetDefault("adapters.fuse.enabled", true)
	v.SetDefault("weather.openweathermap.api_key", "")
	v.SetDefault("weather.openweathermap.base_url", "")
	v.SetDefault("weather.openweathermap.timeout", "")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/cityfs/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		// An explicit path that does not exist is not an error either;
		// defaults and flags can fully describe a run.
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "cityfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "cityfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
