package config

import (
	"strings"
	"time"

	"github.com/marmos91/cityfs/pkg/adapter/fuse"
	"github.com/marmos91/cityfs/pkg/adapter/webdav"
	"github.com/marmos91/cityfs/pkg/weather"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file, environment
// variables and overrides to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "") are replaced with defaults
//   - Explicit values are preserved
//   - Booleans defaulting to true are seeded through viper in setupViper
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyDatasetDefaults(&cfg.Dataset)
	applyAliasesDefaults(&cfg.Aliases)
	applyWeatherDefaults(&cfg.Weather)
	applyFilesystemDefaults(&cfg.Filesystem)
	applyMetricsDefaults(&cfg.Metrics)
	applyFUSEDefaults(&cfg.Adapters.FUSE)
	applyWebDAVDefaults(&cfg.Adapters.WebDAV)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyServerDefaults sets server defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyDatasetDefaults sets dataset source defaults.
func applyDatasetDefaults(cfg *DatasetConfig) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}

	// Initialize maps if nil
	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}
	if cfg.HTTP == nil {
		cfg.HTTP = make(map[string]any)
	}

	if _, ok := cfg.S3["region"]; !ok {
		cfg.S3["region"] = "us-east-1"
	}
	if _, ok := cfg.HTTP["timeout"]; !ok {
		cfg.HTTP["timeout"] = "1m"
	}
}

// applyAliasesDefaults sets alias table defaults.
func applyAliasesDefaults(cfg *AliasesConfig) {
	if cfg.Type == "" {
		cfg.Type = "builtin"
	}
	if cfg.Geonames == nil {
		cfg.Geonames = make(map[string]any)
	}
}

// applyWeatherDefaults sets weather provider defaults.
//
// Empty strings left in the provider map by viper (seeded so environment
// variables can reach them) are treated as unset.
func applyWeatherDefaults(cfg *WeatherConfig) {
	if cfg.Provider == "" {
		cfg.Provider = "openweathermap"
	}
	if cfg.OpenWeatherMap == nil {
		cfg.OpenWeatherMap = make(map[string]any)
	}

	if isUnset(cfg.OpenWeatherMap, "base_url") {
		cfg.OpenWeatherMap["base_url"] = weather.DefaultBaseURL
	}
	if isUnset(cfg.OpenWeatherMap, "timeout") {
		cfg.OpenWeatherMap["timeout"] = weather.DefaultTimeout.String()
	}

	// RequestsPerSecond 0 means unthrottled
	if cfg.Burst == 0 {
		cfg.Burst = 1
	}
}

func isUnset(m map[string]any, key string) bool {
	v, ok := m[key]
	if !ok || v == nil {
		return true
	}
	s, isString := v.(string)
	return isString && s == ""
}

// applyFilesystemDefaults sets namespace defaults.
func applyFilesystemDefaults(cfg *FilesystemConfig) {
	if cfg.FileExtension == "" {
		cfg.FileExtension = ".txt"
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyFUSEDefaults sets FUSE adapter defaults.
func applyFUSEDefaults(cfg *fuse.Config) {
	// Enabled defaults to true (seeded in setupViper).
	// MountPoint has no default; it comes from the command line.
	if cfg.EntryTimeout == 0 {
		cfg.EntryTimeout = time.Second
	}
	if cfg.AttrTimeout == 0 {
		cfg.AttrTimeout = time.Second
	}
}

// applyWebDAVDefaults sets WebDAV adapter defaults.
func applyWebDAVDefaults(cfg *webdav.Config) {
	// Enabled defaults to false
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Weather: WeatherConfig{
			Enabled: true,
		},
		Adapters: AdaptersConfig{
			FUSE: fuse.Config{
				Enabled: true, // FUSE adapter enabled by default
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
