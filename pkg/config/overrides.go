package config

import (
	"net/url"
	"strings"
)

// WithDataset points the dataset at a command line argument.
//
// s3://bucket/key selects the s3 source, http:// and https:// URLs the http
// source, and anything else is a local path. Options already present in the
// file for the selected type (region, endpoint, credentials) are kept.
func WithDataset(arg string) Override {
	return func(cfg *Config) {
		if arg == "" {
			return
		}

		u, err := url.Parse(arg)
		scheme := ""
		if err == nil {
			scheme = strings.ToLower(u.Scheme)
		}

		switch scheme {
		case "s3":
			cfg.Dataset.Type = "s3"
			cfg.Dataset.S3 = withOption(cfg.Dataset.S3, "bucket", u.Host)
			cfg.Dataset.S3 = withOption(cfg.Dataset.S3, "key", strings.TrimPrefix(u.Path, "/"))
		case "http", "https":
			cfg.Dataset.Type = "http"
			cfg.Dataset.HTTP = withOption(cfg.Dataset.HTTP, "url", arg)
		default:
			cfg.Dataset.Type = "filesystem"
			cfg.Dataset.Filesystem = withOption(cfg.Dataset.Filesystem, "path", arg)
		}
	}
}

// WithMountPoint enables the FUSE adapter at mountPoint.
func WithMountPoint(mountPoint string) Override {
	return func(cfg *Config) {
		if mountPoint == "" {
			return
		}
		cfg.Adapters.FUSE.Enabled = true
		cfg.Adapters.FUSE.MountPoint = mountPoint
	}
}

// WithLogLevel overrides the log level.
func WithLogLevel(level string) Override {
	return func(cfg *Config) {
		if level != "" {
			cfg.Logging.Level = level
		}
	}
}

// WithWeather turns weather lookups on or off.
func WithWeather(enabled bool) Override {
	return func(cfg *Config) {
		cfg.Weather.Enabled = enabled
	}
}

// WithMetricsPort enables metrics on port.
func WithMetricsPort(port int) Override {
	return func(cfg *Config) {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Port = port
	}
}

func withOption(m map[string]any, key string, value any) map[string]any {
	if m == nil {
		m = make(map[string]any)
	}
	m[key] = value
	return m
}
