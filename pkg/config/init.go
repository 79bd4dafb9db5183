package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sample values written by InitConfig for settings that have no default.
const (
	sampleDatasetPath = "cities.csv"
	sampleMountPoint  = "/mnt/cityfs"
)

// InitConfig writes a sample configuration file to the default location.
//
// Returns the path of the written file. Fails if the file already exists
// unless force is set.
func InitConfig(force bool) (string, error) {
	configPath := GetDefaultConfigPath()
	if err := InitConfigToPath(configPath, force); err != nil {
		return "", err
	}
	return configPath, nil
}

// InitConfigToPath writes a sample configuration file to configPath,
// creating parent directories as needed.
func InitConfigToPath(configPath string, force bool) error {
	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
		}
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := generateYAMLWithComments(sampleConfig())
	if err != nil {
		return fmt.Errorf("failed to generate config: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// sampleConfig is the default configuration plus placeholder values for the
// settings normally given on the command line, so the written file loads and
// validates as-is.
func sampleConfig() *Config {
	cfg := GetDefaultConfig()
	cfg.Dataset.Filesystem["path"] = sampleDatasetPath
	cfg.Adapters.FUSE.MountPoint = sampleMountPoint
	return cfg
}

// yamlSection is one top-level key of the generated file.
type yamlSection struct {
	key     string
	comment string
	value   map[string]any
}

// generateYAMLWithComments renders cfg as YAML with a comment block above
// each top-level section.
//
// Durations are written in their string form ("30s") so the file reads
// naturally and round-trips through Load.
func generateYAMLWithComments(cfg *Config) (string, error) {
	sections := []yamlSection{
		{
			key:     "logging",
			comment: "Logging: level (DEBUG, INFO, WARN, ERROR), format (text, json), output (stdout, stderr, or a file path)",
			value: map[string]any{
				"level":  cfg.Logging.Level,
				"format": cfg.Logging.Format,
				"output": cfg.Logging.Output,
			},
		},
		{
			key:     "server",
			comment: "Server: how long adapters get to stop on shutdown",
			value: map[string]any{
				"shutdown_timeout": cfg.Server.ShutdownTimeout.String(),
			},
		},
		{
			key: "dataset",
			comment: "Dataset: where the city CSV (code,name,lat,lng,...) is read from.\n" +
				"type is filesystem, s3 or http; only the matching section is used.\n" +
				"Files ending in .gz, .zst or .lz4 are decompressed transparently.",
			value: map[string]any{
				"type":       cfg.Dataset.Type,
				"filesystem": cfg.Dataset.Filesystem,
				"s3":         cfg.Dataset.S3,
				"http":       cfg.Dataset.HTTP,
			},
		},
		{
			key:     "aliases",
			comment: "Aliases: country directory names. builtin (ISO 3166), geonames (countryInfo.txt), none (raw codes)",
			value: map[string]any{
				"type":     cfg.Aliases.Type,
				"geonames": cfg.Aliases.Geonames,
			},
		},
		{
			key: "weather",
			comment: "Weather: looked up when a city file is opened.\n" +
				"The API key can also be set with CITYFS_WEATHER_OPENWEATHERMAP_API_KEY.\n" +
				"requests_per_second 0 disables throttling.",
			value: map[string]any{
				"enabled":             cfg.Weather.Enabled,
				"provider":            cfg.Weather.Provider,
				"openweathermap":      cfg.Weather.OpenWeatherMap,
				"requests_per_second": cfg.Weather.RequestsPerSecond,
				"burst":               cfg.Weather.Burst,
			},
		},
		{
			key:     "filesystem",
			comment: "Filesystem: suffix appended to city file names",
			value: map[string]any{
				"file_extension": cfg.Filesystem.FileExtension,
			},
		},
		{
			key:     "metrics",
			comment: "Metrics: Prometheus endpoint at :port/metrics",
			value: map[string]any{
				"enabled": cfg.Metrics.Enabled,
				"port":    cfg.Metrics.Port,
			},
		},
		{
			key: "adapters",
			comment: "Adapters: how the filesystem is presented.\n" +
				"The mount point is normally given on the command line.",
			value: map[string]any{
				"fuse": map[string]any{
					"enabled":       cfg.Adapters.FUSE.Enabled,
					"mount_point":   cfg.Adapters.FUSE.MountPoint,
					"allow_other":   cfg.Adapters.FUSE.AllowOther,
					"debug":         cfg.Adapters.FUSE.Debug,
					"entry_timeout": cfg.Adapters.FUSE.EntryTimeout.String(),
					"attr_timeout":  cfg.Adapters.FUSE.AttrTimeout.String(),
				},
				"webdav": map[string]any{
					"enabled": cfg.Adapters.WebDAV.Enabled,
					"port":    cfg.Adapters.WebDAV.Port,
					"prefix":  cfg.Adapters.WebDAV.Prefix,
				},
			},
		},
	}

	var b strings.Builder
	b.WriteString("# cityfs Configuration File\n")
	b.WriteString("#\n")
	b.WriteString("# Values here are overridden by CITYFS_* environment variables and command line flags.\n")

	for _, s := range sections {
		out, err := yaml.Marshal(map[string]any{s.key: s.value})
		if err != nil {
			return "", fmt.Errorf("failed to marshal %s section: %w", s.key, err)
		}

		b.WriteString("\n")
		for _, line := range strings.Split(s.comment, "\n") {
			b.WriteString("# ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.Write(out)
	}

	return b.String(), nil
}
