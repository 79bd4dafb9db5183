package config

import (
	"strings"
	"testing"
)

// validConfig returns the default configuration with the settings that have
// no default filled in.
func validConfig() *Config {
	return sampleConfig()
}

func TestValidate_ValidConfig(t *testing.T) {
	err := Validate(validConfig())
	if err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_DefaultConfigNeedsCommandLine(t *testing.T) {
	err := Validate(GetDefaultConfig())
	if err == nil {
		t.Fatal("Expected default config without mount point to fail validation")
	}
	if !strings.Contains(err.Error(), "mount_point") {
		t.Errorf("Expected mount_point error, got: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Format = "xml"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_InvalidTypes(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"dataset type", func(c *Config) { c.Dataset.Type = "ftp" }},
		{"aliases type", func(c *Config) { c.Aliases.Type = "wikipedia" }},
		{"weather provider", func(c *Config) { c.Weather.Provider = "darksky" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), "oneof") {
				t.Errorf("Expected 'oneof' validation error, got: %v", err)
			}
		})
	}
}

func TestValidate_FileExtension(t *testing.T) {
	tests := []struct {
		ext   string
		valid bool
	}{
		{".txt", true},
		{".csv", true},
		{"txt", false},
		{"./txt", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			cfg := validConfig()
			cfg.Filesystem.FileExtension = tt.ext

			err := Validate(cfg)
			if tt.valid && err != nil {
				t.Errorf("Expected %q to be valid, got: %v", tt.ext, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("Expected %q to be rejected", tt.ext)
			}
		})
	}
}

func TestValidate_NegativeRate(t *testing.T) {
	cfg := validConfig()
	cfg.Weather.RequestsPerSecond = -1

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for negative requests_per_second")
	}
}

func TestValidate_InvalidPorts(t *testing.T) {
	cfg := validConfig()
	cfg.Adapters.WebDAV.Port = 70000

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for WebDAV port out of range")
	}

	cfg = validConfig()
	cfg.Metrics.Port = -1

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for negative metrics port")
	}
}

func TestValidate_NoAdaptersEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.Adapters.FUSE.Enabled = false
	cfg.Adapters.WebDAV.Enabled = false

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error when no adapters are enabled")
	}
	if !strings.Contains(err.Error(), "at least one adapter") {
		t.Errorf("Expected 'at least one adapter' error, got: %v", err)
	}
}

func TestValidate_WebDAVOnly(t *testing.T) {
	cfg := validConfig()
	cfg.Adapters.FUSE.Enabled = false
	cfg.Adapters.FUSE.MountPoint = ""
	cfg.Adapters.WebDAV.Enabled = true

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected WebDAV-only config to be valid, got: %v", err)
	}
}

func TestValidate_MetricsPortConflict(t *testing.T) {
	cfg := validConfig()
	cfg.Adapters.WebDAV.Enabled = true
	cfg.Adapters.WebDAV.Port = 9090
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = 9090

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for shared port")
	}
	if !strings.Contains(err.Error(), "already used") {
		t.Errorf("Expected port conflict error, got: %v", err)
	}
}

func TestValidate_DatasetRequiredOptions(t *testing.T) {
	tests := []struct {
		name    string
		dataset DatasetConfig
		wantErr string
	}{
		{
			name:    "filesystem without path",
			dataset: DatasetConfig{Type: "filesystem", Filesystem: map[string]any{}},
			wantErr: "path is required",
		},
		{
			name:    "s3 without key",
			dataset: DatasetConfig{Type: "s3", S3: map[string]any{"bucket": "cities"}},
			wantErr: "bucket and key are required",
		},
		{
			name:    "http without url",
			dataset: DatasetConfig{Type: "http", HTTP: map[string]any{"url": ""}},
			wantErr: "url is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Dataset = tt.dataset

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_GeonamesRequiresPath(t *testing.T) {
	cfg := validConfig()
	cfg.Aliases.Type = "geonames"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for geonames without path")
	}

	cfg.Aliases.Geonames["path"] = "/data/countryInfo.txt"
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected geonames with path to be valid, got: %v", err)
	}
}
