package config

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marmos91/cityfs/internal/logger"
	"github.com/marmos91/cityfs/pkg/dataset/source"
)

const testCities = "AU,Brisbane,-27.46794,153.02809,2189878,Australia/Brisbane\n" +
	"NZ,Auckland,-36.84853,174.76349,417910,Pacific/Auckland\n"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestCreateDatasetSource_Filesystem(t *testing.T) {
	cfg := &DatasetConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{"path": "/data/cities.csv"},
	}

	src, err := CreateDatasetSource(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create filesystem source: %v", err)
	}

	fileSrc, ok := src.(*source.FileSource)
	if !ok {
		t.Fatalf("Expected *source.FileSource, got %T", src)
	}
	if fileSrc.Path != "/data/cities.csv" {
		t.Errorf("Expected path '/data/cities.csv', got %q", fileSrc.Path)
	}
}

func TestCreateDatasetSource_FilesystemMissingPath(t *testing.T) {
	cfg := &DatasetConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{},
	}

	_, err := CreateDatasetSource(context.Background(), cfg)
	if err == nil {
		t.Fatal("Expected error for missing path")
	}
	if !strings.Contains(err.Error(), "path is required") {
		t.Errorf("Expected 'path is required' error, got: %v", err)
	}
}

func TestCreateDatasetSource_HTTP(t *testing.T) {
	cfg := &DatasetConfig{
		Type: "http",
		HTTP: map[string]any{
			"url":     "https://example.com/cities.csv",
			"timeout": "5s",
		},
	}

	src, err := CreateDatasetSource(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create HTTP source: %v", err)
	}

	httpSrc, ok := src.(*source.HTTPSource)
	if !ok {
		t.Fatalf("Expected *source.HTTPSource, got %T", src)
	}
	if httpSrc.Client == nil || httpSrc.Client.Timeout.Seconds() != 5 {
		t.Errorf("Expected client with 5s timeout, got %+v", httpSrc.Client)
	}
}

func TestCreateDatasetSource_S3(t *testing.T) {
	cfg := &DatasetConfig{
		Type: "s3",
		S3: map[string]any{
			"region":            "us-east-1",
			"bucket":            "datasets",
			"key":               "cities.csv.zst",
			"endpoint":          "http://localhost:9000",
			"access_key_id":     "minio",
			"secret_access_key": "minio123",
		},
	}

	src, err := CreateDatasetSource(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create S3 source: %v", err)
	}

	if src.Name() != "s3://datasets/cities.csv.zst" {
		t.Errorf("Unexpected source name %q", src.Name())
	}
}

func TestCreateDatasetSource_S3MissingBucket(t *testing.T) {
	cfg := &DatasetConfig{
		Type: "s3",
		S3:   map[string]any{"region": "us-east-1", "key": "cities.csv"},
	}

	_, err := CreateDatasetSource(context.Background(), cfg)
	if err == nil {
		t.Fatal("Expected error for missing bucket")
	}
}

func TestCreateDatasetSource_UnknownType(t *testing.T) {
	_, err := CreateDatasetSource(context.Background(), &DatasetConfig{Type: "ftp"})
	if err == nil {
		t.Fatal("Expected error for unknown dataset type")
	}
	if !strings.Contains(err.Error(), "unknown dataset source type") {
		t.Errorf("Expected 'unknown dataset source type' error, got: %v", err)
	}
}

func TestLoadDataset_MissingFile(t *testing.T) {
	cfg := &DatasetConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{"path": filepath.Join(t.TempDir(), "missing.csv")},
	}

	if _, err := LoadDataset(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for missing dataset file")
	}
}

func TestCreateAliasTable(t *testing.T) {
	builtin, err := CreateAliasTable(&AliasesConfig{Type: "builtin"})
	if err != nil {
		t.Fatalf("Failed to create builtin table: %v", err)
	}
	if got := builtin.CodeToDisplayName("AU"); got != "Australia" {
		t.Errorf("Expected 'Australia', got %q", got)
	}

	identity, err := CreateAliasTable(&AliasesConfig{Type: "none"})
	if err != nil {
		t.Fatalf("Failed to create identity table: %v", err)
	}
	if got := identity.CodeToDisplayName("AU"); got != "AU" {
		t.Errorf("Expected 'AU', got %q", got)
	}
}

func TestCreateAliasTable_Geonames(t *testing.T) {
	path := writeFile(t, "countryInfo.txt",
		"#ISO\tISO3\tISO-Numeric\tfips\tCountry\n"+
			"AU\tAUS\t036\tAS\tCommonwealth of Australia\n")

	table, err := CreateAliasTable(&AliasesConfig{
		Type:     "geonames",
		Geonames: map[string]any{"path": path},
	})
	if err != nil {
		t.Fatalf("Failed to create geonames table: %v", err)
	}
	if got := table.CodeToDisplayName("AU"); got != "Commonwealth of Australia" {
		t.Errorf("Expected geonames name, got %q", got)
	}
}

func TestCreateAliasTable_GeonamesMissingFile(t *testing.T) {
	_, err := CreateAliasTable(&AliasesConfig{
		Type:     "geonames",
		Geonames: map[string]any{"path": filepath.Join(t.TempDir(), "missing.txt")},
	})
	if err == nil {
		t.Fatal("Expected error for missing geonames file")
	}
}

func TestCreateWeatherProvider_Disabled(t *testing.T) {
	provider, err := CreateWeatherProvider(&WeatherConfig{Enabled: false, Provider: "openweathermap"}, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if provider != nil {
		t.Errorf("Expected nil provider when weather is disabled, got %T", provider)
	}
}

func TestCreateWeatherProvider_UnknownProvider(t *testing.T) {
	_, err := CreateWeatherProvider(&WeatherConfig{Enabled: true, Provider: "darksky"}, nil)
	if err == nil {
		t.Fatal("Expected error for unknown provider")
	}
}

func TestCreateWeatherProvider_OpenWeatherMap(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("appid")
		_, _ = w.Write([]byte(`{"weather":[{"description":"light rain"}],"main":{"temp":288.15}}`))
	}))
	defer srv.Close()

	provider, err := CreateWeatherProvider(&WeatherConfig{
		Enabled:  true,
		Provider: "openweathermap",
		OpenWeatherMap: map[string]any{
			"base_url": srv.URL,
			"api_key":  "secret",
			"timeout":  "2s",
		},
		RequestsPerSecond: 10,
		Burst:             2,
	}, nil)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	report, err := provider.Lookup(context.Background(), "Brisbane")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if report.String() != "15, light rain" {
		t.Errorf("Unexpected report %q", report.String())
	}
	if gotKey != "secret" {
		t.Errorf("Expected api key to be sent, got %q", gotKey)
	}
}

func TestCreateWeatherProvider_BadTimeout(t *testing.T) {
	_, err := CreateWeatherProvider(&WeatherConfig{
		Enabled:        true,
		Provider:       "openweathermap",
		OpenWeatherMap: map[string]any{"timeout": "soon"},
	}, nil)
	if err == nil {
		t.Fatal("Expected error for unparseable timeout")
	}
}

func TestCreateFilesystem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"weather":[{"description":"light rain"}],"main":{"temp":288.15}}`))
	}))
	defer srv.Close()

	cfg := sampleConfig()
	cfg.Dataset.Filesystem["path"] = writeFile(t, "cities.csv", testCities)
	cfg.Weather.OpenWeatherMap["base_url"] = srv.URL

	fsys, err := CreateFilesystem(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("CreateFilesystem failed: %v", err)
	}

	ctx := context.Background()
	entries, err := fsys.ReadDir(ctx, "/")
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "Australia" || entries[1].Name != "New Zealand" {
		t.Fatalf("Unexpected root entries: %+v", entries)
	}

	const path = "/Australia/Brisbane.txt"
	if err := fsys.Open(ctx, path, os.O_RDONLY); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	data, err := fsys.Read(ctx, path, 0, 4096)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(data) != "Brisbane,-27.46794,153.02809,15, light rain\n" {
		t.Errorf("Unexpected content %q", data)
	}
}

func TestCreateFilesystem_WeatherDisabled(t *testing.T) {
	cfg := sampleConfig()
	cfg.Dataset.Filesystem["path"] = writeFile(t, "cities.csv", testCities)
	cfg.Weather.Enabled = false
	cfg.Aliases.Type = "none"

	fsys, err := CreateFilesystem(context.Background(), cfg, &MetricsResult{})
	if err != nil {
		t.Fatalf("CreateFilesystem failed: %v", err)
	}

	ctx := context.Background()
	const path = "/NZ/Auckland.txt"
	if err := fsys.Open(ctx, path, os.O_RDONLY); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	data, err := fsys.Read(ctx, path, 0, 4096)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	want := "Auckland,-36.84853,174.76349" + strings.Repeat(" ", 38) + "\n"
	if string(data) != want {
		t.Errorf("Expected placeholder content %q, got %q", want, data)
	}
}

func TestCreateFilesystem_WarnsOnShadowedCountry(t *testing.T) {
	var buf bytes.Buffer
	logger.SetWriter(&buf)
	logger.SetLevel("INFO")
	t.Cleanup(func() { logger.SetWriter(os.Stderr) })

	cfg := sampleConfig()
	cfg.Dataset.Filesystem["path"] = writeFile(t, "cities.csv", testCities)
	cfg.Weather.Enabled = false
	cfg.Aliases.Type = "geonames"
	// AU is displayed as "NZ", which hides the unaliased NZ directory
	cfg.Aliases.Geonames["path"] = writeFile(t, "countryInfo.txt", "AU\tAUS\t036\tAS\tNZ\n")

	fsys, err := CreateFilesystem(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("CreateFilesystem failed: %v", err)
	}

	if !strings.Contains(buf.String(), "Country NZ is listed as \"NZ\"") {
		t.Errorf("Expected warning about unreachable NZ, got log:\n%s", buf.String())
	}

	// The listing itself is unchanged: both entries are still reported.
	entries, err := fsys.ReadDir(context.Background(), "/")
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 root entries, got %d", len(entries))
	}
}

func TestCreateFilesystem_MissingDataset(t *testing.T) {
	cfg := sampleConfig()
	cfg.Dataset.Filesystem["path"] = filepath.Join(t.TempDir(), "missing.csv")

	if _, err := CreateFilesystem(context.Background(), cfg, nil); err == nil {
		t.Fatal("Expected error for missing dataset")
	}
}

func TestCreateAdapters(t *testing.T) {
	cfg := sampleConfig()
	cfg.Adapters.WebDAV.Enabled = true

	adapters, err := CreateAdapters(cfg)
	if err != nil {
		t.Fatalf("CreateAdapters failed: %v", err)
	}
	if len(adapters) != 2 {
		t.Fatalf("Expected 2 adapters, got %d", len(adapters))
	}
	if adapters[0].Protocol() != "FUSE" || adapters[1].Protocol() != "WebDAV" {
		t.Errorf("Unexpected adapter order: %s, %s", adapters[0].Protocol(), adapters[1].Protocol())
	}
	if adapters[0].Endpoint() != sampleMountPoint {
		t.Errorf("Expected FUSE endpoint %q, got %q", sampleMountPoint, adapters[0].Endpoint())
	}

	cfg.Adapters.FUSE.Enabled = false
	cfg.Adapters.WebDAV.Enabled = false
	if _, err := CreateAdapters(cfg); err == nil {
		t.Fatal("Expected error when no adapters are enabled")
	}
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	cfg := sampleConfig()

	result := InitializeMetrics(cfg)
	if result.Server != nil {
		t.Error("Expected no metrics server when disabled")
	}
	if result.FS != nil || result.Cache != nil || result.Weather != nil {
		t.Error("Expected nil collectors when disabled")
	}
}

func TestWithDataset(t *testing.T) {
	tests := []struct {
		arg      string
		wantType string
		check    func(*Config) bool
	}{
		{"cities.csv", "filesystem", func(c *Config) bool { return c.Dataset.Filesystem["path"] == "cities.csv" }},
		{"/data/cities.csv.gz", "filesystem", func(c *Config) bool { return c.Dataset.Filesystem["path"] == "/data/cities.csv.gz" }},
		{"https://example.com/cities.csv", "http", func(c *Config) bool { return c.Dataset.HTTP["url"] == "https://example.com/cities.csv" }},
		{"s3://datasets/geo/cities.csv.zst", "s3", func(c *Config) bool {
			return c.Dataset.S3["bucket"] == "datasets" && c.Dataset.S3["key"] == "geo/cities.csv.zst"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			cfg := &Config{}
			WithDataset(tt.arg)(cfg)

			if cfg.Dataset.Type != tt.wantType {
				t.Errorf("Expected type %q, got %q", tt.wantType, cfg.Dataset.Type)
			}
			if !tt.check(cfg) {
				t.Errorf("Unexpected dataset options: %+v", cfg.Dataset)
			}
		})
	}
}
