package config

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/cityfs/internal/logger"
	"github.com/marmos91/cityfs/internal/ratelimiter"
	"github.com/marmos91/cityfs/pkg/alias"
	"github.com/marmos91/cityfs/pkg/cityfs"
	"github.com/marmos91/cityfs/pkg/dataset"
	"github.com/marmos91/cityfs/pkg/dataset/source"
	"github.com/marmos91/cityfs/pkg/weather"
	"github.com/mitchellh/mapstructure"
)

// decodeOptions decodes a per-type options map into out, accepting
// durations written as strings ("10s").
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(options)
}

// CreateDatasetSource creates a dataset source based on configuration.
//
// This factory function uses the Type field to determine which source
// implementation to create, then decodes the type-specific configuration
// from the corresponding map.
//
// Supported types:
//   - "filesystem": Local file (optionally .gz, .zst or .lz4 compressed)
//   - "s3": Amazon S3 or compatible object storage
//   - "http": Plain HTTP(S) download
func CreateDatasetSource(ctx context.Context, cfg *DatasetConfig) (source.Source, error) {
	switch cfg.Type {
	case "filesystem":
		return createFilesystemSource(cfg.Filesystem)
	case "s3":
		return createS3Source(ctx, cfg.S3)
	case "http":
		return createHTTPSource(cfg.HTTP)
	default:
		return nil, fmt.Errorf("unknown dataset source type: %q (supported: filesystem, s3, http)", cfg.Type)
	}
}

func createFilesystemSource(options map[string]any) (source.Source, error) {
	var srcCfg FilesystemSourceOptions
	if err := mapstructure.Decode(options, &srcCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem dataset config: %w", err)
	}

	if srcCfg.Path == "" {
		return nil, fmt.Errorf("filesystem dataset: path is required")
	}

	return &source.FileSource{Path: srcCfg.Path}, nil
}

// createS3Source creates an S3-backed dataset source.
func createS3Source(ctx context.Context, options map[string]any) (source.Source, error) {
	var srcCfg S3SourceOptions
	if err := decodeOptions(options, &srcCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 dataset config: %w", err)
	}

	if srcCfg.Bucket == "" || srcCfg.Key == "" {
		return nil, fmt.Errorf("S3 dataset: bucket and key are required")
	}
	if srcCfg.Region == "" {
		return nil, fmt.Errorf("S3 dataset: region is required")
	}

	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	configOptions := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(srcCfg.Region),
	}

	// Set credentials if provided, otherwise use default credential chain
	if srcCfg.AccessKeyID != "" && srcCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			srcCfg.AccessKeyID,
			srcCfg.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := srcCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 5
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Custom endpoints (MinIO, Localstack) need path-style addressing
		if srcCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(srcCfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Debug("S3 dataset source: bucket=%s, key=%s, region=%s", srcCfg.Bucket, srcCfg.Key, srcCfg.Region)

	return &source.S3Source{
		Client: client,
		Bucket: srcCfg.Bucket,
		Key:    srcCfg.Key,
	}, nil
}

func createHTTPSource(options map[string]any) (source.Source, error) {
	var srcCfg HTTPSourceOptions
	if err := decodeOptions(options, &srcCfg); err != nil {
		return nil, fmt.Errorf("failed to decode HTTP dataset config: %w", err)
	}

	if srcCfg.URL == "" {
		return nil, fmt.Errorf("HTTP dataset: url is required")
	}

	src := &source.HTTPSource{URL: srcCfg.URL}
	if srcCfg.Timeout > 0 {
		src.Client = &http.Client{Timeout: srcCfg.Timeout}
	}
	return src, nil
}

// LoadDataset creates the configured source and loads the dataset from it.
// A failure here is fatal to startup.
func LoadDataset(ctx context.Context, cfg *DatasetConfig) (*dataset.Dataset, error) {
	src, err := CreateDatasetSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return dataset.Load(ctx, src)
}

// CreateAliasTable creates the country alias table.
//
// Supported types:
//   - "builtin": ISO 3166-1 short names compiled into the binary
//   - "geonames": Read from a GeoNames countryInfo.txt file
//   - "none": Directory names are the raw country codes
func CreateAliasTable(cfg *AliasesConfig) (*alias.Table, error) {
	switch cfg.Type {
	case "builtin":
		return alias.Builtin(), nil
	case "none":
		return alias.Identity(), nil
	case "geonames":
		return createGeonamesAliasTable(cfg.Geonames)
	default:
		return nil, fmt.Errorf("unknown alias table type: %q (supported: builtin, geonames, none)", cfg.Type)
	}
}

func createGeonamesAliasTable(options map[string]any) (*alias.Table, error) {
	var tableCfg GeonamesOptions
	if err := mapstructure.Decode(options, &tableCfg); err != nil {
		return nil, fmt.Errorf("failed to decode geonames alias config: %w", err)
	}
	if tableCfg.Path == "" {
		return nil, fmt.Errorf("geonames aliases: path is required")
	}

	f, err := os.Open(tableCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geonames country info: %w", err)
	}
	defer func() { _ = f.Close() }()

	table, err := alias.LoadGeonamesCountryInfo(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load geonames country info %s: %w", tableCfg.Path, err)
	}

	logger.Info("Loaded %d country aliases from %s", table.Len(), tableCfg.Path)
	return table, nil
}

// CreateWeatherProvider creates the weather provider.
//
// Returns a nil Provider (and nil error) when weather is disabled; the
// filesystem then serves placeholder content.
func CreateWeatherProvider(cfg *WeatherConfig, metrics weather.Metrics) (weather.Provider, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	switch cfg.Provider {
	case "openweathermap":
		return createOpenWeatherMap(cfg, metrics)
	default:
		return nil, fmt.Errorf("unknown weather provider: %q (supported: openweathermap)", cfg.Provider)
	}
}

func createOpenWeatherMap(cfg *WeatherConfig, metrics weather.Metrics) (weather.Provider, error) {
	var opts OpenWeatherMapOptions
	if err := decodeOptions(cfg.OpenWeatherMap, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode openweathermap options: %w", err)
	}

	if opts.APIKey == "" {
		logger.Warn("No OpenWeatherMap API key configured; lookups will likely be rejected")
	}

	limiter := ratelimiter.New(cfg.RequestsPerSecond, cfg.Burst)
	if !limiter.Unlimited() {
		logger.Debug("Weather lookups limited to %.2f/s (burst %d)", cfg.RequestsPerSecond, cfg.Burst)
	}

	return weather.NewOpenWeatherMap(weather.OpenWeatherMapConfig{
		BaseURL: opts.BaseURL,
		APIKey:  opts.APIKey,
		Timeout: opts.Timeout,
		Limiter: limiter,
		Metrics: metrics,
	}), nil
}

// CreateFilesystem builds the filesystem facade from configuration: it loads
// the dataset, creates the alias table and the weather provider, and wires
// the metrics collectors.
//
// Parameters:
//   - ctx: Context for dataset loading
//   - cfg: The complete cityfs configuration
//   - m: Metrics collectors (nil fields use no-op implementations)
func CreateFilesystem(ctx context.Context, cfg *Config, m *MetricsResult) (*cityfs.FS, error) {
	if m == nil {
		m = &MetricsResult{}
	}

	ds, err := LoadDataset(ctx, &cfg.Dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	aliases, err := CreateAliasTable(&cfg.Aliases)
	if err != nil {
		return nil, fmt.Errorf("failed to create alias table: %w", err)
	}

	provider, err := CreateWeatherProvider(&cfg.Weather, m.Weather)
	if err != nil {
		return nil, fmt.Errorf("failed to create weather provider: %w", err)
	}
	if provider == nil {
		logger.Info("Weather lookups disabled")
	}

	fsys := cityfs.New(cityfs.Config{
		Dataset:      ds,
		Aliases:      aliases,
		Weather:      provider,
		Extension:    cfg.Filesystem.FileExtension,
		Metrics:      m.FS,
		CacheMetrics: m.Cache,
	})

	for _, code := range fsys.Resolver().UnreachableCodes() {
		logger.Warn("Country %s is listed as %q but that name resolves to another country; its directory is unreachable",
			code, fsys.Resolver().CountryEntryName(code))
	}

	return fsys, nil
}
