package config

import "time"

// FilesystemSourceOptions are the dataset.filesystem options.
type FilesystemSourceOptions struct {
	// Path of the city CSV, optionally compressed (.gz, .zst, .lz4, .bz2)
	Path string `mapstructure:"path"`
}

// S3SourceOptions are the dataset.s3 options.
type S3SourceOptions struct {
	Region          string `mapstructure:"region,omitempty"`
	Bucket          string `mapstructure:"bucket"`
	Key             string `mapstructure:"key"`
	Endpoint        string `mapstructure:"endpoint,omitempty"`
	AccessKeyID     string `mapstructure:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key,omitempty"`
	MaxRetries      int    `mapstructure:"max_retries,omitempty"`
}

// HTTPSourceOptions are the dataset.http options.
type HTTPSourceOptions struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout,omitempty"`
}

// GeonamesOptions are the aliases.geonames options.
type GeonamesOptions struct {
	// Path of a geonames countryInfo.txt file
	Path string `mapstructure:"path"`
}

// OpenWeatherMapOptions are the weather.openweathermap options.
type OpenWeatherMapOptions struct {
	BaseURL string        `mapstructure:"base_url,omitempty"`
	APIKey  string        `mapstructure:"api_key,omitempty"`
	Timeout time.Duration `mapstructure:"timeout,omitempty"`
}

// OptionSet pairs a free-form options map, by its dotted config key, with
// the struct its factory decodes it into.
type OptionSet struct {
	Key     string
	Options any
}

// OptionSets lists every per-type options map of Config.
func OptionSets() []OptionSet {
	return []OptionSet{
		{Key: "dataset.filesystem", Options: &FilesystemSourceOptions{}},
		{Key: "dataset.s3", Options: &S3SourceOptions{}},
		{Key: "dataset.http", Options: &HTTPSourceOptions{}},
		{Key: "aliases.geonames", Options: &GeonamesOptions{}},
		{Key: "weather.openweathermap", Options: &OpenWeatherMapOptions{}},
	}
}
