package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/marmos91/cityfs/internal/logger"
	"github.com/marmos91/cityfs/internal/ratelimiter"
)

const (
	// DefaultBaseURL is the OpenWeatherMap API root.
	DefaultBaseURL = "https://api.openweathermap.org"

	// DefaultTimeout bounds a single lookup.
	DefaultTimeout = 10 * time.Second

	currentWeatherPath = "/data/2.5/weather"
	maxResponseSize    = 1 << 20
)

var errThrottled = fmt.Errorf("%w: rate limit wait aborted", ErrUnavailable)

// OpenWeatherMapConfig configures an OpenWeatherMap client.
type OpenWeatherMapConfig struct {
	// BaseURL overrides DefaultBaseURL (useful for proxies and tests).
	BaseURL string

	// APIKey is sent as the appid query parameter. Empty omits it.
	APIKey string

	// Timeout bounds each HTTP round-trip. Zero uses DefaultTimeout.
	Timeout time.Duration

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client

	// Limiter throttles lookups. Nil means unlimited.
	Limiter *ratelimiter.RateLimiter

	// Metrics observes lookups. Nil disables observation.
	Metrics Metrics
}

// OpenWeatherMap is a Provider backed by the OpenWeatherMap current
// weather endpoint.
//
// Thread safety:
// Safe for concurrent use.
type OpenWeatherMap struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *ratelimiter.RateLimiter
	metrics Metrics
}

var _ Provider = (*OpenWeatherMap)(nil)

// NewOpenWeatherMap creates a client from cfg.
func NewOpenWeatherMap(cfg OpenWeatherMapConfig) *OpenWeatherMap {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimiter.New(0, 0)
	}

	var metrics Metrics = noopMetrics{}
	if cfg.Metrics != nil {
		metrics = cfg.Metrics
	}

	return &OpenWeatherMap{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		client:  client,
		limiter: limiter,
		metrics: metrics,
	}
}

// currentWeather is the subset of the response cityfs reads. Pointers
// distinguish absent fields from zero values.
type currentWeather struct {
	Weather []struct {
		Description *string `json:"description"`
	} `json:"weather"`
	Main *struct {
		Temp *float64 `json:"temp"`
	} `json:"main"`
}

// Lookup fetches the current weather for city.
//
// Errors wrap ErrUnavailable, ErrMalformedResponse or ErrMissingField.
func (c *OpenWeatherMap) Lookup(ctx context.Context, city string) (report Report, err error) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveLookup(statusOf(err), time.Since(start))
	}()

	if !c.limiter.Allow() {
		logger.Debug("Weather lookup for %s throttled (%.2f tokens), waiting", city, c.limiter.Tokens())
		if err = c.limiter.Wait(ctx); err != nil {
			return Report{}, fmt.Errorf("%w: %w", errThrottled, err)
		}
	}

	body, err := c.fetch(ctx, city)
	if err != nil {
		return Report{}, err
	}

	return parseCurrentWeather(body)
}

func (c *OpenWeatherMap) fetch(ctx context.Context, city string) ([]byte, error) {
	query := url.Values{}
	query.Set("q", city)
	if c.apiKey != "" {
		query.Set("appid", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+currentWeatherPath+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %s", ErrUnavailable, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrUnavailable, err)
	}
	return body, nil
}

func parseCurrentWeather(body []byte) (Report, error) {
	var payload currentWeather
	if err := json.Unmarshal(body, &payload); err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if len(payload.Weather) == 0 || payload.Weather[0].Description == nil {
		return Report{}, fmt.Errorf("%w: weather[0].description", ErrMissingField)
	}
	if payload.Main == nil || payload.Main.Temp == nil {
		return Report{}, fmt.Errorf("%w: main.temp", ErrMissingField)
	}

	return Report{
		Description: *payload.Weather[0].Description,
		Kelvin:      *payload.Main.Temp,
	}, nil
}
