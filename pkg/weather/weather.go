// Package weather looks up current conditions for a city.
//
// The only implementation talks to the OpenWeatherMap current weather API.
// Callers treat every error as degraded content, never as a failure of the
// operation in progress.
package weather

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// KelvinOffset converts the upstream API's Kelvin readings to Celsius.
const KelvinOffset = 273.15

var (
	// ErrUnavailable indicates the upstream service could not be reached
	// or answered with a non-success status.
	ErrUnavailable = errors.New("weather service unavailable")

	// ErrMalformedResponse indicates the response body is not valid JSON
	// or has unexpected types.
	ErrMalformedResponse = errors.New("malformed weather response")

	// ErrMissingField indicates a well-formed response lacking the
	// description or temperature.
	ErrMissingField = errors.New("weather response missing required field")
)

// Report is a successful lookup.
type Report struct {
	Description string
	Kelvin      float64
}

// Celsius returns the temperature in degrees Celsius.
func (r Report) Celsius() float64 {
	return r.Kelvin - KelvinOffset
}

// String renders the report as "<celsius>, <description>", with the
// temperature in the shortest form of up to six significant digits.
func (r Report) String() string {
	return strconv.FormatFloat(r.Celsius(), 'g', 6, 64) + ", " + r.Description
}

// Provider looks up the current weather of a city by name.
type Provider interface {
	Lookup(ctx context.Context, city string) (Report, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, city string) (Report, error)

func (f ProviderFunc) Lookup(ctx context.Context, city string) (Report, error) {
	return f(ctx, city)
}

// Metrics observes weather lookups. Implementations must be safe for
// concurrent use.
type Metrics interface {
	// ObserveLookup records one lookup with its outcome ("success",
	// "unavailable", "malformed", "missing_field", "throttled") and
	// duration.
	ObserveLookup(status string, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveLookup(string, time.Duration) {}

// statusOf maps a lookup error to a metrics status label.
func statusOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, errThrottled):
		return "throttled"
	default:
		return "unavailable"
	}
}
