// Package content renders the bytes of a city file.
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/marmos91/cityfs/internal/logger"
	"github.com/marmos91/cityfs/pkg/dataset"
	"github.com/marmos91/cityfs/pkg/weather"
)

const (
	// WeatherUnknown replaces the weather field when the lookup fails.
	WeatherUnknown = "weather_unknown"

	// PlaceholderWidth is the number of blanks standing in for the weather
	// field when content is generated without a lookup.
	PlaceholderWidth = 38

	fieldSeparator = ","
)

// ErrUnknownCity is returned when the (code, city) pair is not in the dataset.
var ErrUnknownCity = errors.New("unknown city")

var placeholder = strings.Repeat(" ", PlaceholderWidth)

// Generator produces city file content:
//
//	<name>,<lat>,<lng>,<celsius>, <description>\n   with weather
//	<name>,<lat>,<lng><38 blanks>\n                 without weather
//
// Weather failures never surface as errors; the field becomes
// WeatherUnknown instead.
type Generator struct {
	dataset  *dataset.Dataset
	provider weather.Provider
}

// NewGenerator creates a Generator. A nil provider makes every
// weather-enriched generation degrade to WeatherUnknown.
func NewGenerator(ds *dataset.Dataset, provider weather.Provider) *Generator {
	return &Generator{dataset: ds, provider: provider}
}

// Generate renders the content of the city identified by code and cityName.
//
// The only error is ErrUnknownCity. With includeWeather the call blocks on
// the weather provider; ctx bounds it.
func (g *Generator) Generate(ctx context.Context, code, cityName string, includeWeather bool) (string, error) {
	city, ok := g.dataset.City(code, cityName)
	if !ok {
		return "", fmt.Errorf("%w: %s/%s", ErrUnknownCity, code, cityName)
	}

	var b strings.Builder
	b.WriteString(city.Name)
	b.WriteString(fieldSeparator)
	b.WriteString(city.Latitude)
	b.WriteString(fieldSeparator)
	b.WriteString(city.Longitude)

	if includeWeather {
		b.WriteString(fieldSeparator)
		b.WriteString(g.weatherField(ctx, city.Name))
	} else {
		b.WriteString(placeholder)
	}
	b.WriteString("\n")

	return b.String(), nil
}

// PlaceholderSize returns the length of the content Generate would produce
// without weather, or ErrUnknownCity.
func (g *Generator) PlaceholderSize(code, cityName string) (int, error) {
	city, ok := g.dataset.City(code, cityName)
	if !ok {
		return 0, fmt.Errorf("%w: %s/%s", ErrUnknownCity, code, cityName)
	}
	return len(city.Name) + len(city.Latitude) + len(city.Longitude) + 2*len(fieldSeparator) + PlaceholderWidth + 1, nil
}

func (g *Generator) weatherField(ctx context.Context, cityName string) string {
	if g.provider == nil {
		return WeatherUnknown
	}

	report, err := g.provider.Lookup(ctx, cityName)
	if err != nil {
		logger.Warn("Weather lookup for %q failed: %v", cityName, err)
		return WeatherUnknown
	}
	return report.String()
}
