package content

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/marmos91/cityfs/pkg/dataset"
	"github.com/marmos91/cityfs/pkg/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDataset() *dataset.Dataset {
	return dataset.FromRecords([]dataset.Record{
		{CountryCode: "AU", CityName: "Brisbane", Latitude: "-27.46794", Longitude: "153.02809", Population: "958504", Timezone: "Australia/Brisbane"},
		{CountryCode: "AU", CityName: "Perth", Latitude: "-31.95224", Longitude: "115.8614"},
	})
}

func staticProvider(report weather.Report, err error) (weather.Provider, *int32) {
	var calls int32
	return weather.ProviderFunc(func(context.Context, string) (weather.Report, error) {
		atomic.AddInt32(&calls, 1)
		return report, err
	}), &calls
}

func TestGenerate_Placeholder(t *testing.T) {
	provider, calls := staticProvider(weather.Report{}, nil)
	g := NewGenerator(testDataset(), provider)

	got, err := g.Generate(context.Background(), "AU", "Brisbane", false)
	require.NoError(t, err)

	assert.Equal(t, "Brisbane,-27.46794,153.02809"+strings.Repeat(" ", 38)+"\n", got)
	assert.Zero(t, atomic.LoadInt32(calls), "placeholder content must not consult the provider")

	size, err := g.PlaceholderSize("AU", "Brisbane")
	require.NoError(t, err)
	assert.Equal(t, len(got), size)
}

func TestGenerate_WithWeather(t *testing.T) {
	provider, calls := staticProvider(weather.Report{Description: "clear sky", Kelvin: 296.6}, nil)
	g := NewGenerator(testDataset(), provider)

	got, err := g.Generate(context.Background(), "AU", "Brisbane", true)
	require.NoError(t, err)

	assert.Equal(t, "Brisbane,-27.46794,153.02809,23.45, clear sky\n", got)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestGenerate_DegradesOnProviderError(t *testing.T) {
	provider, _ := staticProvider(weather.Report{}, weather.ErrUnavailable)
	g := NewGenerator(testDataset(), provider)

	got, err := g.Generate(context.Background(), "AU", "Perth", true)
	require.NoError(t, err)
	assert.Equal(t, "Perth,-31.95224,115.8614,weather_unknown\n", got)
}

func TestGenerate_DegradesOnUpstreamFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "malformed json", status: http.StatusOK, body: `not json`},
		{name: "missing temperature", status: http.StatusOK, body: `{"weather":[{"description":"rain"}]}`},
		{name: "missing description", status: http.StatusOK, body: `{"weather":[{}],"main":{"temp":280}}`},
		{name: "server error", status: http.StatusInternalServerError, body: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			g := NewGenerator(testDataset(), weather.NewOpenWeatherMap(weather.OpenWeatherMapConfig{BaseURL: srv.URL}))
			got, err := g.Generate(context.Background(), "AU", "Brisbane", true)
			require.NoError(t, err)
			assert.Equal(t, "Brisbane,-27.46794,153.02809,weather_unknown\n", got)
		})
	}

	t.Run("network error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		g := NewGenerator(testDataset(), weather.NewOpenWeatherMap(weather.OpenWeatherMapConfig{BaseURL: url}))
		got, err := g.Generate(context.Background(), "AU", "Brisbane", true)
		require.NoError(t, err)
		assert.Equal(t, "Brisbane,-27.46794,153.02809,weather_unknown\n", got)
	})
}

func TestGenerate_NilProvider(t *testing.T) {
	g := NewGenerator(testDataset(), nil)

	got, err := g.Generate(context.Background(), "AU", "Perth", true)
	require.NoError(t, err)
	assert.Equal(t, "Perth,-31.95224,115.8614,weather_unknown\n", got)
}

func TestGenerate_UnknownCity(t *testing.T) {
	g := NewGenerator(testDataset(), nil)

	_, err := g.Generate(context.Background(), "AU", "Sydney", false)
	assert.ErrorIs(t, err, ErrUnknownCity)

	_, err = g.Generate(context.Background(), "NZ", "Brisbane", true)
	assert.ErrorIs(t, err, ErrUnknownCity)

	_, err = g.PlaceholderSize("AU", "Sydney")
	assert.ErrorIs(t, err, ErrUnknownCity)
}
