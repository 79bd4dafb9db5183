package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/cityfs/internal/ratelimiter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMetrics struct {
	mu       sync.Mutex
	statuses []string
}

func (m *recordingMetrics) ObserveLookup(status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
}

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *http.Request) {
	t.Helper()

	var captured http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = *r
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestLookup_Success(t *testing.T) {
	srv, req := newTestServer(t, http.StatusOK,
		`{"weather":[{"id":800,"description":"clear sky"}],"main":{"temp":296.6,"humidity":40}}`)

	metrics := &recordingMetrics{}
	client := NewOpenWeatherMap(OpenWeatherMapConfig{
		BaseURL: srv.URL,
		APIKey:  "secret",
		Metrics: metrics,
	})

	report, err := client.Lookup(context.Background(), "St. Kilda")
	require.NoError(t, err)

	assert.Equal(t, "clear sky", report.Description)
	assert.InDelta(t, 296.6, report.Kelvin, 1e-9)
	assert.InDelta(t, 23.45, report.Celsius(), 1e-9)
	assert.Equal(t, "23.45, clear sky", report.String())

	assert.Equal(t, "/data/2.5/weather", req.URL.Path)
	assert.Equal(t, "St. Kilda", req.URL.Query().Get("q"))
	assert.Equal(t, "secret", req.URL.Query().Get("appid"))
	assert.Equal(t, []string{"success"}, metrics.statuses)
}

func TestLookup_IntegerTemperature(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK,
		`{"weather":[{"description":"mist"}],"main":{"temp":273}}`)

	client := NewOpenWeatherMap(OpenWeatherMapConfig{BaseURL: srv.URL})
	report, err := client.Lookup(context.Background(), "Oslo")
	require.NoError(t, err)
	assert.Equal(t, "mist", report.Description)
	assert.InDelta(t, -0.15, report.Celsius(), 1e-9)
}

func TestLookup_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		label   string
	}{
		{
			name:    "malformed json",
			status:  http.StatusOK,
			body:    `{"weather":[`,
			wantErr: ErrMalformedResponse,
			label:   "malformed",
		},
		{
			name:    "wrong temperature type",
			status:  http.StatusOK,
			body:    `{"weather":[{"description":"rain"}],"main":{"temp":"warm"}}`,
			wantErr: ErrMalformedResponse,
			label:   "malformed",
		},
		{
			name:    "missing weather array",
			status:  http.StatusOK,
			body:    `{"main":{"temp":280.0}}`,
			wantErr: ErrMissingField,
			label:   "missing_field",
		},
		{
			name:    "empty weather array",
			status:  http.StatusOK,
			body:    `{"weather":[],"main":{"temp":280.0}}`,
			wantErr: ErrMissingField,
			label:   "missing_field",
		},
		{
			name:    "missing description",
			status:  http.StatusOK,
			body:    `{"weather":[{"id":500}],"main":{"temp":280.0}}`,
			wantErr: ErrMissingField,
			label:   "missing_field",
		},
		{
			name:    "missing temperature",
			status:  http.StatusOK,
			body:    `{"weather":[{"description":"rain"}],"main":{}}`,
			wantErr: ErrMissingField,
			label:   "missing_field",
		},
		{
			name:    "not found",
			status:  http.StatusNotFound,
			body:    `{"cod":"404","message":"city not found"}`,
			wantErr: ErrUnavailable,
			label:   "unavailable",
		},
		{
			name:    "unauthorized",
			status:  http.StatusUnauthorized,
			body:    `{"cod":401}`,
			wantErr: ErrUnavailable,
			label:   "unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.status, tt.body)
			metrics := &recordingMetrics{}
			client := NewOpenWeatherMap(OpenWeatherMapConfig{BaseURL: srv.URL, Metrics: metrics})

			_, err := client.Lookup(context.Background(), "Brisbane")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, []string{tt.label}, metrics.statuses)
		})
	}
}

func TestLookup_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewOpenWeatherMap(OpenWeatherMapConfig{BaseURL: url, Timeout: time.Second})
	_, err := client.Lookup(context.Background(), "Brisbane")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLookup_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewOpenWeatherMap(OpenWeatherMapConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := client.Lookup(context.Background(), "Brisbane")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLookup_Throttled(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"weather":[{"description":"fog"}],"main":{"temp":280}}`)

	metrics := &recordingMetrics{}
	client := NewOpenWeatherMap(OpenWeatherMapConfig{
		BaseURL: srv.URL,
		Limiter: ratelimiter.New(0.001, 1),
		Metrics: metrics,
	})

	_, err := client.Lookup(context.Background(), "Perth")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = client.Lookup(ctx, "Perth")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, []string{"success", "throttled"}, metrics.statuses)
}

func TestReport_String(t *testing.T) {
	tests := []struct {
		kelvin float64
		want   string
	}{
		{kelvin: 273.15, want: "0, snow"},
		{kelvin: 300.15, want: "27, snow"},
		{kelvin: 263.15, want: "-10, snow"},
		{kelvin: 293.456789, want: "20.3068, snow"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Report{Description: "snow", Kelvin: tt.kelvin}.String())
		})
	}
}
