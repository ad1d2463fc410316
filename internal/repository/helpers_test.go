package repository

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

// RoundTripperFunc allows us to easily mock http.Client responses in tests.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

const forecastBody = `{
  "location": {"name": "Ahmedabad", "region": "Gujarat", "country": "India", "lat": 23.03, "lon": 72.62, "localtime": "2024-04-24 10:15"},
  "current": {
    "last_updated": "2024-04-24 10:00",
    "temp_c": 36.2, "feelslike_c": 38.9, "wind_kph": 11.2, "humidity": 21,
    "condition": {"text": "Sunny", "icon": "//cdn.weatherapi.com/weather/64x64/day/113.png", "code": 1000}
  },
  "forecast": {"forecastday": [
    {"date": "2024-04-24", "day": {"maxtemp_c": 41.0, "mintemp_c": 26.1, "avgtemp_c": 33.4, "condition": {"text": "Sunny"}}, "astro": {"sunrise": "06:09 AM", "sunset": "07:03 PM"}},
    {"date": "2024-04-25", "day": {"maxtemp_c": 40.2, "mintemp_c": 25.8, "avgtemp_c": 32.9, "condition": {"text": "Partly cloudy"}}, "astro": {"sunrise": "06:08 AM", "sunset": "07:03 PM"}},
    {"date": "not-a-date", "day": {"maxtemp_c": 39.0, "mintemp_c": 25.0, "avgtemp_c": 32.0, "condition": {"text": "Sunny"}}, "astro": {"sunrise": "06:08 AM", "sunset": "07:04 PM"}}
  ]}
}`

const searchBody = `[
  {"id": 2801268, "name": "London", "region": "City of London, Greater London", "country": "United Kingdom", "lat": 51.52, "lon": -0.11, "url": "london-city-of-london-greater-london-united-kingdom"},
  {"id": 0, "name": "", "country": "Nowhere"},
  {"id": 315398, "name": "Londonderry", "region": "Londonderry", "country": "United Kingdom", "lat": 55.0, "lon": -7.32, "url": "londonderry-united-kingdom"}
]`

// fakeProvider serves a fixed status and body and counts requests.
type fakeProvider struct {
	server   *httptest.Server
	requests atomic.Int32
	lastReq  atomic.Pointer[http.Request]
}

func newFakeProvider(t *testing.T, status int, body string) *fakeProvider {
	t.Helper()
	fp := &fakeProvider{}
	fp.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fp.requests.Add(1)
		fp.lastReq.Store(r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(fp.server.Close)
	return fp
}

func newTestRepository(baseURL string, opts ...Option) WeatherRepository {
	base := []Option{
		WithBaseURL(baseURL),
		WithAPIKey("test_api_key"),
		WithLogger(zap.NewNop().Sugar()),
	}
	return NewWeatherRepository(append(base, opts...)...)
}
