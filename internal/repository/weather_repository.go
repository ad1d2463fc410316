package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fakhrymubarak/weather-forecast-app/internal/config"
	"github.com/fakhrymubarak/weather-forecast-app/internal/metrics"
	"github.com/fakhrymubarak/weather-forecast-app/internal/model"
	"go.uber.org/zap"
)

const (
	opLookup   = "lookup"
	opForecast = "forecast"

	maxBodyBytes = 4 << 20
)

// WeatherRepository is the weather provider client. Every call is attempted exactly once.
type WeatherRepository interface {
	LookupLocations(ctx context.Context, query string) ([]model.LocationCandidate, error)
	FetchForecast(ctx context.Context, cityName string, days int) (*model.WeatherSnapshot, error)
}

// weatherRepository implements WeatherRepository against weatherapi.com v1
type weatherRepository struct {
	baseURL      string
	searchPath   string
	forecastPath string
	apiKey       string
	maxDays      int
	httpClient   *http.Client
	metrics      *metrics.Collector
	logger       *zap.SugaredLogger
	now          func() time.Time
}

type Option func(*weatherRepository)

func WithHTTPClient(c *http.Client) Option {
	return func(r *weatherRepository) {
		if c != nil {
			r.httpClient = c
		}
	}
}

func WithBaseURL(baseURL string) Option {
	return func(r *weatherRepository) { r.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithAPIKey(key string) Option {
	return func(r *weatherRepository) { r.apiKey = key }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(r *weatherRepository) { r.metrics = m }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *weatherRepository) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *weatherRepository) {
		if now != nil {
			r.now = now
		}
	}
}

// NewWeatherRepository creates a client configured from config, then applies opts.
func NewWeatherRepository(opts ...Option) WeatherRepository {
	r := &weatherRepository{
		baseURL:      config.GetWeatherAPIBaseURL(),
		searchPath:   config.GetWeatherAPISearchPath(),
		forecastPath: config.GetWeatherAPIForecastPath(),
		apiKey:       config.GetWeatherAPIKey(),
		maxDays:      config.GetWeatherAPIMaxDays(),
		httpClient:   &http.Client{Timeout: config.GetWeatherAPITimeout()},
		logger:       config.GetLogger(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LookupLocations resolves location candidates for a partial city name.
func (r *weatherRepository) LookupLocations(ctx context.Context, query string) ([]model.LocationCandidate, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	params := url.Values{}
	params.Set("q", query)

	var candidates []model.LocationCandidate
	err := r.get(ctx, opLookup, r.searchPath, params, func(body []byte) error {
		var derr error
		candidates, derr = decodeCandidates(body)
		return derr
	})
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

// FetchForecast fetches current conditions plus a days-long forecast for cityName.
func (r *weatherRepository) FetchForecast(ctx context.Context, cityName string, days int) (*model.WeatherSnapshot, error) {
	if strings.TrimSpace(cityName) == "" {
		return nil, ErrEmptyQuery
	}
	if days < 1 || days > r.maxDays {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidDays, days, r.maxDays)
	}

	params := url.Values{}
	params.Set("q", cityName)
	params.Set("days", strconv.Itoa(days))
	params.Set("aqi", "no")
	params.Set("alerts", "no")

	var snapshot *model.WeatherSnapshot
	err := r.get(ctx, opForecast, r.forecastPath, params, func(body []byte) error {
		var resp model.WeatherAPIForecastResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return err
		}
		var merr error
		snapshot, merr = toSnapshot(resp, r.now())
		return merr
	})
	if err != nil {
		return nil, err
	}
	if got := len(snapshot.Forecast); got != days {
		r.logger.Warnw("Provider returned a different forecast horizon", "city", cityName, "requested", days, "returned", got)
	}
	return snapshot, nil
}

// get performs one GET and hands the 2xx body to decode.
func (r *weatherRepository) get(ctx context.Context, op, path string, params url.Values, decode func([]byte) error) error {
	if r.apiKey == "" {
		return ErrAPIKeyMissing
	}
	params.Set("key", r.apiKey)
	endpoint := r.baseURL + path + "?" + params.Encode()

	start := time.Now()
	r.logger.Debugw("Calling weather provider", "op", op, "path", path, "q", params.Get("q"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return r.fail(start, &FetchError{Op: op, Kind: KindNetwork, Err: redact(err)})
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return r.fail(start, &FetchError{Op: op, Kind: KindNetwork, Err: redact(err)})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return r.fail(start, &FetchError{Op: op, Kind: KindNetwork, Err: err})
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fe := &FetchError{Op: op, Kind: KindHTTPStatus, StatusCode: resp.StatusCode}
		var perr model.WeatherAPIErrorResponse
		if json.Unmarshal(body, &perr) == nil {
			fe.ProviderCode = perr.Error.Code
			fe.Message = perr.Error.Message
		}
		if fe.ProviderCode == providerCodeNoLocation {
			fe.Err = ErrLocationNotFound
		}
		return r.fail(start, fe)
	}

	if err := decode(body); err != nil {
		return r.fail(start, &FetchError{Op: op, Kind: KindParse, StatusCode: resp.StatusCode, Err: err})
	}

	r.metrics.ObserveProviderRequest(op, metrics.OutcomeSuccess, time.Since(start))
	return nil
}

func (r *weatherRepository) fail(start time.Time, fe *FetchError) error {
	r.metrics.ObserveProviderRequest(fe.Op, string(fe.Kind), time.Since(start))
	r.logger.Debugw("Weather provider call failed", "op", fe.Op, "kind", fe.Kind, "status", fe.StatusCode, "error", fe)
	return fe
}

// redact strips the query string (which carries the API key) from request errors.
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return &url.Error{Op: ue.Op, URL: stripQuery(ue.URL), Err: ue.Err}
	}
	if msg := err.Error(); strings.Contains(msg, "key=") {
		return errors.New(keyParam.ReplaceAllString(msg, "key=REDACTED"))
	}
	return err
}

var keyParam = regexp.MustCompile(`key=[^&\s"]*`)

// stripQuery drops everything after '?', even when raw does not parse as a URL.
func stripQuery(raw string) string {
	if u, err := url.Parse(raw); err == nil {
		u.RawQuery = ""
		return u.String()
	}
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}

// decodeCandidates accepts a search.json array or a forecast.json object,
// whose location becomes the single candidate.
func decodeCandidates(body []byte) ([]model.LocationCandidate, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty response body")
	}

	if trimmed[0] == '[' {
		var locs []model.WeatherAPILocation
		if err := json.Unmarshal(trimmed, &locs); err != nil {
			return nil, err
		}
		candidates := make([]model.LocationCandidate, 0, len(locs))
		for _, l := range locs {
			if l.Name == "" {
				continue
			}
			candidates = append(candidates, toCandidate(l))
		}
		return candidates, nil
	}

	var resp model.WeatherAPIForecastResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, err
	}
	if resp.Location == nil || resp.Location.Name == "" {
		return nil, errors.New("response has no location")
	}
	return []model.LocationCandidate{toCandidate(*resp.Location)}, nil
}

func toCandidate(l model.WeatherAPILocation) model.LocationCandidate {
	return model.LocationCandidate{
		ID:      l.ID,
		Name:    l.Name,
		Region:  l.Region,
		Country: l.Country,
		Lat:     l.Lat,
		Lon:     l.Lon,
		URL:     l.URL,
	}
}

func toSnapshot(resp model.WeatherAPIForecastResponse, now time.Time) (*model.WeatherSnapshot, error) {
	switch {
	case resp.Location == nil || resp.Location.Name == "":
		return nil, errors.New("response has no location")
	case resp.Current == nil:
		return nil, errors.New("response has no current conditions")
	case resp.Forecast == nil:
		return nil, errors.New("response has no forecast")
	}

	src := resp.Forecast.ForecastDay
	fallback := model.NextDayLabels(now, len(src))
	days := make([]model.ForecastDay, len(src))
	for i, d := range src {
		label := fallback[i]
		if t, err := time.Parse(time.DateOnly, d.Date); err == nil {
			label = t.Weekday().String()
		}
		days[i] = model.ForecastDay{
			Date:          d.Date,
			DateLabel:     label,
			ConditionText: d.Day.Condition.Text,
			ConditionIcon: d.Day.Condition.Icon,
			AvgTempC:      d.Day.AvgTempC,
			MaxTempC:      d.Day.MaxTempC,
			MinTempC:      d.Day.MinTempC,
			Sunrise:       d.Astro.Sunrise,
			Sunset:        d.Astro.Sunset,
		}
	}

	current := model.CurrentConditions{
		TempC:         resp.Current.TempC,
		FeelsLikeC:    resp.Current.FeelsLikeC,
		ConditionText: resp.Current.Condition.Text,
		ConditionIcon: resp.Current.Condition.Icon,
		WindKph:       resp.Current.WindKph,
		HumidityPct:   resp.Current.Humidity,
		LastUpdated:   resp.Current.LastUpdated,
	}
	if len(days) > 0 {
		current.SunriseTime = days[0].Sunrise
	}

	return &model.WeatherSnapshot{
		Location: model.Location{
			Name:      resp.Location.Name,
			Region:    resp.Location.Region,
			Country:   resp.Location.Country,
			LocalTime: resp.Location.LocalTime,
		},
		Current:  current,
		Forecast: days,
	}, nil
}
