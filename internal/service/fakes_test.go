package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/fakhrymubarak/weather-forecast-app/internal/model"
)

type forecastCall struct {
	City string
	Days int
}

// fakeRepository records calls; per-call behaviour comes from the function fields.
type fakeRepository struct {
	mu           sync.Mutex
	lookups      []string
	forecasts    []forecastCall
	lookupFunc   func(ctx context.Context, query string) ([]model.LocationCandidate, error)
	forecastFunc func(ctx context.Context, city string, days int) (*model.WeatherSnapshot, error)
}

func (f *fakeRepository) LookupLocations(ctx context.Context, query string) ([]model.LocationCandidate, error) {
	f.mu.Lock()
	f.lookups = append(f.lookups, query)
	fn := f.lookupFunc
	f.mu.Unlock()
	if fn == nil {
		return []model.LocationCandidate{{Name: query, Country: "Testland"}}, nil
	}
	return fn(ctx, query)
}

func (f *fakeRepository) FetchForecast(ctx context.Context, city string, days int) (*model.WeatherSnapshot, error) {
	f.mu.Lock()
	f.forecasts = append(f.forecasts, forecastCall{City: city, Days: days})
	fn := f.forecastFunc
	f.mu.Unlock()
	if fn == nil {
		return snapshotFor(city, days), nil
	}
	return fn(ctx, city, days)
}

func (f *fakeRepository) lookupCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lookups...)
}

func (f *fakeRepository) forecastCalls() []forecastCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]forecastCall(nil), f.forecasts...)
}

func snapshotFor(city string, days int) *model.WeatherSnapshot {
	forecast := make([]model.ForecastDay, days)
	for i := range forecast {
		forecast[i] = model.ForecastDay{
			Date:          fmt.Sprintf("2024-04-%02d", 24+i),
			ConditionText: "Sunny",
			AvgTempC:      30 + float64(i),
		}
	}
	return &model.WeatherSnapshot{
		Location: model.Location{Name: city, Country: "India"},
		Current:  model.CurrentConditions{TempC: 36, ConditionText: "Sunny", SunriseTime: "06:09 AM"},
		Forecast: forecast,
	}
}

type fakePublisher struct {
	mu     sync.Mutex
	states []model.ControllerState
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, state model.ControllerState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, state)
	return p.err
}

func (p *fakePublisher) published() []model.ControllerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.ControllerState(nil), p.states...)
}
