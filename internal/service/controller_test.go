package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fakhrymubarak/weather-forecast-app/internal/metrics"
	"github.com/fakhrymubarak/weather-forecast-app/internal/model"
	"github.com/fakhrymubarak/weather-forecast-app/internal/repository"
)

func newTestController(t *testing.T, repo *fakeRepository, opts Options) *Controller {
	t.Helper()
	if opts.DebounceInterval == 0 {
		opts.DebounceInterval = 20 * time.Millisecond
	}
	c := NewController(repo, opts)
	t.Cleanup(c.Close)
	return c
}

func TestNewController_InitialState(t *testing.T) {
	c := newTestController(t, &fakeRepository{}, Options{})

	st := c.State()
	assert.True(t, st.Loading)
	assert.False(t, st.SearchActive)
	assert.Empty(t, st.Candidates)
	assert.NotNil(t, st.Candidates, "candidates serialise as an empty list")
	assert.False(t, st.HasSnapshot())
	assert.Equal(t, model.PhaseIdle, st.Phase)
	assert.Equal(t, uint64(1), st.Version)
}

func TestFetchDefault(t *testing.T) {
	repo := &fakeRepository{}
	c := newTestController(t, repo, Options{})

	require.NoError(t, c.FetchDefault(context.Background(), "ahmedabad"))

	st := c.State()
	require.True(t, st.HasSnapshot())
	assert.Equal(t, "ahmedabad", st.Snapshot.Location.Name)
	assert.False(t, st.Loading)
	assert.Len(t, st.Snapshot.Forecast, 7)
	assert.Equal(t, []forecastCall{{City: "ahmedabad", Days: 7}}, repo.forecastCalls())
}

func TestFetchDefault_FailureClearsLoading(t *testing.T) {
	fetchErr := &repository.FetchError{Op: "forecast", Kind: repository.KindNetwork, Err: errors.New("dial tcp: refused")}
	repo := &fakeRepository{
		forecastFunc: func(context.Context, string, int) (*model.WeatherSnapshot, error) { return nil, fetchErr },
	}
	c := newTestController(t, repo, Options{})

	err := c.FetchDefault(context.Background(), "ahmedabad")
	fe, ok := repository.AsFetchError(err)
	require.True(t, ok)
	assert.Equal(t, repository.KindNetwork, fe.Kind)

	st := c.State()
	assert.False(t, st.Loading)
	assert.False(t, st.HasSnapshot())
	assert.Contains(t, st.LastError, "refused")
}

func TestSearch_ShortTextClosesSearch(t *testing.T) {
	repo := &fakeRepository{}
	c := newTestController(t, repo, Options{})

	c.ToggleSearch()
	c.search("Lon")
	require.Len(t, c.State().Candidates, 1)

	for _, text := range []string{"", "L", "é"} {
		c.search("Paris")
		c.search(text)

		st := c.State()
		assert.False(t, st.SearchActive, "text %q", text)
		assert.Empty(t, st.Candidates, "text %q", text)
		assert.Equal(t, model.PhaseIdle, st.Phase)
	}
	assert.Equal(t, []string{"Lon", "Paris", "Paris", "Paris"}, repo.lookupCalls())
}

func TestSearch_TwoRunesIsNoop(t *testing.T) {
	repo := &fakeRepository{}
	c := newTestController(t, repo, Options{})

	c.ToggleSearch()
	c.search("Berlin")
	before := c.State()

	for _, text := range []string{"Lo", "Zü", "東京"} {
		c.search(text)
		assert.Equal(t, before, c.State(), "text %q", text)
	}
	assert.Equal(t, []string{"Berlin"}, repo.lookupCalls())
}

func TestSearch_ReplacesCandidates(t *testing.T) {
	repo := &fakeRepository{}
	c := newTestController(t, repo, Options{})

	c.ToggleSearch()
	c.search("Lon")
	c.search("Londo")
	c.search("London")

	st := c.State()
	require.Len(t, st.Candidates, 1, "each lookup replaces the list")
	assert.Equal(t, "London", st.Candidates[0].Name)
	assert.Equal(t, model.PhaseListing, st.Phase)
}

func TestSearch_EntersSearchMode(t *testing.T) {
	c := newTestController(t, &fakeRepository{}, Options{})

	c.search("Madrid")

	st := c.State()
	assert.True(t, st.SearchActive)
	assert.Len(t, st.Candidates, 1)
}

func TestSearch_LookupFailureClearsCandidates(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	repo := &fakeRepository{}
	c := newTestController(t, repo, Options{Logger: zap.New(core).Sugar()})

	c.search("Lima")
	repo.lookupFunc = func(context.Context, string) ([]model.LocationCandidate, error) {
		return nil, &repository.FetchError{Op: "lookup", Kind: repository.KindHTTPStatus, StatusCode: 500}
	}
	c.search("Limassol")

	st := c.State()
	assert.Empty(t, st.Candidates, "results of an earlier query are not shown for the failed one")
	assert.True(t, st.SearchActive)
	assert.Equal(t, model.PhaseTyping, st.Phase)
	assert.Contains(t, st.LastError, "status 500")
	assert.Equal(t, 1, logs.FilterMessage("Location lookup failed").Len())
}

func TestOnTextChanged_Debounced(t *testing.T) {
	repo := &fakeRepository{}
	m := metrics.NewCollector("ctrl_test")
	c := newTestController(t, repo, Options{DebounceInterval: 40 * time.Millisecond, Metrics: m})
	c.ToggleSearch()

	for _, text := range []string{"L", "Lo", "Lon", "Lond", "Londo"} {
		c.OnTextChanged(text)
		time.Sleep(5 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return len(c.State().Candidates) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, []string{"Londo"}, repo.lookupCalls())
	assert.Equal(t, 5.0, testutil.ToFloat64(m.SearchTriggersTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchLookupsTotal))
}

func TestToggleSearch_DiscardsInFlightLookup(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	repo := &fakeRepository{
		lookupFunc: func(_ context.Context, q string) ([]model.LocationCandidate, error) {
			close(started)
			<-release
			return []model.LocationCandidate{{Name: q}}, nil
		},
	}
	m := metrics.NewCollector("ctrl_stale")
	c := newTestController(t, repo, Options{Metrics: m})
	c.ToggleSearch()

	done := make(chan struct{})
	go func() {
		c.search("Oslo")
		close(done)
	}()
	<-started

	st := c.ToggleSearch()
	assert.False(t, st.SearchActive)
	close(release)
	<-done

	st = c.State()
	assert.False(t, st.SearchActive)
	assert.Empty(t, st.Candidates)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleResponsesTotal.WithLabelValues("lookup")))
}

func TestSearch_OlderLookupDiscarded(t *testing.T) {
	slowStarted := make(chan struct{})
	releaseSlow := make(chan struct{})
	repo := &fakeRepository{
		lookupFunc: func(_ context.Context, q string) ([]model.LocationCandidate, error) {
			if q == "Sant" {
				close(slowStarted)
				<-releaseSlow
			}
			return []model.LocationCandidate{{Name: q}}, nil
		},
	}
	c := newTestController(t, repo, Options{})

	done := make(chan struct{})
	go func() {
		c.search("Sant")
		close(done)
	}()
	<-slowStarted
	c.search("Santiago")
	close(releaseSlow)
	<-done

	st := c.State()
	require.Len(t, st.Candidates, 1)
	assert.Equal(t, "Santiago", st.Candidates[0].Name)
}

func TestSelectLocation(t *testing.T) {
	repo := &fakeRepository{}
	c := newTestController(t, repo, Options{})
	require.NoError(t, c.FetchDefault(context.Background(), "ahmedabad"))

	c.ToggleSearch()
	c.search("Lon")
	candidate := c.State().Candidates[0]

	require.NoError(t, c.SelectLocation(context.Background(), candidate))

	st := c.State()
	assert.False(t, st.SearchActive)
	assert.Empty(t, st.Candidates)
	assert.False(t, st.Loading)
	assert.Equal(t, model.PhaseIdle, st.Phase)
	assert.Equal(t, "Lon", st.Snapshot.Location.Name)
	assert.Equal(t, forecastCall{City: "Lon", Days: 7}, repo.forecastCalls()[1])
}

func TestSelectLocation_LoadingWhileInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	repo := &fakeRepository{
		forecastFunc: func(_ context.Context, city string, days int) (*model.WeatherSnapshot, error) {
			close(started)
			<-release
			return snapshotFor(city, days), nil
		},
	}
	c := newTestController(t, repo, Options{ForecastDays: 3})
	c.search("Quito")

	errc := make(chan error, 1)
	go func() { errc <- c.SelectLocation(context.Background(), model.LocationCandidate{Name: "Quito"}) }()
	<-started

	st := c.State()
	assert.True(t, st.Loading)
	assert.Empty(t, st.Candidates)
	assert.False(t, st.SearchActive)

	close(release)
	require.NoError(t, <-errc)
	st = c.State()
	assert.False(t, st.Loading)
	assert.Len(t, st.Snapshot.Forecast, 3)
}

func TestSelectLocation_FailureKeepsSnapshot(t *testing.T) {
	repo := &fakeRepository{}
	c := newTestController(t, repo, Options{})
	require.NoError(t, c.FetchDefault(context.Background(), "ahmedabad"))
	good := c.State().Snapshot

	repo.forecastFunc = func(context.Context, string, int) (*model.WeatherSnapshot, error) {
		return nil, &repository.FetchError{Op: "forecast", Kind: repository.KindParse, Err: errors.New("unexpected EOF")}
	}
	err := c.SelectLocation(context.Background(), model.LocationCandidate{Name: "Nowhere"})
	require.Error(t, err)

	st := c.State()
	assert.False(t, st.Loading)
	assert.Same(t, good, st.Snapshot)
	assert.NotEmpty(t, st.LastError)

	repo.forecastFunc = nil
	require.NoError(t, c.SelectLocation(context.Background(), model.LocationCandidate{Name: "Delhi"}))
	assert.Empty(t, c.State().LastError, "success clears the last error")
}

func TestSelectLocation_NewerSelectionWins(t *testing.T) {
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	repo := &fakeRepository{
		forecastFunc: func(_ context.Context, city string, days int) (*model.WeatherSnapshot, error) {
			if city == "Porto" {
				close(firstStarted)
				<-releaseFirst
			}
			return snapshotFor(city, days), nil
		},
	}
	c := newTestController(t, repo, Options{})

	errc := make(chan error, 1)
	go func() { errc <- c.SelectLocation(context.Background(), model.LocationCandidate{Name: "Porto"}) }()
	<-firstStarted

	require.NoError(t, c.SelectLocation(context.Background(), model.LocationCandidate{Name: "Lisbon"}))
	close(releaseFirst)
	assert.ErrorIs(t, <-errc, ErrSuperseded)

	st := c.State()
	assert.Equal(t, "Lisbon", st.Snapshot.Location.Name)
	assert.False(t, st.Loading)
}

func TestSelectLocation_CancelsPendingDebounce(t *testing.T) {
	repo := &fakeRepository{}
	c := newTestController(t, repo, Options{DebounceInterval: 30 * time.Millisecond})

	c.OnTextChanged("Vienna")
	require.NoError(t, c.SelectLocation(context.Background(), model.LocationCandidate{Name: "Graz"}))
	time.Sleep(80 * time.Millisecond)

	assert.Empty(t, repo.lookupCalls())
	assert.False(t, c.State().SearchActive)
}

func TestNextSevenDayLabels_UsesClock(t *testing.T) {
	wednesday := time.Date(2026, time.October, 21, 8, 0, 0, 0, time.UTC)
	c := newTestController(t, &fakeRepository{}, Options{Now: func() time.Time { return wednesday }})

	assert.Equal(t,
		[]string{"Wednesday", "Thursday", "Friday", "Saturday", "Sunday", "Monday", "Tuesday"},
		c.NextSevenDayLabels())
}

func TestPublisher_ReceivesLatestState(t *testing.T) {
	pub := &fakePublisher{}
	c := newTestController(t, &fakeRepository{}, Options{Publisher: pub})

	require.NoError(t, c.FetchDefault(context.Background(), "ahmedabad"))
	c.ToggleSearch()
	final := c.State()

	assert.Eventually(t, func() bool {
		states := pub.published()
		return len(states) > 0 && states[len(states)-1].Version == final.Version
	}, time.Second, 5*time.Millisecond)

	states := pub.published()
	for i := 1; i < len(states); i++ {
		assert.Greater(t, states[i].Version, states[i-1].Version, "versions never go backwards")
	}
	last := states[len(states)-1]
	assert.True(t, last.SearchActive)
	assert.Equal(t, "ahmedabad", last.Snapshot.Location.Name)
}

func TestPublisher_ErrorsAreNotFatal(t *testing.T) {
	pub := &fakePublisher{err: errors.New("redis down")}
	m := metrics.NewCollector("ctrl_pub")
	c := newTestController(t, &fakeRepository{}, Options{Publisher: pub, Metrics: m})

	require.NoError(t, c.FetchDefault(context.Background(), "ahmedabad"))
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.StatePublishErrorsTotal) >= 1
	}, time.Second, 5*time.Millisecond)
	assert.False(t, c.State().Loading)
}

func TestClose_StopsDebouncedSearch(t *testing.T) {
	repo := &fakeRepository{}
	c := NewController(repo, Options{DebounceInterval: 20 * time.Millisecond, Publisher: &fakePublisher{}})

	c.OnTextChanged("Cairo")
	c.Close()
	c.Close()
	time.Sleep(60 * time.Millisecond)

	assert.Empty(t, repo.lookupCalls())
}
