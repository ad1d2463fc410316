package service

import (
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fakhrymubarak/weather-forecast-app/internal/config"
	"github.com/fakhrymubarak/weather-forecast-app/internal/metrics"
	"github.com/fakhrymubarak/weather-forecast-app/internal/model"
	"github.com/fakhrymubarak/weather-forecast-app/internal/repository"
	"go.uber.org/zap"
)

// minQueryRunes splits search input: shorter closes the search, equal is ignored, longer looks up.
const minQueryRunes = 2

// ErrSuperseded is returned by a forecast load whose result was discarded
// because a newer forecast request was issued while it was in flight.
var ErrSuperseded = errors.New("superseded by a newer forecast request")

// StatePublisher receives every committed state, in version order, latest wins.
type StatePublisher interface {
	Publish(ctx context.Context, state model.ControllerState) error
}

// ControllerInterface is the surface the rendering layer drives.
type ControllerInterface interface {
	State() model.ControllerState
	ToggleSearch() model.ControllerState
	OnTextChanged(text string)
	SelectLocation(ctx context.Context, candidate model.LocationCandidate) error
	FetchDefault(ctx context.Context, cityName string) error
	NextSevenDayLabels() []string
}

// Options configures a Controller. Zero values fall back to built-in defaults.
type Options struct {
	ForecastDays     int
	DebounceInterval time.Duration
	Publisher        StatePublisher
	PublishTimeout   time.Duration
	Metrics          *metrics.Collector
	Logger           *zap.SugaredLogger
	Now              func() time.Time
}

// DefaultOptions reads forecast horizon, debounce and publish timeout from config.
func DefaultOptions() Options {
	return Options{
		ForecastDays:     config.GetForecastDays(),
		DebounceInterval: config.GetDebounceInterval(),
		PublishTimeout:   config.GetRedisPublishTimeout(),
		Logger:           config.GetLogger(),
	}
}

// Controller owns ControllerState. All mutations go through c.mu; provider calls run outside it.
type Controller struct {
	repo           repository.WeatherRepository
	forecastDays   int
	publisher      StatePublisher
	publishTimeout time.Duration
	metrics        *metrics.Collector
	logger         *zap.SugaredLogger
	now            func() time.Time
	debouncer      *Debouncer

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       model.ControllerState
	lookupSeq   uint64
	forecastSeq uint64

	updates   chan model.ControllerState
	done      chan struct{}
	closeOnce sync.Once
}

var _ ControllerInterface = (*Controller)(nil)

func NewController(repo repository.WeatherRepository, opts Options) *Controller {
	if opts.ForecastDays <= 0 {
		opts.ForecastDays = 7
	}
	if opts.DebounceInterval <= 0 {
		opts.DebounceInterval = 800 * time.Millisecond
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		repo:           repo,
		forecastDays:   opts.ForecastDays,
		publisher:      opts.Publisher,
		publishTimeout: opts.PublishTimeout,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
		now:            opts.Now,
		ctx:            ctx,
		cancel:         cancel,
		state:          model.ControllerState{Loading: true},
		done:           make(chan struct{}),
	}
	c.debouncer = NewDebouncer(opts.DebounceInterval, c.search)

	if c.publisher != nil {
		c.updates = make(chan model.ControllerState, 1)
		go c.publishLoop()
	} else {
		close(c.done)
	}

	c.mu.Lock()
	c.commitLocked()
	c.mu.Unlock()
	return c
}

// State returns a copy of the current state. The snapshot pointer is shared and must not be mutated.
func (c *Controller) State() model.ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyLocked()
}

// ToggleSearch flips searchActive and clears candidates. Any in-flight lookup
// is discarded when it completes.
func (c *Controller) ToggleSearch() model.ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.SearchActive = !c.state.SearchActive
	c.state.Candidates = nil
	c.lookupSeq++
	if !c.state.SearchActive {
		c.debouncer.Cancel()
	}
	c.commitLocked()
	return c.copyLocked()
}

// OnTextChanged feeds the debouncer; the search runs after the quiet period with the last text.
func (c *Controller) OnTextChanged(text string) {
	c.metrics.IncSearchTrigger()
	c.debouncer.Trigger(text)
}

// search is the debounced handler for text changes.
func (c *Controller) search(text string) {
	c.metrics.IncSearchFired()

	n := utf8.RuneCountInString(text)
	if n == minQueryRunes {
		return
	}

	c.mu.Lock()
	c.lookupSeq++
	seq := c.lookupSeq
	if n < minQueryRunes {
		c.state.SearchActive = false
		c.state.Candidates = nil
		c.commitLocked()
		c.mu.Unlock()
		return
	}
	if !c.state.SearchActive {
		c.state.SearchActive = true
		c.commitLocked()
	}
	c.mu.Unlock()

	candidates, err := c.repo.LookupLocations(c.ctx, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.lookupSeq {
		c.metrics.IncStale("lookup")
		c.logger.Debugw("Discarding stale lookup result", "query", text)
		return
	}
	if err != nil {
		c.logger.Warnw("Location lookup failed", "query", text, "error", err)
		c.state.Candidates = nil
		c.state.LastError = err.Error()
		c.commitLocked()
		return
	}
	c.state.Candidates = candidates
	c.state.LastError = ""
	c.commitLocked()
}

// SelectLocation closes the search and loads the forecast for candidate.
func (c *Controller) SelectLocation(ctx context.Context, candidate model.LocationCandidate) error {
	return c.loadForecast(ctx, candidate.Name, true)
}

// FetchDefault loads the forecast for cityName without touching the search state.
func (c *Controller) FetchDefault(ctx context.Context, cityName string) error {
	return c.loadForecast(ctx, cityName, false)
}

func (c *Controller) NextSevenDayLabels() []string {
	return model.NextSevenDayLabels(c.now())
}

func (c *Controller) loadForecast(ctx context.Context, city string, closeSearch bool) error {
	c.mu.Lock()
	c.forecastSeq++
	seq := c.forecastSeq
	c.state.Loading = true
	if closeSearch {
		c.lookupSeq++
		c.debouncer.Cancel()
		c.state.SearchActive = false
		c.state.Candidates = nil
	}
	c.commitLocked()
	c.mu.Unlock()

	snapshot, err := c.repo.FetchForecast(ctx, city, c.forecastDays)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.forecastSeq {
		c.metrics.IncStale("forecast")
		c.logger.Debugw("Discarding stale forecast result", "city", city)
		return ErrSuperseded
	}

	c.state.Loading = false
	if err != nil {
		c.logger.Warnw("Forecast fetch failed", "city", city, "error", err)
		c.state.LastError = err.Error()
		c.commitLocked()
		return err
	}

	c.state.Snapshot = snapshot
	c.state.LastError = ""
	c.commitLocked()
	c.logger.Infow("Forecast updated", "city", city, "location", snapshot.Location.Name, "days", len(snapshot.Forecast))
	return nil
}

// Close stops the debouncer and the publish loop. In-flight lookups are discarded.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.debouncer.Stop()
		c.mu.Lock()
		c.lookupSeq++
		c.mu.Unlock()
		c.cancel()
		<-c.done
	})
}

// commitLocked stamps a new version and hands the state to the publisher, dropping
// any older state the publisher has not picked up yet.
func (c *Controller) commitLocked() {
	c.state.Version++
	c.state.Phase = model.PhaseOf(c.state.SearchActive, len(c.state.Candidates))
	if c.updates == nil {
		return
	}
	st := c.copyLocked()
	select {
	case <-c.updates:
	default:
	}
	c.updates <- st
}

func (c *Controller) copyLocked() model.ControllerState {
	st := c.state
	st.Candidates = make([]model.LocationCandidate, len(c.state.Candidates))
	copy(st.Candidates, c.state.Candidates)
	return st
}

func (c *Controller) publishLoop() {
	defer close(c.done)
	for {
		select {
		case <-c.ctx.Done():
			return
		case st := <-c.updates:
			ctx, cancel := context.WithTimeout(c.ctx, c.publishTimeout)
			err := c.publisher.Publish(ctx, st)
			cancel()
			if err != nil {
				c.metrics.IncPublishError()
				c.logger.Warnw("Publishing state failed", "version", st.Version, "error", err)
			}
		}
	}
}
