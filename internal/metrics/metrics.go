package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for provider requests.
const (
	OutcomeSuccess    = "success"
	OutcomeNetwork    = "network"
	OutcomeHTTPStatus = "http_status"
	OutcomeParse      = "parse"
)

// Collector owns its own registry so several instances can coexist (tests, multiple apps).
// All methods are safe on a nil *Collector.
type Collector struct {
	registry *prometheus.Registry

	ProviderRequestsTotal   *prometheus.CounterVec
	ProviderRequestDuration *prometheus.HistogramVec
	StaleResponsesTotal     *prometheus.CounterVec
	SearchTriggersTotal     prometheus.Counter
	SearchLookupsTotal      prometheus.Counter
	StatePublishErrorsTotal prometheus.Counter
}

func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		ProviderRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_requests_total",
				Help:      "Weather provider requests by operation and outcome",
			},
			[]string{"op", "outcome"},
		),

		ProviderRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_request_duration_seconds",
				Help:      "Weather provider request duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0, 10.0},
			},
			[]string{"op"},
		),

		StaleResponsesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stale_responses_total",
				Help:      "Provider results discarded because a newer request superseded them",
			},
			[]string{"kind"},
		),

		SearchTriggersTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_text_changes_total",
				Help:      "Search text changes received before debouncing",
			},
		),

		SearchLookupsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_debounce_fired_total",
				Help:      "Debounced search evaluations after the quiet period",
			},
		),

		StatePublishErrorsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "state_publish_errors_total",
				Help:      "Failed attempts to publish controller state",
			},
		),
	}
}

// ObserveProviderRequest records one provider call.
func (c *Collector) ObserveProviderRequest(op, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.ProviderRequestsTotal.WithLabelValues(op, outcome).Inc()
	c.ProviderRequestDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (c *Collector) IncStale(kind string) {
	if c == nil {
		return
	}
	c.StaleResponsesTotal.WithLabelValues(kind).Inc()
}

func (c *Collector) IncSearchTrigger() {
	if c == nil {
		return
	}
	c.SearchTriggersTotal.Inc()
}

func (c *Collector) IncSearchFired() {
	if c == nil {
		return
	}
	c.SearchLookupsTotal.Inc()
}

func (c *Collector) IncPublishError() {
	if c == nil {
		return
	}
	c.StatePublishErrorsTotal.Inc()
}

// Handler serves this collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
