// Package metrics holds the Prometheus collectors of the converter.
package metrics

import (
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vadiminshakov/fxconv/internal/domain"
)

// Outcome labels.
const (
	OutcomeOK         = "ok"
	OutcomeValidation = "validation"
	OutcomeNetwork    = "network"
	OutcomeError      = "error"
)

// Metrics conversion counters, cache lookups and provider latency.
// Each instance owns its registry so several can live in one process.
type Metrics struct {
	registry *prometheus.Registry

	ConversionsTotal  *prometheus.CounterVec
	CacheLookupsTotal *prometheus.CounterVec
	RateFetchesTotal  *prometheus.CounterVec
	RateFetchDuration prometheus.Histogram
}

// New registers all collectors in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ConversionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxconv_conversions_total",
				Help: "Conversion requests by outcome",
			},
			[]string{"outcome"},
		),
		CacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxconv_rate_cache_lookups_total",
				Help: "Rate cache lookups by result (hit or miss)",
			},
			[]string{"result"},
		),
		RateFetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxconv_rate_fetches_total",
				Help: "Rate provider calls by outcome",
			},
			[]string{"outcome"},
		),
		RateFetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fxconv_rate_fetch_duration_seconds",
				Help:    "Rate provider call latency",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
	}
}

// Outcome classifies err into one of the outcome labels.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		return OutcomeValidation
	}
	var netErr *domain.NetworkError
	if errors.As(err, &netErr) {
		return OutcomeNetwork
	}
	return OutcomeError
}

// ObserveConversion counts a finished Convert call.
func (m *Metrics) ObserveConversion(err error) {
	if m == nil {
		return
	}
	m.ConversionsTotal.WithLabelValues(Outcome(err)).Inc()
}

// CacheLookup counts a rate cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveFetch records one provider call.
func (m *Metrics) ObserveFetch(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.RateFetchesTotal.WithLabelValues(Outcome(err)).Inc()
	m.RateFetchDuration.Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
