package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for registry lookups.
type Metrics struct {
	LookupLatency   prometheus.Histogram
	LookupOutcome   *prometheus.CounterVec
	CacheResult     *prometheus.CounterVec
	CircuitBreakers prometheus.Gauge
}

// New creates registry metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LookupLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "medbridge_registry_lookup_duration_seconds",
			Help:    "Duration of remote registry lookups",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		LookupOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medbridge_registry_lookup_outcomes_total",
			Help: "Registry lookup outcomes",
		}, []string{"outcome"}), // outcome: "verified", "invalid_license", "unavailable", "invalid_input"
		CacheResult: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medbridge_registry_cache_total",
			Help: "Registry cache hits and misses",
		}, []string{"result"}),
		CircuitBreakers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "medbridge_registry_circuit_open",
			Help: "1 while the registry circuit breaker is open",
		}),
	}
}

func (m *Metrics) ObserveLookupLatency(d time.Duration) {
	if m != nil {
		m.LookupLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.LookupOutcome.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementCacheHit() {
	if m != nil {
		m.CacheResult.WithLabelValues("hit").Inc()
	}
}

func (m *Metrics) IncrementCacheMiss() {
	if m != nil {
		m.CacheResult.WithLabelValues("miss").Inc()
	}
}

func (m *Metrics) SetCircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitBreakers.Set(1)
		return
	}
	m.CircuitBreakers.Set(0)
}
