// Package telemetry wraps the kernel's Prometheus instrumentation
// behind a small, nil-safe bundle so unit tests can drive a Timer
// without registering a Prometheus registry.
package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the counters and histograms the scheduler emits,
// including the per-kind exchange metrics it records around each
// exchange round. Every method on *Metrics is nil-safe: a nil
// *Metrics behaves as a no-op sink.
type Metrics struct {
	TicksTotal           prometheus.Counter
	BuildsTotal          prometheus.Counter
	DecomsTotal          prometheus.Counter
	ExchangeMatchesTotal *prometheus.CounterVec
	ExchangeDuration     *prometheus.HistogramVec
}

// NewMetrics constructs a Metrics under namespace and registers every
// collector with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Total number of scheduler ticks completed.",
		}),
		BuildsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Total number of agents built.",
		}),
		DecomsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decoms_total",
			Help:      "Total number of agents decommissioned.",
		}),
		ExchangeMatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchange_matches_total",
			Help:      "Total number of matches produced by the exchange, by resource kind.",
		}, []string{"kind"}),
		ExchangeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exchange_duration_seconds",
			Help:      "Exchange round duration in seconds, by resource kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	reg.MustRegister(m.TicksTotal, m.BuildsTotal, m.DecomsTotal, m.ExchangeMatchesTotal, m.ExchangeDuration)
	return m
}

// IncTicks increments the tick counter.
func (m *Metrics) IncTicks() {
	if m != nil {
		m.TicksTotal.Inc()
	}
}

// IncBuilds increments the build counter.
func (m *Metrics) IncBuilds() {
	if m != nil {
		m.BuildsTotal.Inc()
	}
}

// IncDecoms increments the decommission counter.
func (m *Metrics) IncDecoms() {
	if m != nil {
		m.DecomsTotal.Inc()
	}
}

// ObserveExchange records one exchange round's duration and match
// count under the given resource kind label.
func (m *Metrics) ObserveExchange(kind string, seconds float64, matches int) {
	if m == nil {
		return
	}
	m.ExchangeDuration.WithLabelValues(kind).Observe(seconds)
	m.ExchangeMatchesTotal.WithLabelValues(kind).Add(float64(matches))
}
