package tbs

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "tbs"

// Metrics instruments share collection and aggregation. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	sharesAccepted prometheus.Counter
	sharesRejected *prometheus.CounterVec
	aggregations   *prometheus.CounterVec
	aggregateTime  prometheus.Histogram
	pendingShares  prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with registerer.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		sharesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "shares_accepted_total",
			Help:      "Number of blinded signature shares accepted by combiners",
		}),
		sharesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "shares_rejected_total",
			Help:      "Number of blinded signature shares rejected by combiners",
		}, []string{"reason"}),
		aggregations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "aggregations_total",
			Help:      "Number of aggregation attempts",
		}, []string{"result"}),
		aggregateTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "aggregation_duration_seconds",
			Help:      "Time spent combining signature shares",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		pendingShares: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "pending_shares",
			Help:      "Shares held by combiners that have not been aggregated",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.sharesAccepted,
		m.sharesRejected,
		m.aggregations,
		m.aggregateTime,
		m.pendingShares,
	} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) shareAccepted() {
	if m == nil {
		return
	}
	m.sharesAccepted.Inc()
	m.pendingShares.Inc()
}

func (m *Metrics) shareRejected(reason AuditEventReason) {
	if m == nil {
		return
	}
	m.sharesRejected.WithLabelValues(string(reason)).Inc()
}

func (m *Metrics) aggregated(seconds float64, consumed int, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.aggregations.WithLabelValues(result).Inc()
	m.aggregateTime.Observe(seconds)
	m.pendingShares.Sub(float64(consumed))
}

func (m *Metrics) discarded(pooled int) {
	if m == nil {
		return
	}
	m.pendingShares.Sub(float64(pooled))
}
