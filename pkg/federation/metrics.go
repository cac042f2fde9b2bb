package federation

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts entity resolutions. A nil *Metrics records nothing.
type Metrics struct {
	resolvedTotal *prometheus.CounterVec
	failedTotal   *prometheus.CounterVec
	batchSize     prometheus.Histogram
}

func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		resolvedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pgfederation",
			Name:      "entities_resolved_total",
			Help:      "Entities resolved through _entities, by type and strategy.",
		}, []string{"type", "strategy"}),
		failedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pgfederation",
			Name:      "entities_failed_total",
			Help:      "Representations that could not be resolved, by declared type.",
		}, []string{"type"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pgfederation",
			Name:      "entities_batch_size",
			Help:      "Number of representations per _entities call.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
	for _, collector := range []prometheus.Collector{m.resolvedTotal, m.failedTotal, m.batchSize} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) resolved(typeName string, strategy StrategyKind) {
	if m == nil {
		return
	}
	m.resolvedTotal.WithLabelValues(typeName, string(strategy)).Inc()
}

func (m *Metrics) failed(typeName string) {
	if m == nil {
		return
	}
	m.failedTotal.WithLabelValues(typeName).Inc()
}

func (m *Metrics) observeBatch(size int) {
	if m == nil {
		return
	}
	m.batchSize.Observe(float64(size))
}
