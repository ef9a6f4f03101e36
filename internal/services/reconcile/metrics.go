package reconcile

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type reconcileMetrics struct {
	runs          *prometheus.CounterVec
	durations     prometheus.Observer
	chainAdvances prometheus.Counter
	fetchFailures prometheus.Counter
	cacheLookups  *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *reconcileMetrics
)

func globalMetrics() *reconcileMetrics {
	metricsOnce.Do(func() {
		metricsInst = newReconcileMetrics()
	})
	return metricsInst
}

func newReconcileMetrics() *reconcileMetrics {
	return &reconcileMetrics{
		runs: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stakeflow",
			Subsystem: "reconcile",
			Name:      "runs_total",
			Help:      "Reconciliation executions, labeled by result",
		}, []string{"status"}),
		durations: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stakeflow",
			Subsystem: "reconcile",
			Name:      "duration_seconds",
			Help:      "Duration of reconciliation executions",
			Buckets:   prometheus.DefBuckets,
		}),
		chainAdvances: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "stakeflow",
			Subsystem: "reconcile",
			Name:      "chain_advances_total",
			Help:      "Renewal chains advanced to a replacement ticket",
		}),
		fetchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "stakeflow",
			Subsystem: "reconcile",
			Name:      "detail_fetch_failures_total",
			Help:      "Upstream detail lookups that failed and were degraded",
		}),
		cacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stakeflow",
			Subsystem: "reconcile",
			Name:      "cache_lookups_total",
			Help:      "Session cache lookups, labeled hit or miss",
		}, []string{"result"}),
	}
}

// recordRun starts the duration timer; the returned func records the result
// once the run settles.
func (m *reconcileMetrics) recordRun() func(success bool) {
	if m == nil {
		return func(bool) {}
	}
	timer := prometheus.NewTimer(m.durations)
	return func(success bool) {
		status := "success"
		if !success {
			status = "failure"
		}
		m.runs.WithLabelValues(status).Inc()
		timer.ObserveDuration()
	}
}

func (m *reconcileMetrics) recordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *reconcileMetrics) recordChainAdvance() {
	if m != nil {
		m.chainAdvances.Inc()
	}
}

func (m *reconcileMetrics) recordFetchFailure() {
	if m != nil {
		m.fetchFailures.Inc()
	}
}
