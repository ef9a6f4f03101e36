package scheduler

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type sweepMetrics struct {
	runs       *prometheus.CounterVec
	durations  prometheus.Observer
	due        prometheus.Gauge
	unassigned prometheus.Gauge
}

var (
	sweepMetricsOnce sync.Once
	sweepMetricsInst *sweepMetrics
)

func globalSweepMetrics() *sweepMetrics {
	sweepMetricsOnce.Do(func() {
		sweepMetricsInst = newSweepMetrics()
	})
	return sweepMetricsInst
}

func newSweepMetrics() *sweepMetrics {
	return &sweepMetrics{
		runs: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stakeflow",
			Subsystem: "scheduler",
			Name:      "sweep_runs_total",
			Help:      "Cache warming sweeps, labeled by result",
		}, []string{"status"}),
		durations: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stakeflow",
			Subsystem: "scheduler",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of cache warming sweeps",
			Buckets:   prometheus.DefBuckets,
		}),
		due: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "stakeflow",
			Subsystem: "scheduler",
			Name:      "sweep_due_tickets",
			Help:      "Due tickets observed by the latest sweep",
		}),
		unassigned: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "stakeflow",
			Subsystem: "scheduler",
			Name:      "sweep_unassigned_tickets",
			Help:      "Unassigned tickets observed by the latest sweep",
		}),
	}
}

func (m *sweepMetrics) recordRun() func(success bool) {
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

func (m *sweepMetrics) recordListSizes(due, unassigned int) {
	if m == nil {
		return
	}
	m.due.Set(float64(due))
	m.unassigned.Set(float64(unassigned))
}
