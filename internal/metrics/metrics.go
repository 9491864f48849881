package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the orchestration core.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ActionsTotal    *prometheus.CounterVec
	ActionDuration  *prometheus.HistogramVec
	ActionsInFlight *prometheus.GaugeVec

	QuoteRequests   *prometheus.CounterVec
	Approvals       *prometheus.CounterVec
	BalanceFailures prometheus.Counter

	PoolRefreshDur prometheus.Histogram
	PoolsTracked   prometheus.Gauge
}

// NewMetrics creates and registers all collectors on reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	return &Metrics{
		ActionsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Finished actions by kind and outcome (settled or failure kind).",
		}, []string{"kind", "outcome"}),

		ActionDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Wall time from validation to terminal state.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"kind"}),

		ActionsInFlight: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "actions_in_flight",
			Help:      "Actions that have started and not reached a terminal state.",
		}, []string{"kind"}),

		QuoteRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_requests_total",
			Help:      "Debounced quote requests by result.",
		}, []string{"result"}),

		Approvals: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "approvals_total",
			Help:      "Allowance checks by result (skipped, approved, error).",
		}, []string{"result"}),

		BalanceFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_read_failures_total",
			Help:      "Per-token balance reads that failed and were reported as zero.",
		}),

		PoolRefreshDur: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pool_refresh_duration_seconds",
			Help:      "Time to reload hub stats and every active pool.",
			Buckets:   prometheus.DefBuckets,
		}),

		PoolsTracked: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pools_tracked",
			Help:      "Active pools in the last successful refresh.",
		}),
	}
}

func (m *Metrics) ActionStarted(kind string) {
	if m == nil {
		return
	}
	m.ActionsInFlight.WithLabelValues(kind).Inc()
}

// ActionFinished records a terminal action. outcome is "settled" or a failure kind.
func (m *Metrics) ActionFinished(kind, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.ActionsInFlight.WithLabelValues(kind).Dec()
	m.ActionsTotal.WithLabelValues(kind, outcome).Inc()
	m.ActionDuration.WithLabelValues(kind).Observe(took.Seconds())
}

func (m *Metrics) QuoteResult(result string) {
	if m == nil {
		return
	}
	m.QuoteRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) ApprovalResult(result string) {
	if m == nil {
		return
	}
	m.Approvals.WithLabelValues(result).Inc()
}

func (m *Metrics) BalanceFailure() {
	if m == nil {
		return
	}
	m.BalanceFailures.Inc()
}

func (m *Metrics) PoolRefresh(took time.Duration, pools int) {
	if m == nil {
		return
	}
	m.PoolRefreshDur.Observe(took.Seconds())
	m.PoolsTracked.Set(float64(pools))
}
