// Package metrics exposes Prometheus collectors for the draft assistant.
//
// A nil *Metrics is valid and records nothing, so components can take one
// optionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultNamespace = "draft"

type Metrics struct {
	namespace string
	buckets   []float64
	registry  prometheus.Registerer

	actionsApplied   *prometheus.CounterVec
	actionsRejected  *prometheus.CounterVec
	oracleCalls      prometheus.Counter
	oracleFailures   prometheus.Counter
	rankingDuration  prometheus.Histogram
	staleRankings    prometheus.Counter
	advisoryCalls    prometheus.Counter
	advisoryFailures prometheus.Counter
	recordsLoaded    prometheus.Counter
	recordsSkipped   prometheus.Counter
	activeDrafts     prometheus.Gauge
}

type Option func(*Metrics)

func WithNamespace(namespace string) Option {
	return func(m *Metrics) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRankingBuckets sets the buckets of the ranking latency histogram, in seconds.
func WithRankingBuckets(buckets []float64) Option {
	return func(m *Metrics) {
		if len(buckets) > 0 {
			m.buckets = buckets
		}
	}
}

// WithRegistry registers the collectors with r instead of the default registerer.
func WithRegistry(r prometheus.Registerer) Option {
	return func(m *Metrics) {
		if r != nil {
			m.registry = r
		}
	}
}

func New(opts ...Option) *Metrics {
	m := &Metrics{
		namespace: defaultNamespace,
		buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}

	f := promauto.With(m.registry)
	m.actionsApplied = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "actions_applied_total",
		Help:      "Bans and picks applied, by side and action.",
	}, []string{"side", "action"})
	m.actionsRejected = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "actions_rejected_total",
		Help:      "Draft commands rejected, by reason.",
	}, []string{"reason"})
	m.oracleCalls = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "oracle_calls_total",
		Help:      "Win-probability predictions requested.",
	})
	m.oracleFailures = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "oracle_failures_total",
		Help:      "Predictions that failed and were replaced by a neutral value.",
	})
	m.rankingDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "ranking_duration_seconds",
		Help:      "Time to rank every candidate of one draft state.",
		Buckets:   m.buckets,
	})
	m.staleRankings = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "rankings_stale_total",
		Help:      "Rankings discarded because the draft moved while they ran.",
	})
	m.advisoryCalls = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "advisory_calls_total",
		Help:      "Advisory service requests.",
	})
	m.advisoryFailures = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "advisory_failures_total",
		Help:      "Advisory requests that degraded to a ranking-only response.",
	})
	m.recordsLoaded = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "records_loaded_total",
		Help:      "Match records folded into the statistics model.",
	})
	m.recordsSkipped = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "records_skipped_total",
		Help:      "Match records skipped as malformed or unknown.",
	})
	m.activeDrafts = f.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "active_drafts",
		Help:      "Drafts currently held by the hub.",
	})
	return m
}

func (m *Metrics) ActionApplied(side, action string) {
	if m == nil {
		return
	}
	m.actionsApplied.WithLabelValues(side, action).Inc()
}

func (m *Metrics) ActionRejected(reason string) {
	if m == nil {
		return
	}
	m.actionsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) OracleCall(failed bool) {
	if m == nil {
		return
	}
	m.oracleCalls.Inc()
	if failed {
		m.oracleFailures.Inc()
	}
}

func (m *Metrics) ObserveRanking(d time.Duration) {
	if m == nil {
		return
	}
	m.rankingDuration.Observe(d.Seconds())
}

func (m *Metrics) StaleRanking() {
	if m == nil {
		return
	}
	m.staleRankings.Inc()
}

func (m *Metrics) AdvisoryCall(failed bool) {
	if m == nil {
		return
	}
	m.advisoryCalls.Inc()
	if failed {
		m.advisoryFailures.Inc()
	}
}

func (m *Metrics) RecordsLoaded(accepted, skipped int) {
	if m == nil {
		return
	}
	m.recordsLoaded.Add(float64(accepted))
	m.recordsSkipped.Add(float64(skipped))
}

func (m *Metrics) SetActiveDrafts(n int) {
	if m == nil {
		return
	}
	m.activeDrafts.Set(float64(n))
}
