package observability

import (
	"time"

	"github.com/finlyapp/finly-api/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	settlements     *prometheus.CounterVec
	syncPulls       *prometheus.CounterVec
	syncPushes      prometheus.Counter
	syncPushItems   *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids
// "duplicate collector" panics when NewMetrics is called more than
// once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finly_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finly_requests_total",
				Help: "Total requests processed.",
			},
			[]string{"status"},
		),
		settlements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finly_settlements_total",
				Help: "Total payment settlement attempts by outcome.",
			},
			[]string{"outcome"},
		),
		syncPulls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finly_sync_pulls_total",
				Help: "Total sync pull operations by outcome.",
			},
			[]string{"outcome"},
		),
		syncPushes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "finly_sync_pushes_total",
				Help: "Total sync push batches received.",
			},
		),
		syncPushItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finly_sync_push_items_total",
				Help: "Total sync push items by outcome.",
			},
			[]string{"outcome"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// IncrSettlement increments the settlement counter for an outcome
// (success, conflict, failure).
func (m *Metrics) IncrSettlement(outcome string) {
	m.settlements.WithLabelValues(outcome).Inc()
}

// IncrSyncPull increments the pull counter for an outcome.
func (m *Metrics) IncrSyncPull(outcome string) {
	m.syncPulls.WithLabelValues(outcome).Inc()
}

// IncrSyncPush increments the push batch counter.
func (m *Metrics) IncrSyncPush() {
	m.syncPushes.Inc()
}

// IncrSyncPushItem increments the push item counter for an outcome.
func (m *Metrics) IncrSyncPushItem(outcome string) {
	m.syncPushItems.WithLabelValues(outcome).Inc()
}

// GetSyncSnapshot returns a snapshot of settlement/sync metrics
// suitable for the GET /v1/metrics/sync endpoint.
func (m *Metrics) GetSyncSnapshot() *domain.SyncMetrics {
	// Prometheus counters expose cumulative values.
	settlements := getCounterValue(m.settlements, "success")
	conflicts := getCounterValue(m.settlements, "conflict")
	successReqs := getCounterValue(m.requestsTotal, "success")
	errorReqs := getCounterValue(m.requestsTotal, "error")
	totalReqs := successReqs + errorReqs

	errorRate := float64(0)
	if totalReqs > 0 {
		errorRate = errorReqs / totalReqs
	}

	return &domain.SyncMetrics{
		SettlementsTotal:    settlements,
		SettlementConflicts: conflicts,
		PullsTotal:          getCounterValue(m.syncPulls, "success"),
		PushesTotal:         getPlainCounterValue(m.syncPushes),
		PushItemsAccepted:   getCounterValue(m.syncPushItems, domain.OutcomeAccepted),
		PushItemsRejected:   getCounterValue(m.syncPushItems, domain.OutcomeRejected),
		RequestsTotal:       totalReqs,
		RequestErrorRate:    errorRate,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec
// for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func getPlainCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
