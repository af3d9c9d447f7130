package prometheus

import (
	"time"

	"github.com/marmos91/blobflashd/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// blobMetrics is the Prometheus implementation of metrics.BlobMetrics.
type blobMetrics struct {
	operations      *prometheus.CounterVec
	operationLatency *prometheus.HistogramVec
	updateState     *prometheus.GaugeVec
	verifyPolls     *prometheus.CounterVec
	versionTriggers *prometheus.CounterVec
}

// NewBlobMetrics creates a new Prometheus-backed metrics.BlobMetrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// keeps callers safe to invoke unconditionally.
func NewBlobMetrics() metrics.BlobMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &blobMetrics{
		operations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "blobflashd_operations_total",
				Help: "Total number of blob operations by operation, blob id, and outcome",
			},
			[]string{"operation", "blob_id", "result"},
		),
		operationLatency: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "blobflashd_operation_duration_milliseconds",
				Help:    "Duration of blob operations in milliseconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000},
			},
			[]string{"operation"},
		),
		updateState: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "blobflashd_update_state",
				Help: "Firmware update FSM state (1 for the active state, 0 otherwise)",
			},
			[]string{"state"},
		),
		verifyPolls: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "blobflashd_verify_polls_total",
				Help: "Total number of verification status polls by result",
			},
			[]string{"status"},
		),
		versionTriggers: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "blobflashd_version_triggers_total",
				Help: "Total number of version probe triggers by blob id and outcome",
			},
			[]string{"blob_id", "result"},
		),
	}
}

func (m *blobMetrics) RecordOperation(operation, blobID string, duration time.Duration, ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.operations.WithLabelValues(operation, blobID, result).Inc()
	m.operationLatency.WithLabelValues(operation).Observe(duration.Seconds() * 1000)
}

func (m *blobMetrics) SetUpdateState(state string) {
	if m == nil {
		return
	}
	m.updateState.Reset()
	m.updateState.WithLabelValues(state).Set(1)
}

func (m *blobMetrics) RecordVerifyPoll(status string) {
	if m == nil {
		return
	}
	m.verifyPolls.WithLabelValues(status).Inc()
}

func (m *blobMetrics) RecordVersionTrigger(blobID string, ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.versionTriggers.WithLabelValues(blobID, result).Inc()
}
