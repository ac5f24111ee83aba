package metrics

import (
	"sync"
	"time"

	"github.com/marmos91/blobfs/pkg/blobfs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// fsMetrics is the Prometheus implementation of blobfs.Metrics.
type fsMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	copyPolls         prometheus.Counter
	bytesTransferred  *prometheus.CounterVec
}

var (
	fsOnce     sync.Once
	fsInstance *fsMetrics
)

// NewFSMetrics creates a Prometheus-backed blobfs.Metrics registered with the
// global registry.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// makes the filesystem use its no-op implementation.
func NewFSMetrics() blobfs.Metrics {
	if !IsEnabled() {
		return nil
	}
	fsOnce.Do(func() {
		fsInstance = newFSMetrics(GetRegistry())
	})
	return fsInstance
}

func newFSMetrics(reg prometheus.Registerer) *fsMetrics {
	return &fsMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "blobfs_operations_total",
				Help: "Total number of filesystem operations by operation and errno",
			},
			[]string{"operation", "status", "code"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "blobfs_operation_duration_seconds",
				Help: "Duration of filesystem operations in seconds",
				Buckets: []float64{
					0.005, // 5ms
					0.025, // 25ms
					0.1,   // 100ms
					0.5,   // 500ms
					1.0,   // 1s
					5.0,   // 5s
					30.0,  // 30s
					120.0, // 2min, long renames
				},
			},
			[]string{"operation"},
		),
		copyPolls: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "blobfs_rename_copy_polls_total",
				Help: "Total number of copy status polls issued while renaming",
			},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "blobfs_bytes_transferred_total",
				Help: "Total bytes read and written through the filesystem",
			},
			[]string{"direction"},
		),
	}
}

func (m *fsMetrics) ObserveOperation(op string, duration time.Duration, code string) {
	status := "success"
	if code != "" {
		status = "error"
	}

	m.operationsTotal.WithLabelValues(op, status, code).Inc()
	m.operationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func (m *fsMetrics) RecordCopyPoll() {
	m.copyPolls.Inc()
}

func (m *fsMetrics) RecordBytes(direction string, bytes int64) {
	m.bytesTransferred.WithLabelValues(direction).Add(float64(bytes))
}
