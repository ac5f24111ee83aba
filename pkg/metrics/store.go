package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/marmos91/blobfs/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// storeMetrics is the Prometheus implementation of store.Metrics.
//
// It collects:
//   - Backend call counts by operation and outcome
//   - Backend call latency
//   - Bytes moved to and from the backend
type storeMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesTransferred  *prometheus.CounterVec
}

var (
	storeOnce     sync.Once
	storeInstance *storeMetrics
)

// NewStoreMetrics creates a Prometheus-backed store.Metrics registered with
// the global registry.
//
// Returns nil if metrics are not enabled, in which case store.Instrument
// leaves the store unwrapped.
func NewStoreMetrics() store.Metrics {
	if !IsEnabled() {
		return nil
	}
	storeOnce.Do(func() {
		storeInstance = newStoreMetrics(GetRegistry())
	})
	return storeInstance
}

func newStoreMetrics(reg prometheus.Registerer) *storeMetrics {
	return &storeMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "blobfs_store_operations_total",
				Help: "Total number of object store calls by backend, operation and outcome",
			},
			[]string{"backend", "operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "blobfs_store_operation_duration_seconds",
				Help: "Duration of object store calls in seconds",
				Buckets: []float64{
					0.001, // 1ms
					0.01,  // 10ms
					0.05,  // 50ms
					0.1,   // 100ms
					0.25,  // 250ms
					1.0,   // 1s
					2.5,   // 2.5s
					10.0,  // 10s
				},
			},
			[]string{"backend", "operation"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "blobfs_store_bytes_transferred_total",
				Help: "Total bytes transferred to and from the object store",
			},
			[]string{"backend", "operation"}, // read or write
		),
	}
}

// outcome labels an error by the store sentinel it wraps. Not-found and
// exists are expected on probing paths and are kept apart from failures.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, store.ErrObjectNotFound):
		return "not_found"
	case errors.Is(err, store.ErrObjectExists):
		return "exists"
	default:
		return "error"
	}
}

func (m *storeMetrics) ObserveOperation(backend, operation string, duration time.Duration, err error) {
	m.operationsTotal.WithLabelValues(backend, operation, outcome(err)).Inc()
	m.operationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

func (m *storeMetrics) RecordBytes(backend, operation string, bytes int64) {
	m.bytesTransferred.WithLabelValues(backend, operation).Add(float64(bytes))
}
