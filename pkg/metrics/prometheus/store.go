// Package prometheus provides the Prometheus implementations behind the
// pkg/metrics constructors. Importing it (usually blank) wires the
// implementations in.
package prometheus

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/metacache/pkg/metrics"
	"github.com/marmos91/metacache/pkg/pathmeta"
)

func init() {
	metrics.RegisterStoreMetricsConstructor(newStoreMetrics)
}

// storeCollectors are the metric vectors shared by every store instance;
// the store type is a label, so they must be registered once.
type storeCollectors struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

var (
	collectorsOnce sync.Once
	collectorsInst *storeCollectors
)

func sharedCollectors() *storeCollectors {
	collectorsOnce.Do(func() {
		reg := metrics.GetRegistry()
		collectorsInst = &storeCollectors{
			operations: promauto.With(reg).NewCounterVec(
				prometheus.CounterOpts{
					Name: "metacache_store_operations_total",
					Help: "Total number of metadata store operations by store type, operation, and status",
				},
				[]string{"store_type", "operation", "status"}, // status: "ok", "error"
			),
			duration: promauto.With(reg).NewHistogramVec(
				prometheus.HistogramOpts{
					Name: "metacache_store_operation_duration_milliseconds",
					Help: "Duration of metadata store operations in milliseconds",
					Buckets: []float64{
						0.05, // in-memory hits
						0.1,
						0.5,
						1,
						5,
						10, // local durable stores
						50,
						100, // networked stores
						500,
						1000,
					},
				},
				[]string{"store_type", "operation"},
			),
		}
	})
	return collectorsInst
}

// storeMetrics is the Prometheus implementation of pathmeta.StoreMetrics.
type storeMetrics struct {
	storeType  string
	collectors *storeCollectors
}

func newStoreMetrics(storeType string) pathmeta.StoreMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return &storeMetrics{
		storeType:  storeType,
		collectors: sharedCollectors(),
	}
}

// ObserveOp records one completed store operation.
func (m *storeMetrics) ObserveOp(op string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.collectors.operations.WithLabelValues(m.storeType, op, status).Inc()
	m.collectors.duration.WithLabelValues(m.storeType, op).
		Observe(float64(duration.Microseconds()) / 1000.0)
}
