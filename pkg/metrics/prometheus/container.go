// Package prometheus provides Prometheus-backed implementations of the
// metrics interfaces used by inodefs components.
package prometheus

import (
	"time"

	"github.com/marmos91/inodefs/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// containerMetrics is the Prometheus implementation of metrics.ContainerMetrics.
type containerMetrics struct {
	container          string
	operationsTotal    *prometheus.CounterVec
	operationDuration  *prometheus.HistogramVec
	bytesTransferred   *prometheus.CounterVec
	capacityRejections *prometheus.CounterVec
	usedBytes          prometheus.Gauge
	usedNodes          prometheus.Gauge
}

// NewContainerMetrics creates a ContainerMetrics registered on the global registry.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
//
// Parameters:
//   - container: Container name, used as a label to tell containers apart
func NewContainerMetrics(container string) metrics.ContainerMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopContainerMetrics()
	}
	return NewContainerMetricsWith(metrics.GetRegistry(), container)
}

// NewContainerMetricsWith creates a ContainerMetrics registered on reg.
//
// Registering twice on the same registry panics, as with any promauto collector.
func NewContainerMetricsWith(reg prometheus.Registerer, container string) metrics.ContainerMetrics {
	labels := prometheus.Labels{"container": container}

	return &containerMetrics{
		container: container,
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name:        "inodefs_container_operations_total",
				Help:        "Total number of container operations by operation, status, and error code",
				ConstLabels: labels,
			},
			[]string{"operation", "status", "error_code"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "inodefs_container_operation_duration_seconds",
				Help:        "Duration of container operations in seconds",
				ConstLabels: labels,
				Buckets: []float64{
					0.00001, // 10µs
					0.0001,  // 100µs
					0.001,   // 1ms
					0.01,    // 10ms
					0.1,     // 100ms
					1.0,     // 1s
					10.0,    // 10s
				},
			},
			[]string{"operation"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name:        "inodefs_container_bytes_transferred_total",
				Help:        "Total bytes read from or written to the container",
				ConstLabels: labels,
			},
			[]string{"direction"},
		),
		capacityRejections: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name:        "inodefs_container_capacity_rejections_total",
				Help:        "Total number of operations refused by a capacity limit",
				ConstLabels: labels,
			},
			[]string{"resource"},
		),
		usedBytes: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name:        "inodefs_container_used_bytes",
				Help:        "Logical bytes currently accounted to the container",
				ConstLabels: labels,
			},
		),
		usedNodes: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name:        "inodefs_container_used_nodes",
				Help:        "Directory entries currently accounted to the container",
				ConstLabels: labels,
			},
		),
	}
}

func (m *containerMetrics) RecordOperation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	m.operationsTotal.WithLabelValues(operation, status, metrics.ErrorLabel(err)).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *containerMetrics) RecordBytes(direction string, bytes int64) {
	m.bytesTransferred.WithLabelValues(direction).Add(float64(bytes))
}

func (m *containerMetrics) RecordCapacityRejection(resource string) {
	m.capacityRejections.WithLabelValues(resource).Inc()
}

func (m *containerMetrics) SetUsage(totalBytes uint64, nodes uint64) {
	m.usedBytes.Set(float64(totalBytes))
	m.usedNodes.Set(float64(nodes))
}
