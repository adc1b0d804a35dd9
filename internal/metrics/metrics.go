package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records per-invocation metrics.
type Collector interface {
	RecordOperation(ctx context.Context, operation string, status string, d time.Duration)
	SetTrackedPaths(ctx context.Context, total, live int64)
	SetSchemaVersion(ctx context.Context, version int64)
	Flush() error
}

// TextfileCollector keeps metrics in a private registry and writes them to a
// file in the Prometheus text format, for node_exporter's textfile collector.
// Each invocation rewrites the file atomically.
type TextfileCollector struct {
	path string

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	trackedPaths      *prometheus.GaugeVec
	schemaVersion     prometheus.Gauge
	registry          *prometheus.Registry
}

// NewTextfileCollector creates a collector that writes to path on Flush.
func NewTextfileCollector(path string) *TextfileCollector {
	registry := prometheus.NewRegistry()

	operationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freqdirs_operations_total",
			Help: "Number of freqdirs operations by type and status",
		},
		[]string{"operation", "status"},
	)

	operationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "freqdirs_operation_duration_seconds",
			Help:    "Duration of freqdirs operations, including lock wait",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"operation"},
	)

	trackedPaths := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "freqdirs_tracked_paths",
			Help: "Paths in the store, split by whether they are inside the forget window",
		},
		[]string{"state"},
	)

	schemaVersion := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "freqdirs_schema_version",
		Help: "Highest applied schema migration",
	})

	registry.MustRegister(operationsTotal, operationDuration, trackedPaths, schemaVersion)

	return &TextfileCollector{
		path:              path,
		operationsTotal:   operationsTotal,
		operationDuration: operationDuration,
		trackedPaths:      trackedPaths,
		schemaVersion:     schemaVersion,
		registry:          registry,
	}
}

// RecordOperation counts one operation and observes its duration.
func (c *TextfileCollector) RecordOperation(ctx context.Context, operation string, status string, d time.Duration) {
	c.operationsTotal.WithLabelValues(operation, status).Inc()
	c.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// SetTrackedPaths sets the total and live path gauges.
func (c *TextfileCollector) SetTrackedPaths(ctx context.Context, total, live int64) {
	c.trackedPaths.WithLabelValues("live").Set(float64(live))
	c.trackedPaths.WithLabelValues("forgotten").Set(float64(total - live))
}

// SetSchemaVersion sets the schema version gauge.
func (c *TextfileCollector) SetSchemaVersion(ctx context.Context, version int64) {
	c.schemaVersion.Set(float64(version))
}

// Flush writes all metrics to the configured file.
func (c *TextfileCollector) Flush() error {
	if err := prometheus.WriteToTextfile(c.path, c.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", c.path, err)
	}
	return nil
}

// Registry returns the underlying registry.
func (c *TextfileCollector) Registry() *prometheus.Registry {
	return c.registry
}

// NoopCollector discards everything; used when no metrics file is configured.
type NoopCollector struct{}

func NewNoopCollector() *NoopCollector { return &NoopCollector{} }

func (NoopCollector) RecordOperation(ctx context.Context, operation string, status string, d time.Duration) {
}

func (NoopCollector) SetTrackedPaths(ctx context.Context, total, live int64) {}

func (NoopCollector) SetSchemaVersion(ctx context.Context, version int64) {}

func (NoopCollector) Flush() error { return nil }

// New returns a TextfileCollector for path, or a NoopCollector when path is empty.
func New(path string) Collector {
	if path == "" {
		return NewNoopCollector()
	}
	return NewTextfileCollector(path)
}
