package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "fiberui").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: a fresh prometheus.Registry, so repeated construction in
	// one process (tests, the registry server) never collides.
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// Metrics holds the installer's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	componentsResolved  prometheus.Counter
	unknownComponents   prometheus.Counter
	filesTotal          *prometheus.CounterVec
	materializeDuration prometheus.Histogram
	registryLoads       *prometheus.CounterVec
	registryRequests    *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers the installer metrics.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := MetricsConfig{
		Namespace: "fiberui",
		Buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}

	factory := promauto.With(config.Registry)

	m := &Metrics{
		componentsResolved: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "components_resolved_total",
			Help:        "Total number of components resolved for installation",
			ConstLabels: config.ConstLabels,
		}),

		unknownComponents: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "unknown_components_total",
			Help:        "Total number of requested components missing from the registry",
			ConstLabels: config.ConstLabels,
		}),

		filesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "files_total",
			Help:        "Total number of materialized files by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		materializeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "materialize_duration_seconds",
			Help:        "Time spent materializing a resolved file set",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		registryLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "registry_loads_total",
			Help:        "Total number of registry manifest loads",
			ConstLabels: config.ConstLabels,
		}, []string{"source", "result"}),

		registryRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "registry_requests_total",
			Help:        "Total number of requests served by the registry server",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "code"}),
	}

	if g, ok := config.Registry.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Gatherer returns the gatherer backing these metrics, if the configured
// registry is one.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return nil
	}
	return m.gatherer
}

// ObserveResolution records a resolution of resolved components with unknown misses.
func (m *Metrics) ObserveResolution(resolved, unknown int) {
	if m == nil {
		return
	}
	m.componentsResolved.Add(float64(resolved))
	m.unknownComponents.Add(float64(unknown))
}

// ObserveFile records one file outcome.
func (m *Metrics) ObserveFile(status string) {
	if m == nil {
		return
	}
	m.filesTotal.WithLabelValues(status).Inc()
}

// ObserveMaterialize records the duration of a materialization.
func (m *Metrics) ObserveMaterialize(d time.Duration) {
	if m == nil {
		return
	}
	m.materializeDuration.Observe(d.Seconds())
}

// ObserveRegistryLoad records a manifest load from a source kind.
func (m *Metrics) ObserveRegistryLoad(source string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.registryLoads.WithLabelValues(source, result).Inc()
}

// ObserveRequest records a request served by the registry server.
func (m *Metrics) ObserveRequest(route, code string) {
	if m == nil {
		return
	}
	m.registryRequests.WithLabelValues(route, code).Inc()
}

// WriteTextfile writes the metrics to path in the text exposition format,
// for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || m.gatherer == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.gatherer)
}
