package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion pipeline and the query API.
type Metrics struct {
	MessagesConsumed prometheus.Counter
	RecordsProduced  prometheus.Counter
	TransformErrors  prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Dataset and quality metrics.
	DatasetSize  prometheus.Gauge
	QualityScore *prometheus.GaugeVec // labels: source

	// Query API metrics.
	HTTPRequests *prometheus.CounterVec // labels: endpoint, status
	CacheLookups *prometheus.CounterVec // labels: result={hit,miss}
}

// ObserveRequest counts one query API request.
func (m *Metrics) ObserveRequest(endpoint string, status int) {
	m.HTTPRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}

// ObserveCacheLookup counts one response cache lookup.
func (m *Metrics) ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_analytics",
			Name:      "messages_consumed_total",
			Help:      "Total messages read from the source topic.",
		}),
		RecordsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_analytics",
			Name:      "records_produced_total",
			Help:      "Total unified records written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_analytics",
			Name:      "transform_errors_total",
			Help:      "Total provider payloads that failed transformation.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_analytics",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hazard_analytics",
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hazard_analytics",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		DatasetSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_analytics",
			Name:      "dataset_size",
			Help:      "Records currently held in the in-memory working set.",
		}),
		QualityScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "hazard_analytics",
			Name:      "quality_score",
			Help:      "Latest overall quality score per source.",
		}, []string{"source"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_analytics",
			Name:      "http_requests_total",
			Help:      "Query API requests by endpoint and status code.",
		}, []string{"endpoint", "status"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_analytics",
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by result.",
		}, []string{"result"}),
	}

	prometheus.MustRegister(
		m.MessagesConsumed,
		m.RecordsProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.DatasetSize,
		m.QualityScore,
		m.HTTPRequests,
		m.CacheLookups,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		MessagesConsumed:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hazard_analytics", Name: "messages_consumed_total"}),
		RecordsProduced:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hazard_analytics", Name: "records_produced_total"}),
		TransformErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hazard_analytics", Name: "transform_errors_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "hazard_analytics", Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "hazard_analytics", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "hazard_analytics", Name: "batch_processing_duration_seconds"}),
		DatasetSize:             prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "hazard_analytics", Name: "dataset_size"}),
		QualityScore:            prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "hazard_analytics", Name: "quality_score"}, []string{"source"}),
		HTTPRequests:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hazard_analytics", Name: "http_requests_total"}, []string{"endpoint", "status"}),
		CacheLookups:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hazard_analytics", Name: "cache_lookups_total"}, []string{"result"}),
	}
}
