// Package metrics provides custom Prometheus metrics for the mapping engine.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics contains all Prometheus metrics related to the core engine
// operations: training, prediction, validation and export.
type EngineMetrics struct {
	// Operation counters
	TrainTotal      *prometheus.CounterVec
	PredictionTotal *prometheus.CounterVec
	ValidationTotal *prometheus.CounterVec
	ExportTotal     *prometheus.CounterVec

	// Duration histograms
	TrainDuration      prometheus.Histogram
	PredictionDuration prometheus.Histogram
	ValidationDuration prometheus.Histogram
	ExportDuration     prometheus.Histogram

	// Current state gauges
	TrainingSetSize prometheus.Gauge
	ModelAccuracy   prometheus.Gauge
	ModelVersion    prometheus.Gauge

	// Document metrics
	DocumentParseErrors *prometheus.CounterVec
	PredictedMappings   prometheus.Histogram

	registry *prometheus.Registry
}

// NewEngineMetrics creates a new instance of EngineMetrics and registers it
// with the provided registry.
func NewEngineMetrics(registry *prometheus.Registry) (*EngineMetrics, error) {
	m := &EngineMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register engine metrics: %w", err)
	}
	return m, nil
}

func (m *EngineMetrics) initMetrics() {
	m.TrainTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinmap_train_operations_total",
			Help: "Total number of training runs partitioned by status.",
		},
		[]string{"status"},
	)
	m.PredictionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinmap_predict_operations_total",
			Help: "Total number of prediction runs partitioned by status.",
		},
		[]string{"status"},
	)
	m.ValidationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinmap_validate_operations_total",
			Help: "Total number of validation runs partitioned by status.",
		},
		[]string{"status"},
	)
	m.ExportTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinmap_export_operations_total",
			Help: "Total number of document exports partitioned by status.",
		},
		[]string{"status"},
	)

	m.TrainDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clinmap_train_duration_seconds",
			Help:    "Time taken to train a model.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)
	m.PredictionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clinmap_predict_duration_seconds",
			Help:    "Time taken to produce predictions for a document.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)
	m.ValidationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clinmap_validate_duration_seconds",
			Help:    "Time taken to validate candidate mappings.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)
	m.ExportDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clinmap_export_duration_seconds",
			Help:    "Time taken to write mappings back into a document.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	m.TrainingSetSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clinmap_training_set_size",
			Help: "Number of joined records in the most recent training table.",
		},
	)
	m.ModelAccuracy = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clinmap_model_accuracy_percent",
			Help: "Out-of-bag accuracy estimate of the most recently trained model.",
		},
	)
	m.ModelVersion = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clinmap_model_version",
			Help: "Registry version of the most recently trained model.",
		},
	)

	m.DocumentParseErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinmap_document_parse_errors_total",
			Help: "Total number of malformed documents rejected, partitioned by document kind.",
		},
		[]string{"kind"},
	)
	m.PredictedMappings = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clinmap_predicted_mappings_per_run",
			Help:    "Number of distinct mappings produced per prediction run.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
}

// Describe implements the prometheus.Collector interface.
func (m *EngineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.TrainTotal.Describe(ch)
	m.PredictionTotal.Describe(ch)
	m.ValidationTotal.Describe(ch)
	m.ExportTotal.Describe(ch)

	ch <- m.TrainDuration.Desc()
	ch <- m.PredictionDuration.Desc()
	ch <- m.ValidationDuration.Desc()
	ch <- m.ExportDuration.Desc()

	ch <- m.TrainingSetSize.Desc()
	ch <- m.ModelAccuracy.Desc()
	ch <- m.ModelVersion.Desc()

	m.DocumentParseErrors.Describe(ch)
	ch <- m.PredictedMappings.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *EngineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.TrainTotal.Collect(ch)
	m.PredictionTotal.Collect(ch)
	m.ValidationTotal.Collect(ch)
	m.ExportTotal.Collect(ch)

	ch <- m.TrainDuration
	ch <- m.PredictionDuration
	ch <- m.ValidationDuration
	ch <- m.ExportDuration

	ch <- m.TrainingSetSize
	ch <- m.ModelAccuracy
	ch <- m.ModelVersion

	m.DocumentParseErrors.Collect(ch)
	ch <- m.PredictedMappings
}
