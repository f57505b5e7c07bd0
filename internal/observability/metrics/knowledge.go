package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// KnowledgeMetrics contains Prometheus metrics for the knowledge base.
type KnowledgeMetrics struct {
	OperationTotal   *prometheus.CounterVec
	OperationErrors  *prometheus.CounterVec
	SavedMappings    prometheus.Gauge
	RegisteredModels prometheus.Gauge

	registry *prometheus.Registry
}

// NewKnowledgeMetrics creates a new instance of KnowledgeMetrics and
// registers it with the provided registry.
func NewKnowledgeMetrics(registry *prometheus.Registry) (*KnowledgeMetrics, error) {
	m := &KnowledgeMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register knowledge metrics: %w", err)
	}
	return m, nil
}

func (m *KnowledgeMetrics) initMetrics() {
	m.OperationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinmap_knowledge_operations_total",
			Help: "Total number of knowledge base operations partitioned by operation.",
		},
		[]string{"operation"},
	)
	m.OperationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinmap_knowledge_operation_errors_total",
			Help: "Total number of failed knowledge base operations partitioned by operation.",
		},
		[]string{"operation"},
	)
	m.SavedMappings = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clinmap_knowledge_saved_mappings",
			Help: "Number of user-corrected mappings stored in the knowledge base.",
		},
	)
	m.RegisteredModels = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clinmap_knowledge_registered_models",
			Help: "Number of models in the registry.",
		},
	)
}

// Describe implements the prometheus.Collector interface.
func (m *KnowledgeMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.OperationTotal.Describe(ch)
	m.OperationErrors.Describe(ch)
	ch <- m.SavedMappings.Desc()
	ch <- m.RegisteredModels.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *KnowledgeMetrics) Collect(ch chan<- prometheus.Metric) {
	m.OperationTotal.Collect(ch)
	m.OperationErrors.Collect(ch)
	ch <- m.SavedMappings
	ch <- m.RegisteredModels
}
