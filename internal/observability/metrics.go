// Package observability provides metrics and monitoring capabilities for the
// mapping service.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clinmap/clinmap-go/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry  *prometheus.Registry
	Engine    *metrics.EngineMetrics
	Knowledge *metrics.KnowledgeMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric
// collectors. It returns an error if any metric collector fails to register.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	engineMetrics, err := metrics.NewEngineMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine metrics: %w", err)
	}

	knowledgeMetrics, err := metrics.NewKnowledgeMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create knowledge metrics: %w", err)
	}

	return &Metrics{
		registry:  registry,
		Engine:    engineMetrics,
		Knowledge: knowledgeMetrics,
	}, nil
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}
