package observability

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersCollectors(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)
	require.NotNil(t, m.Engine)
	require.NotNil(t, m.Knowledge)

	m.Engine.TrainTotal.WithLabelValues("success").Inc()
	m.Engine.TrainingSetSize.Set(42)
	m.Knowledge.RegisteredModels.Set(3)

	families, err := m.registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["clinmap_train_operations_total"])
	assert.True(t, names["clinmap_training_set_size"])
	assert.True(t, names["clinmap_knowledge_registered_models"])
}

func TestMetricsHandlerServesExposition(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)
	m.Engine.ModelVersion.Set(7)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "clinmap_model_version 7")
}
