package knowledge

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store := New(filepath.Join(t.TempDir(), "knowledge.db"))
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestModelRegistryVersioning(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)

	latest, err := store.LatestModel()
	require.NoError(t, err)
	assert.Nil(t, latest)

	v, err := store.NextVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	acc := 97.5
	require.NoError(t, store.RegisterModel(&ModelRecord{
		Version:          1,
		ArtifactID:       "a1",
		ArtifactPath:     "models/model_v1.bin",
		TrainedAt:        time.Now().UTC(),
		ODMFilename:      "odm.xml",
		ViewMapFilename:  "viewmap.xml",
		TrainSamples:     120,
		MappingsCount:    14,
		AccuracyEstimate: &acc,
	}))
	require.NoError(t, store.RegisterModel(&ModelRecord{Version: 2, ArtifactID: "a2", TrainedAt: time.Now().UTC()}))

	latest, err = store.LatestModel()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 2, latest.Version)
	assert.Equal(t, "a2", latest.ArtifactID)

	v, err = store.NextVersion()
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	models, err := store.Models()
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, 1, models[0].Version)
	require.NotNil(t, models[0].AccuracyEstimate)
	assert.InDelta(t, 97.5, *models[0].AccuracyEstimate, 1e-9)
}

func TestActivityFeedNewestFirst(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)

	require.NoError(t, store.AddActivity(ActivityTrain, "model v1 trained"))
	require.NoError(t, store.AddActivity(ActivityPredict, "42 mappings predicted"))
	require.NoError(t, store.AddActivity(ActivityExport, "document exported"))

	activities, err := store.RecentActivity(2)
	require.NoError(t, err)
	require.Len(t, activities, 2)
	assert.Equal(t, ActivityExport, activities[0].Type)
	assert.Equal(t, ActivityPredict, activities[1].Type)
}

func TestUserMappings(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)

	count, err := store.UserMappingCount()
	require.NoError(t, err)
	assert.Zero(t, count)

	// an empty batch is a no-op, not an error
	require.NoError(t, store.SaveUserMappings(nil))

	require.NoError(t, store.SaveUserMappings([]UserMapping{
		{ODMFilename: "odm.xml", StudyEventOID: "E1", ItemOID: "I1", TargetVisitID: "V1", TargetAttributeID: "A1"},
		{ODMFilename: "odm.xml", StudyEventOID: "E2", ItemOID: "I2", TargetVisitID: "V2", TargetAttributeID: "A2"},
	}))

	count, err = store.UserMappingCount()
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestStateRoundTrip(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)

	v, err := store.GetState(StateLatestODM)
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, store.SetState(StateLatestODM, "uploads/odm.xml"))
	require.NoError(t, store.SetState(StateLatestODM, "uploads/odm2.xml"))

	v, err = store.GetState(StateLatestODM)
	require.NoError(t, err)
	assert.Equal(t, "uploads/odm2.xml", v)
}

func TestStatsAggregation(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.Models)
	assert.Nil(t, stats.Accuracy)
	assert.Nil(t, stats.LastUpdated)

	a1, a2 := 90.0, 100.0
	first := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	second := time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.RegisterModel(&ModelRecord{Version: 1, TrainedAt: first, AccuracyEstimate: &a1}))
	require.NoError(t, store.RegisterModel(&ModelRecord{Version: 2, TrainedAt: second, AccuracyEstimate: &a2}))
	require.NoError(t, store.RegisterModel(&ModelRecord{Version: 3, TrainedAt: second}))
	require.NoError(t, store.SaveUserMappings([]UserMapping{{StudyEventOID: "E1", ItemOID: "I1"}}))

	stats, err = store.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Models)
	assert.EqualValues(t, 1, stats.Mappings)
	require.NotNil(t, stats.Accuracy)
	assert.InDelta(t, 95.0, *stats.Accuracy, 1e-9)
	require.NotNil(t, stats.LastUpdated)
	assert.True(t, stats.LastUpdated.Equal(second))
	assert.Len(t, stats.ModelRegistry, 3)
}

func TestValidationRunPersisted(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)

	acc := 75.0
	require.NoError(t, store.AddValidationRun(&ValidationRun{
		ModelVersion: 1,
		Time:         time.Now().UTC(),
		Filename:     "viewmap.xml",
		Total:        4,
		Wrong:        1,
		Accuracy:     &acc,
	}))

	var runs []ValidationRun
	require.NoError(t, store.DB.Find(&runs).Error)
	require.Len(t, runs, 1)
	assert.Equal(t, 4, runs[0].Total)
}
