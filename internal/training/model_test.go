package training

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinmap/clinmap-go/internal/extract"
)

func fitFixtureModel(t *testing.T) *Model {
	t.Helper()

	corpus := []extract.ViewEntry{
		entry("V1", "E1", "A1", "I1"),
		entry("V2", "E2", "A2", "I2"),
	}
	assocs := []extract.AssociationRecord{
		assoc("E1", "I1"), assoc("E1", "I1"),
		assoc("E2", "I2"), assoc("E2", "I2"),
	}
	table, err := BuildTrainingTable(assocs, corpus)
	require.NoError(t, err)

	m, err := Fit(table, corpus, Options{Trees: 50, Seed: 42})
	require.NoError(t, err)
	return m
}

func TestFitConcurrent(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			corpus := []extract.ViewEntry{entry("V1", "E1", "A1", "I1")}
			table, err := BuildTrainingTable([]extract.AssociationRecord{assoc("E1", "I1")}, corpus)
			assert.NoError(t, err)

			m, err := Fit(table, corpus, Options{Trees: 10, Seed: 42})
			assert.NoError(t, err)
			assert.NotNil(t, m)
		}()
	}
	wg.Wait()
}

func TestFitBuildsVocabulariesAndMetadata(t *testing.T) {
	t.Parallel()

	m := fitFixtureModel(t)

	assert.Equal(t, []string{"E1", "E2"}, m.EventVocab.Values)
	assert.Equal(t, []string{"I1", "I2"}, m.ItemVocab.Values)
	assert.Equal(t, []string{"V1", "V2"}, m.VisitVocab.Values)
	assert.Equal(t, []string{"A1", "A2"}, m.AttrVocab.Values)

	assert.NotEmpty(t, m.Metadata.ID)
	assert.Equal(t, 4, m.Metadata.TrainSamples)
	assert.Equal(t, 2, m.Metadata.MappingsCount)
	assert.Len(t, m.Corpus, 2)
	if m.Metadata.AccuracyEstimate != nil {
		assert.GreaterOrEqual(t, *m.Metadata.AccuracyEstimate, 0.0)
		assert.LessOrEqual(t, *m.Metadata.AccuracyEstimate, 100.0)
	}
}

func TestPredictRestrictedToVocabulary(t *testing.T) {
	t.Parallel()

	m := fitFixtureModel(t)

	input := []extract.AssociationRecord{
		assoc("E1", "I1"),
		assoc("E9", "I9"), // out of vocabulary
		assoc("E1", "I2"), // both ids known, pair unseen: still predictable
	}
	predictions := m.Predict(input)

	for _, p := range predictions {
		assert.True(t, m.EventVocab.Contains(p.StudyEventOID))
		assert.True(t, m.ItemVocab.Contains(p.ItemOID))
		assert.True(t, m.VisitVocab.Contains(p.TargetVisitID))
		assert.True(t, m.AttrVocab.Contains(p.TargetAttributeID))
	}

	unmapped := Unmapped(input, predictions)
	require.Len(t, unmapped, 1)
	assert.Equal(t, "E9", unmapped[0].StudyEventOID)
}

func TestPredictKnownPairRecoversTraining(t *testing.T) {
	t.Parallel()

	m := fitFixtureModel(t)

	predictions := m.Predict([]extract.AssociationRecord{assoc("E1", "I1")})
	require.Len(t, predictions, 1)
	assert.Equal(t, "V1", predictions[0].TargetVisitID)
	assert.Equal(t, "A1", predictions[0].TargetAttributeID)
}

func TestPredictDeduplicatesRepeatKeys(t *testing.T) {
	t.Parallel()

	m := fitFixtureModel(t)

	// the same source pair appearing twice (repeat keys) must yield one row
	input := []extract.AssociationRecord{
		{StudyEventOID: "E1", StudyEventRepeatKey: "1", ItemOID: "I1"},
		{StudyEventOID: "E1", StudyEventRepeatKey: "2", ItemOID: "I1"},
	}
	predictions := m.Predict(input)
	assert.Len(t, predictions, 1)
	assert.Empty(t, Unmapped(input, predictions))
}

func TestScenarioSingleJoinedRecord(t *testing.T) {
	t.Parallel()

	// E1/I1 joins to V1/A1, E2/I2 has no view counterpart
	corpus := []extract.ViewEntry{entry("V1", "E1", "A1", "I1")}
	assocs := []extract.AssociationRecord{assoc("E1", "I1"), assoc("E2", "I2")}

	table, err := BuildTrainingTable(assocs, corpus)
	require.NoError(t, err)
	require.Len(t, table, 1)

	m, err := Fit(table, corpus, Options{Trees: 20, Seed: 1})
	require.NoError(t, err)

	predictions := m.Predict(assocs)
	require.Len(t, predictions, 1)
	assert.Equal(t, "E1", predictions[0].StudyEventOID)
	assert.Equal(t, "V1", predictions[0].TargetVisitID)

	unmapped := Unmapped(assocs, predictions)
	require.Len(t, unmapped, 1)
	assert.Equal(t, "E2", unmapped[0].StudyEventOID)
}
