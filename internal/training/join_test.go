package training

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinmap/clinmap-go/internal/errors"
	"github.com/clinmap/clinmap-go/internal/extract"
)

func assoc(event, item string) extract.AssociationRecord {
	return extract.AssociationRecord{SubjectKey: "S1", StudyEventOID: event, ItemOID: item}
}

func entry(visit, sourceVisit, attr, sourceAttr string) extract.ViewEntry {
	return extract.ViewEntry{
		TargetVisitID:     visit,
		SourceVisitID:     sourceVisit,
		TargetAttributeID: attr,
		SourceAttributeID: sourceAttr,
	}
}

func TestBuildTrainingTable(t *testing.T) {
	t.Parallel()

	assocs := []extract.AssociationRecord{
		assoc("E1", "I1"),
		assoc("E2", "I2"), // no view counterpart, dropped
		assoc("E1", "I3"),
	}
	entries := []extract.ViewEntry{
		entry("V1", "E1", "A1", "I1"),
		entry("V1", "E1", "A3", "I3"),
		entry("V9", "E9", "A9", "I9"), // no association counterpart
	}

	table, err := BuildTrainingTable(assocs, entries)
	require.NoError(t, err)
	require.Len(t, table, 2)

	// output order follows association input order
	assert.Equal(t, "I1", table[0].ItemOID)
	assert.Equal(t, "A1", table[0].TargetAttributeID)
	assert.Equal(t, "V1", table[0].TargetVisitID)
	assert.Equal(t, "E1", table[0].SourceVisitID)
	assert.Equal(t, "I3", table[1].ItemOID)
	assert.Equal(t, "S1", table[1].SubjectKey)
}

func TestBuildTrainingTableFirstMatchWins(t *testing.T) {
	t.Parallel()

	assocs := []extract.AssociationRecord{assoc("E1", "I1")}
	entries := []extract.ViewEntry{
		entry("V1", "E1", "A1", "I1"),
		entry("V2", "E1", "A2", "I1"), // same source key, must lose
	}

	table, err := BuildTrainingTable(assocs, entries)
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.Equal(t, "V1", table[0].TargetVisitID)
	assert.Equal(t, "A1", table[0].TargetAttributeID)
}

func TestBuildTrainingTableEmpty(t *testing.T) {
	t.Parallel()

	_, err := BuildTrainingTable(
		[]extract.AssociationRecord{assoc("E1", "I1")},
		[]extract.ViewEntry{entry("V1", "E9", "A1", "I9")},
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrEmptyTrainingSet))
}
