// Package training builds labeled training tables from extracted records and
// fits the predictive mapping model.
package training

import (
	"github.com/clinmap/clinmap-go/internal/errors"
	"github.com/clinmap/clinmap-go/internal/extract"
)

// Record is one row of the training table: an association record joined with
// the view entry whose source-side key matches it.
type Record struct {
	SubjectKey          string `json:"SubjectKey,omitempty"`
	StudyEventOID       string `json:"StudyEventOID"`
	StudyEventRepeatKey string `json:"StudyEventRepeatKey,omitempty"`
	ItemOID             string `json:"ItemOID"`
	SourceVisitID       string `json:"EDCVisitID"`
	SourceAttributeID   string `json:"EDCAttributeID"`
	TargetVisitID       string `json:"IMPACTVisitID"`
	TargetAttributeID   string `json:"IMPACTAttributeID"`
}

// BuildTrainingTable joins associations against view entries on the natural
// key (source visit id, source attribute id) == (event id, item id). When
// several view entries share a key the first one wins; the join never fans
// out. Output order follows association input order. An empty result is a
// hard error: training cannot proceed, and the two documents are most likely
// schema-mismatched.
func BuildTrainingTable(assocs []extract.AssociationRecord, entries []extract.ViewEntry) ([]Record, error) {
	lookup := make(map[extract.AssociationKey]extract.ViewEntry, len(entries))
	for i := range entries {
		key := entries[i].SourceKey()
		if _, ok := lookup[key]; !ok {
			lookup[key] = entries[i]
		}
	}

	var table []Record
	for i := range assocs {
		entry, ok := lookup[assocs[i].Key()]
		if !ok {
			continue
		}
		table = append(table, Record{
			SubjectKey:          assocs[i].SubjectKey,
			StudyEventOID:       assocs[i].StudyEventOID,
			StudyEventRepeatKey: assocs[i].StudyEventRepeatKey,
			ItemOID:             assocs[i].ItemOID,
			SourceVisitID:       entry.SourceVisitID,
			SourceAttributeID:   entry.SourceAttributeID,
			TargetVisitID:       entry.TargetVisitID,
			TargetAttributeID:   entry.TargetAttributeID,
		})
	}

	if len(table) == 0 {
		return nil, errors.New(errors.ErrEmptyTrainingSet).
			Component("training").
			Category(errors.CategoryTraining).
			Context("associations", len(assocs)).
			Context("view_entries", len(entries)).
			Build()
	}

	return table, nil
}
