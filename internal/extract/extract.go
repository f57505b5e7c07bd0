// Package extract turns ODM and ViewMapping XML documents into flat
// association records using a sponsor's schema profile.
package extract

import (
	"log/slog"

	"github.com/beevik/etree"

	"github.com/clinmap/clinmap-go/internal/conf"
	"github.com/clinmap/clinmap-go/internal/logging"
)

// ODM and ViewMapping structural element names. These are fixed across
// sponsors; only attribute names vary, and those come from the profile.
const (
	elemSubjectData    = "SubjectData"
	elemStudyEventData = "StudyEventData"
	elemFormData       = "FormData"
	elemItemGroupData  = "ItemGroupData"
	elemItemData       = "ItemData"
	elemVisit          = "Visit"
	elemAttribute      = "Attribute"
)

// getLogger returns a fresh child logger on every call so concurrent
// extractions never share mutable package state.
func getLogger() *slog.Logger {
	if l := logging.ForService("extract"); l != nil {
		return l
	}
	return slog.Default().With("service", "extract")
}

// Associations walks the ODM hierarchy subject, study event, form, item
// group, item and emits one record per item element whose event and item
// identifiers are both present and non-empty. Elements missing either
// identifier are skipped, not errored; partially populated documents are
// tolerated. The walk is a pure function of the parsed document, so
// re-running it yields identical output.
func Associations(doc *etree.Document, profile *conf.SchemaProfile) []AssociationRecord {
	var records []AssociationRecord
	root := doc.Root()

	for _, subject := range FindDescendants(root, elemSubjectData) {
		subjectKey := subject.SelectAttrValue(profile.SubjectKeyAttr, "")
		for _, event := range FindDescendants(subject, elemStudyEventData) {
			eventOID := event.SelectAttrValue(profile.EventAttr, "")
			repeatKey := event.SelectAttrValue(profile.EventRepeatAttr, "")
			for _, form := range FindDescendants(event, elemFormData) {
				for _, group := range FindDescendants(form, elemItemGroupData) {
					for _, item := range FindDescendants(group, elemItemData) {
						itemOID := item.SelectAttrValue(profile.ItemAttr, "")
						if eventOID == "" || itemOID == "" {
							continue
						}
						records = append(records, AssociationRecord{
							SubjectKey:          subjectKey,
							StudyEventOID:       eventOID,
							StudyEventRepeatKey: repeatKey,
							ItemOID:             itemOID,
						})
					}
				}
			}
		}
	}

	getLogger().Debug("extracted association records", "count", len(records))
	return records
}

// ViewEntries walks the ViewMapping hierarchy visit, attribute and emits one
// entry per attribute element whose four profiled identifiers are all
// present and non-empty.
func ViewEntries(doc *etree.Document, profile *conf.SchemaProfile) []ViewEntry {
	var entries []ViewEntry
	root := doc.Root()

	for _, visit := range FindDescendants(root, elemVisit) {
		targetVisit := visit.SelectAttrValue(profile.TargetVisitAttr, "")
		sourceVisit := visit.SelectAttrValue(profile.SourceVisitAttr, "")
		for _, attribute := range FindDescendants(visit, elemAttribute) {
			targetAttr := attribute.SelectAttrValue(profile.TargetAttributeAttr, "")
			sourceAttr := attribute.SelectAttrValue(profile.SourceAttributeAttr, "")
			if targetVisit == "" || sourceVisit == "" || targetAttr == "" || sourceAttr == "" {
				continue
			}
			entries = append(entries, ViewEntry{
				TargetVisitID:     targetVisit,
				SourceVisitID:     sourceVisit,
				TargetAttributeID: targetAttr,
				SourceAttributeID: sourceAttr,
			})
		}
	}

	getLogger().Debug("extracted view entries", "count", len(entries))
	return entries
}

// AssociationsFromBytes parses and extracts in one step.
func AssociationsFromBytes(data []byte, path string, profile *conf.SchemaProfile) ([]AssociationRecord, error) {
	doc, err := ParseDocument(data, path)
	if err != nil {
		return nil, err
	}
	return Associations(doc, profile), nil
}

// ViewEntriesFromBytes parses and extracts in one step.
func ViewEntriesFromBytes(data []byte, path string, profile *conf.SchemaProfile) ([]ViewEntry, error) {
	doc, err := ParseDocument(data, path)
	if err != nil {
		return nil, err
	}
	return ViewEntries(doc, profile), nil
}
