package extract

// AssociationRecord is one data-capture association extracted from an ODM
// document: which item was captured under which study event, for which
// subject. Event and item identifiers are always present; subject and repeat
// keys are carried when the document provides them.
type AssociationRecord struct {
	SubjectKey          string `json:"SubjectKey,omitempty"`
	StudyEventOID       string `json:"StudyEventOID"`
	StudyEventRepeatKey string `json:"StudyEventRepeatKey,omitempty"`
	ItemOID             string `json:"ItemOID"`
}

// Key returns the natural key used to join associations against view entries.
func (r *AssociationRecord) Key() AssociationKey {
	return AssociationKey{Event: r.StudyEventOID, Item: r.ItemOID}
}

// AssociationKey identifies an association by its source event and item pair.
type AssociationKey struct {
	Event string
	Item  string
}

// ViewEntry is one association from a ViewMapping document, linking the
// source-side visit and attribute identifiers to their target-side
// counterparts. All four fields are required; incomplete attribute elements
// are dropped during extraction.
type ViewEntry struct {
	TargetVisitID     string `json:"IMPACTVisitID"`
	SourceVisitID     string `json:"EDCVisitID"`
	TargetAttributeID string `json:"IMPACTAttributeID"`
	SourceAttributeID string `json:"EDCAttributeID"`
}

// SourceKey returns the source-side pair that doubles as the join key
// against association records.
func (v *ViewEntry) SourceKey() AssociationKey {
	return AssociationKey{Event: v.SourceVisitID, Item: v.SourceAttributeID}
}

// Tuple returns the full 4-tuple identity of the entry, used for exact
// membership tests during validation.
func (v *ViewEntry) Tuple() MappingTuple {
	return MappingTuple{
		TargetVisitID:     v.TargetVisitID,
		SourceVisitID:     v.SourceVisitID,
		TargetAttributeID: v.TargetAttributeID,
		SourceAttributeID: v.SourceAttributeID,
	}
}

// MappingTuple is the comparable 4-tuple identity of a view entry.
type MappingTuple struct {
	TargetVisitID     string
	SourceVisitID     string
	TargetAttributeID string
	SourceAttributeID string
}
