package training

import (
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/clinmap/clinmap-go/internal/extract"
	"github.com/clinmap/clinmap-go/internal/logging"
)

// Metadata describes a trained model for the registry and status endpoints.
type Metadata struct {
	ID               string    `json:"id"`
	TrainedAt        time.Time `json:"trained_at"`
	TrainSamples     int       `json:"train_samples"`
	MappingsCount    int       `json:"mappings_count"`
	AccuracyEstimate *float64  `json:"accuracy_estimate"`
	Notes            string    `json:"notes"`
}

// Model is the trained predictive mapping bundle: the four categorical
// vocabularies, the two fitted classifiers, and the verbatim view-entry
// corpus retained as the known-correct set for validation. Models are
// immutable once fitted.
type Model struct {
	EventVocab *Vocabulary
	ItemVocab  *Vocabulary
	VisitVocab *Vocabulary
	AttrVocab  *Vocabulary

	VisitClassifier     Classifier
	AttributeClassifier Classifier

	Corpus []extract.ViewEntry

	Metadata Metadata
}

// Options configure a training run.
type Options struct {
	Trees int   // ensemble size per classifier
	Seed  int64 // random seed for deterministic training

	// NewClassifier overrides the default forest; both classifier heads are
	// created through it.
	NewClassifier func() Classifier
}

// PredictedMapping is one inferred association for a source pair seen during
// training.
type PredictedMapping struct {
	StudyEventOID     string `json:"StudyEventOID"`
	ItemOID           string `json:"ItemOID"`
	TargetVisitID     string `json:"IMPACTVisitID"`
	TargetAttributeID string `json:"IMPACTAttributeID"`
}

// getLogger returns a fresh child logger on every call so concurrent
// training runs never share mutable package state.
func getLogger() *slog.Logger {
	if l := logging.ForService("training"); l != nil {
		return l
	}
	return slog.Default().With("service", "training")
}

// Fit trains the two classifier heads from the training table and retains
// corpus as the known-correct set. The accuracy estimate is the average of
// the heads' out-of-bag estimates as a percentage, nil when either head has
// none.
func Fit(table []Record, corpus []extract.ViewEntry, opts Options) (*Model, error) {
	newClassifier := opts.NewClassifier
	if newClassifier == nil {
		newClassifier = func() Classifier { return NewForest(opts.Trees, opts.Seed) }
	}

	m := &Model{
		EventVocab:          NewVocabulary(),
		ItemVocab:           NewVocabulary(),
		VisitVocab:          NewVocabulary(),
		AttrVocab:           NewVocabulary(),
		VisitClassifier:     newClassifier(),
		AttributeClassifier: newClassifier(),
		Corpus:              corpus,
	}

	features := make([]PairKey, len(table))
	visitLabels := make([]int, len(table))
	attrLabels := make([]int, len(table))
	for i := range table {
		features[i] = PairKey{
			Event: m.EventVocab.Add(table[i].StudyEventOID),
			Item:  m.ItemVocab.Add(table[i].ItemOID),
		}
		visitLabels[i] = m.VisitVocab.Add(table[i].TargetVisitID)
		attrLabels[i] = m.AttrVocab.Add(table[i].TargetAttributeID)
	}

	if err := m.VisitClassifier.Fit(features, visitLabels, m.VisitVocab.Len()); err != nil {
		return nil, err
	}
	if err := m.AttributeClassifier.Fit(features, attrLabels, m.AttrVocab.Len()); err != nil {
		return nil, err
	}

	m.Metadata = Metadata{
		ID:            uuid.NewString(),
		TrainedAt:     time.Now().UTC(),
		TrainSamples:  len(table),
		MappingsCount: len(corpus),
		Notes:         "bagged categorical forest mapping model",
	}
	if acc, ok := averageAccuracy(m.VisitClassifier, m.AttributeClassifier); ok {
		m.Metadata.AccuracyEstimate = &acc
	}

	getLogger().Info("training completed",
		"samples", len(table),
		"mappings", len(corpus),
		"events", m.EventVocab.Len(),
		"items", m.ItemVocab.Len())

	return m, nil
}

// averageAccuracy combines the two heads' internal estimates into a single
// percentage rounded to two decimals.
func averageAccuracy(visit, attr Classifier) (float64, bool) {
	accVisit, okVisit := visit.AccuracyEstimate()
	accAttr, okAttr := attr.AccuracyEstimate()
	if !okVisit || !okAttr {
		return 0, false
	}
	return math.Round((accVisit+accAttr)/2*100*100) / 100, true
}

// Predict infers target identifiers for each association whose (event, item)
// pair is in the training vocabulary. Out-of-vocabulary pairs are silently
// excluded; the caller reports them as unmapped by set difference. Output is
// de-duplicated by (event, item, predicted visit), keeping the first
// occurrence, so repeat keys do not fan out.
func (m *Model) Predict(assocs []extract.AssociationRecord) []PredictedMapping {
	type dedupKey struct {
		event, item, visit string
	}
	seen := make(map[dedupKey]struct{})
	var predictions []PredictedMapping

	for i := range assocs {
		eventIdx, ok := m.EventVocab.Index(assocs[i].StudyEventOID)
		if !ok {
			continue
		}
		itemIdx, ok := m.ItemVocab.Index(assocs[i].ItemOID)
		if !ok {
			continue
		}

		feature := PairKey{Event: eventIdx, Item: itemIdx}
		visit := m.VisitVocab.Value(m.VisitClassifier.Predict(feature))
		attr := m.AttrVocab.Value(m.AttributeClassifier.Predict(feature))

		key := dedupKey{event: assocs[i].StudyEventOID, item: assocs[i].ItemOID, visit: visit}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		predictions = append(predictions, PredictedMapping{
			StudyEventOID:     assocs[i].StudyEventOID,
			ItemOID:           assocs[i].ItemOID,
			TargetVisitID:     visit,
			TargetAttributeID: attr,
		})
	}

	getLogger().Debug("prediction generated", "records", len(predictions), "input", len(assocs))
	return predictions
}

// Unmapped returns the input associations whose key received no prediction:
// exactly the input keys minus the predicted keys.
func Unmapped(assocs []extract.AssociationRecord, predictions []PredictedMapping) []extract.AssociationRecord {
	predicted := make(map[extract.AssociationKey]struct{}, len(predictions))
	for i := range predictions {
		predicted[extract.AssociationKey{Event: predictions[i].StudyEventOID, Item: predictions[i].ItemOID}] = struct{}{}
	}

	var unmapped []extract.AssociationRecord
	for i := range assocs {
		if _, ok := predicted[assocs[i].Key()]; !ok {
			unmapped = append(unmapped, assocs[i])
		}
	}
	return unmapped
}
