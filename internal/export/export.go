// Package export writes predicted or corrected target identifiers back into
// the original ODM document.
package export

import (
	"bytes"
	"log/slog"

	"github.com/clinmap/clinmap-go/internal/conf"
	"github.com/clinmap/clinmap-go/internal/errors"
	"github.com/clinmap/clinmap-go/internal/extract"
	"github.com/clinmap/clinmap-go/internal/logging"
	"github.com/clinmap/clinmap-go/internal/training"
)

var xmlDeclaration = []byte(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")

// getLogger returns a fresh child logger on every call so concurrent
// exports never share mutable package state.
func getLogger() *slog.Logger {
	if l := logging.ForService("export"); l != nil {
		return l
	}
	return slog.Default().With("service", "export")
}

// UpdateODM re-parses the original document, overlays the two target
// identifier attributes onto every item element whose (event, item) key is
// present in mappings, and serializes with an XML declaration. The export is
// a sparse overlay: items without a matching key, and all other content and
// namespace declarations, are left exactly as parsed.
func UpdateODM(original []byte, mappings []training.PredictedMapping, profile *conf.SchemaProfile) ([]byte, error) {
	doc, err := extract.ParseDocument(original, "")
	if err != nil {
		return nil, err
	}

	index := make(map[extract.AssociationKey]training.PredictedMapping, len(mappings))
	for i := range mappings {
		key := extract.AssociationKey{Event: mappings[i].StudyEventOID, Item: mappings[i].ItemOID}
		if _, ok := index[key]; !ok {
			index[key] = mappings[i]
		}
	}

	updated := 0
	root := doc.Root()
	for _, event := range extract.FindDescendants(root, "StudyEventData") {
		eventOID := event.SelectAttrValue(profile.EventAttr, "")
		for _, form := range extract.FindDescendants(event, "FormData") {
			for _, group := range extract.FindDescendants(form, "ItemGroupData") {
				for _, item := range extract.FindDescendants(group, "ItemData") {
					itemOID := item.SelectAttrValue(profile.ItemAttr, "")
					mapping, ok := index[extract.AssociationKey{Event: eventOID, Item: itemOID}]
					if !ok {
						continue
					}
					item.CreateAttr(profile.TargetVisitAttr, mapping.TargetVisitID)
					item.CreateAttr(profile.TargetAttributeAttr, mapping.TargetAttributeID)
					updated++
				}
			}
		}
	}

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, errors.Newf("serializing updated document: %w", err).
			Component("export").
			Category(errors.CategoryExport).
			Build()
	}
	if !bytes.HasPrefix(bytes.TrimLeft(out, " \t\r\n"), []byte("<?xml")) {
		out = append(xmlDeclaration, out...)
	}

	getLogger().Info("exported updated document", "updated_items", updated, "mappings", len(mappings))
	return out, nil
}
