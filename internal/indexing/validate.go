package indexing

import (
	"github.com/Aman-CERP/edmindex/internal/catalog"
	edmerrors "github.com/Aman-CERP/edmindex/internal/errors"
	"github.com/Aman-CERP/edmindex/pkg/model"
)

// ValidateAllRequired checks that every required field of the catalog has at
// least one live, non-empty entry. All missing fields are reported together,
// in catalog order. Used when creating or first indexing a document.
func ValidateAllRequired(entries []model.IndexingEntry, cat *catalog.Catalog) error {
	live := liveFields(entries)

	var missing []string
	for _, def := range cat.Required() {
		if !live[def.ID] {
			missing = append(missing, def.Name)
		}
	}
	if len(missing) > 0 {
		return edmerrors.MissingRequiredMetadata(cat.DocumentType(), missing)
	}
	return nil
}

// ValidateRequiredPresent checks only the required fields that appear among
// the entries. A required field left out entirely is not flagged, so a
// partial reindex may omit fields it does not touch.
func ValidateRequiredPresent(entries []model.IndexingEntry, cat *catalog.Catalog) error {
	live := liveFields(entries)
	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		present[e.FieldID] = true
	}

	var missing []string
	for _, def := range cat.Required() {
		if present[def.ID] && !live[def.ID] {
			missing = append(missing, def.Name)
		}
	}
	if len(missing) > 0 {
		return edmerrors.MissingRequiredMetadata(cat.DocumentType(), missing)
	}
	return nil
}

func liveFields(entries []model.IndexingEntry) map[string]bool {
	live := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.IsLive() {
			live[e.FieldID] = true
		}
	}
	return live
}
