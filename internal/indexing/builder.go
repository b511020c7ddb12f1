// Package indexing turns caller and datasource values into the ordered list of
// entries submitted to the document server.
//
// The Builder is an append-only accumulator. Validation is a separate pure
// pass over the built entries and the catalog, so each can be tested alone.
package indexing

import (
	"github.com/Aman-CERP/edmindex/internal/catalog"
	"github.com/Aman-CERP/edmindex/internal/coerce"
	edmerrors "github.com/Aman-CERP/edmindex/internal/errors"
	"github.com/Aman-CERP/edmindex/pkg/model"
)

// Builder accumulates indexing entries for one document within one operation.
// It is not safe for concurrent use.
type Builder struct {
	catalog  *catalog.Catalog
	existing map[string][]model.ExistingEntry
	entries  []model.IndexingEntry
	added    map[string]bool
	opts     coerce.Options
}

// NewBuilder creates a Builder. existing is the persisted snapshot for the
// document and is empty on create.
func NewBuilder(cat *catalog.Catalog, existing []model.ExistingEntry, opts coerce.Options) *Builder {
	byField := make(map[string][]model.ExistingEntry)
	for _, e := range existing {
		byField[e.FieldID] = append(byField[e.FieldID], e)
	}
	return &Builder{
		catalog:  cat,
		existing: byField,
		added:    make(map[string]bool),
		opts:     opts,
	}
}

// Add appends entries for caller-supplied values, in their insertion order.
func (b *Builder) Add(values model.FieldValues) error {
	for _, f := range values.All() {
		if err := b.addField(f.Name, f.Values, coerce.Value); err != nil {
			return err
		}
	}
	return nil
}

// AddResolved appends entries for datasource-resolved values. These come from
// the server and are converted with coerce.ServerValue, not caller coercion.
func (b *Builder) AddResolved(resolved []model.ResolvedField) error {
	for _, r := range resolved {
		if err := b.addField(r.Name, []any{r.Value}, coerce.ServerValue); err != nil {
			return err
		}
	}
	return nil
}

// Build returns a copy of the entries accumulated so far.
func (b *Builder) Build() []model.IndexingEntry {
	out := make([]model.IndexingEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// convertFunc converts one raw value for a field.
type convertFunc func(def model.FieldDefinition, raw any, opts coerce.Options) (any, error)

func (b *Builder) addField(name string, values []any, convert convertFunc) error {
	def, err := b.catalog.Require(name)
	if err != nil {
		return err
	}
	if b.added[def.Name] {
		return edmerrors.DuplicateField(def.Name)
	}
	if len(values) == 0 {
		values = []any{nil}
	}

	var entries []model.IndexingEntry
	if def.AllowMultipleValues {
		entries, err = b.multiSelect(def, values, convert)
	} else {
		entries, err = b.singleSelect(def, values, convert)
	}
	if err != nil {
		return err
	}

	b.added[def.Name] = true
	b.entries = append(b.entries, entries...)
	return nil
}

func (b *Builder) singleSelect(def model.FieldDefinition, values []any, convert convertFunc) ([]model.IndexingEntry, error) {
	if len(values) > 1 {
		return nil, edmerrors.InvalidCardinality(b.catalog.DocumentType(), def.Name, len(values))
	}

	value, err := convert(def, values[0], b.opts)
	if err != nil {
		return nil, err
	}

	entry := model.IndexingEntry{
		FieldID:   def.ID,
		FieldName: def.Name,
		Value:     value,
	}
	if persisted := b.existing[def.ID]; len(persisted) > 0 {
		entry.ID = model.StringPtr(persisted[0].ID)
		entry.MarkedForDelete = model.IsEmpty(value)
	}
	return []model.IndexingEntry{entry}, nil
}

// multiSelect replaces the field wholesale: every persisted entry is deleted,
// then one fresh entry is added per new value, empty ones included.
func (b *Builder) multiSelect(def model.FieldDefinition, values []any, convert convertFunc) ([]model.IndexingEntry, error) {
	persisted := b.existing[def.ID]
	entries := make([]model.IndexingEntry, 0, len(persisted)+len(values))
	for _, e := range persisted {
		entries = append(entries, model.IndexingEntry{
			ID:              model.StringPtr(e.ID),
			FieldID:         e.FieldID,
			FieldName:       def.Name,
			Value:           e.Value,
			MarkedForDelete: true,
		})
	}
	for _, raw := range values {
		v, err := convert(def, raw, b.opts)
		if err != nil {
			return nil, err
		}
		entries = append(entries, model.IndexingEntry{
			FieldID:   def.ID,
			FieldName: def.Name,
			Value:     v,
		})
	}
	return entries, nil
}
