package model

import (
	edmerrors "github.com/Aman-CERP/edmindex/internal/errors"
)

// FieldValue is a caller-supplied field name with one or more raw values.
type FieldValue struct {
	Name   string
	Values []any
}

// NewFieldValue builds a FieldValue. No values means "clear this field"
// and is normalized to a single nil value.
func NewFieldValue(name string, values ...any) FieldValue {
	if len(values) == 0 {
		values = []any{nil}
	}
	return FieldValue{Name: name, Values: values}
}

// First returns the first value, or nil.
func (f FieldValue) First() any {
	if len(f.Values) == 0 {
		return nil
	}
	return f.Values[0]
}

// FieldValues is an insertion-ordered set of caller-supplied values keyed by
// field name. The zero value is empty and ready to use.
type FieldValues struct {
	order  []string
	values map[string]FieldValue
}

// NewFieldValues builds a FieldValues, failing with DuplicateField when a
// name is repeated.
func NewFieldValues(fields ...FieldValue) (FieldValues, error) {
	var fv FieldValues
	for _, f := range fields {
		if err := fv.Add(f); err != nil {
			return FieldValues{}, err
		}
	}
	return fv, nil
}

// FromDocumentFields converts caller-facing fields into FieldValues.
func FromDocumentFields(fields []DocumentField) (FieldValues, error) {
	fvs := make([]FieldValue, 0, len(fields))
	for _, f := range fields {
		fvs = append(fvs, NewFieldValue(f.Name, f.Values...))
	}
	return NewFieldValues(fvs...)
}

// Add appends a field, failing with DuplicateField when the name is present.
func (fv *FieldValues) Add(f FieldValue) error {
	if fv.values == nil {
		fv.values = make(map[string]FieldValue)
	}
	if _, ok := fv.values[f.Name]; ok {
		return edmerrors.DuplicateField(f.Name)
	}
	if len(f.Values) == 0 {
		f.Values = []any{nil}
	}
	fv.order = append(fv.order, f.Name)
	fv.values[f.Name] = f
	return nil
}

// Get returns the field with the given name.
func (fv FieldValues) Get(name string) (FieldValue, bool) {
	f, ok := fv.values[name]
	return f, ok
}

// Has reports whether the caller supplied the named field.
func (fv FieldValues) Has(name string) bool {
	_, ok := fv.values[name]
	return ok
}

// Names returns the field names in insertion order.
func (fv FieldValues) Names() []string {
	return append([]string(nil), fv.order...)
}

// Len returns the number of fields.
func (fv FieldValues) Len() int {
	return len(fv.order)
}

// All returns the fields in insertion order.
func (fv FieldValues) All() []FieldValue {
	out := make([]FieldValue, 0, len(fv.order))
	for _, name := range fv.order {
		out = append(out, fv.values[name])
	}
	return out
}
