// Package model defines the domain types shared by the edmindex engine:
// field definitions from the document server, caller-supplied values,
// persisted entries, and the indexing entries submitted back.
//
// # Lifecycle
//
// FieldDefinition and ExistingEntry are read-only snapshots fetched once per
// operation. ResolvedField and IndexingEntry live only for the duration of a
// single operation and are never shared across operations.
//
// # Emptiness
//
// A value is empty when it is nil or, for strings, "". The same rule drives
// delete-marking on reindex and required-field validation:
//
//	model.IsEmpty(nil) // true
//	model.IsEmpty("")  // true
//	model.IsEmpty(0)   // false
package model
