package model

// Provenance records where a resolved value came from.
type Provenance int

const (
	ProvenanceClient Provenance = iota
	ProvenanceDatasource
)

// String returns the provenance name.
func (p Provenance) String() string {
	switch p {
	case ProvenanceClient:
		return "client"
	case ProvenanceDatasource:
		return "datasource"
	default:
		return "unknown"
	}
}

// ExistingEntry is a field value already persisted on the server.
type ExistingEntry struct {
	ID        string
	FieldID   string
	FieldName string
	Value     any
}

// ResolvedField is a single value computed for a field.
type ResolvedField struct {
	Name       string
	FieldID    string
	Value      any
	Provenance Provenance
}

// IndexingEntry is one row of an indexing submission.
// A nil ID denotes a new entry.
type IndexingEntry struct {
	ID              *string
	FieldID         string
	FieldName       string
	Value           any
	MarkedForDelete bool
}

// IsLive reports whether the entry is kept and carries a value.
func (e IndexingEntry) IsLive() bool {
	return !e.MarkedForDelete && !IsEmpty(e.Value)
}

// EntryID returns the entry id or "" for new entries.
func (e IndexingEntry) EntryID() string {
	if e.ID == nil {
		return ""
	}
	return *e.ID
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// DocumentField is the caller-facing view of a field: a name and its values.
type DocumentField struct {
	Name   string `json:"name" yaml:"name"`
	Values []any  `json:"values" yaml:"values"`
}

// GroupEntries folds entries into caller-facing fields grouped by name in
// first-appearance order. Entries marked for delete are skipped.
func GroupEntries(entries []IndexingEntry) []DocumentField {
	index := make(map[string]int)
	var fields []DocumentField
	for _, e := range entries {
		if e.MarkedForDelete {
			continue
		}
		i, ok := index[e.FieldName]
		if !ok {
			i = len(fields)
			index[e.FieldName] = i
			fields = append(fields, DocumentField{Name: e.FieldName})
		}
		fields[i].Values = append(fields[i].Values, e.Value)
	}
	return fields
}
