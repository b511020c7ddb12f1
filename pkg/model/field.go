package model

import (
	"encoding/json"
	"strings"
)

// DataType is the declared type of a metadata field.
type DataType string

const (
	DataTypeString  DataType = "STRING"
	DataTypeInteger DataType = "INTEGER"
	DataTypeDecimal DataType = "DECIMAL"
	DataTypeDate    DataType = "DATE"
)

// ParseDataType maps a server data type name to a DataType.
// Unknown or empty names fall back to STRING, the server default.
func ParseDataType(s string) DataType {
	switch DataType(strings.ToUpper(strings.TrimSpace(s))) {
	case DataTypeInteger:
		return DataTypeInteger
	case DataTypeDecimal:
		return DataTypeDecimal
	case DataTypeDate:
		return DataTypeDate
	default:
		return DataTypeString
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *DataType) UnmarshalJSON(data []byte) error {
	var s string
	if string(data) != "null" {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	*d = ParseDataType(s)
	return nil
}

// FieldDefinition describes one metadata field of a document type.
type FieldDefinition struct {
	ID       string
	Name     string
	DataType DataType
	Required bool

	// AllowMultipleValues marks a multi-select field.
	AllowMultipleValues bool

	// ResponsibilityMapping lists the names of fields whose datasource
	// takes this field as input.
	ResponsibilityMapping []string

	// DatasourcePrompts lists the prompt argument names this field's
	// datasource needs.
	DatasourcePrompts []string

	// RunDatasource is reported by the server; informational only.
	RunDatasource bool
}

// HasDependents reports whether other fields are computed from this one.
func (f FieldDefinition) HasDependents() bool {
	return len(f.ResponsibilityMapping) > 0
}

// DocumentType identifies a document type on the server.
type DocumentType struct {
	ID           string
	Name         string
	CategoryID   string
	CategoryName string
}

// DatasourceArgument is one named, typed prompt value sent to a datasource.
type DatasourceArgument struct {
	Name     string   `json:"name"`
	Value    any      `json:"value"`
	DataType DataType `json:"dataType"`
}

// IsEmpty reports whether v carries no value.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case *string:
		return t == nil || *t == ""
	default:
		return false
	}
}
