package docfinity

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/Aman-CERP/edmindex/pkg/model"
)

// Endpoint paths relative to the base URL.
const (
	pathDocumentType     = "webservices/rest/documentType"
	pathControls         = "webservices/rest/indexing/controls"
	pathExecute          = "webservices/rest/indexing/executeDatasource"
	pathDocumentIndexing = "webservices/rest/indexing/documentIndexing"
	pathIndexCommit      = "webservices/rest/indexing/index/commit"
	pathReindexCommit    = "webservices/rest/indexing/reindex/commit"
	pathDelete           = "webservices/rest/document/delete"
	pathUpload           = "servlet/upload"
)

// wireID accepts ids sent either as JSON strings or numbers.
type wireID string

func (id *wireID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = wireID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = wireID(n.String())
	return nil
}

type filter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

type filterGroup struct {
	Logic   string   `json:"logic"`
	Filters []filter `json:"filters"`
}

type documentTypeDTO struct {
	ID           wireID `json:"id"`
	Name         string `json:"name"`
	CategoryID   wireID `json:"categoryId"`
	CategoryName string `json:"categoryName"`
}

type documentTypePage struct {
	TotalAvailable int               `json:"totalAvailable"`
	Results        []documentTypeDTO `json:"results"`
}

func (d documentTypeDTO) model() model.DocumentType {
	return model.DocumentType{
		ID:           string(d.ID),
		Name:         d.Name,
		CategoryID:   string(d.CategoryID),
		CategoryName: d.CategoryName,
	}
}

type controlsRequest struct {
	DocumentTypeID string `json:"documentTypeId"`
	DocumentID     string `json:"documentId,omitempty"`
}

type promptArgumentDTO struct {
	DatasourceArgumentName string `json:"datasourceArgumentName"`
	Value                  any    `json:"value,omitempty"`
	ArgumentType           string `json:"argumentType,omitempty"`
}

type metadataDTO struct {
	ID                    wireID              `json:"id"`
	Name                  string              `json:"name"`
	DataType              model.DataType      `json:"dataType"`
	ResponsibilityMapping []string            `json:"responsibilityMapping"`
	Required              bool                `json:"required"`
	RunDatasource         bool                `json:"runDatasource"`
	AllowMultipleValues   bool                `json:"allowMultipleValues"`
	PromptArguments       []promptArgumentDTO `json:"parameterPromptDatasourceArguments"`
}

func (m metadataDTO) model() model.FieldDefinition {
	def := model.FieldDefinition{
		ID:                    string(m.ID),
		Name:                  m.Name,
		DataType:              m.DataType,
		Required:              m.Required,
		AllowMultipleValues:   m.AllowMultipleValues,
		ResponsibilityMapping: m.ResponsibilityMapping,
		RunDatasource:         m.RunDatasource,
	}
	if def.DataType == "" {
		def.DataType = model.DataTypeString
	}
	for _, p := range m.PromptArguments {
		if p.DatasourceArgumentName != "" {
			def.DatasourcePrompts = append(def.DatasourcePrompts, p.DatasourceArgumentName)
		}
	}
	return def
}

type executeRequest struct {
	DocumentID     string                     `json:"documentId"`
	DocumentTypeID string                     `json:"documentTypeId"`
	MetadataID     string                     `json:"metadataId"`
	Arguments      []model.DatasourceArgument `json:"arguments"`
}

type keyValueDTO struct {
	Key   any `json:"key"`
	Value any `json:"value"`
}

type indexingMetadataDTO struct {
	ID              *string `json:"id"`
	MetadataID      string  `json:"metadataId"`
	MetadataName    string  `json:"metadataName"`
	Value           any     `json:"value"`
	MarkedForDelete bool    `json:"markedForDelete"`
}

// responseMetadataDTO mirrors indexingMetadataDTO with tolerant ids.
type responseMetadataDTO struct {
	ID              wireID `json:"id"`
	MetadataID      wireID `json:"metadataId"`
	MetadataName    string `json:"metadataName"`
	Value           any    `json:"value"`
	MarkedForDelete bool   `json:"markedForDelete"`
}

type documentIndexingDTO struct {
	DocumentTypeID string                `json:"documentTypeId"`
	DocumentID     string                `json:"documentId"`
	Metadata       []indexingMetadataDTO `json:"documentIndexingMetadataDtos"`
	MetadataLoaded bool                  `json:"metadataLoaded"`
}

type documentIndexingResponse struct {
	DocumentTypeID wireID                `json:"documentTypeId"`
	DocumentID     wireID                `json:"documentId"`
	Metadata       []responseMetadataDTO `json:"documentIndexingMetadataDtos"`
}

// wireValue converts a coerced value to its JSON form. Dates travel as
// epoch milliseconds.
func wireValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UnixMilli()
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UnixMilli()
	default:
		return v
	}
}

func toWire(entries []model.IndexingEntry) []indexingMetadataDTO {
	out := make([]indexingMetadataDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, indexingMetadataDTO{
			ID:              e.ID,
			MetadataID:      e.FieldID,
			MetadataName:    e.FieldName,
			Value:           wireValue(e.Value),
			MarkedForDelete: e.MarkedForDelete,
		})
	}
	return out
}

// fromWire maps persisted entries back. Fields submitted as dates are
// converted from epoch milliseconds to UTC times.
func fromWire(dtos []responseMetadataDTO, submitted []model.IndexingEntry) []model.IndexingEntry {
	dates := make(map[string]bool)
	for _, e := range submitted {
		if _, ok := e.Value.(time.Time); ok {
			dates[e.FieldID] = true
		}
	}

	out := make([]model.IndexingEntry, 0, len(dtos))
	for _, d := range dtos {
		e := model.IndexingEntry{
			FieldID:         string(d.MetadataID),
			FieldName:       d.MetadataName,
			Value:           d.Value,
			MarkedForDelete: d.MarkedForDelete,
		}
		if d.ID != "" {
			e.ID = model.StringPtr(string(d.ID))
		}
		if dates[e.FieldID] {
			if n, ok := d.Value.(json.Number); ok {
				if ms, err := n.Int64(); err == nil {
					e.Value = time.UnixMilli(ms).UTC()
				}
			}
		}
		out = append(out, e)
	}
	return out
}
