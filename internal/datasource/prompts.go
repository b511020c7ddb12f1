package datasource

import (
	"github.com/Aman-CERP/edmindex/internal/catalog"
	"github.com/Aman-CERP/edmindex/internal/coerce"
	edmerrors "github.com/Aman-CERP/edmindex/internal/errors"
	"github.com/Aman-CERP/edmindex/pkg/model"
)

// Well-known prompt names resolved from the document itself rather than
// from caller-supplied fields.
const (
	PromptDocumentID   = "DOCUMENT.id"
	PromptDocumentType = "DOCUMENT.documentType"
	PromptCategory     = "DOCUMENT.category"
)

// Document carries the document attributes available to datasource prompts.
type Document struct {
	ID           string
	TypeID       string
	TypeName     string
	CategoryName string
}

func (d Document) wellKnown(prompt string) (string, bool) {
	switch prompt {
	case PromptDocumentID:
		return d.ID, true
	case PromptDocumentType:
		return d.TypeName, true
	case PromptCategory:
		return d.CategoryName, true
	default:
		return "", false
	}
}

// PromptResolver builds the argument list a computed field's datasource needs.
type PromptResolver struct {
	doc     Document
	catalog *catalog.Catalog
	values  model.FieldValues
	opts    coerce.Options
}

// NewPromptResolver creates a resolver over one operation's document, catalog
// and caller-supplied values.
func NewPromptResolver(doc Document, cat *catalog.Catalog, values model.FieldValues, opts coerce.Options) *PromptResolver {
	return &PromptResolver{doc: doc, catalog: cat, values: values, opts: opts}
}

// Resolve returns one argument per prompt of field, in prompt order.
func (r *PromptResolver) Resolve(field model.FieldDefinition) ([]model.DatasourceArgument, error) {
	args := make([]model.DatasourceArgument, 0, len(field.DatasourcePrompts))
	for _, prompt := range field.DatasourcePrompts {
		arg, err := r.resolvePrompt(field, prompt)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}

func (r *PromptResolver) resolvePrompt(field model.FieldDefinition, prompt string) (model.DatasourceArgument, error) {
	if v, ok := r.doc.wellKnown(prompt); ok {
		return model.DatasourceArgument{Name: prompt, Value: v, DataType: model.DataTypeString}, nil
	}

	source, err := r.catalog.Require(prompt)
	if err != nil {
		return model.DatasourceArgument{}, err
	}
	if source.AllowMultipleValues {
		return model.DatasourceArgument{}, edmerrors.DatasourceUnsupportedCardinality(r.doc.TypeName, field.Name, prompt)
	}

	supplied, ok := r.values.Get(prompt)
	if !ok || model.IsEmpty(supplied.First()) {
		return model.DatasourceArgument{}, edmerrors.MissingDatasourcePromptValue(r.doc.TypeName, field.Name, prompt)
	}

	value, err := coerce.Value(source, supplied.First(), r.opts)
	if err != nil {
		return model.DatasourceArgument{}, err
	}
	if value == nil {
		return model.DatasourceArgument{}, edmerrors.MissingDatasourcePromptValue(r.doc.TypeName, field.Name, prompt)
	}

	return model.DatasourceArgument{Name: prompt, Value: value, DataType: source.DataType}, nil
}
