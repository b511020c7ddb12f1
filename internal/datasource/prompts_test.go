package datasource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/edmindex/internal/catalog"
	"github.com/Aman-CERP/edmindex/internal/coerce"
	edmerrors "github.com/Aman-CERP/edmindex/internal/errors"
	"github.com/Aman-CERP/edmindex/pkg/model"
)

func promptCatalog() *catalog.Catalog {
	return catalog.New("Invoice", []model.FieldDefinition{
		{ID: "n", Name: "Number", DataType: model.DataTypeInteger},
		{ID: "d", Name: "Date", DataType: model.DataTypeDate},
		{ID: "t", Name: "Tags", DataType: model.DataTypeString, AllowMultipleValues: true},
		{ID: "c", Name: "Computed", DataType: model.DataTypeString},
	})
}

func computed(prompts ...string) model.FieldDefinition {
	return model.FieldDefinition{ID: "c", Name: "Computed", DatasourcePrompts: prompts}
}

func TestResolve_WellKnownPrompts(t *testing.T) {
	r := NewPromptResolver(testDoc, promptCatalog(), model.FieldValues{}, coerce.DefaultOptions())

	args, err := r.Resolve(computed(PromptDocumentID, PromptDocumentType, PromptCategory))

	require.NoError(t, err)
	assert.Equal(t, []model.DatasourceArgument{
		{Name: "DOCUMENT.id", Value: "doc-1", DataType: model.DataTypeString},
		{Name: "DOCUMENT.documentType", Value: "Invoice", DataType: model.DataTypeString},
		{Name: "DOCUMENT.category", Value: "Finance", DataType: model.DataTypeString},
	}, args)
}

func TestResolve_FieldPromptsAreCoercedAndTyped(t *testing.T) {
	values := mustValues(t,
		model.NewFieldValue("Number", "42"),
		model.NewFieldValue("Date", "01-02-2024"))
	r := NewPromptResolver(testDoc, promptCatalog(), values, coerce.DefaultOptions())

	args, err := r.Resolve(computed("Number", "Date"))

	require.NoError(t, err)
	assert.Equal(t, []model.DatasourceArgument{
		{Name: "Number", Value: int64(42), DataType: model.DataTypeInteger},
		{Name: "Date", Value: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), DataType: model.DataTypeDate},
	}, args)
}

func TestResolve_Failures(t *testing.T) {
	tests := []struct {
		name   string
		values []model.FieldValue
		prompt string
		code   string
	}{
		{"multi-select source", []model.FieldValue{model.NewFieldValue("Tags", "a")}, "Tags", edmerrors.ErrCodeDatasourceUnsupportedCardinality},
		{"missing source value", nil, "Number", edmerrors.ErrCodeMissingDatasourcePromptValue},
		{"nil source value", []model.FieldValue{model.NewFieldValue("Number")}, "Number", edmerrors.ErrCodeMissingDatasourcePromptValue},
		{"empty source value", []model.FieldValue{model.NewFieldValue("Number", "")}, "Number", edmerrors.ErrCodeMissingDatasourcePromptValue},
		{"unknown source", nil, "Ghost", edmerrors.ErrCodeUnknownMetadataField},
		{"bad source value", []model.FieldValue{model.NewFieldValue("Number", "1.5")}, "Number", edmerrors.ErrCodeInvalidIntegerValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewPromptResolver(testDoc, promptCatalog(), mustValues(t, tt.values...), coerce.DefaultOptions())

			_, err := r.Resolve(computed(tt.prompt))

			require.Error(t, err)
			assert.True(t, edmerrors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestResolve_MissingPromptMessage(t *testing.T) {
	r := NewPromptResolver(testDoc, promptCatalog(), model.FieldValues{}, coerce.DefaultOptions())

	_, err := r.Resolve(computed("Number"))

	require.Error(t, err)
	assert.Contains(t, err.Error(),
		"Datasource prompt 'Number' for field 'Computed' in document type 'Invoice' is missing in client metadata.")
}
