package indexing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/edmindex/internal/catalog"
	edmerrors "github.com/Aman-CERP/edmindex/internal/errors"
	"github.com/Aman-CERP/edmindex/pkg/model"
)

func requiredCatalog() *catalog.Catalog {
	return catalog.New("Invoice", []model.FieldDefinition{
		{ID: "v", Name: "Vendor", Required: true},
		{ID: "a", Name: "Amount", Required: true},
		{ID: "n", Name: "Notes"},
	})
}

func TestValidateAllRequired(t *testing.T) {
	tests := []struct {
		name    string
		entries []model.IndexingEntry
		missing string
	}{
		{
			name: "all present",
			entries: []model.IndexingEntry{
				{FieldID: "v", FieldName: "Vendor", Value: "ACME"},
				{FieldID: "a", FieldName: "Amount", Value: int64(1)},
			},
		},
		{
			name: "absent fields reported together",
			entries: []model.IndexingEntry{
				{FieldID: "n", FieldName: "Notes", Value: "x"},
			},
			missing: "'Vendor', 'Amount'",
		},
		{
			name: "null value",
			entries: []model.IndexingEntry{
				{FieldID: "v", FieldName: "Vendor", Value: nil},
				{FieldID: "a", FieldName: "Amount", Value: int64(1)},
			},
			missing: "'Vendor'",
		},
		{
			name: "empty string",
			entries: []model.IndexingEntry{
				{FieldID: "v", FieldName: "Vendor", Value: ""},
				{FieldID: "a", FieldName: "Amount", Value: int64(1)},
			},
			missing: "'Vendor'",
		},
		{
			name: "only deleted entry",
			entries: []model.IndexingEntry{
				{ID: model.StringPtr("1"), FieldID: "v", FieldName: "Vendor", Value: "ACME", MarkedForDelete: true},
				{FieldID: "a", FieldName: "Amount", Value: int64(1)},
			},
			missing: "'Vendor'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAllRequired(tt.entries, requiredCatalog())
			if tt.missing == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, edmerrors.HasCode(err, edmerrors.ErrCodeMissingRequiredMetadata))
			assert.Contains(t, err.Error(), "Missing value for required metadata "+tt.missing+" for document type 'Invoice'.")
		})
	}
}

func TestValidateRequiredPresent(t *testing.T) {
	// Given: a partial reindex touching only Notes
	entries := []model.IndexingEntry{{FieldID: "n", FieldName: "Notes", Value: "x"}}

	// Then: absent required fields are not flagged
	assert.NoError(t, ValidateRequiredPresent(entries, requiredCatalog()))

	// When: a required field is present but null
	entries = append(entries, model.IndexingEntry{FieldID: "v", FieldName: "Vendor"})
	err := ValidateRequiredPresent(entries, requiredCatalog())

	// Then: it is flagged, Amount is not
	require.Error(t, err)
	assert.True(t, edmerrors.HasCode(err, edmerrors.ErrCodeMissingRequiredMetadata))
	assert.Contains(t, err.Error(), "'Vendor'")
	assert.NotContains(t, err.Error(), "Amount")
}

func TestValidateRequiredPresent_ClearedViaDelete(t *testing.T) {
	entries := []model.IndexingEntry{
		{ID: model.StringPtr("1"), FieldID: "v", FieldName: "Vendor", MarkedForDelete: true},
	}

	err := ValidateRequiredPresent(entries, requiredCatalog())

	assert.True(t, edmerrors.HasCode(err, edmerrors.ErrCodeMissingRequiredMetadata))
}

func TestValidateRequiredPresent_ReplacedMultiSelectIsLive(t *testing.T) {
	cat := catalog.New("Invoice", []model.FieldDefinition{
		{ID: "t", Name: "Tags", Required: true, AllowMultipleValues: true},
	})
	entries := []model.IndexingEntry{
		{ID: model.StringPtr("1"), FieldID: "t", FieldName: "Tags", Value: "a", MarkedForDelete: true},
		{FieldID: "t", FieldName: "Tags", Value: "b"},
	}

	assert.NoError(t, ValidateRequiredPresent(entries, cat))
	assert.NoError(t, ValidateAllRequired(entries, cat))
}
