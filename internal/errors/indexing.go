package errors

import (
	"fmt"
	"strings"
)

// DocumentTypeNotFound reports that no document type matched (category, name).
func DocumentTypeNotFound(category, name string) *EDMError {
	return New(ErrCodeDocumentTypeNotFound,
		fmt.Sprintf("Document type with category '%s' and name '%s' does not exist in server.", category, name), nil).
		WithDetail("category", category).
		WithDetail("document_type", name)
}

// AmbiguousDocumentType reports that more than one document type matched (category, name).
func AmbiguousDocumentType(category, name string, count int) *EDMError {
	return New(ErrCodeAmbiguousDocumentType,
		fmt.Sprintf("Multiple document types with category '%s' and name '%s' found in server.", category, name), nil).
		WithDetail("category", category).
		WithDetail("document_type", name).
		WithDetail("matches", fmt.Sprint(count))
}

// UnknownMetadataField reports a field name that the document type does not define.
func UnknownMetadataField(documentType, field string, available []string) *EDMError {
	return New(ErrCodeUnknownMetadataField,
		fmt.Sprintf("Document type '%s' is missing metadata object named '%s'. Available metadata: %s.",
			documentType, field, strings.Join(available, ", ")), nil).
		WithDetail("document_type", documentType).
		WithDetail("field", field).
		WithDetail("available", strings.Join(available, ", "))
}

// InvalidCardinality reports multiple values for a single-select field.
func InvalidCardinality(documentType, field string, count int) *EDMError {
	return New(ErrCodeInvalidCardinality,
		fmt.Sprintf("Multiple values received for single-select field '%s' for document type '%s'.", field, documentType), nil).
		WithDetail("document_type", documentType).
		WithDetail("field", field).
		WithDetail("values", fmt.Sprint(count))
}

// MissingRequiredMetadata reports required fields without a live, non-empty value.
func MissingRequiredMetadata(documentType string, fields []string) *EDMError {
	return New(ErrCodeMissingRequiredMetadata,
		fmt.Sprintf("Missing value for required metadata '%s' for document type '%s'.",
			strings.Join(fields, "', '"), documentType), nil).
		WithDetail("document_type", documentType).
		WithDetail("fields", strings.Join(fields, ", "))
}

// DatasourceUnsupportedCardinality reports a multi-select field used as a datasource prompt.
func DatasourceUnsupportedCardinality(documentType, field, prompt string) *EDMError {
	return New(ErrCodeDatasourceUnsupportedCardinality,
		fmt.Sprintf("Multi-select fields for datasource prompts are not supported. Datasource field: '%s', prompt field: '%s', document type: '%s'.",
			field, prompt, documentType), nil).
		WithDetail("document_type", documentType).
		WithDetail("field", field).
		WithDetail("prompt", prompt)
}

// MissingDatasourcePromptValue reports a datasource prompt with no caller-supplied value.
func MissingDatasourcePromptValue(documentType, field, prompt string) *EDMError {
	return New(ErrCodeMissingDatasourcePromptValue,
		fmt.Sprintf("Datasource prompt '%s' for field '%s' in document type '%s' is missing in client metadata.",
			prompt, field, documentType), nil).
		WithDetail("document_type", documentType).
		WithDetail("field", field).
		WithDetail("prompt", prompt).
		WithSuggestion(fmt.Sprintf("Supply a value for '%s' or supply '%s' directly.", prompt, field))
}

// DatasourceMultiValue reports a datasource evaluation that returned a list.
func DatasourceMultiValue(documentType, field string, values []any) *EDMError {
	rendered := make([]string, len(values))
	for i, v := range values {
		if v != nil {
			rendered[i] = fmt.Sprint(v)
		}
	}
	joined := strings.Join(rendered, ", ")
	return New(ErrCodeDatasourceMultiValue,
		fmt.Sprintf("Returning lists from datasources is not supported. Field '%s' in document type '%s'. Returned values: %s.",
			field, documentType, joined), nil).
		WithDetail("document_type", documentType).
		WithDetail("field", field).
		WithDetail("values", joined)
}

// InvalidIntegerValue reports a non-integral value for an INTEGER field.
func InvalidIntegerValue(field string, value any) *EDMError {
	return New(ErrCodeInvalidIntegerValue,
		fmt.Sprintf("Invalid integer value for metadata object '%s'. Type: %T. Value: %v", field, value, value), nil).
		WithDetail("field", field).
		WithDetail("value", fmt.Sprint(value))
}

// InvalidDecimalValue reports a non-numeric value for a DECIMAL field.
func InvalidDecimalValue(field string, value any) *EDMError {
	return New(ErrCodeInvalidDecimalValue,
		fmt.Sprintf("Invalid decimal value for metadata object '%s'. Type: %T. Value: %v", field, value, value), nil).
		WithDetail("field", field).
		WithDetail("value", fmt.Sprint(value))
}

// DateParse reports a DATE value that does not match the configured format.
func DateParse(field string, value any, format string, cause error) *EDMError {
	return New(ErrCodeDateParse,
		fmt.Sprintf("Unable to parse value '%v' as date with format '%s' for metadata object '%s'.", value, format, field), cause).
		WithDetail("field", field).
		WithDetail("value", fmt.Sprint(value)).
		WithDetail("format", format)
}

// DuplicateField reports the same field name supplied more than once.
func DuplicateField(field string) *EDMError {
	return New(ErrCodeDuplicateField,
		fmt.Sprintf("Duplicate field '%s' in indexing metadata values.", field), nil).
		WithDetail("field", field).
		WithSuggestion("Supply multi-select values as a list under a single field name.")
}
