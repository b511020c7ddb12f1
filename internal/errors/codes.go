// Package errors provides structured error handling for edmindex.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (local files)
//   - 3XX: Network and document server errors
//   - 4XX: Validation errors (indexing resolution)
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates local file I/O errors.
	CategoryIO Category = "IO"
	// CategoryNetwork indicates transport and document server errors.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates input and indexing validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeFileNotFound = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFileRead     = "ERR_202_FILE_READ"

	// Network errors (300-399)
	ErrCodeNetworkUnavailable = "ERR_301_NETWORK_UNAVAILABLE"
	ErrCodeBackendStatus      = "ERR_302_BACKEND_STATUS"
	ErrCodeBackendResponse    = "ERR_303_BACKEND_RESPONSE"

	// Validation errors (400-499)
	ErrCodeInvalidInput                     = "ERR_401_INVALID_INPUT"
	ErrCodeDocumentTypeNotFound             = "ERR_402_DOCUMENT_TYPE_NOT_FOUND"
	ErrCodeAmbiguousDocumentType            = "ERR_403_AMBIGUOUS_DOCUMENT_TYPE"
	ErrCodeUnknownMetadataField             = "ERR_404_UNKNOWN_METADATA_FIELD"
	ErrCodeInvalidCardinality               = "ERR_405_INVALID_CARDINALITY"
	ErrCodeMissingRequiredMetadata          = "ERR_406_MISSING_REQUIRED_METADATA"
	ErrCodeDatasourceUnsupportedCardinality = "ERR_407_DATASOURCE_UNSUPPORTED_CARDINALITY"
	ErrCodeMissingDatasourcePromptValue     = "ERR_408_MISSING_DATASOURCE_PROMPT_VALUE"
	ErrCodeDatasourceMultiValue             = "ERR_409_DATASOURCE_MULTI_VALUE"
	ErrCodeInvalidIntegerValue              = "ERR_410_INVALID_INTEGER_VALUE"
	ErrCodeDateParse                        = "ERR_411_DATE_PARSE"
	ErrCodeDuplicateField                   = "ERR_412_DUPLICATE_FIELD"
	ErrCodeInvalidDecimalValue              = "ERR_413_INVALID_DECIMAL_VALUE"

	// Internal errors (500-599)
	ErrCodeInternal           = "ERR_501_INTERNAL"
	ErrCodeCompensationFailed = "ERR_502_COMPENSATION_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "101" from "ERR_101_CONFIG_NOT_FOUND")
	numStr := code[4:7]
	if len(numStr) < 1 {
		return CategoryInternal
	}

	switch numStr[0] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	if code == ErrCodeCompensationFailed {
		return SeverityWarning
	}

	// Retryable transport errors get warning severity
	if isRetryableCode(code) {
		return SeverityWarning
	}

	// Indexing resolution errors abort the operation outright
	if categoryFromCode(code) == CategoryValidation {
		return SeverityFatal
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
// Validation codes are terminal: retrying the same input yields the same result.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeNetworkUnavailable:
		return true
	default:
		return false
	}
}
