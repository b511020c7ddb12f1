package indexer

import (
	"context"

	"github.com/Aman-CERP/edmindex/pkg/model"
)

// Backend is the document server as seen by the Indexer.
//
// Implementations must be safe for concurrent use. Every method accepts a
// context for cancellation.
type Backend interface {
	// ResolveDocumentType finds the document type with the given category
	// and name.
	//
	// Exactly one match must exist: zero matches returns a
	// DOCUMENT_TYPE_NOT_FOUND error and several return
	// AMBIGUOUS_DOCUMENT_TYPE. Neither is retryable.
	ResolveDocumentType(ctx context.Context, category, name string) (model.DocumentType, error)

	// FetchFieldCatalog returns the field definitions of a document type,
	// in server order. documentID may be empty.
	FetchFieldCatalog(ctx context.Context, documentTypeID, documentID string) ([]model.FieldDefinition, error)

	// FetchExistingEntries returns the persisted field values of a document.
	FetchExistingEntries(ctx context.Context, documentID string) ([]model.ExistingEntry, error)

	// EvaluateDatasource runs one field's datasource and returns its values.
	// Callers treat more than one value as an error.
	EvaluateDatasource(ctx context.Context, documentID, documentTypeID, fieldID string, args []model.DatasourceArgument) ([]any, error)

	// SubmitIndex commits entries for a newly indexed document and returns
	// the persisted entries with their assigned ids.
	SubmitIndex(ctx context.Context, documentTypeID, documentID string, entries []model.IndexingEntry) ([]model.IndexingEntry, error)

	// SubmitReindex commits a partial update. Only submitted entries are
	// touched; others keep their persisted values.
	SubmitReindex(ctx context.Context, documentTypeID, documentID string, entries []model.IndexingEntry) ([]model.IndexingEntry, error)

	// UploadFile stores the file content and returns the new document id.
	UploadFile(ctx context.Context, upload Upload) (string, error)

	// DeleteDocument removes a document. Used to undo a failed create.
	DeleteDocument(ctx context.Context, documentID string) error
}

// Upload is the file content of a new document. Exactly one of Path or
// Content is set; Content requires FileName.
type Upload struct {
	Path     string
	FileName string
	Content  []byte
}
