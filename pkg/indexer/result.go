package indexer

import "github.com/Aman-CERP/edmindex/pkg/model"

// Result describes an indexed document.
type Result struct {
	DocumentID     string                `json:"documentId"`
	DocumentTypeID string                `json:"documentTypeId"`
	Category       string                `json:"category"`
	DocumentType   string                `json:"documentType"`
	Entries        []model.IndexingEntry `json:"-"`
	Fields         []model.DocumentField `json:"fields"`
}

func newResult(docID, category, documentType string, docType model.DocumentType, entries []model.IndexingEntry) *Result {
	return &Result{
		DocumentID:     docID,
		DocumentTypeID: docType.ID,
		Category:       category,
		DocumentType:   documentType,
		Entries:        entries,
		Fields:         model.GroupEntries(entries),
	}
}
