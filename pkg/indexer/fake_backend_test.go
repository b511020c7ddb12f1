package indexer

import (
	"context"
	"sync"

	"github.com/Aman-CERP/edmindex/pkg/model"
)

// fakeBackend implements Backend for tests. Unset Fn fields fall back to
// canned data; every call is recorded by method name.
type fakeBackend struct {
	DocType  model.DocumentType
	Catalog  []model.FieldDefinition
	Existing []model.ExistingEntry
	Results  map[string][]any
	UploadID string

	ResolveFn  func(ctx context.Context, category, name string) (model.DocumentType, error)
	CatalogFn  func(ctx context.Context, typeID, docID string) ([]model.FieldDefinition, error)
	SubmitFn   func(ctx context.Context, typeID, docID string, entries []model.IndexingEntry) ([]model.IndexingEntry, error)
	UploadFn   func(ctx context.Context, upload Upload) (string, error)
	DeleteFn   func(ctx context.Context, docID string) error
	EvaluateFn func(ctx context.Context, fieldID string, args []model.DatasourceArgument) ([]any, error)

	mu        sync.Mutex
	calls     []string
	submitted []model.IndexingEntry
	uploads   []Upload
	deleted   []string
}

func (f *fakeBackend) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) count(name string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeBackend) ResolveDocumentType(ctx context.Context, category, name string) (model.DocumentType, error) {
	f.record("ResolveDocumentType")
	if f.ResolveFn != nil {
		return f.ResolveFn(ctx, category, name)
	}
	return f.DocType, nil
}

func (f *fakeBackend) FetchFieldCatalog(ctx context.Context, typeID, docID string) ([]model.FieldDefinition, error) {
	f.record("FetchFieldCatalog")
	if f.CatalogFn != nil {
		return f.CatalogFn(ctx, typeID, docID)
	}
	return f.Catalog, nil
}

func (f *fakeBackend) FetchExistingEntries(_ context.Context, _ string) ([]model.ExistingEntry, error) {
	f.record("FetchExistingEntries")
	return f.Existing, nil
}

func (f *fakeBackend) EvaluateDatasource(ctx context.Context, _, _, fieldID string, args []model.DatasourceArgument) ([]any, error) {
	f.record("EvaluateDatasource")
	if f.EvaluateFn != nil {
		return f.EvaluateFn(ctx, fieldID, args)
	}
	return f.Results[fieldID], nil
}

func (f *fakeBackend) submit(ctx context.Context, name, typeID, docID string, entries []model.IndexingEntry) ([]model.IndexingEntry, error) {
	f.record(name)
	f.mu.Lock()
	f.submitted = entries
	f.mu.Unlock()
	if f.SubmitFn != nil {
		return f.SubmitFn(ctx, typeID, docID, entries)
	}
	// Echo back live entries with assigned ids.
	var out []model.IndexingEntry
	for i, e := range entries {
		if e.MarkedForDelete {
			continue
		}
		if e.ID == nil {
			e.ID = model.StringPtr("new-" + string(rune('a'+i)))
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeBackend) SubmitIndex(ctx context.Context, typeID, docID string, entries []model.IndexingEntry) ([]model.IndexingEntry, error) {
	return f.submit(ctx, "SubmitIndex", typeID, docID, entries)
}

func (f *fakeBackend) SubmitReindex(ctx context.Context, typeID, docID string, entries []model.IndexingEntry) ([]model.IndexingEntry, error) {
	return f.submit(ctx, "SubmitReindex", typeID, docID, entries)
}

func (f *fakeBackend) UploadFile(ctx context.Context, upload Upload) (string, error) {
	f.record("UploadFile")
	f.mu.Lock()
	f.uploads = append(f.uploads, upload)
	f.mu.Unlock()
	if f.UploadFn != nil {
		return f.UploadFn(ctx, upload)
	}
	return f.UploadID, nil
}

func (f *fakeBackend) DeleteDocument(ctx context.Context, docID string) error {
	f.record("DeleteDocument")
	f.mu.Lock()
	f.deleted = append(f.deleted, docID)
	f.mu.Unlock()
	if f.DeleteFn != nil {
		return f.DeleteFn(ctx, docID)
	}
	return nil
}
