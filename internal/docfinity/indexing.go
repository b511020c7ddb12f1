package docfinity

import (
	"context"
	"net/http"
	"net/url"

	edmerrors "github.com/Aman-CERP/edmindex/internal/errors"
	"github.com/Aman-CERP/edmindex/pkg/model"
)

// FetchFieldCatalog returns the indexing controls of a document type.
func (c *Client) FetchFieldCatalog(ctx context.Context, documentTypeID, documentID string) ([]model.FieldDefinition, error) {
	req, err := jsonRequest(http.MethodPost, pathControls, controlsRequest{
		DocumentTypeID: documentTypeID,
		DocumentID:     documentID,
	})
	if err != nil {
		return nil, err
	}

	var dtos []metadataDTO
	if err := c.read(ctx, req, &dtos); err != nil {
		return nil, err
	}

	defs := make([]model.FieldDefinition, 0, len(dtos))
	for _, d := range dtos {
		defs = append(defs, d.model())
	}
	return defs, nil
}

// FetchExistingEntries returns the persisted indexing values of a document.
func (c *Client) FetchExistingEntries(ctx context.Context, documentID string) ([]model.ExistingEntry, error) {
	req := request{
		method: http.MethodGet,
		path:   pathDocumentIndexing,
		query:  url.Values{"documentId": {documentID}},
	}
	var snapshot documentIndexingResponse
	if err := c.read(ctx, req, &snapshot); err != nil {
		return nil, err
	}

	entries := make([]model.ExistingEntry, 0, len(snapshot.Metadata))
	for _, m := range snapshot.Metadata {
		if m.MarkedForDelete {
			continue
		}
		entries = append(entries, model.ExistingEntry{
			ID:        string(m.ID),
			FieldID:   string(m.MetadataID),
			FieldName: m.MetadataName,
			Value:     m.Value,
		})
	}
	return entries, nil
}

// EvaluateDatasource executes a field's datasource. It is never retried.
func (c *Client) EvaluateDatasource(ctx context.Context, documentID, documentTypeID, fieldID string, args []model.DatasourceArgument) ([]any, error) {
	wireArgs := make([]model.DatasourceArgument, len(args))
	for i, a := range args {
		a.Value = wireValue(a.Value)
		wireArgs[i] = a
	}
	req, err := jsonRequest(http.MethodPost, pathExecute, executeRequest{
		DocumentID:     documentID,
		DocumentTypeID: documentTypeID,
		MetadataID:     fieldID,
		Arguments:      wireArgs,
	})
	if err != nil {
		return nil, err
	}

	var pairs []keyValueDTO
	if err := c.write(ctx, req, &pairs); err != nil {
		return nil, err
	}
	values := make([]any, 0, len(pairs))
	for _, p := range pairs {
		values = append(values, p.Value)
	}
	return values, nil
}

// SubmitIndex commits the first indexing of a document.
func (c *Client) SubmitIndex(ctx context.Context, documentTypeID, documentID string, entries []model.IndexingEntry) ([]model.IndexingEntry, error) {
	return c.commit(ctx, pathIndexCommit, documentTypeID, documentID, entries, false)
}

// SubmitReindex commits a partial update of an indexed document.
func (c *Client) SubmitReindex(ctx context.Context, documentTypeID, documentID string, entries []model.IndexingEntry) ([]model.IndexingEntry, error) {
	return c.commit(ctx, pathReindexCommit, documentTypeID, documentID, entries, true)
}

func (c *Client) commit(ctx context.Context, path, documentTypeID, documentID string, entries []model.IndexingEntry, reindex bool) ([]model.IndexingEntry, error) {
	req, err := jsonRequest(http.MethodPost, path, []documentIndexingDTO{{
		DocumentTypeID: documentTypeID,
		DocumentID:     documentID,
		Metadata:       toWire(entries),
		MetadataLoaded: reindex,
	}})
	if err != nil {
		return nil, err
	}

	var resp []documentIndexingResponse
	if err := c.write(ctx, req, &resp); err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, edmerrors.New(edmerrors.ErrCodeBackendResponse, "empty response from "+path, nil).
			WithDetail("document_id", documentID)
	}
	return fromWire(resp[0].Metadata, entries), nil
}

// DeleteDocument deletes a document. It is never retried.
func (c *Client) DeleteDocument(ctx context.Context, documentID string) error {
	req, err := jsonRequest(http.MethodPost, pathDelete, []string{documentID})
	if err != nil {
		return err
	}
	return c.write(ctx, req, nil)
}
