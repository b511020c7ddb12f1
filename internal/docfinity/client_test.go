package docfinity

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	edmerrors "github.com/Aman-CERP/edmindex/internal/errors"
	"github.com/Aman-CERP/edmindex/pkg/indexer"
	"github.com/Aman-CERP/edmindex/pkg/model"
)

// Test helpers

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate ...func(*Config)) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := Config{
		BaseURL:    server.URL + "/docfinity",
		APIKey:     "secret",
		Timeout:    5 * time.Second,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := New(cfg, WithRequestIDs(func() string { return "req-1" }))
	require.NoError(t, err)
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func decodeBody(t *testing.T, r *http.Request, v any) {
	t.Helper()
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	require.NoError(t, dec.Decode(v))
}

// ============================================================================
// Construction
// ============================================================================

func TestNew_RequiresURLAndKey(t *testing.T) {
	_, err := New(Config{APIKey: "k"})
	assert.True(t, edmerrors.HasCode(err, edmerrors.ErrCodeConfigInvalid))

	_, err = New(Config{BaseURL: "not a url", APIKey: "k"})
	assert.True(t, edmerrors.HasCode(err, edmerrors.ErrCodeConfigInvalid))

	_, err = New(Config{BaseURL: "https://edm.example.edu"})
	assert.True(t, edmerrors.HasCode(err, edmerrors.ErrCodeConfigInvalid))

	c, err := New(Config{BaseURL: "https://edm.example.edu", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, c.cfg.Timeout)
	assert.Equal(t, DefaultCacheSize, c.cfg.CacheSize)
}

func TestClient_ImplementsBackend(t *testing.T) {
	var _ indexer.Backend = (*Client)(nil)
}

// ============================================================================
// Document type resolution
// ============================================================================

func TestResolveDocumentType_SendsFilterAndHeaders(t *testing.T) {
	// Given: a server with a single matching document type
	var got *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		writeJSON(t, w, map[string]any{
			"totalAvailable": 1,
			"results": []map[string]any{
				{"id": "dt-1", "name": "Invoice", "categoryId": 7, "categoryName": "Finance"},
			},
		})
	}, func(cfg *Config) { cfg.AuditUser = "jdoe" })

	// When: resolving the type
	dt, err := c.ResolveDocumentType(context.Background(), "Finance", "Invoice")

	// Then: the result is mapped and the request carries the filter and auth headers
	require.NoError(t, err)
	assert.Equal(t, model.DocumentType{ID: "dt-1", Name: "Invoice", CategoryID: "7", CategoryName: "Finance"}, dt)

	require.NotNil(t, got)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/docfinity/webservices/rest/documentType", got.URL.Path)
	assert.Equal(t, "false", got.URL.Query().Get("includeNested"))
	assert.JSONEq(t,
		`{"logic":"AND","filters":[{"field":"name","operator":"eq","value":"Invoice"},{"field":"categoryName","operator":"eq","value":"Finance"}]}`,
		got.URL.Query().Get("filter"))

	assert.Equal(t, "Bearer secret", got.Header.Get("Authorization"))
	assert.Equal(t, "edm-token", got.Header.Get("X-XSRF-TOKEN"))
	assert.Equal(t, "XSRF-TOKEN=edm-token", got.Header.Get("Cookie"))
	assert.Equal(t, "jdoe", got.Header.Get("X-AUDITUSER"))
	assert.Equal(t, "req-1", got.Header.Get("X-Request-ID"))
}

func TestResolveDocumentType_OmitsAuditUserWhenUnset(t *testing.T) {
	var present atomic.Bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header[http.CanonicalHeaderKey("X-AUDITUSER")]; ok {
			present.Store(true)
		}
		writeJSON(t, w, map[string]any{"results": []map[string]any{{"id": "dt-1"}}})
	})

	_, err := c.ResolveDocumentType(context.Background(), "Finance", "Invoice")
	require.NoError(t, err)
	assert.False(t, present.Load())
}

func TestResolveDocumentType_NotFoundAndAmbiguous(t *testing.T) {
	tests := []struct {
		name    string
		results []map[string]any
		code    string
	}{
		{name: "no match", results: []map[string]any{}, code: edmerrors.ErrCodeDocumentTypeNotFound},
		{name: "two matches", results: []map[string]any{{"id": "a"}, {"id": "b"}}, code: edmerrors.ErrCodeAmbiguousDocumentType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				writeJSON(t, w, map[string]any{"totalAvailable": len(tt.results), "results": tt.results})
			})

			_, err := c.ResolveDocumentType(context.Background(), "Finance", "Invoice")
			require.Error(t, err)
			assert.True(t, edmerrors.HasCode(err, tt.code))
			assert.False(t, edmerrors.IsRetryable(err))
			assert.Equal(t, int32(1), calls.Load(), "resolution errors are not retried")

			// Failures are not cached
			_, _ = c.ResolveDocumentType(context.Background(), "Finance", "Invoice")
			assert.Equal(t, int32(2), calls.Load())
		})
	}
}

func TestResolveDocumentType_CachesMatches(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(t, w, map[string]any{"results": []map[string]any{{"id": "dt-1", "name": "Invoice"}}})
	})

	for range 3 {
		dt, err := c.ResolveDocumentType(context.Background(), "Finance", "Invoice")
		require.NoError(t, err)
		assert.Equal(t, "dt-1", dt.ID)
	}
	assert.Equal(t, int32(1), calls.Load())

	c.InvalidateDocumentTypes()
	_, err := c.ResolveDocumentType(context.Background(), "Finance", "Invoice")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestResolveDocumentType_CancelledCallerDoesNotFailSharedLookup(t *testing.T) {
	// Given: a lookup that blocks until released
	arrived := make(chan struct{}, 1)
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case arrived <- struct{}{}:
		default:
		}
		<-release
		writeJSON(t, w, map[string]any{"results": []map[string]any{{"id": "dt-1", "name": "Invoice"}}})
	})
	var releaseOnce sync.Once
	unblock := func() { releaseOnce.Do(func() { close(release) }) }
	defer unblock()

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.ResolveDocumentType(firstCtx, "Finance", "Invoice")
		firstErr <- err
	}()
	<-arrived

	type result struct {
		dt  model.DocumentType
		err error
	}
	second := make(chan result, 1)
	go func() {
		dt, err := c.ResolveDocumentType(context.Background(), "Finance", "Invoice")
		second <- result{dt, err}
	}()
	time.Sleep(50 * time.Millisecond)

	// When: the first caller is cancelled while the lookup is in flight
	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)
	unblock()

	// Then: the other caller still gets the document type
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, "dt-1", res.dt.ID)
}

// ============================================================================
// Retry policy
// ============================================================================

func TestRead_RetriesServerErrors(t *testing.T) {
	// Given: a server that fails twice then succeeds
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		writeJSON(t, w, []map[string]any{{"id": "m1", "name": "Vendor"}})
	})

	// When: fetching the catalog
	defs, err := c.FetchFieldCatalog(context.Background(), "dt-1", "")

	// Then: the read succeeds after retrying
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRead_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "denied", http.StatusForbidden)
	})

	_, err := c.FetchFieldCatalog(context.Background(), "dt-1", "")
	require.Error(t, err)
	assert.True(t, edmerrors.HasCode(err, edmerrors.ErrCodeBackendStatus))
	assert.Equal(t, int32(1), calls.Load())

	var ee *edmerrors.EDMError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "403", ee.Details["status"])
	assert.Equal(t, "denied", ee.Details["body"])
	assert.NotEmpty(t, ee.Suggestion)
}

func TestWrite_NeverRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.EvaluateDatasource(context.Background(), "doc-1", "dt-1", "m1", nil)
	require.Error(t, err)
	assert.True(t, edmerrors.IsRetryable(err))
	assert.Equal(t, int32(1), calls.Load())

	err = c.DeleteDocument(context.Background(), "doc-1")
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSend_MalformedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	})

	_, err := c.FetchExistingEntries(context.Background(), "doc-1")
	require.Error(t, err)
	assert.True(t, edmerrors.HasCode(err, edmerrors.ErrCodeBackendResponse))
}

// ============================================================================
// Indexing endpoints
// ============================================================================

func TestFetchFieldCatalog_MapsControls(t *testing.T) {
	var body controlsRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/docfinity/webservices/rest/indexing/controls", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		decodeBody(t, r, &body)
		writeJSON(t, w, []map[string]any{
			{
				"id": "m1", "name": "Vendor ID", "dataType": "STRING", "required": true,
				"responsibilityMapping": []string{"Vendor Name"},
			},
			{
				"id": "m2", "name": "Vendor Name", "dataType": nil, "runDatasource": true,
				"parameterPromptDatasourceArguments": []map[string]any{
					{"datasourceArgumentName": "Vendor ID", "argumentType": "STRING"},
					{"datasourceArgumentName": ""},
				},
			},
			{"id": 3, "name": "Amount", "dataType": "DECIMAL", "allowMultipleValues": true},
		})
	})

	defs, err := c.FetchFieldCatalog(context.Background(), "dt-1", "doc-9")
	require.NoError(t, err)

	assert.Equal(t, controlsRequest{DocumentTypeID: "dt-1", DocumentID: "doc-9"}, body)
	assert.Equal(t, []model.FieldDefinition{
		{ID: "m1", Name: "Vendor ID", DataType: model.DataTypeString, Required: true, ResponsibilityMapping: []string{"Vendor Name"}},
		{ID: "m2", Name: "Vendor Name", DataType: model.DataTypeString, RunDatasource: true, DatasourcePrompts: []string{"Vendor ID"}},
		{ID: "3", Name: "Amount", DataType: model.DataTypeDecimal, AllowMultipleValues: true},
	}, defs)
}

func TestFetchExistingEntries_SkipsDeleted(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "doc-1", r.URL.Query().Get("documentId"))
		_, _ = w.Write([]byte(`{
			"documentTypeId": "dt-1",
			"documentId": "doc-1",
			"documentIndexingMetadataDtos": [
				{"id": "e1", "metadataId": "m1", "metadataName": "Tag", "value": "a"},
				{"id": "e2", "metadataId": "m1", "metadataName": "Tag", "value": "b", "markedForDelete": true},
				{"id": 42, "metadataId": "m2", "metadataName": "Count", "value": 7}
			]
		}`))
	})

	entries, err := c.FetchExistingEntries(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, []model.ExistingEntry{
		{ID: "e1", FieldID: "m1", FieldName: "Tag", Value: "a"},
		{ID: "42", FieldID: "m2", FieldName: "Count", Value: json.Number("7")},
	}, entries)
}

func TestEvaluateDatasource_SendsTypedArguments(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/docfinity/webservices/rest/indexing/executeDatasource", r.URL.Path)
		decodeBody(t, r, &body)
		writeJSON(t, w, []map[string]any{{"key": "Vendor Name", "value": "ACME"}})
	})

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	values, err := c.EvaluateDatasource(context.Background(), "doc-1", "dt-1", "m2", []model.DatasourceArgument{
		{Name: "Vendor ID", Value: "V-1", DataType: model.DataTypeString},
		{Name: "Received", Value: day, DataType: model.DataTypeDate},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"ACME"}, values)

	assert.Equal(t, "doc-1", body["documentId"])
	assert.Equal(t, "dt-1", body["documentTypeId"])
	assert.Equal(t, "m2", body["metadataId"])
	args := body["arguments"].([]any)
	require.Len(t, args, 2)
	assert.Equal(t, map[string]any{"name": "Vendor ID", "value": "V-1", "dataType": "STRING"}, args[0])
	assert.Equal(t, json.Number("1709251200000"), args[1].(map[string]any)["value"])
}

func TestSubmitIndex_EncodesEntries(t *testing.T) {
	// Given: a server echoing the commit with assigned ids
	var body []map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/docfinity/webservices/rest/indexing/index/commit", r.URL.Path)
		decodeBody(t, r, &body)
		writeJSON(t, w, []map[string]any{{
			"documentTypeId": "dt-1",
			"documentId":     "doc-1",
			"documentIndexingMetadataDtos": []map[string]any{
				{"id": "e1", "metadataId": "m1", "metadataName": "Vendor", "value": "ACME"},
				{"id": "e2", "metadataId": "m2", "metadataName": "Received", "value": 1709251200000},
			},
		}})
	})

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	entries := []model.IndexingEntry{
		{FieldID: "m1", FieldName: "Vendor", Value: "ACME"},
		{FieldID: "m2", FieldName: "Received", Value: day},
		{ID: model.StringPtr("old"), FieldID: "m3", FieldName: "Tag", Value: "x", MarkedForDelete: true},
	}

	// When: submitting
	got, err := c.SubmitIndex(context.Background(), "dt-1", "doc-1", entries)

	// Then: the wire format matches and dates round-trip
	require.NoError(t, err)
	require.Len(t, body, 1)
	assert.Equal(t, false, body[0]["metadataLoaded"])
	metadata := body[0]["documentIndexingMetadataDtos"].([]any)
	require.Len(t, metadata, 3)
	assert.Nil(t, metadata[0].(map[string]any)["id"])
	assert.Equal(t, json.Number("1709251200000"), metadata[1].(map[string]any)["value"])
	assert.Equal(t, "old", metadata[2].(map[string]any)["id"])
	assert.Equal(t, true, metadata[2].(map[string]any)["markedForDelete"])

	assert.Equal(t, []model.IndexingEntry{
		{ID: model.StringPtr("e1"), FieldID: "m1", FieldName: "Vendor", Value: "ACME"},
		{ID: model.StringPtr("e2"), FieldID: "m2", FieldName: "Received", Value: day},
	}, got)
}

func TestSubmitReindex_MarksMetadataLoaded(t *testing.T) {
	var body []map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/docfinity/webservices/rest/indexing/reindex/commit", r.URL.Path)
		decodeBody(t, r, &body)
		writeJSON(t, w, []map[string]any{{"documentIndexingMetadataDtos": []map[string]any{}}})
	})

	got, err := c.SubmitReindex(context.Background(), "dt-1", "doc-1", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.Len(t, body, 1)
	assert.Equal(t, true, body[0]["metadataLoaded"])
}

func TestSubmitIndex_EmptyResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := c.SubmitIndex(context.Background(), "dt-1", "doc-1", nil)
	assert.True(t, edmerrors.HasCode(err, edmerrors.ErrCodeBackendResponse))
}

func TestDeleteDocument_PostsIDList(t *testing.T) {
	var body []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/docfinity/webservices/rest/document/delete", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		decodeBody(t, r, &body)
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.DeleteDocument(context.Background(), "doc-1"))
	assert.Equal(t, []string{"doc-1"}, body)
}

// ============================================================================
// Upload
// ============================================================================

func TestUploadFile_SendsMultipart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "invoice.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	var fields map[string]string
	var fileName, content, partType string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/docfinity/servlet/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		fields = map[string]string{
			"json":        r.FormValue("json"),
			"entryMethod": r.FormValue("entryMethod"),
		}
		f, hdr, err := r.FormFile("upload_files")
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		fileName, content, partType = hdr.Filename, string(data), hdr.Header.Get("Content-Type")
		_, _ = w.Write([]byte("  doc-123\n"))
	})

	id, err := c.UploadFile(context.Background(), indexer.Upload{Path: path, FileName: "invoice.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "doc-123", id)
	assert.Equal(t, map[string]string{"json": "1", "entryMethod": "FILE_UPLOAD"}, fields)
	assert.Equal(t, "invoice.pdf", fileName)
	assert.Equal(t, "%PDF-1.4", content)
	assert.Equal(t, "application/octet-stream", partType)
}

func TestUploadFile_FromContent(t *testing.T) {
	var content string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		f, _, err := r.FormFile("upload_files")
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		content = string(data)
		_, _ = w.Write([]byte("doc-9"))
	})

	id, err := c.UploadFile(context.Background(), indexer.Upload{FileName: "a.txt", Content: []byte("hello")})
	require.NoError(t, err)
	assert.Equal(t, "doc-9", id)
	assert.Equal(t, "hello", content)
}

func TestUploadFile_EmptyID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusOK)
	})

	_, err := c.UploadFile(context.Background(), indexer.Upload{FileName: "a.txt", Content: []byte("x")})
	assert.True(t, edmerrors.HasCode(err, edmerrors.ErrCodeBackendResponse))
}

func TestUploadFile_MissingFile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := c.UploadFile(context.Background(), indexer.Upload{Path: filepath.Join(t.TempDir(), "nope"), FileName: "nope"})
	assert.True(t, edmerrors.HasCode(err, edmerrors.ErrCodeFileRead))
}
