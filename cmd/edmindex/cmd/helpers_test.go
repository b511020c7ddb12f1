package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// isolate points HOME, the user config and the working directory at temp
// directories and clears EDMINDEX_* overrides.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", home+"/.config")
	for _, k := range []string{"EDMINDEX_URL", "EDMINDEX_API_KEY", "EDMINDEX_AUDIT_USER", "EDMINDEX_LOG_LEVEL",
		"EDMINDEX_TIMEOUT", "EDMINDEX_DATE_FORMAT", "EDMINDEX_OTLP_ENDPOINT", "NO_COLOR"} {
		t.Setenv(k, "")
	}
	t.Chdir(t.TempDir())
	return home
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

// fakeServer is an in-memory DocFinity server with one document type,
// Finance / Invoice, holding a required "Vendor ID" and a multi-select "Tags".
type fakeServer struct {
	*httptest.Server

	mu        sync.Mutex
	requests  []string
	commits   []map[string]any
	deleted   []string
	uploads   int
	failIndex bool
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.Close)
	return f
}

// BaseURL is the DocFinity root the CLI should be pointed at.
func (f *fakeServer) BaseURL() string {
	return f.URL + "/docfinity"
}

func (f *fakeServer) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// FailIndex makes every commit answer 500.
func (f *fakeServer) FailIndex() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failIndex = true
}

func (f *fakeServer) Commits() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.commits...)
}

func (f *fakeServer) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func (f *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/docfinity/")
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+path)
	f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer secret" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	switch path {
	case "webservices/rest/documentType":
		page := map[string]any{"totalAvailable": 0, "results": []any{}}
		if strings.Contains(r.URL.Query().Get("filter"), `"Invoice"`) {
			page = map[string]any{"totalAvailable": 1, "results": []any{
				map[string]any{"id": "dt-1", "name": "Invoice", "categoryId": "cat-1", "categoryName": "Finance"},
			}}
		}
		writeJSON(w, page)

	case "webservices/rest/indexing/controls":
		writeJSON(w, []any{
			map[string]any{"id": "m-vendor", "name": "Vendor ID", "dataType": "STRING", "required": true},
			map[string]any{"id": "m-tags", "name": "Tags", "dataType": "STRING", "allowMultipleValues": true},
		})

	case "webservices/rest/indexing/documentIndexing":
		writeJSON(w, map[string]any{
			"documentId": r.URL.Query().Get("documentId"),
			"documentIndexingMetadataDtos": []any{
				map[string]any{"id": "e-1", "metadataId": "m-vendor", "metadataName": "Vendor ID", "value": "V-0"},
			},
		})

	case "servlet/upload":
		f.mu.Lock()
		f.uploads++
		n := f.uploads
		f.mu.Unlock()
		_, _ = io.Copy(io.Discard, r.Body)
		_, _ = fmt.Fprintf(w, "doc-%d", n)

	case "webservices/rest/indexing/index/commit", "webservices/rest/indexing/reindex/commit":
		f.mu.Lock()
		fail := f.failIndex
		f.mu.Unlock()
		if fail {
			http.Error(w, "index store unavailable", http.StatusInternalServerError)
			return
		}
		var body []map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		metadata, _ := body[0]["documentIndexingMetadataDtos"].([]any)
		for i, m := range metadata {
			entry := m.(map[string]any)
			if entry["id"] == nil {
				entry["id"] = fmt.Sprintf("new-%d", i)
			}
		}
		f.mu.Lock()
		f.commits = append(f.commits, body[0])
		f.mu.Unlock()
		writeJSON(w, body)

	case "webservices/rest/document/delete":
		var ids []string
		_ = json.NewDecoder(r.Body).Decode(&ids)
		f.mu.Lock()
		f.deleted = append(f.deleted, ids...)
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)

	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// committedFields returns name -> values of the live entries in a commit body.
func committedFields(t *testing.T, commit map[string]any) map[string][]any {
	t.Helper()
	metadata, ok := commit["documentIndexingMetadataDtos"].([]any)
	require.True(t, ok)
	out := make(map[string][]any)
	for _, m := range metadata {
		entry := m.(map[string]any)
		if deleted, _ := entry["markedForDelete"].(bool); deleted {
			continue
		}
		name := entry["metadataName"].(string)
		out[name] = append(out[name], entry["value"])
	}
	return out
}

func writeFileForTest(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}
