package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maruel/factsheet/internal/extract"
	"github.com/maruel/factsheet/internal/journal"
	"github.com/maruel/factsheet/internal/persist"
	"github.com/maruel/factsheet/internal/rows"
	"github.com/maruel/factsheet/internal/server/dto"
)

type failingExtractor struct{}

func (failingExtractor) Extract(context.Context, extract.Document) ([]rows.Input, error) {
	return nil, errors.New("service unavailable")
}

type testServer struct {
	t     *testing.T
	srv   *httptest.Server
	store *rows.Store
	git   *persist.Git
	dir   string
}

func newTestServer(t *testing.T, ex extract.Extractor) *testServer {
	t.Helper()
	ctx := t.Context()
	dir := t.TempDir()
	f, err := persist.NewFile(filepath.Join(dir, "data", "snapshot.json"))
	if err != nil {
		t.Fatal(err)
	}
	g, err := persist.NewGit(f, persist.Author{Name: "test", Email: "test@localhost"})
	if err != nil {
		t.Fatal(err)
	}
	j, err := journal.Open(ctx, filepath.Join(dir, "journal.jsonl"), 100)
	if err != nil {
		t.Fatal(err)
	}
	s, err := rows.Open(ctx, g, rows.WithObserver(j))
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(NewRouter(&Options{
		Store:          s,
		Extractor:      ex,
		Journal:        j,
		Revisions:      g,
		ExportBaseName: "extracted_data",
		Version:        "test",
	}))
	t.Cleanup(srv.Close)
	return &testServer{t: t, srv: srv, store: s, git: g, dir: filepath.Dir(f.Path())}
}

// do sends a request and decodes a JSON response into out, when not nil.
func (ts *testServer) do(method, path, body string, out any) *http.Response {
	ts.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ts.t.Context(), method, ts.srv.URL+path, r)
	if err != nil {
		ts.t.Fatal(err)
	}
	resp, err := ts.srv.Client().Do(req)
	if err != nil {
		ts.t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		ts.t.Fatal(err)
	}
	if out != nil {
		if err := json.Unmarshal(b, out); err != nil {
			ts.t.Fatalf("%s %s: failed to decode %q: %v", method, path, b, err)
		}
	}
	return resp
}

func (ts *testServer) expectError(method, path, body string, status int, code dto.ErrorCode) {
	ts.t.Helper()
	var e dto.ErrorResponse
	resp := ts.do(method, path, body, &e)
	if resp.StatusCode != status || e.Error.Code != code {
		ts.t.Errorf("%s %s: got %d %s (%s), want %d %s", method, path, resp.StatusCode, e.Error.Code, e.Error.Message, status, code)
	}
}

func (ts *testServer) loadSample() []dto.Row {
	ts.t.Helper()
	var out dto.RowsResponse
	if resp := ts.do("POST", "/api/rows/sample", `{}`, &out); resp.StatusCode != http.StatusOK {
		ts.t.Fatalf("sample: status %d", resp.StatusCode)
	}
	return out.Rows
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &extract.Sample{})
	var h dto.HealthResponse
	if resp := ts.do("GET", "/api/health", "", &h); resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if h.Status != "ok" || h.Version != "test" || h.Rows != 0 {
		t.Errorf("unexpected health %+v", h)
	}
}

func TestListRows(t *testing.T) {
	ts := newTestServer(t, &extract.Sample{})
	created := ts.loadSample()
	want := extract.SampleRows()
	if len(created) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(created))
	}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"all", "", nil},
		{"All label", "?section=All", nil},
		{"section and search", "?section=Nanocarrier&q=wpi", []string{"WPI-CHI-HA nanoparticles"}},
		{"search span", "?q=" + "table%202", []string{"89.4%", "182 nm", "+32.5 mV"}},
		{"where", "?where=" + "confidence%20%3C%200.8", []string{"1:1 (w/w)", "0.21"}},
		{"unknown section", "?section=Nope", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out dto.RowsResponse
			if resp := ts.do("GET", "/api/rows"+tt.query, "", &out); resp.StatusCode != http.StatusOK {
				t.Fatalf("status %d", resp.StatusCode)
			}
			if out.Total != len(want) {
				t.Errorf("total = %d", out.Total)
			}
			if tt.want == nil {
				if len(out.Rows) != len(want) {
					t.Errorf("expected every row, got %d", len(out.Rows))
				}
				return
			}
			got := make([]string, len(out.Rows))
			for i, r := range out.Rows {
				got[i] = r.Value
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("values = %q, want %q", got, tt.want)
			}
		})
	}

	ts.expectError("GET", "/api/rows?where=confidence%20%3C", "", http.StatusBadRequest, dto.ErrorCodeInvalidFormat)

	var sections dto.ListSectionsResponse
	ts.do("GET", "/api/sections", "", &sections)
	if strings.Join(sections.Sections, ",") != "Nanocarrier,Formulation,Characterization,Release" {
		t.Errorf("sections = %q", sections.Sections)
	}
}

func TestUpdateRow(t *testing.T) {
	ts := newTestServer(t, &extract.Sample{})
	created := ts.loadSample()
	id := created[0].ID
	path := "/api/rows/" + id

	var got dto.Row
	if resp := ts.do("PATCH", path, `{"field":"value","value":"WPI nanoparticles"}`, &got); resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if got.Value != "WPI nanoparticles" || got.Key != created[0].Key || got.ID != id {
		t.Errorf("unexpected row %+v", got)
	}
	ts.do("PATCH", path, `{"field":"confidence","value":0.5}`, &got)
	if got.Confidence != 0.5 {
		t.Errorf("confidence = %v", got.Confidence)
	}
	ts.do("PATCH", path, `{"field":"confidence","value":"0.25"}`, &got)
	if got.Confidence != 0.25 {
		t.Errorf("confidence = %v", got.Confidence)
	}
	ts.do("PATCH", path, `{"field":"sourceSpan","value":null}`, &got)
	if got.SourceSpan != nil {
		t.Errorf("sourceSpan = %q", *got.SourceSpan)
	}

	ts.expectError("PATCH", path, `{"field":"confidence","value":"high"}`, http.StatusBadRequest, dto.ErrorCodeValidationFailed)
	ts.expectError("PATCH", path, `{"field":"value","value":3}`, http.StatusBadRequest, dto.ErrorCodeValidationFailed)
	ts.expectError("PATCH", path, `{"field":"key","value":null}`, http.StatusBadRequest, dto.ErrorCodeValidationFailed)
	ts.expectError("PATCH", path, `{"field":"id","value":"x"}`, http.StatusBadRequest, dto.ErrorCodeValidationFailed)
	ts.expectError("PATCH", path, `{"field":"value"}`, http.StatusBadRequest, dto.ErrorCodeMissingField)
	ts.expectError("PATCH", path, `{"field":"value","value":"x","extra":1}`, http.StatusBadRequest, dto.ErrorCodeValidationFailed)
	ts.expectError("PATCH", "/api/rows/not-an-id", `{"field":"value","value":"x"}`, http.StatusBadRequest, dto.ErrorCodeInvalidFormat)

	// The other rows are untouched.
	after := ts.store.Snapshot()
	for i := 1; i < len(after); i++ {
		if after[i].ID.String() != created[i].ID || after[i].Value != created[i].Value {
			t.Errorf("row %d changed: %+v", i, after[i])
		}
	}

	// Each successful mutation is a revision named after the request.
	revs, err := ts.git.Revisions(t.Context(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(revs) != 1 || revs[0].Message != "PATCH "+path {
		t.Errorf("unexpected revisions %+v", revs)
	}
}

func TestUpdateRowStorageError(t *testing.T) {
	ts := newTestServer(t, &extract.Sample{})
	created := ts.loadSample()
	if err := os.WriteFile(filepath.Join(ts.dir, ".git", "index"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	ts.expectError("PATCH", "/api/rows/"+created[0].ID, `{"field":"value","value":"lost"}`, http.StatusInternalServerError, dto.ErrorCodeStorageError)
	if got := ts.store.Snapshot()[0].Value; got != created[0].Value {
		t.Errorf("value = %q, want %q", got, created[0].Value)
	}
	data, ok, err := ts.git.LoadAtStartup(t.Context())
	if err != nil || !ok || strings.Contains(string(data), "lost") {
		t.Errorf("snapshot on disk = %q, %v, %v", data, ok, err)
	}
}

func TestDeleteRow(t *testing.T) {
	ts := newTestServer(t, &extract.Sample{})
	created := ts.loadSample()
	path := "/api/rows/" + created[1].ID
	var out dto.DeleteRowResponse
	if resp := ts.do("DELETE", path, "", &out); resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if out.ID != created[1].ID || out.Total != len(created)-1 {
		t.Errorf("unexpected response %+v", out)
	}
	ts.expectError("DELETE", path, "", http.StatusNotFound, dto.ErrorCodeNotFound)
	if ts.store.Len() != len(created)-1 {
		t.Errorf("store has %d rows", ts.store.Len())
	}
}

func TestExport(t *testing.T) {
	ts := newTestServer(t, &extract.Sample{})
	ts.expectError("GET", "/api/export/csv", "", http.StatusConflict, dto.ErrorCodeNoData)
	ts.expectError("GET", "/api/export/json", "", http.StatusConflict, dto.ErrorCodeNoData)
	ts.loadSample()
	ts.expectError("GET", "/api/export/xml", "", http.StatusBadRequest, dto.ErrorCodeInvalidFormat)

	resp, err := ts.srv.Client().Get(ts.srv.URL + "/api/export/csv")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	if got := resp.Header.Get("Content-Disposition"); got != "attachment; filename=extracted_data.csv" {
		t.Errorf("Content-Disposition = %q", got)
	}
	if !strings.HasPrefix(string(body), rows.CSVHeader+"\n") {
		t.Errorf("unexpected body %q", body)
	}

	var exported []rows.Row
	ts.do("GET", "/api/export/json", "", &exported)
	if len(exported) != ts.store.Len() {
		t.Errorf("exported %d rows", len(exported))
	}
}

func TestExtract(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		ts := newTestServer(t, &extract.Sample{})
		var out dto.RowsResponse
		if resp := ts.do("POST", "/api/extract", `{"document":"paper.pdf"}`, &out); resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d", resp.StatusCode)
		}
		if len(out.Rows) != len(extract.SampleRows()) || out.Total != len(out.Rows) {
			t.Errorf("unexpected response %+v", out)
		}
		ts.expectError("POST", "/api/extract", `{"document":" "}`, http.StatusBadRequest, dto.ErrorCodeMissingField)
	})
	t.Run("failure", func(t *testing.T) {
		ts := newTestServer(t, failingExtractor{})
		ts.loadSample()
		before := ts.store.Len()
		ts.expectError("POST", "/api/extract", `{"document":"paper.pdf"}`, http.StatusBadGateway, dto.ErrorCodeExtractionFailed)
		if ts.store.Len() != before {
			t.Errorf("store changed on failure: %d -> %d", before, ts.store.Len())
		}
	})
}

func TestHistory(t *testing.T) {
	ts := newTestServer(t, &extract.Sample{})
	created := ts.loadSample()
	ts.do("DELETE", "/api/rows/"+created[0].ID, "", nil)

	var j dto.ListJournalResponse
	ts.do("GET", "/api/journal?limit=5", "", &j)
	if len(j.Entries) != 2 || j.Entries[0].Op != "delete" || j.Entries[1].Op != "load" {
		t.Errorf("unexpected journal %+v", j)
	}
	if j.Entries[0].RowIDs[0] != created[0].ID {
		t.Errorf("journal row ids = %q", j.Entries[0].RowIDs)
	}
	ts.expectError("GET", "/api/journal?limit=-1", "", http.StatusBadRequest, dto.ErrorCodeInvalidFormat)

	var revs dto.ListRevisionsResponse
	ts.do("GET", "/api/revisions", "", &revs)
	if len(revs.Revisions) != 2 || revs.Revisions[1].Message != "POST /api/rows/sample" {
		t.Errorf("unexpected revisions %+v", revs)
	}

	var schema map[string]any
	ts.do("GET", "/api/schema", "", &schema)
	props, _ := schema["properties"].(map[string]any)
	for _, k := range []string{"id", "section", "key", "value", "confidence", "sourceSpan"} {
		if _, ok := props[k]; !ok {
			t.Errorf("schema is missing %q: %v", k, schema)
		}
	}
}

func TestHistoryDisabled(t *testing.T) {
	ctx := t.Context()
	s, err := rows.Open(ctx, nopPersister{})
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(NewRouter(&Options{Store: s, Extractor: &extract.Sample{}}))
	defer srv.Close()
	ts := &testServer{t: t, srv: srv, store: s}
	ts.expectError("GET", "/api/journal", "", http.StatusNotImplemented, dto.ErrorCodeNotImplemented)
	ts.expectError("GET", "/api/revisions", "", http.StatusNotImplemented, dto.ErrorCodeNotImplemented)
}

type nopPersister struct{}

func (nopPersister) Save(context.Context, []byte) error { return nil }

func (nopPersister) LoadAtStartup(context.Context) ([]byte, bool, error) { return nil, false, nil }

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, &extract.Sample{})
	ts.do("GET", "/api/health", "", nil)
	resp, err := ts.srv.Client().Get(ts.srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `factsheet_http_requests_total{method="GET",path="/api/health",status="200"}`) {
		t.Errorf("metrics output is missing the health request")
	}
}
