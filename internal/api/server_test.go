package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/corpusload/internal/config"
	"github.com/dgallion1/corpusload/internal/library"
	"github.com/dgallion1/corpusload/internal/library/sqlite"
	"github.com/dgallion1/corpusload/internal/metrics"
	"github.com/dgallion1/corpusload/internal/pipeline"
	"github.com/dgallion1/corpusload/internal/search"
)

const testKey = "test-key"

func newTestServer(t *testing.T, withImports bool) (*httptest.Server, *sqlite.Store) {
	t.Helper()
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	st, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.Config{
		APIKey:             testKey,
		WorkerCount:        1,
		MaxQueueSize:       4,
		MaxConcurrentStore: 1,
		MaxUploadBytes:     1 << 20,
		JobTTL:             time.Hour,
	}
	var orch *pipeline.Orchestrator
	if withImports {
		orch = pipeline.NewOrchestrator(cfg, config.DefaultProfile(), st, log)
		orch.Start(context.Background())
		t.Cleanup(orch.Stop)
	}

	srv := httptest.NewServer(NewServer(st, orch, log, cfg))
	t.Cleanup(srv.Close)
	return srv, st
}

func TestHealth_NoAuth(t *testing.T) {
	srv, _ := newTestServer(t, false)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t, false)
	for _, auth := range []string{"", "Bearer wrong"} {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/index", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("auth %q: expected 401, got %d", auth, resp.StatusCode)
		}
	}
}

func TestClientRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, false)
	c := library.NewClient(srv.URL, testKey, 5*time.Second, nil)
	defer c.Close()
	ctx := context.Background()

	idx := library.Index{
		Title:      "The Republic",
		Categories: []string{"Philosophy"},
		Levels:     []string{"Book", "Page", "Paragraph"},
		Schema:     library.FlatSchema("The Republic", "א", []string{"Book", "Page", "Paragraph"}),
	}
	if err := c.ReplaceIndex(ctx, idx); err != nil {
		t.Fatalf("ReplaceIndex: %v", err)
	}
	if err := c.ReplaceIndex(ctx, idx); err != nil {
		t.Fatalf("second ReplaceIndex: %v", err)
	}
	got, err := c.GetIndex(ctx, "The Republic")
	if err != nil {
		t.Fatalf("GetIndex: %v", err)
	}
	if !reflect.DeepEqual(got, idx) {
		t.Errorf("index mismatch:\n got %+v\nwant %+v", got, idx)
	}

	v := library.Version{Title: "The Republic", VersionTitle: "Perseus", Language: "en", Chapter: []any{[]any{[]any{"a"}}}}
	if err := c.ReplaceVersion(ctx, v); err != nil {
		t.Fatalf("ReplaceVersion: %v", err)
	}
	gotV, err := c.GetVersion(ctx, "The Republic")
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	if !reflect.DeepEqual(gotV.Chapter, v.Chapter) || gotV.VersionTitle != "Perseus" {
		t.Errorf("version mismatch: %+v", gotV)
	}

	all, err := c.ListIndexes(ctx)
	if err != nil || len(all) != 1 {
		t.Errorf("ListIndexes: %d, %v", len(all), err)
	}

	cats := []library.Category{{Path: []string{"Drama"}, Title: "Drama"}, {Path: []string{"Drama", "Shakespeare"}, Title: "Shakespeare"}}
	if err := c.ReplaceCategories(ctx, cats); err != nil {
		t.Fatalf("ReplaceCategories: %v", err)
	}
	gotCats, err := c.ListCategories(ctx)
	if err != nil || !reflect.DeepEqual(gotCats, cats) {
		t.Errorf("categories mismatch: %+v, %v", gotCats, err)
	}

	if err := c.ReplaceTerms(ctx, "section_names", []library.Term{{Name: "Act", Title: "Act"}}); err != nil {
		t.Fatalf("ReplaceTerms: %v", err)
	}
}

func TestGetMissingIs404(t *testing.T) {
	srv, _ := newTestServer(t, false)
	c := library.NewClient(srv.URL, testKey, 5*time.Second, nil)
	if _, err := c.GetIndex(context.Background(), "Nope"); !errors.Is(err, library.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPutIndex_TitleMismatch(t *testing.T) {
	srv, _ := newTestServer(t, false)
	body, _ := json.Marshal(library.Index{Title: "Hamlet"})
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/index/Macbeth", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestDeleteVersions(t *testing.T) {
	srv, st := newTestServer(t, false)
	ctx := context.Background()
	if err := st.ReplaceVersion(ctx, library.Version{Title: "Hamlet", Chapter: []any{}}); err != nil {
		t.Fatal(err)
	}
	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/versions/Hamlet", nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
	if _, err := st.GetVersion(ctx, "Hamlet"); !errors.Is(err, library.ErrNotFound) {
		t.Errorf("expected version to be deleted, got %v", err)
	}
}

const uploadJSON = `[
{"type":"act","line_id":1,"play_name":"Macbeth","speech_number":"","line_number":"","speaker":"","text_entry":"ACT I"},
{"type":"scene","line_id":2,"play_name":"Macbeth","speech_number":"","line_number":"","speaker":"","text_entry":"SCENE I. A desert place."},
{"type":"line","line_id":3,"play_name":"Macbeth","speech_number":1,"line_number":"1.1.1","speaker":"First Witch","text_entry":"When shall we three meet again"}
]`

func upload(t *testing.T, srv *httptest.Server, kind, filename, content string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("kind", kind)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func authGet(t *testing.T, url string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

// submitAndWait uploads a corpus and polls its job until it leaves the
// queued/building/storing states.
func submitAndWait(t *testing.T, srv *httptest.Server, kind, filename, content string) pipeline.JobSnapshot {
	t.Helper()
	resp := upload(t, srv, kind, filename, content)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var accepted struct {
		JobID   string `json:"job_id"`
		PollURL string `json:"poll_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		t.Fatal(err)
	}

	var snap pipeline.JobSnapshot
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		r := authGet(t, srv.URL+accepted.PollURL)
		json.NewDecoder(r.Body).Decode(&snap)
		r.Body.Close()
		switch snap.Status {
		case pipeline.StatusCompleted, pipeline.StatusFailed, pipeline.StatusPartial, pipeline.StatusUnchanged:
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish, last status %q", accepted.JobID, snap.Status)
	return snap
}

func TestImport_UploadAndPoll(t *testing.T) {
	srv, st := newTestServer(t, true)

	snap := submitAndWait(t, srv, "drama", "shakespeare.json", uploadJSON)
	if snap.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed, got %q (%v)", snap.Status, snap.Progress.Errors)
	}
	if _, err := st.GetVersion(context.Background(), "Macbeth"); err != nil {
		t.Errorf("expected Macbeth to be stored: %v", err)
	}
}

func TestImport_IndexesForSearchAndCountsMetrics(t *testing.T) {
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	st, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	ix, err := search.OpenMem()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ix.Close() })
	m := metrics.New()

	cfg := config.Config{APIKey: testKey, WorkerCount: 1, MaxQueueSize: 4, MaxConcurrentStore: 1, MaxUploadBytes: 1 << 20, JobTTL: time.Hour}
	orch := pipeline.NewOrchestrator(cfg, config.DefaultProfile(), st, log, pipeline.WithIndexer(ix), pipeline.WithObserver(m))
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)
	srv := httptest.NewServer(NewServer(st, orch, log, cfg, WithSearch(ix), WithMetrics(m)))
	t.Cleanup(srv.Close)

	if snap := submitAndWait(t, srv, "drama", "shakespeare.json", uploadJSON); snap.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed, got %q", snap.Status)
	}

	resp := authGet(t, srv.URL+"/api/search?q=three&work=Macbeth")
	var result struct {
		Hits []search.Hit `json:"hits"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	resp.Body.Close()
	if len(result.Hits) != 1 || result.Hits[0].Ref != "1.1.1" {
		t.Errorf("unexpected search hits %+v", result.Hits)
	}

	resp = authGet(t, srv.URL+"/api/search")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without q, got %d", resp.StatusCode)
	}

	// The observer runs after the final status is visible.
	want := `corpusload_import_jobs_total{kind="drama",status="completed"} 1`
	deadline := time.Now().Add(2 * time.Second)
	for {
		r, err := http.Get(srv.URL + "/metrics")
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()
		if strings.Contains(string(body), want) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("metrics never reported %q", want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestImport_RejectsWrongExtension(t *testing.T) {
	srv, _ := newTestServer(t, true)
	resp := upload(t, srv, "prose", "republic.json", "{}")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestImport_NotMountedWithoutOrchestrator(t *testing.T) {
	srv, _ := newTestServer(t, false)
	resp := upload(t, srv, "drama", "shakespeare.json", uploadJSON)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound && resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected import route to be absent, got %d", resp.StatusCode)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd": "passwd",
		"plays.json":       "plays.json",
		"":                 "unnamed",
		"a..b.xml":         "a_b.xml",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
