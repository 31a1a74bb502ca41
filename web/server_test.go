// ABOUTME: Tests for the inspection API routes using httptest against a temporary run store.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/2389-research/ark/runstore"
)

func newTestServer(t *testing.T, withIndex bool) (*Server, *runstore.Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := runstore.Open(filepath.Join(dir, "runs"), nil)
	if err != nil {
		t.Fatal(err)
	}
	var idx *runstore.EventIndex
	if withIndex {
		idx, err = runstore.OpenEventIndex(filepath.Join(dir, "events.db"))
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { idx.Close() })
		store.AttachIndex(idx)
	}

	id, err := store.CreateRun(t.TempDir(), []string{"/src"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SaveCheckpoint(id, "stage1", map[string]any{"whitelist": []string{".txt"}, "complete": true}); err != nil {
		t.Fatal(err)
	}
	for _, stage := range []string{"scan", "scan", "stage1", "copy"} {
		if err := store.AppendEvent(id, stage, "progress", map[string]string{"message": "[" + stage + "] x"}); err != nil {
			t.Fatal(err)
		}
	}

	srv, err := NewServer(ServerConfig{Store: store, Index: idx})
	if err != nil {
		t.Fatal(err)
	}
	return srv, store, id
}

func get(t *testing.T, srv http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestNewServerRequiresStore(t *testing.T) {
	if _, err := NewServer(ServerConfig{}); err == nil {
		t.Fatal("expected error without a store")
	}
}

func TestListenAndServeStopsWithContext(t *testing.T) {
	store, err := runstore.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	srv, err := NewServer(ServerConfig{Addr: "127.0.0.1:0", Store: store})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := srv.ListenAndServe(ctx); err != nil {
		t.Errorf("ListenAndServe = %v, want nil after cancel", err)
	}
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, false)
	rec := get(t, srv, "/health")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}
}

func TestRunList(t *testing.T) {
	srv, _, id := newTestServer(t, false)
	rec := get(t, srv, "/runs")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var runs []RunSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].RunID != id || runs[0].Status != runstore.StatusRunning || runs[0].CheckpointSeq != 1 {
		t.Errorf("runs = %+v", runs)
	}

	rec = get(t, srv, "/runs?status=completed")
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Errorf("status filter returned %+v", runs)
	}
}

func TestRunDetail(t *testing.T) {
	srv, _, id := newTestServer(t, false)
	rec := get(t, srv, "/runs/"+id)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	var detail RunDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatal(err)
	}
	if detail.RunID != id || detail.Events == nil || detail.Events.TotalEvents != 4 {
		t.Errorf("detail = %+v", detail)
	}
	if _, ok := detail.Checkpoints["stage1"]; !ok {
		t.Errorf("stage1 checkpoint missing: %v", detail.Checkpoints)
	}
}

func TestRunNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t, false)
	for _, path := range []string{"/runs/missing", "/runs/missing/events", "/runs/missing/report", "/runs/missing/stages"} {
		if rec := get(t, srv, path); rec.Code != http.StatusNotFound {
			t.Errorf("%s = %d, want 404", path, rec.Code)
		}
	}
}

func TestEvents(t *testing.T) {
	srv, _, id := newTestServer(t, false)

	tests := []struct {
		name      string
		query     string
		wantCount int
		wantTotal int
	}{
		{"all", "", 4, 4},
		{"by stage", "?stage=scan", 2, 2},
		{"two stages", "?stage=scan&stage=copy", 3, 3},
		{"limit", "?limit=1", 1, 4},
		{"offset", "?offset=3", 1, 4},
		{"tail", "?tail=2", 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, srv, "/runs/"+id+"/events"+tt.query)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
			}
			var body struct {
				Events []runstore.Event `json:"events"`
				Total  int              `json:"total"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if len(body.Events) != tt.wantCount || body.Total != tt.wantTotal {
				t.Errorf("got %d events total %d, want %d/%d", len(body.Events), body.Total, tt.wantCount, tt.wantTotal)
			}
		})
	}

	for _, bad := range []string{"?limit=-1", "?limit=abc", "?limit=5000", "?offset=-2", "?tail=x"} {
		if rec := get(t, srv, "/runs/"+id+"/events"+bad); rec.Code != http.StatusBadRequest {
			t.Errorf("%s = %d, want 400", bad, rec.Code)
		}
	}
}

func TestStageCounts(t *testing.T) {
	for _, withIndex := range []bool{false, true} {
		srv, _, id := newTestServer(t, withIndex)
		rec := get(t, srv, "/runs/"+id+"/stages")
		if rec.Code != http.StatusOK {
			t.Fatalf("index=%v status = %d", withIndex, rec.Code)
		}
		var counts []StageCount
		if err := json.Unmarshal(rec.Body.Bytes(), &counts); err != nil {
			t.Fatal(err)
		}
		want := []StageCount{{"copy", 1}, {"scan", 2}, {"stage1", 1}}
		if len(counts) != len(want) {
			t.Fatalf("index=%v counts = %+v", withIndex, counts)
		}
		for i := range want {
			if counts[i] != want[i] {
				t.Errorf("index=%v counts[%d] = %+v, want %+v", withIndex, i, counts[i], want[i])
			}
		}
	}
}

func TestRunsWithEvent(t *testing.T) {
	srv, _, _ := newTestServer(t, false)
	if rec := get(t, srv, "/events/runs"); rec.Code != http.StatusNotImplemented {
		t.Errorf("without index = %d, want 501", rec.Code)
	}

	srv, _, id := newTestServer(t, true)
	rec := get(t, srv, "/events/runs?event=progress")
	var body struct {
		Runs []string `json:"runs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Runs) != 1 || body.Runs[0] != id {
		t.Errorf("runs = %v", body.Runs)
	}
}

func TestReport(t *testing.T) {
	srv, _, id := newTestServer(t, false)

	rec := get(t, srv, "/runs/"+id+"/report")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %s", ct)
	}
	if body := rec.Body.String(); !strings.Contains(body, "<table>") || !strings.Contains(body, "<title>Run "+id+"</title>") {
		t.Errorf("report body:\n%s", body)
	}

	rec = get(t, srv, "/runs/"+id+"/report?format=md")
	if !strings.HasPrefix(rec.Body.String(), "# Backup run "+id) {
		t.Errorf("markdown body:\n%s", rec.Body.String())
	}
}
