package upload

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

const testKey = "upload-key"

// planServer fakes the GymPlan upload API. status picks the response for
// each upload attempt (1-based); it defaults to 200.
type planServer struct {
	attempts atomic.Int32
	status   func(attempt int32, fileName string) int
}

func (p *planServer) start(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	})
	mux.HandleFunc("POST /api/v1/workouts/upload", func(w http.ResponseWriter, r *http.Request) {
		n := p.attempts.Add(1)
		if got := r.Header.Get("X-API-Key"); got != testKey {
			t.Errorf("X-API-Key = %q, want %q", got, testKey)
		}
		_, header, err := r.FormFile("plan")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		status := http.StatusOK
		if p.status != nil {
			status = p.status(n, header.Filename)
		}
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = io.WriteString(w, `{"message":"Successfully created 2 workouts","result":{"workouts_received":2,"workouts_inserted":2,"exercises_received":4}}`)
			return
		}
		_, _ = io.WriteString(w, `{"error":"nope"}`)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newTestClient(url string) *Client {
	c := NewClient(url+"/", testKey)
	c.backoff = time.Millisecond
	return c
}

func writePlan(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestStateDB verifies a file is only considered uploaded with the same
// size and hash.
func TestStateDB(t *testing.T) {
	ctx := context.Background()
	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	if ok, err := state.IsUploaded(ctx, "week11.pdf", 10, "abc"); err != nil || ok {
		t.Fatalf("IsUploaded before mark = %v, %v", ok, err)
	}
	if err := state.MarkUploaded(ctx, "week11.pdf", 10, "abc", 5); err != nil {
		t.Fatal(err)
	}
	if ok, _ := state.IsUploaded(ctx, "week11.pdf", 10, "abc"); !ok {
		t.Error("expected uploaded after mark")
	}
	if ok, _ := state.IsUploaded(ctx, "week11.pdf", 10, "changed"); ok {
		t.Error("edited file should not count as uploaded")
	}
}

// TestHashFile verifies the SHA-256 of a known input.
func TestHashFile(t *testing.T) {
	path := writePlan(t, t.TempDir(), "a.txt", "abc")
	got, err := HashFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("hash = %s, want %s", got, want)
	}
}

// TestUploadPlanRetries verifies server errors are retried with backoff.
func TestUploadPlanRetries(t *testing.T) {
	srv := &planServer{status: func(n int32, _ string) int {
		if n < 3 {
			return http.StatusBadGateway
		}
		return http.StatusOK
	}}
	ts := srv.start(t)
	path := writePlan(t, t.TempDir(), "week11.txt", "MONDAY\nBLOCK 1: Squat x 5\n")

	result, err := newTestClient(ts.URL).UploadPlan(context.Background(), path)
	if err != nil {
		t.Fatalf("UploadPlan: %v", err)
	}
	if got := srv.attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
	if result.Result.WorkoutsInserted != 2 {
		t.Errorf("inserted = %d, want 2", result.Result.WorkoutsInserted)
	}
}

// TestUploadPlanGivesUp verifies the client stops after three failures.
func TestUploadPlanGivesUp(t *testing.T) {
	srv := &planServer{status: func(int32, string) int { return http.StatusInternalServerError }}
	ts := srv.start(t)
	path := writePlan(t, t.TempDir(), "week11.txt", "x")

	if _, err := newTestClient(ts.URL).UploadPlan(context.Background(), path); err == nil {
		t.Fatal("expected error")
	}
	if got := srv.attempts.Load(); got != maxAttempts {
		t.Errorf("attempts = %d, want %d", got, maxAttempts)
	}
}

// TestUploadPlanClientErrors verifies 4xx answers are not retried and only
// unusable documents count as rejected.
func TestUploadPlanClientErrors(t *testing.T) {
	tests := []struct {
		status   int
		rejected bool
	}{
		{http.StatusUnprocessableEntity, true},
		{http.StatusUnsupportedMediaType, true},
		{http.StatusForbidden, false},
	}
	for _, tt := range tests {
		srv := &planServer{status: func(int32, string) int { return tt.status }}
		ts := srv.start(t)
		path := writePlan(t, t.TempDir(), "week11.txt", "x")

		_, err := newTestClient(ts.URL).UploadPlan(context.Background(), path)
		if err == nil {
			t.Fatalf("status %d: expected error", tt.status)
		}
		if errors.Is(err, ErrRejected) != tt.rejected {
			t.Errorf("status %d: rejected = %v, want %v", tt.status, !tt.rejected, tt.rejected)
		}
		if got := srv.attempts.Load(); got != 1 {
			t.Errorf("status %d: attempts = %d, want 1", tt.status, got)
		}
	}
}

// TestRun uploads new documents once and skips them on the next run.
func TestRun(t *testing.T) {
	srv := &planServer{status: func(_ int32, name string) int {
		if name == "letter.txt" {
			return http.StatusUnprocessableEntity
		}
		return http.StatusOK
	}}
	ts := srv.start(t)

	root := t.TempDir()
	writePlan(t, root, "week11.txt", "MONDAY\nBLOCK 1: Squat x 5\n")
	writePlan(t, root, "phase2/week12.pdf", "%PDF-1.4 fake")
	writePlan(t, root, "letter.txt", "Thanks")
	writePlan(t, root, "roster.csv", "a,b")
	writePlan(t, root, ".cache/old.txt", "ignored")

	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()
	log := slog.New(slog.DiscardHandler)

	stats, err := New(newTestClient(ts.URL), state, root, false, log).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.FilesTotal != 3 || stats.FilesUploaded != 2 || stats.FilesRejected != 1 {
		t.Errorf("first run stats = %+v", stats)
	}
	if stats.WorkoutsCreated != 4 {
		t.Errorf("workouts = %d, want 4", stats.WorkoutsCreated)
	}

	stats, err = New(newTestClient(ts.URL), state, root, false, log).Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if stats.FilesSkipped != 3 || stats.FilesUploaded != 0 {
		t.Errorf("second run stats = %+v", stats)
	}
	if got := srv.attempts.Load(); got != 3 {
		t.Errorf("server saw %d uploads, want 3", got)
	}
}

// TestRunDryRun sends nothing and records nothing.
func TestRunDryRun(t *testing.T) {
	root := t.TempDir()
	path := writePlan(t, root, "week11.txt", "MONDAY\n")
	hash, err := HashFile(path)
	if err != nil {
		t.Fatal(err)
	}

	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	stats, err := New(nil, state, root, true, slog.New(slog.DiscardHandler)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.FilesUploaded != 1 {
		t.Errorf("uploaded = %d, want 1", stats.FilesUploaded)
	}
	if ok, _ := state.IsUploaded(context.Background(), "week11.txt", 7, hash); ok {
		t.Error("dry run should not mark files")
	}
}

// TestRunHealthFailure stops before walking when the server is down.
func TestRunHealthFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	if _, err := New(newTestClient(ts.URL), state, t.TempDir(), false, slog.New(slog.DiscardHandler)).Run(context.Background()); err == nil {
		t.Fatal("expected health check error")
	}
}
