package server

import (
	"bytes"
	"context"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/claude/gymplan/internal/document"
	"github.com/claude/gymplan/internal/ingest/plan"
	"github.com/claude/gymplan/internal/models"
	"github.com/claude/gymplan/internal/storage"
)

const testAPIKey = "test-key-123"

const samplePlan = "GYM DAILY - IN SEASON WEEK 11\n" +
	"MONDAY (Hinge/Push)\n" +
	"Equipment: Barbell, Bands\n" +
	"Warmup: Jumping Jacks x 30 sec\n" +
	"BLOCK 1: Back Squat x 5\n" +
	"Cool Down: Child's Pose x 60 sec\n" +
	"TUESDAY (Sprint Conditioning)\n" +
	"BLOCK 1: Sprints x 6\n"

// fakeStore keeps everything in memory. Workouts are keyed by id with
// their owner alongside.
type fakeStore struct {
	mu       sync.Mutex
	workouts map[string]models.ParsedWorkout
	owners   map[string]int
	sessions []models.WorkoutSession
	logs     []storage.ImportLog
	users    map[string]int
	filter   storage.PlanFilter
	pingErr  error
}

var _ Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		workouts: map[string]models.ParsedWorkout{},
		owners:   map[string]int{},
		users:    map[string]int{"local": 1},
	}
}

func (f *fakeStore) InsertPlanWorkouts(_ context.Context, userID int, workouts []models.ParsedWorkout) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, w := range workouts {
		if _, ok := f.workouts[w.ID]; ok {
			continue
		}
		f.workouts[w.ID] = w
		f.owners[w.ID] = userID
		n++
	}
	return n, nil
}

func (f *fakeStore) SavePlanWorkout(_ context.Context, userID int, w models.ParsedWorkout) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if owner, ok := f.owners[w.ID]; ok && owner != userID {
		return storage.ErrNotFound
	}
	for id, other := range f.workouts {
		if id == w.ID {
			continue
		}
		for _, oe := range other.Exercises {
			for _, e := range w.Exercises {
				if e.ID == oe.ID {
					return storage.ErrConflict
				}
			}
		}
	}
	f.workouts[w.ID] = w
	f.owners[w.ID] = userID
	return nil
}

func (f *fakeStore) ListPlanWorkouts(_ context.Context, userID int, filter storage.PlanFilter) ([]models.ParsedWorkout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter = filter
	out := []models.ParsedWorkout{}
	for id, w := range f.workouts {
		if f.owners[id] == userID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeStore) GetPlanWorkout(_ context.Context, id string, userID int) (*models.ParsedWorkout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.workouts[id]
	if !ok || f.owners[id] != userID {
		return nil, storage.ErrNotFound
	}
	return &w, nil
}

func (f *fakeStore) DeletePlanWorkout(_ context.Context, id string, userID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.workouts[id]; !ok || f.owners[id] != userID {
		return storage.ErrNotFound
	}
	delete(f.workouts, id)
	delete(f.owners, id)
	return nil
}

func (f *fakeStore) InsertWorkoutSession(_ context.Context, userID int, s models.WorkoutSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.workouts[s.WorkoutID]; !ok || f.owners[s.WorkoutID] != userID {
		return storage.ErrNotFound
	}
	f.sessions = append(f.sessions, s)
	return nil
}

func (f *fakeStore) QueryWorkoutSessions(_ context.Context, workoutID string, _ int) ([]models.WorkoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.WorkoutSession{}
	for _, s := range f.sessions {
		if s.WorkoutID == workoutID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertImportLog(_ context.Context, log storage.ImportLog) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, log)
	return int64(len(f.logs)), nil
}

func (f *fakeStore) QueryImportLogs(_ context.Context, userID, _ int) ([]storage.ImportLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []storage.ImportLog{}
	for _, l := range f.logs {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStore) GetOrCreateUser(_ context.Context, login, _ string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.users[login]; ok {
		return id, nil
	}
	id := len(f.users) + 1
	f.users[login] = id
	return id, nil
}

func (f *fakeStore) Ping(context.Context) error {
	return f.pingErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestServer(t *testing.T) (*Server, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	provider := plan.NewProvider(store, plan.NewParser(), discardLogger())
	docs := document.NewRegistry(document.NewPDFText("", t.TempDir()))
	return New(store, provider, docs, testAPIKey, discardLogger()), store
}

// uploadRequest builds a multipart upload of one file under the plan field.
func uploadRequest(t *testing.T, field, fileName string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, fileName)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/workouts/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-API-Key", testAPIKey)
	return req
}
