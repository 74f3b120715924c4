package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/claude/gymplan/internal/models"
	"github.com/claude/gymplan/internal/storage"
)

// TestHandleMeDefault verifies the /api/v1/me endpoint returns the dev user
// identity when no Tailscale middleware is active.
func TestHandleMeDefault(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	ctx := context.WithValue(req.Context(), userInfoKey, UserInfo{Login: "local", DisplayName: "Local Dev User"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	s.handleMe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var info UserInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if info.Login != "local" {
		t.Errorf("login = %q, want %q", info.Login, "local")
	}
	if info.DisplayName != "Local Dev User" {
		t.Errorf("display_name = %q, want %q", info.DisplayName, "Local Dev User")
	}
}

// TestHandleMeTailscaleUser verifies the /api/v1/me endpoint returns the
// Tailscale user identity when set in context.
func TestHandleMeTailscaleUser(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	ctx := context.WithValue(req.Context(), userInfoKey, UserInfo{Login: "alice@example.com", DisplayName: "Alice"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	s.handleMe(rec, req)

	var info UserInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if info.Login != "alice@example.com" {
		t.Errorf("login = %q, want %q", info.Login, "alice@example.com")
	}
	if info.DisplayName != "Alice" {
		t.Errorf("display_name = %q, want %q", info.DisplayName, "Alice")
	}
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode error: %v (body %q)", err, rec.Body.String())
	}
	return v
}

// TestHealth reports ok while the database answers and 503 otherwise.
func TestHealth(t *testing.T) {
	s, store := newTestServer(t)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := decode[map[string]any](t, rec); body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}

	store.pingErr = errors.New("connection refused")
	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

// TestUploadTextPlan stores every parsed day and logs the import.
func TestUploadTextPlan(t *testing.T) {
	s, store := newTestServer(t)

	rec := serve(s, uploadRequest(t, "plan", "week11.txt", []byte(samplePlan)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	body := decode[struct {
		Message  string                 `json:"message"`
		Workouts []models.ParsedWorkout `json:"workouts"`
	}](t, rec)
	if len(body.Workouts) != 2 {
		t.Fatalf("workouts = %d, want 2", len(body.Workouts))
	}
	if body.Message != "Successfully created 2 workouts from week11.txt" {
		t.Errorf("message = %q", body.Message)
	}
	if day := body.Workouts[0].WorkoutDay; day == nil || *day != "MONDAY - Hinge/Push" {
		t.Errorf("first workoutDay = %v", day)
	}
	if len(store.workouts) != 2 {
		t.Errorf("stored = %d, want 2", len(store.workouts))
	}
	if len(store.logs) != 1 || store.logs[0].Status != storage.ImportStatusSuccess || store.logs[0].WorkoutsInserted != 2 {
		t.Errorf("import logs = %+v", store.logs)
	}
}

// TestUploadErrors covers the rejection paths of the upload endpoint.
func TestUploadErrors(t *testing.T) {
	tests := []struct {
		name     string
		req      func(t *testing.T) *http.Request
		wantCode int
	}{
		{
			name: "missing api key",
			req: func(t *testing.T) *http.Request {
				r := uploadRequest(t, "plan", "week11.txt", []byte(samplePlan))
				r.Header.Del("X-API-Key")
				return r
			},
			wantCode: http.StatusUnauthorized,
		},
		{
			name: "wrong api key",
			req: func(t *testing.T) *http.Request {
				r := uploadRequest(t, "plan", "week11.txt", []byte(samplePlan))
				r.Header.Set("X-API-Key", "nope")
				return r
			},
			wantCode: http.StatusForbidden,
		},
		{
			name: "no file",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "other", "week11.txt", []byte(samplePlan))
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unsupported type",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "plan", "photo.jpg", []byte("\xff\xd8\xff\xe0\x00\x10JFIF"))
			},
			wantCode: http.StatusUnsupportedMediaType,
		},
		{
			name: "no workouts",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "plan", "letter.txt", []byte("Thanks for training with us."))
			},
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name: "empty document",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "plan", "blank.txt", []byte("  \n"))
			},
			wantCode: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, store := newTestServer(t)
			rec := serve(s, tt.req(t))
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if len(store.workouts) != 0 {
				t.Errorf("stored %d workouts, want none", len(store.workouts))
			}
		})
	}
}

// TestUploadTooLarge verifies the size cap yields 413.
func TestUploadTooLarge(t *testing.T) {
	s, _ := newTestServer(t)
	s.SetMaxUploadBytes(64)

	rec := serve(s, uploadRequest(t, "plan", "week11.txt", []byte(samplePlan)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

// TestParsePreview parses without storing.
func TestParsePreview(t *testing.T) {
	s, store := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/workouts/parse?file_name=week11.pdf", strings.NewReader(samplePlan))
	rec := serve(s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decode[struct {
		Count    int                    `json:"count"`
		Workouts []models.ParsedWorkout `json:"workouts"`
	}](t, rec)
	if body.Count != 2 || body.Workouts[0].FileName != "week11.pdf" {
		t.Errorf("preview = %+v", body)
	}
	if len(store.workouts) != 0 {
		t.Errorf("preview stored %d workouts", len(store.workouts))
	}
}

// TestListWorkoutsFilter passes query filters through to the store.
func TestListWorkoutsFilter(t *testing.T) {
	s, store := newTestServer(t)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/workouts?program=GYM+DAILY&week=Week+11&day=MONDAY&limit=5", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	want := storage.PlanFilter{Program: "GYM DAILY", Week: "Week 11", Day: "MONDAY", Limit: 5}
	if store.filter != want {
		t.Errorf("filter = %+v, want %+v", store.filter, want)
	}
}

// TestWorkoutLifecycle saves, reads and deletes a workout.
func TestWorkoutLifecycle(t *testing.T) {
	s, store := newTestServer(t)

	body := `{"id":"w1","fileName":"manual","uploadDate":"2026-03-02T09:30:00Z",
		"workoutDay":"FRIDAY - Pull","equipment":null,
		"exercises":[{"name":"Pull Ups","sets":0,"reps":"AMRAP"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workouts", strings.NewReader(body))
	req.Header.Set("X-API-Key", testAPIKey)
	rec := serve(s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d (body %s)", rec.Code, rec.Body.String())
	}
	saved := store.workouts["w1"]
	if len(saved.Exercises) != 1 || saved.Exercises[0].ID == "" || saved.Exercises[0].Sets != 1 {
		t.Errorf("saved exercises = %+v", saved.Exercises)
	}
	if saved.Equipment == nil {
		t.Error("equipment should be normalised to an empty list")
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/workouts/w1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if got := decode[models.ParsedWorkout](t, rec); got.ID != "w1" {
		t.Errorf("got id %q", got.ID)
	}

	del := httptest.NewRequest(http.MethodDelete, "/api/v1/workouts/w1", nil)
	del.Header.Set("X-API-Key", testAPIKey)
	if rec = serve(s, del); rec.Code != http.StatusOK {
		t.Errorf("delete status = %d", rec.Code)
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/workouts/w1", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rec.Code)
	}

	del = httptest.NewRequest(http.MethodDelete, "/api/v1/workouts/w1", nil)
	del.Header.Set("X-API-Key", testAPIKey)
	if rec = serve(s, del); rec.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", rec.Code)
	}
}

// TestSaveWorkoutValidation rejects bodies missing id, fileName or uploadDate.
func TestSaveWorkoutValidation(t *testing.T) {
	s, _ := newTestServer(t)
	for _, body := range []string{
		`{"fileName":"x","uploadDate":"2026-03-02T09:30:00Z"}`,
		`{"id":"w1","uploadDate":"2026-03-02T09:30:00Z"}`,
		`{"id":"w1","fileName":"x"}`,
		`{"id":"w1","fileName":"x","uploadDate":"2026-03-02T09:30:00Z","exercises":[{"name":"  "}]}`,
		`not json`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/workouts", strings.NewReader(body))
		req.Header.Set("X-API-Key", testAPIKey)
		if rec := serve(s, req); rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
}

// TestSaveWorkoutOtherOwner refuses to overwrite another user's workout.
func TestSaveWorkoutOtherOwner(t *testing.T) {
	s, store := newTestServer(t)
	store.workouts["w1"] = models.ParsedWorkout{ID: "w1"}
	store.owners["w1"] = 99

	body := `{"id":"w1","fileName":"x","uploadDate":"2026-03-02T09:30:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workouts", strings.NewReader(body))
	req.Header.Set("X-API-Key", testAPIKey)
	if rec := serve(s, req); rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

// TestSaveWorkoutExerciseIDTaken refuses exercise ids owned by another workout.
func TestSaveWorkoutExerciseIDTaken(t *testing.T) {
	s, store := newTestServer(t)
	store.workouts["w2"] = models.ParsedWorkout{ID: "w2", Exercises: []models.ParsedExercise{{ID: "e1", Name: "Squat"}}}
	store.owners["w2"] = 1

	body := `{"id":"w1","fileName":"x","uploadDate":"2026-03-02T09:30:00Z",
		"exercises":[{"id":"e1","name":"Lunge","sets":3,"reps":"8"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workouts", strings.NewReader(body))
	req.Header.Set("X-API-Key", testAPIKey)
	rec := serve(s, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "another workout") {
		t.Errorf("body = %s", rec.Body.String())
	}
	if _, ok := store.workouts["w1"]; ok {
		t.Error("w1 should not be stored")
	}
}

// TestSessions records a session and lists it back for the workout.
func TestSessions(t *testing.T) {
	s, store := newTestServer(t)
	store.workouts["w1"] = models.ParsedWorkout{ID: "w1"}
	store.owners["w1"] = 1

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(body))
		req.Header.Set("X-API-Key", testAPIKey)
		return serve(s, req)
	}

	if rec := post(`{"workoutId":"w1","date":"2026-03-02"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing sessionData: status = %d, want 400", rec.Code)
	}
	if rec := post(`{"workoutId":"w1","date":"03/02/2026","sessionData":[]}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad date: status = %d, want 400", rec.Code)
	}
	if rec := post(`{"workoutId":"missing","date":"2026-03-02","sessionData":[]}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown workout: status = %d, want 404", rec.Code)
	}

	rec := post(`{"workoutId":"w1","date":"2026-03-02","sessionData":[
		{"exerciseId":"e1","sets":[{"setNumber":1,"weight":100,"reps":5,"completed":true}]}]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/workouts/w1/sessions", nil))
	sessions := decode[[]models.WorkoutSession](t, rec)
	if len(sessions) != 1 || sessions[0].ID == "" {
		t.Fatalf("sessions = %+v", sessions)
	}
	set := sessions[0].SessionData[0].Sets[0]
	if set.Weight == nil || *set.Weight != 100 || set.Reps == nil || *set.Reps != 5 || !set.Completed {
		t.Errorf("set = %+v", set)
	}
}

// TestImportLogs lists the caller's import history.
func TestImportLogs(t *testing.T) {
	s, store := newTestServer(t)
	store.logs = []storage.ImportLog{{UserID: 1, Source: "upload", Status: "success"}, {UserID: 2, Source: "upload"}}

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/imports?limit=10", nil))
	logs := decode[[]storage.ImportLog](t, rec)
	if len(logs) != 1 || logs[0].Status != "success" {
		t.Errorf("logs = %+v", logs)
	}
}
