package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/claude/gymplan/internal/models"
	"github.com/claude/gymplan/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		s.log.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "unavailable",
			"timestamp": time.Now().UTC(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := storage.PlanFilter{
		Program: q.Get("program"),
		Week:    q.Get("week"),
		Day:     q.Get("day"),
	}
	if l := q.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}

	workouts, err := s.db.ListPlanWorkouts(r.Context(), uid, filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, workouts)
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}

	workout, err := s.db.GetPlanWorkout(r.Context(), chi.URLParam(r, "id"), uid)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, workout)
}

// handleSaveWorkout creates a workout or replaces an edited one.
func (s *Server) handleSaveWorkout(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}

	var workout models.ParsedWorkout
	if err := json.NewDecoder(r.Body).Decode(&workout); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if workout.ID == "" || workout.FileName == "" || workout.UploadDate.IsZero() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id, fileName and uploadDate are required"})
		return
	}
	if msg := normalizeExercises(&workout); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	err := s.db.SavePlanWorkout(r.Context(), uid, workout)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "workout id belongs to another user"})
		return
	}
	if errors.Is(err, storage.ErrConflict) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "exercise id belongs to another workout"})
		return
	}
	if err != nil {
		s.log.Error("save workout failed", "id", workout.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Workout saved successfully",
		"workout": workout,
	})
}

// normalizeExercises fills ids and timestamps on hand-added exercises and
// returns a message for the first invalid one.
func normalizeExercises(workout *models.ParsedWorkout) string {
	now := time.Now()
	if workout.Equipment == nil {
		workout.Equipment = []string{}
	}
	if workout.Exercises == nil {
		workout.Exercises = []models.ParsedExercise{}
	}
	for i := range workout.Exercises {
		e := &workout.Exercises[i]
		e.Name = strings.TrimSpace(e.Name)
		if e.Name == "" {
			return "exercise " + strconv.Itoa(i+1) + ": name is required"
		}
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.Sets < 1 {
			e.Sets = 1
		}
		if e.Category == "" {
			e.Category = models.CategoryMain
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
	}
	return ""
}

func (s *Server) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}

	err := s.db.DeletePlanWorkout(r.Context(), chi.URLParam(r, "id"), uid)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Workout deleted successfully"})
}

func (s *Server) handleWorkoutSessions(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}

	sessions, err := s.db.QueryWorkoutSessions(r.Context(), chi.URLParam(r, "id"), uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}

	var session models.WorkoutSession
	if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if session.WorkoutID == "" || session.Date == "" || session.SessionData == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "workoutId, date and sessionData are required"})
		return
	}
	if _, err := time.Parse(storage.DateLayout, session.Date); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
		return
	}
	session.ID = uuid.NewString()
	session.CreatedAt = time.Now().UTC()

	err := s.db.InsertWorkoutSession(r.Context(), uid, session)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not found"})
		return
	}
	if err != nil {
		s.log.Error("save session failed", "workout", session.WorkoutID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Session saved successfully",
		"session": session,
	})
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	logs, err := s.db.QueryImportLogs(r.Context(), uid, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
