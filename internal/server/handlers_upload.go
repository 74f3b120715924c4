package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/claude/gymplan/internal/document"
	"github.com/claude/gymplan/internal/ingest"
	"github.com/claude/gymplan/internal/storage"
)

// uploadField is the multipart field carrying the plan document.
const uploadField = "plan"

// handleUpload decodes an uploaded plan, parses it and stores the workouts.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	start := time.Now()

	if r.ContentLength > s.maxUpload {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file too large"})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form: " + err.Error()})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no file uploaded"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reading upload: " + err.Error()})
		return
	}

	name := header.Filename
	text, err := s.docs.Extract(r.Context(), name, header.Header.Get("Content-Type"), data)
	switch {
	case errors.Is(err, document.ErrUnsupportedType):
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": "only PDF and text plans are supported"})
		return
	case errors.Is(err, document.ErrEmptyDocument):
		s.logImport(uid, "upload", name, &ingest.Result{Message: ingest.NoWorkoutsMessage}, storage.ImportStatusEmpty, nil, start)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": ingest.NoWorkoutsMessage})
		return
	case err != nil:
		s.log.Error("document extraction failed", "file", name, "error", err)
		s.logImport(uid, "upload", name, &ingest.Result{}, storage.ImportStatusError, err, start)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read document"})
		return
	}

	workouts, result, err := s.plans.Ingest(r.Context(), name, text, uid)
	if err != nil {
		s.log.Error("plan ingest failed", "file", name, "error", err)
		s.logImport(uid, "upload", name, result, storage.ImportStatusError, err, start)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if len(workouts) == 0 {
		s.logImport(uid, "upload", name, result, storage.ImportStatusEmpty, nil, start)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": result.Message})
		return
	}

	s.logImport(uid, "upload", name, result, storage.ImportStatusSuccess, nil, start)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  result.Message,
		"workouts": workouts,
		"result":   result,
	})
}

// handleParsePreview parses a raw text body without storing anything.
func (s *Server) handleParsePreview(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUpload))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reading body: " + err.Error()})
		return
	}

	workouts := s.plans.Parser().Parse(string(body), r.URL.Query().Get("file_name"))
	resp := map[string]any{
		"count":    len(workouts),
		"workouts": workouts,
	}
	if len(workouts) == 0 {
		resp["message"] = ingest.NoWorkoutsMessage
	}
	writeJSON(w, http.StatusOK, resp)
}

// logImport records an upload's result to the import_logs table.
func (s *Server) logImport(uid int, source, fileName string, result *ingest.Result, status string, importErr error, start time.Time) {
	var errMsg *string
	if importErr != nil {
		msg := importErr.Error()
		errMsg = &msg
	}
	durationMs := int(time.Since(start).Milliseconds())

	log := storage.ImportLog{
		UserID:            uid,
		Source:            source,
		Status:            status,
		FileName:          &fileName,
		WorkoutsReceived:  result.WorkoutsReceived,
		WorkoutsInserted:  result.WorkoutsInserted,
		ExercisesReceived: result.ExercisesReceived,
		DurationMs:        &durationMs,
		ErrorMessage:      errMsg,
	}

	ctx, cancel := contextWithTimeout()
	defer cancel()

	if _, err := s.db.InsertImportLog(ctx, log); err != nil {
		s.log.Error("failed to log import", "source", source, "error", err)
	}
}

// contextWithTimeout returns a background context with a 5-second timeout,
// so the log is written even if the client has gone away.
func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd
}
