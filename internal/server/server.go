package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/claude/gymplan/internal/document"
	"github.com/claude/gymplan/internal/ingest/plan"
	"github.com/claude/gymplan/internal/models"
	"github.com/claude/gymplan/internal/storage"
	"github.com/go-chi/chi/v5"
)

// defaultMaxUpload caps multipart uploads when SetMaxUploadBytes is not called.
const defaultMaxUpload = 20 << 20

// Store is the persistence the HTTP handlers need. *storage.DB satisfies it.
type Store interface {
	plan.Store
	SavePlanWorkout(ctx context.Context, userID int, w models.ParsedWorkout) error
	ListPlanWorkouts(ctx context.Context, userID int, f storage.PlanFilter) ([]models.ParsedWorkout, error)
	GetPlanWorkout(ctx context.Context, id string, userID int) (*models.ParsedWorkout, error)
	DeletePlanWorkout(ctx context.Context, id string, userID int) error
	InsertWorkoutSession(ctx context.Context, userID int, s models.WorkoutSession) error
	QueryWorkoutSessions(ctx context.Context, workoutID string, userID int) ([]models.WorkoutSession, error)
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
	QueryImportLogs(ctx context.Context, userID, limit int) ([]storage.ImportLog, error)
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
	Ping(ctx context.Context) error
}

var _ Store = (*storage.DB)(nil)

// Server holds dependencies for HTTP handlers.
type Server struct {
	db        Store
	plans     *plan.Provider
	docs      *document.Registry
	log       *slog.Logger
	apiKey    string
	maxUpload int64
	ts        WhoIsClient
	router    chi.Router
}

// New creates a new Server with all routes configured.
func New(db Store, plans *plan.Provider, docs *document.Registry, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		db:        db,
		plans:     plans,
		docs:      docs,
		log:       log,
		apiKey:    apiKey,
		maxUpload: defaultMaxUpload,
		router:    chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetTailscale switches identity from the local dev user to the tailnet
// peer making each request.
func (s *Server) SetTailscale(lc WhoIsClient) {
	s.ts = lc
}

// SetMaxUploadBytes limits the size of uploaded plan documents.
func (s *Server) SetMaxUploadBytes(n int64) {
	if n > 0 {
		s.maxUpload = n
	}
}

// MountMCP serves an MCP handler at /mcp behind the same identity
// middleware as the REST API.
func (s *Server) MountMCP(h http.Handler) {
	s.router.With(s.identity).Mount("/mcp", h)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.identity)

			r.Get("/me", s.handleMe)
			r.Get("/workouts", s.handleListWorkouts)
			r.Get("/workouts/{id}", s.handleGetWorkout)
			r.Get("/workouts/{id}/sessions", s.handleWorkoutSessions)
			r.Get("/imports", s.handleImportLogs)

			// Preview only, nothing is stored.
			r.Post("/workouts/parse", s.handleParsePreview)

			r.Group(func(r chi.Router) {
				r.Use(APIKeyAuth(s.apiKey))
				r.Post("/workouts/upload", s.handleUpload)
				r.Post("/workouts", s.handleSaveWorkout)
				r.Delete("/workouts/{id}", s.handleDeleteWorkout)
				r.Post("/sessions", s.handleCreateSession)
			})
		})
	})
}
