package mcp

import (
	"context"

	"github.com/claude/gymplan/internal/models"
	"github.com/claude/gymplan/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	ListPlanWorkouts(ctx context.Context, userID int, f storage.PlanFilter) ([]models.ParsedWorkout, error)
	GetPlanWorkout(ctx context.Context, id string, userID int) (*models.ParsedWorkout, error)
	QueryWorkoutSessions(ctx context.Context, workoutID string, userID int) ([]models.WorkoutSession, error)
	QueryImportLogs(ctx context.Context, userID, limit int) ([]storage.ImportLog, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
