package plan

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/claude/gymplan/internal/ingest"
	"github.com/claude/gymplan/internal/models"
)

// Store persists parsed workouts. *storage.DB satisfies it.
type Store interface {
	InsertPlanWorkouts(ctx context.Context, userID int, workouts []models.ParsedWorkout) (int, error)
}

// Provider parses plan text and stores the resulting workouts.
type Provider struct {
	db     Store
	parser *Parser
	log    *slog.Logger
}

// NewProvider creates a new training-plan ingest provider.
func NewProvider(db Store, parser *Parser, log *slog.Logger) *Provider {
	return &Provider{db: db, parser: parser, log: log}
}

// Parser returns the provider's parser, for preview-only callers.
func (p *Provider) Parser() *Parser {
	return p.parser
}

// Ingest parses a decoded document and stores every workout found.
// A document with no workouts is not an error: the result carries a
// message and the returned slice is empty.
func (p *Provider) Ingest(ctx context.Context, fileName, text string, userID int) ([]models.ParsedWorkout, *ingest.Result, error) {
	workouts := p.parser.Parse(text, fileName)

	result := &ingest.Result{WorkoutsReceived: len(workouts)}
	for _, w := range workouts {
		result.ExercisesReceived += len(w.Exercises)
	}
	if len(workouts) == 0 {
		p.log.Warn("no workouts parsed", "file", fileName, "chars", len(text))
		result.Message = ingest.NoWorkoutsMessage
		return workouts, result, nil
	}

	inserted, err := p.db.InsertPlanWorkouts(ctx, userID, workouts)
	if err != nil {
		return nil, result, fmt.Errorf("inserting workouts from %s: %w", fileName, err)
	}
	result.WorkoutsInserted = inserted
	result.Message = fmt.Sprintf("Successfully created %d workouts from %s", inserted, fileName)

	p.log.Info("plan ingested",
		"file", fileName,
		"workouts", len(workouts),
		"inserted", inserted,
		"exercises", result.ExercisesReceived,
	)
	return workouts, result, nil
}
