// Package plan turns the text of a printed training-plan document into
// structured workouts: one per day marker, with exercises grouped by
// training category.
package plan

import (
	"log/slog"
	"time"

	"github.com/claude/gymplan/internal/models"
	"github.com/google/uuid"
)

// IdentifierSource yields a fresh unique id on every call.
type IdentifierSource func() string

// Clock returns the current time.
type Clock func() time.Time

// defaultFileName labels workouts parsed from text with no source file.
const defaultFileName = "Workout"

// Parser assembles workouts from plan text. It holds no per-document state,
// so one Parser may be shared by concurrent callers as long as its
// IdentifierSource and Clock are safe for concurrent use.
type Parser struct {
	newID IdentifierSource
	now   Clock
	log   *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithIdentifierSource replaces the UUID generator.
func WithIdentifierSource(ids IdentifierSource) Option {
	return func(p *Parser) { p.newID = ids }
}

// WithClock replaces time.Now.
func WithClock(clock Clock) Option {
	return func(p *Parser) { p.now = clock }
}

// WithLogger enables debug logging of segmentation results.
func WithLogger(log *slog.Logger) Option {
	return func(p *Parser) { p.log = log }
}

// NewParser creates a Parser using random UUIDs and the wall clock.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		newID: uuid.NewString,
		now:   time.Now,
		log:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse runs the full pipeline with a default Parser.
func Parse(text, fileName string) []models.ParsedWorkout {
	return NewParser().Parse(text, fileName)
}

// Parse converts a plan document into workouts, in day order. Days without
// any recognisable exercise are dropped, so an unparseable document yields
// an empty (non-nil) slice rather than an error.
func (p *Parser) Parse(text, fileName string) []models.ParsedWorkout {
	if fileName == "" {
		fileName = defaultFileName
	}
	meta := ExtractMetadata(text)
	uploaded := p.now()

	workouts := []models.ParsedWorkout{}
	for _, day := range SplitDays(text) {
		w := p.assemble(day, meta, fileName, uploaded)
		if len(w.Exercises) == 0 {
			p.log.Debug("day has no exercises, skipping", "day", deref(day.DayLabel))
			continue
		}
		workouts = append(workouts, w)
	}

	p.log.Debug("plan parsed", "file", fileName, "days", len(workouts))
	return workouts
}

func (p *Parser) assemble(day models.DaySpan, meta models.PlanMetadata, fileName string, uploaded time.Time) models.ParsedWorkout {
	w := models.ParsedWorkout{
		ID:         p.newID(),
		FileName:   fileName,
		UploadDate: uploaded,
		Program:    meta.Program,
		Phase:      meta.Phase,
		Week:       meta.Week,
		Equipment:  ExtractEquipment(day.Text),
		Exercises:  []models.ParsedExercise{},
	}
	// Both labels read "MONDAY - Hinge/Push"; the UI lists by day, the
	// storage layer filters on the day prefix.
	if day.DayLabel != nil {
		label := *day.DayLabel
		if day.WorkoutType != nil {
			label += " - " + *day.WorkoutType
		}
		w.WorkoutName = ptr(label)
		w.WorkoutDay = ptr(label)
	}

	for _, span := range SplitCategories(day.Text) {
		exercises := p.ParseExercises(span.Text, span.Category)
		p.log.Debug("category parsed",
			"day", deref(day.DayLabel),
			"category", span.Category,
			"chars", len(span.Text),
			"exercises", len(exercises),
		)
		w.Exercises = append(w.Exercises, exercises...)
	}
	return w
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
