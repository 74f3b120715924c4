package models

import "time"

// Training categories, in the order they are segmented and merged.
const (
	CategoryWarmup   = "Warmup"
	CategoryBuyIn    = "Buy-in"
	CategoryBlock1   = "Block 1"
	CategoryBlock2   = "Block 2"
	CategoryBlock3   = "Block 3"
	CategoryBlock4   = "Block 4"
	CategoryMain     = "Main"
	CategoryCooldown = "Cooldown"
)

// Categories lists every category in segmentation order.
var Categories = []string{
	CategoryWarmup,
	CategoryBuyIn,
	CategoryBlock1,
	CategoryBlock2,
	CategoryBlock3,
	CategoryBlock4,
	CategoryMain,
	CategoryCooldown,
}

// PlanMetadata is derived once per document from a header like
// "GYM DAILY - IN SEASON WEEK 11".
type PlanMetadata struct {
	Program *string
	Phase   *string
	Week    *string
}

// DaySpan is the text owned by one weekday marker, e.g. "MONDAY (Hinge/Push)".
// DayLabel and WorkoutType are nil for the single-workout fallback.
type DaySpan struct {
	DayLabel    *string
	WorkoutType *string
	Text        string
}

// CategorySpan is the text of one training segment within a DaySpan.
type CategorySpan struct {
	Category string
	Text     string
}

// ParsedExercise is one exercise line extracted from a plan.
type ParsedExercise struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Sets      int       `json:"sets"`
	Reps      string    `json:"reps"` // "10", "10-12", "AMRAP", "30 sec"
	Category  string    `json:"category"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ParsedWorkout is one day of a plan document.
type ParsedWorkout struct {
	ID          string           `json:"id"`
	FileName    string           `json:"fileName"`
	UploadDate  time.Time        `json:"uploadDate"`
	WorkoutName *string          `json:"workoutName,omitempty"`
	WorkoutDay  *string          `json:"workoutDay,omitempty"`
	Program     *string          `json:"program,omitempty"`
	Phase       *string          `json:"phase,omitempty"`
	Week        *string          `json:"week,omitempty"`
	Equipment   []string         `json:"equipment"`
	Exercises   []ParsedExercise `json:"exercises"`
}

// SetData is a single tracked set within an exercise session.
type SetData struct {
	SetNumber int      `json:"setNumber"`
	Weight    *float64 `json:"weight,omitempty"`
	Reps      *int     `json:"reps,omitempty"`
	Completed bool     `json:"completed"`
}

// ExerciseSession holds the sets logged for one exercise of a workout.
type ExerciseSession struct {
	ExerciseID string    `json:"exerciseId"`
	Sets       []SetData `json:"sets"`
	Notes      *string   `json:"notes,omitempty"`
}

// WorkoutSession is a performed instance of a ParsedWorkout on a given date.
type WorkoutSession struct {
	ID          string            `json:"id"`
	WorkoutID   string            `json:"workoutId"`
	Date        string            `json:"date"` // YYYY-MM-DD
	SessionData []ExerciseSession `json:"sessionData"`
	CreatedAt   time.Time         `json:"createdAt"`
}
