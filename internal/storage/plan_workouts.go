package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/claude/gymplan/internal/models"
	"github.com/jackc/pgx/v5"
)

// PlanFilter narrows ListPlanWorkouts. Empty fields match everything.
type PlanFilter struct {
	Program string
	Week    string // "Week 11", or just "11"
	Day     string // prefix of workout_day, e.g. "MONDAY"
	Limit   int
}

const planWorkoutColumns = `id, file_name, upload_date, workout_name, workout_day, program, phase, week, equipment`

// InsertPlanWorkouts stores parsed workouts and their exercises in one
// transaction. Workouts whose id already exists are skipped. Returns the
// number of workouts inserted.
func (db *DB) InsertPlanWorkouts(ctx context.Context, userID int, workouts []models.ParsedWorkout) (int, error) {
	if len(workouts) == 0 {
		return 0, nil
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for _, w := range workouts {
		tag, err := tx.Exec(ctx,
			`INSERT INTO plan_workouts (`+planWorkoutColumns+`, user_id)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			 ON CONFLICT DO NOTHING`,
			w.ID, w.FileName, w.UploadDate, w.WorkoutName, w.WorkoutDay,
			w.Program, w.Phase, w.Week, equipmentOrEmpty(w.Equipment), userID)
		if err != nil {
			return 0, fmt.Errorf("inserting workout %s: %w", w.ID, err)
		}
		if tag.RowsAffected() == 0 {
			continue
		}
		if err := insertExercises(ctx, tx, w.ID, w.Exercises); err != nil {
			return 0, err
		}
		inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing workouts: %w", err)
	}
	return inserted, nil
}

// SavePlanWorkout creates a workout or replaces an existing one of the same
// user, exercises included. Sessions logged against it are kept.
// Returns ErrNotFound when the id belongs to another user and ErrConflict
// when an exercise id is already used by another workout.
func (db *DB) SavePlanWorkout(ctx context.Context, userID int, w models.ParsedWorkout) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO plan_workouts (`+planWorkoutColumns+`, user_id)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 ON CONFLICT (id) DO UPDATE SET
		   file_name = EXCLUDED.file_name, upload_date = EXCLUDED.upload_date,
		   workout_name = EXCLUDED.workout_name, workout_day = EXCLUDED.workout_day,
		   program = EXCLUDED.program, phase = EXCLUDED.phase, week = EXCLUDED.week,
		   equipment = EXCLUDED.equipment
		 WHERE plan_workouts.user_id = EXCLUDED.user_id`,
		w.ID, w.FileName, w.UploadDate, w.WorkoutName, w.WorkoutDay,
		w.Program, w.Phase, w.Week, equipmentOrEmpty(w.Equipment), userID)
	if err != nil {
		return fmt.Errorf("saving workout %s: %w", w.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("saving workout %s: %w", w.ID, ErrNotFound)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM plan_exercises WHERE workout_id = $1`, w.ID); err != nil {
		return fmt.Errorf("clearing exercises of %s: %w", w.ID, err)
	}
	if err := insertExercises(ctx, tx, w.ID, w.Exercises); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing workout %s: %w", w.ID, err)
	}
	return nil
}

// insertExercises batch-inserts exercises, keeping their order in position.
func insertExercises(ctx context.Context, tx pgx.Tx, workoutID string, exercises []models.ParsedExercise) error {
	if len(exercises) == 0 {
		return nil
	}

	query := `INSERT INTO plan_exercises (id, workout_id, position, name, sets, reps, category, notes, created_at) VALUES `
	args := make([]any, 0, len(exercises)*9)
	valueStrings := make([]string, 0, len(exercises))

	for i, e := range exercises {
		base := i * 9
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9,
		))
		args = append(args, e.ID, workoutID, i, e.Name, e.Sets, e.Reps, e.Category, e.Notes, e.CreatedAt)
	}

	query += strings.Join(valueStrings, ",")

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting exercises of %s: %w", workoutID, conflict(err))
	}
	return nil
}

// ListPlanWorkouts returns a user's workouts, newest upload first, with
// their exercises.
func (db *DB) ListPlanWorkouts(ctx context.Context, userID int, f PlanFilter) ([]models.ParsedWorkout, error) {
	where, args := f.clause(userID)
	rows, err := db.Pool.Query(ctx,
		`SELECT `+planWorkoutColumns+`
		 FROM plan_workouts
		 WHERE `+where+`
		 ORDER BY upload_date DESC, workout_day ASC NULLS LAST, created_at ASC
		 LIMIT `+fmt.Sprintf("$%d", len(args)),
		args...)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	workouts := []models.ParsedWorkout{}
	for rows.Next() {
		w, err := scanPlanWorkout(rows)
		if err != nil {
			return nil, err
		}
		workouts = append(workouts, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := db.attachExercises(ctx, workouts); err != nil {
		return nil, err
	}
	return workouts, nil
}

// clause builds the WHERE conditions of a listing query. The limit is the
// last argument.
func (f PlanFilter) clause(userID int) (string, []any) {
	conds := []string{"user_id = $1"}
	args := []any{userID}
	if f.Program != "" {
		args = append(args, f.Program)
		conds = append(conds, fmt.Sprintf("program ILIKE $%d", len(args)))
	}
	if f.Week != "" {
		args = append(args, weekLabel(f.Week))
		conds = append(conds, fmt.Sprintf("week ILIKE $%d", len(args)))
	}
	if f.Day != "" {
		args = append(args, f.Day+"%")
		conds = append(conds, fmt.Sprintf("workout_day ILIKE $%d", len(args)))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	return strings.Join(conds, " AND "), args
}

// weekLabel expands a bare week number to the stored "Week N" form.
func weekLabel(week string) string {
	week = strings.TrimSpace(week)
	if n, err := strconv.Atoi(week); err == nil {
		return "Week " + strconv.Itoa(n)
	}
	return week
}

// GetPlanWorkout retrieves a single workout with its exercises.
func (db *DB) GetPlanWorkout(ctx context.Context, id string, userID int) (*models.ParsedWorkout, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+planWorkoutColumns+`
		 FROM plan_workouts
		 WHERE id = $1 AND user_id = $2`,
		id, userID)

	w, err := scanPlanWorkout(row)
	if err != nil {
		return nil, fmt.Errorf("querying workout %s: %w", id, notFound(err))
	}

	workouts := []models.ParsedWorkout{w}
	if err := db.attachExercises(ctx, workouts); err != nil {
		return nil, err
	}
	return &workouts[0], nil
}

// DeletePlanWorkout removes a workout, its exercises and its sessions.
func (db *DB) DeletePlanWorkout(ctx context.Context, id string, userID int) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM plan_workouts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting workout %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deleting workout %s: %w", id, ErrNotFound)
	}
	return nil
}

func (db *DB) attachExercises(ctx context.Context, workouts []models.ParsedWorkout) error {
	if len(workouts) == 0 {
		return nil
	}
	ids := make([]string, len(workouts))
	index := make(map[string]int, len(workouts))
	for i, w := range workouts {
		ids[i] = w.ID
		index[w.ID] = i
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT workout_id, id, name, sets, reps, category, notes, created_at
		 FROM plan_exercises
		 WHERE workout_id = ANY($1)
		 ORDER BY workout_id, position`,
		ids)
	if err != nil {
		return fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var workoutID string
		var e models.ParsedExercise
		if err := rows.Scan(&workoutID, &e.ID, &e.Name, &e.Sets, &e.Reps, &e.Category, &e.Notes, &e.CreatedAt); err != nil {
			return fmt.Errorf("scanning exercise: %w", err)
		}
		i := index[workoutID]
		workouts[i].Exercises = append(workouts[i].Exercises, e)
	}
	return rows.Err()
}

func scanPlanWorkout(row pgx.Row) (models.ParsedWorkout, error) {
	w := models.ParsedWorkout{Exercises: []models.ParsedExercise{}}
	err := row.Scan(&w.ID, &w.FileName, &w.UploadDate, &w.WorkoutName, &w.WorkoutDay,
		&w.Program, &w.Phase, &w.Week, &w.Equipment)
	if err != nil {
		return w, fmt.Errorf("scanning workout: %w", err)
	}
	if w.Equipment == nil {
		w.Equipment = []string{}
	}
	return w, nil
}

func equipmentOrEmpty(equipment []string) []string {
	if equipment == nil {
		return []string{}
	}
	return equipment
}
