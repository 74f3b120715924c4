package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/gymplan/internal/models"
)

// DateLayout is the format of WorkoutSession.Date.
const DateLayout = "2006-01-02"

// InsertWorkoutSession records a performed workout with its sets in one
// transaction. Returns ErrNotFound when the workout does not belong to the user.
func (db *DB) InsertWorkoutSession(ctx context.Context, userID int, s models.WorkoutSession) error {
	date, err := time.Parse(DateLayout, s.Date)
	if err != nil {
		return fmt.Errorf("parsing session date %q: %w", s.Date, err)
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO workout_sessions (id, workout_id, user_id, date, created_at)
		 SELECT $1::text, id, user_id, $3::date, $4::timestamptz
		 FROM plan_workouts
		 WHERE id = $2 AND user_id = $5`,
		s.ID, s.WorkoutID, date, s.CreatedAt, userID)
	if err != nil {
		return fmt.Errorf("inserting session %s: %w", s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("workout %s: %w", s.WorkoutID, ErrNotFound)
	}

	for i, es := range s.SessionData {
		var esID int64
		err := tx.QueryRow(ctx,
			`INSERT INTO exercise_sessions (session_id, exercise_id, position, notes)
			 VALUES ($1,$2,$3,$4)
			 RETURNING id`,
			s.ID, es.ExerciseID, i, es.Notes,
		).Scan(&esID)
		if err != nil {
			return fmt.Errorf("inserting exercise session %s: %w", es.ExerciseID, err)
		}
		for _, set := range es.Sets {
			if _, err := tx.Exec(ctx,
				`INSERT INTO set_data (exercise_session_id, set_number, weight, reps, completed)
				 VALUES ($1,$2,$3,$4,$5)`,
				esID, set.SetNumber, set.Weight, set.Reps, set.Completed); err != nil {
				return fmt.Errorf("inserting set %d of %s: %w", set.SetNumber, es.ExerciseID, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing session %s: %w", s.ID, err)
	}
	return nil
}

// QueryWorkoutSessions returns the sessions logged for a workout, most
// recent date first.
func (db *DB) QueryWorkoutSessions(ctx context.Context, workoutID string, userID int) ([]models.WorkoutSession, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, workout_id, date, created_at
		 FROM workout_sessions
		 WHERE workout_id = $1 AND user_id = $2
		 ORDER BY date DESC, created_at DESC`,
		workoutID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.WorkoutSession{}
	index := map[string]int{}
	for rows.Next() {
		var s models.WorkoutSession
		var date time.Time
		if err := rows.Scan(&s.ID, &s.WorkoutID, &date, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		s.Date = date.Format(DateLayout)
		s.SessionData = []models.ExerciseSession{}
		index[s.ID] = len(sessions)
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return sessions, nil
	}

	setRows, err := db.Pool.Query(ctx,
		`SELECT es.session_id, es.id, es.exercise_id, es.notes,
		        sd.set_number, sd.weight, sd.reps, sd.completed
		 FROM exercise_sessions es
		 JOIN workout_sessions ws ON ws.id = es.session_id
		 LEFT JOIN set_data sd ON sd.exercise_session_id = es.id
		 WHERE ws.workout_id = $1 AND ws.user_id = $2
		 ORDER BY es.session_id, es.position, sd.set_number`,
		workoutID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying session sets: %w", err)
	}
	defer setRows.Close()

	var lastES int64 = -1
	for setRows.Next() {
		var (
			sessionID  string
			esID       int64
			exerciseID string
			notes      *string
			setNumber  *int
			weight     *float64
			reps       *int
			completed  *bool
		)
		if err := setRows.Scan(&sessionID, &esID, &exerciseID, &notes,
			&setNumber, &weight, &reps, &completed); err != nil {
			return nil, fmt.Errorf("scanning session set: %w", err)
		}

		s := &sessions[index[sessionID]]
		if esID != lastES {
			s.SessionData = append(s.SessionData, models.ExerciseSession{
				ExerciseID: exerciseID,
				Sets:       []models.SetData{},
				Notes:      notes,
			})
			lastES = esID
		}
		if setNumber == nil {
			continue
		}
		es := &s.SessionData[len(s.SessionData)-1]
		es.Sets = append(es.Sets, models.SetData{
			SetNumber: *setNumber,
			Weight:    weight,
			Reps:      reps,
			Completed: completed != nil && *completed,
		})
	}
	return sessions, setRows.Err()
}
