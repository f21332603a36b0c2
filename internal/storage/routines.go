package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/calistro/calistro/internal/models"
	"github.com/jackc/pgx/v5"
)

// ListRoutines returns the user's routines, newest first, with their derived
// exercise counts.
func (db *DB) ListRoutines(ctx context.Context, userID string) ([]models.RoutineRow, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT r.id, r.user_id, r.title, r.subtitle, r.tags, r.schedule_days,
		       r.last_performed, r.completion_rate, r.streak, r.created_at,
		       COUNT(re.id)
		FROM routines r
		LEFT JOIN routine_exercises re ON re.routine_id = r.id
		WHERE r.user_id = $1
		GROUP BY r.id
		ORDER BY r.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying routines: %w", err)
	}
	defer rows.Close()

	var result []models.RoutineRow
	for rows.Next() {
		r, err := scanRoutine(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// GetRoutine fetches one routine with its exercises and set templates, both
// in explicit sort order.
func (db *DB) GetRoutine(ctx context.Context, userID string, routineID int64) (*models.RoutineDetail, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT r.id, r.user_id, r.title, r.subtitle, r.tags, r.schedule_days,
		       r.last_performed, r.completion_rate, r.streak, r.created_at,
		       (SELECT COUNT(*) FROM routine_exercises re WHERE re.routine_id = r.id)
		FROM routines r
		WHERE r.id = $1 AND r.user_id = $2`, routineID, userID)

	routine, err := scanRoutine(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	exRows, err := db.Pool.Query(ctx, `
		SELECT id, routine_id, name, muscle, equipment, rest_seconds, sort_order
		FROM routine_exercises
		WHERE routine_id = $1
		ORDER BY sort_order`, routineID)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer exRows.Close()

	detail := &models.RoutineDetail{Routine: routine}
	index := make(map[int64]int)
	for exRows.Next() {
		var ex models.ExerciseWithTemplates
		var equipment string
		if err := exRows.Scan(&ex.ID, &ex.RoutineID, &ex.Name, &ex.Muscle,
			&equipment, &ex.RestSeconds, &ex.SortOrder); err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		ex.Equipment = unmarshalStrings(equipment)
		index[ex.ID] = len(detail.Exercises)
		detail.Exercises = append(detail.Exercises, ex)
	}
	if err := exRows.Err(); err != nil {
		return nil, err
	}

	stRows, err := db.Pool.Query(ctx, `
		SELECT st.id, st.exercise_id, st.sets, st.reps, st.weight, st.extra_value, st.sort_order
		FROM set_templates st
		JOIN routine_exercises re ON re.id = st.exercise_id
		WHERE re.routine_id = $1
		ORDER BY re.sort_order, st.sort_order`, routineID)
	if err != nil {
		return nil, fmt.Errorf("querying set templates: %w", err)
	}
	defer stRows.Close()

	for stRows.Next() {
		var st models.SetTemplateRow
		if err := stRows.Scan(&st.ID, &st.ExerciseID, &st.Sets, &st.Reps,
			&st.Weight, &st.ExtraValue, &st.SortOrder); err != nil {
			return nil, fmt.Errorf("scanning set template: %w", err)
		}
		if i, ok := index[st.ExerciseID]; ok {
			detail.Exercises[i].Templates = append(detail.Exercises[i].Templates, st)
		}
	}
	return detail, stRows.Err()
}

// SaveRoutine creates or replaces a routine. On update all prior exercises
// and templates are deleted and re-inserted from the payload; there is no
// partial patch. The whole write is one transaction.
func (db *DB) SaveRoutine(ctx context.Context, userID string, in models.RoutineInput) (int64, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback(ctx)

	routineID := in.ID
	if routineID == 0 {
		err = tx.QueryRow(ctx, `
			INSERT INTO routines (user_id, title, subtitle, tags, schedule_days)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			userID, in.Title, in.Subtitle,
			marshalStrings(in.Tags), marshalStrings(in.ScheduleDays),
		).Scan(&routineID)
		if err != nil {
			return 0, fmt.Errorf("inserting routine: %w", err)
		}
	} else {
		tag, err := tx.Exec(ctx, `
			UPDATE routines
			SET title = $1, subtitle = $2, tags = $3, schedule_days = $4
			WHERE id = $5 AND user_id = $6`,
			in.Title, in.Subtitle,
			marshalStrings(in.Tags), marshalStrings(in.ScheduleDays),
			routineID, userID)
		if err != nil {
			return 0, fmt.Errorf("updating routine: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return 0, models.ErrNotFound
		}
		// Replace semantics: wipe and re-insert, templates cascade.
		if _, err := tx.Exec(ctx,
			`DELETE FROM routine_exercises WHERE routine_id = $1`, routineID); err != nil {
			return 0, fmt.Errorf("deleting exercises: %w", err)
		}
	}

	for i, ex := range in.Exercises {
		var exerciseID int64
		err = tx.QueryRow(ctx, `
			INSERT INTO routine_exercises (routine_id, name, muscle, equipment, rest_seconds, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			routineID, ex.Name, ex.Muscle, marshalStrings(ex.Equipment), ex.RestSeconds, i,
		).Scan(&exerciseID)
		if err != nil {
			return 0, fmt.Errorf("inserting exercise: %w", err)
		}
		if len(ex.Templates) == 0 {
			continue
		}

		query := `INSERT INTO set_templates (exercise_id, sets, reps, weight, extra_value, sort_order) VALUES `
		args := make([]any, 0, len(ex.Templates)*6)
		valueStrings := make([]string, 0, len(ex.Templates))
		for j, st := range ex.Templates {
			base := j * 6
			valueStrings = append(valueStrings, fmt.Sprintf(
				"($%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6,
			))
			args = append(args, exerciseID, st.Sets, st.Reps, st.Weight, st.ExtraValue, j)
		}
		if _, err := tx.Exec(ctx, query+strings.Join(valueStrings, ","), args...); err != nil {
			return 0, fmt.Errorf("inserting set templates: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing routine: %w", err)
	}
	return routineID, nil
}

// DeleteRoutine removes a routine; exercises and templates cascade. Sessions
// that reference it keep their denormalized routine name.
func (db *DB) DeleteRoutine(ctx context.Context, userID string, routineID int64) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM routines WHERE id = $1 AND user_id = $2`, routineID, userID)
	if err != nil {
		return fmt.Errorf("deleting routine: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func scanRoutine(row pgx.Row) (models.RoutineRow, error) {
	var r models.RoutineRow
	var tags, days string
	err := row.Scan(&r.ID, &r.UserID, &r.Title, &r.Subtitle, &tags, &days,
		&r.LastPerformed, &r.CompletionRate, &r.Streak, &r.CreatedAt, &r.ExercisesCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scanning routine: %w", err)
	}
	r.Tags = unmarshalStrings(tags)
	r.ScheduleDays = unmarshalStrings(days)
	return r, nil
}
