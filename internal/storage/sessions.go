package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/calistro/calistro/internal/models"
	"github.com/jackc/pgx/v5"
)

// SaveSession writes a finished session and its completed sets in one
// transaction. The client token dedupes retries: a token that already exists
// returns the existing session id without inserting anything.
func (db *DB) SaveSession(ctx context.Context, userID string, in models.SessionInput) (int64, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var routineID *int64
	if in.RoutineID != 0 {
		routineID = &in.RoutineID
	}
	var token *string
	if in.ClientToken != "" {
		token = &in.ClientToken
	}

	var sessionID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO workout_sessions
			(user_id, routine_id, routine_name, started_at, finished_at, total_volume_kg, client_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (client_token) DO NOTHING
		RETURNING id`,
		userID, routineID, in.RoutineName, in.StartedAt, in.FinishedAt, in.TotalVolumeKg, token,
	).Scan(&sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Duplicate finish: hand back the session the first attempt created.
		err = tx.QueryRow(ctx,
			`SELECT id FROM workout_sessions WHERE client_token = $1 AND user_id = $2`,
			in.ClientToken, userID,
		).Scan(&sessionID)
		if err != nil {
			return 0, fmt.Errorf("resolving duplicate session: %w", err)
		}
		return sessionID, tx.Commit(ctx)
	}
	if err != nil {
		return 0, fmt.Errorf("inserting session: %w", err)
	}

	if len(in.Sets) > 0 {
		query := `INSERT INTO session_sets (session_id, exercise_name, weight, reps, rpe, extra_value) VALUES `
		args := make([]any, 0, len(in.Sets)*6)
		valueStrings := make([]string, 0, len(in.Sets))
		for i, s := range in.Sets {
			base := i * 6
			valueStrings = append(valueStrings, fmt.Sprintf(
				"($%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6,
			))
			args = append(args, sessionID, s.ExerciseName, s.Weight, s.Reps, s.RPE, s.ExtraValue)
		}
		if _, err := tx.Exec(ctx, query+strings.Join(valueStrings, ","), args...); err != nil {
			return 0, fmt.Errorf("inserting session sets: %w", err)
		}
	}

	if routineID != nil {
		if _, err := tx.Exec(ctx,
			`UPDATE routines SET last_performed = $1 WHERE id = $2 AND user_id = $3`,
			time.Now().Format("2 Jan 2006"), *routineID, userID); err != nil {
			return 0, fmt.Errorf("updating last_performed: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing session: %w", err)
	}
	return sessionID, nil
}
