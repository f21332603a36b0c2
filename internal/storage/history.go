package storage

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/calistro/calistro/internal/models"
)

// ExerciseNames lists the distinct exercise names appearing in any of the
// user's session sets, alphabetically.
func (db *DB) ExerciseNames(ctx context.Context, userID string) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT DISTINCT ss.exercise_name
		FROM session_sets ss
		JOIN workout_sessions ws ON ws.id = ss.session_id
		WHERE ws.user_id = $1
		ORDER BY ss.exercise_name`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying exercise names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scanning exercise name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// ExerciseStats aggregates one exercise's sets over sessions finished at or
// after since. All fields coalesce to zero when nothing matches.
func (db *DB) ExerciseStats(ctx context.Context, userID, name string, since time.Time) (*models.ExerciseStats, error) {
	var stats models.ExerciseStats
	err := db.Pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(ss.reps), 0),
		       COALESCE(MAX(ss.weight), 0),
		       COUNT(DISTINCT ss.session_id),
		       COALESCE(SUM(ss.weight * ss.reps), 0)
		FROM session_sets ss
		JOIN workout_sessions ws ON ws.id = ss.session_id
		WHERE ss.exercise_name = $1 AND ws.user_id = $2 AND ws.finished_at >= $3`,
		name, userID, since,
	).Scan(&stats.MaxReps, &stats.MaxWeight, &stats.TotalSessions, &stats.TotalVolume)
	if err != nil {
		return nil, fmt.Errorf("querying exercise stats: %w", err)
	}
	return &stats, nil
}

// ExerciseHistory returns the 20 most recent sessions containing this
// exercise, newest first, each with its ordered sets and the per-session
// volume for just this exercise.
func (db *DB) ExerciseHistory(ctx context.Context, userID, name string) ([]models.HistoryEntry, error) {
	sessionRows, err := db.Pool.Query(ctx, `
		SELECT DISTINCT ss.session_id, ws.routine_name, ws.finished_at
		FROM session_sets ss
		JOIN workout_sessions ws ON ws.id = ss.session_id
		WHERE ss.exercise_name = $1 AND ws.user_id = $2
		ORDER BY ws.finished_at DESC
		LIMIT 20`, name, userID)
	if err != nil {
		return nil, fmt.Errorf("querying history sessions: %w", err)
	}
	defer sessionRows.Close()

	var entries []models.HistoryEntry
	for sessionRows.Next() {
		var entry models.HistoryEntry
		var finishedAt time.Time
		if err := sessionRows.Scan(&entry.SessionID, &entry.RoutineName, &finishedAt); err != nil {
			return nil, fmt.Errorf("scanning history session: %w", err)
		}
		entry.Date = finishedAt.Format("2 Jan 2006")
		entries = append(entries, entry)
	}
	if err := sessionRows.Err(); err != nil {
		return nil, err
	}

	for i := range entries {
		setRows, err := db.Pool.Query(ctx, `
			SELECT weight, reps, rpe, extra_value
			FROM session_sets
			WHERE session_id = $1 AND exercise_name = $2
			ORDER BY id`, entries[i].SessionID, name)
		if err != nil {
			return nil, fmt.Errorf("querying history sets: %w", err)
		}
		for setRows.Next() {
			var s models.SetDetail
			if err := setRows.Scan(&s.Weight, &s.Reps, &s.RPE, &s.ExtraValue); err != nil {
				setRows.Close()
				return nil, fmt.Errorf("scanning history set: %w", err)
			}
			entries[i].Sets = append(entries[i].Sets, s)
			entries[i].TotalVolume += s.Weight * float64(s.Reps)
		}
		err = setRows.Err()
		setRows.Close()
		if err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// VolumeProgression returns up to the 12 most recent calendar months with
// any matching set, ascending, with the summed volume per month.
func (db *DB) VolumeProgression(ctx context.Context, userID, name string) ([]models.VolumePoint, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT month, volume FROM (
			SELECT to_char(ws.finished_at, 'YYYY-MM') AS month_key,
			       to_char(ws.finished_at, 'Mon') AS month,
			       SUM(ss.weight * ss.reps) AS volume
			FROM session_sets ss
			JOIN workout_sessions ws ON ws.id = ss.session_id
			WHERE ss.exercise_name = $1 AND ws.user_id = $2
			GROUP BY month_key, month
			ORDER BY month_key DESC
			LIMIT 12
		) sub
		ORDER BY month_key ASC`, name, userID)
	if err != nil {
		return nil, fmt.Errorf("querying volume progression: %w", err)
	}
	defer rows.Close()

	var points []models.VolumePoint
	for rows.Next() {
		var p models.VolumePoint
		if err := rows.Scan(&p.Month, &p.Volume); err != nil {
			return nil, fmt.Errorf("scanning volume point: %w", err)
		}
		p.Label = fmt.Sprintf("%d kg", int(math.Round(p.Volume)))
		points = append(points, p)
	}
	return points, rows.Err()
}
