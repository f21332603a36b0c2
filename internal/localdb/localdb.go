// Package localdb is the embedded gateway: the same repository surface as the
// PostgreSQL one, backed by a single SQLite file so the app works with no
// server at all. Aggregation happens in Go on loaded rows rather than in SQL.
package localdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/calistro/calistro/internal/history"
	"github.com/calistro/calistro/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS routines (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id         TEXT NOT NULL,
	title           TEXT NOT NULL,
	subtitle        TEXT NOT NULL DEFAULT '',
	tags            TEXT NOT NULL DEFAULT '[]',
	schedule_days   TEXT NOT NULL DEFAULT '[]',
	last_performed  TEXT NOT NULL DEFAULT '',
	completion_rate INTEGER,
	streak          TEXT,
	created_at      TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS routine_exercises (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	routine_id   INTEGER NOT NULL REFERENCES routines(id) ON DELETE CASCADE,
	name         TEXT NOT NULL,
	muscle       TEXT NOT NULL DEFAULT '',
	equipment    TEXT NOT NULL DEFAULT '[]',
	rest_seconds INTEGER NOT NULL DEFAULT 0,
	sort_order   INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS set_templates (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	exercise_id INTEGER NOT NULL REFERENCES routine_exercises(id) ON DELETE CASCADE,
	sets        TEXT NOT NULL DEFAULT '',
	reps        TEXT NOT NULL DEFAULT '',
	weight      TEXT NOT NULL DEFAULT '',
	extra_value TEXT NOT NULL DEFAULT '',
	sort_order  INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS workout_sessions (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id         TEXT NOT NULL,
	routine_id      INTEGER,
	routine_name    TEXT NOT NULL,
	started_at      TEXT NOT NULL,
	finished_at     TEXT NOT NULL,
	total_volume_kg REAL NOT NULL DEFAULT 0,
	client_token    TEXT UNIQUE
);
CREATE TABLE IF NOT EXISTS session_sets (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    INTEGER NOT NULL REFERENCES workout_sessions(id) ON DELETE CASCADE,
	exercise_name TEXT NOT NULL,
	weight        REAL NOT NULL DEFAULT 0,
	reps          INTEGER NOT NULL DEFAULT 0,
	rpe           REAL,
	extra_value   INTEGER
);
`

// DB is the SQLite-backed repository.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database at dir/calistro.db and ensures the
// schema exists.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", dir, err)
	}
	return open(filepath.Join(dir, "calistro.db"))
}

// OpenMemory opens a throwaway in-memory database.
func OpenMemory() (*DB, error) {
	return open(":memory:")
}

func open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// ListRoutines returns the user's routines, newest first, with their derived
// exercise counts.
func (d *DB) ListRoutines(ctx context.Context, userID string) ([]models.RoutineRow, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT r.id, r.user_id, r.title, r.subtitle, r.tags, r.schedule_days,
		       r.last_performed, r.completion_rate, r.streak, r.created_at,
		       COUNT(re.id)
		FROM routines r
		LEFT JOIN routine_exercises re ON re.routine_id = r.id
		WHERE r.user_id = ?
		GROUP BY r.id
		ORDER BY r.created_at DESC, r.id DESC`, userID)
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

// GetRoutine fetches one routine with its exercises and set templates in
// sort order.
func (d *DB) GetRoutine(ctx context.Context, userID string, routineID int64) (*models.RoutineDetail, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT r.id, r.user_id, r.title, r.subtitle, r.tags, r.schedule_days,
		       r.last_performed, r.completion_rate, r.streak, r.created_at,
		       (SELECT COUNT(*) FROM routine_exercises re WHERE re.routine_id = r.id)
		FROM routines r
		WHERE r.id = ? AND r.user_id = ?`, routineID, userID)

	routine, err := scanRoutine(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	exRows, err := d.db.QueryContext(ctx, `
		SELECT id, routine_id, name, muscle, equipment, rest_seconds, sort_order
		FROM routine_exercises
		WHERE routine_id = ?
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

	stRows, err := d.db.QueryContext(ctx, `
		SELECT st.id, st.exercise_id, st.sets, st.reps, st.weight, st.extra_value, st.sort_order
		FROM set_templates st
		JOIN routine_exercises re ON re.id = st.exercise_id
		WHERE re.routine_id = ?
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

// SaveRoutine creates or replaces a routine in one transaction. Updates wipe
// and re-insert the exercises and templates from the payload.
func (d *DB) SaveRoutine(ctx context.Context, userID string, in models.RoutineInput) (int64, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	routineID := in.ID
	if routineID == 0 {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO routines (user_id, title, subtitle, tags, schedule_days, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			userID, in.Title, in.Subtitle,
			marshalStrings(in.Tags), marshalStrings(in.ScheduleDays),
			time.Now().UTC().Format(time.RFC3339))
		if err != nil {
			return 0, fmt.Errorf("inserting routine: %w", err)
		}
		routineID, err = res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("reading routine id: %w", err)
		}
	} else {
		res, err := tx.ExecContext(ctx, `
			UPDATE routines
			SET title = ?, subtitle = ?, tags = ?, schedule_days = ?
			WHERE id = ? AND user_id = ?`,
			in.Title, in.Subtitle,
			marshalStrings(in.Tags), marshalStrings(in.ScheduleDays),
			routineID, userID)
		if err != nil {
			return 0, fmt.Errorf("updating routine: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, models.ErrNotFound
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM routine_exercises WHERE routine_id = ?`, routineID); err != nil {
			return 0, fmt.Errorf("deleting exercises: %w", err)
		}
	}

	for i, ex := range in.Exercises {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO routine_exercises (routine_id, name, muscle, equipment, rest_seconds, sort_order)
			VALUES (?, ?, ?, ?, ?, ?)`,
			routineID, ex.Name, ex.Muscle, marshalStrings(ex.Equipment), ex.RestSeconds, i)
		if err != nil {
			return 0, fmt.Errorf("inserting exercise: %w", err)
		}
		exerciseID, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("reading exercise id: %w", err)
		}
		for j, st := range ex.Templates {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO set_templates (exercise_id, sets, reps, weight, extra_value, sort_order)
				VALUES (?, ?, ?, ?, ?, ?)`,
				exerciseID, st.Sets, st.Reps, st.Weight, st.ExtraValue, j); err != nil {
				return 0, fmt.Errorf("inserting set template: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing routine: %w", err)
	}
	return routineID, nil
}

// DeleteRoutine removes a routine; exercises and templates cascade.
func (d *DB) DeleteRoutine(ctx context.Context, userID string, routineID int64) error {
	res, err := d.db.ExecContext(ctx,
		`DELETE FROM routines WHERE id = ? AND user_id = ?`, routineID, userID)
	if err != nil {
		return fmt.Errorf("deleting routine: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SaveSession writes a finished session and its sets in one transaction.
// A client token that already exists returns the existing session id.
func (d *DB) SaveSession(ctx context.Context, userID string, in models.SessionInput) (int64, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	if in.ClientToken != "" {
		var existing int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM workout_sessions WHERE client_token = ? AND user_id = ?`,
			in.ClientToken, userID).Scan(&existing)
		if err == nil {
			return existing, tx.Commit()
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("checking client token: %w", err)
		}
	}

	var routineID any
	if in.RoutineID != 0 {
		routineID = in.RoutineID
	}
	var token any
	if in.ClientToken != "" {
		token = in.ClientToken
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO workout_sessions
			(user_id, routine_id, routine_name, started_at, finished_at, total_volume_kg, client_token)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, routineID, in.RoutineName,
		in.StartedAt.UTC().Format(time.RFC3339), in.FinishedAt.UTC().Format(time.RFC3339),
		in.TotalVolumeKg, token)
	if err != nil {
		return 0, fmt.Errorf("inserting session: %w", err)
	}
	sessionID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading session id: %w", err)
	}

	for _, s := range in.Sets {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO session_sets (session_id, exercise_name, weight, reps, rpe, extra_value)
			VALUES (?, ?, ?, ?, ?, ?)`,
			sessionID, s.ExerciseName, s.Weight, s.Reps, s.RPE, s.ExtraValue); err != nil {
			return 0, fmt.Errorf("inserting session set: %w", err)
		}
	}

	if in.RoutineID != 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE routines SET last_performed = ? WHERE id = ? AND user_id = ?`,
			time.Now().Format("2 Jan 2006"), in.RoutineID, userID); err != nil {
			return 0, fmt.Errorf("updating last_performed: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing session: %w", err)
	}
	return sessionID, nil
}

// ExerciseNames lists the distinct exercise names in the user's history.
func (d *DB) ExerciseNames(ctx context.Context, userID string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT ss.exercise_name
		FROM session_sets ss
		JOIN workout_sessions ws ON ws.id = ss.session_id
		WHERE ws.user_id = ?`, userID)
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return history.DistinctNames(names), nil
}

// ExerciseStats aggregates one exercise's sets since the given time.
func (d *DB) ExerciseStats(ctx context.Context, userID, name string, since time.Time) (*models.ExerciseStats, error) {
	records, err := d.loadSets(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	stats := history.Stats(records, since)
	return &stats, nil
}

// ExerciseHistory returns the most recent sessions containing this exercise.
func (d *DB) ExerciseHistory(ctx context.Context, userID, name string) ([]models.HistoryEntry, error) {
	records, err := d.loadSets(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	return history.Sessions(records), nil
}

// VolumeProgression returns the recent monthly volume buckets, ascending.
func (d *DB) VolumeProgression(ctx context.Context, userID, name string) ([]models.VolumePoint, error) {
	records, err := d.loadSets(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	return history.MonthlyVolume(records), nil
}

// loadSets reads one exercise's session sets joined with their sessions,
// ordered by insertion so set order within a session is preserved.
func (d *DB) loadSets(ctx context.Context, userID, name string) ([]history.SetRecord, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT ss.session_id, ws.routine_name, ws.finished_at,
		       ss.weight, ss.reps, ss.rpe, ss.extra_value
		FROM session_sets ss
		JOIN workout_sessions ws ON ws.id = ss.session_id
		WHERE ws.user_id = ? AND ss.exercise_name = ?
		ORDER BY ss.id`, userID, name)
	if err != nil {
		return nil, fmt.Errorf("querying session sets: %w", err)
	}
	defer rows.Close()

	var records []history.SetRecord
	for rows.Next() {
		var r history.SetRecord
		var finishedAt string
		if err := rows.Scan(&r.SessionID, &r.RoutineName, &finishedAt,
			&r.Weight, &r.Reps, &r.RPE, &r.ExtraValue); err != nil {
			return nil, fmt.Errorf("scanning session set: %w", err)
		}
		t, err := time.Parse(time.RFC3339, finishedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing finished_at %q: %w", finishedAt, err)
		}
		r.FinishedAt = t
		records = append(records, r)
	}
	return records, rows.Err()
}

func scanRoutine(row interface{ Scan(...any) error }) (models.RoutineRow, error) {
	var r models.RoutineRow
	var tags, days, createdAt string
	err := row.Scan(&r.ID, &r.UserID, &r.Title, &r.Subtitle, &tags, &days,
		&r.LastPerformed, &r.CompletionRate, &r.Streak, &createdAt, &r.ExercisesCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scanning routine: %w", err)
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		r.CreatedAt = t
	}
	r.Tags = unmarshalStrings(tags)
	r.ScheduleDays = unmarshalStrings(days)
	return r, nil
}

func marshalStrings(ss []string) string {
	if ss == nil {
		ss = []string{}
	}
	b, _ := json.Marshal(ss)
	return string(b)
}

func unmarshalStrings(s string) []string {
	var out []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}
