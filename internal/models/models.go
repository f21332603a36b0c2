package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrValidation marks input errors caught before any persistence call.
// Handlers map it to 400; everything else is a transport/storage failure.
var ErrValidation = errors.New("validation")

// ErrNotFound is returned when an entity does not exist or belongs to
// another user; the two cases are indistinguishable on purpose.
var ErrNotFound = errors.New("not found")

// ScheduleDays is the fixed weekday enumeration used by routine schedules.
var ScheduleDays = []string{"Lun", "Mar", "Mié", "Jue", "Vie", "Sáb", "Dom"}

// RoutineRow is one routine as listed on the dashboard.
type RoutineRow struct {
	ID             int64     `json:"id"`
	UserID         string    `json:"user_id"`
	Title          string    `json:"title"`
	Subtitle       string    `json:"subtitle"`
	Tags           []string  `json:"tags"`
	ScheduleDays   []string  `json:"schedule_days"`
	LastPerformed  string    `json:"last_performed"`
	CompletionRate *int      `json:"completion_rate"`
	Streak         *string   `json:"streak"`
	CreatedAt      time.Time `json:"created_at"`
	ExercisesCount int       `json:"exercises_count"`
}

// ExerciseRow is one exercise inside a routine. SortOrder is explicit;
// insertion order is never relied upon.
type ExerciseRow struct {
	ID          int64    `json:"id"`
	RoutineID   int64    `json:"routine_id"`
	Name        string   `json:"name"`
	Muscle      string   `json:"muscle"`
	Equipment   []string `json:"equipment"`
	RestSeconds int      `json:"rest_seconds"`
	SortOrder   int      `json:"sort_order"`
}

// SetTemplateRow encodes "N sets of R reps at W". The numeric fields are
// free-text on purpose: users type them, the session engine parses them.
type SetTemplateRow struct {
	ID         int64  `json:"id"`
	ExerciseID int64  `json:"exercise_id"`
	Sets       string `json:"sets"`
	Reps       string `json:"reps"`
	Weight     string `json:"weight"`
	ExtraValue string `json:"extra_value"`
	SortOrder  int    `json:"sort_order"`
}

// ExerciseWithTemplates is an exercise with its set templates in sort order.
type ExerciseWithTemplates struct {
	ExerciseRow
	Templates []SetTemplateRow `json:"rows"`
}

// RoutineDetail is the full routine snapshot a session is seeded from.
type RoutineDetail struct {
	Routine   RoutineRow              `json:"routine"`
	Exercises []ExerciseWithTemplates `json:"exercises"`
}

// RoutineInput is the replace-on-save payload: all prior exercises and
// templates are deleted and re-inserted from this.
type RoutineInput struct {
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	Subtitle     string          `json:"subtitle"`
	Tags         []string        `json:"tags"`
	ScheduleDays []string        `json:"scheduleDays"`
	Exercises    []ExerciseInput `json:"exercises"`
}

type ExerciseInput struct {
	Name        string             `json:"name"`
	Muscle      string             `json:"muscle"`
	Equipment   []string           `json:"equipment"`
	RestSeconds int                `json:"rest_seconds"`
	Templates   []SetTemplateInput `json:"rows"`
}

type SetTemplateInput struct {
	Sets       string `json:"sets"`
	Reps       string `json:"reps"`
	Weight     string `json:"weight"`
	ExtraValue string `json:"extra_value"`
}

// Validate catches input errors before anything touches storage.
func (in RoutineInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	for _, d := range in.ScheduleDays {
		if !validScheduleDay(d) {
			return fmt.Errorf("%w: unknown schedule day %q", ErrValidation, d)
		}
	}
	return nil
}

func validScheduleDay(d string) bool {
	for _, day := range ScheduleDays {
		if d == day {
			return true
		}
	}
	return false
}

// SessionSetInput is one completed set in a finish payload. RPE and
// ExtraValue are nil when not recorded; they are never coerced to zero.
type SessionSetInput struct {
	ExerciseName string   `json:"exerciseName"`
	Weight       float64  `json:"weight"`
	Reps         int      `json:"reps"`
	RPE          *float64 `json:"rpe,omitempty"`
	ExtraValue   *int     `json:"extraValue,omitempty"`
}

// SessionInput is the atomic write produced by finishing a session.
// ClientToken dedupes retries after a transport failure.
type SessionInput struct {
	ClientToken   string            `json:"clientToken"`
	RoutineID     int64             `json:"routineId"`
	RoutineName   string            `json:"routineName"`
	StartedAt     time.Time         `json:"startedAt"`
	FinishedAt    time.Time         `json:"finishedAt"`
	TotalVolumeKg float64           `json:"totalVolumeKg"`
	Sets          []SessionSetInput `json:"sets"`
}

// ExerciseStats are period-bounded aggregates for one exercise name.
// All fields are zero, never null, when nothing matches.
type ExerciseStats struct {
	MaxReps       int     `json:"maxReps"`
	MaxWeight     float64 `json:"maxWeight"`
	TotalSessions int     `json:"totalSessions"`
	TotalVolume   float64 `json:"totalVolume"`
}

// SetDetail is one historical set as shown in the history view.
type SetDetail struct {
	Weight     float64  `json:"weight"`
	Reps       int      `json:"reps"`
	RPE        *float64 `json:"rpe"`
	ExtraValue *int     `json:"extraValue"`
}

// HistoryEntry is one past session's sets for a single exercise name.
// TotalVolume covers only this exercise's sets, not the whole session.
type HistoryEntry struct {
	SessionID   int64       `json:"sessionId"`
	Date        string      `json:"date"`
	RoutineName string      `json:"routineName"`
	Sets        []SetDetail `json:"sets"`
	TotalVolume float64     `json:"totalVolume"`
}

// VolumePoint is one calendar-month bucket of volume progression.
type VolumePoint struct {
	Month  string  `json:"month"`
	Volume float64 `json:"volume"`
	Label  string  `json:"label"`
}
