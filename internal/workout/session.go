// Package workout holds the active-session state machine: set expansion,
// per-set status transitions, the rest-timer countdown and assembly of the
// finish payload.
package workout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/calistro/calistro/internal/equipment"
	"github.com/calistro/calistro/internal/models"
	"github.com/google/uuid"
)

// DefaultRestSeconds applies when an exercise has no configured rest.
const DefaultRestSeconds = 90

// cueThreshold is the remaining-seconds value at and below which every tick
// fires a short audible cue.
const cueThreshold = 10

var (
	ErrNotCurrentExercise = errors.New("exercise is not the current one")
	ErrNoSuchExercise     = errors.New("no such exercise")
	ErrNoSuchSet          = errors.New("no such set")
	ErrSetNotActive       = errors.New("set is not active")
	ErrFinishInFlight     = errors.New("finish already in progress")
	ErrSessionFinished    = errors.New("session already finished")
)

// Cues receives rest-timer audio cues. Implementations must not block.
type Cues interface {
	Tick() // short cue during the final countdown seconds
	End()  // distinct cue when the countdown reaches zero
}

type nopCues struct{}

func (nopCues) Tick() {}
func (nopCues) End()  {}

// SessionSaver persists the finish payload. *storage.DB, *localdb.DB and
// *client.Client all satisfy it.
type SessionSaver interface {
	SaveSession(ctx context.Context, userID string, in models.SessionInput) (int64, error)
}

// Field selects which free-text value of a set to edit.
type Field int

const (
	FieldWeight Field = iota
	FieldReps
	FieldExtra
)

// Exercise is one exercise within an active session, with its expanded,
// independently tracked set list.
type Exercise struct {
	Name        string
	Muscle      string
	Equipment   []string
	RestSeconds int
	Sets        []PerformableSet
}

// Done reports whether the exercise has sets and all of them are completed.
func (e *Exercise) Done() bool {
	if len(e.Sets) == 0 {
		return false
	}
	for _, s := range e.Sets {
		if s.Status != SetCompleted {
			return false
		}
	}
	return true
}

// Session is one active workout: a freshly constructed state machine seeded
// from a routine snapshot. Nothing is shared across sessions; abandoning one
// without finishing persists nothing.
type Session struct {
	mu sync.Mutex

	userID      string
	routineID   int64
	routineName string
	clientToken string
	startedAt   time.Time

	exercises []Exercise
	current   int

	timerSeconds int
	timerRunning bool
	stopTimer    chan struct{}

	finishing bool
	finished  bool

	cues Cues
}

// New builds a session from a routine snapshot. The start timestamp and the
// idempotency token are captured once here and never change. A nil cues sink
// silences the timer.
func New(userID string, detail *models.RoutineDetail, cues Cues) *Session {
	if cues == nil {
		cues = nopCues{}
	}
	name := detail.Routine.Title
	if name == "" {
		name = "Entrenamiento"
	}
	s := &Session{
		userID:      userID,
		routineID:   detail.Routine.ID,
		routineName: name,
		clientToken: uuid.NewString(),
		startedAt:   time.Now(),
		cues:        cues,
	}
	for _, ex := range detail.Exercises {
		rest := ex.RestSeconds
		if rest <= 0 {
			rest = DefaultRestSeconds
		}
		s.exercises = append(s.exercises, Exercise{
			Name:        ex.Name,
			Muscle:      ex.Muscle,
			Equipment:   ex.Equipment,
			RestSeconds: rest,
			Sets:        ExpandTemplates(ex.Templates),
		})
	}
	s.timerSeconds = DefaultRestSeconds
	if len(s.exercises) > 0 {
		s.timerSeconds = s.exercises[0].RestSeconds
	}
	return s
}

// RoutineName returns the denormalized routine name the session will persist.
func (s *Session) RoutineName() string {
	return s.routineName
}

// StartedAt returns the immutable session start timestamp.
func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// Progress returns the current exercise index and the exercise count.
func (s *Session) Progress() (current, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, len(s.exercises)
}

// TimerState returns the displayed countdown value and whether it is running.
func (s *Session) TimerState() (seconds int, running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timerSeconds, s.timerRunning
}

// Snapshot returns a deep copy of the exercises for display.
func (s *Session) Snapshot() []Exercise {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Exercise, len(s.exercises))
	for i, ex := range s.exercises {
		out[i] = ex
		out[i].Sets = append([]PerformableSet(nil), ex.Sets...)
	}
	return out
}

// CompleteSet marks a set of the current exercise completed and promotes the
// next set (sequence id + 1) to active. It resets the rest timer to the
// exercise's configured rest and starts it, the only operation that does.
func (s *Session) CompleteSet(exerciseIdx, setID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return ErrSessionFinished
	}
	if s.current >= len(s.exercises) {
		return ErrNoSuchExercise
	}
	if exerciseIdx != s.current {
		return ErrNotCurrentExercise
	}
	ex := &s.exercises[s.current]
	i := indexOfSet(ex.Sets, setID)
	if i < 0 {
		return ErrNoSuchSet
	}
	if ex.Sets[i].Status != SetActive {
		return ErrSetNotActive
	}
	ex.Sets[i].Status = SetCompleted
	if j := indexOfSet(ex.Sets, setID+1); j >= 0 {
		ex.Sets[j].Status = SetActive
	}
	s.timerSeconds = ex.RestSeconds
	s.startTimerLocked()
	return nil
}

// UpdateSet edits one free-text value of a set in the current exercise.
// Status never changes here.
func (s *Session) UpdateSet(setID int, field Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return ErrSessionFinished
	}
	if s.current >= len(s.exercises) {
		return ErrNoSuchExercise
	}
	ex := &s.exercises[s.current]
	i := indexOfSet(ex.Sets, setID)
	if i < 0 {
		return ErrNoSuchSet
	}
	switch field {
	case FieldWeight:
		ex.Sets[i].Weight = value
	case FieldReps:
		ex.Sets[i].Reps = value
	case FieldExtra:
		ex.Sets[i].Extra = value
	}
	return nil
}

// AddSet appends an extra set with default targets. When every existing set
// is already completed the new set starts active, so the user can keep going
// without a separate activation step.
func (s *Session) AddSet(exerciseIdx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return ErrSessionFinished
	}
	if exerciseIdx < 0 || exerciseIdx >= len(s.exercises) {
		return ErrNoSuchExercise
	}
	ex := &s.exercises[exerciseIdx]
	lastID := 0
	status := SetActive
	for _, set := range ex.Sets {
		lastID = set.ID
		if set.Status != SetCompleted {
			status = SetPending
		}
	}
	ex.Sets = append(ex.Sets, PerformableSet{
		ID:     lastID + 1,
		Weight: "0",
		Reps:   "8",
		Status: status,
	})
	return nil
}

// ToggleTimer stops a running timer and resets the display to the current
// exercise's rest duration, or starts it from the displayed value.
func (s *Session) ToggleTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timerRunning {
		s.stopTimerLocked()
		s.timerSeconds = s.currentRestLocked()
		return
	}
	s.startTimerLocked()
}

// Switch moves the current-exercise pointer by direction (-1 or +1) within
// bounds and stops the timer. Moving forward past the last exercise performs
// no move and returns true: the caller should confirm and call Finish.
func (s *Session) Switch(direction int) (finish bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if direction > 0 {
		if s.current >= len(s.exercises)-1 {
			return true
		}
		s.stopTimerLocked()
		s.current++
		s.timerSeconds = s.currentRestLocked()
		return false
	}
	if s.current > 0 {
		s.stopTimerLocked()
		s.current--
		s.timerSeconds = s.currentRestLocked()
	}
	return false
}

// Finish assembles the completed-set payload and persists it through saver.
// Only sets completed at call time are included; total volume is recomputed
// here as Σ weight×reps. A second Finish while one is in flight is rejected,
// and a failed save leaves the session intact so the user can retry.
func (s *Session) Finish(ctx context.Context, saver SessionSaver) (int64, error) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return 0, ErrSessionFinished
	}
	if s.finishing {
		s.mu.Unlock()
		return 0, ErrFinishInFlight
	}
	s.finishing = true
	input := s.payloadLocked()
	s.mu.Unlock()

	id, err := saver.SaveSession(ctx, s.userID, input)

	s.mu.Lock()
	s.finishing = false
	if err == nil {
		s.finished = true
		s.stopTimerLocked()
	}
	s.mu.Unlock()

	if err != nil {
		return 0, fmt.Errorf("saving session: %w", err)
	}
	return id, nil
}

// Close stops the rest timer. Safe to call any number of times; every exit
// path from the session view goes through here.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
}

func (s *Session) payloadLocked() models.SessionInput {
	var sets []models.SessionSetInput
	for _, ex := range s.exercises {
		extra := equipment.ExtraFieldFor(ex.Equipment)
		for _, set := range ex.Sets {
			if set.Status != SetCompleted {
				continue
			}
			sets = append(sets, models.SessionSetInput{
				ExerciseName: ex.Name,
				Weight:       parseWeight(set.Weight),
				Reps:         parseReps(set.Reps),
				ExtraValue:   parseExtra(set.Extra, extra),
			})
		}
	}
	var volume float64
	for _, rec := range sets {
		volume += rec.Weight * float64(rec.Reps)
	}
	return models.SessionInput{
		ClientToken:   s.clientToken,
		RoutineID:     s.routineID,
		RoutineName:   s.routineName,
		StartedAt:     s.startedAt,
		FinishedAt:    time.Now(),
		TotalVolumeKg: volume,
		Sets:          sets,
	}
}

func (s *Session) currentRestLocked() int {
	if s.current >= 0 && s.current < len(s.exercises) {
		return s.exercises[s.current].RestSeconds
	}
	return DefaultRestSeconds
}

func (s *Session) startTimerLocked() {
	if s.timerRunning {
		return
	}
	s.timerRunning = true
	stop := make(chan struct{})
	s.stopTimer = stop
	go func() {
		t := time.NewTicker(time.Second)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				s.tick()
			}
		}
	}()
}

// stopTimerLocked cancels the countdown goroutine. Idempotent: called on
// explicit stop, zero reached, exercise switch and teardown.
func (s *Session) stopTimerLocked() {
	if s.stopTimer != nil {
		close(s.stopTimer)
		s.stopTimer = nil
	}
	s.timerRunning = false
}

// tick advances the countdown by one second. At zero it fires the end cue,
// stops the timer and resets the display to the exercise's rest duration.
// The timer is a countdown-and-reset utility, not a stopwatch.
func (s *Session) tick() {
	s.mu.Lock()
	if !s.timerRunning {
		s.mu.Unlock()
		return
	}
	var cue func()
	if s.timerSeconds <= 1 {
		s.stopTimerLocked()
		s.timerSeconds = s.currentRestLocked()
		cue = s.cues.End
	} else {
		s.timerSeconds--
		if s.timerSeconds <= cueThreshold {
			cue = s.cues.Tick
		}
	}
	s.mu.Unlock()
	if cue != nil {
		cue()
	}
}

func indexOfSet(sets []PerformableSet, id int) int {
	for i, s := range sets {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// parseWeight coerces free-text weight input. Malformed text becomes 0;
// finishing never blocks on bad numeric entry.
func parseWeight(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// parseReps coerces free-text reps (or duration seconds) input to 0 on error.
func parseReps(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// parseExtra resolves the optional extra-field value. Empty, unparseable or
// out-of-range text is omitted, never clamped and never coerced to 0.
func parseExtra(s string, f *equipment.ExtraField) *int {
	if f == nil {
		return nil
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil || n < f.Min || n > f.Max {
		return nil
	}
	return &n
}
