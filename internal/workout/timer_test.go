package workout

import (
	"sync"
	"testing"

	"github.com/calistro/calistro/internal/models"
)

type recordingCues struct {
	mu    sync.Mutex
	ticks int
	ends  int
}

func (c *recordingCues) Tick() {
	c.mu.Lock()
	c.ticks++
	c.mu.Unlock()
}

func (c *recordingCues) End() {
	c.mu.Lock()
	c.ends++
	c.mu.Unlock()
}

func (c *recordingCues) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks, c.ends
}

func timerRoutine(rest int) *models.RoutineDetail {
	return &models.RoutineDetail{
		Routine: models.RoutineRow{ID: 1, Title: "Timer"},
		Exercises: []models.ExerciseWithTemplates{{
			ExerciseRow: models.ExerciseRow{Name: "Plancha", RestSeconds: rest},
			Templates:   []models.SetTemplateRow{{Sets: "1", Reps: "10", Weight: "0"}},
		}},
	}
}

// driveTimer marks the timer running without spawning the ticker goroutine,
// so tests can step it deterministically with tick().
func driveTimer(s *Session, seconds int) {
	s.mu.Lock()
	s.timerRunning = true
	s.timerSeconds = seconds
	s.mu.Unlock()
}

func TestTimerCountdownAndCues(t *testing.T) {
	cues := &recordingCues{}
	s := New("u", timerRoutine(15), cues)
	defer s.Close()

	driveTimer(s, 15)
	for i := 0; i < 14; i++ {
		s.tick()
	}
	seconds, running := s.TimerState()
	if seconds != 1 || !running {
		t.Fatalf("after 14 ticks: %d running=%v, want 1 running", seconds, running)
	}
	ticks, ends := cues.counts()
	// Short cue on every tick once the display is at or below 10 (10..1).
	if ticks != 10 {
		t.Errorf("tick cues = %d, want 10", ticks)
	}
	if ends != 0 {
		t.Errorf("end cues = %d before zero, want 0", ends)
	}

	// Final tick: end cue, stop, reset to the configured rest.
	s.tick()
	seconds, running = s.TimerState()
	if running {
		t.Error("timer still running after reaching zero")
	}
	if seconds != 15 {
		t.Errorf("display = %d after zero, want reset to 15", seconds)
	}
	if _, ends = cues.counts(); ends != 1 {
		t.Errorf("end cues = %d, want 1", ends)
	}
}

func TestTickIgnoredWhenStopped(t *testing.T) {
	cues := &recordingCues{}
	s := New("u", timerRoutine(30), cues)
	defer s.Close()

	s.tick()
	if seconds, _ := s.TimerState(); seconds != 30 {
		t.Errorf("display = %d after tick while stopped, want 30", seconds)
	}
	if ticks, ends := cues.counts(); ticks != 0 || ends != 0 {
		t.Errorf("cues fired while stopped: %d/%d", ticks, ends)
	}
}

func TestToggleTimerStopResets(t *testing.T) {
	s := New("u", timerRoutine(60), nil)
	defer s.Close()

	s.ToggleTimer()
	if _, running := s.TimerState(); !running {
		t.Fatal("timer not running after toggle")
	}
	driveTimer(s, 42) // simulate elapsed countdown

	s.ToggleTimer()
	seconds, running := s.TimerState()
	if running {
		t.Error("timer running after stop toggle")
	}
	if seconds != 60 {
		t.Errorf("display = %d after stop, want reset to 60", seconds)
	}

	// Restart runs from the displayed value, not the rest default.
	s.mu.Lock()
	s.timerSeconds = 25
	s.mu.Unlock()
	s.ToggleTimer()
	seconds, running = s.TimerState()
	if !running || seconds != 25 {
		t.Errorf("after restart: %d running=%v, want 25 running", seconds, running)
	}
}

func TestCloseIdempotent(t *testing.T) {
	s := New("u", timerRoutine(60), nil)
	s.ToggleTimer()
	s.Close()
	s.Close()
	if _, running := s.TimerState(); running {
		t.Error("timer running after Close")
	}
}
