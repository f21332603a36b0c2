package workout

import (
	"strconv"
	"strings"

	"github.com/calistro/calistro/internal/models"
)

// SetStatus is the lifecycle of a performable set. Transitions only move
// forward: pending → active → completed.
type SetStatus int

const (
	SetPending SetStatus = iota
	SetActive
	SetCompleted
)

func (s SetStatus) String() string {
	switch s {
	case SetActive:
		return "active"
	case SetCompleted:
		return "completed"
	default:
		return "pending"
	}
}

// PerformableSet is one concrete, independently trackable set during an
// active session. ID is a 1-based sequence number scoped to the exercise.
// Weight/Reps/Extra stay free-text until the session is finished.
type PerformableSet struct {
	ID     int
	Weight string
	Reps   string
	Extra  string
	Status SetStatus
}

// ExpandTemplates flattens an exercise's set templates, in sort order, into
// its performable set list. Each template produces max(1, repeat count)
// identical sets; the first set of a non-empty list starts active, all
// others pending.
func ExpandTemplates(rows []models.SetTemplateRow) []PerformableSet {
	var out []PerformableSet
	for _, row := range rows {
		count := repeatCount(row.Sets)
		for i := 0; i < count; i++ {
			out = append(out, PerformableSet{
				ID:     len(out) + 1,
				Weight: row.Weight,
				Reps:   row.Reps,
				Extra:  row.ExtraValue,
				Status: SetPending,
			})
		}
	}
	if len(out) > 0 {
		out[0].Status = SetActive
	}
	return out
}

// repeatCount parses a template's repeat count. Non-numeric, zero or
// negative input counts as 1: a template never expands to zero sets.
func repeatCount(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
