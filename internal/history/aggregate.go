// Package history aggregates persisted per-set records into the statistics
// and series the history view shows. Everything is a pure function of the
// rows (already filtered to one user and one exercise name) and, for period
// boundaries, of "now". History joins on the denormalized exercise name by
// design: renaming or deleting an exercise never merges or loses old rows.
package history

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/calistro/calistro/internal/models"
)

// MaxHistoryEntries caps Sessions output to the most recent sessions.
const MaxHistoryEntries = 20

// MaxVolumeMonths caps MonthlyVolume output to the most recent months.
const MaxVolumeMonths = 12

// SetRecord is one persisted session set joined with its owning session.
type SetRecord struct {
	SessionID   int64
	RoutineName string
	FinishedAt  time.Time
	Weight      float64
	Reps        int
	RPE         *float64
	ExtraValue  *int
}

// Period selects the stats window.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// PeriodStart resolves a period to its boundary: the most recent Monday at
// 00:00 local time (Sunday counts as day 7, so it goes back six days), or
// the first day of the current calendar month.
func PeriodStart(p Period, now time.Time) time.Time {
	if p == PeriodWeek {
		diff := 1 - int(now.Weekday())
		if now.Weekday() == time.Sunday {
			diff = -6
		}
		monday := now.AddDate(0, 0, diff)
		return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, now.Location())
	}
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// DistinctNames returns the alphabetically ordered set of exercise names.
func DistinctNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// Stats computes aggregates over rows whose session finished at or after
// since. TotalSessions counts distinct sessions, not rows. Every field is
// zero, never absent, when nothing matches.
func Stats(rows []SetRecord, since time.Time) models.ExerciseStats {
	var stats models.ExerciseStats
	sessions := make(map[int64]bool)
	for _, r := range rows {
		if r.FinishedAt.Before(since) {
			continue
		}
		if r.Reps > stats.MaxReps {
			stats.MaxReps = r.Reps
		}
		if r.Weight > stats.MaxWeight {
			stats.MaxWeight = r.Weight
		}
		sessions[r.SessionID] = true
		stats.TotalVolume += r.Weight * float64(r.Reps)
	}
	stats.TotalSessions = len(sessions)
	return stats
}

// Sessions groups rows into per-session history entries, most recent first,
// capped at MaxHistoryEntries. Set order within an entry follows row order.
// Each entry's TotalVolume covers only this exercise's sets in that session.
func Sessions(rows []SetRecord) []models.HistoryEntry {
	type bucket struct {
		entry      models.HistoryEntry
		finishedAt time.Time
	}
	index := make(map[int64]int)
	var buckets []bucket
	for _, r := range rows {
		i, ok := index[r.SessionID]
		if !ok {
			i = len(buckets)
			index[r.SessionID] = i
			buckets = append(buckets, bucket{
				entry: models.HistoryEntry{
					SessionID:   r.SessionID,
					Date:        r.FinishedAt.Format("2 Jan 2006"),
					RoutineName: r.RoutineName,
				},
				finishedAt: r.FinishedAt,
			})
		}
		b := &buckets[i]
		b.entry.Sets = append(b.entry.Sets, models.SetDetail{
			Weight:     r.Weight,
			Reps:       r.Reps,
			RPE:        r.RPE,
			ExtraValue: r.ExtraValue,
		})
		b.entry.TotalVolume += r.Weight * float64(r.Reps)
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].finishedAt.After(buckets[j].finishedAt)
	})
	if len(buckets) > MaxHistoryEntries {
		buckets = buckets[:MaxHistoryEntries]
	}

	out := make([]models.HistoryEntry, len(buckets))
	for i, b := range buckets {
		out[i] = b.entry
	}
	return out
}

// MonthlyVolume buckets rows into calendar months and returns at most the
// MaxVolumeMonths most recent ones, in ascending chronological order. Only
// months with at least one row appear.
func MonthlyVolume(rows []SetRecord) []models.VolumePoint {
	type monthKey struct {
		year  int
		month time.Month
	}
	volumes := make(map[monthKey]float64)
	for _, r := range rows {
		k := monthKey{r.FinishedAt.Year(), r.FinishedAt.Month()}
		volumes[k] += r.Weight * float64(r.Reps)
	}

	keys := make([]monthKey, 0, len(volumes))
	for k := range volumes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})
	if len(keys) > MaxVolumeMonths {
		keys = keys[len(keys)-MaxVolumeMonths:]
	}

	out := make([]models.VolumePoint, len(keys))
	for i, k := range keys {
		v := volumes[k]
		out[i] = models.VolumePoint{
			Month:  time.Date(k.year, k.month, 1, 0, 0, 0, 0, time.UTC).Format("Jan"),
			Volume: v,
			Label:  fmt.Sprintf("%d kg", int(math.Round(v))),
		}
	}
	return out
}

// FormatVolume renders a volume for display: tonnes past 1000 kg.
func FormatVolume(kg float64) string {
	if kg >= 1000 {
		return fmt.Sprintf("%.1f t", kg/1000)
	}
	return fmt.Sprintf("%d kg", int(math.Round(kg)))
}
