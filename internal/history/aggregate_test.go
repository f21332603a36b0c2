package history

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 18, 30, 0, 0, time.UTC)
}

func TestPeriodStartWeek(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			"wednesday",
			time.Date(2026, time.August, 26, 15, 4, 5, 0, time.UTC),
			time.Date(2026, time.August, 24, 0, 0, 0, 0, time.UTC),
		},
		{
			"monday itself",
			time.Date(2026, time.August, 24, 9, 0, 0, 0, time.UTC),
			time.Date(2026, time.August, 24, 0, 0, 0, 0, time.UTC),
		},
		{
			// Sunday is day 7, not day 0: go back six days.
			"sunday",
			time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC),
			time.Date(2026, time.August, 24, 0, 0, 0, 0, time.UTC),
		},
		{
			"saturday",
			time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC),
			time.Date(2026, time.August, 24, 0, 0, 0, 0, time.UTC),
		},
		{
			"month boundary",
			time.Date(2026, time.September, 1, 8, 0, 0, 0, time.UTC),
			time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PeriodStart(PeriodWeek, tt.now); !got.Equal(tt.want) {
				t.Errorf("PeriodStart(week, %v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestPeriodStartMonth(t *testing.T) {
	now := time.Date(2026, time.August, 26, 15, 4, 5, 0, time.UTC)
	want := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	if got := PeriodStart(PeriodMonth, now); !got.Equal(want) {
		t.Errorf("PeriodStart(month) = %v, want %v", got, want)
	}
}

func TestDistinctNames(t *testing.T) {
	got := DistinctNames([]string{"Fondos", "Dominadas", "Fondos", "Ardillas"})
	want := []string{"Ardillas", "Dominadas", "Fondos"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStatsZeroDefaults(t *testing.T) {
	stats := Stats(nil, time.Time{})
	if stats.MaxReps != 0 || stats.MaxWeight != 0 || stats.TotalSessions != 0 || stats.TotalVolume != 0 {
		t.Errorf("empty stats = %+v, want all zeros", stats)
	}

	// Rows exist but all before the boundary.
	rows := []SetRecord{{SessionID: 1, FinishedAt: day(2026, time.July, 1), Weight: 10, Reps: 8}}
	stats = Stats(rows, day(2026, time.August, 1))
	if stats.TotalSessions != 0 || stats.TotalVolume != 0 {
		t.Errorf("filtered stats = %+v, want all zeros", stats)
	}
}

func TestStatsAggregation(t *testing.T) {
	since := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	rows := []SetRecord{
		{SessionID: 1, FinishedAt: day(2026, time.August, 3), Weight: 10, Reps: 8},
		{SessionID: 1, FinishedAt: day(2026, time.August, 3), Weight: 12, Reps: 6},
		{SessionID: 2, FinishedAt: day(2026, time.August, 10), Weight: 8, Reps: 12},
		// Outside the window: ignored entirely.
		{SessionID: 3, FinishedAt: day(2026, time.July, 20), Weight: 50, Reps: 50},
	}
	stats := Stats(rows, since)
	if stats.MaxReps != 12 {
		t.Errorf("maxReps = %d, want 12", stats.MaxReps)
	}
	if stats.MaxWeight != 12 {
		t.Errorf("maxWeight = %v, want 12", stats.MaxWeight)
	}
	if stats.TotalSessions != 2 {
		t.Errorf("totalSessions = %d, want 2 (distinct sessions, not rows)", stats.TotalSessions)
	}
	if want := 10.0*8 + 12*6 + 8*12; stats.TotalVolume != float64(want) {
		t.Errorf("totalVolume = %v, want %v", stats.TotalVolume, want)
	}
}

func TestSessionsGroupingAndOrder(t *testing.T) {
	rpe := 8.5
	rows := []SetRecord{
		{SessionID: 1, RoutineName: "Torso", FinishedAt: day(2026, time.August, 3), Weight: 10, Reps: 8},
		{SessionID: 1, RoutineName: "Torso", FinishedAt: day(2026, time.August, 3), Weight: 10, Reps: 6, RPE: &rpe},
		{SessionID: 2, RoutineName: "Pierna", FinishedAt: day(2026, time.August, 10), Weight: 20, Reps: 5},
	}
	entries := Sessions(rows)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	// Most recent session first.
	if entries[0].SessionID != 2 || entries[1].SessionID != 1 {
		t.Errorf("order = %d,%d, want 2,1", entries[0].SessionID, entries[1].SessionID)
	}
	if entries[0].Date != "10 Aug 2026" {
		t.Errorf("date = %q, want %q", entries[0].Date, "10 Aug 2026")
	}
	if entries[1].Date != "3 Aug 2026" {
		t.Errorf("date = %q, want %q (no leading zero)", entries[1].Date, "3 Aug 2026")
	}
	// Per-entry volume covers only that session's rows.
	if entries[1].TotalVolume != 10*8+10*6 {
		t.Errorf("session 1 volume = %v, want 140", entries[1].TotalVolume)
	}
	if len(entries[1].Sets) != 2 {
		t.Fatalf("session 1 has %d sets, want 2", len(entries[1].Sets))
	}
	if entries[1].Sets[1].RPE == nil || *entries[1].Sets[1].RPE != 8.5 {
		t.Errorf("rpe = %v, want 8.5", entries[1].Sets[1].RPE)
	}
}

func TestSessionsLimit(t *testing.T) {
	var rows []SetRecord
	for i := 0; i < 25; i++ {
		rows = append(rows, SetRecord{
			SessionID:  int64(i + 1),
			FinishedAt: day(2026, time.January, 1).AddDate(0, 0, i),
			Weight:     10,
			Reps:       5,
		})
	}
	entries := Sessions(rows)
	if len(entries) != MaxHistoryEntries {
		t.Fatalf("got %d entries, want %d", len(entries), MaxHistoryEntries)
	}
	// The 5 oldest sessions fall off.
	if entries[0].SessionID != 25 || entries[len(entries)-1].SessionID != 6 {
		t.Errorf("range = %d..%d, want 25..6", entries[0].SessionID, entries[len(entries)-1].SessionID)
	}
}

func TestMonthlyVolume(t *testing.T) {
	rows := []SetRecord{
		{SessionID: 1, FinishedAt: day(2026, time.March, 5), Weight: 10, Reps: 10},
		{SessionID: 2, FinishedAt: day(2026, time.March, 20), Weight: 10, Reps: 5},
		{SessionID: 3, FinishedAt: day(2026, time.January, 2), Weight: 20, Reps: 10},
	}
	points := MonthlyVolume(rows)
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2 (no empty months)", len(points))
	}
	// Ascending chronological order.
	if points[0].Month != "Jan" || points[1].Month != "Mar" {
		t.Errorf("months = %q,%q, want Jan,Mar", points[0].Month, points[1].Month)
	}
	if points[0].Volume != 200 || points[1].Volume != 150 {
		t.Errorf("volumes = %v,%v, want 200,150", points[0].Volume, points[1].Volume)
	}
	if points[1].Label != "150 kg" {
		t.Errorf("label = %q, want %q", points[1].Label, "150 kg")
	}
}

func TestMonthlyVolumeKeepsMostRecentTwelve(t *testing.T) {
	var rows []SetRecord
	base := time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		rows = append(rows, SetRecord{
			SessionID:  int64(i + 1),
			FinishedAt: base.AddDate(0, i, 0),
			Weight:     10,
			Reps:       10,
		})
	}
	points := MonthlyVolume(rows)
	if len(points) != MaxVolumeMonths {
		t.Fatalf("got %d points, want %d", len(points), MaxVolumeMonths)
	}
	// Oldest three months (Jan-Mar 2025) dropped; April 2025 leads.
	if points[0].Month != "Apr" {
		t.Errorf("first month = %q, want Apr", points[0].Month)
	}
	if points[len(points)-1].Month != "Mar" {
		t.Errorf("last month = %q, want Mar (2026)", points[len(points)-1].Month)
	}
}

func TestFormatVolume(t *testing.T) {
	tests := []struct {
		kg   float64
		want string
	}{
		{973.4, "973 kg"},
		{1000, "1.0 t"},
		{1250, "1.2 t"},
		{0, "0 kg"},
	}
	for _, tt := range tests {
		if got := FormatVolume(tt.kg); got != tt.want {
			t.Errorf("FormatVolume(%v) = %q, want %q", tt.kg, got, tt.want)
		}
	}
}
