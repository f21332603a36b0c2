package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/calistro/calistro/internal/history"
	"github.com/calistro/calistro/internal/models"
)

// statsSince resolves the period argument to its window start. An empty or
// "all" period means all time.
func statsSince(period string) (time.Time, bool) {
	switch period {
	case "", "all":
		return time.Time{}, true
	case string(history.PeriodWeek), string(history.PeriodMonth):
		return history.PeriodStart(history.Period(period), time.Now()), true
	default:
		return time.Time{}, false
	}
}

// --- Tool definitions ---

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List every exercise name appearing in the training history, alphabetically."),
)

var toolGetExerciseStats = mcp.NewTool("get_exercise_stats",
	mcp.WithDescription("Aggregate statistics for one exercise: max reps, max weight, distinct session count, and total volume (weight x reps summed over all sets)."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exact exercise name (e.g. 'Dominadas')")),
	mcp.WithString("period", mcp.Description("Stats window. Defaults to all time."), mcp.Enum("week", "month", "all")),
)

var toolGetExerciseHistory = mcp.NewTool("get_exercise_history",
	mcp.WithDescription("The most recent sessions containing an exercise, newest first, each with its recorded sets (weight, reps, optional RPE and equipment extra value)."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exact exercise name")),
)

var toolGetVolumeProgression = mcp.NewTool("get_volume_progression",
	mcp.WithDescription("Monthly training volume for one exercise over the last year, ascending. Volume is weight x reps summed per calendar month."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exact exercise name")),
)

// --- Tool handlers ---

func (h *handlers) listExercises(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)

	names, err := h.ds.ExerciseNames(ctx, uid)
	if err != nil {
		h.log.Error("mcp list_exercises", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if names == nil {
		names = []string{}
	}

	result, err := mcp.NewToolResultJSON(names)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getExerciseStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}

	since, ok := statsSince(req.GetString("period", ""))
	if !ok {
		return mcp.NewToolResultError("period must be week, month or all"), nil
	}

	uid := UserIDFromContext(ctx)
	stats, err := h.ds.ExerciseStats(ctx, uid, name, since)
	if err != nil {
		h.log.Error("mcp get_exercise_stats", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	payload := struct {
		models.ExerciseStats
		TotalVolumeDisplay string `json:"totalVolumeDisplay"`
	}{*stats, history.FormatVolume(stats.TotalVolume)}

	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getExerciseHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}

	uid := UserIDFromContext(ctx)
	entries, err := h.ds.ExerciseHistory(ctx, uid, name)
	if err != nil {
		h.log.Error("mcp get_exercise_history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(entries)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getVolumeProgression(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}

	uid := UserIDFromContext(ctx)
	points, err := h.ds.VolumeProgression(ctx, uid, name)
	if err != nil {
		h.log.Error("mcp get_volume_progression", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(points)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
