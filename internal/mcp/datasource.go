package mcp

import (
	"context"
	"time"

	"github.com/calistro/calistro/internal/client"
	"github.com/calistro/calistro/internal/localdb"
	"github.com/calistro/calistro/internal/models"
	"github.com/calistro/calistro/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. The PostgreSQL gateway,
// the embedded SQLite gateway and the REST client all satisfy it.
type DataSource interface {
	ListRoutines(ctx context.Context, userID string) ([]models.RoutineRow, error)
	ExerciseNames(ctx context.Context, userID string) ([]string, error)
	ExerciseStats(ctx context.Context, userID, name string, since time.Time) (*models.ExerciseStats, error)
	ExerciseHistory(ctx context.Context, userID, name string) ([]models.HistoryEntry, error)
	VolumeProgression(ctx context.Context, userID, name string) ([]models.VolumePoint, error)
}

var _ DataSource = (*storage.DB)(nil)
var _ DataSource = (*localdb.DB)(nil)
var _ DataSource = (*client.Client)(nil)
