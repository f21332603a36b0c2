package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/calistro/calistro/internal/localdb"
	"github.com/calistro/calistro/internal/models"
	"github.com/calistro/calistro/internal/storage"
)

// Store is what the HTTP layer needs from a gateway. Both the PostgreSQL and
// the embedded SQLite gateways satisfy it.
type Store interface {
	ListRoutines(ctx context.Context, userID string) ([]models.RoutineRow, error)
	GetRoutine(ctx context.Context, userID string, routineID int64) (*models.RoutineDetail, error)
	SaveRoutine(ctx context.Context, userID string, in models.RoutineInput) (int64, error)
	DeleteRoutine(ctx context.Context, userID string, routineID int64) error
	SaveSession(ctx context.Context, userID string, in models.SessionInput) (int64, error)
	ExerciseNames(ctx context.Context, userID string) ([]string, error)
	ExerciseStats(ctx context.Context, userID, name string, since time.Time) (*models.ExerciseStats, error)
	ExerciseHistory(ctx context.Context, userID, name string) ([]models.HistoryEntry, error)
	VolumeProgression(ctx context.Context, userID, name string) ([]models.VolumePoint, error)
}

var _ Store = (*storage.DB)(nil)
var _ Store = (*localdb.DB)(nil)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store     Store
	log       *slog.Logger
	jwtSecret string
	router    chi.Router
}

// New creates a new Server with all routes configured.
func New(store Store, jwtSecret string, log *slog.Logger) *Server {
	s := &Server{
		store:     store,
		log:       log,
		jwtSecret: jwtSecret,
		router:    chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(JWTAuth(s.jwtSecret))

		r.Get("/routines", s.handleListRoutines)
		r.Post("/routines", s.handleSaveRoutine)
		r.Get("/routines/{id}", s.handleGetRoutine)
		r.Put("/routines/{id}", s.handleSaveRoutine)
		r.Delete("/routines/{id}", s.handleDeleteRoutine)

		r.Post("/sessions", s.handleSaveSession)

		r.Get("/history/exercises", s.handleExerciseNames)
		r.Get("/history/stats", s.handleExerciseStats)
		r.Get("/history/sessions", s.handleExerciseHistory)
		r.Get("/history/volume", s.handleVolumeProgression)
	})
}
