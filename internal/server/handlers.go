package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/calistro/calistro/internal/history"
	"github.com/calistro/calistro/internal/models"
)

func (s *Server) handleListRoutines(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListRoutines(r.Context(), UserID(r.Context()))
	if err != nil {
		s.serverError(w, "listing routines", err)
		return
	}
	if rows == nil {
		rows = []models.RoutineRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleGetRoutine(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid routine id"})
		return
	}
	detail, err := s.store.GetRoutine(r.Context(), UserID(r.Context()), id)
	if errors.Is(err, models.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "routine not found"})
		return
	}
	if err != nil {
		s.serverError(w, "getting routine", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// handleSaveRoutine serves both POST /routines and PUT /routines/{id}. On
// PUT the path id wins over whatever the body carries.
func (s *Server) handleSaveRoutine(w http.ResponseWriter, r *http.Request) {
	var in models.RoutineInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if idStr := chi.URLParam(r, "id"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid routine id"})
			return
		}
		in.ID = id
	}

	id, err := s.store.SaveRoutine(r.Context(), UserID(r.Context()), in)
	if errors.Is(err, models.ErrValidation) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if errors.Is(err, models.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "routine not found"})
		return
	}
	if err != nil {
		s.serverError(w, "saving routine", err)
		return
	}
	status := http.StatusOK
	if in.ID == 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]int64{"id": id})
}

func (s *Server) handleDeleteRoutine(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid routine id"})
		return
	}
	err = s.store.DeleteRoutine(r.Context(), UserID(r.Context()), id)
	if errors.Is(err, models.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "routine not found"})
		return
	}
	if err != nil {
		s.serverError(w, "deleting routine", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	var in models.SessionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	id, err := s.store.SaveSession(r.Context(), UserID(r.Context()), in)
	if err != nil {
		s.serverError(w, "saving session", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleExerciseNames(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.ExerciseNames(r.Context(), UserID(r.Context()))
	if err != nil {
		s.serverError(w, "listing exercises", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleExerciseStats(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("exercise")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exercise parameter required"})
		return
	}
	since, err := parseSince(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	stats, err := s.store.ExerciseStats(r.Context(), UserID(r.Context()), name, since)
	if err != nil {
		s.serverError(w, "computing stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleExerciseHistory(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("exercise")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exercise parameter required"})
		return
	}
	entries, err := s.store.ExerciseHistory(r.Context(), UserID(r.Context()), name)
	if err != nil {
		s.serverError(w, "loading history", err)
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleVolumeProgression(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("exercise")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exercise parameter required"})
		return
	}
	points, err := s.store.VolumeProgression(r.Context(), UserID(r.Context()), name)
	if err != nil {
		s.serverError(w, "computing volume", err)
		return
	}
	if points == nil {
		points = []models.VolumePoint{}
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) serverError(w http.ResponseWriter, msg string, err error) {
	s.log.Error(msg, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// parseSince resolves the stats window. A period of week or month becomes
// its boundary, an explicit since takes an RFC 3339 timestamp or a date,
// and neither means all time.
func parseSince(r *http.Request) (time.Time, error) {
	if p := r.URL.Query().Get("period"); p != "" {
		switch history.Period(p) {
		case history.PeriodWeek, history.PeriodMonth:
			return history.PeriodStart(history.Period(p), time.Now()), nil
		case "all":
			return time.Time{}, nil
		default:
			return time.Time{}, errors.New("period must be week, month or all")
		}
	}
	sinceStr := r.URL.Query().Get("since")
	if sinceStr == "" {
		return time.Time{}, nil
	}
	since, err := time.Parse(time.RFC3339, sinceStr)
	if err != nil {
		since, err = time.Parse("2006-01-02", sinceStr)
		if err != nil {
			return time.Time{}, err
		}
	}
	return since, nil
}
