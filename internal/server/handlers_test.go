package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/calistro/calistro/internal/models"
)

// fakeStore records calls and serves canned data.
type fakeStore struct {
	routines    []models.RoutineRow
	detail      *models.RoutineDetail
	savedInput  *models.RoutineInput
	saveErr     error
	sessionIn   *models.SessionInput
	names       []string
	stats       models.ExerciseStats
	statsName   string
	statsSince  time.Time
	history     []models.HistoryEntry
	volume      []models.VolumePoint
	gotUserID   string
	deleteError error
}

func (f *fakeStore) ListRoutines(ctx context.Context, userID string) ([]models.RoutineRow, error) {
	f.gotUserID = userID
	return f.routines, nil
}

func (f *fakeStore) GetRoutine(ctx context.Context, userID string, routineID int64) (*models.RoutineDetail, error) {
	f.gotUserID = userID
	if f.detail == nil {
		return nil, models.ErrNotFound
	}
	return f.detail, nil
}

func (f *fakeStore) SaveRoutine(ctx context.Context, userID string, in models.RoutineInput) (int64, error) {
	f.gotUserID = userID
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	if err := in.Validate(); err != nil {
		return 0, err
	}
	f.savedInput = &in
	if in.ID != 0 {
		return in.ID, nil
	}
	return 7, nil
}

func (f *fakeStore) DeleteRoutine(ctx context.Context, userID string, routineID int64) error {
	f.gotUserID = userID
	return f.deleteError
}

func (f *fakeStore) SaveSession(ctx context.Context, userID string, in models.SessionInput) (int64, error) {
	f.gotUserID = userID
	f.sessionIn = &in
	return 99, nil
}

func (f *fakeStore) ExerciseNames(ctx context.Context, userID string) ([]string, error) {
	f.gotUserID = userID
	return f.names, nil
}

func (f *fakeStore) ExerciseStats(ctx context.Context, userID, name string, since time.Time) (*models.ExerciseStats, error) {
	f.gotUserID = userID
	f.statsName = name
	f.statsSince = since
	return &f.stats, nil
}

func (f *fakeStore) ExerciseHistory(ctx context.Context, userID, name string) ([]models.HistoryEntry, error) {
	f.gotUserID = userID
	return f.history, nil
}

func (f *fakeStore) VolumeProgression(ctx context.Context, userID, name string) ([]models.VolumePoint, error) {
	f.gotUserID = userID
	return f.volume, nil
}

func newTestServer(store *fakeStore) *Server {
	return New(store, testSecret, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "u1"))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

// TestRoutesRequireAuth verifies every route under /api/v1 rejects
// unauthenticated requests.
func TestRoutesRequireAuth(t *testing.T) {
	s := newTestServer(&fakeStore{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/routines", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

// TestListRoutinesEmpty verifies an empty result serializes as [] rather
// than null.
func TestListRoutinesEmpty(t *testing.T) {
	store := &fakeStore{}
	rec := doRequest(t, newTestServer(store), http.MethodGet, "/api/v1/routines", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("body = %q, want []", got)
	}
	if store.gotUserID != "u1" {
		t.Errorf("userID = %q, want u1", store.gotUserID)
	}
}

// TestGetRoutineNotFound verifies missing routines map to 404.
func TestGetRoutineNotFound(t *testing.T) {
	rec := doRequest(t, newTestServer(&fakeStore{}), http.MethodGet, "/api/v1/routines/5", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// TestGetRoutineBadID verifies a non-numeric id maps to 400.
func TestGetRoutineBadID(t *testing.T) {
	rec := doRequest(t, newTestServer(&fakeStore{}), http.MethodGet, "/api/v1/routines/abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestCreateRoutine verifies POST creates and returns the new id with 201.
func TestCreateRoutine(t *testing.T) {
	store := &fakeStore{}
	in := models.RoutineInput{Title: "Torso"}
	rec := doRequest(t, newTestServer(store), http.MethodPost, "/api/v1/routines", in)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	var resp map[string]int64
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["id"] != 7 {
		t.Errorf("id = %d, want 7", resp["id"])
	}
}

// TestCreateRoutineValidation verifies a blank title maps to 400.
func TestCreateRoutineValidation(t *testing.T) {
	rec := doRequest(t, newTestServer(&fakeStore{}), http.MethodPost, "/api/v1/routines",
		models.RoutineInput{Title: "   "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestUpdateRoutinePathIDWins verifies PUT takes the id from the path even
// when the body disagrees.
func TestUpdateRoutinePathIDWins(t *testing.T) {
	store := &fakeStore{}
	in := models.RoutineInput{ID: 999, Title: "Torso"}
	rec := doRequest(t, newTestServer(store), http.MethodPut, "/api/v1/routines/3", in)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.savedInput == nil || store.savedInput.ID != 3 {
		t.Errorf("saved input = %+v, want ID 3", store.savedInput)
	}
}

// TestUpdateRoutineNotFound verifies updating someone else's routine maps
// to 404.
func TestUpdateRoutineNotFound(t *testing.T) {
	store := &fakeStore{saveErr: models.ErrNotFound}
	rec := doRequest(t, newTestServer(store), http.MethodPut, "/api/v1/routines/3",
		models.RoutineInput{Title: "Torso"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// TestDeleteRoutine verifies deletion returns 204 and missing routines 404.
func TestDeleteRoutine(t *testing.T) {
	rec := doRequest(t, newTestServer(&fakeStore{}), http.MethodDelete, "/api/v1/routines/3", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}

	rec = doRequest(t, newTestServer(&fakeStore{deleteError: models.ErrNotFound}),
		http.MethodDelete, "/api/v1/routines/3", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// TestSaveSession verifies POST /sessions forwards the payload and returns
// the new id.
func TestSaveSession(t *testing.T) {
	store := &fakeStore{}
	in := models.SessionInput{
		ClientToken: "tok-1",
		RoutineName: "Torso",
		Sets:        []models.SessionSetInput{{ExerciseName: "Dominadas", Weight: 12, Reps: 8}},
	}
	rec := doRequest(t, newTestServer(store), http.MethodPost, "/api/v1/sessions", in)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if store.sessionIn == nil || store.sessionIn.ClientToken != "tok-1" {
		t.Errorf("session input = %+v", store.sessionIn)
	}
}

// TestExerciseStatsPeriods verifies the period parameter resolves to the
// right since boundary.
func TestExerciseStatsPeriods(t *testing.T) {
	store := &fakeStore{stats: models.ExerciseStats{MaxReps: 8}}
	s := newTestServer(store)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/history/stats?exercise=Dominadas&period=week", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.statsName != "Dominadas" {
		t.Errorf("stats name = %q", store.statsName)
	}
	if store.statsSince.Weekday() != time.Monday {
		t.Errorf("week since = %v, want a Monday", store.statsSince)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/v1/history/stats?exercise=Dominadas&period=all", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !store.statsSince.IsZero() {
		t.Errorf("all-time since = %v, want zero", store.statsSince)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/v1/history/stats?exercise=Dominadas&period=fortnight", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestExerciseStatsRequiresName verifies the exercise parameter is mandatory
// on all history endpoints that take one.
func TestExerciseStatsRequiresName(t *testing.T) {
	s := newTestServer(&fakeStore{})
	for _, path := range []string{
		"/api/v1/history/stats",
		"/api/v1/history/sessions",
		"/api/v1/history/volume",
	} {
		rec := doRequest(t, s, http.MethodGet, path, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, rec.Code)
		}
	}
}

// TestExerciseHistory verifies the history endpoint serializes entries with
// camelCase keys.
func TestExerciseHistory(t *testing.T) {
	store := &fakeStore{history: []models.HistoryEntry{
		{SessionID: 1, Date: "10 Aug 2026", RoutineName: "Torso",
			Sets: []models.SetDetail{{Weight: 12, Reps: 8}}, TotalVolume: 96},
	}}
	rec := doRequest(t, newTestServer(store), http.MethodGet,
		"/api/v1/history/sessions?exercise=Dominadas", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var entries []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0]["routineName"] != "Torso" || entries[0]["totalVolume"] != 96.0 {
		t.Errorf("entries = %+v", entries)
	}
}
