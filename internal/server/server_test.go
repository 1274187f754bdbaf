package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ProtectiveAllocator/internal/model"
	"ProtectiveAllocator/internal/recorder"
)

type brokenRecorder struct{ *recorder.NoopRecorder }

func (brokenRecorder) History(context.Context) ([]model.AllocationRecord, error) {
	return nil, errors.New("disk gone")
}

func (brokenRecorder) Latest(context.Context) ([]model.AllocationRecord, error) {
	return nil, errors.New("disk gone")
}

func setupServer(t *testing.T, allocs ...*model.Allocation) *httptest.Server {
	t.Helper()
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "ledger.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })
	for _, a := range allocs {
		require.NoError(t, rec.RecordAllocation(context.Background(), a))
	}

	srv := httptest.NewServer(New(Config{Log: zerolog.Nop(), Recorder: rec}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, path string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func alloc(date time.Time, entries ...model.AllocationEntry) *model.Allocation {
	return &model.Allocation{RunID: uuid.New(), Date: date, TotalCapital: 1000, Entries: entries}
}

func TestHealth(t *testing.T) {
	srv := setupServer(t)
	var body map[string]string
	assert.Equal(t, http.StatusOK, get(t, srv, "/health", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestAllocationEndpoints(t *testing.T) {
	jan := alloc(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		model.AllocationEntry{Symbol: "SPY", Amount: 500},
		model.AllocationEntry{Symbol: "IEF", Amount: 500, Defensive: true})
	feb := alloc(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		model.AllocationEntry{Symbol: "GLD", Amount: 1000})
	srv := setupServer(t, jan, feb)

	var history []model.AllocationRecord
	require.Equal(t, http.StatusOK, get(t, srv, "/api/allocations", &history))
	require.Len(t, history, 3)
	assert.Equal(t, "SPY", history[0].Symbol)
	assert.Equal(t, jan.RunID, history[0].RunID)

	var latest []model.AllocationRecord
	require.Equal(t, http.StatusOK, get(t, srv, "/api/allocations/latest", &latest))
	require.Len(t, latest, 1)
	assert.Equal(t, "2025-02-01", latest[0].Date)

	var table tableResponse
	require.Equal(t, http.StatusOK, get(t, srv, "/api/allocations/table", &table))
	assert.Equal(t, []string{"2025-01-01", "2025-02-01"}, table.Dates)
	assert.Equal(t, []string{"GLD", "IEF", "SPY"}, table.Symbols)
	assert.Equal(t, [][]float64{{0, 500, 500}, {1000, 0, 0}}, table.Amounts)
	assert.Equal(t, []float64{1000, 1000}, table.Totals)
	assert.Len(t, table.Summary, 3)
}

func TestAllocationEndpoints_Empty(t *testing.T) {
	srv := setupServer(t)

	var history []model.AllocationRecord
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/allocations", &history))
	assert.Empty(t, history)

	var errBody map[string]string
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/allocations/latest", &errBody))
	assert.NotEmpty(t, errBody["error"])

	var table tableResponse
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/allocations/table", &table))
	assert.Empty(t, table.Dates)
}

func TestAllocationEndpoints_RecorderFailure(t *testing.T) {
	srv := httptest.NewServer(New(Config{Log: zerolog.Nop(), Recorder: brokenRecorder{recorder.NewNoopRecorder()}}).Handler())
	defer srv.Close()

	for _, path := range []string{"/api/allocations", "/api/allocations/latest", "/api/allocations/table"} {
		var body map[string]string
		assert.Equal(t, http.StatusInternalServerError, get(t, srv, path, &body), path)
		assert.NotEmpty(t, body["error"], path)
	}
}
