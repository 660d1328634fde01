package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/chess-data-etl/internal/adapter/filestore"
	httpadapter "github.com/couchcryptid/chess-data-etl/internal/adapter/http"
	"github.com/couchcryptid/chess-data-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockDatasets struct {
	datasets map[string]domain.Dataset
	err      error
	asked    []string
}

func (m *mockDatasets) Read(player string) (domain.Dataset, error) {
	m.asked = append(m.asked, player)
	if m.err != nil {
		return domain.Dataset{}, m.err
	}
	d, ok := m.datasets[player]
	if !ok {
		return domain.Dataset{}, filestore.ErrDatasetNotFound
	}
	return d, nil
}

func newTestServer(readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, nil, slog.Default())
}

func newDatasetServer(ds *mockDatasets) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{}, ds, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func get(t *testing.T, srv http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func dated(id string, y int, m time.Month, d int, tc domain.TimeClass, res domain.Result) domain.NormalizedGame {
	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return domain.NormalizedGame{
		GameURL:          "https://www.chess.com/game/live/" + id,
		GameID:           id,
		Date:             &date,
		Rated:            true,
		TimeClass:        tc,
		Opening:          "C50",
		PlayerColor:      domain.ColorWhite,
		PlayerRating:     1500,
		OpponentUsername: "bob",
		OpponentRating:   1400,
		PlayerResult:     res,
	}
}

func aliceDatasets() *mockDatasets {
	return &mockDatasets{datasets: map[string]domain.Dataset{
		"alice": {Player: "alice", Games: []domain.NormalizedGame{
			dated("1", 2024, time.January, 5, "blitz", domain.ResultWin),
			dated("2", 2024, time.February, 10, "blitz", domain.ResultLoss),
			dated("3", 2024, time.March, 15, "rapid", domain.ResultDraw),
		}},
		"newbie": domain.EmptyDataset("newbie"),
	}}
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(t, newTestServer(nil), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(t, newTestServer(nil), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(t, newTestServer(fmt.Errorf("not ready yet")), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(nil), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestDatasetRoutesAbsentWithoutReader(t *testing.T) {
	rec := get(t, newTestServer(nil), "/players/alice/games")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGamesReturnsDataset(t *testing.T) {
	ds := aliceDatasets()
	rec := get(t, newDatasetServer(ds), "/players/Alice/games")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, []string{"alice"}, ds.asked, "player is looked up by its lower-cased key")

	var games []domain.NormalizedGame
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &games))
	require.Len(t, games, 3)
	assert.Equal(t, "1", games[0].GameID)
	assert.Equal(t, domain.ResultWin, games[0].PlayerResult)
}

func TestGamesFiltersByDate(t *testing.T) {
	rec := get(t, newDatasetServer(aliceDatasets()), "/players/alice/games?from=2024-02-01&to=2024-03-15")

	require.Equal(t, http.StatusOK, rec.Code)
	var games []domain.NormalizedGame
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &games))
	require.Len(t, games, 2)
	assert.Equal(t, "2", games[0].GameID)
	assert.Equal(t, "3", games[1].GameID)
}

func TestGamesEmptyDatasetIsEmptyArray(t *testing.T) {
	rec := get(t, newDatasetServer(aliceDatasets()), "/players/newbie/games")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGamesNotComputedIs404(t *testing.T) {
	rec := get(t, newDatasetServer(aliceDatasets()), "/players/stranger/games")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "stranger")
}

func TestGamesRejectsBadInput(t *testing.T) {
	srv := newDatasetServer(aliceDatasets())

	tests := map[string]string{
		"invalid player": "/players/al%20ice/games",
		"bad from":       "/players/alice/games?from=yesterday",
		"bad to":         "/players/alice/games?to=2024-13-01",
		"reversed range": "/players/alice/games?from=2024-03-01&to=2024-01-01",
	}
	for name, target := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, get(t, srv, target).Code)
		})
	}
}

func TestGamesReadFailureIs500(t *testing.T) {
	rec := get(t, newDatasetServer(&mockDatasets{err: errors.New("permission denied")}), "/players/alice/games")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "permission denied")
}

func TestSummary(t *testing.T) {
	rec := get(t, newDatasetServer(aliceDatasets()), "/players/alice/summary?top=1")

	require.Equal(t, http.StatusOK, rec.Code)
	var s domain.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, "alice", s.Player)
	assert.Equal(t, 3, s.TotalGames)
	require.Len(t, s.TimeClasses, 2)
	assert.Equal(t, domain.TimeClass("blitz"), s.TimeClasses[0].TimeClass)
	assert.Equal(t, 1, s.TimeClasses[0].Results[domain.ResultLoss])
	assert.Len(t, s.TimeClasses[0].TopOpenings, 1)
}

func TestSummaryEmptyDataset(t *testing.T) {
	rec := get(t, newDatasetServer(aliceDatasets()), "/players/newbie/summary")

	require.Equal(t, http.StatusOK, rec.Code)
	var s domain.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Zero(t, s.TotalGames)
	assert.Empty(t, s.TimeClasses)
}

func TestSummaryRejectsBadTop(t *testing.T) {
	rec := get(t, newDatasetServer(aliceDatasets()), "/players/alice/summary?top=-2")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
