package chesscom

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/chess-data-etl/internal/domain"
	"github.com/couchcryptid/chess-data-etl/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAgent         = "test-agent/1.0"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string) *Client {
	return NewClient(baseURL, testAgent, 5*time.Second,
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_ListArchives_Success(t *testing.T) {
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pub/player/alice/games/archives", r.URL.Path)
		assert.Equal(t, testAgent, r.Header.Get("User-Agent"))

		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(archivesResponse{Archives: []string{
			srvURL + "/pub/player/alice/games/2024/01",
			srvURL + "/pub/player/alice/games/2024/02",
		}}))
	}))
	defer srv.Close()
	srvURL = srv.URL

	c := testClient(srv.URL + "/pub/")
	res := c.ListArchives(context.Background(), "alice")

	require.Equal(t, domain.OutcomeSuccess, res.Outcome)
	require.Len(t, res.Items, 2)
	assert.Equal(t, domain.ArchiveLocator(srv.URL+"/pub/player/alice/games/2024/01"), res.Items[0])
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.APIRequests.WithLabelValues(endpointArchives, "success")), 0)
}

func TestClient_ListArchives_NoArchives(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"archives":[]}`))
	}))
	defer srv.Close()

	res := testClient(srv.URL).ListArchives(context.Background(), "alice")
	assert.Equal(t, domain.OutcomeEmpty, res.Outcome)
	assert.Empty(t, res.Items)
	assert.NoError(t, res.Err)
}

func TestClient_ListArchives_UnknownPlayer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":0,"message":"User \"ghost\" not found."}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	res := c.ListArchives(context.Background(), "ghost")
	assert.Equal(t, domain.OutcomeEmpty, res.Outcome)
	assert.Empty(t, res.Items)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.APIRequests.WithLabelValues(endpointArchives, "empty")), 0)
}

func TestClient_ListArchives_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`slow down`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	res := c.ListArchives(context.Background(), "alice")
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Empty(t, res.Items)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "429")
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.APIRequests.WithLabelValues(endpointArchives, "failed")), 0)
}

func TestClient_ListArchives_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	res := testClient(srv.URL).ListArchives(context.Background(), "alice")
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Error(t, res.Err)
}

func TestClient_FetchMonth_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pub/player/alice/games/2024/03", r.URL.Path)
		assert.Equal(t, testAgent, r.Header.Get("User-Agent"))
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"games":[{"url":"https://www.chess.com/game/live/1","extra":{"kept":true}},{"url":"https://www.chess.com/game/live/2"}]}`))
	}))
	defer srv.Close()

	res := testClient(srv.URL).FetchMonth(context.Background(),
		domain.ArchiveLocator(srv.URL+"/pub/player/alice/games/2024/03"))

	require.Equal(t, domain.OutcomeSuccess, res.Outcome)
	require.Len(t, res.Items, 2)
	assert.JSONEq(t, `{"url":"https://www.chess.com/game/live/1","extra":{"kept":true}}`, string(res.Items[0]))
}

func TestClient_FetchMonth_EmptyMonth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"games":[]}`))
	}))
	defer srv.Close()

	res := testClient(srv.URL).FetchMonth(context.Background(), domain.ArchiveLocator(srv.URL+"/2024/03"))
	assert.Equal(t, domain.OutcomeEmpty, res.Outcome)
}

func TestClient_FetchMonth_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testAgent, 50*time.Millisecond,
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	res := c.FetchMonth(context.Background(), domain.ArchiveLocator(srv.URL+"/2024/03"))
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Error(t, res.Err)
}

func TestClient_FetchMonth_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	res := testClient(addr).FetchMonth(context.Background(), domain.ArchiveLocator(addr+"/2024/03"))
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
}
