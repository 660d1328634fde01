package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/chess-data-etl/internal/adapter/filestore"
	"github.com/couchcryptid/chess-data-etl/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const dateLayout = "2006-01-02"

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker = sharedobs.ReadinessChecker

// DatasetReader loads the persisted dataset of a player.
type DatasetReader interface {
	Read(player string) (domain.Dataset, error)
}

// Server exposes health, readiness, metrics and dataset HTTP endpoints.
type Server struct {
	httpServer *http.Server
	datasets   DatasetReader
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz and /metrics
// routes. When datasets is non-nil the player dataset routes are added too.
func NewServer(addr string, ready ReadinessChecker, datasets DatasetReader, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		datasets: datasets,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	if datasets != nil {
		mux.HandleFunc("GET /players/{player}/games", s.handleGames)
		mux.HandleFunc("GET /players/{player}/summary", s.handleSummary)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleGames returns the player's games as a JSON array, optionally
// limited to ?from=YYYY-MM-DD and ?to=YYYY-MM-DD (inclusive).
func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	d, ok := s.loadDataset(w, r)
	if !ok {
		return
	}
	from, err := parseDateParam(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		writeError(w, http.StatusBadRequest, "to is before from")
		return
	}
	writeJSON(w, http.StatusOK, d.Between(from, to).Games)
}

// handleSummary returns the per-time-class aggregates of the player's games.
// ?top=N limits the opening ranking.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	d, ok := s.loadDataset(w, r)
	if !ok {
		return
	}
	top := domain.MaxTopOpenings
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid top")
			return
		}
		top = n
	}
	writeJSON(w, http.StatusOK, domain.Summarize(d, top))
}

// loadDataset resolves the {player} path value and reads its dataset,
// writing the error response itself when it returns false.
func (s *Server) loadDataset(w http.ResponseWriter, r *http.Request) (domain.Dataset, bool) {
	player, err := domain.PlayerKey(r.PathValue("player"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return domain.Dataset{}, false
	}
	d, err := s.datasets.Read(player)
	switch {
	case errors.Is(err, filestore.ErrDatasetNotFound):
		writeError(w, http.StatusNotFound, "no dataset for player "+player)
		return domain.Dataset{}, false
	case err != nil:
		s.logger.Error("read dataset failed", "player", player, "error", err)
		writeError(w, http.StatusInternalServerError, "dataset unavailable")
		return domain.Dataset{}, false
	}
	return d, true
}

func parseDateParam(r *http.Request, name string) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, errors.New("invalid " + name + ", want YYYY-MM-DD")
	}
	return t, nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	sharedobs.WriteJSON(w, status, v)
}
