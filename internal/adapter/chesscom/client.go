package chesscom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/chess-data-etl/internal/domain"
	"github.com/couchcryptid/chess-data-etl/internal/observability"
)

const (
	endpointArchives = "archives"
	endpointGames    = "games"
)

// errNotFound marks a 404 from the API, which chess.com returns for unknown
// players and months.
var errNotFound = errors.New("not found")

// Client implements the archive lister and the monthly game fetcher against
// the chess.com published-data API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a chess.com API client. Every request carries userAgent.
func NewClient(baseURL, userAgent string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		metrics:   metrics,
		logger:    logger,
	}
}

// ListArchives returns the player's monthly archive locators, oldest first.
// Failures are logged and reported through the result outcome.
func (c *Client) ListArchives(ctx context.Context, player string) domain.FetchResult[domain.ArchiveLocator] {
	u := fmt.Sprintf("%s/player/%s/games/archives", c.baseURL, url.PathEscape(player))

	var body archivesResponse
	if err := c.getJSON(ctx, u, endpointArchives, &body); err != nil {
		return degrade[domain.ArchiveLocator](c, endpointArchives, u, err)
	}

	locators := make([]domain.ArchiveLocator, 0, len(body.Archives))
	for _, a := range body.Archives {
		locators = append(locators, domain.ArchiveLocator(a))
	}
	res := domain.Succeeded(locators)
	c.record(endpointArchives, res.Outcome)
	return res
}

// FetchMonth returns the raw games of one monthly archive, verbatim.
// Failures are logged and reported through the result outcome.
func (c *Client) FetchMonth(ctx context.Context, locator domain.ArchiveLocator) domain.FetchResult[json.RawMessage] {
	u := string(locator)

	var body gamesResponse
	if err := c.getJSON(ctx, u, endpointGames, &body); err != nil {
		return degrade[json.RawMessage](c, endpointGames, u, err)
	}

	res := domain.Succeeded(body.Games)
	c.record(endpointGames, res.Outcome)
	return res
}

// degrade turns a request error into an empty or failed result and logs it.
func degrade[T any](c *Client, endpoint, u string, err error) domain.FetchResult[T] {
	if errors.Is(err, errNotFound) {
		c.logger.Info("chess.com returned no data", "endpoint", endpoint, "url", u)
		c.record(endpoint, domain.OutcomeEmpty)
		return domain.Empty[T](err)
	}
	c.logger.Warn("chess.com request failed", "endpoint", endpoint, "url", u, "error", err)
	c.record(endpoint, domain.OutcomeFailed)
	return domain.Failed[T](err)
}

func (c *Client) record(endpoint string, outcome domain.Outcome) {
	c.metrics.APIRequests.WithLabelValues(endpoint, outcome.String()).Inc()
}

func (c *Client) getJSON(ctx context.Context, fullURL, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.APIDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s: %w", endpoint, errNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("chess.com API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// chess.com API response types.

type archivesResponse struct {
	Archives []string `json:"archives"`
}

type gamesResponse struct {
	Games []json.RawMessage `json:"games"`
}
