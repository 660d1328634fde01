package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/couchcryptid/chess-data-etl/internal/domain"
	"github.com/couchcryptid/chess-data-etl/internal/observability"
	"github.com/jonboulle/clockwork"
)

// ArchiveLister lists the monthly archives of a player.
type ArchiveLister interface {
	ListArchives(ctx context.Context, player string) domain.FetchResult[domain.ArchiveLocator]
}

// MonthFetcher downloads the raw games of one monthly archive.
type MonthFetcher interface {
	FetchMonth(ctx context.Context, locator domain.ArchiveLocator) domain.FetchResult[json.RawMessage]
}

// RawSink persists raw monthly batches.
type RawSink interface {
	Persist(player string, year, month int, games []json.RawMessage) error
	Exists(player string, year, month int) bool
	RemoveIfEmpty(player string) (bool, error)
}

// ExtractReport summarizes one extraction run.
type ExtractReport struct {
	Player string
	// Outcome is the archive listing outcome. OutcomeEmpty and OutcomeFailed
	// both mean nothing was fetched.
	Outcome domain.Outcome
	Listed  int
	Fetched int
	Skipped int
	Empty   int
	Failed  int
	Games   int
}

// Extractor downloads every monthly archive of a player into the raw store,
// one request at a time with a fixed delay between fetches.
type Extractor struct {
	lister   ArchiveLister
	fetcher  MonthFetcher
	sink     RawSink
	clock    clockwork.Clock
	delay    time.Duration
	progress func(done, total int)
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithClock replaces the real clock used for the inter-request delay.
func WithClock(c clockwork.Clock) ExtractorOption {
	return func(e *Extractor) { e.clock = c }
}

// WithProgress registers fn to be called after each archive is handled.
func WithProgress(fn func(done, total int)) ExtractorOption {
	return func(e *Extractor) { e.progress = fn }
}

// NewExtractor creates an Extractor. delay is waited between successive
// monthly fetches.
func NewExtractor(l ArchiveLister, f MonthFetcher, s RawSink, delay time.Duration, logger *slog.Logger, metrics *observability.Metrics, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		lister:  l,
		fetcher: f,
		sink:    s,
		clock:   clockwork.NewRealClock(),
		delay:   delay,
		logger:  logger,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run extracts all archives of player. Months already in the raw store are
// skipped, except the newest archive, which may still be growing. Per-month
// failures are logged and counted; only an invalid player or a cancelled
// context return an error.
func (e *Extractor) Run(ctx context.Context, player string) (ExtractReport, error) {
	key, err := domain.PlayerKey(player)
	if err != nil {
		return ExtractReport{Player: player}, err
	}
	report := ExtractReport{Player: key}
	logger := e.logger.With("player", key)
	logger.Info("extraction started")

	archives := e.lister.ListArchives(ctx, key)
	report.Outcome = archives.Outcome
	if archives.Outcome != domain.OutcomeSuccess {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		logger.Info("no archives for player", "outcome", archives.Outcome.String())
		if removed, err := e.sink.RemoveIfEmpty(key); err != nil {
			logger.Warn("cleanup of empty player directory failed", "error", err)
		} else if removed {
			logger.Info("removed empty player directory")
		}
		return report, nil
	}

	report.Listed = len(archives.Items)
	e.metrics.ArchivesListed.Add(float64(report.Listed))

	fetched := false
	for i, locator := range archives.Items {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		e.handleArchive(ctx, logger, locator, i == len(archives.Items)-1, &fetched, &report)
		if e.progress != nil {
			e.progress(i+1, report.Listed)
		}
	}

	logger.Info("extraction done",
		"listed", report.Listed,
		"fetched", report.Fetched,
		"skipped", report.Skipped,
		"empty", report.Empty,
		"failed", report.Failed,
		"games", report.Games,
	)
	return report, ctx.Err()
}

// handleArchive fetches and persists one archive, updating the report.
func (e *Extractor) handleArchive(ctx context.Context, logger *slog.Logger, locator domain.ArchiveLocator, newest bool, fetched *bool, report *ExtractReport) {
	year, month, err := locator.YearMonth()
	if err != nil {
		logger.Warn("skipping malformed archive locator", "archive", locator, "error", err)
		report.Failed++
		return
	}
	logger = logger.With("year", year, "month", month)

	if !newest && e.sink.Exists(report.Player, year, month) {
		logger.Debug("archive already stored")
		e.metrics.ArchivesSkip.Inc()
		report.Skipped++
		return
	}

	if *fetched && !e.wait(ctx) {
		return
	}
	*fetched = true

	res := e.fetcher.FetchMonth(ctx, locator)
	switch res.Outcome {
	case domain.OutcomeFailed:
		report.Failed++
		return
	case domain.OutcomeEmpty:
		logger.Debug("archive has no games")
		report.Empty++
		return
	}

	if err := e.sink.Persist(report.Player, year, month, res.Items); err != nil {
		logger.Warn("persist raw batch failed", "error", err)
		e.metrics.RawWriteErrors.Inc()
		report.Failed++
		return
	}
	e.metrics.RawBatchesWritten.Inc()
	e.metrics.GamesDownloaded.Add(float64(len(res.Items)))
	report.Fetched++
	report.Games += len(res.Items)
	logger.Info("raw batch stored", "games", len(res.Items))
}

// wait blocks for the inter-request delay. It returns false if ctx ends first.
func (e *Extractor) wait(ctx context.Context) bool {
	if e.delay <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-e.clock.After(e.delay):
		return true
	}
}
