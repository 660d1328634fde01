package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/chess-data-etl/internal/domain"
	"github.com/couchcryptid/chess-data-etl/internal/observability"
)

// RawSource enumerates and reads stored raw batches.
type RawSource interface {
	ListBatches(player string) ([]domain.BatchRef, error)
	ReadBatch(ref domain.BatchRef) ([]json.RawMessage, error)
}

// DatasetWriter persists a built dataset, replacing any previous version.
type DatasetWriter interface {
	Write(d domain.Dataset) error
}

// Publisher forwards a built dataset downstream.
type Publisher interface {
	Publish(ctx context.Context, d domain.Dataset) error
}

// Builder turns the raw batches of a player into a dataset.
type Builder struct {
	source    RawSource
	writer    DatasetWriter
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewBuilder creates a Builder. Pass a nil publisher to skip publishing.
func NewBuilder(source RawSource, writer DatasetWriter, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Builder {
	return &Builder{
		source:    source,
		writer:    writer,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Build rebuilds the player's dataset from every stored batch, in
// chronological batch order. Unreadable batches and invalid games are logged
// and skipped. A player with no batches or no applicable games gets an
// empty dataset and nothing is written.
//
// The returned dataset is valid even when err is non-nil: err only reports
// that persisting or publishing it failed.
func (b *Builder) Build(ctx context.Context, player string) (domain.Dataset, error) {
	key, err := domain.PlayerKey(player)
	if err != nil {
		return domain.Dataset{}, err
	}
	logger := b.logger.With("player", key)
	start := time.Now()

	refs, err := b.source.ListBatches(key)
	if err != nil {
		logger.Warn("list raw batches failed", "error", err)
		return domain.EmptyDataset(key), nil
	}
	if len(refs) == 0 {
		logger.Info("no raw batches, dataset is empty")
		return domain.EmptyDataset(key), nil
	}

	d := domain.EmptyDataset(key)
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return domain.EmptyDataset(key), err
		}
		games, err := b.source.ReadBatch(ref)
		if err != nil {
			logger.Warn("skipping unreadable batch", "batch", ref.String(), "error", err)
			b.metrics.BatchParseErrors.Inc()
			continue
		}
		d.Games = append(d.Games, b.normalizeBatch(logger, ref, games)...)
	}

	b.metrics.BuildDuration.Observe(time.Since(start).Seconds())
	b.metrics.DatasetRows.Observe(float64(d.Len()))

	if d.IsEmpty() {
		logger.Info("no applicable games, dataset is empty", "batches", len(refs))
		return d, nil
	}

	var errs []error
	if err := b.writer.Write(d); err != nil {
		logger.Error("persist dataset failed", "error", err)
		b.metrics.DatasetWriteErrs.Inc()
		errs = append(errs, fmt.Errorf("persist dataset: %w", err))
	}
	if b.publisher != nil {
		if err := b.publisher.Publish(ctx, d); err != nil {
			logger.Error("publish dataset failed", "error", err)
			b.metrics.PublishErrors.Inc()
			errs = append(errs, fmt.Errorf("publish dataset: %w", err))
		}
	}

	logger.Info("dataset built", "batches", len(refs), "games", d.Len())
	return d, errors.Join(errs...)
}

func (b *Builder) normalizeBatch(logger *slog.Logger, ref domain.BatchRef, games []json.RawMessage) []domain.NormalizedGame {
	out := make([]domain.NormalizedGame, 0, len(games))
	for i, data := range games {
		raw, err := domain.ParseRawGame(data)
		if err != nil {
			logger.Warn("skipping invalid game", "batch", ref.String(), "index", i, "error", err)
			b.metrics.GamesSkipped.WithLabelValues("invalid").Inc()
			continue
		}
		g, err := domain.Normalize(raw, ref.Player)
		if errors.Is(err, domain.ErrPlayerNotInGame) {
			logger.Debug("game does not involve player", "batch", ref.String(), "game", raw.URL)
			b.metrics.GamesSkipped.WithLabelValues("not_applicable").Inc()
			continue
		}
		if err != nil {
			logger.Warn("skipping invalid game", "batch", ref.String(), "game", raw.URL, "error", err)
			b.metrics.GamesSkipped.WithLabelValues("invalid").Inc()
			continue
		}
		b.metrics.GamesNormalized.Inc()
		out = append(out, g)
	}
	return out
}
