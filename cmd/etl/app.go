package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/chess-data-etl/internal/adapter/chesscom"
	"github.com/couchcryptid/chess-data-etl/internal/adapter/filestore"
	kafkaadapter "github.com/couchcryptid/chess-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/chess-data-etl/internal/config"
	"github.com/couchcryptid/chess-data-etl/internal/observability"
	"github.com/couchcryptid/chess-data-etl/internal/pipeline"
	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// app holds the wired components shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *observability.Metrics
	raw      *filestore.RawStore
	datasets *filestore.DatasetStore
	writer   *kafkaadapter.Writer
	pipeline *pipeline.Pipeline
}

func newApp(progress bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	a := &app{
		cfg:      cfg,
		logger:   observability.NewLogger(cfg),
		metrics:  observability.NewMetrics(),
		raw:      filestore.NewRawStore(cfg.RawDir),
		datasets: filestore.NewDatasetStore(cfg.TransformedDir),
	}

	// An untyped nil keeps the builder from calling a nil *Writer.
	var publisher pipeline.Publisher
	if cfg.KafkaEnabled {
		a.writer = kafkaadapter.NewWriter(cfg, a.logger)
		publisher = a.writer
		a.logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	client := chesscom.NewClient(cfg.APIBaseURL, cfg.UserAgent, cfg.HTTPTimeout, a.metrics, a.logger)

	var opts []pipeline.ExtractorOption
	if progress && term.IsTerminal(int(os.Stderr.Fd())) {
		opts = append(opts, pipeline.WithProgress(newProgress(os.Stderr)))
	}

	extractor := pipeline.NewExtractor(client, client, a.raw, cfg.RequestDelay, a.logger, a.metrics, opts...)
	builder := pipeline.NewBuilder(a.raw, a.datasets, publisher, a.logger, a.metrics)
	a.pipeline = pipeline.New(extractor, builder, a.logger, a.metrics)
	return a, nil
}

func (a *app) close() {
	if a.writer == nil {
		return
	}
	if err := a.writer.Close(); err != nil {
		a.logger.Error("kafka writer close error", "error", err)
	}
}

// newProgress returns a progress callback that lazily creates a bar once the
// archive count is known.
func newProgress(w io.Writer) func(done, total int) {
	var bar *progressbar.ProgressBar
	return func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription("Downloading"),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetItsString("months"),
				progressbar.OptionThrottle(100*time.Millisecond),
				progressbar.OptionClearOnFinish(),
				progressbar.OptionSetRenderBlankState(true),
			)
		}
		_ = bar.Set(done)
		if done == total {
			_ = bar.Finish()
		}
	}
}

// printExtractReport and printDataset write to stderr; stdout carries the log
// stream.
func printExtractReport(w io.Writer, r pipeline.ExtractReport) {
	fmt.Fprintf(w, "player %s: archives %s (%s)\n", r.Player, humanize.Comma(int64(r.Listed)), r.Outcome)
	fmt.Fprintf(w, "  fetched %s, skipped %s, empty %s, failed %s\n",
		humanize.Comma(int64(r.Fetched)),
		humanize.Comma(int64(r.Skipped)),
		humanize.Comma(int64(r.Empty)),
		humanize.Comma(int64(r.Failed)),
	)
	fmt.Fprintf(w, "  %s games downloaded\n", humanize.Comma(int64(r.Games)))
}

func (a *app) printDataset(w io.Writer, player string, games int) {
	if games == 0 {
		fmt.Fprintf(w, "player %s: no games to show\n", player)
		return
	}
	fmt.Fprintf(w, "player %s: %s games written to %s", player, humanize.Comma(int64(games)), a.datasets.Path(player))
	if info, err := os.Stat(a.datasets.Path(player)); err == nil {
		fmt.Fprintf(w, " (%s)", humanize.Bytes(uint64(info.Size())))
	}
	fmt.Fprintln(w)
}
