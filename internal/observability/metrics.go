package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the chess ETL.
type Metrics struct {
	PipelineRunning prometheus.Gauge

	// chess.com API metrics.
	APIRequests    *prometheus.CounterVec   // labels: endpoint={archives,games}, outcome={success,empty,failed}
	APIDuration    *prometheus.HistogramVec // labels: endpoint={archives,games}
	ArchivesListed prometheus.Counter
	ArchivesSkip   prometheus.Counter

	// Raw store metrics.
	RawBatchesWritten prometheus.Counter
	RawWriteErrors    prometheus.Counter
	GamesDownloaded   prometheus.Counter

	// Transform metrics.
	BatchParseErrors prometheus.Counter
	GamesNormalized  prometheus.Counter
	GamesSkipped     *prometheus.CounterVec // labels: reason={not_applicable,invalid}
	BuildDuration    prometheus.Histogram
	DatasetRows      prometheus.Histogram
	DatasetWriteErrs prometheus.Counter
	PublishErrors    prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PipelineRunning,
		m.APIRequests,
		m.APIDuration,
		m.ArchivesListed,
		m.ArchivesSkip,
		m.RawBatchesWritten,
		m.RawWriteErrors,
		m.GamesDownloaded,
		m.BatchParseErrors,
		m.GamesNormalized,
		m.GamesSkipped,
		m.BuildDuration,
		m.DatasetRows,
		m.DatasetWriteErrs,
		m.PublishErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chess_etl",
			Name:      "pipeline_running",
			Help:      "1 while an extract or transform run is in progress.",
		}),
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chess_etl",
			Name:      "api_requests_total",
			Help:      "chess.com API lookups by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		APIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chess_etl",
			Name:      "api_request_duration_seconds",
			Help:      "chess.com API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),
		ArchivesListed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chess_etl",
			Name:      "archives_listed_total",
			Help:      "Monthly archive locators returned by the archive lister.",
		}),
		ArchivesSkip: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chess_etl",
			Name:      "archives_skipped_total",
			Help:      "Archives not fetched because their raw batch already exists.",
		}),
		RawBatchesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chess_etl",
			Name:      "raw_batches_written_total",
			Help:      "Monthly raw batches persisted to the raw store.",
		}),
		RawWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chess_etl",
			Name:      "raw_write_errors_total",
			Help:      "Monthly raw batches that could not be persisted.",
		}),
		GamesDownloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chess_etl",
			Name:      "games_downloaded_total",
			Help:      "Raw games downloaded and persisted.",
		}),
		BatchParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chess_etl",
			Name:      "batch_parse_errors_total",
			Help:      "Raw batches skipped during transform because they could not be read.",
		}),
		GamesNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chess_etl",
			Name:      "games_normalized_total",
			Help:      "Games normalized into dataset rows.",
		}),
		GamesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chess_etl",
			Name:      "games_skipped_total",
			Help:      "Raw games dropped during transform by reason.",
		}, []string{"reason"}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chess_etl",
			Name:      "build_duration_seconds",
			Help:      "Duration of a complete dataset build.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		DatasetRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chess_etl",
			Name:      "dataset_rows",
			Help:      "Rows per built dataset.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}),
		DatasetWriteErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chess_etl",
			Name:      "dataset_write_errors_total",
			Help:      "Datasets that could not be persisted.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chess_etl",
			Name:      "publish_errors_total",
			Help:      "Datasets that could not be published to Kafka.",
		}),
	}
}
