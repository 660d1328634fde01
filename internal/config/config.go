package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"gopkg.in/yaml.v3"
)

// DefaultUserAgent identifies this application to chess.com.
const DefaultUserAgent = "Mozilla/5.0 (compatible; Chess_Analyse/1.0; +https://chess.com)"

// Config holds all pipeline settings, populated from environment variables
// on top of an optional YAML file named by CONFIG_FILE.
type Config struct {
	RawDir         string
	TransformedDir string

	// chess.com client configuration.
	APIBaseURL   string
	UserAgent    string
	RequestDelay time.Duration
	HTTPTimeout  time.Duration

	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration
	DatasetCacheSize int

	// Optional Kafka publishing of normalized games.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool
}

// fileConfig mirrors Config for the YAML file. Durations are strings so the
// same "1s" syntax works in both the file and the environment.
type fileConfig struct {
	RawDir           string   `yaml:"raw_dir"`
	TransformedDir   string   `yaml:"transformed_dir"`
	APIBaseURL       string   `yaml:"api_base_url"`
	UserAgent        string   `yaml:"user_agent"`
	RequestDelay     string   `yaml:"request_delay"`
	HTTPTimeout      string   `yaml:"http_timeout"`
	HTTPAddr         string   `yaml:"http_addr"`
	LogLevel         string   `yaml:"log_level"`
	LogFormat        string   `yaml:"log_format"`
	DatasetCacheSize int      `yaml:"dataset_cache_size"`
	KafkaBrokers     []string `yaml:"kafka_brokers"`
	KafkaTopic       string   `yaml:"kafka_topic"`
}

// Load reads configuration from environment variables, applying file values
// and then defaults where unset.
func Load() (*Config, error) {
	fc, err := readFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	requestDelay, err := parseDuration("REQUEST_DELAY", or(fc.RequestDelay, "1s"), true)
	if err != nil {
		return nil, err
	}

	httpTimeout, err := parseDuration("HTTP_TIMEOUT", or(fc.HTTPTimeout, "30s"), false)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseCacheSize(fc.DatasetCacheSize)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if s := sharedcfg.EnvOrDefault("KAFKA_BROKERS", ""); s != "" {
		brokers = sharedcfg.ParseBrokers(s)
	} else {
		brokers = fc.KafkaBrokers
	}
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		RawDir:           sharedcfg.EnvOrDefault("RAW_DATA_DIR", or(fc.RawDir, "data/json")),
		TransformedDir:   sharedcfg.EnvOrDefault("TRANSFORMED_DATA_DIR", or(fc.TransformedDir, "data/transformed")),
		APIBaseURL:       sharedcfg.EnvOrDefault("CHESSCOM_BASE_URL", or(fc.APIBaseURL, "https://api.chess.com/pub")),
		UserAgent:        sharedcfg.EnvOrDefault("USER_AGENT", or(fc.UserAgent, DefaultUserAgent)),
		RequestDelay:     requestDelay,
		HTTPTimeout:      httpTimeout,
		HTTPAddr:         sharedcfg.EnvOrDefault("HTTP_ADDR", or(fc.HTTPAddr, ":8080")),
		LogLevel:         sharedcfg.EnvOrDefault("LOG_LEVEL", or(fc.LogLevel, "info")),
		LogFormat:        sharedcfg.EnvOrDefault("LOG_FORMAT", or(fc.LogFormat, "json")),
		ShutdownTimeout:  shutdownTimeout,
		DatasetCacheSize: cacheSize,
		KafkaBrokers:     brokers,
		KafkaTopic:       sharedcfg.EnvOrDefault("KAFKA_TOPIC", or(fc.KafkaTopic, "normalized-chess-games")),
		KafkaEnabled:     kafkaEnabled,
	}

	if cfg.RawDir == "" {
		return nil, errors.New("RAW_DATA_DIR is required")
	}
	if cfg.TransformedDir == "" {
		return nil, errors.New("TRANSFORMED_DATA_DIR is required")
	}
	if cfg.UserAgent == "" {
		return nil, errors.New("USER_AGENT is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func readFile(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read CONFIG_FILE: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse CONFIG_FILE %s: %w", path, err)
	}
	return fc, nil
}

// parseDuration reads a duration variable. Zero is only accepted when
// allowZero is set; negative values are always rejected.
func parseDuration(key, def string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseCacheSize(fileValue int) (int, error) {
	s := os.Getenv("DATASET_CACHE_SIZE")
	if s == "" {
		if fileValue > 0 {
			return fileValue, nil
		}
		return 32, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid DATASET_CACHE_SIZE")
	}
	return n, nil
}

func or(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
