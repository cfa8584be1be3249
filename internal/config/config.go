// Package config defines the server configuration and how it is loaded.
package config

import (
	"errors"
	"runtime"
	"time"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Development switches to the human-readable zap development logger.
	Development bool `koanf:"development"`

	// RecordsCSV is the match export loaded at startup. Optional.
	RecordsCSV string `koanf:"records_csv"`

	// ChampionsFile restricts the champion registry, one name per line. Optional.
	ChampionsFile string `koanf:"champions_file"`

	// DatabaseURL enables the Postgres record store when set.
	DatabaseURL string `koanf:"database_url"`

	// OracleURL selects the remote classifier; empty uses the statistical oracle.
	OracleURL     string        `koanf:"oracle_url"`
	OracleTimeout time.Duration `koanf:"oracle_timeout"`
	OracleRetries int           `koanf:"oracle_retries"`

	// RankWorkers bounds concurrent oracle calls per ranking.
	RankWorkers int `koanf:"rank_workers"`

	// GeminiAPIKey enables the advisory service when set.
	GeminiAPIKey string `koanf:"gemini_api_key"`
	GeminiModel  string `koanf:"gemini_model"`

	// AdvisoryMaxRows caps the data summary sent with each advisory request.
	AdvisoryMaxRows int `koanf:"advisory_max_rows"`
}

// New returns the defaults.
func New() *Config {
	return &Config{
		Addr:            ":8080",
		LogLevel:        "info",
		OracleTimeout:   2 * time.Second,
		OracleRetries:   2,
		RankWorkers:     runtime.NumCPU() * 4,
		GeminiModel:     "gemini-2.5-flash",
		AdvisoryMaxRows: 1500,
	}
}
