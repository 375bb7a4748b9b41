// Package config loads the TOML run configuration. Credentials are never
// part of the file: they come from the environment at load time and are
// never written back.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Research tunes the orchestrator loop.
type Research struct {
	MaxRounds          int   `toml:"max_rounds"`
	MaxQueriesPerRound int   `toml:"max_queries_per_round"`
	EnableAdIntel      bool  `toml:"enable_ad_enrichment"`
	StateTimeoutSec    int64 `toml:"state_timeout_seconds"`
}

// Retrieval tunes search fan-out and the seed-round site crawl.
type Retrieval struct {
	ResultsPerQuery   int     `toml:"results_per_query"`
	Concurrency       int     `toml:"concurrency"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Jitter            float64 `toml:"jitter"`
	CrawlMaxPages     int     `toml:"crawl_max_pages"`
	CrawlMaxDepth     int     `toml:"crawl_max_depth"`
	RespectRobots     bool    `toml:"respect_robots"`
	UserAgent         string  `toml:"user_agent"`
}

// Retry tunes the shared backoff policy for external sources.
type Retry struct {
	MaxAttempts int     `toml:"max_attempts"`
	BaseDelayMS int64   `toml:"base_delay_ms"`
	MaxDelayMS  int64   `toml:"max_delay_ms"`
	Jitter      float64 `toml:"jitter"`
	MaxInFlight int64   `toml:"max_in_flight"`
}

// AdIntel tunes the Meta Ad Library client. The access token is read from
// META_ACCESS_TOKEN, never from the file.
type AdIntel struct {
	APIVersion  string   `toml:"api_version"`
	Countries   []string `toml:"countries"`
	MaxAds      int      `toml:"max_ads"`
	AccessToken string   `toml:"-"`
}

// Extract tunes the model-backed extraction capability. The API key is read
// from GEMINI_API_KEY, never from the file.
type Extract struct {
	Model           string `toml:"model"`
	MaxContentChars int    `toml:"max_content_chars"`
	APIKey          string `toml:"-"`
}

// Storage selects the run record backend.
type Storage struct {
	Driver string `toml:"driver"` // sqlite, postgres, json
	DSN    string `toml:"dsn"`
}

// Config is the full run configuration.
type Config struct {
	Research  Research  `toml:"research"`
	Retrieval Retrieval `toml:"retrieval"`
	Retry     Retry     `toml:"retry"`
	AdIntel   AdIntel   `toml:"adintel"`
	Extract   Extract   `toml:"extract"`
	Storage   Storage   `toml:"storage"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Research: Research{
			MaxRounds:          4,
			MaxQueriesPerRound: 6,
			EnableAdIntel:      true,
			StateTimeoutSec:    120,
		},
		Retrieval: Retrieval{
			ResultsPerQuery:   3,
			Concurrency:       3,
			RequestsPerSecond: 1,
			Jitter:            0.3,
			CrawlMaxPages:     20,
			CrawlMaxDepth:     2,
			RespectRobots:     true,
		},
		Retry: Retry{
			MaxAttempts: 3,
			BaseDelayMS: 500,
			MaxDelayMS:  8000,
			Jitter:      0.2,
			MaxInFlight: 4,
		},
		AdIntel: AdIntel{
			APIVersion: "v18.0",
			Countries:  []string{"US"},
			MaxAds:     250,
		},
		Extract: Extract{
			Model:           "gemini-2.0-flash",
			MaxContentChars: 60000,
		},
		Storage: Storage{
			Driver: "sqlite",
			DSN:    "dossier.db",
		},
	}
}

// Load reads the TOML file at path on top of the defaults, then applies
// environment credentials. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.AdIntel.AccessToken = os.Getenv("META_ACCESS_TOKEN")
	cfg.Extract.APIKey = os.Getenv("GEMINI_API_KEY")

	return cfg, nil
}

// StateTimeout converts the configured seconds into a duration.
func (r Research) StateTimeout() time.Duration {
	return time.Duration(r.StateTimeoutSec) * time.Second
}

// BaseDelay converts the configured backoff floor into a duration.
func (r Retry) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMS) * time.Millisecond
}

// MaxDelay converts the configured backoff cap into a duration.
func (r Retry) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelayMS) * time.Millisecond
}
