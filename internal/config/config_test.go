package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Research.MaxRounds != 4 {
		t.Errorf("default max rounds = %d", cfg.Research.MaxRounds)
	}
	if cfg.Retrieval.CrawlMaxPages != 20 {
		t.Errorf("default crawl page limit = %d", cfg.Retrieval.CrawlMaxPages)
	}
	if cfg.AdIntel.APIVersion != "v18.0" || len(cfg.AdIntel.Countries) != 1 {
		t.Errorf("default adintel config = %+v", cfg.AdIntel)
	}
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[research]
max_rounds = 2
enable_ad_enrichment = false

[retrieval]
requests_per_second = 0.5

[storage]
driver = "json"
dsn = "runs.ndjson"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Research.MaxRounds != 2 || cfg.Research.EnableAdIntel {
		t.Errorf("research overrides not applied: %+v", cfg.Research)
	}
	if cfg.Retrieval.RequestsPerSecond != 0.5 {
		t.Errorf("retrieval override not applied: %+v", cfg.Retrieval)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("retry defaults lost: %+v", cfg.Retry)
	}
	if cfg.Storage.Driver != "json" || cfg.Storage.DSN != "runs.ndjson" {
		t.Errorf("storage overrides not applied: %+v", cfg.Storage)
	}
}

func TestLoadCredentialsFromEnv(t *testing.T) {
	t.Setenv("META_ACCESS_TOKEN", "meta-tok")
	t.Setenv("GEMINI_API_KEY", "gem-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AdIntel.AccessToken != "meta-tok" {
		t.Errorf("meta token not read from env")
	}
	if cfg.Extract.APIKey != "gem-key" {
		t.Errorf("gemini key not read from env")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("missing config file should error")
	}
}
