package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, k := range []string{"SEARCH_URLS", "SNAPSHOT_BACKEND", "SNAPSHOT_PATH", "FETCH_MODE", "PRICE_SOURCE", "TIMESTAMPS", "MIN_PRICE", "MAX_PRICE"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SnapshotBackend != BackendFile || cfg.SnapshotPath != "annonces_seloger.json" {
		t.Errorf("snapshot defaults: %q %q", cfg.SnapshotBackend, cfg.SnapshotPath)
	}
	if cfg.FetchMode != FetchChrome {
		t.Errorf("FetchMode = %q", cfg.FetchMode)
	}
	if cfg.FetchTimeout != 90*time.Second {
		t.Errorf("FetchTimeout = %v", cfg.FetchTimeout)
	}
	if !cfg.Timestamps || cfg.PriceSource != "field" {
		t.Errorf("Timestamps=%v PriceSource=%q", cfg.Timestamps, cfg.PriceSource)
	}
	if len(cfg.SearchURLs) != 0 {
		t.Errorf("SearchURLs = %v; want none", cfg.SearchURLs)
	}
}

func TestLoadFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SEARCH_URLS", "https://a.test/1,https://a.test/2")
	t.Setenv("SNAPSHOT_BACKEND", "pgx")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/db")
	t.Setenv("FETCH_MODE", "http")
	t.Setenv("MIN_PRICE", "150000")
	t.Setenv("TIMESTAMPS", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.SearchURLs) != 2 || cfg.SearchURLs[1] != "https://a.test/2" {
		t.Errorf("SearchURLs = %v", cfg.SearchURLs)
	}
	if cfg.SnapshotBackend != BackendPgx || cfg.FetchMode != FetchHTTP {
		t.Errorf("backend=%q mode=%q", cfg.SnapshotBackend, cfg.FetchMode)
	}
	if cfg.MinPrice != 150000 || cfg.Timestamps {
		t.Errorf("MinPrice=%v Timestamps=%v", cfg.MinPrice, cfg.Timestamps)
	}
}

func TestValidate(t *testing.T) {
	base := Config{SnapshotBackend: BackendFile, FetchMode: FetchHTTP, PriceSource: "title"}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"ok", func(*Config) {}, ""},
		{"db without url", func(c *Config) { c.SnapshotBackend = BackendPostgres }, "DATABASE_URL"},
		{"unknown backend", func(c *Config) { c.SnapshotBackend = "redis" }, "SNAPSHOT_BACKEND"},
		{"unknown fetch mode", func(c *Config) { c.FetchMode = "curl" }, "FETCH_MODE"},
		{"unknown price source", func(c *Config) { c.PriceSource = "both" }, "PRICE_SOURCE"},
		{"inverted bounds", func(c *Config) { c.MinPrice, c.MaxPrice = 300, 200 }, "exceeds"},
		{"zero bound is unset", func(c *Config) { c.MinPrice = 300 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.Validate()
			switch {
			case tt.want == "" && err != nil:
				t.Errorf("unexpected error: %v", err)
			case tt.want != "" && (err == nil || !strings.Contains(err.Error(), tt.want)):
				t.Errorf("err = %v; want mention of %q", err, tt.want)
			}
		})
	}
}

// chdir changes the working directory for the duration of the test,
// equivalent to testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
