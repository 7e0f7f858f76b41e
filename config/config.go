package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Snapshot backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendPgx      = "pgx"
)

// Fetch modes.
const (
	FetchChrome = "chrome"
	FetchHTTP   = "http"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	SearchURLs []string `envconfig:"SEARCH_URLS"`

	SnapshotBackend string `envconfig:"SNAPSHOT_BACKEND" default:"file"`
	SnapshotPath    string `envconfig:"SNAPSHOT_PATH" default:"annonces_seloger.json"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	MaxDBConns      int    `envconfig:"MAX_DB_CONNS" default:"2"`

	FetchMode     string        `envconfig:"FETCH_MODE" default:"chrome"`
	ChromeBin     string        `envconfig:"CHROME_BIN"`
	UserAgent     string        `envconfig:"USER_AGENT"`
	FetchTimeout  time.Duration `envconfig:"FETCH_TIMEOUT" default:"90s"`
	MaxRetries    int           `envconfig:"MAX_RETRIES" default:"3"`
	RespectRobots bool          `envconfig:"RESPECT_ROBOTS" default:"true"`

	MaxConcurrency int `envconfig:"MAX_CONCURRENCY" default:"3"`

	CSVOutputPath string `envconfig:"CSV_OUTPUT_PATH"`
	SelectorsFile string `envconfig:"SELECTORS_FILE"`
	PriceSource   string `envconfig:"PRICE_SOURCE" default:"field"`
	Timestamps    bool   `envconfig:"TIMESTAMPS" default:"true"`

	Keyword  string  `envconfig:"KEYWORD"`
	MinPrice float64 `envconfig:"MIN_PRICE"`
	MaxPrice float64 `envconfig:"MAX_PRICE"`

	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`
	LogDebug   bool   `envconfig:"LOG_DEBUG"`
}

// Load reads the .env file, if any, and returns a populated, validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if _, statErr := os.Stat(".env"); statErr == nil {
			log.Printf("[config] .env file found but could not be loaded: %v", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated settings and cross-field requirements.
func (c *Config) Validate() error {
	switch c.SnapshotBackend {
	case BackendFile:
	case BackendPostgres, BackendPgx:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: SNAPSHOT_BACKEND=%s requires DATABASE_URL", c.SnapshotBackend)
		}
	default:
		return fmt.Errorf("config: unknown SNAPSHOT_BACKEND %q", c.SnapshotBackend)
	}

	switch c.FetchMode {
	case FetchChrome, FetchHTTP:
	default:
		return fmt.Errorf("config: unknown FETCH_MODE %q", c.FetchMode)
	}

	switch c.PriceSource {
	case "field", "title":
	default:
		return fmt.Errorf("config: unknown PRICE_SOURCE %q", c.PriceSource)
	}

	if c.MinPrice > 0 && c.MaxPrice > 0 && c.MinPrice > c.MaxPrice {
		return fmt.Errorf("config: MIN_PRICE %.0f exceeds MAX_PRICE %.0f", c.MinPrice, c.MaxPrice)
	}
	return nil
}
