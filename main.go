package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"listing-delta/api"
	"listing-delta/config"
	"listing-delta/models"
	"listing-delta/scraper/seloger"
	"listing-delta/services"
	"listing-delta/storage"
	"listing-delta/utils"
)

// urlList collects -url flags; each value may itself be a comma list.
type urlList []string

func (u *urlList) String() string { return strings.Join(*u, ",") }

func (u *urlList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*u = append(*u, part)
		}
	}
	return nil
}

func main() {
	logger := utils.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration: %v", err)
		os.Exit(2)
	}

	var urls urlList
	flag.Var(&urls, "url", "search results URL (repeatable, or comma separated); overrides SEARCH_URLS")
	keyword := flag.String("keyword", cfg.Keyword, "only report listings whose title contains this text")
	minPrice := flag.Float64("min-price", cfg.MinPrice, "minimum price in euros (0 = no minimum)")
	maxPrice := flag.Float64("max-price", cfg.MaxPrice, "maximum price in euros (0 = no maximum)")
	htmlFile := flag.String("html", "", "parse a saved results page instead of fetching")
	csvPath := flag.String("csv", cfg.CSVOutputPath, "export new matching listings to this CSV file")
	serve := flag.Bool("serve", false, "serve the HTTP API instead of running once")
	debug := flag.Bool("debug", cfg.LogDebug, "enable debug logging")
	flag.Parse()

	logger.SetDebug(*debug)
	if len(urls) == 0 {
		urls = cfg.SearchURLs
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("=== SeLoger listing monitor starting ===")
	logger.Info("Config: backend %s | fetch %s | concurrency %d | price source %s",
		cfg.SnapshotBackend, cfg.FetchMode, cfg.MaxConcurrency, cfg.PriceSource)

	schema := seloger.DefaultSchema()
	if cfg.SelectorsFile != "" {
		schema, err = seloger.LoadSchema(cfg.SelectorsFile)
		if err != nil {
			logger.Error("Failed to load selectors: %v", err)
			os.Exit(1)
		}
		logger.Info("Using selector schema %q from %s", schema.Version, cfg.SelectorsFile)
	}
	parser := seloger.NewParser(schema, seloger.ParserConfig{
		PriceSource: seloger.PriceSource(cfg.PriceSource),
		Timestamps:  cfg.Timestamps,
	}, logger)

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open snapshot store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	monitor := services.NewMonitor(newFetcher(cfg, logger), parser, store, logger, cfg.MaxConcurrency)

	if *serve {
		if err := serveAPI(ctx, cfg.ListenAddr, api.NewRunHandler(monitor, urls, logger), logger); err != nil {
			logger.Error("API server failed: %v", err)
			os.Exit(1)
		}
		return
	}

	criteria := models.Criteria{
		Keyword:  *keyword,
		MinPrice: services.Bound(*minPrice),
		MaxPrice: services.Bound(*maxPrice),
	}

	var res *models.RunResult
	if *htmlFile != "" {
		res, err = runFile(ctx, monitor, *htmlFile, criteria, logger)
	} else {
		res, err = monitor.Run(ctx, urls, criteria)
	}
	if err != nil {
		logger.Error("Run failed: %v", err)
		os.Exit(1)
	}

	baseURL := ""
	if len(urls) > 0 {
		baseURL = urls[0]
	}

	insightSvc := services.NewInsightService(logger).WithBaseURL(baseURL)
	insightSvc.Print(insightSvc.Generate(res))

	if !res.Fetched {
		logger.Error("No results page could be retrieved; snapshot left unchanged.")
		os.Exit(1)
	}

	if !res.Saved {
		logger.Warn("Snapshot left unchanged: %d search page(s) failed (%s)",
			len(res.FailedURLs), strings.Join(res.FailedURLs, ", "))
	}

	insightSvc.PrintListings(res.Matching)

	if *csvPath != "" {
		if err := exportCSV(*csvPath, baseURL, res.Matching); err != nil {
			logger.Error("CSV export failed: %v", err)
		} else {
			logger.Info("%d listings exported to %s", len(res.Matching), *csvPath)
		}
	}
}

func openStore(ctx context.Context, cfg *config.Config) (storage.SnapshotStore, error) {
	switch cfg.SnapshotBackend {
	case config.BackendPostgres:
		return storage.NewPostgresStore(cfg.DatabaseURL)
	case config.BackendPgx:
		return storage.NewPgxStore(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	default:
		return storage.NewJSONStore(cfg.SnapshotPath), nil
	}
}

func newFetcher(cfg *config.Config, logger *utils.Logger) services.Fetcher {
	if cfg.FetchMode == config.FetchHTTP {
		return seloger.NewHTTPFetcher(seloger.HTTPFetcherConfig{
			UserAgent:     cfg.UserAgent,
			Timeout:       cfg.FetchTimeout,
			MaxRetries:    cfg.MaxRetries,
			RespectRobots: cfg.RespectRobots,
		}, logger)
	}
	return seloger.NewChromeFetcher(seloger.ChromeFetcherConfig{
		ChromeBin:  cfg.ChromeBin,
		UserAgent:  cfg.UserAgent,
		Timeout:    cfg.FetchTimeout,
		MaxRetries: cfg.MaxRetries,
	}, logger)
}

func runFile(ctx context.Context, m *services.Monitor, path string, c models.Criteria, logger *utils.Logger) (*models.RunResult, error) {
	f, err := os.Open(path)
	if err != nil {
		logger.Error("Cannot read %s: %v", path, err)
		return m.RunDocument(ctx, nil, c)
	}
	defer f.Close()
	return m.RunDocument(ctx, f, c)
}

func exportCSV(path, baseURL string, listings []*models.Listing) error {
	w, err := storage.NewCSVWriter(path, baseURL)
	if err != nil {
		return err
	}
	if err := w.Export(listings); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func serveAPI(ctx context.Context, addr string, h *api.RunHandler, logger *utils.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("API listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return nil
}
