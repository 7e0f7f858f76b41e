package seloger

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"listing-delta/utils"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ChromeFetcherConfig configures headless rendering.
type ChromeFetcherConfig struct {
	ChromeBin  string
	UserAgent  string
	Timeout    time.Duration
	SettleTime time.Duration
	MaxRetries int
}

// ChromeFetcher renders a search page in headless Chrome and returns the
// resulting markup, for pages whose cards are injected by scripts.
type ChromeFetcher struct {
	cfg    ChromeFetcherConfig
	logger *utils.Logger
	retry  *utils.RetryConfig
}

// NewChromeFetcher creates a ChromeFetcher. A browser is started per Fetch.
func NewChromeFetcher(cfg ChromeFetcherConfig, logger *utils.Logger) *ChromeFetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if cfg.SettleTime <= 0 {
		cfg.SettleTime = 4 * time.Second
	}
	return &ChromeFetcher{
		cfg:    cfg,
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// Fetch navigates to pageURL and returns the rendered document.
func (f *ChromeFetcher) Fetch(ctx context.Context, pageURL string) (io.ReadCloser, error) {
	chromeBin := f.cfg.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	f.logger.Debug("[chrome] Using browser binary: %q", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(f.cfg.UserAgent),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	var page string
	err := f.retry.Do(ctx, "render "+pageURL, func(context.Context) error {
		tabCtx, cancelTab := chromedp.NewContext(browserCtx)
		defer cancelTab()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, f.cfg.Timeout)
		defer cancelTimeout()

		var outer string
		if err := chromedp.Run(tabCtx,
			chromedp.Navigate(pageURL),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Sleep(f.cfg.SettleTime),
			chromedp.OuterHTML("html", &outer, chromedp.ByQuery),
		); err != nil {
			return fmt.Errorf("chromedp render: %w", err)
		}
		page = outer
		return nil
	})
	if err != nil {
		return nil, err
	}

	f.logger.Info("[chrome] Rendered %s (%d bytes)", pageURL, len(page))
	return io.NopCloser(strings.NewReader(page)), nil
}

// findChromeBinary locates a Chrome/Chromium binary, or returns "" to let
// chromedp use its own lookup.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
