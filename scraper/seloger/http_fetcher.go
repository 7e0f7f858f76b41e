package seloger

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/net/html/charset"

	"listing-delta/utils"
)

// HTTPFetcherConfig configures plain HTTP retrieval.
type HTTPFetcherConfig struct {
	UserAgent     string
	Timeout       time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	RespectRobots bool
}

// HTTPFetcher retrieves a search page with a single GET. It does not run
// scripts, so it only sees server-rendered cards.
type HTTPFetcher struct {
	cfg    HTTPFetcherConfig
	client *http.Client
	logger *utils.Logger
	retry  *utils.RetryConfig

	mu          sync.Mutex
	robotsCache map[string]*robotstxt.Group
}

// NewHTTPFetcher creates an HTTPFetcher.
func NewHTTPFetcher(cfg HTTPFetcherConfig, logger *utils.Logger) *HTTPFetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	return &HTTPFetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.RetryDelay,
			Logger:      logger,
		},
		robotsCache: make(map[string]*robotstxt.Group),
	}
}

// Fetch GETs pageURL and returns its body decoded to UTF-8.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (io.ReadCloser, error) {
	if f.cfg.RespectRobots && !f.allowed(ctx, pageURL) {
		return nil, fmt.Errorf("fetch %s: disallowed by robots.txt: %w", pageURL, utils.ErrPermanent)
	}

	var body io.ReadCloser
	err := f.retry.Do(ctx, "fetch "+pageURL, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return fmt.Errorf("build request: %v: %w", err, utils.ErrPermanent)
		}
		req.Header.Set("User-Agent", f.cfg.UserAgent)
		req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9")

		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}

		switch {
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			return fmt.Errorf("status %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			resp.Body.Close()
			return fmt.Errorf("status %d: %w", resp.StatusCode, utils.ErrPermanent)
		}

		decoded, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
		if err != nil {
			resp.Body.Close()
			return fmt.Errorf("decode body: %w", err)
		}
		body = readCloser{Reader: decoded, Closer: resp.Body}
		return nil
	})
	if err != nil {
		return nil, err
	}

	f.logger.Info("[http] Fetched %s", pageURL)
	return body, nil
}

// allowed consults robots.txt for pageURL's host. A missing or unreadable
// robots.txt allows everything.
func (f *HTTPFetcher) allowed(ctx context.Context, pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}

	f.mu.Lock()
	group, cached := f.robotsCache[u.Host]
	f.mu.Unlock()

	if !cached {
		group = f.fetchRobots(ctx, u)
		f.mu.Lock()
		f.robotsCache[u.Host] = group
		f.mu.Unlock()
	}

	if group == nil {
		return true
	}
	return group.Test(u.Path)
}

func (f *HTTPFetcher) fetchRobots(ctx context.Context, u *url.URL) *robotstxt.Group {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.Scheme+"://"+u.Host+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug("[http] robots.txt for %s unavailable: %v", u.Host, err)
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return data.FindGroup(f.cfg.UserAgent)
}

type readCloser struct {
	io.Reader
	io.Closer
}
