package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"listing-delta/models"
	"listing-delta/storage"
	"listing-delta/utils"
)

// ErrNoURLs is returned by Run when no usable search URL was given.
var ErrNoURLs = errors.New("no search URLs")

// Fetcher retrieves the document behind a search URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// DocumentParser turns one document into listings, reporting how many cards
// were dropped.
type DocumentParser interface {
	Parse(r io.Reader) ([]*models.Listing, int, error)
}

// Monitor runs the fetch, parse, diff, filter and persist pipeline. Runs on
// the same store must not overlap; callers serialize them.
type Monitor struct {
	fetcher     Fetcher
	parser      DocumentParser
	store       storage.SnapshotStore
	logger      *utils.Logger
	concurrency int
	now         func() time.Time
}

// NewMonitor wires a Monitor. fetcher may be nil when only RunDocument is used.
func NewMonitor(fetcher Fetcher, parser DocumentParser, store storage.SnapshotStore, logger *utils.Logger, concurrency int) *Monitor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Monitor{
		fetcher:     fetcher,
		parser:      parser,
		store:       store,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}
}

type pageResult struct {
	listings []*models.Listing
	dropped  int
	ok       bool
}

// Run fetches every search URL, concatenates their listings in URL order and
// completes the run. A URL that cannot be fetched or parsed contributes no
// listings, and the snapshot is then left untouched so that its listings are
// not reported as new once the page is back.
func (m *Monitor) Run(ctx context.Context, urls []string, criteria models.Criteria) (*models.RunResult, error) {
	urls = utils.Unique(urls)
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}
	if m.fetcher == nil {
		return nil, fmt.Errorf("monitor: no fetcher configured")
	}

	pages := make([]pageResult, len(urls))
	pool := utils.NewWorkerPool(m.concurrency)
	for i, u := range urls {
		i, u := i, u
		pool.Submit(func() {
			pages[i] = m.fetchPage(ctx, u)
		})
	}
	pool.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("monitor: run cancelled: %w", err)
	}

	var current []*models.Listing
	var failed []string
	dropped, fetched := 0, false
	for i, p := range pages {
		if !p.ok {
			failed = append(failed, urls[i])
			continue
		}
		fetched = true
		current = append(current, p.listings...)
		dropped += p.dropped
	}

	if !fetched {
		m.logger.Error("[monitor] None of the %d search pages could be retrieved", len(urls))
		res, err := m.noDocument(ctx)
		if res != nil {
			res.FailedURLs = failed
		}
		return res, err
	}

	if len(failed) > 0 {
		m.logger.Warn("[monitor] %d of %d search pages failed; snapshot will not be saved", len(failed), len(urls))
	}
	res, err := m.complete(ctx, current, dropped, criteria, len(failed) == 0)
	if res != nil {
		res.FailedURLs = failed
	}
	return res, err
}

func (m *Monitor) fetchPage(ctx context.Context, url string) pageResult {
	body, err := m.fetcher.Fetch(ctx, url)
	if err != nil {
		m.logger.Error("[monitor] Fetch %s failed: %v", url, err)
		return pageResult{}
	}
	defer body.Close()

	listings, dropped, err := m.parser.Parse(body)
	if err != nil {
		m.logger.Error("[monitor] Parse %s failed: %v", url, err)
		return pageResult{}
	}
	m.logger.Info("[monitor] %s: %d listings (%d cards dropped)", url, len(listings), dropped)
	return pageResult{listings: listings, dropped: dropped, ok: true}
}

// RunDocument completes a run from an already obtained document. A nil
// reader stands for "no document": nothing is parsed or saved.
func (m *Monitor) RunDocument(ctx context.Context, r io.Reader, criteria models.Criteria) (*models.RunResult, error) {
	if r == nil {
		return m.noDocument(ctx)
	}

	current, dropped, err := m.parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("monitor: %w", err)
	}
	return m.complete(ctx, current, dropped, criteria, true)
}

func (m *Monitor) noDocument(ctx context.Context) (*models.RunResult, error) {
	previous, err := m.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("monitor: load snapshot: %w", err)
	}
	return &models.RunResult{
		Current:    []*models.Listing{},
		Previous:   previous,
		New:        []*models.Listing{},
		Matching:   []*models.Listing{},
		Fetched:    false,
		FinishedAt: m.now(),
	}, nil
}

// complete diffs and filters current against the stored snapshot, then
// replaces the snapshot when save is set.
func (m *Monitor) complete(ctx context.Context, current []*models.Listing, dropped int, criteria models.Criteria, save bool) (*models.RunResult, error) {
	if current == nil {
		current = []*models.Listing{}
	}

	previous, err := m.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("monitor: load snapshot: %w", err)
	}

	fresh := Delta(current, previous)
	matching := Filter(fresh, criteria)

	if save {
		if err := m.store.Save(ctx, current); err != nil {
			return nil, fmt.Errorf("monitor: save snapshot: %w", err)
		}
	}

	m.logger.Info("[monitor] %d current, %d previous, %d new, %d matching",
		len(current), len(previous), len(fresh), len(matching))

	return &models.RunResult{
		Current:    current,
		Previous:   previous,
		New:        fresh,
		Matching:   matching,
		Fetched:    true,
		Saved:      save,
		Dropped:    dropped,
		FinishedAt: m.now(),
	}, nil
}
