// Package orchestrator drives a bounded breadth-first crawl: frontier,
// fetcher, and extractor coordinated level by level into a single report.
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pageharvest/pageharvest/internal/extract"
	"github.com/pageharvest/pageharvest/internal/metrics"
	"github.com/pageharvest/pageharvest/internal/scraper"
)

// Config controls crawl execution.
type Config struct {
	// Concurrency bounds the number of in-flight fetches within one level.
	Concurrency int
	// Extract carries the element filters applied to every page.
	Extract extract.Options
}

// Runner executes crawls. It holds no per-crawl state; a single Runner is
// shared by all tasks.
type Runner struct {
	fetcher scraper.Fetcher
	clock   scraper.Clock
	cfg     Config
	logger  *zap.Logger
}

// New constructs a Runner.
func New(fetcher scraper.Fetcher, clock scraper.Clock, cfg Config, logger *zap.Logger) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		fetcher: fetcher,
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run validates the request and crawls from the base URL, level by level,
// until depth, page budget, or discovered links run out. A single page
// failure is tallied and skipped; the crawl as a whole fails only when the
// seed URL itself cannot be fetched.
func (r *Runner) Run(ctx context.Context, req scraper.CrawlRequest) (scraper.CrawlReport, error) {
	if err := scraper.ValidateRequest(req); err != nil {
		return scraper.CrawlReport{}, err
	}

	frontier, batch, err := scraper.NewFrontier(req.BaseURL, req.Depth, req.MaxPages, req.SameHostOnly)
	if err != nil {
		return scraper.CrawlReport{}, &scraper.ValidationError{Field: "base_url", Reason: err.Error()}
	}

	opts := r.cfg.Extract
	opts.IncludeLinks = req.IncludeLinks
	opts.IncludeImages = req.IncludeImages

	start := r.clock.Now()
	var (
		pages  []scraper.PageRecord
		failed int
	)

	for len(batch) > 0 {
		level := frontier.Level()
		levelPages, levelFailed, seedErr := r.fetchLevel(ctx, batch, opts)
		failed += levelFailed
		pages = append(pages, levelPages...)

		if level == 0 && len(levelPages) == 0 {
			if seedErr == nil {
				seedErr = fmt.Errorf("seed fetch produced no pages")
			}
			return scraper.CrawlReport{}, fmt.Errorf("crawl failed: %w", seedErr)
		}
		if len(levelPages) == 0 {
			break
		}
		batch = frontier.NextLevel(levelPages)
	}

	elapsed := r.clock.Now().Sub(start)
	report := scraper.CrawlReport{
		BaseURL:      req.BaseURL,
		PagesScraped: len(pages),
		PagesFailed:  failed,
		TotalTime:    elapsed.Seconds(),
		Depth:        req.Depth,
		MaxPages:     req.MaxPages,
		Pages:        pages,
		Summary:      summarize(pages),
	}
	r.logger.Info("crawl finished",
		zap.String("base_url", req.BaseURL),
		zap.Int("pages_scraped", report.PagesScraped),
		zap.Int("pages_failed", report.PagesFailed),
		zap.Float64("total_time", report.TotalTime),
	)
	return report, nil
}

// fetchLevel fans out the level's fetches under the concurrency bound and
// fans extracted records back in. It returns once every URL in the level has
// succeeded or failed; link discovery for the next level depends on that
// barrier. Records are appended in completion order.
func (r *Runner) fetchLevel(
	ctx context.Context,
	urls []string,
	opts extract.Options,
) ([]scraper.PageRecord, int, error) {
	var (
		mu      sync.Mutex
		pages   []scraper.PageRecord
		failed  int
		seedErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for _, url := range urls {
		url := url
		g.Go(func() error {
			resp, err := r.fetcher.Fetch(gctx, url)
			if err != nil {
				r.logger.Warn("page fetch failed", zap.String("url", url), zap.Error(err))
				metrics.ObservePage(url, "failed", 0)
				mu.Lock()
				failed++
				if seedErr == nil {
					seedErr = err
				}
				mu.Unlock()
				return nil
			}

			record := extract.WithTimestamp(extract.Page(resp.Body, resp.URL, opts), r.clock.Now())
			metrics.ObservePage(url, "scraped", len(resp.Body))
			metrics.ObserveFetchDuration(resp.Duration)

			mu.Lock()
			pages = append(pages, record)
			mu.Unlock()
			return nil
		})
	}
	// Workers only return nil; Wait is the level barrier.
	_ = g.Wait()

	return pages, failed, seedErr
}

func summarize(pages []scraper.PageRecord) scraper.Summary {
	var s scraper.Summary
	for _, p := range pages {
		s.TotalHeadings += p.HeadingsCount
		s.TotalParagraphs += p.ParagraphsCount
		s.TotalLinks += p.LinksCount
		s.TotalImages += p.ImagesCount
		s.TotalContentLength += p.ContentLength
	}
	return s
}
