// Package collyfetcher implements scraper.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/pageharvest/pageharvest/internal/scraper"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher performs single-page retrievals with a Colly collector. Each call
// issues exactly one GET; retry policy, if any, belongs to the caller.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	// colly v2.1.0's Async option ignores its argument and always enables
	// async mode; set the field directly to keep the collector synchronous.
	c := colly.NewCollector()
	c.Async = false
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Fetch executes a single HTTP GET. Failures are classified as network,
// status, or timeout via scraper.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (scraper.FetchResponse, error) {
	var (
		result   scraper.FetchResponse
		fetchErr error
	)
	start := time.Now()

	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(f.cfg.Timeout)

	collector.OnResponse(func(r *colly.Response) {
		result = scraper.FetchResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	var statusCode int
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			statusCode = r.StatusCode
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		// Only an expired deadline is a timeout; a bare cancellation
		// (e.g. shutdown) is not.
		kind := scraper.FetchErrNetwork
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			kind = scraper.FetchErrTimeout
		}
		return scraper.FetchResponse{}, &scraper.FetchError{
			URL:  url,
			Kind: kind,
			Err:  ctx.Err(),
		}
	case visitErr := <-done:
		if fetchErr == nil {
			fetchErr = visitErr
		}
		if fetchErr != nil {
			return scraper.FetchResponse{}, classify(url, statusCode, fetchErr)
		}
		return result, nil
	}
}

func classify(url string, statusCode int, err error) *scraper.FetchError {
	if statusCode >= http.StatusBadRequest {
		return &scraper.FetchError{
			URL:        url,
			Kind:       scraper.FetchErrStatus,
			StatusCode: statusCode,
			Err:        err,
		}
	}
	var netErr net.Error
	if (errors.As(err, &netErr) && netErr.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
		return &scraper.FetchError{
			URL:  url,
			Kind: scraper.FetchErrTimeout,
			Err:  err,
		}
	}
	return &scraper.FetchError{
		URL:  url,
		Kind: scraper.FetchErrNetwork,
		Err:  err,
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
