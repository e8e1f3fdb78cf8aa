package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pageharvest/pageharvest/internal/extract"
	"github.com/pageharvest/pageharvest/internal/orchestrator"
	queueMemory "github.com/pageharvest/pageharvest/internal/queue/memory"
	"github.com/pageharvest/pageharvest/internal/scraper"
	memoryStorage "github.com/pageharvest/pageharvest/internal/storage/memory"
)

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (scraper.FetchResponse, error) {
	f.mu.Lock()
	body, ok := f.pages[url]
	f.mu.Unlock()
	if !ok {
		return scraper.FetchResponse{}, &scraper.FetchError{
			URL:  url,
			Kind: scraper.FetchErrNetwork,
			Err:  errors.New("connection refused"),
		}
	}
	return scraper.FetchResponse{URL: url, StatusCode: 200, Body: []byte(body)}, nil
}

type fakeIDGen struct {
	mu   sync.Mutex
	next int
}

func (g *fakeIDGen) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("task-%d", g.next), nil
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type captureSink struct {
	mu    sync.Mutex
	saved map[string]scraper.CrawlReport
}

func (s *captureSink) Save(_ context.Context, taskID string, report scraper.CrawlReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		s.saved = make(map[string]scraper.CrawlReport)
	}
	s.saved[taskID] = report
	return nil
}

type managerHarness struct {
	manager *Manager
	sink    *captureSink
	cancel  context.CancelFunc
	done    chan struct{}
}

func newManagerHarness(t *testing.T, fetcher scraper.Fetcher) *managerHarness {
	t.Helper()

	runner := orchestrator.New(fetcher, &fakeClock{now: time.Unix(1000, 0)}, orchestrator.Config{
		Concurrency: 2,
		Extract:     extract.DefaultOptions(),
	}, zap.NewNop())
	sink := &captureSink{}
	manager := NewManager(
		memoryStorage.NewTaskStore(),
		runner,
		queueMemory.NewQueue(8),
		&fakeIDGen{},
		&fakeClock{now: time.Unix(1000, 0)},
		sink,
		zap.NewNop(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		manager.Run(ctx, 2)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return &managerHarness{manager: manager, sink: sink, cancel: cancel, done: done}
}

func TestManagerSubmitCompletesTask(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example.com": "<html><head><title>Seed</title></head></html>",
	}}
	h := newManagerHarness(t, fetcher)
	ctx := context.Background()

	taskID, err := h.manager.Submit(ctx, scraper.CrawlRequest{
		BaseURL:  "https://example.com",
		Depth:    0,
		MaxPages: 5,
	})
	require.NoError(t, err)
	require.Equal(t, "task-1", taskID)

	require.Eventually(t, func() bool {
		task, err := h.manager.Status(ctx, taskID)
		return err == nil && task.State == scraper.TaskStateCompleted
	}, 5*time.Second, 10*time.Millisecond)

	report, err := h.manager.Result(ctx, taskID)
	require.NoError(t, err)
	require.Equal(t, "https://example.com", report.BaseURL)
	require.Equal(t, 1, report.PagesScraped)
	require.Equal(t, "Seed", report.Pages[0].Title)

	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	require.Contains(t, h.sink.saved, taskID)
}

func TestManagerSeedFailureFailsTask(t *testing.T) {
	t.Parallel()

	h := newManagerHarness(t, &fakeFetcher{pages: map[string]string{}})
	ctx := context.Background()

	taskID, err := h.manager.Submit(ctx, scraper.CrawlRequest{
		BaseURL:  "https://unreachable.example.com",
		Depth:    1,
		MaxPages: 5,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		task, err := h.manager.Status(ctx, taskID)
		return err == nil && task.State == scraper.TaskStateFailed
	}, 5*time.Second, 10*time.Millisecond)

	_, err = h.manager.Result(ctx, taskID)
	require.ErrorIs(t, err, scraper.ErrCrawlFailed)
	require.Contains(t, err.Error(), "connection refused")
}

func TestManagerValidationFailureCreatesNoTask(t *testing.T) {
	t.Parallel()

	h := newManagerHarness(t, &fakeFetcher{})
	ctx := context.Background()

	_, err := h.manager.Submit(ctx, scraper.CrawlRequest{
		BaseURL:  "not-a-url",
		MaxPages: 1,
	})
	require.Error(t, err)
	require.True(t, scraper.IsValidation(err))

	summaries, err := h.manager.List(ctx)
	require.NoError(t, err)
	require.Empty(t, summaries)
}

func TestManagerResultNotReadyWhilePending(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	fetcher := fetcherFunc(func(ctx context.Context, url string) (scraper.FetchResponse, error) {
		close(started)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return scraper.FetchResponse{URL: url, StatusCode: 200, Body: []byte("<html></html>")}, nil
	})
	h := newManagerHarness(t, fetcher)
	ctx := context.Background()

	taskID, err := h.manager.Submit(ctx, scraper.CrawlRequest{
		BaseURL:  "https://example.com",
		Depth:    0,
		MaxPages: 1,
	})
	require.NoError(t, err)

	<-started
	_, err = h.manager.Result(ctx, taskID)
	require.ErrorIs(t, err, scraper.ErrResultNotReady)
	close(release)

	require.Eventually(t, func() bool {
		task, err := h.manager.Status(ctx, taskID)
		return err == nil && task.State == scraper.TaskStateCompleted
	}, 5*time.Second, 10*time.Millisecond)
}

func TestManagerResultUnknownTask(t *testing.T) {
	t.Parallel()

	h := newManagerHarness(t, &fakeFetcher{})
	_, err := h.manager.Result(context.Background(), "missing")
	require.ErrorIs(t, err, scraper.ErrTaskNotFound)
}

func TestManagerListReflectsSubmissions(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example.com": "<html><head><title>Seed</title></head></html>",
	}}
	h := newManagerHarness(t, fetcher)
	ctx := context.Background()

	first, err := h.manager.Submit(ctx, scraper.CrawlRequest{BaseURL: "https://example.com", MaxPages: 1})
	require.NoError(t, err)
	second, err := h.manager.Submit(ctx, scraper.CrawlRequest{BaseURL: "https://example.com/other", MaxPages: 1})
	require.NoError(t, err)

	summaries, err := h.manager.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	ids := []string{summaries[0].ID, summaries[1].ID}
	require.ElementsMatch(t, []string{first, second}, ids)
}

type fetcherFunc func(ctx context.Context, url string) (scraper.FetchResponse, error)

func (f fetcherFunc) Fetch(ctx context.Context, url string) (scraper.FetchResponse, error) {
	return f(ctx, url)
}
