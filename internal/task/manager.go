// Package task exposes crawls as asynchronous, pollable units of work,
// executed by a pool of workers consuming a submission queue.
package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pageharvest/pageharvest/internal/metrics"
	"github.com/pageharvest/pageharvest/internal/orchestrator"
	"github.com/pageharvest/pageharvest/internal/scraper"
)

// ReportSink persists a completed report outside the registry, e.g. to disk.
type ReportSink interface {
	Save(ctx context.Context, taskID string, report scraper.CrawlReport) error
}

// Manager owns the task state machine: Pending -> Running -> Completed|Failed.
// Submission returns immediately; workers started by Run pick tasks off the
// queue and the caller polls for status and result.
type Manager struct {
	store  scraper.TaskStore
	runner *orchestrator.Runner
	queue  scraper.Queue
	idGen  scraper.IDGenerator
	clock  scraper.Clock
	sink   ReportSink
	logger *zap.Logger
}

// NewManager constructs a Manager. sink may be nil.
func NewManager(
	store scraper.TaskStore,
	runner *orchestrator.Runner,
	queue scraper.Queue,
	idGen scraper.IDGenerator,
	clock scraper.Clock,
	sink ReportSink,
	logger *zap.Logger,
) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:  store,
		runner: runner,
		queue:  queue,
		idGen:  idGen,
		clock:  clock,
		sink:   sink,
		logger: logger,
	}
}

// Submit validates the request synchronously, allocates a Pending task, and
// enqueues the crawl without blocking the caller. A validation failure
// creates no task.
func (m *Manager) Submit(ctx context.Context, req scraper.CrawlRequest) (string, error) {
	if err := scraper.ValidateRequest(req); err != nil {
		return "", err
	}

	taskID, err := m.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate task id: %w", err)
	}
	now := m.clock.Now()
	t := scraper.Task{
		ID:        taskID,
		State:     scraper.TaskStatePending,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.CreateTask(ctx, t); err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}

	queueCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	item := scraper.QueueItem{
		TaskID:    taskID,
		Request:   req,
		Submitted: now.Unix(),
	}
	if err := m.queue.Enqueue(queueCtx, item); err != nil {
		// The task would otherwise sit Pending forever.
		if updateErr := m.store.UpdateTaskState(ctx, taskID, scraper.TaskStateFailed, "enqueue failed"); updateErr != nil {
			m.logger.Error("orphaned task cleanup failed", zap.String("task_id", taskID), zap.Error(updateErr))
		}
		return "", fmt.Errorf("enqueue task: %w", err)
	}
	return taskID, nil
}

// Run starts workers consuming the queue and blocks until the context
// finishes and every in-flight crawl has reached a terminal state.
func (m *Manager) Run(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.workerLoop(ctx)
		}()
	}
	wg.Wait()
}

func (m *Manager) workerLoop(ctx context.Context) {
	for {
		item, err := m.queue.Dequeue(ctx)
		if err != nil {
			// Only cancellation or queue closure can fail a dequeue.
			if ctx.Err() == nil {
				m.logger.Info("queue drained, worker exiting", zap.Error(err))
			}
			return
		}
		m.runTask(ctx, item)
	}
}

// runTask executes one crawl from start to terminal state. Fetch deadlines
// bound every network call, so the loop cannot block indefinitely.
func (m *Manager) runTask(ctx context.Context, item scraper.QueueItem) {
	if err := m.store.UpdateTaskState(ctx, item.TaskID, scraper.TaskStateRunning, ""); err != nil {
		m.logger.Error("task transition to running failed", zap.String("task_id", item.TaskID), zap.Error(err))
		return
	}
	metrics.IncActiveCrawls()
	defer metrics.DecActiveCrawls()

	report, err := m.runner.Run(ctx, item.Request)
	if err != nil {
		m.logger.Warn("crawl failed", zap.String("task_id", item.TaskID), zap.Error(err))
		metrics.ObserveTask(string(scraper.TaskStateFailed))
		if updateErr := m.store.UpdateTaskState(ctx, item.TaskID, scraper.TaskStateFailed, err.Error()); updateErr != nil {
			m.logger.Error("task transition to failed errored", zap.String("task_id", item.TaskID), zap.Error(updateErr))
		}
		return
	}

	if err := m.store.SetResult(ctx, item.TaskID, report); err != nil {
		m.logger.Error("store result failed", zap.String("task_id", item.TaskID), zap.Error(err))
		return
	}
	metrics.ObserveTask(string(scraper.TaskStateCompleted))

	if m.sink != nil {
		if err := m.sink.Save(ctx, item.TaskID, report); err != nil {
			m.logger.Warn("report sink save failed", zap.String("task_id", item.TaskID), zap.Error(err))
		}
	}
}

// Status returns the task record for status polling.
func (m *Manager) Status(ctx context.Context, taskID string) (scraper.Task, error) {
	return m.store.GetTask(ctx, taskID)
}

// Result returns the finished report. It fails with ErrTaskNotFound for an
// unknown ID, ErrResultNotReady while the crawl is still pending or running,
// and ErrCrawlFailed (wrapping the stored description) for a failed task.
func (m *Manager) Result(ctx context.Context, taskID string) (scraper.CrawlReport, error) {
	t, err := m.store.GetTask(ctx, taskID)
	if err != nil {
		return scraper.CrawlReport{}, err
	}
	switch t.State {
	case scraper.TaskStateCompleted:
		return *t.Result, nil
	case scraper.TaskStateFailed:
		return scraper.CrawlReport{}, fmt.Errorf("%w: %s", scraper.ErrCrawlFailed, t.ErrorText)
	default:
		return scraper.CrawlReport{}, scraper.ErrResultNotReady
	}
}

// List returns summaries for all known tasks.
func (m *Manager) List(ctx context.Context) ([]scraper.TaskSummary, error) {
	return m.store.ListTasks(ctx)
}
