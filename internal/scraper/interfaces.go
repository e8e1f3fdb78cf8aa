package scraper

import (
	"context"
	"time"
)

// Fetcher retrieves a single URL and returns the raw body plus metadata.
// Implementations perform exactly one retrieval per call and do not retry.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResponse, error)
}

// TaskStore holds task records for status/result polling. Implementations
// must support concurrent reads and writes without blocking unrelated tasks.
type TaskStore interface {
	CreateTask(ctx context.Context, task Task) error
	UpdateTaskState(ctx context.Context, taskID string, state TaskState, errText string) error
	SetResult(ctx context.Context, taskID string, report CrawlReport) error
	GetTask(ctx context.Context, taskID string) (Task, error)
	ListTasks(ctx context.Context) ([]TaskSummary, error)
}

// Queue provides enqueue/dequeue semantics for submitted crawls.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// QueueItem wraps a task ready to run.
type QueueItem struct {
	TaskID    string
	Request   CrawlRequest
	Submitted int64
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces task IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
