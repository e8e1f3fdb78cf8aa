// Package memory provides the process-scoped task registry.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/pageharvest/pageharvest/internal/scraper"
)

// TaskStore is an in-memory scraper.TaskStore. The registry is shared by all
// concurrently running crawls; a single RWMutex guards the map so polling one
// task never blocks another task's transition for longer than a map access.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]scraper.Task
}

// NewTaskStore constructs an empty registry.
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[string]scraper.Task),
	}
}

// CreateTask stores a new task. The caller sets the initial state.
func (s *TaskStore) CreateTask(_ context.Context, task scraper.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[task.ID]; exists {
		return errors.New("task already exists")
	}
	s.tasks[task.ID] = task
	return nil
}

// UpdateTaskState transitions a task. Terminal states are final: once a task
// is completed or failed no further transition is applied, so concurrent
// readers can never observe a state regression.
func (s *TaskStore) UpdateTaskState(_ context.Context, taskID string, state scraper.TaskState, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return scraper.ErrTaskNotFound
	}
	if task.State.IsTerminal() {
		return errors.New("task already in terminal state")
	}
	task.State = state
	task.ErrorText = errText
	task.UpdatedAt = time.Now().UTC()
	s.tasks[taskID] = task
	return nil
}

// SetResult attaches the finished report and marks the task completed.
func (s *TaskStore) SetResult(_ context.Context, taskID string, report scraper.CrawlReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return scraper.ErrTaskNotFound
	}
	if task.State.IsTerminal() {
		return errors.New("task already in terminal state")
	}
	task.State = scraper.TaskStateCompleted
	task.Result = &report
	task.UpdatedAt = time.Now().UTC()
	s.tasks[taskID] = task
	return nil
}

// GetTask fetches a task by ID.
func (s *TaskStore) GetTask(_ context.Context, taskID string) (scraper.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return scraper.Task{}, scraper.ErrTaskNotFound
	}
	return task, nil
}

// ListTasks returns summaries for every known task, newest first.
func (s *TaskStore) ListTasks(_ context.Context) ([]scraper.TaskSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]scraper.TaskSummary, 0, len(s.tasks))
	for _, task := range s.tasks {
		out = append(out, task.Summarize())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
