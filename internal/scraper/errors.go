package scraper

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the task manager.
var (
	// ErrTaskNotFound is returned when a task ID is unknown.
	ErrTaskNotFound = errors.New("task not found")
	// ErrResultNotReady is returned when a result is requested for a task
	// that is still pending or running.
	ErrResultNotReady = errors.New("result not ready")
	// ErrCrawlFailed wraps the stored error description of a failed task.
	ErrCrawlFailed = errors.New("crawl failed")
)

// FetchErrorKind classifies why a single page retrieval failed.
type FetchErrorKind string

// Fetch failure classes. A fetch failure never aborts a crawl on its own;
// only a failed seed fetch does.
const (
	FetchErrNetwork FetchErrorKind = "network"
	FetchErrStatus  FetchErrorKind = "status"
	FetchErrTimeout FetchErrorKind = "timeout"
)

// FetchError reports a failed retrieval of one URL.
type FetchError struct {
	URL        string
	Kind       FetchErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchErrStatus:
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	case FetchErrTimeout:
		return fmt.Sprintf("fetch %s: timed out: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// ValidationError reports a malformed crawl request. It surfaces
// synchronously to the submitter; no task is created.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
