// Package report serializes finished crawl reports for interchange.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pageharvest/pageharvest/internal/scraper"
)

// Writer saves one JSON document per completed crawl under a root directory.
type Writer struct {
	root string
}

// NewWriter returns a Writer rooted at dir, creating it if needed.
func NewWriter(root string) (*Writer, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create report dir %s: %w", root, err)
	}
	return &Writer{root: root}, nil
}

// Save writes the report to <root>/<task_id>.json.
func (w *Writer) Save(ctx context.Context, taskID string, report scraper.CrawlReport) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	target := w.Path(taskID)
	if err := os.WriteFile(target, payload, 0o600); err != nil {
		return fmt.Errorf("write report %s: %w", target, err)
	}
	return nil
}

// Path returns the file a task's report is saved to.
func (w *Writer) Path(taskID string) string {
	return filepath.Join(w.root, taskID+".json")
}
