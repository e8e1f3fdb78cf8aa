package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pageharvest/pageharvest/internal/scraper"
)

func TestWriterSavesReport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	report := scraper.CrawlReport{
		BaseURL:      "https://example.com",
		PagesScraped: 2,
		Depth:        1,
		MaxPages:     5,
		Summary:      scraper.Summary{TotalHeadings: 3},
	}
	require.NoError(t, w.Save(context.Background(), "task-1", report))

	payload, err := os.ReadFile(filepath.Join(dir, "task-1.json"))
	require.NoError(t, err)

	var got scraper.CrawlReport
	require.NoError(t, json.Unmarshal(payload, &got))
	require.Equal(t, report.BaseURL, got.BaseURL)
	require.Equal(t, report.PagesScraped, got.PagesScraped)
	require.Equal(t, report.Summary, got.Summary)
}

func TestWriterCreatesRoot(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "nested", "reports")
	w, err := NewWriter(root)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "task-9.json"), w.Path("task-9"))

	info, err := os.Stat(root)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestWriterHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, w.Save(ctx, "task-1", scraper.CrawlReport{}))
}
