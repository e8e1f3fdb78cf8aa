// Package scraper defines core types shared across subsystems.
package scraper

import "time"

// TaskState represents the lifecycle state of a crawl task.
type TaskState string

// Task state values held in the task store.
const (
	TaskStatePending   TaskState = "pending"
	TaskStateRunning   TaskState = "running"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
)

// IsTerminal reports whether the state admits no further transitions.
func (s TaskState) IsTerminal() bool {
	return s == TaskStateCompleted || s == TaskStateFailed
}

// CrawlRequest captures per-crawl configuration knobs requested by the client.
// It is immutable once the crawl starts.
type CrawlRequest struct {
	BaseURL       string `json:"base_url"`
	Depth         int    `json:"depth"`
	MaxPages      int    `json:"max_pages"`
	IncludeLinks  bool   `json:"include_links"`
	IncludeImages bool   `json:"include_images"`
	SameHostOnly  bool   `json:"same_host_only"`
}

// Link is a hyperlink discovered on a page, target resolved to absolute form.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// Image is an image element discovered on a page.
type Image struct {
	Src   string `json:"src"`
	Alt   string `json:"alt"`
	Title string `json:"title"`
}

// PageRecord is the structured extraction result for one fetched page.
// It is created once per successfully fetched URL and never mutated.
type PageRecord struct {
	URL             string            `json:"url"`
	Title           string            `json:"title"`
	Headings        []string          `json:"headings"`
	Paragraphs      []string          `json:"paragraphs"`
	Links           []Link            `json:"links"`
	Images          []Image           `json:"images"`
	Meta            map[string]string `json:"meta"`
	ContentLength   int               `json:"content_length"`
	HeadingsCount   int               `json:"headings_count"`
	ParagraphsCount int               `json:"paragraphs_count"`
	LinksCount      int               `json:"links_count"`
	ImagesCount     int               `json:"images_count"`
	ScrapedAt       time.Time         `json:"scraped_at"`
}

// Summary aggregates totals across all pages of a crawl.
type Summary struct {
	TotalHeadings      int `json:"total_headings"`
	TotalParagraphs    int `json:"total_paragraphs"`
	TotalLinks         int `json:"total_links"`
	TotalImages        int `json:"total_images"`
	TotalContentLength int `json:"total_content_length"`
}

// CrawlReport is the aggregate result of an entire crawl. Pages appear in
// completion order, which may interleave within a concurrent level.
type CrawlReport struct {
	BaseURL      string       `json:"base_url"`
	PagesScraped int          `json:"pages_scraped"`
	PagesFailed  int          `json:"pages_failed"`
	TotalTime    float64      `json:"total_time"`
	Depth        int          `json:"depth"`
	MaxPages     int          `json:"max_pages"`
	Pages        []PageRecord `json:"pages"`
	Summary      Summary      `json:"summary"`
}

// Task represents one asynchronous crawl and its eventual outcome.
type Task struct {
	ID        string       `json:"task_id"`
	State     TaskState    `json:"state"`
	Request   CrawlRequest `json:"request"`
	Result    *CrawlReport `json:"result,omitempty"`
	ErrorText string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// TaskSummary is the compact listing form of a Task.
type TaskSummary struct {
	ID        string    `json:"task_id"`
	State     TaskState `json:"state"`
	BaseURL   string    `json:"base_url"`
	CreatedAt time.Time `json:"created_at"`
}

// Summarize reduces a Task to its listing form.
func (t Task) Summarize() TaskSummary {
	return TaskSummary{
		ID:        t.ID,
		State:     t.State,
		BaseURL:   t.Request.BaseURL,
		CreatedAt: t.CreatedAt,
	}
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}
