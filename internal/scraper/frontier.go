package scraper

import (
	"net/url"
	"strings"
)

// Frontier tracks the URLs known for a single crawl and yields, level by
// level, the next batch to fetch. It never re-emits a URL and never emits
// past the page budget. It is driven by the one goroutine running the crawl;
// the seen-set is only touched between levels, never while a level's fetches
// are in flight.
type Frontier struct {
	seen         map[string]struct{}
	host         string
	maxDepth     int
	remaining    int
	level        int
	sameHostOnly bool
}

// NewFrontier seeds level 0 with the normalized base URL. The base URL must
// already have passed ValidateRequest.
func NewFrontier(baseURL string, maxDepth, maxPages int, sameHostOnly bool) (*Frontier, []string, error) {
	normalized, err := NormalizeURL(baseURL)
	if err != nil {
		return nil, nil, err
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return nil, nil, err
	}
	f := &Frontier{
		seen:         map[string]struct{}{normalized: {}},
		host:         strings.ToLower(u.Host),
		maxDepth:     maxDepth,
		remaining:    maxPages - 1,
		sameHostOnly: sameHostOnly,
	}
	return f, []string{normalized}, nil
}

// Level returns the depth of the most recently emitted batch.
func (f *Frontier) Level() int { return f.level }

// NextLevel derives the next batch from the pages fetched at the current
// depth. Links are considered in the order they appear on each source page;
// earlier links win when the remaining budget truncates the batch. An empty
// batch means the crawl is done: depth exhausted, budget exhausted, or no
// unseen links discovered.
func (f *Frontier) NextLevel(pages []PageRecord) []string {
	if f.level >= f.maxDepth || f.remaining <= 0 {
		return nil
	}

	var batch []string
	for _, page := range pages {
		for _, link := range page.Links {
			if f.remaining <= 0 {
				break
			}
			normalized, err := NormalizeURL(link.Href)
			if err != nil {
				continue
			}
			if !f.admissible(normalized) {
				continue
			}
			if _, ok := f.seen[normalized]; ok {
				continue
			}
			f.seen[normalized] = struct{}{}
			f.remaining--
			batch = append(batch, normalized)
		}
	}

	if len(batch) > 0 {
		f.level++
	}
	return batch
}

func (f *Frontier) admissible(normalized string) bool {
	u, err := url.Parse(normalized)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if f.sameHostOnly && strings.ToLower(u.Host) != f.host {
		return false
	}
	return true
}
