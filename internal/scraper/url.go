package scraper

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL standardizes a URL so the seen-set catches duplicates.
// It lowercases the scheme and host, strips default ports and fragments,
// and sorts query parameters.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" && strings.HasSuffix(u.Host, ":80") {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" && strings.HasSuffix(u.Host, ":443") {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Fragment = ""

	q := u.Query()
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// ValidateRequest enforces the crawl request contract: a well-formed absolute
// http(s) URL, depth >= 0, and max_pages >= 1.
func ValidateRequest(req CrawlRequest) error {
	u, err := url.Parse(req.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return &ValidationError{Field: "base_url", Reason: "must be a well-formed absolute URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: "base_url", Reason: "scheme must be http or https"}
	}
	if req.Depth < 0 {
		return &ValidationError{Field: "depth", Reason: "must be >= 0"}
	}
	if req.MaxPages < 1 {
		return &ValidationError{Field: "max_pages", Reason: "must be >= 1"}
	}
	return nil
}
