// Package extract turns raw HTML into structured page records.
package extract

import (
	"bytes"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/pageharvest/pageharvest/internal/scraper"
)

// Defaults mirror the noise filters applied by the service: short paragraphs
// are navigation chrome more often than content, and runaway pages are capped
// per element category. All of them are tunable through Options.
const (
	DefaultMinParagraphLen = 20
	DefaultMaxHeadings     = 20
	DefaultMaxParagraphs   = 50
	DefaultMaxLinks        = 100
	DefaultMaxImages       = 50
)

// Options controls which element categories are extracted and how they are
// filtered.
type Options struct {
	IncludeLinks    bool
	IncludeImages   bool
	MinParagraphLen int
	MaxHeadings     int
	MaxParagraphs   int
	MaxLinks        int
	MaxImages       int
}

// DefaultOptions returns Options with the standard filters applied.
func DefaultOptions() Options {
	return Options{
		IncludeLinks:    true,
		MinParagraphLen: DefaultMinParagraphLen,
		MaxHeadings:     DefaultMaxHeadings,
		MaxParagraphs:   DefaultMaxParagraphs,
		MaxLinks:        DefaultMaxLinks,
		MaxImages:       DefaultMaxImages,
	}
}

func (o Options) withDefaults() Options {
	if o.MinParagraphLen == 0 {
		o.MinParagraphLen = DefaultMinParagraphLen
	}
	if o.MaxHeadings == 0 {
		o.MaxHeadings = DefaultMaxHeadings
	}
	if o.MaxParagraphs == 0 {
		o.MaxParagraphs = DefaultMaxParagraphs
	}
	if o.MaxLinks == 0 {
		o.MaxLinks = DefaultMaxLinks
	}
	if o.MaxImages == 0 {
		o.MaxImages = DefaultMaxImages
	}
	return o
}

var headingTags = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// Page extracts a structured record from raw markup. It is a pure
// transformation: identical markup and source URL always produce identical
// fields. Markup that cannot be parsed yields a record with empty fields
// rather than an error, so one bad page never fails a crawl.
func Page(body []byte, sourceURL string, opts Options) scraper.PageRecord {
	opts = opts.withDefaults()
	record := scraper.PageRecord{
		URL:        sourceURL,
		Headings:   []string{},
		Paragraphs: []string{},
		Links:      []scraper.Link{},
		Images:     []scraper.Image{},
		Meta:       map[string]string{},
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return record
	}
	base, err := url.Parse(sourceURL)
	if err != nil {
		return record
	}

	w := &walker{opts: opts, base: base, record: &record}
	w.walk(doc)

	record.HeadingsCount = len(record.Headings)
	record.ParagraphsCount = len(record.Paragraphs)
	record.LinksCount = len(record.Links)
	record.ImagesCount = len(record.Images)
	record.ContentLength = contentLength(record)
	return record
}

// WithTimestamp stamps the record with the fetch completion time. Separated
// from Page so extraction itself stays deterministic.
func WithTimestamp(record scraper.PageRecord, at time.Time) scraper.PageRecord {
	record.ScrapedAt = at
	return record
}

type walker struct {
	opts   Options
	base   *url.URL
	record *scraper.PageRecord
}

func (w *walker) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch {
		case n.Data == "title":
			if w.record.Title == "" {
				w.record.Title = nodeText(n)
			}
		case headingTags[n.Data]:
			if len(w.record.Headings) < w.opts.MaxHeadings {
				if text := nodeText(n); text != "" {
					w.record.Headings = append(w.record.Headings, text)
				}
			}
		case n.Data == "p":
			if len(w.record.Paragraphs) < w.opts.MaxParagraphs {
				if text := nodeText(n); len(text) > w.opts.MinParagraphLen {
					w.record.Paragraphs = append(w.record.Paragraphs, text)
				}
			}
		case n.Data == "a":
			w.collectLink(n)
		case n.Data == "img":
			w.collectImage(n)
		case n.Data == "meta":
			w.collectMeta(n)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *walker) collectLink(n *html.Node) {
	if !w.opts.IncludeLinks || len(w.record.Links) >= w.opts.MaxLinks {
		return
	}
	href := strings.TrimSpace(attr(n, "href"))
	if href == "" {
		return
	}
	absolute, ok := w.resolve(href)
	if !ok {
		return
	}
	w.record.Links = append(w.record.Links, scraper.Link{
		Href: absolute,
		Text: nodeText(n),
	})
}

func (w *walker) collectImage(n *html.Node) {
	if !w.opts.IncludeImages || len(w.record.Images) >= w.opts.MaxImages {
		return
	}
	src := strings.TrimSpace(attr(n, "src"))
	if src == "" {
		return
	}
	absolute, ok := w.resolve(src)
	if !ok {
		return
	}
	w.record.Images = append(w.record.Images, scraper.Image{
		Src:   absolute,
		Alt:   attr(n, "alt"),
		Title: attr(n, "title"),
	})
}

// collectMeta records name/property -> content pairs. The last occurrence of
// a key wins, matching what most consumers expect from duplicated meta tags.
func (w *walker) collectMeta(n *html.Node) {
	name := attr(n, "name")
	if name == "" {
		name = attr(n, "property")
	}
	content := attr(n, "content")
	if name == "" || content == "" {
		return
	}
	w.record.Meta[name] = content
}

func (w *walker) resolve(ref string) (string, bool) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	absolute := w.base.ResolveReference(u)
	if absolute.Scheme != "http" && absolute.Scheme != "https" {
		return "", false
	}
	return absolute.String(), true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// contentLength measures the extracted text, not the raw markup: the title,
// every heading, and every kept paragraph.
func contentLength(record scraper.PageRecord) int {
	total := len(record.Title)
	for _, h := range record.Headings {
		total += len(h)
	}
	for _, p := range record.Paragraphs {
		total += len(p)
	}
	return total
}
