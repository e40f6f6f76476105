package extractor

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/mdcrawl/internal/fetcher"
	"github.com/nao1215/mdcrawl/internal/model"
)

// Selectors for elements that never carry page text.
const nonContentSelector = "script, style, noscript, template, svg, iframe"

// Selectors for site chrome removed before rendering the primary content.
const boilerplateSelector = "nav, footer, header, aside, form, " +
	"[role='navigation'], [role='banner'], [role='contentinfo']"

// Main content candidates in priority order.
var mainSelectors = []string{"main", "article", "[role='main']"}

// Result is the outcome of extracting one page.
type Result struct {
	// Title is the document title, or empty when the page has none.
	Title string

	// Markdown holds the primary and fallback renderings.
	Markdown model.Markdown

	// Links are absolute, fragment-free http(s) URLs in document order
	// without duplicates.
	Links []string
}

// Content returns the markdown text to persist.
func (r *Result) Content() string {
	return r.Markdown.Resolve()
}

// Extractor converts fetched content to markdown.
// It holds no per-page state and is safe for concurrent use.
type Extractor struct {
	// readability enables go-readability for the primary rendering.
	readability bool

	// contentSelector overrides the main content candidates when it matches.
	contentSelector string

	// excludeSelectors are removed in addition to the built-in boilerplate.
	excludeSelectors []string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithReadability enables or disables readability mode.
func WithReadability(enabled bool) Option {
	return func(e *Extractor) {
		e.readability = enabled
	}
}

// WithContentSelector sets a CSS selector that identifies the main content.
func WithContentSelector(selector string) Option {
	return func(e *Extractor) {
		e.contentSelector = strings.TrimSpace(selector)
	}
}

// WithExcludeSelectors adds CSS selectors to strip from the primary content.
func WithExcludeSelectors(selectors ...string) Option {
	return func(e *Extractor) {
		for _, s := range selectors {
			if s = strings.TrimSpace(s); s != "" {
				e.excludeSelectors = append(e.excludeSelectors, s)
			}
		}
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract converts content to markdown. Relative links are resolved against
// baseURL, or content.URL when baseURL is empty.
func (e *Extractor) Extract(content *fetcher.Content, baseURL string) (*Result, error) {
	if content == nil {
		return nil, &ExtractionError{URL: baseURL, Err: ErrNilContent}
	}
	if baseURL == "" {
		baseURL = content.URL
	}

	switch {
	case content.IsHTML():
		return e.extractHTML(content, baseURL)
	case strings.HasPrefix(content.MediaType(), "text/"):
		return extractText(content), nil
	default:
		return nil, &ExtractionError{URL: baseURL, ContentType: content.ContentType, Err: ErrUnsupportedContent}
	}
}

func (e *Extractor) extractHTML(content *fetcher.Content, baseURL string) (*Result, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, &ExtractionError{URL: baseURL, ContentType: content.ContentType, Err: fmt.Errorf("%w: invalid base URL: %v", ErrParse, err)}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content.Body))
	if err != nil {
		return nil, &ExtractionError{URL: baseURL, ContentType: content.ContentType, Err: fmt.Errorf("%w: %v", ErrParse, err)}
	}

	base = documentBase(doc, base)
	title := extractTitle(doc, content.Title)

	doc.Find(nonContentSelector).Remove()

	// Links come from the full document, navigation included.
	links := extractLinks(doc, base)
	absolutize(doc, base)

	body := doc.Find("body").First()
	fallback, err := render(body.Clone())
	if err != nil {
		return nil, &ExtractionError{URL: baseURL, ContentType: content.ContentType, Err: err}
	}

	primary := ""
	if e.readability {
		primary = readabilityMarkdown(content.Body, base)
	}
	if strings.TrimSpace(primary) == "" {
		doc.Find(boilerplateSelector).Remove()
		for _, sel := range e.excludeSelectors {
			doc.Find(sel).Remove()
		}
		primary, err = render(e.mainContent(doc))
		if err != nil {
			return nil, &ExtractionError{URL: baseURL, ContentType: content.ContentType, Err: err}
		}
	}

	return &Result{
		Title:    title,
		Markdown: model.Markdown{Primary: primary, Fallback: fallback},
		Links:    links,
	}, nil
}

// mainContent picks the main content region, falling back to <body>.
func (e *Extractor) mainContent(doc *goquery.Document) *goquery.Selection {
	if e.contentSelector != "" {
		if sel := doc.Find(e.contentSelector).First(); sel.Length() > 0 {
			return sel
		}
	}
	for _, s := range mainSelectors {
		if sel := doc.Find(s).First(); sel.Length() > 0 {
			return sel
		}
	}
	return doc.Find("body").First()
}

// extractTitle returns <title>, then the fetcher supplied title, then the
// first <h1>.
func extractTitle(doc *goquery.Document, fetched string) string {
	if t := collapse(doc.Find("head title").First().Text()); t != "" {
		return t
	}
	if t := collapse(doc.Find("title").First().Text()); t != "" {
		return t
	}
	if t := collapse(fetched); t != "" {
		return t
	}
	return collapse(doc.Find("h1").First().Text())
}

// extractText passes a plain text body through unchanged. A leading
// markdown heading in the first lines is used as the title.
func extractText(content *fetcher.Content) *Result {
	text := string(content.Body)
	title := ""
	for _, line := range strings.SplitN(text, "\n", 10) {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			title = strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
			break
		}
	}
	return &Result{
		Title:    title,
		Markdown: model.Markdown{Primary: text},
		Links:    []string{},
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
