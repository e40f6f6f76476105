package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

// CrawlTarget is a URL discovered by the crawler together with the number
// of link hops from the seed URL. Targets are values and never change after
// creation.
type CrawlTarget struct {
	// URL is the absolute, normalized URL to fetch.
	URL string `json:"url"`

	// Depth is the number of link hops from the seed. The seed has depth 0.
	Depth int `json:"depth"`
}

// Outcome classifies how processing a page ended.
type Outcome int

const (
	// OutcomeSuccess means the page was fetched and produced markdown.
	OutcomeSuccess Outcome = iota

	// OutcomeFailed means fetching or extraction failed.
	OutcomeFailed

	// OutcomeEmpty means the page was fetched but contained no text.
	// Empty pages are neither successes nor errors and are not written.
	OutcomeEmpty
)

// String returns the lower-case name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	case OutcomeEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// ParseOutcome converts a stored outcome name back to an Outcome.
// Unknown names map to OutcomeFailed.
func ParseOutcome(s string) Outcome {
	switch s {
	case "success":
		return OutcomeSuccess
	case "empty":
		return OutcomeEmpty
	default:
		return OutcomeFailed
	}
}

// Markdown holds the two renderings produced by the extractor.
// Primary is the main content with boilerplate removed. Fallback is the
// rendering of the whole document body, used only when Primary is blank.
type Markdown struct {
	Primary  string
	Fallback string
}

// Resolve returns the markdown text to persist. It prefers Primary and
// falls back to Fallback. The result is never nil; it is empty when
// neither rendering contains text.
func (m Markdown) Resolve() string {
	if strings.TrimSpace(m.Primary) != "" {
		return m.Primary
	}
	if strings.TrimSpace(m.Fallback) != "" {
		return m.Fallback
	}
	return ""
}

// PageResult is the result of processing a single CrawlTarget.
type PageResult struct {
	// URL is the URL that was dispatched.
	URL string `json:"url"`

	// Title is the document title. Empty if the page had none.
	Title string `json:"title,omitempty"`

	// Content is the resolved markdown body.
	Content string `json:"-"`

	// Depth is copied from the CrawlTarget.
	Depth int `json:"depth"`

	// Size is the length of Content in bytes.
	Size int `json:"size"`

	// Chars is the number of characters (runes) in Content.
	Chars int `json:"chars"`

	// Outcome tells whether the page succeeded, failed, or was empty.
	Outcome Outcome `json:"outcome"`

	// Err holds the failure when Outcome is OutcomeFailed.
	Err error `json:"-"`

	// StatusCode is the HTTP status, or 0 if no response was received.
	StatusCode int `json:"status_code,omitempty"`

	// ContentType is the response content type.
	ContentType string `json:"content_type,omitempty"`

	// FetchedAt is when the fetch started.
	FetchedAt time.Time `json:"fetched_at"`

	// Duration is the time spent fetching and extracting.
	Duration time.Duration `json:"duration"`

	// Ordinal is the position of the page in the finalized index.
	// It is assigned by the assembler and is -1 for non-successful pages.
	Ordinal int `json:"ordinal"`
}

// NewPageResult builds a successful or empty result from extracted content.
// Whitespace-only content yields OutcomeEmpty.
func NewPageResult(target CrawlTarget, title, content string) PageResult {
	r := PageResult{
		URL:     target.URL,
		Title:   title,
		Content: content,
		Depth:   target.Depth,
		Size:    len(content),
		Chars:   utf8.RuneCountInString(content),
		Outcome: OutcomeSuccess,
		Ordinal: -1,
	}
	if strings.TrimSpace(content) == "" {
		r.Outcome = OutcomeEmpty
	}
	return r
}

// NewFailedResult builds a failed result for the target.
func NewFailedResult(target CrawlTarget, err error) PageResult {
	return PageResult{
		URL:     target.URL,
		Depth:   target.Depth,
		Outcome: OutcomeFailed,
		Err:     err,
		Ordinal: -1,
	}
}

// DisplayTitle returns the title, or the URL when the title is empty.
func (r PageResult) DisplayTitle() string {
	if t := strings.TrimSpace(r.Title); t != "" {
		return t
	}
	return r.URL
}

// ErrorMessage returns the error text, or an empty string.
func (r PageResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
