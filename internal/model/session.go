package model

import (
	"time"
)

// Status summarizes how a site crawl ended.
type Status int

const (
	// StatusComplete means every processed page succeeded or was empty.
	StatusComplete Status = iota

	// StatusPartial means at least one page succeeded and at least one failed.
	StatusPartial

	// StatusFailed means no page succeeded. This is a reportable condition,
	// not a crash: the index is still written.
	StatusFailed
)

// String returns the lower-case name of the status.
func (s Status) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusPartial:
		return "partial"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session is the aggregate state of one crawl.
// It is created at crawl start, filled in by the assembler as pages
// complete, and finalized (sorted) before being written.
type Session struct {
	// RootURL is the seed URL as given by the user.
	RootURL string `json:"root_url"`

	// MaxDepth is the configured depth bound.
	MaxDepth int `json:"max_depth"`

	// MaxPages is the configured page bound.
	MaxPages int `json:"max_pages"`

	// Pages holds successful pages ordered by (depth, URL) once finalized.
	Pages []PageResult `json:"pages"`

	// Failures holds failed pages ordered by (depth, URL) once finalized.
	Failures []PageResult `json:"failures,omitempty"`

	// Errors is the number of failed pages.
	Errors int `json:"errors"`

	// Empty is the number of pages skipped for having no text.
	Empty int `json:"empty"`

	// StartedAt is when the crawl began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the crawl ended.
	FinishedAt time.Time `json:"finished_at"`

	// Cancelled is set when the crawl stopped early due to cancellation.
	Cancelled bool `json:"cancelled,omitempty"`

	// OutputDir is the per-domain directory the session was written to.
	OutputDir string `json:"output_dir,omitempty"`

	// IndexPath is the path of the written index file.
	IndexPath string `json:"index_path,omitempty"`

	// Err records a fatal error from a pipeline step.
	Err error `json:"-"`
}

// NewSession creates a session for the given seed and bounds.
func NewSession(rootURL string, maxDepth, maxPages int) *Session {
	return &Session{
		RootURL:   rootURL,
		MaxDepth:  maxDepth,
		MaxPages:  maxPages,
		Pages:     make([]PageResult, 0),
		StartedAt: time.Now(),
	}
}

// Processed returns the number of pages dispatched and finished,
// counting successes, failures, and empty pages.
func (s *Session) Processed() int {
	return len(s.Pages) + s.Errors + s.Empty
}

// TotalChars returns the character count of all successful pages.
func (s *Session) TotalChars() int {
	total := 0
	for _, p := range s.Pages {
		total += p.Chars
	}
	return total
}

// Status reports whether the crawl was complete, partial, or failed.
func (s *Session) Status() Status {
	switch {
	case len(s.Pages) == 0:
		return StatusFailed
	case s.Errors > 0:
		return StatusPartial
	default:
		return StatusComplete
	}
}

// Elapsed returns the crawl duration. It is zero until FinishedAt is set.
func (s *Session) Elapsed() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
