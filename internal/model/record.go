package model

import "time"

// CrawlRecord is the persisted summary of a finished Session.
// It is what the history database stores and lists.
type CrawlRecord struct {
	ID         int64
	RootURL    string
	Status     Status
	Pages      int
	Errors     int
	Empty      int
	TotalChars int
	MaxDepth   int
	MaxPages   int
	Cancelled  bool
	OutputDir  string
	IndexPath  string
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewCrawlRecord summarizes a session. The ID is left zero; it is assigned
// by the store on insert.
func NewCrawlRecord(s *Session) CrawlRecord {
	return CrawlRecord{
		RootURL:    s.RootURL,
		Status:     s.Status(),
		Pages:      len(s.Pages),
		Errors:     s.Errors,
		Empty:      s.Empty,
		TotalChars: s.TotalChars(),
		MaxDepth:   s.MaxDepth,
		MaxPages:   s.MaxPages,
		Cancelled:  s.Cancelled,
		OutputDir:  s.OutputDir,
		IndexPath:  s.IndexPath,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
	}
}

// Elapsed returns the crawl duration.
func (r CrawlRecord) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ParseStatus converts a stored status name back to a Status.
// Unknown names map to StatusFailed.
func ParseStatus(s string) Status {
	switch s {
	case "complete":
		return StatusComplete
	case "partial":
		return StatusPartial
	default:
		return StatusFailed
	}
}
