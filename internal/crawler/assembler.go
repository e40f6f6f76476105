package crawler

import (
	"sort"
	"sync"
	"time"

	"github.com/nao1215/mdcrawl/internal/model"
)

// Assembler collects page results from concurrent workers into a session.
type Assembler struct {
	mu       sync.Mutex
	session  *model.Session
	pages    []model.PageResult
	failures []model.PageResult
	empty    int
}

// NewAssembler creates an assembler that fills the given session.
func NewAssembler(session *model.Session) *Assembler {
	return &Assembler{
		session: session,
		pages:   make([]model.PageResult, 0),
	}
}

// Add records one result. Empty pages are counted but not kept.
func (a *Assembler) Add(r model.PageResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch r.Outcome {
	case model.OutcomeSuccess:
		a.pages = append(a.pages, r)
	case model.OutcomeFailed:
		a.failures = append(a.failures, r)
	case model.OutcomeEmpty:
		a.empty++
	}
}

// Counts returns the number of successful, failed and empty results so far.
func (a *Assembler) Counts() (pages, errors, empty int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pages), len(a.failures), a.empty
}

// Finalize sorts the results by (depth, URL), assigns ordinals to the
// successful pages in that order, and stores everything in the session.
func (a *Assembler) Finalize() *model.Session {
	a.mu.Lock()
	defer a.mu.Unlock()

	sortResults(a.pages)
	sortResults(a.failures)
	for i := range a.pages {
		a.pages[i].Ordinal = i
	}

	a.session.Pages = a.pages
	a.session.Failures = a.failures
	a.session.Errors = len(a.failures)
	a.session.Empty = a.empty
	a.session.FinishedAt = time.Now()
	return a.session
}

func sortResults(results []model.PageResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Depth != results[j].Depth {
			return results[i].Depth < results[j].Depth
		}
		return results[i].URL < results[j].URL
	})
}
