package crawler

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/nao1215/mdcrawl/internal/model"
)

// State is the lifecycle of a URL in the frontier.
type State int

const (
	// StateDiscovered is a URL seen as a link but not yet admitted.
	StateDiscovered State = iota
	// StateQueued is admitted and waiting for dispatch.
	StateQueued
	// StateInFlight is being fetched.
	StateInFlight
	// StateCompleted was fetched and extracted (including empty pages).
	StateCompleted
	// StateFailed could not be fetched or extracted.
	StateFailed
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateQueued:
		return "queued"
	case StateInFlight:
		return "in-flight"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Frontier is the single coordination point of a crawl. It owns the visited
// set, the per-depth queues, and the admission counter. All methods are safe
// for concurrent use.
type Frontier struct {
	// root is the normalized seed URL.
	root *url.URL

	// maxDepth is the deepest level admitted. The seed is depth 0.
	maxDepth int

	// maxPages caps the number of admitted URLs, the seed included.
	maxPages int

	// includeExternal admits links to other hosts.
	includeExternal bool

	// filter applies the ignore/follow path patterns to links.
	filter PathFilter

	// robots rejects disallowed paths. Nil allows everything.
	robots *Robots

	mu       sync.Mutex
	visited  map[string]State
	queues   map[int][]model.CrawlTarget
	enqueued int
}

// FrontierOption configures a Frontier.
type FrontierOption func(*Frontier)

// WithExternal admits links to other hosts.
func WithExternal(include bool) FrontierOption {
	return func(f *Frontier) {
		f.includeExternal = include
	}
}

// WithPathFilter sets the ignore/follow patterns.
func WithPathFilter(filter PathFilter) FrontierOption {
	return func(f *Frontier) {
		f.filter = filter
	}
}

// WithRobotsRules sets the robots.txt rules.
func WithRobotsRules(r *Robots) FrontierOption {
	return func(f *Frontier) {
		f.robots = r
	}
}

// NewFrontier creates a frontier for the seed URL and bounds.
func NewFrontier(rootURL string, maxDepth, maxPages int, opts ...FrontierOption) (*Frontier, error) {
	normalized, err := Normalize(rootURL)
	if err != nil {
		return nil, err
	}
	root, _ := url.Parse(normalized)

	f := &Frontier{
		root:     root,
		maxDepth: maxDepth,
		maxPages: maxPages,
		visited:  make(map[string]State),
		queues:   make(map[int][]model.CrawlTarget),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Root returns the normalized seed URL.
func (f *Frontier) Root() string {
	return f.root.String()
}

// Offer admits a URL at the given depth. The duplicate check, the page
// limit check, the insertion and the counter increment happen under one
// lock, so two workers offering the same link admit it once.
func (f *Frontier) Offer(rawURL string, depth int) (model.CrawlTarget, error) {
	normalized, err := Normalize(rawURL)
	if err != nil {
		return model.CrawlTarget{}, err
	}
	if depth > f.maxDepth {
		return model.CrawlTarget{}, ErrTooDeep
	}

	u, _ := url.Parse(normalized)
	if !f.includeExternal && !sameAuthority(u, f.root) {
		return model.CrawlTarget{}, ErrExternal
	}
	if depth > 0 && !f.filter.Allow(u.Path) {
		return model.CrawlTarget{}, ErrFiltered
	}
	if !f.robots.Allowed(u.RequestURI()) {
		return model.CrawlTarget{}, ErrDisallowed
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if state, ok := f.visited[normalized]; ok && state != StateDiscovered {
		return model.CrawlTarget{}, ErrDuplicate
	}
	if f.enqueued >= f.maxPages {
		f.visited[normalized] = StateDiscovered
		return model.CrawlTarget{}, ErrLimitExceeded
	}

	target := model.CrawlTarget{URL: normalized, Depth: depth}
	f.visited[normalized] = StateQueued
	f.queues[depth] = append(f.queues[depth], target)
	f.enqueued++
	return target, nil
}

// Take removes and returns every queued target at depth, in admission order.
func (f *Frontier) Take(depth int) []model.CrawlTarget {
	f.mu.Lock()
	defer f.mu.Unlock()

	level := f.queues[depth]
	delete(f.queues, depth)
	return level
}

// Start marks a target as in flight.
func (f *Frontier) Start(target model.CrawlTarget) {
	f.setState(target.URL, StateInFlight)
}

// Finish marks a target as completed or failed.
func (f *Frontier) Finish(target model.CrawlTarget, ok bool) {
	if ok {
		f.setState(target.URL, StateCompleted)
		return
	}
	f.setState(target.URL, StateFailed)
}

func (f *Frontier) setState(u string, s State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visited[u] = s
}

// State returns the state of a URL. The boolean is false for unknown URLs.
func (f *Frontier) State(rawURL string) (State, bool) {
	normalized, err := Normalize(rawURL)
	if err != nil {
		return StateDiscovered, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.visited[normalized]
	return s, ok
}

// Enqueued returns the number of admitted URLs.
func (f *Frontier) Enqueued() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enqueued
}

// Pending returns the number of targets still queued at any depth.
func (f *Frontier) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, q := range f.queues {
		n += len(q)
	}
	return n
}

// Normalize returns the canonical form of an http(s) URL used for
// deduplication: lower-case scheme and host, default port removed,
// fragment removed, empty path as "/".
func Normalize(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q in %s", ErrInvalidURL, u.Scheme, rawURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host in %s", ErrInvalidURL, rawURL)
	}

	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		host += ":" + port
	}
	u.Host = host

	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// sameAuthority compares host and port case-insensitively.
func sameAuthority(a, b *url.URL) bool {
	return strings.EqualFold(a.Host, b.Host)
}
