package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nao1215/mdcrawl/internal/extractor"
	"github.com/nao1215/mdcrawl/internal/fetcher"
	"github.com/nao1215/mdcrawl/internal/model"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	// DefaultMaxDepth is the default link depth.
	DefaultMaxDepth = 3

	// DefaultMaxPages is the default page budget.
	DefaultMaxPages = 50

	// DefaultConcurrency is the default number of parallel fetches.
	DefaultConcurrency = 5

	// DefaultTaskTimeout bounds fetch plus extraction of one page.
	DefaultTaskTimeout = 60 * time.Second
)

// EventKind identifies a progress event.
type EventKind int

const (
	// EventDispatch is emitted when a target is handed to a worker.
	EventDispatch EventKind = iota
	// EventComplete is emitted when a worker finishes a target.
	EventComplete
)

// Event reports crawl progress to an Observer.
type Event struct {
	// Kind is the event type.
	Kind EventKind

	// Target is the page the event refers to.
	Target model.CrawlTarget

	// Result is set for EventComplete.
	Result *model.PageResult

	// Pages, Errors and Empty are the assembler counts at the time of the event.
	Pages, Errors, Empty int

	// Enqueued is the number of URLs admitted so far.
	Enqueued int
}

// Observer receives progress events. It is called from worker goroutines
// and must be safe for concurrent use.
type Observer func(Event)

// Spider crawls a site breadth first with a bounded worker pool.
// Every target at depth d is dispatched before any target at depth d+1.
type Spider struct {
	// fetcher retrieves pages.
	fetcher fetcher.Fetcher

	// extractor converts pages to markdown and finds links.
	extractor *extractor.Extractor

	// maxDepth is the deepest level crawled. The seed page is depth 0.
	maxDepth int

	// maxPages limits the number of pages dispatched, the seed included.
	maxPages int

	// concurrency is the worker pool size.
	concurrency int

	// delay is the minimum interval between dispatches.
	delay time.Duration

	// taskTimeout bounds one page after cancellation so in-flight work drains.
	taskTimeout time.Duration

	// includeExternal follows links to other hosts.
	includeExternal bool

	// ignorePatterns are path globs to skip (e.g. "/blog/*", "*.zip").
	ignorePatterns []string

	// followPatterns restrict crawling to matching paths when set.
	followPatterns []string

	// robots holds robots.txt rules. Nil allows everything.
	robots *Robots

	// observer receives progress events. May be nil.
	observer Observer

	// logger receives debug output.
	logger *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages sets the maximum number of pages.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithConcurrency sets the number of parallel fetches.
func WithConcurrency(n int) SpiderOption {
	return func(s *Spider) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithDelay sets the minimum interval between dispatches.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithTaskTimeout bounds fetch plus extraction of a single page.
func WithTaskTimeout(d time.Duration) SpiderOption {
	return func(s *Spider) {
		if d > 0 {
			s.taskTimeout = d
		}
	}
}

// WithIncludeExternal follows links to other hosts.
func WithIncludeExternal(include bool) SpiderOption {
	return func(s *Spider) {
		s.includeExternal = include
	}
}

// WithIgnorePatterns sets URL path patterns to skip.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns restricts crawling to matching URL paths.
// An empty slice allows all paths.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithRobots applies robots.txt rules. Their Crawl-delay raises the
// dispatch delay when it is longer.
func WithRobots(r *Robots) SpiderOption {
	return func(s *Spider) {
		s.robots = r
	}
}

// WithExtractor sets the content extractor.
func WithExtractor(e *extractor.Extractor) SpiderOption {
	return func(s *Spider) {
		if e != nil {
			s.extractor = e
		}
	}
}

// WithObserver sets the progress observer.
func WithObserver(o Observer) SpiderOption {
	return func(s *Spider) {
		s.observer = o
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSpider creates a Spider that fetches pages with f.
func NewSpider(f fetcher.Fetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:     f,
		extractor:   extractor.New(),
		maxDepth:    DefaultMaxDepth,
		maxPages:    DefaultMaxPages,
		concurrency: DefaultConcurrency,
		taskTimeout: DefaultTaskTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Crawl crawls from rootURL and returns the finalized session.
// Page failures never make Crawl fail; they are counted in the session.
// When ctx is cancelled no new page is dispatched, pages already in
// flight finish, and the partial session is returned with Cancelled set.
func (s *Spider) Crawl(ctx context.Context, rootURL string) (*model.Session, error) {
	frontier, err := NewFrontier(rootURL, s.maxDepth, s.maxPages,
		WithExternal(s.includeExternal),
		WithPathFilter(PathFilter{Ignore: s.ignorePatterns, Follow: s.followPatterns}),
		WithRobotsRules(s.robots),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid root URL: %w", err)
	}

	// The session keeps the seed as typed for display; the frontier works on
	// its normalized form.
	session := model.NewSession(strings.TrimSpace(rootURL), s.maxDepth, s.maxPages)
	asm := NewAssembler(session)

	rootTarget := model.CrawlTarget{URL: frontier.Root(), Depth: 0}
	if _, err := frontier.Offer(rootTarget.URL, 0); err != nil {
		s.logger.Warn("root URL not admitted", "url", rootTarget.URL, "reason", err)
		asm.Add(model.NewFailedResult(rootTarget, err))
		return asm.Finalize(), nil
	}

	limiter := s.limiter()

	for depth := 0; depth <= s.maxDepth; depth++ {
		level := frontier.Take(depth)
		if len(level) == 0 {
			break
		}
		s.logger.Debug("crawling level", "depth", depth, "targets", len(level))

		if stopped := s.crawlLevel(ctx, frontier, asm, limiter, level); stopped {
			session.Cancelled = true
			break
		}
	}

	return asm.Finalize(), nil
}

// Page fetches and extracts a single URL without following its links.
// Fetch and extraction failures are returned as errors; the result still
// carries the status code and timing of the failed attempt.
func (s *Spider) Page(ctx context.Context, rawURL string) (model.PageResult, error) {
	normalized, err := Normalize(rawURL)
	if err != nil {
		return model.PageResult{}, fmt.Errorf("invalid URL: %w", err)
	}

	result, _ := s.process(ctx, model.CrawlTarget{URL: normalized, Depth: 0})
	if result.Outcome == model.OutcomeFailed {
		return result, result.Err
	}
	return result, nil
}

// crawlLevel dispatches one level and waits for it. It reports whether
// dispatch stopped early because ctx was cancelled.
func (s *Spider) crawlLevel(ctx context.Context, frontier *Frontier, asm *Assembler, limiter *rate.Limiter, level []model.CrawlTarget) bool {
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	stopped := false
	for _, target := range level {
		if ctx.Err() != nil {
			stopped = true
			break
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				stopped = true
				break
			}
		}

		frontier.Start(target)
		s.emit(Event{Kind: EventDispatch, Target: target, Enqueued: frontier.Enqueued()}, asm)

		g.Go(func() error {
			result, links := s.process(ctx, target)
			frontier.Finish(target, result.Outcome != model.OutcomeFailed)

			if result.Outcome != model.OutcomeFailed && target.Depth < s.maxDepth {
				s.offerLinks(frontier, links, target.Depth+1)
			}

			asm.Add(result)
			s.emit(Event{Kind: EventComplete, Target: target, Result: &result, Enqueued: frontier.Enqueued()}, asm)
			return nil
		})
	}

	_ = g.Wait()
	return stopped
}

// process fetches and extracts one target. The work runs detached from
// ctx cancellation and is bounded by the task timeout instead.
func (s *Spider) process(ctx context.Context, target model.CrawlTarget) (model.PageResult, []string) {
	taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.taskTimeout)
	defer cancel()

	started := time.Now()
	content, err := s.fetcher.Fetch(taskCtx, target.URL)
	if err != nil {
		s.logger.Debug("fetch failed", "url", target.URL, "error", err)
		result := model.NewFailedResult(target, err)
		var fe *fetcher.FetchError
		if errors.As(err, &fe) {
			result.StatusCode = fe.StatusCode
		}
		result.FetchedAt = started
		result.Duration = time.Since(started)
		return result, nil
	}

	extracted, err := s.extractor.Extract(content, content.URL)
	if err != nil {
		s.logger.Debug("extraction failed", "url", target.URL, "error", err)
		result := model.NewFailedResult(target, err)
		result.StatusCode = content.StatusCode
		result.ContentType = content.ContentType
		result.FetchedAt = started
		result.Duration = time.Since(started)
		return result, nil
	}

	result := model.NewPageResult(target, extracted.Title, extracted.Content())
	result.StatusCode = content.StatusCode
	result.ContentType = content.ContentType
	result.FetchedAt = started
	result.Duration = time.Since(started)

	s.logger.Debug("page done", "url", target.URL, "depth", target.Depth,
		"outcome", result.Outcome.String(), "chars", result.Chars, "links", len(extracted.Links))
	return result, extracted.Links
}

// offerLinks admits discovered links at depth.
func (s *Spider) offerLinks(frontier *Frontier, links []string, depth int) {
	for _, link := range links {
		if _, err := frontier.Offer(link, depth); err != nil {
			if !errors.Is(err, ErrDuplicate) {
				s.logger.Debug("link not admitted", "url", link, "reason", err)
			}
		}
	}
}

// limiter returns a dispatch rate limiter, or nil when there is no delay.
func (s *Spider) limiter() *rate.Limiter {
	delay := s.delay
	if d := s.robots.CrawlDelay(); d > delay {
		delay = d
	}
	if delay <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

func (s *Spider) emit(e Event, asm *Assembler) {
	if s.observer == nil {
		return
	}
	e.Pages, e.Errors, e.Empty = asm.Counts()
	s.observer(e)
}
