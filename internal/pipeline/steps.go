package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nao1215/mdcrawl/internal/config"
	"github.com/nao1215/mdcrawl/internal/crawler"
	"github.com/nao1215/mdcrawl/internal/fetcher"
	"github.com/nao1215/mdcrawl/internal/model"
)

// CrawlStep crawls the session's site and replaces the session with the
// crawl result. Page failures are counted in the session and never make
// the step fail.
type CrawlStep struct {
	// cfg holds the global fetch options (user agent, body limit, browser).
	cfg *config.Config

	// settings are the effective settings for this seed.
	settings config.CrawlSettings

	// client is used by the HTTP fetcher. Nil means http.DefaultClient.
	client *http.Client

	// fetcher overrides the fetchers built from settings.
	fetcher fetcher.Fetcher

	// observer receives progress events.
	observer crawler.Observer

	// logger for structured logging.
	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithHTTPClient sets the HTTP client for page and robots.txt requests.
func WithHTTPClient(client *http.Client) CrawlStepOption {
	return func(s *CrawlStep) {
		s.client = client
	}
}

// WithFetcher replaces the fetchers selected by the fetch mode. The same
// fetcher is used for robots.txt.
func WithFetcher(f fetcher.Fetcher) CrawlStepOption {
	return func(s *CrawlStep) {
		s.fetcher = f
	}
}

// WithObserver sets the crawl progress observer.
func WithObserver(o crawler.Observer) CrawlStepOption {
	return func(s *CrawlStep) {
		s.observer = o
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a crawl step for one seed.
func NewCrawlStep(cfg *config.Config, settings config.CrawlSettings, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		cfg:      cfg,
		settings: settings,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step.
func (s *CrawlStep) Do(ctx context.Context, session *model.Session) error {
	pageFetcher, robotsFetcher := s.fetcher, s.fetcher
	if pageFetcher == nil {
		fetchers := NewFetchers(s.cfg, s.settings, s.client, s.logger)
		defer func() {
			if err := fetchers.Close(); err != nil {
				s.logger.Warn("failed to close browser", "error", err)
			}
		}()
		pageFetcher, robotsFetcher = fetchers.Page, fetchers.Plain
	}

	opts := SpiderOptions(s.settings)
	opts = append(opts, crawler.WithLogger(s.logger), crawler.WithObserver(s.observer))

	if s.settings.RespectRobots {
		robots, err := crawler.LoadRobots(ctx, robotsFetcher, s.settings.URL, config.RobotsAgent)
		if err != nil {
			s.logger.Warn("robots.txt unavailable, crawling without it",
				"url", s.settings.URL,
				"error", err,
			)
		} else {
			opts = append(opts, crawler.WithRobots(robots))
		}
	}

	s.logger.Info("crawling site",
		"url", s.settings.URL,
		"depth", s.settings.MaxDepth,
		"max_pages", s.settings.MaxPages,
		"mode", s.settings.Mode.String(),
	)

	crawled, err := crawler.NewSpider(pageFetcher, opts...).Crawl(ctx, s.settings.URL)
	if err != nil {
		return fmt.Errorf("failed to crawl %s: %w", s.settings.URL, err)
	}

	*session = *crawled
	return nil
}

// SessionWriter persists a finished session.
type SessionWriter interface {
	Write(session *model.Session) (int, error)
}

// WriteStep writes the session's pages and index. A failure is fatal
// because it means the output is unusable.
type WriteStep struct {
	writer SessionWriter
}

// NewWriteStep creates a write step.
func NewWriteStep(w SessionWriter) *WriteStep {
	return &WriteStep{writer: w}
}

// Name returns the step name.
func (s *WriteStep) Name() string {
	return "write"
}

// Final reports that partial crawls are still written.
func (s *WriteStep) Final() bool {
	return true
}

// Do executes the write step.
func (s *WriteStep) Do(_ context.Context, session *model.Session) error {
	if _, err := s.writer.Write(session); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// HistoryStore saves sessions to the crawl history.
type HistoryStore interface {
	SaveSession(ctx context.Context, session *model.Session) (int64, error)
}

// RecordStep saves the session to the crawl history. Failing to record is
// logged and does not fail the pipeline.
type RecordStep struct {
	store  HistoryStore
	logger *slog.Logger
}

// NewRecordStep creates a record step. A nil logger means slog.Default().
func NewRecordStep(store HistoryStore, logger *slog.Logger) *RecordStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordStep{store: store, logger: logger}
}

// Name returns the step name.
func (s *RecordStep) Name() string {
	return "record"
}

// Final reports that partial crawls are still recorded.
func (s *RecordStep) Final() bool {
	return true
}

// Do executes the record step.
func (s *RecordStep) Do(ctx context.Context, session *model.Session) error {
	id, err := s.store.SaveSession(context.WithoutCancel(ctx), session)
	if err != nil {
		s.logger.Warn("failed to record crawl history",
			"url", session.RootURL,
			"error", err,
		)
		return nil
	}

	s.logger.Debug("crawl recorded", "url", session.RootURL, "id", id)
	return nil
}
