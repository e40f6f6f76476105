package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/mdcrawl/internal/config"
	"github.com/nao1215/mdcrawl/internal/database"
	"github.com/nao1215/mdcrawl/internal/model"
	"github.com/nao1215/mdcrawl/internal/pipeline"
	"github.com/nao1215/mdcrawl/internal/report"
	"github.com/spf13/cobra"
)

// errInterrupted is returned when a site crawl was stopped by a signal.
// Partial output has been written at that point.
var errInterrupted = errors.New("crawl interrupted")

// NewSiteCmd creates the site command.
func NewSiteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "site <url>...",
		Short: "Crawl a website breadth first and save every page as markdown",
		Long: `Site follows links from each seed URL breadth first, up to --depth link
hops and --max-pages pages, and writes:

  <output-dir>/<host>/index.md
  <output-dir>/<host>/pages/000_index.md
  <output-dir>/<host>/pages/001_guide_install.md
  ...

Pages that fail are counted in the index and never stop the crawl.
Only links on the seed's host are followed unless --include-external
is given.

Examples:
  # Crawl the documentation of a project
  mdcrawl site https://docs.example.com/

  # Two levels deep, at most 100 pages, one request per second
  mdcrawl site -d 2 -p 100 --delay 1s https://docs.example.com/

  # Crawl three sites, two at a time
  mdcrawl site -b 2 https://a.example/ https://b.example/ https://c.example/

Configuration file (.mdcrawl) example:
  sites:
    docs.example.com:
      cookie: "session_id=abc123"
      depth: 5
      ignorePatterns:
        - "/blog/*"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSiteCmd,
	}

	addFetchFlags(cmd)
	addCrawlFlags(cmd)

	return cmd
}

// runSiteCmd executes the site command.
func runSiteCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg)
	for _, msg := range cfg.Clamp() {
		logger.Warn("crawl limit adjusted", "detail", msg)
	}

	ctx, stop := signalContext(cmd.Context(), logger)
	defer stop()

	r := &siteRunner{
		cfg:    cfg,
		logger: logger,
		out:    &lockedWriter{w: cmd.OutOrStdout()},
		errOut: cmd.ErrOrStderr(),
	}

	if db := openHistory(cfg, logger); db != nil {
		defer db.Close()
		r.history = db
	}

	return r.run(ctx)
}

// siteRunner crawls the configured seeds.
type siteRunner struct {
	cfg     *config.Config
	logger  *slog.Logger
	out     io.Writer
	errOut  io.Writer
	history *database.HistoryDB
}

// run crawls the seeds sequentially or, with more than one seed and a batch
// size above one, concurrently. Errors of individual seeds are joined.
func (r *siteRunner) run(ctx context.Context) error {
	var err error
	if len(r.cfg.Targets) > 1 && r.cfg.BatchSize > 1 {
		err = r.runBatch(ctx)
	} else {
		err = r.runSequential(ctx)
	}

	if ctx.Err() != nil {
		return errInterrupted
	}
	return err
}

func (r *siteRunner) runSequential(ctx context.Context) error {
	var errs []error

	for _, seed := range r.cfg.Targets {
		if ctx.Err() != nil {
			break
		}

		settings := r.cfg.SettingsFor(seed)
		r.logPrevious(ctx, seed)
		fmt.Fprintf(r.out, "Deep crawling %s (depth=%d, max_pages=%d) ...\n",
			seed, settings.MaxDepth, settings.MaxPages)

		prog := newProgress(r.errOut, r.cfg.Quiet)
		session := model.NewSession(seed, settings.MaxDepth, settings.MaxPages)

		prog.Start()
		err := r.newPipeline(settings, prog).Execute(ctx, session)
		prog.Stop()

		if err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, fmt.Errorf("%s: %w", seed, err))
		}
	}

	return errors.Join(errs...)
}

// runBatch crawls seeds concurrently. The spinner is disabled because
// several sites report progress at once.
func (r *siteRunner) runBatch(ctx context.Context) error {
	fmt.Fprintf(r.out, "Deep crawling %d sites (concurrency: %d) ...\n",
		len(r.cfg.Targets), r.cfg.BatchSize)
	startTime := time.Now()

	bp := pipeline.NewBatchProcessor(
		func(seed string) *pipeline.Pipeline {
			return r.newPipeline(r.cfg.SettingsFor(seed), nil)
		},
		pipeline.WithConcurrency(r.cfg.BatchSize),
		pipeline.WithBatchLogger(r.logger),
	)

	var (
		mu   sync.Mutex
		errs []error
	)
	_ = bp.ProcessBatchWithCallback(ctx, r.cfg.Targets, func(session *model.Session, index int) {
		mu.Lock()
		defer mu.Unlock()

		fmt.Fprintf(r.out, "[%d/%d] Crawl finished: %s\n", index+1, len(r.cfg.Targets), session.RootURL)
		if session.Err != nil && !errors.Is(session.Err, context.Canceled) {
			errs = append(errs, fmt.Errorf("%s: %w", session.RootURL, session.Err))
		}
	})

	fmt.Fprintf(r.out, "\nBatch crawl completed in %s\n", time.Since(startTime).Round(time.Millisecond))

	return errors.Join(errs...)
}

// newPipeline builds crawl, write and record steps for one seed.
// A nil prog disables the spinner.
func (r *siteRunner) newPipeline(settings config.CrawlSettings, prog *progress) *pipeline.Pipeline {
	var summary report.Writer = report.NewSummaryWriter(r.out, report.WithVerbose(r.cfg.Verbose))

	crawlOpts := []pipeline.CrawlStepOption{pipeline.WithCrawlLogger(r.logger)}
	if prog != nil {
		crawlOpts = append(crawlOpts, pipeline.WithObserver(prog.Observe))
		summary = prog.Wrap(summary)
	}

	p := pipeline.New(pipeline.WithLogger(r.logger))
	p.AddSteps(
		pipeline.NewCrawlStep(r.cfg, settings, crawlOpts...),
		pipeline.NewWriteStep(report.NewMultiWriter(
			report.NewSiteWriter(r.cfg.OutputDir, report.WithLogger(r.logger)),
			summary,
		)),
	)
	if r.history != nil {
		p.AddStep(pipeline.NewRecordStep(r.history, r.logger))
	}
	return p
}

// logPrevious mentions the last recorded crawl of seed in verbose mode.
func (r *siteRunner) logPrevious(ctx context.Context, seed string) {
	if r.history == nil || !r.cfg.Verbose {
		return
	}
	rec, err := r.history.LatestSession(ctx, seed)
	if err != nil || rec == nil {
		return
	}
	r.logger.Debug("previous crawl found",
		"url", seed,
		"id", rec.ID,
		"pages", rec.Pages,
		"started", rec.StartedAt.Local().Format(time.DateTime),
	)
}
