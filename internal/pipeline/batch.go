package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/mdcrawl/internal/model"
	"golang.org/x/sync/errgroup"
)

// defaultBatchConcurrency crawls one site at a time. Each site already
// runs its own worker pool.
const defaultBatchConcurrency = 1

// PipelineFactory builds a fresh pipeline for one seed URL, so that site
// specific settings and fetchers never leak between seeds.
type PipelineFactory func(seed string) *Pipeline

// BatchProcessor crawls several seed URLs with bounded concurrency.
type BatchProcessor struct {
	// factory creates the pipeline for each seed.
	factory PipelineFactory

	// concurrency is the maximum number of sites crawled at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed sessions in seed order.
	results []*model.Session
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of sites crawled at once.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(factory PipelineFactory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: defaultBatchConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch crawls every seed and returns the sessions in seed order.
// A seed that was not started because ctx was cancelled has a nil entry.
// Step errors are kept in Session.Err and do not stop the other seeds;
// the returned error is only non-nil after cancellation.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, seeds []string) ([]*model.Session, error) {
	bp.results = make([]*model.Session, len(seeds))

	err := bp.ProcessBatchWithCallback(ctx, seeds, func(session *model.Session, index int) {
		bp.mu.Lock()
		bp.results[index] = session
		bp.mu.Unlock()
	})

	return bp.results, err
}

// ProcessBatchWithCallback crawls every seed and calls callback for each
// finished session with the seed's index. The callback is called from the
// goroutine that ran the pipeline and must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	seeds []string,
	callback func(session *model.Session, index int),
) error {
	bp.logger.Debug("starting batch",
		"sites", len(seeds),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, seed := range seeds {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			bp.logger.Debug("crawling seed",
				"url", seed,
				"index", i+1,
				"total", len(seeds),
			)

			session := model.NewSession(seed, 0, 0)
			if err := bp.factory(seed).Execute(ctx, session); err != nil {
				bp.logger.Warn("site crawl failed", "url", seed, "error", err)
			}

			callback(session, i)
			return nil
		})
	}

	_ = g.Wait()

	bp.logger.Debug("batch complete",
		"sites", len(seeds),
		"elapsed", time.Since(startTime),
	)

	return ctx.Err()
}
