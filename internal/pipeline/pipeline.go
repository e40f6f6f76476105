package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/mdcrawl/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each receiving the session produced by
// the previous steps.
type Step interface {
	// Do executes the pipeline step.
	// It returns an error if the step fails critically; non-critical
	// problems should be logged or recorded in the session and return nil.
	Do(ctx context.Context, session *model.Session) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Finalizer is implemented by steps that still run after the context is
// cancelled, so that a partial crawl is written and recorded.
type Finalizer interface {
	Step
	Final() bool
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. The first error is still kept in the session.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
//
// Cancellation is checked before every step. Once ctx is done, only steps
// implementing Finalizer with Final() == true are run, and the session is
// marked cancelled. Execute returns the first step error when
// continueOnError is false, ctx.Err() after a cancellation, or nil.
func (p *Pipeline) Execute(ctx context.Context, session *model.Session) error {
	var firstErr error

	for _, step := range p.steps {
		if ctx.Err() != nil {
			if !isFinal(step) {
				p.logger.Debug("skipping step after cancellation",
					"step", step.Name(),
					"url", session.RootURL,
				)
				session.Cancelled = true
				continue
			}
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"url", session.RootURL,
		)

		if err := step.Do(ctx, session); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"url", session.RootURL,
				"error", err,
			)

			if session.Err == nil {
				session.Err = err
			}
			if firstErr == nil {
				firstErr = err
			}
			if !p.continueOnError {
				return err
			}
			continue
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"url", session.RootURL,
		)
	}

	if firstErr != nil {
		return firstErr
	}
	if session.Cancelled && ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

func isFinal(step Step) bool {
	f, ok := step.(Finalizer)
	return ok && f.Final()
}
