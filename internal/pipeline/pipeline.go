package pipeline

import (
	"context"
	"log/slog"

	"github.com/crawlscope/crawlscope/internal/model"
)

// Job carries the state of one crawl through the pipeline.
// The crawl step populates Report; later steps consume it.
type Job struct {
	// Seed is the URL the crawl starts from.
	Seed string

	// Report holds the crawl results once the crawl step has run.
	Report *model.CrawlReport
}

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the job
// accumulated by previous steps.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry configuration state
// 2. It provides a Name() method for logging and debugging
// 3. It's more extensible for future features (e.g., priority, dependencies)
type Step interface {
	// Do executes the pipeline step.
	// It receives the context for cancellation, and the job to modify.
	// Returns an error if the step fails critically; non-critical errors
	// should be recorded in the job's report and return nil.
	Do(ctx context.Context, job *Job) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
// It maintains a list of steps and executes them in order.
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
// This follows the functional options pattern for clean API design.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, a default logger is created.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. Failed steps are logged, but subsequent
// steps still execute.
//
// Design decision: This option exists because a report that failed to
// write in one format should still be written in the others. The default
// is to stop on error because early failures often indicate fundamental
// problems (e.g., an invalid seed URL).
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:           make([]Step, 0),
		continueOnError: false,
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
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
//
// Design decision: Cancellation stops the crawl but not the reporting.
// When the context is cancelled mid-pipeline, remaining steps still run
// with a detached context so partial results are written and persisted;
// the context error is returned at the end so callers can surface the
// interruption.
func (p *Pipeline) Execute(ctx context.Context, job *Job) error {
	var cancelled error

	for _, step := range p.steps {
		stepCtx := ctx
		if cancelled == nil {
			select {
			case <-ctx.Done():
				cancelled = ctx.Err()
				p.logger.Warn("pipeline cancelled, finishing with partial results",
					"step", step.Name(),
					"reason", cancelled,
				)
				if job.Report != nil {
					job.Report.Interrupted = true
				}
			default:
			}
		}
		if cancelled != nil {
			stepCtx = context.WithoutCancel(ctx)
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"seed", job.Seed,
		)

		if err := step.Do(stepCtx, job); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"seed", job.Seed,
				"error", err,
			)

			if !p.continueOnError {
				return err
			}
			continue
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"seed", job.Seed,
		)
	}

	return cancelled
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
