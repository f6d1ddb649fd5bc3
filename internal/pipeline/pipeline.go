package pipeline

import (
	"context"
	"log/slog"

	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/model"
)

// Step defines the interface that all pipeline stages must implement.
// Stages are executed in sequence, with each stage receiving the accumulated
// report from previous stages.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows stages to carry configuration state
// 2. It provides a Name() method for logging and debugging
// 3. It's more extensible for future features (e.g., resume, dry-run)
type Step interface {
	// Do executes the pipeline stage.
	// It receives the context for cancellation, and the report to modify.
	// Returns an error if the stage fails critically; non-critical errors
	// should be recorded in the report and return nil.
	Do(ctx context.Context, report *model.MirrorReport) error

	// Name returns the stage's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of the mirror stages for one root URL.
// It maintains an ordered list of stages and executes them in sequence.
type Pipeline struct {
	// steps contains the ordered list of stages to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing stages
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, a default logger is created.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution even
// when a stage fails. Failed stages are logged and their errors recorded in
// the report, but subsequent stages still execute.
//
// Design decision: The default is to stop on error because the stages feed
// each other: a failed crawl leaves nothing to download, and a failed
// download pass leaves little worth decoding. Continue mode exists for
// re-runs over a partially populated mirror, where decoding what did arrive
// is still useful.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Stages should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:           make([]Step, 0),
		continueOnError: false,
	}

	// Apply options
	for _, opt := range opts {
		opt(p)
	}

	// Set default logger if not provided
	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a stage to the pipeline.
// Stages are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple stages to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline stages in sequence.
// It respects context cancellation and logs each stage's execution.
//
// Design decision: We check context.Done() before each stage rather than
// during, because stages manage their own worker pools and timeouts. This
// allows graceful cleanup between stages while still respecting
// cancellation.
//
// Returns the first error encountered if continueOnError is false,
// or nil if all stages complete (errors are recorded in the report).
func (p *Pipeline) Execute(ctx context.Context, report *model.MirrorReport) error {
	for _, step := range p.steps {
		// Check for cancellation before starting each stage
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			report.Error = ctx.Err()
			report.ErrorMessage = ctx.Err().Error()
			return ctx.Err()
		default:
			// Continue with execution
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"root", report.RootURL,
		)

		// Execute the stage
		if err := step.Do(ctx, report); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"root", report.RootURL,
				"error", err,
			)

			// Record the error in the report
			report.Error = err
			report.ErrorMessage = err.Error()

			// Stop or continue based on configuration
			if !p.continueOnError {
				return err
			}
		} else {
			p.logger.Debug("step completed",
				"step", step.Name(),
				"root", report.RootURL,
			)
		}
	}

	return nil
}

// StepCount returns the number of stages in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all stages in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
