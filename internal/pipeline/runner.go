package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Runner executes steps sequentially
type Runner[T any] struct {
	name   string
	steps  []Step[T]
	logger *zap.Logger
}

// NewRunner creates a runner for the named pipeline
func NewRunner[T any](name string, logger *zap.Logger, steps ...Step[T]) *Runner[T] {
	return &Runner[T]{
		name:   name,
		steps:  steps,
		logger: logger,
	}
}

// StepIDs returns the step ids in execution order
func (r *Runner[T]) StepIDs() []StepID {
	ids := make([]StepID, len(r.steps))
	for i, step := range r.steps {
		ids[i] = step.ID()
	}
	return ids
}

// Run executes each step until one halts or fails.
// The returned error is the failing step's error, wrapped with its id.
func (r *Runner[T]) Run(ctx context.Context, runID string, state T) (Trace, error) {
	trace := Trace{
		RunID:     runID,
		Pipeline:  r.name,
		Steps:     make([]StepExecution, len(r.steps)),
		StartedAt: time.Now(),
	}
	for i, step := range r.steps {
		trace.Steps[i] = StepExecution{ID: step.ID(), State: StepStatePending}
	}

	logger := r.logger.With(zap.String("pipeline", r.name), zap.String("runID", runID))

	var runErr error
	for i, step := range r.steps {
		if trace.HaltedAt != "" || runErr != nil {
			trace.Steps[i].State = StepStateSkipped
			continue
		}

		result := r.executeStep(ctx, step, state, &trace.Steps[i])

		switch {
		case result.Error != nil:
			logger.Error("Step failed",
				zap.String("stepID", string(step.ID())),
				zap.Error(result.Error))
			runErr = fmt.Errorf("%s: %w", step.ID(), result.Error)
		case result.Halt:
			logger.Info("Step finished the run early", zap.String("stepID", string(step.ID())))
			trace.HaltedAt = step.ID()
		default:
			logger.Debug("Step completed",
				zap.String("stepID", string(step.ID())),
				zap.Duration("duration", trace.Steps[i].Duration()))
		}
	}

	trace.CompletedAt = time.Now()
	return trace, runErr
}

// executeStep runs one step and records its timing and outcome
func (r *Runner[T]) executeStep(ctx context.Context, step Step[T], state T, exec *StepExecution) StepResult {
	now := time.Now()
	exec.State = StepStateRunning
	exec.StartedAt = &now

	result := step.Execute(ctx, state)

	done := time.Now()
	exec.CompletedAt = &done

	switch {
	case result.Error != nil:
		exec.State = StepStateFailed
		exec.Error = result.Error.Error()
	case result.Halt:
		exec.State = StepStateHalted
	default:
		exec.State = StepStateCompleted
	}
	return result
}
