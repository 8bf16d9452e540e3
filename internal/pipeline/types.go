// Package pipeline runs a fixed sequence of named steps over shared state.
//
// Any step may finish the run early. Steps run on the caller's goroutine in
// declaration order and the run is recorded step by step.
package pipeline

import (
	"context"
	"time"
)

// StepID uniquely identifies a step within a pipeline
type StepID string

// StepState represents the state of an individual step
type StepState string

const (
	StepStatePending   StepState = "pending"
	StepStateRunning   StepState = "running"
	StepStateCompleted StepState = "completed"
	StepStateHalted    StepState = "halted"
	StepStateFailed    StepState = "failed"
	StepStateSkipped   StepState = "skipped"
)

// StepResult represents the result of a step execution.
// Halt ends the run successfully; Error ends it with a failure.
type StepResult struct {
	Halt  bool
	Error error
}

// Continue is the result of a step that completed normally
func Continue() StepResult {
	return StepResult{}
}

// Halt is the result of a step that finished the run early
func Halt() StepResult {
	return StepResult{Halt: true}
}

// Fail is the result of a step that could not complete
func Fail(err error) StepResult {
	return StepResult{Error: err}
}

// Step is a single step over state of type T
type Step[T any] interface {
	ID() StepID
	Execute(ctx context.Context, state T) StepResult
}

// StepExecution represents the execution record of a step
type StepExecution struct {
	ID          StepID     `json:"id"`
	State       StepState  `json:"state"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Duration is zero for steps that never ran
func (e StepExecution) Duration() time.Duration {
	if e.StartedAt == nil || e.CompletedAt == nil {
		return 0
	}
	return e.CompletedAt.Sub(*e.StartedAt)
}

// Trace is the record of one run
type Trace struct {
	RunID       string          `json:"run_id"`
	Pipeline    string          `json:"pipeline"`
	Steps       []StepExecution `json:"steps"`
	HaltedAt    StepID          `json:"halted_at,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
}

// Step returns the record for id
func (t Trace) Step(id StepID) (StepExecution, bool) {
	for _, s := range t.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return StepExecution{}, false
}
