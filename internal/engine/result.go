package engine

import "github.com/advisordesk/orchestrator/internal/models"

// ResultKind discriminates the four step outcomes.
type ResultKind string

const (
	ResultCompleted ResultKind = "completed"
	ResultWaiting   ResultKind = "waiting"
	ResultFailed    ResultKind = "failed"
	ResultContinue  ResultKind = "continue"
)

// StepResult is what a step handler returns. Handlers are pure functions
// over a task value: they never mutate the task or touch the store, they
// return the state delta for the driver to merge and persist.
type StepResult struct {
	Kind ResultKind

	// Delta is merged into the task's workflow state on any outcome.
	Delta map[string]interface{}

	// NextStep is set for Continue.
	NextStep models.Step

	// WaitFor and WaitCriteria are set for Waiting.
	WaitFor      models.WaitKind
	WaitCriteria map[string]interface{}

	// FailureReason and Retryable are set for Failed. A non-retryable
	// failure finalizes the task regardless of remaining retry budget.
	FailureReason string
	Retryable     bool

	// Response is the human-readable outcome summary surfaced to the user.
	Response string
}

// Completed builds a terminal-success result.
func Completed(delta map[string]interface{}, response string) StepResult {
	return StepResult{Kind: ResultCompleted, Delta: delta, Response: response}
}

// Waiting builds a suspend result with resume-matching criteria.
func Waiting(kind models.WaitKind, criteria, delta map[string]interface{}, response string) StepResult {
	return StepResult{
		Kind:         ResultWaiting,
		WaitFor:      kind,
		WaitCriteria: criteria,
		Delta:        delta,
		Response:     response,
	}
}

// Failed builds a failure result.
func Failed(reason string, retryable bool) StepResult {
	return StepResult{Kind: ResultFailed, FailureReason: reason, Retryable: retryable}
}

// ContinueTo builds a result that chains straight into the next step.
func ContinueTo(next models.Step, delta map[string]interface{}) StepResult {
	return StepResult{Kind: ResultContinue, NextStep: next, Delta: delta}
}
