package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusWaiting    TaskStatus = "waiting"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether the status permits no further mutation.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// WaitKind names the external event that resumes a waiting task.
type WaitKind string

const (
	WaitEmailReply       WaitKind = "email_reply"
	WaitCalendarResponse WaitKind = "calendar_response"
	WaitExternalApproval WaitKind = "external_approval"
	WaitScheduledTime    WaitKind = "scheduled_time"
	WaitUserInput        WaitKind = "user_input"
)

// WorkflowType classifies the step sequence a task follows.
type WorkflowType string

const (
	WorkflowFollowUp     WorkflowType = "communication_follow_up"
	WorkflowMeeting      WorkflowType = "meeting_coordination"
	WorkflowInfoGather   WorkflowType = "information_gathering"
	WorkflowSimpleAction WorkflowType = "simple_action"
)

// Purpose drives outbound content generation for the email step.
type Purpose string

const (
	PurposeAvailabilityCheck    Purpose = "availability_check"
	PurposeFollowUp             Purpose = "follow_up"
	PurposeMeetingRequest       Purpose = "meeting_request"
	PurposeInfoSharing          Purpose = "information_sharing"
	PurposeGeneralCommunication Purpose = "general_communication"
)

// Step is one discrete unit of task execution.
type Step string

const (
	StepSendEmail           Step = "send_email"
	StepProcessReply        Step = "process_reply"
	StepCreateCalendarEvent Step = "create_calendar_event"
)

// DefaultMaxRetries bounds re-execution of a recoverable failing step.
const DefaultMaxRetries = 3

var (
	// ErrTerminalTask is returned when mutating a completed or failed task.
	ErrTerminalTask = errors.New("task is terminal")
	// ErrWaitKindMissing is returned for a waiting task without a wait kind.
	ErrWaitKindMissing = errors.New("waiting task has no wait kind")
)

// Task is the durable record of a multi-step user request and its
// execution progress. Mutation happens exclusively through the workflow
// engine's drive loop; the store enforces serialization with an optimistic
// revision compared-and-swapped on every update.
type Task struct {
	ID              uuid.UUID    `db:"id" json:"id"`
	UserID          string       `db:"user_id" json:"user_id"`
	Status          TaskStatus   `db:"status" json:"status"`
	TaskType        WorkflowType `db:"task_type" json:"task_type"`
	OriginalRequest string       `db:"original_request" json:"original_request"`

	// WorkflowState accumulates step data across the task's lifetime.
	// Keys are only ever added or overwritten, never removed.
	WorkflowState map[string]interface{} `db:"workflow_state" json:"workflow_state"`

	StepsCompleted []string  `db:"steps_completed" json:"steps_completed"`
	NextStep       *Step     `db:"next_step" json:"next_step,omitempty"`
	WaitingFor     *WaitKind `db:"waiting_for" json:"waiting_for,omitempty"`

	// WaitingForData holds the matching criteria (expected sender, thread id)
	// the resume coordinator compares against inbound events.
	WaitingForData map[string]interface{} `db:"waiting_for_data" json:"waiting_for_data,omitempty"`

	ScheduledFor *time.Time `db:"scheduled_for" json:"scheduled_for,omitempty"`

	RetryCount int `db:"retry_count" json:"retry_count"`
	MaxRetries int `db:"max_retries" json:"max_retries"`

	FailureReason *string    `db:"failure_reason" json:"failure_reason,omitempty"`
	FailedAt      *time.Time `db:"failed_at" json:"failed_at,omitempty"`
	CompletedAt   *time.Time `db:"completed_at" json:"completed_at,omitempty"`

	ParentTaskID *uuid.UUID `db:"parent_task_id" json:"parent_task_id,omitempty"`

	// Revision increases monotonically on every persisted update.
	Revision  int64     `db:"revision" json:"revision"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Validate checks the structural invariants a persisted task must satisfy.
func (t *Task) Validate() error {
	if t.Status == TaskStatusWaiting && t.WaitingFor == nil {
		return ErrWaitKindMissing
	}
	return nil
}

// MergeState overlays delta onto the task's workflow state. Existing keys
// are overwritten; nothing is ever deleted.
func (t *Task) MergeState(delta map[string]interface{}) {
	if len(delta) == 0 {
		return
	}
	if t.WorkflowState == nil {
		t.WorkflowState = make(map[string]interface{}, len(delta))
	}
	for k, v := range delta {
		t.WorkflowState[k] = v
	}
}

// RecordStep appends a step name to the audit trail.
func (t *Task) RecordStep(step Step) {
	t.StepsCompleted = append(t.StepsCompleted, string(step))
}

// StateString returns a string value from the workflow state, or "" when
// the key is absent or holds a non-string.
func (t *Task) StateString(key string) string {
	if t.WorkflowState == nil {
		return ""
	}
	if s, ok := t.WorkflowState[key].(string); ok {
		return s
	}
	return ""
}

// StateMap returns a nested map from the workflow state, or nil.
func (t *Task) StateMap(key string) map[string]interface{} {
	if t.WorkflowState == nil {
		return nil
	}
	if m, ok := t.WorkflowState[key].(map[string]interface{}); ok {
		return m
	}
	return nil
}
