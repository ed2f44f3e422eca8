package resume

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/advisordesk/orchestrator/internal/db"
	"github.com/advisordesk/orchestrator/internal/engine"
	"github.com/advisordesk/orchestrator/internal/metrics"
	"github.com/advisordesk/orchestrator/internal/models"
)

// Store is the task lookup/claim contract the coordinator needs.
type Store interface {
	FindWaitingMatching(ctx context.Context, userID string, kind models.WaitKind, payload map[string]interface{}) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
}

// Driver drains a claimed task through the workflow engine.
type Driver interface {
	Drive(ctx context.Context, task *models.Task) (*engine.Outcome, error)
}

// TaskOutcome reports what happened to one resumed task.
type TaskOutcome struct {
	TaskID   uuid.UUID         `json:"task_id"`
	Status   models.TaskStatus `json:"status"`
	Response string            `json:"response,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// Coordinator resumes waiting tasks when an external event arrives. Claiming
// a task is a compare-and-set out of waiting, so a duplicate webhook
// delivery racing this one loses the claim and skips the task.
type Coordinator struct {
	store  Store
	driver Driver
	logger *zap.Logger
}

// NewCoordinator builds a coordinator.
func NewCoordinator(store Store, driver Driver, logger *zap.Logger) *Coordinator {
	return &Coordinator{store: store, driver: driver, logger: logger}
}

// ResumeFromEvent finds every waiting task of the user matching the event
// and drives each until it completes, fails, or suspends again. One task's
// failure never aborts resumption of its siblings.
func (c *Coordinator) ResumeFromEvent(ctx context.Context, userID string, kind models.WaitKind, payload map[string]interface{}) ([]TaskOutcome, error) {
	metrics.ResumeEvents.WithLabelValues(string(kind)).Inc()

	matched, err := c.store.FindWaitingMatching(ctx, userID, kind, payload)
	if err != nil {
		return nil, fmt.Errorf("find waiting tasks: %w", err)
	}
	metrics.ResumeMatches.Observe(float64(len(matched)))
	if len(matched) == 0 {
		return nil, nil
	}

	outcomes := make([]TaskOutcome, 0, len(matched))
	for _, task := range matched {
		outcome := c.resumeOne(ctx, task, payload)
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (c *Coordinator) resumeOne(ctx context.Context, task *models.Task, payload map[string]interface{}) TaskOutcome {
	// Claim: attach the event payload and point the task at process_reply.
	task.Status = models.TaskStatusInProgress
	task.WaitingFor = nil
	task.MergeState(map[string]interface{}{engine.StateKeyReply: payload})
	step := models.StepProcessReply
	task.NextStep = &step

	if err := c.store.Update(ctx, task); err != nil {
		if errors.Is(err, db.ErrVersionConflict) {
			// A concurrent delivery won the claim; nothing to do here.
			c.logger.Debug("Lost resume claim, skipping task",
				zap.String("task_id", task.ID.String()),
			)
			return TaskOutcome{TaskID: task.ID, Status: models.TaskStatusInProgress, Response: "already being resumed"}
		}
		c.logger.Error("Failed to claim waiting task",
			zap.String("task_id", task.ID.String()),
			zap.Error(err),
		)
		return TaskOutcome{TaskID: task.ID, Status: task.Status, Error: err.Error()}
	}
	// The claim just persisted the task out of waiting; any later failure
	// path runs with the task already claimed, so this is the only Dec.
	metrics.TasksWaiting.Dec()

	outcome, err := c.driver.Drive(ctx, task)
	if err != nil {
		// Partial-failure isolation: record the failure on the task and
		// keep going with the remaining matches.
		c.logger.Error("Resume drive failed",
			zap.String("task_id", task.ID.String()),
			zap.Error(err),
		)
		c.failTask(ctx, task, err)
		return TaskOutcome{TaskID: task.ID, Status: models.TaskStatusFailed, Error: err.Error()}
	}

	return TaskOutcome{
		TaskID:   outcome.Task.ID,
		Status:   outcome.Task.Status,
		Response: outcome.Response,
	}
}

// failTask finalizes a task whose resume processing errored. Best effort.
func (c *Coordinator) failTask(ctx context.Context, task *models.Task, cause error) {
	if task.Status.Terminal() {
		return
	}
	reason := cause.Error()
	task.Status = models.TaskStatusFailed
	task.NextStep = nil
	task.WaitingFor = nil
	task.FailureReason = &reason
	now := time.Now().UTC()
	task.FailedAt = &now
	if err := c.store.Update(ctx, task); err != nil {
		c.logger.Error("Failed to record resume failure",
			zap.String("task_id", task.ID.String()),
			zap.Error(err),
		)
	}
}
