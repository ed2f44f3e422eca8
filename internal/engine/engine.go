package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/advisordesk/orchestrator/internal/config"
	"github.com/advisordesk/orchestrator/internal/db"
	"github.com/advisordesk/orchestrator/internal/llm"
	"github.com/advisordesk/orchestrator/internal/metrics"
	"github.com/advisordesk/orchestrator/internal/models"
	"github.com/advisordesk/orchestrator/internal/tools"
)

// Store is the persistence contract the engine drives tasks through.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	SaveTaskEvent(ctx context.Context, e *db.TaskEvent) error
}

// Outcome is what a drive slice reports back to the caller.
type Outcome struct {
	Task     *models.Task
	Response string
	Waiting  bool
}

// Engine executes one step at a time against the external tool adapters,
// persisting every transition through the store's compare-and-set update so
// concurrent drivers of the same task serialize instead of double-executing.
type Engine struct {
	store    Store
	contacts tools.ContactDirectory
	email    tools.EmailSender
	calendar tools.CalendarClient
	llm      llm.Analyzer
	cfg      config.EngineConfig
	logger   *zap.Logger

	// now is swappable in tests.
	now func() time.Time
}

// New builds an engine over the given collaborators.
func New(store Store, contacts tools.ContactDirectory, email tools.EmailSender, calendar tools.CalendarClient, analyzer llm.Analyzer, cfg config.EngineConfig, logger *zap.Logger) *Engine {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = models.DefaultMaxRetries
	}
	if cfg.DefaultMeetingStartHour == 0 && cfg.DefaultMeetingEndHour == 0 {
		cfg.DefaultMeetingStartHour = 16
		cfg.DefaultMeetingEndHour = 17
	}
	return &Engine{
		store:    store,
		contacts: contacts,
		email:    email,
		calendar: calendar,
		llm:      analyzer,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// ExecuteStep runs the task's next step as a pure function over the task
// value. Nothing is persisted here; Drive applies and persists the result.
func (e *Engine) ExecuteStep(ctx context.Context, task *models.Task) StepResult {
	if task.NextStep == nil {
		return Failed("task has no next step", false)
	}
	step := *task.NextStep

	start := e.now()
	var res StepResult
	switch step {
	case models.StepSendEmail:
		res = e.stepSendEmail(ctx, task)
	case models.StepProcessReply:
		res = e.stepProcessReply(ctx, task)
	case models.StepCreateCalendarEvent:
		res = e.stepCreateCalendarEvent(ctx, task)
	default:
		res = Failed(fmt.Sprintf("unknown step %q", step), false)
	}

	metrics.StepsExecuted.WithLabelValues(string(step), string(res.Kind)).Inc()
	metrics.StepDuration.WithLabelValues(string(step)).Observe(time.Since(start).Seconds())
	return res
}

// Drive claims the task and executes steps until it completes, fails, or
// suspends. Recoverable step failures re-run up to the retry budget; a
// revision conflict at any persist point means another driver owns the
// task, in which case the fresh record's state is reported instead.
func (e *Engine) Drive(ctx context.Context, task *models.Task) (*Outcome, error) {
	response := ""

	for {
		if task.Status.Terminal() {
			return e.outcomeFor(task, response), nil
		}
		if task.NextStep == nil {
			return e.outcomeFor(task, response), nil
		}

		// Claim: move the task to in_progress before touching any tool.
		if task.Status != models.TaskStatusInProgress {
			task.Status = models.TaskStatusInProgress
			task.WaitingFor = nil
			fresh, claimed, err := e.persist(ctx, task)
			if err != nil {
				return nil, err
			}
			if !claimed {
				// Another driver holds the slice; report its state.
				return e.outcomeFor(fresh, response), nil
			}
		}

		step := *task.NextStep
		res := e.ExecuteStep(ctx, task)
		e.logEvent(ctx, task, step, res)

		switch res.Kind {
		case ResultCompleted:
			task.MergeState(res.Delta)
			task.RecordStep(step)
			task.Status = models.TaskStatusCompleted
			task.NextStep = nil
			task.WaitingFor = nil
			now := e.now().UTC()
			task.CompletedAt = &now
			response = res.Response

		case ResultWaiting:
			task.MergeState(res.Delta)
			task.RecordStep(step)
			task.Status = models.TaskStatusWaiting
			task.NextStep = nil
			task.WaitingFor = &res.WaitFor
			task.WaitingForData = res.WaitCriteria
			response = res.Response

		case ResultContinue:
			task.MergeState(res.Delta)
			task.RecordStep(step)
			next := res.NextStep
			task.NextStep = &next
			if res.Response != "" {
				response = res.Response
			}

		case ResultFailed:
			if res.Retryable && task.RetryCount < task.MaxRetries {
				task.RetryCount++
				metrics.StepRetries.Inc()
				e.logger.Warn("Step failed, retrying",
					zap.String("task_id", task.ID.String()),
					zap.String("step", string(step)),
					zap.Int("retry", task.RetryCount),
					zap.String("reason", res.FailureReason),
				)
				fresh, claimed, err := e.persist(ctx, task)
				if err != nil {
					return nil, err
				}
				if !claimed {
					return e.outcomeFor(fresh, response), nil
				}
				continue
			}
			reason := res.FailureReason
			task.Status = models.TaskStatusFailed
			task.NextStep = nil
			task.WaitingFor = nil
			task.FailureReason = &reason
			now := e.now().UTC()
			task.FailedAt = &now
			response = fmt.Sprintf("I couldn't finish this: %s", reason)
		}

		fresh, applied, err := e.persist(ctx, task)
		if err != nil {
			return nil, err
		}
		if !applied {
			return e.outcomeFor(fresh, response), nil
		}

		if task.Status.Terminal() {
			metrics.TasksFinished.WithLabelValues(string(task.TaskType), string(task.Status)).Inc()
			return e.outcomeFor(task, response), nil
		}
		if task.Status == models.TaskStatusWaiting {
			// Count only after the waiting row is durably ours; a lost
			// claim above must not move the gauge.
			metrics.TasksWaiting.Inc()
			return e.outcomeFor(task, response), nil
		}
		// Continue: loop into the next step immediately.
	}
}

// persist writes the task via compare-and-set. On a revision conflict the
// fresh record is returned with claimed=false; the caller must not keep
// driving a task it no longer owns.
func (e *Engine) persist(ctx context.Context, task *models.Task) (*models.Task, bool, error) {
	err := e.store.Update(ctx, task)
	if err == nil {
		return task, true, nil
	}
	if errors.Is(err, db.ErrVersionConflict) {
		metrics.VersionConflicts.Inc()
		fresh, getErr := e.store.Get(ctx, task.ID)
		if getErr != nil {
			return nil, false, fmt.Errorf("re-read after conflict: %w", getErr)
		}
		return fresh, false, nil
	}
	return nil, false, fmt.Errorf("persist task %s: %w", task.ID, err)
}

func (e *Engine) outcomeFor(task *models.Task, response string) *Outcome {
	if response == "" {
		switch {
		case task.Status == models.TaskStatusFailed && task.FailureReason != nil:
			response = fmt.Sprintf("I couldn't finish this: %s", *task.FailureReason)
		case task.Status == models.TaskStatusCompleted:
			response = "Done."
		case task.Status == models.TaskStatusWaiting:
			response = "I'm waiting on an external event and will continue automatically."
		}
	}
	return &Outcome{
		Task:     task,
		Response: response,
		Waiting:  task.Status == models.TaskStatusWaiting,
	}
}

// logEvent appends to the task's audit trail. Best effort: a failed audit
// write never fails the step.
func (e *Engine) logEvent(ctx context.Context, task *models.Task, step models.Step, res StepResult) {
	detail := db.JSONB{}
	if res.FailureReason != "" {
		detail["failure_reason"] = res.FailureReason
	}
	if res.Kind == ResultWaiting {
		detail["waiting_for"] = string(res.WaitFor)
	}
	if res.Kind == ResultContinue {
		detail["next_step"] = string(res.NextStep)
	}
	if err := e.store.SaveTaskEvent(ctx, &db.TaskEvent{
		TaskID: task.ID,
		Step:   string(step),
		Result: string(res.Kind),
		Detail: detail,
	}); err != nil {
		e.logger.Warn("Failed to record task event",
			zap.String("task_id", task.ID.String()),
			zap.Error(err),
		)
	}
}
