package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/advisordesk/orchestrator/internal/models"
)

var (
	// ErrTaskNotFound is returned when no task exists for the given id.
	ErrTaskNotFound = errors.New("task not found")
	// ErrNotOwner is returned when a task exists but belongs to another user.
	ErrNotOwner = errors.New("task owned by another user")
	// ErrVersionConflict is returned when an optimistic update loses the race.
	ErrVersionConflict = errors.New("task revision conflict")
)

// TaskStore persists tasks with optimistic concurrency. Every update is a
// compare-and-set on the revision column so two concurrent drivers of the
// same task cannot both move it out of waiting and double-execute a step.
type TaskStore struct {
	client *Client
	logger *zap.Logger
}

// NewTaskStore creates a task store over the shared client.
func NewTaskStore(client *Client, logger *zap.Logger) *TaskStore {
	return &TaskStore{client: client, logger: logger}
}

// taskRow mirrors the tasks table with driver-aware column types.
type taskRow struct {
	ID              uuid.UUID      `db:"id"`
	UserID          string         `db:"user_id"`
	Status          string         `db:"status"`
	TaskType        string         `db:"task_type"`
	OriginalRequest string         `db:"original_request"`
	WorkflowState   JSONB          `db:"workflow_state"`
	StepsCompleted  StringList     `db:"steps_completed"`
	NextStep        sql.NullString `db:"next_step"`
	WaitingFor      sql.NullString `db:"waiting_for"`
	WaitingForData  JSONB          `db:"waiting_for_data"`
	ScheduledFor    *time.Time     `db:"scheduled_for"`
	RetryCount      int            `db:"retry_count"`
	MaxRetries      int            `db:"max_retries"`
	FailureReason   sql.NullString `db:"failure_reason"`
	FailedAt        *time.Time     `db:"failed_at"`
	CompletedAt     *time.Time     `db:"completed_at"`
	ParentTaskID    *uuid.UUID     `db:"parent_task_id"`
	Revision        int64          `db:"revision"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

const taskColumns = `id, user_id, status, task_type, original_request,
	workflow_state, steps_completed, next_step, waiting_for, waiting_for_data,
	scheduled_for, retry_count, max_retries, failure_reason, failed_at,
	completed_at, parent_task_id, revision, created_at, updated_at`

func (r *taskRow) toModel() *models.Task {
	t := &models.Task{
		ID:              r.ID,
		UserID:          r.UserID,
		Status:          models.TaskStatus(r.Status),
		TaskType:        models.WorkflowType(r.TaskType),
		OriginalRequest: r.OriginalRequest,
		WorkflowState:   map[string]interface{}(r.WorkflowState),
		StepsCompleted:  []string(r.StepsCompleted),
		WaitingForData:  map[string]interface{}(r.WaitingForData),
		ScheduledFor:    r.ScheduledFor,
		RetryCount:      r.RetryCount,
		MaxRetries:      r.MaxRetries,
		FailedAt:        r.FailedAt,
		CompletedAt:     r.CompletedAt,
		ParentTaskID:    r.ParentTaskID,
		Revision:        r.Revision,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.NextStep.Valid {
		step := models.Step(r.NextStep.String)
		t.NextStep = &step
	}
	if r.WaitingFor.Valid {
		kind := models.WaitKind(r.WaitingFor.String)
		t.WaitingFor = &kind
	}
	if r.FailureReason.Valid {
		reason := r.FailureReason.String
		t.FailureReason = &reason
	}
	return t
}

func nullStep(s *models.Step) interface{} {
	if s == nil {
		return nil
	}
	return string(*s)
}

func nullWait(w *models.WaitKind) interface{} {
	if w == nil {
		return nil
	}
	return string(*w)
}

func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// Create inserts a new task at revision 1.
func (s *TaskStore) Create(ctx context.Context, task *models.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.MaxRetries == 0 {
		task.MaxRetries = models.DefaultMaxRetries
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	task.Revision = 1

	query := `
		INSERT INTO tasks (
			id, user_id, status, task_type, original_request,
			workflow_state, steps_completed, next_step, waiting_for, waiting_for_data,
			scheduled_for, retry_count, max_retries, failure_reason, failed_at,
			completed_at, parent_task_id, revision, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)`

	_, err := s.client.db.ExecContext(ctx, query,
		task.ID, task.UserID, string(task.Status), string(task.TaskType), task.OriginalRequest,
		JSONB(task.WorkflowState), StringList(task.StepsCompleted),
		nullStep(task.NextStep), nullWait(task.WaitingFor), JSONB(task.WaitingForData),
		task.ScheduledFor, task.RetryCount, task.MaxRetries,
		nullString(task.FailureReason), task.FailedAt,
		task.CompletedAt, task.ParentTaskID, task.Revision, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	s.logger.Debug("Task created",
		zap.String("task_id", task.ID.String()),
		zap.String("task_type", string(task.TaskType)),
	)
	return nil
}

// Get fetches a task by id.
func (s *TaskStore) Get(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var row taskRow
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE id = $1`, taskColumns)
	err := s.client.db.GetContext(ctx, &row, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return row.toModel(), nil
}

// GetOwned fetches a task and verifies exclusive ownership.
func (s *TaskStore) GetOwned(ctx context.Context, id uuid.UUID, userID string) (*models.Task, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, ErrNotOwner
	}
	return task, nil
}

// Update persists task mutations with a compare-and-set on the revision the
// caller read. On success the task's revision is advanced in place.
func (s *TaskStore) Update(ctx context.Context, task *models.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	expected := task.Revision
	task.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE tasks SET
			status = $1, workflow_state = $2, steps_completed = $3,
			next_step = $4, waiting_for = $5, waiting_for_data = $6,
			scheduled_for = $7, retry_count = $8,
			failure_reason = $9, failed_at = $10, completed_at = $11,
			revision = revision + 1, updated_at = $12
		WHERE id = $13 AND revision = $14`

	res, err := s.client.db.ExecContext(ctx, query,
		string(task.Status), JSONB(task.WorkflowState), StringList(task.StepsCompleted),
		nullStep(task.NextStep), nullWait(task.WaitingFor), JSONB(task.WaitingForData),
		task.ScheduledFor, task.RetryCount,
		nullString(task.FailureReason), task.FailedAt, task.CompletedAt,
		task.UpdatedAt, task.ID, expected,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		// Either the row is gone or another driver advanced the revision.
		if _, getErr := s.Get(ctx, task.ID); getErr == ErrTaskNotFound {
			return ErrTaskNotFound
		}
		return ErrVersionConflict
	}
	task.Revision = expected + 1
	return nil
}

// FindWaitingMatching returns the user's waiting tasks whose stored matching
// criteria accept the incoming event payload. Tasks past waiting never
// appear here, which is what makes duplicate webhook deliveries harmless.
func (s *TaskStore) FindWaitingMatching(ctx context.Context, userID string, kind models.WaitKind, payload map[string]interface{}) ([]*models.Task, error) {
	var rows []taskRow
	query := fmt.Sprintf(`
		SELECT %s FROM tasks
		WHERE user_id = $1 AND status = $2 AND waiting_for = $3
		ORDER BY created_at`, taskColumns)

	err := s.client.db.SelectContext(ctx, &rows, query,
		userID, string(models.TaskStatusWaiting), string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query waiting tasks: %w", err)
	}

	matched := make([]*models.Task, 0, len(rows))
	for i := range rows {
		task := rows[i].toModel()
		if criteriaMatch(task.WaitingForData, payload) {
			matched = append(matched, task)
		}
	}
	return matched, nil
}

// ListStaleWaiting returns waiting tasks untouched since the cutoff. This is
// an operator report; the engine never expires waiting tasks on its own.
func (s *TaskStore) ListStaleWaiting(ctx context.Context, cutoff time.Time) ([]*models.Task, error) {
	var rows []taskRow
	query := fmt.Sprintf(`
		SELECT %s FROM tasks
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at`, taskColumns)

	err := s.client.db.SelectContext(ctx, &rows, query,
		string(models.TaskStatusWaiting), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale tasks: %w", err)
	}
	out := make([]*models.Task, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	return out, nil
}

// criteriaMatch compares stored wait criteria against an event payload.
// Empty criteria match any event of the right kind. A sender criterion
// compares addresses case-insensitively; thread and message ids compare
// exactly when both sides carry them.
func criteriaMatch(criteria, payload map[string]interface{}) bool {
	if len(criteria) == 0 {
		return true
	}
	if want := stringField(criteria, "expected_sender"); want != "" {
		got := stringField(payload, "from")
		if got == "" || !strings.EqualFold(want, got) {
			return false
		}
	}
	if want := stringField(criteria, "thread_id"); want != "" {
		if got := stringField(payload, "thread_id"); got != "" && got != want {
			return false
		}
	}
	if want := stringField(criteria, "message_id"); want != "" {
		if got := stringField(payload, "message_id"); got != "" && got != want {
			return false
		}
	}
	return true
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}
