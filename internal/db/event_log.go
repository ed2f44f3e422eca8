package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskEvent is one persisted step-transition row, the append-only audit
// trail behind a task's steps_completed list.
type TaskEvent struct {
	ID        uuid.UUID `db:"id" json:"id"`
	TaskID    uuid.UUID `db:"task_id" json:"task_id"`
	Step      string    `db:"step" json:"step"`
	Result    string    `db:"result" json:"result"`
	Detail    JSONB     `db:"detail" json:"detail,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SaveTaskEvent inserts a task event row.
func (s *TaskStore) SaveTaskEvent(ctx context.Context, e *TaskEvent) error {
	if e == nil {
		return nil
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := s.client.db.ExecContext(ctx, `
		INSERT INTO task_events (id, task_id, step, result, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.TaskID, e.Step, e.Result, e.Detail, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save task event: %w", err)
	}
	return nil
}

// ListTaskEvents returns a task's events oldest first.
func (s *TaskStore) ListTaskEvents(ctx context.Context, taskID uuid.UUID) ([]TaskEvent, error) {
	var events []TaskEvent
	err := s.client.db.SelectContext(ctx, &events, `
		SELECT id, task_id, step, result, detail, created_at
		FROM task_events
		WHERE task_id = $1
		ORDER BY created_at
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list task events: %w", err)
	}
	return events, nil
}
