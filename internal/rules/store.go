package rules

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/advisordesk/orchestrator/internal/db"
)

// ErrRuleNotFound is returned when no rule exists for the given id.
var ErrRuleNotFound = errors.New("rule not found")

// Store persists rules in Postgres. Conditions and action parameters live
// in jsonb columns.
type Store struct {
	client *db.Client
	logger *zap.Logger
}

// NewStore creates a rule store over the shared client.
func NewStore(client *db.Client, logger *zap.Logger) *Store {
	return &Store{client: client, logger: logger}
}

type ruleRow struct {
	ID         uuid.UUID `db:"id"`
	UserID     string    `db:"user_id"`
	Name       string    `db:"name"`
	Trigger    string    `db:"trigger"`
	Enabled    bool      `db:"enabled"`
	Conditions []byte    `db:"conditions"`
	Action     []byte    `db:"action"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r *ruleRow) toModel() (*Rule, error) {
	rule := &Rule{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		Trigger:   Trigger(r.Trigger),
		Enabled:   r.Enabled,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if len(r.Conditions) > 0 {
		if err := json.Unmarshal(r.Conditions, &rule.Conditions); err != nil {
			return nil, fmt.Errorf("decode rule conditions: %w", err)
		}
	}
	if len(r.Action) > 0 {
		if err := json.Unmarshal(r.Action, &rule.Action); err != nil {
			return nil, fmt.Errorf("decode rule action: %w", err)
		}
	}
	return rule, nil
}

// Create inserts a rule.
func (s *Store) Create(ctx context.Context, rule *Rule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("encode rule conditions: %w", err)
	}
	action, err := json.Marshal(rule.Action)
	if err != nil {
		return fmt.Errorf("encode rule action: %w", err)
	}

	_, err = s.client.DB().ExecContext(ctx, `
		INSERT INTO rules (id, user_id, name, trigger, enabled, conditions, action, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rule.ID, rule.UserID, rule.Name, string(rule.Trigger), rule.Enabled, conditions, action, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}
	return nil
}

// Get fetches a rule by id scoped to its owner.
func (s *Store) Get(ctx context.Context, id uuid.UUID, userID string) (*Rule, error) {
	var row ruleRow
	err := s.client.DB().GetContext(ctx, &row, `
		SELECT id, user_id, name, trigger, enabled, conditions, action, created_at, updated_at
		FROM rules WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err == sql.ErrNoRows {
		return nil, ErrRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return row.toModel()
}

// ListEnabled returns the user's enabled rules for a trigger.
func (s *Store) ListEnabled(ctx context.Context, userID string, trigger Trigger) ([]*Rule, error) {
	var rows []ruleRow
	err := s.client.DB().SelectContext(ctx, &rows, `
		SELECT id, user_id, name, trigger, enabled, conditions, action, created_at, updated_at
		FROM rules
		WHERE user_id = $1 AND trigger = $2 AND enabled
		ORDER BY created_at
	`, userID, string(trigger))
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	out := make([]*Rule, 0, len(rows))
	for i := range rows {
		rule, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, nil
}

// SetEnabled toggles a rule.
func (s *Store) SetEnabled(ctx context.Context, id uuid.UUID, userID string, enabled bool) error {
	res, err := s.client.DB().ExecContext(ctx, `
		UPDATE rules SET enabled = $1, updated_at = $2 WHERE id = $3 AND user_id = $4
	`, enabled, time.Now().UTC(), id, userID)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// Delete removes a rule.
func (s *Store) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	res, err := s.client.DB().ExecContext(ctx, `
		DELETE FROM rules WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRuleNotFound
	}
	return nil
}
