package rules

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/advisordesk/orchestrator/internal/db"
)

func newMockRuleStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	client := db.NewClientFromDB(sqlx.NewDb(mockDB, "sqlmock"), zap.NewNop())
	return NewStore(client, zap.NewNop()), mock
}

func TestStoreCreateAssignsID(t *testing.T) {
	store, mock := newMockRuleStore(t)
	mock.ExpectExec("INSERT INTO rules").WillReturnResult(sqlmock.NewResult(0, 1))

	rule := &Rule{
		UserID:     "user-1",
		Name:       "auto-ack",
		Trigger:    TriggerEmailReceived,
		Enabled:    true,
		Conditions: Conditions{SubjectContains: "statement"},
		Action:     Action{Type: ActionSendEmail, Params: map[string]string{"subject": "Got it"}},
	}
	require.NoError(t, store.Create(context.Background(), rule))
	assert.NotEqual(t, uuid.Nil, rule.ID)
	assert.False(t, rule.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreListEnabledDecodesJSON(t *testing.T) {
	store, mock := newMockRuleStore(t)
	id := uuid.New()
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "name", "trigger", "enabled", "conditions", "action", "created_at", "updated_at",
	}).AddRow(
		id.String(), "user-1", "auto-ack", "email_received", true,
		[]byte(`{"subject_contains":"statement"}`),
		[]byte(`{"type":"send_email","params":{"subject":"Got it"}}`),
		now, now,
	)
	mock.ExpectQuery("SELECT (.+) FROM rules").WillReturnRows(rows)

	rules, err := store.ListEnabled(context.Background(), "user-1", TriggerEmailReceived)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	assert.Equal(t, id, rules[0].ID)
	assert.Equal(t, "statement", rules[0].Conditions.SubjectContains)
	assert.Equal(t, ActionSendEmail, rules[0].Action.Type)
	assert.Equal(t, "Got it", rules[0].Action.Params["subject"])
}

func TestStoreSetEnabledNotFound(t *testing.T) {
	store, mock := newMockRuleStore(t)
	mock.ExpectExec("UPDATE rules SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.SetEnabled(context.Background(), uuid.New(), "user-1", false)
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestStoreDeleteNotFound(t *testing.T) {
	store, mock := newMockRuleStore(t)
	mock.ExpectExec("DELETE FROM rules").WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Delete(context.Background(), uuid.New(), "user-1")
	assert.ErrorIs(t, err, ErrRuleNotFound)
}
