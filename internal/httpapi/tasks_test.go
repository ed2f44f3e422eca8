package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/advisordesk/orchestrator/internal/auth"
	"github.com/advisordesk/orchestrator/internal/db"
)

func newTaskHandler(t *testing.T) (*TaskHandler, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	client := db.NewClientFromDB(sqlx.NewDb(mockDB, "sqlmock"), zap.NewNop())
	return NewTaskHandler(db.NewTaskStore(client, zap.NewNop()), zap.NewNop()), mock
}

func taskRow(id uuid.UUID, userID string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "user_id", "status", "task_type", "original_request",
		"workflow_state", "steps_completed", "next_step", "waiting_for", "waiting_for_data",
		"scheduled_for", "retry_count", "max_retries", "failure_reason", "failed_at",
		"completed_at", "parent_task_id", "revision", "created_at", "updated_at",
	}).AddRow(
		id.String(), userID, "completed", "meeting_coordination", "book the meeting",
		[]byte(`{}`), []byte(`["send_email"]`), nil, nil, nil,
		nil, 0, 3, nil, nil, now, nil, int64(4), now, now,
	)
}

func TestTaskHandlerGet(t *testing.T) {
	h, mock := newTaskHandler(t)
	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").WillReturnRows(taskRow(id, "user-1"))

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks/"+id.String(), nil)
	req = req.WithContext(auth.WithUserID(req.Context(), "user-1"))
	rec := httptest.NewRecorder()
	h.handleGet(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp taskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.Task.ID)
	assert.Equal(t, "user-1", resp.Task.UserID)
}

func TestTaskHandlerHidesOtherUsersTasks(t *testing.T) {
	h, mock := newTaskHandler(t)
	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").WillReturnRows(taskRow(id, "user-1"))

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks/"+id.String(), nil)
	req = req.WithContext(auth.WithUserID(req.Context(), "user-2"))
	rec := httptest.NewRecorder()
	h.handleGet(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskHandlerRejectsUnauthenticated(t *testing.T) {
	h, _ := newTaskHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/tasks/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	h.handleGet(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTaskHandlerRejectsBadID(t *testing.T) {
	h, _ := newTaskHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/tasks/not-a-uuid", nil)
	req = req.WithContext(auth.WithUserID(req.Context(), "user-1"))
	rec := httptest.NewRecorder()
	h.handleGet(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
