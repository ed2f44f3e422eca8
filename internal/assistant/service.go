package assistant

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/advisordesk/orchestrator/internal/classifier"
	"github.com/advisordesk/orchestrator/internal/engine"
	"github.com/advisordesk/orchestrator/internal/llm"
	"github.com/advisordesk/orchestrator/internal/metrics"
	"github.com/advisordesk/orchestrator/internal/models"
	"github.com/advisordesk/orchestrator/internal/retrieval"
	"github.com/advisordesk/orchestrator/internal/session"
)

// TaskCreator persists newly classified workflow tasks.
type TaskCreator interface {
	Create(ctx context.Context, task *models.Task) error
}

// Driver runs a task through the workflow engine.
type Driver interface {
	Drive(ctx context.Context, task *models.Task) (*engine.Outcome, error)
}

// Sessions manages conversation history for the simple path.
type Sessions interface {
	GetOrCreate(ctx context.Context, sessionID, userID string) (*session.Session, error)
	AppendTurn(ctx context.Context, s *session.Session, userText, assistantText string) error
}

// Reply is the structured result of handling one request. Errors inside a
// workflow are captured into the task's terminal fields, so callers always
// get a Reply describing the outcome rather than a raised failure.
type Reply struct {
	Response  string       `json:"response"`
	Waiting   bool         `json:"waiting"`
	Task      *models.Task `json:"task,omitempty"`
	SessionID string       `json:"session_id,omitempty"`
}

// Service is the entry point behind the assistant HTTP API: it classifies a
// request and routes it down the single-turn RAG path or the durable
// workflow path.
type Service struct {
	classifier *classifier.Classifier
	tasks      TaskCreator
	driver     Driver
	retriever  retrieval.Retriever
	completer  llm.Completer
	sessions   Sessions
	maxRetries int
	logger     *zap.Logger
}

// NewService wires the assistant service.
func NewService(cls *classifier.Classifier, tasks TaskCreator, driver Driver, retriever retrieval.Retriever, completer llm.Completer, sessions Sessions, maxRetries int, logger *zap.Logger) *Service {
	if maxRetries <= 0 {
		maxRetries = models.DefaultMaxRetries
	}
	return &Service{
		classifier: cls,
		tasks:      tasks,
		driver:     driver,
		retriever:  retriever,
		completer:  completer,
		sessions:   sessions,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// HandleRequest classifies the text and either answers directly or creates
// and drives a task.
func (s *Service) HandleRequest(ctx context.Context, userID, sessionID, text string) (*Reply, error) {
	decision := s.classifier.Classify(text)

	if !decision.Workflow {
		return s.handleSimple(ctx, userID, sessionID, text)
	}
	return s.handleWorkflow(ctx, userID, text, decision)
}

// handleSimple answers a single-turn question with retrieved context and
// conversation history. Retrieval failure degrades to answering without
// context rather than failing the turn.
func (s *Service) handleSimple(ctx context.Context, userID, sessionID, text string) (*Reply, error) {
	sess, err := s.sessions.GetOrCreate(ctx, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}

	var docs []string
	if found, err := s.retriever.Search(ctx, userID, text); err != nil {
		s.logger.Warn("Context retrieval failed, answering without documents",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	} else {
		for _, d := range found {
			docs = append(docs, d.Content)
		}
	}

	answer, err := s.completer.Complete(ctx, userID, text, docs, sess.RecentHistory(10))
	if err != nil {
		return nil, fmt.Errorf("llm completion: %w", err)
	}

	if err := s.sessions.AppendTurn(ctx, sess, text, answer); err != nil {
		s.logger.Warn("Failed to persist session turn",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
	}

	return &Reply{Response: answer, SessionID: sess.ID}, nil
}

// handleWorkflow creates a durable task from the classification and drives
// its first step.
func (s *Service) handleWorkflow(ctx context.Context, userID, text string, decision classifier.Decision) (*Reply, error) {
	firstStep := models.StepSendEmail
	task := &models.Task{
		UserID:          userID,
		Status:          models.TaskStatusPending,
		TaskType:        decision.WorkflowType,
		OriginalRequest: text,
		WorkflowState:   workflowStateFrom(decision.Extracted),
		NextStep:        &firstStep,
		MaxRetries:      s.maxRetries,
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	metrics.TasksCreated.WithLabelValues(string(task.TaskType)).Inc()

	s.logger.Info("Workflow task created",
		zap.String("task_id", task.ID.String()),
		zap.String("task_type", string(task.TaskType)),
		zap.String("user_id", userID),
	)

	outcome, err := s.driver.Drive(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("drive task %s: %w", task.ID, err)
	}
	return &Reply{
		Response: outcome.Response,
		Waiting:  outcome.Waiting,
		Task:     outcome.Task,
	}, nil
}

// workflowStateFrom seeds the task's workflow state with the extracted
// intent fields. Only populated fields are stored; defaults stay the
// engine's concern.
func workflowStateFrom(ex classifier.Extraction) map[string]interface{} {
	recipient := map[string]interface{}{}
	if ex.Recipient.Email != "" {
		recipient["email"] = ex.Recipient.Email
	}
	if ex.Recipient.Name != "" {
		recipient["name"] = ex.Recipient.Name
	}
	if ex.Recipient.Group != "" {
		recipient["group"] = ex.Recipient.Group
	}

	timing := map[string]interface{}{}
	if ex.Timing.Expression != "" {
		timing["expression"] = ex.Timing.Expression
	}
	if ex.Timing.DayRef != "" {
		timing["day_ref"] = ex.Timing.DayRef
	}

	state := map[string]interface{}{
		engine.StateKeyRecipient: recipient,
		engine.StateKeyPurpose:   string(ex.Purpose),
		engine.StateKeyTiming:    timing,
	}
	if ex.Urgent {
		state[engine.StateKeyUrgent] = true
	}
	return state
}
