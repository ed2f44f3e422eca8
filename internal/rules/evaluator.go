package rules

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/advisordesk/orchestrator/internal/metrics"
	"github.com/advisordesk/orchestrator/internal/tools"
)

// RuleSource lists the rules to evaluate for an event.
type RuleSource interface {
	ListEnabled(ctx context.Context, userID string, trigger Trigger) ([]*Rule, error)
}

// Evaluator runs a user's enabled rules against an inbound webhook event.
// Rule failures are isolated: one failing action never blocks the rest.
type Evaluator struct {
	source RuleSource
	email  tools.EmailSender
	crm    tools.CRMClient
	logger *zap.Logger
}

// NewEvaluator wires an evaluator.
func NewEvaluator(source RuleSource, email tools.EmailSender, crm tools.CRMClient, logger *zap.Logger) *Evaluator {
	return &Evaluator{source: source, email: email, crm: crm, logger: logger}
}

// EvaluateEvent matches and executes rules for the event. It returns the
// names of rules whose actions ran.
func (e *Evaluator) EvaluateEvent(ctx context.Context, userID string, trigger Trigger, payload map[string]interface{}) ([]string, error) {
	enabled, err := e.source.ListEnabled(ctx, userID, trigger)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}

	var fired []string
	for _, rule := range enabled {
		if !rule.Conditions.Matches(payload) {
			metrics.RulesEvaluated.WithLabelValues("skipped").Inc()
			continue
		}
		if err := e.execute(ctx, userID, rule, payload); err != nil {
			metrics.RulesEvaluated.WithLabelValues("action_failed").Inc()
			e.logger.Error("Rule action failed",
				zap.String("rule_id", rule.ID.String()),
				zap.String("rule", rule.Name),
				zap.Error(err),
			)
			continue
		}
		metrics.RulesEvaluated.WithLabelValues("matched").Inc()
		fired = append(fired, rule.Name)
	}
	return fired, nil
}

func (e *Evaluator) execute(ctx context.Context, userID string, rule *Rule, payload map[string]interface{}) error {
	switch rule.Action.Type {
	case ActionSendEmail:
		to := rule.Action.Params["to"]
		if to == "" {
			// Default to answering the event's sender.
			to, _ = payload["from"].(string)
		}
		if to == "" {
			return fmt.Errorf("rule %s: no email recipient", rule.Name)
		}
		_, err := e.email.SendEmail(ctx, userID, tools.EmailMessage{
			To:      []string{to},
			Subject: rule.Action.Params["subject"],
			Body:    rule.Action.Params["body"],
		})
		return err

	case ActionCRMNote:
		email, _ := payload["from"].(string)
		if p := rule.Action.Params["email"]; p != "" {
			email = p
		}
		if email == "" {
			return fmt.Errorf("rule %s: no CRM contact email", rule.Name)
		}
		_, err := e.crm.UpsertContact(ctx, userID, tools.CRMContact{
			Email: email,
			Notes: rule.Action.Params["note"],
		})
		return err

	default:
		return fmt.Errorf("rule %s: unknown action type %q", rule.Name, rule.Action.Type)
	}
}
