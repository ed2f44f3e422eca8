package rules

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Trigger names the webhook event kind a rule listens for.
type Trigger string

const (
	TriggerEmailReceived     Trigger = "email_received"
	TriggerCalendarResponse  Trigger = "calendar_response"
	TriggerCRMContactCreated Trigger = "crm_contact_created"
)

// Conditions are conjunctive substring filters over the event payload.
// Empty fields always pass.
type Conditions struct {
	FromContains    string `json:"from_contains,omitempty"`
	SubjectContains string `json:"subject_contains,omitempty"`
	BodyContains    string `json:"body_contains,omitempty"`
}

// Matches evaluates the conditions against an event payload.
func (c Conditions) Matches(payload map[string]interface{}) bool {
	check := func(want, key string) bool {
		if want == "" {
			return true
		}
		got, _ := payload[key].(string)
		return strings.Contains(strings.ToLower(got), strings.ToLower(want))
	}
	return check(c.FromContains, "from") &&
		check(c.SubjectContains, "subject") &&
		check(c.BodyContains, "body")
}

// ActionType names what a matched rule does.
type ActionType string

const (
	ActionSendEmail ActionType = "send_email"
	ActionCRMNote   ActionType = "crm_note"
)

// Action is the effect of a matched rule with its parameters.
type Action struct {
	Type   ActionType        `json:"type"`
	Params map[string]string `json:"params,omitempty"`
}

// Rule is one user-defined trigger/condition/action automation evaluated
// against inbound webhooks.
type Rule struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	UserID     string     `db:"user_id" json:"user_id"`
	Name       string     `db:"name" json:"name"`
	Trigger    Trigger    `db:"trigger" json:"trigger"`
	Enabled    bool       `db:"enabled" json:"enabled"`
	Conditions Conditions `json:"conditions"`
	Action     Action     `json:"action"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}
