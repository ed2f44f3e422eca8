package tools

import (
	"context"
	"time"
)

// Contact is one entry returned by the contact directory.
type Contact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// EmailMessage is an outbound email request.
type EmailMessage struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

// EmailReceipt identifies a sent message for later reply matching.
type EmailReceipt struct {
	MessageID string `json:"message_id"`
	ThreadID  string `json:"thread_id,omitempty"`
}

// CalendarEvent is an event-creation request.
type CalendarEvent struct {
	Title       string    `json:"title"`
	Start       time.Time `json:"start_time"`
	End         time.Time `json:"end_time"`
	Attendees   []string  `json:"attendees"`
	Description string    `json:"description,omitempty"`
}

// EventReceipt identifies a created calendar event.
type EventReceipt struct {
	EventID string `json:"event_id"`
}

// CRMContact is an upsert request against the CRM.
type CRMContact struct {
	Email     string            `json:"email"`
	FirstName string            `json:"first_name,omitempty"`
	LastName  string            `json:"last_name,omitempty"`
	Notes     string            `json:"notes,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// CRMReceipt identifies an upserted CRM record.
type CRMReceipt struct {
	ContactID string `json:"contact_id"`
	Created   bool   `json:"created"`
}

// ContactDirectory resolves a person's email by name hint.
type ContactDirectory interface {
	FindContact(ctx context.Context, userID, nameHint, contextHint string) ([]Contact, error)
}

// EmailSender delivers mail on behalf of a user.
type EmailSender interface {
	SendEmail(ctx context.Context, userID string, msg EmailMessage) (EmailReceipt, error)
}

// CalendarClient creates events on a user's calendar.
type CalendarClient interface {
	CreateEvent(ctx context.Context, userID string, ev CalendarEvent) (EventReceipt, error)
}

// CRMClient creates or updates CRM records.
type CRMClient interface {
	UpsertContact(ctx context.Context, userID string, c CRMContact) (CRMReceipt, error)
}
