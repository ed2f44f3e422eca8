package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/advisordesk/orchestrator/internal/models"
	"github.com/advisordesk/orchestrator/internal/tools"
)

// Workflow state keys shared between task creation, step handlers, and the
// resume coordinator.
const (
	StateKeyRecipient      = "recipient" // map {email|name|group}
	StateKeyPurpose        = "purpose"
	StateKeyTiming         = "timing" // map {expression, day_ref}
	StateKeyUrgent         = "urgent"
	StateKeyReply          = "reply" // event payload injected on resume
	StateKeyEmailResult    = "email_result"
	StateKeyCalendarResult = "calendar_result"
	StateKeyReplyAnalysis  = "reply_analysis"
	StateKeyResponseType   = "response_type"
	StateKeyNeedsFollowUp  = "needs_follow_up"
	StateKeyNeedsReview    = "needs_manual_review"
)

// stepSendEmail resolves the recipient, renders the purpose-keyed template,
// and invokes the email adapter. Reply-expecting tasks suspend on
// email_reply with the resolved sender as the matching criterion.
func (e *Engine) stepSendEmail(ctx context.Context, task *models.Task) StepResult {
	recipient := task.StateMap(StateKeyRecipient)

	if group := stringField(recipient, "group"); group != "" {
		return Failed(fmt.Sprintf("group recipients (%q) are not yet implemented", group), false)
	}

	email := stringField(recipient, "email")
	name := stringField(recipient, "name")
	displayName := name

	if email == "" {
		if name == "" {
			return Failed("no recipient could be determined from the request", false)
		}
		contacts, err := e.contacts.FindContact(ctx, task.UserID, name, task.OriginalRequest)
		if err != nil {
			return Failed(fmt.Sprintf("contact lookup failed: %v", err), true)
		}
		if len(contacts) == 0 {
			// A missing contact will not resolve itself; fail without retry.
			return Failed(fmt.Sprintf("No email found for %s", name), false)
		}
		email = contacts[0].Email
		if contacts[0].Name != "" {
			displayName = contacts[0].Name
		}
	}

	purpose := models.Purpose(task.StateString(StateKeyPurpose))
	timing := task.StateMap(StateKeyTiming)
	phrase := TimingPhrase(stringField(timing, "expression"), stringField(timing, "day_ref"))
	content := GenerateEmailContent(purpose, displayName, phrase)

	receipt, err := e.email.SendEmail(ctx, task.UserID, tools.EmailMessage{
		To:      []string{email},
		Subject: content.Subject,
		Body:    content.Body,
	})
	if err != nil {
		return Failed(fmt.Sprintf("email send failed: %v", err), true)
	}

	who := displayName
	if who == "" {
		who = email
	}
	delta := map[string]interface{}{
		StateKeyEmailResult: map[string]interface{}{
			"message_id":      receipt.MessageID,
			"thread_id":       receipt.ThreadID,
			"recipient_email": email,
			"recipient_name":  displayName,
			"subject":         content.Subject,
		},
	}

	if expectsReply(task.TaskType, purpose) {
		criteria := map[string]interface{}{"expected_sender": email}
		if receipt.ThreadID != "" {
			criteria["thread_id"] = receipt.ThreadID
		}
		return Waiting(models.WaitEmailReply, criteria, delta,
			fmt.Sprintf("I've emailed %s and will continue automatically once they reply.", who))
	}
	return Completed(delta, fmt.Sprintf("Email sent to %s.", who))
}

// expectsReply decides whether the email step suspends for an answer.
// Meeting coordination and information gathering always wait; otherwise the
// purpose decides.
func expectsReply(taskType models.WorkflowType, purpose models.Purpose) bool {
	if taskType == models.WorkflowMeeting || taskType == models.WorkflowInfoGather {
		return true
	}
	return purpose == models.PurposeAvailabilityCheck || purpose == models.PurposeMeetingRequest
}

// stepProcessReply interprets a received reply via the LLM gateway (tools
// disabled) and routes on the lexical bucket of the analysis. Only resumes
// reach this step; the classifier never selects it.
func (e *Engine) stepProcessReply(ctx context.Context, task *models.Task) StepResult {
	reply := task.StateMap(StateKeyReply)
	if reply == nil {
		return Failed("no reply payload attached to task", false)
	}

	prompt := buildAnalysisPrompt(
		task.OriginalRequest,
		stringField(reply, "from"),
		stringField(reply, "subject"),
		stringField(reply, "body"),
	)
	analysis, err := e.llm.Analyze(ctx, task.UserID, prompt)
	if err != nil {
		// The reply cannot be safely interpreted; do not guess a bucket.
		return Failed(fmt.Sprintf("reply analysis failed: %v", err), false)
	}

	replyType := ClassifyReply(analysis)
	delta := map[string]interface{}{
		StateKeyReplyAnalysis: analysis,
		StateKeyResponseType:  string(replyType),
	}

	switch replyType {
	case ReplyPositive:
		if task.TaskType == models.WorkflowMeeting {
			return ContinueTo(models.StepCreateCalendarEvent, delta)
		}
		return Completed(delta, "They responded positively; nothing further was needed.")
	case ReplyNegative:
		delta[StateKeyNeedsFollowUp] = true
		return Completed(delta, "They declined. I've flagged the task for follow-up.")
	case ReplyAlternative:
		delta[StateKeyNeedsFollowUp] = true
		return Completed(delta, "They suggested an alternative. I've flagged the task for follow-up.")
	case ReplyInfoRequested:
		delta[StateKeyNeedsFollowUp] = true
		return Completed(delta, "They asked for more information. I've flagged the task for follow-up.")
	default:
		delta[StateKeyNeedsReview] = true
		return Completed(delta, "The reply was unclear. I've flagged the task for manual review.")
	}
}

// stepCreateCalendarEvent books the meeting once a positive reply arrived.
// The attendee comes from the email step's resolved recipient; the window
// comes from the stored timing hints with a tomorrow-afternoon fallback.
func (e *Engine) stepCreateCalendarEvent(ctx context.Context, task *models.Task) StepResult {
	emailResult := task.StateMap(StateKeyEmailResult)
	attendee := stringField(emailResult, "recipient_email")
	if attendee == "" {
		attendee = stringField(task.StateMap(StateKeyRecipient), "email")
	}
	if attendee == "" {
		return Failed("no attendee email recorded from the email step", false)
	}

	timing := task.StateMap(StateKeyTiming)
	window := ResolveMeetingWindow(
		stringField(timing, "expression"),
		stringField(timing, "day_ref"),
		e.now(),
		e.cfg.DefaultMeetingStartHour,
		e.cfg.DefaultMeetingEndHour,
	)

	who := stringField(emailResult, "recipient_name")
	if who == "" {
		who = attendee
	}

	receipt, err := e.calendar.CreateEvent(ctx, task.UserID, tools.CalendarEvent{
		Title:       fmt.Sprintf("Meeting with %s", who),
		Start:       window.Start,
		End:         window.End,
		Attendees:   []string{attendee},
		Description: fmt.Sprintf("Scheduled from request: %s", task.OriginalRequest),
	})
	if err != nil {
		return Failed(fmt.Sprintf("calendar event creation failed: %v", err), true)
	}

	delta := map[string]interface{}{
		StateKeyCalendarResult: map[string]interface{}{
			"event_id": receipt.EventID,
			"start":    window.Start.Format(time.RFC3339),
			"end":      window.End.Format(time.RFC3339),
		},
	}
	return Completed(delta, fmt.Sprintf("Meeting with %s booked for %s.",
		who, window.Start.Format("Mon Jan 2 3:04pm")))
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
