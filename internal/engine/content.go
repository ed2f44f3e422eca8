package engine

import (
	"fmt"
	"strings"

	"github.com/advisordesk/orchestrator/internal/models"
)

// EmailContent is a generated subject/body pair.
type EmailContent struct {
	Subject string
	Body    string
}

// GenerateEmailContent renders the outbound email for a purpose. Content is
// deterministic string interpolation, not LLM output, so that every
// tool-triggering message stays auditable and testable.
func GenerateEmailContent(purpose models.Purpose, recipientName, timingPhrase string) EmailContent {
	name := recipientName
	if name == "" {
		name = "there"
	}

	switch purpose {
	case models.PurposeAvailabilityCheck:
		return EmailContent{
			Subject: "Checking your availability",
			Body: fmt.Sprintf(
				"Hi %s,\n\nI wanted to check your availability %s. Could you let me know what works for you?\n\nBest regards",
				name, timingPhrase),
		}
	case models.PurposeMeetingRequest:
		return EmailContent{
			Subject: "Meeting request",
			Body: fmt.Sprintf(
				"Hi %s,\n\nI'd like to set up a meeting %s. Would that work for you?\n\nBest regards",
				name, timingPhrase),
		}
	case models.PurposeFollowUp:
		return EmailContent{
			Subject: "Following up",
			Body: fmt.Sprintf(
				"Hi %s,\n\nI'm following up on our recent conversation. Do you have any updates to share?\n\nBest regards",
				name),
		}
	case models.PurposeInfoSharing:
		return EmailContent{
			Subject: "Some information for you",
			Body: fmt.Sprintf(
				"Hi %s,\n\nI wanted to share some information with you. Please find the details below and let me know if you have questions.\n\nBest regards",
				name),
		}
	default:
		return EmailContent{
			Subject: "Hello",
			Body: fmt.Sprintf(
				"Hi %s,\n\nI wanted to reach out to you. Please let me know when you have a moment.\n\nBest regards",
				name),
		}
	}
}

// TimingPhrase renders extracted timing hints as an email-ready phrase.
func TimingPhrase(expression, dayRef string) string {
	var parts []string
	switch dayRef {
	case "tomorrow":
		parts = append(parts, "tomorrow")
	case "today":
		parts = append(parts, "today")
	case "next_week":
		parts = append(parts, "next week")
	}
	if expression != "" {
		parts = append(parts, "around "+expression)
	}
	if len(parts) == 0 {
		return "at your convenience"
	}
	return strings.Join(parts, " ")
}
