package classifier

import (
	"regexp"
	"strings"

	"github.com/advisordesk/orchestrator/internal/models"
)

// Recipient describes who the workflow should contact. Exactly one of the
// fields is populated; an empty struct means the recipient is unknown.
type Recipient struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Group string `json:"group,omitempty"`
}

// Known reports whether any recipient field was extracted.
func (r Recipient) Known() bool {
	return r.Email != "" || r.Name != "" || r.Group != ""
}

// Timing holds time hints pulled from the request text. Missing fields stay
// empty; defaults are the workflow engine's concern, not the classifier's.
type Timing struct {
	Expression string `json:"expression,omitempty"` // e.g. "4-5pm", "10:30am"
	DayRef     string `json:"day_ref,omitempty"`    // tomorrow | today | next_week
}

// Extraction is the structured intent pulled out of a workflow request.
type Extraction struct {
	Recipient       Recipient      `json:"recipient"`
	Purpose         models.Purpose `json:"purpose"`
	Timing          Timing         `json:"timing"`
	Urgent          bool           `json:"urgent"`
	TimingMentioned bool           `json:"timing_mentioned"`
}

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	// A capitalized name following a contact preposition, matched against
	// the original-case text so the name capture stays case-sensitive. The
	// preposition itself is case-insensitive: requests routinely start with
	// "Email Sarah ..." or "Contact Dana ...".
	namePattern = regexp.MustCompile(`\b(?i:to|with|email|contact)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`)

	// Clock expressions: a "4-5pm" range or a single "10:30am" time.
	rangePattern = regexp.MustCompile(`\d{1,2}\s*-\s*\d{1,2}\s*[ap]m`)
	clockPattern = regexp.MustCompile(`\d{1,2}(?::\d{2})?\s*[ap]m`)
)

var groupTerms = []string{"team", "clients", "everyone", "the group", "all advisors"}

var urgencyTerms = []string{"urgent", "asap", "immediately", "right away", "as soon as possible"}

// Extract pulls recipient, purpose and timing fields out of the request via
// targeted regex and keyword heuristics.
func Extract(request string, workflowType models.WorkflowType) Extraction {
	lower := strings.ToLower(request)

	ex := Extraction{
		Recipient: extractRecipient(request, lower),
		Purpose:   extractPurpose(lower),
		Timing:    extractTiming(lower),
		Urgent:    containsAny(lower, urgencyTerms),
	}
	ex.TimingMentioned = ex.Timing.Expression != "" || ex.Timing.DayRef != ""
	return ex
}

func extractRecipient(request, lower string) Recipient {
	if email := emailPattern.FindString(request); email != "" {
		return Recipient{Email: email}
	}
	if m := namePattern.FindStringSubmatch(request); m != nil {
		return Recipient{Name: m[1]}
	}
	for _, g := range groupTerms {
		if strings.Contains(lower, g) {
			return Recipient{Group: strings.TrimPrefix(g, "the ")}
		}
	}
	return Recipient{}
}

func extractPurpose(lower string) models.Purpose {
	switch {
	case strings.Contains(lower, "availability") || strings.Contains(lower, "available") || strings.Contains(lower, "free time"):
		return models.PurposeAvailabilityCheck
	case strings.Contains(lower, "follow up") || strings.Contains(lower, "following up") || strings.Contains(lower, "check in"):
		return models.PurposeFollowUp
	case strings.Contains(lower, "meeting") || strings.Contains(lower, "schedule") || strings.Contains(lower, "appointment"):
		return models.PurposeMeetingRequest
	case strings.Contains(lower, "share") || strings.Contains(lower, "send over") || strings.Contains(lower, "update them"):
		return models.PurposeInfoSharing
	default:
		return models.PurposeGeneralCommunication
	}
}

func extractTiming(lower string) Timing {
	t := Timing{}
	if expr := rangePattern.FindString(lower); expr != "" {
		t.Expression = normalizeSpaces(expr)
	} else if expr := clockPattern.FindString(lower); expr != "" {
		t.Expression = normalizeSpaces(expr)
	}
	switch {
	case strings.Contains(lower, "tomorrow"):
		t.DayRef = "tomorrow"
	case strings.Contains(lower, "next week"):
		t.DayRef = "next_week"
	case strings.Contains(lower, "today"):
		t.DayRef = "today"
	}
	return t
}

func normalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}
