package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/advisordesk/orchestrator/internal/models"
)

func TestClassifyWorkflowRules(t *testing.T) {
	c := New(zap.NewNop())

	tests := []struct {
		name     string
		request  string
		wantType models.WorkflowType
	}{
		{
			name:     "availability check chained with scheduling",
			request:  "Check Bob's availability next week and then book something",
			wantType: models.WorkflowFollowUp,
		},
		{
			name:     "outreach plus scheduling is meeting coordination",
			request:  "Email sarah@acme.com to schedule a meeting tomorrow 4-5pm",
			wantType: models.WorkflowMeeting,
		},
		{
			name:     "reach out to discuss availability",
			request:  "Reach out to John about his availability on Friday",
			wantType: models.WorkflowMeeting,
		},
		{
			name:     "information gathering",
			request:  "Contact Dana and ask about her portfolio preferences",
			wantType: models.WorkflowInfoGather,
		},
		{
			name:     "bare imperative is a simple action workflow",
			request:  "Send an email to Bob about the quarterly report",
			wantType: models.WorkflowSimpleAction,
		},
		{
			name:     "scheduling imperative without an outreach verb",
			request:  "Schedule a meeting with sarah@acme.com tomorrow 4-5pm",
			wantType: models.WorkflowMeeting,
		},
		{
			name:     "book a call imperative",
			request:  "Book a call with Dana next week",
			wantType: models.WorkflowMeeting,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := c.Classify(tt.request)
			require.True(t, d.Workflow, "expected a workflow classification")
			assert.Equal(t, tt.wantType, d.WorkflowType)
		})
	}
}

func TestClassifySingleTurnRequests(t *testing.T) {
	c := New(zap.NewNop())

	tests := []struct {
		request  string
		wantKind ActionKind
	}{
		{"What's in my inbox this morning?", ActionEmail},
		{"What's on my calendar today?", ActionCalendar},
		{"Look up the Hendersons in the crm", ActionCRM},
		{"What's the expense ratio of VTSAX?", ActionUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.request, func(t *testing.T) {
			d := c.Classify(tt.request)
			assert.False(t, d.Workflow)
			assert.Equal(t, tt.wantKind, d.Kind)
		})
	}
}

// An internally generated reply-analysis prompt embeds the original request
// text, which would otherwise re-match the workflow rules and loop forever.
func TestClassifyGuardsAgainstAnalysisPrompts(t *testing.T) {
	c := New(zap.NewNop())

	prompt := "Analyze this email reply and summarize the sender's intent in a short sentence.\n\n" +
		"Original request: Email sarah@acme.com to schedule a meeting tomorrow 4-5pm\n\n" +
		"Reply received from sarah@acme.com\nSubject: Re: Meeting request\n\nSure, works for me."

	d := c.Classify(prompt)
	assert.False(t, d.Workflow)
}

func TestExtract(t *testing.T) {
	c := New(zap.NewNop())

	d := c.Classify("Email sarah@acme.com to schedule a meeting tomorrow 4-5pm")
	require.True(t, d.Workflow)

	ex := d.Extracted
	assert.Equal(t, "sarah@acme.com", ex.Recipient.Email)
	assert.Equal(t, models.PurposeMeetingRequest, ex.Purpose)
	assert.Equal(t, "4-5pm", ex.Timing.Expression)
	assert.Equal(t, "tomorrow", ex.Timing.DayRef)
	assert.True(t, ex.TimingMentioned)
	assert.False(t, ex.Urgent)
}

// A "schedule a meeting with ..." imperative names the counterpart inline,
// so it is meeting coordination even without a separate outreach verb.
func TestClassifySchedulingImperative(t *testing.T) {
	c := New(zap.NewNop())

	d := c.Classify("Schedule a meeting with sarah@acme.com tomorrow 4-5pm")
	require.True(t, d.Workflow)
	assert.Equal(t, models.WorkflowMeeting, d.WorkflowType)
	assert.Equal(t, "sarah@acme.com", d.Extracted.Recipient.Email)
	assert.Equal(t, "4-5pm", d.Extracted.Timing.Expression)
	assert.Equal(t, "tomorrow", d.Extracted.Timing.DayRef)
}

func TestExtractRecipientVariants(t *testing.T) {
	tests := []struct {
		name    string
		request string
		want    Recipient
	}{
		{
			name:    "explicit address wins over name",
			request: "Email Sarah Smith at sarah@acme.com about the review",
			want:    Recipient{Email: "sarah@acme.com"},
		},
		{
			name:    "capitalized name after preposition",
			request: "Reach out to John Baker and ask about his plans",
			want:    Recipient{Name: "John Baker"},
		},
		{
			name:    "sentence-initial email keyword",
			request: "Email Sarah to schedule a meeting next week",
			want:    Recipient{Name: "Sarah"},
		},
		{
			name:    "sentence-initial contact keyword",
			request: "Contact Dana Whitfield about the quarterly review",
			want:    Recipient{Name: "Dana Whitfield"},
		},
		{
			name:    "group term",
			request: "Send an update to all advisors about the new fund",
			want:    Recipient{Group: "all advisors"},
		},
		{
			name:    "no recipient",
			request: "schedule something for later",
			want:    Recipient{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := Extract(tt.request, models.WorkflowMeeting)
			assert.Equal(t, tt.want, ex.Recipient)
			assert.Equal(t, tt.want.Known(), ex.Recipient.Known())
		})
	}
}

func TestExtractPurposeAndUrgency(t *testing.T) {
	ex := Extract("Check if Dana is available tomorrow, it's urgent", models.WorkflowMeeting)
	assert.Equal(t, models.PurposeAvailabilityCheck, ex.Purpose)
	assert.True(t, ex.Urgent)
	assert.Equal(t, "tomorrow", ex.Timing.DayRef)

	ex = Extract("Follow up with Bob on the paperwork", models.WorkflowFollowUp)
	assert.Equal(t, models.PurposeFollowUp, ex.Purpose)
	assert.False(t, ex.Urgent)
	assert.False(t, ex.TimingMentioned)
}

func TestExtractTimingExpressions(t *testing.T) {
	tests := []struct {
		request string
		want    Timing
	}{
		{"meet tomorrow 4-5pm", Timing{Expression: "4-5pm", DayRef: "tomorrow"}},
		{"call today at 10:30am", Timing{Expression: "10:30am", DayRef: "today"}},
		{"sometime next week", Timing{DayRef: "next_week"}},
		{"whenever suits", Timing{}},
	}
	for _, tt := range tests {
		ex := Extract(tt.request, models.WorkflowMeeting)
		assert.Equal(t, tt.want, ex.Timing, tt.request)
	}
}
