package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyReply(t *testing.T) {
	tests := []struct {
		name     string
		analysis string
		want     ReplyType
	}{
		{
			name:     "clear acceptance",
			analysis: "The sender accepts the invitation and confirms the proposed time.",
			want:     ReplyPositive,
		},
		{
			name:     "works for phrasing",
			analysis: "They said Thursday works for them.",
			want:     ReplyPositive,
		},
		{
			name:     "clear decline",
			analysis: "The sender declines and is unavailable this week.",
			want:     ReplyNegative,
		},
		{
			name:     "cannot make it",
			analysis: "They can't make the proposed time.",
			want:     ReplyNegative,
		},
		{
			name:     "alternative wins over acceptance wording",
			analysis: "They can't do Tuesday but say another time works for them.",
			want:     ReplyAlternative,
		},
		{
			name:     "reschedule request",
			analysis: "The sender asks to reschedule to Friday.",
			want:     ReplyAlternative,
		},
		{
			name:     "information request",
			analysis: "The sender is asking about the agenda before committing.",
			want:     ReplyInfoRequested,
		},
		{
			name:     "wants more details",
			analysis: "They would like more details about the proposal.",
			want:     ReplyInfoRequested,
		},
		{
			name:     "ambiguous reply stays unclear",
			analysis: "Thanks for reaching out, talk soon.",
			want:     ReplyUnclear,
		},
		{
			name:     "empty analysis stays unclear",
			analysis: "",
			want:     ReplyUnclear,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyReply(tt.analysis))
		})
	}
}

func TestBuildAnalysisPromptCarriesGuardMarkers(t *testing.T) {
	prompt := buildAnalysisPrompt(
		"Email sarah@acme.com to schedule a meeting tomorrow",
		"sarah@acme.com",
		"Re: Meeting request",
		"Sure, that works.",
	)

	// The prompt must carry the phrasing the request classifier's guard list
	// recognizes, otherwise a reply analysis could spawn a new workflow.
	assert.Contains(t, prompt, "Analyze this email reply")
	assert.Contains(t, prompt, "Original request:")
	assert.Contains(t, prompt, "Reply received from")
	assert.Contains(t, prompt, "Sure, that works.")
}
