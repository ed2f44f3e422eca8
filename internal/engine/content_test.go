package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/advisordesk/orchestrator/internal/models"
)

func TestGenerateEmailContent(t *testing.T) {
	tests := []struct {
		name        string
		purpose     models.Purpose
		recipient   string
		timing      string
		wantSubject string
		wantInBody  []string
	}{
		{
			name:        "availability check",
			purpose:     models.PurposeAvailabilityCheck,
			recipient:   "Sarah",
			timing:      "tomorrow around 4-5pm",
			wantSubject: "Checking your availability",
			wantInBody:  []string{"Hi Sarah", "tomorrow around 4-5pm", "what works for you"},
		},
		{
			name:        "meeting request",
			purpose:     models.PurposeMeetingRequest,
			recipient:   "Sarah",
			timing:      "next week",
			wantSubject: "Meeting request",
			wantInBody:  []string{"Hi Sarah", "set up a meeting next week"},
		},
		{
			name:        "follow up ignores timing",
			purpose:     models.PurposeFollowUp,
			recipient:   "Bob",
			timing:      "tomorrow",
			wantSubject: "Following up",
			wantInBody:  []string{"Hi Bob", "following up on our recent conversation"},
		},
		{
			name:        "information sharing",
			purpose:     models.PurposeInfoSharing,
			recipient:   "Bob",
			wantSubject: "Some information for you",
			wantInBody:  []string{"Hi Bob", "share some information"},
		},
		{
			name:        "general communication fallback",
			purpose:     models.PurposeGeneralCommunication,
			recipient:   "Bob",
			wantSubject: "Hello",
			wantInBody:  []string{"Hi Bob", "wanted to reach out"},
		},
		{
			name:        "missing name falls back to a neutral greeting",
			purpose:     models.PurposeMeetingRequest,
			timing:      "at your convenience",
			wantSubject: "Meeting request",
			wantInBody:  []string{"Hi there"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := GenerateEmailContent(tt.purpose, tt.recipient, tt.timing)
			assert.Equal(t, tt.wantSubject, content.Subject)
			for _, want := range tt.wantInBody {
				assert.Contains(t, content.Body, want)
			}
		})
	}
}

func TestTimingPhrase(t *testing.T) {
	tests := []struct {
		expression string
		dayRef     string
		want       string
	}{
		{"4-5pm", "tomorrow", "tomorrow around 4-5pm"},
		{"", "tomorrow", "tomorrow"},
		{"", "next_week", "next week"},
		{"10:30am", "", "around 10:30am"},
		{"", "", "at your convenience"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TimingPhrase(tt.expression, tt.dayRef))
	}
}
