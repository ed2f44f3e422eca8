package classifier

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/advisordesk/orchestrator/internal/metrics"
	"github.com/advisordesk/orchestrator/internal/models"
)

// ActionKind is the coarse category of a single-turn request.
type ActionKind string

const (
	ActionEmail    ActionKind = "email"
	ActionCalendar ActionKind = "calendar"
	ActionCRM      ActionKind = "crm"
	ActionUnknown  ActionKind = "unknown"
)

// Decision is the classification outcome: either a single-turn action or a
// multi-step workflow with extracted intent fields.
type Decision struct {
	Workflow     bool
	Kind         ActionKind          // set when Workflow is false
	WorkflowType models.WorkflowType // set when Workflow is true
	Extracted    Extraction          // set when Workflow is true
}

// Classifier decides, without any LLM round-trip, whether a request needs a
// durable multi-step task. Rules are an ordered table of predicates; the
// first match wins. False positives cost a wasted task record and false
// negatives degrade to single-turn handling, so cheap deterministic
// heuristics are the intended trade-off.
type Classifier struct {
	logger *zap.Logger
	rules  []rule
}

type rule struct {
	name         string
	workflowType models.WorkflowType
	match        func(lower string) bool
}

// analysisMarkers guard against reclassifying internally generated analysis
// prompts. Without this the reply-analysis prompt, which embeds the original
// request text, would itself classify as a workflow and loop.
var analysisMarkers = []string{
	"analyze this email reply",
	"analyze the following reply",
	"original request:",
	"reply received from",
	"summarize the sender's intent",
}

var followUpPatterns = []*regexp.Regexp{
	regexp.MustCompile(`ask\b.*\b(?:and|then)\b.*\b(?:schedule|follow)`),
	regexp.MustCompile(`check\b.*\bavailability\b.*\band\b`),
	regexp.MustCompile(`reach out\b.*\b(?:and|then)\b.*\b(?:set up|schedule)`),
	regexp.MustCompile(`email\b.*\band\b.*\bfollow up`),
}

var outreachTerms = []string{"email", "contact", "reach out", "send", "message", "write to"}

var schedulingTerms = []string{"meeting", "schedule", "calendar", "available", "availability", "appointment"}

// meetingImperatives name a counterpart directly ("schedule a meeting with
// sarah@..."), which implies the outreach even without an outreach term.
var meetingImperatives = []*regexp.Regexp{
	regexp.MustCompile(`^\s*schedule\s+(?:a\s+)?(?:meeting|call)\s+with\b`),
	regexp.MustCompile(`^\s*(?:set|line)\s+up\s+(?:a\s+)?(?:meeting|call)\s+with\b`),
	regexp.MustCompile(`^\s*book\s+(?:a\s+)?(?:meeting|call|time)\s+with\b`),
}

var infoSeekingPhrases = []string{"ask about", "inquire about", "get information", "find out"}

var actionImperatives = []*regexp.Regexp{
	regexp.MustCompile(`^\s*send\s+(?:an?\s+)?email\s+to\b`),
	regexp.MustCompile(`\bcreate\s+(?:a\s+)?(?:new\s+)?contact\b`),
	regexp.MustCompile(`\bcancel\s+(?:my\s+|the\s+)?meeting\b`),
	regexp.MustCompile(`\badd\s+(?:a\s+)?note\s+to\b`),
}

// New builds a classifier with the fixed rule table.
func New(logger *zap.Logger) *Classifier {
	c := &Classifier{logger: logger}
	c.rules = []rule{
		{
			name:         "follow_up_communication",
			workflowType: models.WorkflowFollowUp,
			match: func(lower string) bool {
				for _, p := range followUpPatterns {
					if p.MatchString(lower) {
						return true
					}
				}
				return false
			},
		},
		{
			name:         "meeting_coordination",
			workflowType: models.WorkflowMeeting,
			match: func(lower string) bool {
				if containsAny(lower, outreachTerms) && containsAny(lower, schedulingTerms) {
					return true
				}
				for _, p := range meetingImperatives {
					if p.MatchString(lower) {
						return true
					}
				}
				return false
			},
		},
		{
			name:         "information_gathering",
			workflowType: models.WorkflowInfoGather,
			match: func(lower string) bool {
				return containsAny(lower, infoSeekingPhrases)
			},
		},
		{
			name:         "simple_action",
			workflowType: models.WorkflowSimpleAction,
			match: func(lower string) bool {
				for _, p := range actionImperatives {
					if p.MatchString(lower) {
						return true
					}
				}
				return false
			},
		},
	}
	return c
}

// Classify applies the rule table to the request text. The original case is
// preserved in the returned extraction for downstream prompts; matching
// itself runs over the lowercased text.
func (c *Classifier) Classify(request string) Decision {
	lower := strings.ToLower(request)

	if isAnalysisPrompt(lower) {
		c.logger.Debug("Request looks like an internal analysis prompt, skipping workflow rules")
		metrics.ClassifierDecisions.WithLabelValues("analysis_guard").Inc()
		return Decision{Workflow: false, Kind: singleActionKind(lower)}
	}

	for _, r := range c.rules {
		if r.match(lower) {
			c.logger.Debug("Request classified as workflow",
				zap.String("rule", r.name),
			)
			metrics.ClassifierDecisions.WithLabelValues(string(r.workflowType)).Inc()
			return Decision{
				Workflow:     true,
				WorkflowType: r.workflowType,
				Extracted:    Extract(request, r.workflowType),
			}
		}
	}

	kind := singleActionKind(lower)
	metrics.ClassifierDecisions.WithLabelValues(string(kind)).Inc()
	return Decision{Workflow: false, Kind: kind}
}

func isAnalysisPrompt(lower string) bool {
	for _, m := range analysisMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func singleActionKind(lower string) ActionKind {
	switch {
	case strings.Contains(lower, "email") || strings.Contains(lower, "inbox"):
		return ActionEmail
	case strings.Contains(lower, "calendar") || strings.Contains(lower, "meeting") || strings.Contains(lower, "schedule"):
		return ActionCalendar
	case strings.Contains(lower, "contact") || strings.Contains(lower, "crm") || strings.Contains(lower, "hubspot"):
		return ActionCRM
	default:
		return ActionUnknown
	}
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
