package engine

import (
	"fmt"
	"strings"
)

// ReplyType is the lexical bucket an analyzed reply falls into.
type ReplyType string

const (
	ReplyPositive      ReplyType = "positive"
	ReplyNegative      ReplyType = "negative"
	ReplyAlternative   ReplyType = "alternative"
	ReplyInfoRequested ReplyType = "info_requested"
	ReplyUnclear       ReplyType = "unclear"
)

var alternativeTerms = []string{
	"alternative", "different time", "another time", "instead", "reschedule", "rather",
}

var negativeTerms = []string{
	"negative", "decline", "declines", "reject", "can't", "cannot", "can not",
	"won't", "unavailable", "not available", "not interested", "no longer",
}

var positiveTerms = []string{
	"positive", "accept", "accepts", "agree", "agrees", "confirm", "confirms",
	"works for", "sounds good", "happy to", "yes",
}

var infoTerms = []string{
	"more information", "more details", "clarification", "asking about",
	"has a question", "wants to know",
}

// ClassifyReply buckets the LLM's free-text analysis of a reply. Matching
// is lexical, not semantic; anything ambiguous lands in unclear rather than
// being guessed positive or negative. Alternatives and declines are checked
// before acceptance so "can't do Tuesday, another time works" does not read
// as positive.
func ClassifyReply(analysis string) ReplyType {
	lower := strings.ToLower(analysis)
	switch {
	case containsAny(lower, alternativeTerms):
		return ReplyAlternative
	case containsAny(lower, negativeTerms):
		return ReplyNegative
	case containsAny(lower, positiveTerms):
		return ReplyPositive
	case containsAny(lower, infoTerms):
		return ReplyInfoRequested
	default:
		return ReplyUnclear
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

// buildAnalysisPrompt embeds the original request and the reply into the
// tools-disabled analysis prompt. The phrasing deliberately carries the
// markers the request classifier's guard list recognizes, so this prompt
// can never be re-classified as a new workflow.
func buildAnalysisPrompt(originalRequest, from, subject, body string) string {
	return fmt.Sprintf(
		"Analyze this email reply and summarize the sender's intent in a short sentence.\n\n"+
			"Original request: %s\n\n"+
			"Reply received from %s\nSubject: %s\n\n%s",
		originalRequest, from, subject, body,
	)
}
