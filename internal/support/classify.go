package support

import (
	"context"
	"strings"
)

// HeuristicClassifier is the keyword fallback used when the remote classifier
// is unavailable. Crude on purpose: it only needs to route the message to a
// sensible branch, not to triage precisely.
type HeuristicClassifier struct{}

var bugKeywords = []string{
	"bug", "broken", "crash", "error", "fail", "failed", "failing",
	"not working", "doesn't work", "does not work", "stuck", "frozen", "wrong",
}

var feedbackKeywords = []string{
	"feature", "request", "suggest", "suggestion", "wish", "should add",
	"would be nice", "would love", "please add", "idea",
}

var questionPrefixes = []string{
	"how", "what", "why", "when", "where", "who", "can i", "can you",
	"is there", "do i", "does the",
}

// Confidence the heuristic reports for a keyword or question-mark hit versus
// the fallthrough guess.
const (
	confidenceKeywordHit = 0.5
	confidenceDefault    = 0.2
)

func (HeuristicClassifier) Classify(_ context.Context, message, _ string) (*Classification, error) {
	lower := strings.ToLower(strings.TrimSpace(message))

	for _, kw := range bugKeywords {
		if strings.Contains(lower, kw) {
			return &Classification{Type: TypeBug, Severity: TierP4, Title: issueTitle(message), Confidence: confidenceKeywordHit}, nil
		}
	}
	for _, kw := range feedbackKeywords {
		if strings.Contains(lower, kw) {
			return &Classification{Type: TypeFeedback, Severity: TierP4, Title: issueTitle(message), Confidence: confidenceKeywordHit}, nil
		}
	}
	if strings.HasSuffix(lower, "?") {
		return &Classification{Type: TypeQuestion, Severity: TierP4, Confidence: confidenceKeywordHit}, nil
	}
	for _, prefix := range questionPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return &Classification{Type: TypeQuestion, Severity: TierP4, Confidence: confidenceKeywordHit}, nil
		}
	}
	return &Classification{Type: TypeQuestion, Severity: TierP4, Confidence: confidenceDefault}, nil
}

// issueTitle derives a short tracker title from the message.
func issueTitle(message string) string {
	title := strings.TrimSpace(message)
	const maxTitle = 72
	if len(title) > maxTitle {
		title = strings.TrimSpace(title[:maxTitle]) + "…"
	}
	return title
}
