package support

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nutcracker-app/nutcracker/internal/events"
	"github.com/nutcracker-app/nutcracker/internal/metrics"
)

// MaxMessageLen is the rune limit a support message is truncated to.
const MaxMessageLen = 2000

var (
	ErrEmptySession = errors.New("empty session id")
	ErrEmptyMessage = errors.New("empty message")
)

const (
	redirectResponse = "I can only help with this app — creating images and voting on them. Is something here not working for you?"
	cooldownResponse = "You're sending messages a little fast. Give it a moment and try again."
	answerFallback   = "Good question — I couldn't look that up just now. Try again in a bit, or describe the problem and I'll file it."
)

// Orchestrator runs the support pipeline: rate limit, classify, then either
// answer, redirect, or dedupe-and-file against the issue tracker.
type Orchestrator struct {
	limiter    *SessionLimiter
	classifier Classifier
	fallback   HeuristicClassifier
	tracker    Tracker
	answerer   Answerer
	log        *ConvLog
	publisher  *events.Publisher
	now        func() time.Time
}

func NewOrchestrator(limiter *SessionLimiter, classifier Classifier, tracker Tracker, answerer Answerer, log *ConvLog, publisher *events.Publisher) *Orchestrator {
	return &Orchestrator{
		limiter:    limiter,
		classifier: classifier,
		tracker:    tracker,
		answerer:   answerer,
		log:        log,
		publisher:  publisher,
		now:        time.Now,
	}
}

// HandleMessage processes one support message end to end.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID, message, pageContext string) (*Reply, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrEmptySession
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if runes := []rune(message); len(runes) > MaxMessageLen {
		message = string(runes[:MaxMessageLen])
	}

	if allowed, _, retryAfter := o.limiter.CheckAndConsume(sessionID); !allowed {
		metrics.SupportMessagesTotal.WithLabelValues("rate_limited").Inc()
		o.publishOutcome(sessionID, "rate_limited", 0)
		return &Reply{
			Response:    cooldownResponse,
			RateLimited: true,
			RetryAfter:  retryAfter,
		}, nil
	}

	c, err := o.classifier.Classify(ctx, message, pageContext)
	if err != nil {
		slog.Warn("remote classification failed, using heuristic",
			"session_id", sessionID, "error", err)
		c, _ = o.fallback.Classify(ctx, message, pageContext)
	}

	reply, err := o.dispatch(ctx, sessionID, message, pageContext, c)
	if err != nil {
		metrics.SupportMessagesTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	reply.Classification = c.Type

	o.logTurns(ctx, sessionID, message, c, reply)
	return reply, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, sessionID, message, pageContext string, c *Classification) (*Reply, error) {
	switch c.Type {
	case TypeInvalid:
		metrics.SupportMessagesTotal.WithLabelValues("redirected").Inc()
		o.publishOutcome(sessionID, "redirected", 0)
		return &Reply{Response: redirectResponse}, nil

	case TypeQuestion:
		answer, err := o.answerer.Answer(ctx, message, pageContext)
		if err != nil {
			slog.Warn("answering support question", "session_id", sessionID, "error", err)
			answer = answerFallback
		}
		metrics.SupportMessagesTotal.WithLabelValues("answered").Inc()
		o.publishOutcome(sessionID, "answered", 0)
		return &Reply{Response: answer}, nil

	default: // bug, feedback
		return o.handleReport(ctx, sessionID, message, pageContext, c)
	}
}

func (o *Orchestrator) handleReport(ctx context.Context, sessionID, message, pageContext string, c *Classification) (*Reply, error) {
	// Dedup works on the condensed report title, not the raw chat message.
	// A verbose message inflates the token union and drags similarity under
	// the threshold even for a textbook duplicate.
	title := c.Title
	if title == "" {
		title = issueTitle(message)
	}

	issues, err := o.tracker.SearchIssues(ctx, SearchKeywords(title))
	if err != nil {
		slog.Warn("searching tracker for duplicates", "session_id", sessionID, "error", err)
		issues = nil
	}

	if dup := FindDuplicate(issues, c, title); dup != nil {
		return o.recordDuplicate(ctx, sessionID, message, pageContext, c, dup)
	}
	return o.createReport(ctx, sessionID, message, pageContext, title, c)
}

func (o *Orchestrator) recordDuplicate(ctx context.Context, sessionID, message, pageContext string, c *Classification, dup *Issue) (*Reply, error) {
	body := reportBody(sessionID, message, pageContext)
	if err := o.tracker.AddComment(ctx, dup.Number, body); err != nil {
		slog.Warn("commenting on duplicate issue", "issue", dup.Number, "error", err)
	}

	// Total reports: the original, one per existing comment, and this one.
	reportCount := dup.Comments + 2
	current := ParseTierLabel(dup.Labels)
	target := ComputeEscalation(current, c.Severity, reportCount)
	if target != current {
		if err := o.tracker.SetLabels(ctx, dup.Number, replaceTierLabel(dup.Labels, target)); err != nil {
			slog.Warn("escalating issue labels", "issue", dup.Number, "error", err)
		} else {
			slog.Info("issue escalated",
				"issue", dup.Number, "from", current.Label(), "to", target.Label(), "reports", reportCount)
			metrics.SupportTicketsTotal.WithLabelValues("escalated").Inc()
		}
	}

	if ShouldReopen(dup, o.now()) {
		if err := o.tracker.Reopen(ctx, dup.Number); err != nil {
			slog.Warn("reopening issue", "issue", dup.Number, "error", err)
		} else {
			metrics.SupportTicketsTotal.WithLabelValues("reopened").Inc()
		}
	}

	metrics.SupportMessagesTotal.WithLabelValues("duplicate").Inc()
	metrics.SupportTicketsTotal.WithLabelValues("commented").Inc()
	o.publishOutcome(sessionID, "duplicate_comment", dup.Number)
	return &Reply{
		Response:    fmt.Sprintf("Thanks — this is already being tracked as #%d, and I've added your report to it.", dup.Number),
		IssueNumber: dup.Number,
	}, nil
}

func (o *Orchestrator) createReport(ctx context.Context, sessionID, message, pageContext, title string, c *Classification) (*Reply, error) {
	labels := []string{"type:" + c.Type, c.Severity.Label()}
	if c.Component != "" {
		labels = append(labels, componentLabel(c.Component))
	}

	issue, err := o.tracker.CreateIssue(ctx, title, reportBody(sessionID, message, pageContext), labels)
	if err != nil {
		return nil, fmt.Errorf("creating issue: %w", err)
	}

	metrics.SupportMessagesTotal.WithLabelValues("ticket_created").Inc()
	metrics.SupportTicketsTotal.WithLabelValues("created").Inc()
	o.publishOutcome(sessionID, "ticket_created", issue.Number)
	return &Reply{
		Response:    fmt.Sprintf("Thanks for the report — I've filed it as #%d so the team can look into it.", issue.Number),
		IssueNumber: issue.Number,
	}, nil
}

func reportBody(sessionID, message, pageContext string) string {
	var b strings.Builder
	b.WriteString(message)
	b.WriteString("\n\n---\n")
	if pageContext != "" {
		fmt.Fprintf(&b, "Page: %s\n", pageContext)
	}
	fmt.Fprintf(&b, "Session: %s\n", sessionID)
	return b.String()
}

func (o *Orchestrator) logTurns(ctx context.Context, sessionID, message string, c *Classification, reply *Reply) {
	entries := []LogEntry{
		{Role: "user", Text: message, Classification: c.Type, Confidence: c.Confidence, Timestamp: o.now().UTC()},
		{Role: "assistant", Text: reply.Response, IssueNumber: reply.IssueNumber, Timestamp: o.now().UTC()},
	}
	for _, e := range entries {
		if err := o.log.Append(ctx, sessionID, e); err != nil {
			slog.Warn("appending conversation log", "session_id", sessionID, "error", err)
		}
	}
}

func (o *Orchestrator) publishOutcome(sessionID, outcome string, issueNumber int) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := o.publisher.PublishSupport(ctx, events.SupportEvent{
		SessionID:   sessionID,
		Outcome:     outcome,
		IssueNumber: issueNumber,
		Timestamp:   time.Now().UTC(),
	}); err != nil {
		slog.Warn("publishing support event", "error", err)
	}
}
