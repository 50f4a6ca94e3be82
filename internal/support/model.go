package support

import (
	"context"
	"time"
)

// Message classification types.
const (
	TypeBug      = "bug"
	TypeFeedback = "feedback"
	TypeQuestion = "question"
	TypeInvalid  = "invalid"
)

// Classification is the triage verdict for one support message.
type Classification struct {
	Type       string  `json:"type"`
	Component  string  `json:"component,omitempty"`
	Severity   Tier    `json:"severity"`
	Title      string  `json:"title,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Issue is the tracker's view of a report.
type Issue struct {
	Number   int
	Title    string
	Body     string
	Labels   []string
	State    string
	ClosedAt *time.Time
	Comments int
}

// Reply is what the support endpoint returns to the client.
type Reply struct {
	Response       string `json:"response"`
	Classification string `json:"classification,omitempty"`
	IssueNumber    int    `json:"issue_number,omitempty"`
	RateLimited    bool   `json:"rate_limited,omitempty"`
	RetryAfter     int    `json:"retry_after_seconds,omitempty"`
}

// Classifier triages a support message.
type Classifier interface {
	Classify(ctx context.Context, message, pageContext string) (*Classification, error)
}

// Answerer produces a conversational answer for question-type messages.
type Answerer interface {
	Answer(ctx context.Context, message, pageContext string) (string, error)
}

// Tracker is the issue tracker the dedup engine works against.
type Tracker interface {
	SearchIssues(ctx context.Context, keywords []string) ([]Issue, error)
	CreateIssue(ctx context.Context, title, body string, labels []string) (*Issue, error)
	AddComment(ctx context.Context, number int, body string) error
	SetLabels(ctx context.Context, number int, labels []string) error
	Reopen(ctx context.Context, number int) error
}
