package events

import (
	"time"

	"github.com/google/uuid"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// StreamEvents holds all lifecycle events.
const StreamEvents = "NUTCRACKER_EVENTS"

// Subject constants.
const (
	SubjectGenerationEvent = "nutcracker.events.generation"
	SubjectSupportEvent    = "nutcracker.events.support"
	SubjectWildcard        = "nutcracker.events.>"
)

// GenerationEvent records the outcome of one image generation request.
type GenerationEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	Animal    string    `json:"animal"`
	Outcome   string    `json:"outcome"` // completed, quota_denied, blocked, failed
	Reason    string    `json:"reason,omitempty"`
	AssetURL  string    `json:"asset_url,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SupportEvent records the outcome of one support message.
type SupportEvent struct {
	SessionID   string    `json:"session_id"`
	Outcome     string    `json:"outcome"` // ticket_created, duplicate_comment, redirected, answered, rate_limited
	IssueNumber int       `json:"issue_number,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
