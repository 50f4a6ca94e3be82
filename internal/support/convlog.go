package support

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const convKeyPrefix = "support:conv:"

// LogEntry is one turn of a support conversation.
type LogEntry struct {
	Role           string    `json:"role"` // user or assistant
	Text           string    `json:"text"`
	Classification string    `json:"classification,omitempty"`
	Confidence     float64   `json:"confidence,omitempty"`
	IssueNumber    int       `json:"issue_number,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// ConvLog keeps per-session conversation history in Redis with a TTL. All
// writes are best-effort from the caller's perspective; the support flow
// never fails because the log did.
type ConvLog struct {
	client *redis.Client
	ttl    time.Duration
}

func NewConvLog(client *redis.Client, ttl time.Duration) *ConvLog {
	return &ConvLog{client: client, ttl: ttl}
}

// Append adds one entry to the session's history and refreshes the TTL.
func (c *ConvLog) Append(ctx context.Context, sessionID string, entry LogEntry) error {
	if c == nil || c.client == nil {
		return nil
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling log entry: %w", err)
	}
	key := convKeyPrefix + sessionID

	pipe := c.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("appending conversation log: %w", err)
	}
	return nil
}

// History returns the most recent n entries for a session, oldest first.
func (c *ConvLog) History(ctx context.Context, sessionID string, n int) ([]LogEntry, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	raw, err := c.client.LRange(ctx, convKeyPrefix+sessionID, int64(-n), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading conversation log: %w", err)
	}
	entries := make([]LogEntry, 0, len(raw))
	for _, item := range raw {
		var e LogEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
