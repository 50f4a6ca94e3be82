package audit

import (
	"time"

	"github.com/google/uuid"
)

// Log is one persisted lifecycle event, written by the events consumer.
type Log struct {
	ID        uuid.UUID `json:"id"`
	Subject   string    `json:"subject"`
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}
