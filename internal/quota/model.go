package quota

import (
	"math"
	"time"

	"github.com/google/uuid"
)

const dayFormat = "2006-01-02"

// UserDay matches the quota_users table schema. One row per user; the Day
// column marks which UTC day the counters belong to. Counters for a stale
// day are treated as zero (lazy reset) — the next write carries the new day.
type UserDay struct {
	UserID            uuid.UUID `json:"user_id"`
	Day               string    `json:"day"`
	Confirmed         int       `json:"confirmed"`
	Reserved          int       `json:"reserved"`
	LastReservationID string    `json:"last_reservation_id"`
}

// BudgetDay matches the quota_budget table schema. One row per UTC day,
// tracking global dollar spend against the daily cap.
type BudgetDay struct {
	Day            string  `json:"day"`
	ConfirmedSpend float64 `json:"confirmed_spend"`
	ReservedSpend  float64 `json:"reserved_spend"`
}

// Reservation is the ephemeral token returned by a successful Reserve.
// It must end in exactly one Confirm or Release call.
type Reservation struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Day       string
	Cost      float64
	Remaining int
	CreatedAt time.Time
}

// Denial reasons.
const (
	ReasonDailyLimit = "daily_limit"
	ReasonBudgetCap  = "budget_cap"
)

// Denial is returned when a reservation is refused. RetryAfter is the number
// of seconds until the next UTC midnight, when the daily counters reset.
type Denial struct {
	Reason     string
	RetryAfter int
}

// Status is the read-only quota view returned to the client.
type Status struct {
	Used          int `json:"used"`
	Limit         int `json:"limit"`
	Remaining     int `json:"remaining"`
	ResetsSeconds int `json:"resets_in_seconds"`
}

func dayKey(t time.Time) string {
	return t.UTC().Format(dayFormat)
}

func secondsToMidnightUTC(t time.Time) int {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(midnight.Sub(t).Seconds()))
}
