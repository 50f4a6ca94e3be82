package quota

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUnavailable wraps transaction-layer failures. Callers treat it as
// non-retryable for the current request and fail closed.
var ErrUnavailable = errors.New("quota store unavailable")

// Store provides atomic read-modify-write access to the quota records.
// All reads and writes inside one InTx call are atomic relative to
// concurrent callers touching the same user or day keys.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the view of the store inside a transaction. UserDay and BudgetDay
// return a zero-counter record when no row exists yet; the record
// materializes on first save.
type Tx interface {
	UserDay(ctx context.Context, userID uuid.UUID) (*UserDay, error)
	SaveUserDay(ctx context.Context, rec *UserDay) error
	BudgetDay(ctx context.Context, day string) (*BudgetDay, error)
	SaveBudgetDay(ctx context.Context, rec *BudgetDay) error
}
