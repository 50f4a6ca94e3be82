package quota

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore implements Store on PostgreSQL. Rows are locked with
// SELECT ... FOR UPDATE inside the transaction, which makes the
// read-check-write in Service linearizable per user and per day key.
//
// Lock ordering is always user row first, budget row second (the Service
// reads them in that order on every path), so transactions cannot deadlock.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning quota tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing quota tx: %w", err)
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) UserDay(ctx context.Context, userID uuid.UUID) (*UserDay, error) {
	// Materialize the row first so FOR UPDATE has something to lock on the
	// user's very first reservation attempt.
	_, err := t.tx.Exec(ctx,
		`INSERT INTO quota_users (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return nil, fmt.Errorf("ensuring quota user row: %w", err)
	}

	var rec UserDay
	err = t.tx.QueryRow(ctx,
		`SELECT user_id, day, confirmed, reserved, last_reservation_id
		 FROM quota_users WHERE user_id = $1 FOR UPDATE`, userID,
	).Scan(&rec.UserID, &rec.Day, &rec.Confirmed, &rec.Reserved, &rec.LastReservationID)
	if err != nil {
		return nil, fmt.Errorf("fetching quota user row: %w", err)
	}
	return &rec, nil
}

func (t *pgTx) SaveUserDay(ctx context.Context, rec *UserDay) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE quota_users
		 SET day = $2, confirmed = $3, reserved = $4, last_reservation_id = $5, updated_at = NOW()
		 WHERE user_id = $1`,
		rec.UserID, rec.Day, rec.Confirmed, rec.Reserved, rec.LastReservationID)
	if err != nil {
		return fmt.Errorf("saving quota user row: %w", err)
	}
	return nil
}

func (t *pgTx) BudgetDay(ctx context.Context, day string) (*BudgetDay, error) {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO quota_budget (day) VALUES ($1) ON CONFLICT (day) DO NOTHING`, day)
	if err != nil {
		return nil, fmt.Errorf("ensuring quota budget row: %w", err)
	}

	var rec BudgetDay
	err = t.tx.QueryRow(ctx,
		`SELECT day, confirmed_spend, reserved_spend
		 FROM quota_budget WHERE day = $1 FOR UPDATE`, day,
	).Scan(&rec.Day, &rec.ConfirmedSpend, &rec.ReservedSpend)
	if err != nil {
		return nil, fmt.Errorf("fetching quota budget row: %w", err)
	}
	return &rec, nil
}

func (t *pgTx) SaveBudgetDay(ctx context.Context, rec *BudgetDay) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE quota_budget
		 SET confirmed_spend = $2, reserved_spend = $3, updated_at = NOW()
		 WHERE day = $1`,
		rec.Day, rec.ConfirmedSpend, rec.ReservedSpend)
	if err != nil {
		return fmt.Errorf("saving quota budget row: %w", err)
	}
	return nil
}
