package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists audit logs.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert writes one audit log row.
func (r *Repository) Insert(ctx context.Context, subject string, payload []byte) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs (id, subject, payload) VALUES ($1, $2, $3)`,
		uuid.New(), subject, payload)
	if err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}
	return nil
}

// ListRecent returns the most recent audit logs, newest first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]Log, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, subject, payload, created_at
		 FROM audit_logs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing audit logs: %w", err)
	}
	defer rows.Close()

	var logs []Log
	for rows.Next() {
		var l Log
		if err := rows.Scan(&l.ID, &l.Subject, &l.Payload, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
