package assets

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nutcracker-app/nutcracker/internal/generation"
)

var ErrNotFound = errors.New("asset not found")

// Repository persists generated binaries and their catalog entries. It is the
// production implementation of the generation pipeline's storage
// collaborators.
type Repository struct {
	pool   *pgxpool.Pool
	signer *Signer
}

func NewRepository(pool *pgxpool.Pool, signer *Signer) *Repository {
	return &Repository{pool: pool, signer: signer}
}

// Store writes the binary and returns its signed fetch URL.
func (r *Repository) Store(ctx context.Context, data []byte, mimeType string) (*generation.StoredAsset, error) {
	id := uuid.New()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO assets (id, mime_type, data) VALUES ($1, $2, $3)`,
		id, mimeType, data)
	if err != nil {
		return nil, fmt.Errorf("inserting asset: %w", err)
	}
	return &generation.StoredAsset{ID: id, SignedURL: r.signer.SignedURL(id)}, nil
}

// Fetch reads one asset's binary for serving.
func (r *Repository) Fetch(ctx context.Context, id uuid.UUID) (string, []byte, error) {
	var mimeType string
	var data []byte
	err := r.pool.QueryRow(ctx,
		`SELECT mime_type, data FROM assets WHERE id = $1`, id).Scan(&mimeType, &data)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil, ErrNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("fetching asset %s: %w", id, err)
	}
	return mimeType, data, nil
}

// UpsertEntry records a completed generation in the ranked catalog.
func (r *Repository) UpsertEntry(ctx context.Context, entry *generation.CatalogEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO catalog (id, animal, seed, prompt, style, asset_id, rating, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
		   prompt = EXCLUDED.prompt,
		   style = EXCLUDED.style,
		   asset_id = EXCLUDED.asset_id`,
		entry.ID, entry.Animal, entry.Seed, entry.Prompt, entry.Style,
		entry.AssetID, entry.Rating, entry.CreatedBy, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("upserting catalog entry: %w", err)
	}
	return nil
}
