// Package postgres is the archive backend for server deployments. Batches
// are stored as a header row plus the full document in a JSONB column.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hoanghai1803/murmur/internal/archive"
	"github.com/hoanghai1803/murmur/internal/models"
)

var _ archive.Backend = (*Archive)(nil)

// Archive is a Postgres-backed batch store.
type Archive struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS batches (
	batch_id        TEXT PRIMARY KEY,
	query           TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	unique_comments INTEGER NOT NULL DEFAULT 0,
	grand_total     INTEGER NOT NULL DEFAULT 0,
	attempts_made   INTEGER NOT NULL DEFAULT 0,
	target_achieved BOOLEAN NOT NULL DEFAULT FALSE,
	document        JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_batches_created_at ON batches(created_at DESC);
`

// Open connects to the database at dsn and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Archive, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring batches schema: %w", err)
	}

	slog.Info("opened postgres archive")
	return &Archive{pool: pool}, nil
}

// Close releases the connection pool.
func (a *Archive) Close() error {
	a.pool.Close()
	return nil
}

// Save stores the batch and returns its "postgres:<batch_id>" location.
func (a *Archive) Save(ctx context.Context, b *models.Batch) (string, error) {
	document, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("encoding batch %s: %w", b.BatchID, err)
	}

	_, err = a.pool.Exec(ctx, `
		INSERT INTO batches (
			batch_id, query, created_at, unique_comments,
			grand_total, attempts_made, target_achieved, document
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.BatchID,
		b.Query,
		b.Timestamp,
		b.UniqueComments,
		b.GrandTotal,
		b.AttemptsMade,
		b.TargetAchieved,
		document,
	)
	if err != nil {
		return "", fmt.Errorf("inserting batch %s: %w", b.BatchID, err)
	}

	return "postgres:" + b.BatchID, nil
}

// Get returns the full stored batch, or archive.ErrNotFound.
func (a *Archive) Get(ctx context.Context, batchID string) (*models.Batch, error) {
	var document []byte
	err := a.pool.QueryRow(ctx,
		"SELECT document FROM batches WHERE batch_id = $1", batchID,
	).Scan(&document)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, archive.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying batch %s: %w", batchID, err)
	}

	var b models.Batch
	if err := json.Unmarshal(document, &b); err != nil {
		return nil, fmt.Errorf("decoding batch %s: %w", batchID, err)
	}
	return &b, nil
}

// List returns up to limit batch summaries, newest first.
func (a *Archive) List(ctx context.Context, limit int) ([]models.BatchSummary, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT batch_id, query, created_at, unique_comments,
		       grand_total, attempts_made, target_achieved
		FROM batches
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	defer rows.Close()

	summaries := []models.BatchSummary{}
	for rows.Next() {
		var s models.BatchSummary
		if err := rows.Scan(
			&s.BatchID, &s.Query, &s.Timestamp, &s.UniqueComments,
			&s.GrandTotal, &s.AttemptsMade, &s.TargetAchieved,
		); err != nil {
			return nil, fmt.Errorf("scanning batch summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating batch summaries: %w", err)
	}

	return summaries, nil
}

// Stats reports how many batches and comments the archive holds.
func (a *Archive) Stats(ctx context.Context) (*archive.Stats, error) {
	stats := &archive.Stats{Backend: "postgres"}
	err := a.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(unique_comments), 0),
		       COALESCE(SUM(grand_total), 0)
		FROM batches`,
	).Scan(&stats.Batches, &stats.UniqueComments, &stats.GrandTotal)
	if err != nil {
		return nil, fmt.Errorf("querying archive stats: %w", err)
	}
	return stats, nil
}
