package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the canonical transfer record store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store over the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// ErrNotFound is returned when a status patch targets an unknown record.
var ErrNotFound = errors.New("transfer record not found")

const schema = `
CREATE TABLE IF NOT EXISTS transfers (
	id         TEXT PRIMARY KEY,
	thread_id  TEXT NOT NULL,
	kind       TEXT NOT NULL,
	direction  TEXT NOT NULL,
	token_id   TEXT NOT NULL,
	chain      TEXT NOT NULL,
	amount     DOUBLE PRECISION NOT NULL,
	status     TEXT NOT NULL,
	tx_hash    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS transfers_thread_idx ON transfers (thread_id, created_at);
CREATE INDEX IF NOT EXISTS transfers_status_idx ON transfers (status) WHERE status = 'pending';
`

// EnsureSchema creates the transfers table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure transfers schema: %w", err)
	}
	return nil
}

// GetAll returns records for a thread in ascending timestamp order, or
// for all threads when threadID is empty.
func (s *PostgresStore) GetAll(ctx context.Context, threadID string) ([]TransferRecord, error) {
	query := `
		SELECT id, thread_id, kind, direction, token_id, chain, amount, status, tx_hash, created_at
		FROM transfers
		WHERE ($1 = '' OR thread_id = $1)
		ORDER BY created_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	var out []TransferRecord
	for rows.Next() {
		var rec TransferRecord
		if err := rows.Scan(
			&rec.ID, &rec.ThreadID, &rec.Kind, &rec.Direction,
			&rec.TokenID, &rec.Chain, &rec.Amount, &rec.Status,
			&rec.TxHash, &rec.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transfers: %w", err)
	}
	return out, nil
}

// Upsert inserts or replaces a record by id.
func (s *PostgresStore) Upsert(ctx context.Context, rec TransferRecord) error {
	query := `
		INSERT INTO transfers (id, thread_id, kind, direction, token_id, chain, amount, status, tx_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			thread_id = EXCLUDED.thread_id,
			kind = EXCLUDED.kind,
			direction = EXCLUDED.direction,
			token_id = EXCLUDED.token_id,
			chain = EXCLUDED.chain,
			amount = EXCLUDED.amount,
			status = EXCLUDED.status,
			tx_hash = EXCLUDED.tx_hash,
			created_at = EXCLUDED.created_at`

	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.ThreadID, rec.Kind, rec.Direction,
		rec.TokenID, rec.Chain, rec.Amount, rec.Status,
		rec.TxHash, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert transfer %s: %w", rec.ID, err)
	}
	return nil
}

// PatchStatus updates the status of an existing record.
func (s *PostgresStore) PatchStatus(ctx context.Context, id string, status Status) error {
	tag, err := s.pool.Exec(ctx, `UPDATE transfers SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to patch transfer %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

