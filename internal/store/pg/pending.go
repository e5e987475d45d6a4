package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nextlevelbuilder/msgauth/internal/store"
)

const schema = `CREATE TABLE IF NOT EXISTS msgauth_pending_requests (
	request_id  VARCHAR(255) PRIMARY KEY,
	code        TEXT NOT NULL DEFAULT '',
	sender_name TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	expires_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_msgauth_pending_created ON msgauth_pending_requests (created_at DESC);`

// PGPendingStore implements store.PendingStore backed by Postgres.
type PGPendingStore struct {
	db *sql.DB
}

// NewPGPendingStore wraps db and creates the table if needed.
func NewPGPendingStore(ctx context.Context, db *sql.DB) (*PGPendingStore, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("migrate pending requests: %w", err)
	}
	return &PGPendingStore{db: db}, nil
}

func (s *PGPendingStore) Save(ctx context.Context, req store.PendingRequest) error {
	if err := store.ValidateRequestID(req.RequestID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO msgauth_pending_requests (request_id, code, sender_name, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (request_id) DO UPDATE
		 SET code = EXCLUDED.code, sender_name = EXCLUDED.sender_name,
		     created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at`,
		req.RequestID, req.Code, req.SenderName, time.UnixMilli(req.CreatedAt), time.UnixMilli(req.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("save pending request: %w", err)
	}
	return nil
}

func (s *PGPendingStore) Get(ctx context.Context, requestID string) (*store.PendingRequest, error) {
	s.prune(ctx)
	return scanOne(s.db.QueryRowContext(ctx,
		`SELECT request_id, code, sender_name, created_at, expires_at
		 FROM msgauth_pending_requests WHERE request_id = $1`, requestID))
}

func (s *PGPendingStore) Latest(ctx context.Context) (*store.PendingRequest, error) {
	s.prune(ctx)
	return scanOne(s.db.QueryRowContext(ctx,
		`SELECT request_id, code, sender_name, created_at, expires_at
		 FROM msgauth_pending_requests ORDER BY created_at DESC LIMIT 1`))
}

func (s *PGPendingStore) List(ctx context.Context) ([]store.PendingRequest, error) {
	s.prune(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT request_id, code, sender_name, created_at, expires_at
		 FROM msgauth_pending_requests ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	defer rows.Close()

	result := []store.PendingRequest{}
	for rows.Next() {
		var p store.PendingRequest
		var createdAt, expiresAt time.Time
		if err := rows.Scan(&p.RequestID, &p.Code, &p.SenderName, &createdAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("scan pending request: %w", err)
		}
		p.CreatedAt = createdAt.UnixMilli()
		p.ExpiresAt = expiresAt.UnixMilli()
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *PGPendingStore) Delete(ctx context.Context, requestID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM msgauth_pending_requests WHERE request_id = $1", requestID)
	if err != nil {
		return fmt.Errorf("delete pending request: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *PGPendingStore) Close() error { return s.db.Close() }

func (s *PGPendingStore) prune(ctx context.Context) {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM msgauth_pending_requests WHERE expires_at < $1", time.Now()); err != nil {
		slog.Warn("prune pending requests failed", "backend", "postgres", "error", err)
	}
}

func scanOne(row *sql.Row) (*store.PendingRequest, error) {
	var p store.PendingRequest
	var createdAt, expiresAt time.Time
	err := row.Scan(&p.RequestID, &p.Code, &p.SenderName, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan pending request: %w", err)
	}
	p.CreatedAt = createdAt.UnixMilli()
	p.ExpiresAt = expiresAt.UnixMilli()
	return &p, nil
}
