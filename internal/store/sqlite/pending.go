// Package sqlite implements the pending store on an embedded SQLite
// database (modernc.org/sqlite, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nextlevelbuilder/msgauth/internal/store"
)

// PendingStore implements store.PendingStore backed by SQLite.
type PendingStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*PendingStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &PendingStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Debug("pending store opened", "backend", "sqlite", "path", path)
	return s, nil
}

func (s *PendingStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS pending_requests (
			request_id TEXT PRIMARY KEY,
			code TEXT NOT NULL DEFAULT '',
			sender_name TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pending_created ON pending_requests(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:min(len(stmt), 60)], err)
		}
	}
	return nil
}

func (s *PendingStore) Save(ctx context.Context, req store.PendingRequest) error {
	if err := store.ValidateRequestID(req.RequestID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO pending_requests (request_id, code, sender_name, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)`,
		req.RequestID, req.Code, req.SenderName, req.CreatedAt, req.ExpiresAt)
	if err != nil {
		return fmt.Errorf("save pending request: %w", err)
	}
	return nil
}

func (s *PendingStore) Get(ctx context.Context, requestID string) (*store.PendingRequest, error) {
	s.prune(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT request_id, code, sender_name, created_at, expires_at
		 FROM pending_requests WHERE request_id = ?`, requestID)
	return scan(row)
}

func (s *PendingStore) Latest(ctx context.Context) (*store.PendingRequest, error) {
	s.prune(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT request_id, code, sender_name, created_at, expires_at
		 FROM pending_requests ORDER BY created_at DESC LIMIT 1`)
	return scan(row)
}

func (s *PendingStore) List(ctx context.Context) ([]store.PendingRequest, error) {
	s.prune(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT request_id, code, sender_name, created_at, expires_at
		 FROM pending_requests ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	defer rows.Close()

	result := []store.PendingRequest{}
	for rows.Next() {
		var p store.PendingRequest
		if err := rows.Scan(&p.RequestID, &p.Code, &p.SenderName, &p.CreatedAt, &p.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan pending request: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *PendingStore) Delete(ctx context.Context, requestID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pending_requests WHERE request_id = ?`, requestID)
	if err != nil {
		return fmt.Errorf("delete pending request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *PendingStore) Close() error { return s.db.Close() }

func (s *PendingStore) prune(ctx context.Context) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_requests WHERE expires_at < ?`, time.Now().UnixMilli()); err != nil {
		slog.Warn("prune pending requests failed", "backend", "sqlite", "error", err)
	}
}

func scan(row *sql.Row) (*store.PendingRequest, error) {
	var p store.PendingRequest
	err := row.Scan(&p.RequestID, &p.Code, &p.SenderName, &p.CreatedAt, &p.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan pending request: %w", err)
	}
	return &p, nil
}
