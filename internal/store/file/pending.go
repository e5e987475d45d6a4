// Package file implements the pending store as a single JSON file. It is the
// default backend for a CLI running on one machine.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/nextlevelbuilder/msgauth/internal/store"
)

// MaxPending caps how many requests are kept; the oldest are dropped first.
const MaxPending = 20

type document struct {
	Pending []store.PendingRequest `json:"pending"`
}

// PendingStore implements store.PendingStore backed by a JSON file.
type PendingStore struct {
	path string
	doc  document
	mu   sync.Mutex
	now  func() time.Time
}

// NewPendingStore loads path if it exists. A missing file is an empty store.
func NewPendingStore(path string) (*PendingStore, error) {
	s := &PendingStore{path: path, now: time.Now}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PendingStore) Save(_ context.Context, req store.PendingRequest) error {
	if err := store.ValidateRequestID(req.RequestID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneExpired()
	kept := s.doc.Pending[:0]
	for _, p := range s.doc.Pending {
		if p.RequestID != req.RequestID {
			kept = append(kept, p)
		}
	}
	s.doc.Pending = append(kept, req)
	s.sortNewestFirst()
	if len(s.doc.Pending) > MaxPending {
		s.doc.Pending = s.doc.Pending[:MaxPending]
	}

	if err := s.save(); err != nil {
		return err
	}
	slog.Debug("pending request saved", "request_id", req.RequestID, "path", s.path)
	return nil
}

func (s *PendingStore) Get(_ context.Context, requestID string) (*store.PendingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune()
	for _, p := range s.doc.Pending {
		if p.RequestID == requestID {
			out := p
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *PendingStore) Latest(_ context.Context) (*store.PendingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune()
	if len(s.doc.Pending) == 0 {
		return nil, store.ErrNotFound
	}
	out := s.doc.Pending[0]
	return &out, nil
}

func (s *PendingStore) List(_ context.Context) ([]store.PendingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune()
	result := make([]store.PendingRequest, len(s.doc.Pending))
	copy(result, s.doc.Pending)
	return result, nil
}

func (s *PendingStore) Delete(_ context.Context, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := s.pruneExpired()
	for i, p := range s.doc.Pending {
		if p.RequestID == requestID {
			s.doc.Pending = append(s.doc.Pending[:i], s.doc.Pending[i+1:]...)
			return s.save()
		}
	}
	if pruned {
		if err := s.save(); err != nil {
			return err
		}
	}
	return store.ErrNotFound
}

func (s *PendingStore) Close() error { return nil }

// pruneExpired drops expired entries in memory and reports whether any went.
func (s *PendingStore) pruneExpired() bool {
	now := s.now()
	var valid []store.PendingRequest
	for _, p := range s.doc.Pending {
		if !p.Expired(now) {
			valid = append(valid, p)
		}
	}
	pruned := len(valid) != len(s.doc.Pending)
	s.doc.Pending = valid
	return pruned
}

// prune is pruneExpired for read paths: the file is rewritten when entries
// were dropped, and a failed write only costs a retry on the next access.
func (s *PendingStore) prune() {
	if !s.pruneExpired() {
		return
	}
	if err := s.save(); err != nil {
		slog.Warn("pending store: persist prune failed", "path", s.path, "error", err)
	}
}

func (s *PendingStore) sortNewestFirst() {
	sort.SliceStable(s.doc.Pending, func(i, j int) bool {
		return s.doc.Pending[i].CreatedAt > s.doc.Pending[j].CreatedAt
	})
}

func (s *PendingStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read pending store: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &s.doc); err != nil {
		return fmt.Errorf("parse pending store %s: %w", s.path, err)
	}
	s.sortNewestFirst()
	return nil
}

func (s *PendingStore) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create pending store dir: %w", err)
	}
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal pending store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write pending store: %w", err)
	}
	return os.Rename(tmp, s.path)
}
