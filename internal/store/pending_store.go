package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a pending request does not exist or has expired.
var ErrNotFound = errors.New("pending request not found")

// PendingRequest is an auth request the user may still complete. It is kept
// so polling can be resumed after the process restarts.
type PendingRequest struct {
	RequestID  string `json:"request_id"`
	Code       string `json:"code"`
	SenderName string `json:"sender_name"`
	CreatedAt  int64  `json:"created_at"` // unix millis
	ExpiresAt  int64  `json:"expires_at"` // unix millis
}

// NewPendingRequest builds a record, falling back to DefaultPendingTTL when
// the service gave no expiry.
func NewPendingRequest(requestID, code, sender string, expiry *time.Time, now time.Time) PendingRequest {
	exp := now.Add(DefaultPendingTTL)
	if expiry != nil && !expiry.IsZero() {
		exp = *expiry
	}
	return PendingRequest{
		RequestID:  requestID,
		Code:       code,
		SenderName: sender,
		CreatedAt:  now.UnixMilli(),
		ExpiresAt:  exp.UnixMilli(),
	}
}

// Expired reports whether the request can no longer be resumed at now.
func (p PendingRequest) Expired(now time.Time) bool {
	return p.ExpiresAt < now.UnixMilli()
}

// PendingStore persists pending auth requests. Expired entries are pruned on
// access and never returned.
type PendingStore interface {
	Save(ctx context.Context, req PendingRequest) error
	Get(ctx context.Context, requestID string) (*PendingRequest, error)
	// Latest returns the most recently created pending request.
	Latest(ctx context.Context) (*PendingRequest, error)
	// List returns pending requests, newest first.
	List(ctx context.Context) ([]PendingRequest, error)
	Delete(ctx context.Context, requestID string) error
	Close() error
}
