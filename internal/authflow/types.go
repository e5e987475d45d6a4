package authflow

import (
	"context"
	"time"

	"github.com/nextlevelbuilder/msgauth/internal/autherr"
	"github.com/nextlevelbuilder/msgauth/pkg/protocol"
)

// AuthRequest is a server-issued request awaiting the user's message.
type AuthRequest struct {
	RequestID  string
	Code       string
	SenderName string // recipient the user must message
	Text       string // prefilled message body
	ExpiryDate *time.Time

	IMessageLink string
	QRCode       string
}

func requestFromWire(r *protocol.InitAuthResponse) AuthRequest {
	return AuthRequest{
		RequestID:    r.RequestID,
		Code:         r.Code,
		SenderName:   r.SenderName,
		Text:         r.Text,
		ExpiryDate:   r.ExpiryDate,
		IMessageLink: r.IMessageLink,
		QRCode:       r.QRCode,
	}
}

// SessionToken is the credential issued on successful authentication.
type SessionToken struct {
	Token      string
	ExpireDate time.Time
	Contact    string // phone number or email the message was sent from
}

// SessionInfo is the service's view of a session token.
type SessionInfo struct {
	ServerValid bool
	ExpireDate  time.Time
	Contact     string
}

// Valid reports whether the server accepts the token and it has not expired.
func (s SessionInfo) Valid() bool { return s.ValidAt(time.Now()) }

func (s SessionInfo) ValidAt(now time.Time) bool {
	return s.ServerValid && !s.ExpireDate.Before(now)
}

// Outcome is the single terminal result of a flow.
type Outcome struct {
	Session *SessionToken
	Failure *autherr.Error
}

// Completed reports whether the flow produced a session token.
func (o Outcome) Completed() bool { return o.Failure == nil && o.Session != nil }

// Err returns the failure as an error, or nil on success.
func (o Outcome) Err() error {
	if o.Failure == nil {
		return nil
	}
	return o.Failure
}

func completed(s SessionToken) Outcome { return Outcome{Session: &s} }

func failed(e *autherr.Error) Outcome { return Outcome{Failure: e} }

// DispatchResult is reported exactly once per dispatch attempt.
type DispatchResult int

const (
	DispatchSent DispatchResult = iota + 1
	DispatchFailed
	DispatchCancelled
)

func (r DispatchResult) String() string {
	switch r {
	case DispatchSent:
		return "sent"
	case DispatchFailed:
		return "failed"
	case DispatchCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Dispatcher gets the user to send the auth message (composer, prompt, QR code).
type Dispatcher interface {
	CanSendMessages() bool
	Dispatch(ctx context.Context, req AuthRequest) DispatchResult
}

// InteractionGate blocks user input while a flow runs.
type InteractionGate interface {
	Lock()
	Unlock()
}

// LoadingIndicator is shown while a flow runs.
type LoadingIndicator interface {
	Show()
	Hide()
}

// State is the orchestrator lifecycle position.
type State int

const (
	StateIdle State = iota
	StateInitiating
	StateAwaitingDispatch
	StatePolling
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitiating:
		return "initiating"
	case StateAwaitingDispatch:
		return "awaiting_dispatch"
	case StatePolling:
		return "polling"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}
