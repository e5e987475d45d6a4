// Package autherr is the closed error taxonomy of the message-auth client.
//
// Every failure surfaced by the transport or the auth flow is an *Error with
// exactly one Kind. Wire-level causes (network, decode) are kept for
// diagnostics and reachable through errors.Unwrap.
package autherr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nextlevelbuilder/msgauth/pkg/protocol"
)

// Kind identifies one failure class.
type Kind int

const (
	KindUnpaid Kind = iota + 1
	KindDeviceCantSendMessages
	KindUnableToHandleResponse
	KindInternalServerError
	KindRequestTimeout
	KindCanceledByUser
	KindMessageSendFailed
	KindUnauthorized
	KindWrongCredentials
	KindTokenAlreadyRead
	KindBadRequest
	KindNotFound
	KindMissingParameter
	KindInvalidBundleID
	KindUnableToInitRequest
	KindServiceUnavailable
	KindInvalidRequestID
	KindInvalidAuthDevice
	KindInvalidAuthToken
	KindAuthTokenExpired
	KindAccountSuspended
	KindAccountBlocked
	KindDeprecatedClient
	KindFlowInProgress
)

var kindNames = map[Kind]string{
	KindUnpaid:                 "unpaid",
	KindDeviceCantSendMessages: "device_cant_send_messages",
	KindUnableToHandleResponse: "unable_to_handle_response",
	KindInternalServerError:    "internal_server_error",
	KindRequestTimeout:         "request_timeout",
	KindCanceledByUser:         "canceled_by_user",
	KindMessageSendFailed:      "message_send_failed",
	KindUnauthorized:           "unauthorized",
	KindWrongCredentials:       "wrong_credentials",
	KindTokenAlreadyRead:       "token_already_read",
	KindBadRequest:             "bad_request",
	KindNotFound:               "not_found",
	KindMissingParameter:       "missing_parameter",
	KindInvalidBundleID:        "invalid_bundle_id",
	KindUnableToInitRequest:    "unable_to_init_request",
	KindServiceUnavailable:     "service_unavailable",
	KindInvalidRequestID:       "invalid_request_id",
	KindInvalidAuthDevice:      "invalid_auth_device",
	KindInvalidAuthToken:       "invalid_auth_token",
	KindAuthTokenExpired:       "auth_token_expired",
	KindAccountSuspended:       "account_suspended",
	KindAccountBlocked:         "account_blocked",
	KindDeprecatedClient:       "deprecated_client",
	KindFlowInProgress:         "flow_in_progress",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Kinds returns every defined kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindNames))
	for k := KindUnpaid; k <= KindFlowInProgress; k++ {
		out = append(out, k)
	}
	return out
}

// Error is a classified auth failure.
type Error struct {
	Kind  Kind
	Cause error
}

// New returns an *Error of the given kind without a cause.
func New(kind Kind) *Error {
	return &Error{Kind: kind}
}

// Wrap returns an *Error of the given kind carrying cause.
func Wrap(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so errors.Is(err, ErrRequestTimeout)
// works regardless of the cause attached.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Sentinels for errors.Is comparisons.
var (
	ErrUnpaid                 = New(KindUnpaid)
	ErrDeviceCantSendMessages = New(KindDeviceCantSendMessages)
	ErrUnableToHandleResponse = New(KindUnableToHandleResponse)
	ErrInternalServerError    = New(KindInternalServerError)
	ErrRequestTimeout         = New(KindRequestTimeout)
	ErrCanceledByUser         = New(KindCanceledByUser)
	ErrMessageSendFailed      = New(KindMessageSendFailed)
	ErrUnauthorized           = New(KindUnauthorized)
	ErrWrongCredentials       = New(KindWrongCredentials)
	ErrTokenAlreadyRead       = New(KindTokenAlreadyRead)
	ErrBadRequest             = New(KindBadRequest)
	ErrNotFound               = New(KindNotFound)
	ErrMissingParameter       = New(KindMissingParameter)
	ErrInvalidBundleID        = New(KindInvalidBundleID)
	ErrUnableToInitRequest    = New(KindUnableToInitRequest)
	ErrServiceUnavailable     = New(KindServiceUnavailable)
	ErrInvalidRequestID       = New(KindInvalidRequestID)
	ErrInvalidAuthDevice      = New(KindInvalidAuthDevice)
	ErrInvalidAuthToken       = New(KindInvalidAuthToken)
	ErrAuthTokenExpired       = New(KindAuthTokenExpired)
	ErrAccountSuspended       = New(KindAccountSuspended)
	ErrAccountBlocked         = New(KindAccountBlocked)
	ErrDeprecatedClient       = New(KindDeprecatedClient)
	ErrFlowInProgress         = New(KindFlowInProgress)
)

// FromServiceCode maps the "code" field of an HTTP 400 body. Unknown codes
// map to KindBadRequest.
func FromServiceCode(code int) Kind {
	switch code {
	case protocol.CodeMissingParameter:
		return KindMissingParameter
	case protocol.CodeAccountSuspended:
		return KindAccountSuspended
	case protocol.CodeAccountBlocked:
		return KindAccountBlocked
	case protocol.CodeInvalidBundleID:
		return KindInvalidBundleID
	case protocol.CodeUnableToInit:
		return KindUnableToInitRequest
	case protocol.CodeServiceUnavailable:
		return KindServiceUnavailable
	case protocol.CodeInvalidRequestID:
		return KindInvalidRequestID
	case protocol.CodeInvalidAuthDevice:
		return KindInvalidAuthDevice
	case protocol.CodeInvalidAuthToken:
		return KindInvalidAuthToken
	case protocol.CodeAuthTokenExpired:
		return KindAuthTokenExpired
	case protocol.CodeDeprecatedClient:
		return KindDeprecatedClient
	default:
		return KindBadRequest
	}
}

// FromStatus maps non-200, non-400 HTTP statuses. ok is false when the
// status has no dedicated kind; callers then report KindUnableToHandleResponse.
func FromStatus(status int) (kind Kind, ok bool) {
	switch {
	case status == http.StatusUnauthorized:
		return KindWrongCredentials, true
	case status == http.StatusPaymentRequired:
		return KindUnpaid, true
	case status == http.StatusForbidden:
		return KindUnauthorized, true
	case status == http.StatusNotFound:
		return KindNotFound, true
	case status >= 500 && status <= 505:
		return KindInternalServerError, true
	}
	return 0, false
}
