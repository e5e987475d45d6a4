// Package protocol defines the wire format of the message-auth HTTP API.
// This package is importable by server-side code that needs to produce or
// inspect the same payloads.
package protocol

import "time"

// LibraryVersion is reported to the service in the Library-Version-* header.
const LibraryVersion = "1.4.0"

// InitAuthResponse is returned by POST auth/api/v1/init/.
type InitAuthResponse struct {
	RequestID    string     `json:"requestId"`
	Code         string     `json:"code"`
	SenderName   string     `json:"senderName"`
	Text         string     `json:"text"`
	IMessageLink string     `json:"imessageLink,omitempty"`
	QRCode       string     `json:"qrCode,omitempty"`
	ExpiryDate   *time.Time `json:"expiryDate,omitempty"`
}

// CheckAuthResponse is returned by GET auth/api/v1/init/{requestId}/.
// SessionToken, ExpireDate and Contact are only set once Status is completed,
// and are omitted when the token has already been read.
type CheckAuthResponse struct {
	Status       AuthStatus `json:"status"`
	SessionToken *string    `json:"sessionToken,omitempty"`
	ExpireDate   *time.Time `json:"expireDate,omitempty"`
	Contact      *string    `json:"contact,omitempty"`
}

// TokenValidationResponse is returned by GET auth/api/v1/check-session/.
type TokenValidationResponse struct {
	Valid      bool      `json:"valid"`
	ExpireDate time.Time `json:"expireDate"`
	Contact    *string   `json:"contact,omitempty"`
}

// ErrorEnvelope is the body of an HTTP 400 response.
type ErrorEnvelope struct {
	Success *bool `json:"success,omitempty"`
	Code    int   `json:"code"`
}
