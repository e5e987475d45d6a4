package protocol

import (
	"encoding/json"
	"fmt"
)

// AuthStatus is the lifecycle status of an auth request as reported by the
// check endpoint.
type AuthStatus string

const (
	StatusPending    AuthStatus = "pending"
	StatusProcessing AuthStatus = "processing"
	StatusTimeout    AuthStatus = "timeout"
	StatusCompleted  AuthStatus = "completed"
)

// Terminal reports whether no further polling is needed for this status.
func (s AuthStatus) Terminal() bool {
	return s == StatusTimeout || s == StatusCompleted
}

// UnmarshalJSON rejects statuses this client does not understand, so an
// unexpected server value surfaces as a decode failure instead of polling forever.
func (s *AuthStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch AuthStatus(raw) {
	case StatusPending, StatusProcessing, StatusTimeout, StatusCompleted:
		*s = AuthStatus(raw)
		return nil
	}
	return fmt.Errorf("unknown auth status %q", raw)
}
