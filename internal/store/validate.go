package store

import (
	"fmt"
	"strings"
)

// MaxRequestIDLength matches the VARCHAR(255) column in the postgres schema.
const MaxRequestIDLength = 255

// ValidateRequestID rejects ids that cannot be stored or used in a URL path.
func ValidateRequestID(id string) error {
	if id == "" {
		return fmt.Errorf("request id is empty")
	}
	if len(id) > MaxRequestIDLength {
		return fmt.Errorf("request id too long: %d chars (max %d)", len(id), MaxRequestIDLength)
	}
	if strings.ContainsAny(id, " \t\r\n/") {
		return fmt.Errorf("request id %q contains whitespace or '/'", id)
	}
	return nil
}
