package protocol

// Service error codes carried in the "code" field of an HTTP 400 body.
const (
	CodeMissingParameter   = 120
	CodeAccountSuspended   = 500
	CodeAccountBlocked     = 510
	CodeInvalidBundleID    = 700
	CodeUnableToInit       = 710
	CodeServiceUnavailable = 720
	CodeInvalidRequestID   = 730
	CodeInvalidAuthDevice  = 740
	CodeInvalidAuthToken   = 750
	CodeAuthTokenExpired   = 760
	CodeDeprecatedClient   = 770
)
