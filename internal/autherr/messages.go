package autherr

import "errors"

const unavailableMessage = "This auth method is currently unavailable"

// Message returns a user-facing description. Detailed messages expose account
// state and wire causes and are meant for development builds; generic ones are
// safe to show end users.
func (e *Error) Message(detailed bool) string {
	switch e.Kind {
	case KindUnpaid:
		if detailed {
			return "Your account with these credentials is unpaid"
		}
		return unavailableMessage
	case KindDeviceCantSendMessages:
		return "This device can't send messages"
	case KindUnableToHandleResponse:
		if detailed && e.Cause != nil {
			return "Failed to process response from server.\n" + e.Cause.Error()
		}
		if detailed {
			return "Failed to process response from server."
		}
		return "Failed to process response from server. Please check your internet connection or try again later."
	case KindInternalServerError:
		return "Service temporarily doesn't work, try again later"
	case KindRequestTimeout:
		return "Auth request timed out"
	case KindCanceledByUser:
		return "Auth canceled by user"
	case KindMessageSendFailed:
		return "Failed to send auth code on the user side"
	case KindUnauthorized:
		return "Session token wrong or expired"
	case KindWrongCredentials:
		return "Wrong credentials for message auth"
	case KindTokenAlreadyRead:
		return "The token has already been read"
	case KindBadRequest:
		return "Bad request conditions. Try to check your request parameters."
	case KindNotFound:
		return "Error 404, content not found"
	case KindMissingParameter:
		return "One or more required parameters for the request are missing"
	case KindInvalidBundleID:
		return "Invalid or non-existent app bundle id"
	case KindUnableToInitRequest:
		return "Unable to init auth request. Try again later."
	case KindServiceUnavailable:
		return "The auth service is temporarily unavailable. Try again later."
	case KindInvalidRequestID:
		return "Invalid or wrong request id"
	case KindInvalidAuthDevice:
		return "Invalid or wrong auth device"
	case KindInvalidAuthToken:
		return "Invalid auth token"
	case KindAuthTokenExpired:
		return "Auth token has expired"
	case KindAccountSuspended:
		if detailed {
			return "Your credentials have been suspended and can't be used for further requests."
		}
		return unavailableMessage
	case KindAccountBlocked:
		if detailed {
			return "Your credentials have been blocked and can't be used for further requests."
		}
		return unavailableMessage
	case KindDeprecatedClient:
		if detailed {
			return "The library version in use is deprecated. Please update it."
		}
		return unavailableMessage
	case KindFlowInProgress:
		return "An auth request is already in progress"
	}
	return "Unknown auth error"
}

// MessageOf returns the user-facing message for any error. Errors outside
// the taxonomy fall back to err.Error() when detailed, or a generic text.
func MessageOf(err error, detailed bool) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message(detailed)
	}
	if detailed {
		return err.Error()
	}
	return "Unexpected error"
}
