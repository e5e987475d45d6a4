package protocol

import (
	"fmt"
	"net/url"
)

// Endpoint paths, relative to the service base URL.
const (
	PathInitAuth     = "auth/api/v1/init/"
	PathCheckSession = "auth/api/v1/check-session/"
)

// CheckAuthPath returns the status endpoint path for one auth request.
func CheckAuthPath(requestID string) string {
	return fmt.Sprintf("auth/api/v1/init/%s/", url.PathEscape(requestID))
}

// Header names sent with requests.
const (
	HeaderContentType    = "Content-Type"
	HeaderAuthorization  = "Authorization"
	HeaderConnection     = "Connection"
	HeaderSecretKey      = "Auth-Secret-Key"
	HeaderSessionToken   = "Auth-Session-Token"
	HeaderRegionCode     = "App-Region-Code"
	HeaderEnvironment    = "App-Environment"
	HeaderBundleID       = "App-Bundle-Id"
	HeaderAppVersion     = "App-Version"
	HeaderAppName        = "App-Name"
	HeaderAppBuild       = "App-Build"
	HeaderLocale         = "App-Locale-Identifier"
	HeaderDeviceID       = "Device-Id"
	HeaderLibraryVersion = "Library-Version"

	ContentTypeJSON = "application/json"
	ConnectionClose = "close"
)
