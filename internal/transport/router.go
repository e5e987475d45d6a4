package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nextlevelbuilder/msgauth/internal/environment"
	"github.com/nextlevelbuilder/msgauth/pkg/protocol"
)

// route describes one endpoint call.
type route struct {
	name    string
	method  string
	path    string
	headers map[string]string // route-specific, set after the standard headers
}

func initAuthRoute() route {
	return route{name: "init_auth", method: http.MethodPost, path: protocol.PathInitAuth}
}

func checkAuthRoute(requestID string) route {
	return route{name: "check_auth", method: http.MethodGet, path: protocol.CheckAuthPath(requestID)}
}

func validateSessionRoute(token string) route {
	return route{
		name:    "validate_session",
		method:  http.MethodGet,
		path:    protocol.PathCheckSession,
		headers: map[string]string{protocol.HeaderSessionToken: token},
	}
}

// request builds the HTTP request for r against base.
func (r route) request(ctx context.Context, base *url.URL, authKey, secretKey string, env environment.Context) (*http.Request, error) {
	ref, err := url.Parse(r.path)
	if err != nil {
		return nil, fmt.Errorf("parse route path %q: %w", r.path, err)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, base.ResolveReference(ref).String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", r.name, err)
	}

	h := req.Header
	h.Set(protocol.HeaderContentType, protocol.ContentTypeJSON)
	h.Set(protocol.HeaderAuthorization, authKey)
	h.Set(protocol.HeaderSecretKey, secretKey)
	h.Set(protocol.HeaderConnection, protocol.ConnectionClose)
	h.Set(protocol.HeaderEnvironment, env.Environment)
	h.Set(protocol.HeaderDeviceID, env.DeviceID)
	if env.Region != "" {
		h.Set(protocol.HeaderRegionCode, env.Region)
	}
	h.Set(protocol.HeaderBundleID, env.BundleID)
	h.Set(protocol.HeaderAppVersion, env.AppVersion)
	h.Set(protocol.HeaderAppBuild, env.AppBuild)
	h.Set(protocol.HeaderAppName, env.AppName)
	h.Set(protocol.HeaderLocale, env.Locale)
	h.Set(env.LibraryVersionHeader(), env.LibraryVersion)
	for k, v := range r.headers {
		h.Set(k, v)
	}
	// net/http ignores the Connection header for connection management.
	req.Close = true

	return req, nil
}
