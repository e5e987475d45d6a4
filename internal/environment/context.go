// Package environment collects the read-only facts about the embedding
// application and device that the auth service expects on every request.
package environment

import (
	"os"
	"runtime"
	"strings"

	"github.com/nextlevelbuilder/msgauth/pkg/protocol"
)

// Build environments reported in the App-Environment header.
const (
	EnvDevelopment = "xcode"
	EnvTestFlight  = "tf"
	EnvProduction  = "prod"
)

// Context is passed to the transport at construction and never mutated.
type Context struct {
	Environment    string
	DeviceID       string
	Region         string // empty when unknown; the header is then omitted
	BundleID       string
	AppName        string
	AppVersion     string
	AppBuild       string
	Locale         string
	Platform       string // suffix of the Library-Version header, e.g. "MAC"
	LibraryVersion string
}

// App describes the embedding application. Empty fields become "???".
type App struct {
	BundleID string
	Name     string
	Version  string
	Build    string
}

// Detect builds a Context for the current process. locale may be empty, in
// which case it is taken from LC_ALL / LC_MESSAGES / LANG.
func Detect(env string, app App, deviceID, locale string) Context {
	if locale == "" {
		locale = localeFromEnv()
	}
	return Context{
		Environment:    orDefault(env, EnvProduction),
		DeviceID:       deviceID,
		Region:         RegionOf(locale),
		BundleID:       orDefault(app.BundleID, "???"),
		AppName:        orDefault(app.Name, "???"),
		AppVersion:     orDefault(app.Version, "???"),
		AppBuild:       orDefault(app.Build, "???"),
		Locale:         locale,
		Platform:       PlatformOf(runtime.GOOS),
		LibraryVersion: protocol.LibraryVersion,
	}
}

// LibraryVersionHeader is the platform-suffixed header name, e.g. Library-Version-MAC.
func (c Context) LibraryVersionHeader() string {
	platform := c.Platform
	if platform == "" {
		platform = PlatformOf(runtime.GOOS)
	}
	return protocol.HeaderLibraryVersion + "-" + platform
}

// PlatformOf maps a GOOS value to the platform tag the service knows.
func PlatformOf(goos string) string {
	switch goos {
	case "darwin":
		return "MAC"
	case "ios":
		return "IOS"
	default:
		return strings.ToUpper(goos)
	}
}

// RegionOf extracts the region from a POSIX or BCP 47 locale identifier:
// "en_US.UTF-8" -> "US", "pt-BR" -> "BR", "fr" -> "".
func RegionOf(locale string) string {
	l := locale
	if i := strings.IndexAny(l, ".@"); i >= 0 {
		l = l[:i]
	}
	parts := strings.FieldsFunc(l, func(r rune) bool { return r == '_' || r == '-' })
	if len(parts) < 2 {
		return ""
	}
	region := parts[len(parts)-1]
	if len(region) != 2 && len(region) != 3 {
		return ""
	}
	return strings.ToUpper(region)
}

func localeFromEnv() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		v := os.Getenv(key)
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		if i := strings.IndexAny(v, ".@"); i >= 0 {
			v = v[:i]
		}
		return v
	}
	return "en_US"
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
