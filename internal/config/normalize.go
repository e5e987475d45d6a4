package config

import (
	"os"
	"path/filepath"
	"strings"
)

// NormalizeBaseURL trims whitespace and guarantees exactly one trailing
// slash, so endpoint paths resolve beneath any path prefix.
func NormalizeBaseURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	return strings.TrimRight(u, "/") + "/"
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
