package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/msgauth/internal/crypto"
	"github.com/nextlevelbuilder/msgauth/internal/store"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvAuthKey, EnvSecretKey, EnvBaseURL, EnvEnvironment, EnvStoreBackend,
		EnvPostgresDSN, EnvRedisURL, EnvLogLevel, EnvEncryptionKey} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json5"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Flow.ShowLoader || !cfg.Flow.LockInteraction {
		t.Error("flow defaults should enable loader and lock")
	}
	if cfg.Store.Backend != store.BackendFile {
		t.Errorf("backend = %q", cfg.Store.Backend)
	}
	if cfg.FlowConfiguration().RequestTimeout() != 90*time.Second {
		t.Errorf("timeout = %v", cfg.FlowConfiguration().RequestTimeout())
	}
}

func TestLoad_JSON5(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.json5", `{
		// credentials
		auth_key: "ak",
		secret_key: "sk",
		base_url: "https://auth.example.com/api",
		flow: {show_loader: false, lock_interaction: true, request_timeout_sec: 5},
		store: {backend: "SQLite"},
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AuthKey != "ak" || cfg.SecretKey != "sk" {
		t.Errorf("keys = %q/%q", cfg.AuthKey, cfg.SecretKey)
	}
	if cfg.BaseURL != "https://auth.example.com/api/" {
		t.Errorf("base url = %q", cfg.BaseURL)
	}
	if cfg.Store.Backend != store.BackendSQLite {
		t.Errorf("backend = %q", cfg.Store.Backend)
	}
	flow := cfg.FlowConfiguration()
	if flow.ShowLoader() || !flow.LockInteraction() {
		t.Errorf("flow = %+v", cfg.Flow)
	}
	if flow.RequestTimeout() != 30*time.Second {
		t.Errorf("timeout should clamp to 30s, got %v", flow.RequestTimeout())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
auth_key: ak
secret_key: sk
base_url: http://localhost:8080
dispatch:
  mode: qr
monitor:
  schedule: "*/10 * * * *"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dispatch.Mode != DispatchQR || cfg.Monitor.Schedule != "*/10 * * * *" {
		t.Errorf("dispatch=%q schedule=%q", cfg.Dispatch.Mode, cfg.Monitor.Schedule)
	}
	if cfg.BaseURL != "http://localhost:8080/" {
		t.Errorf("base url = %q", cfg.BaseURL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.json", `{"auth_key": "file-key", "base_url": "https://a.example.com"}`)
	t.Setenv(EnvAuthKey, "env-key")
	t.Setenv(EnvStoreBackend, "redis")
	t.Setenv(EnvRedisURL, "redis://localhost:6379/0")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AuthKey != "env-key" {
		t.Errorf("auth key = %q", cfg.AuthKey)
	}
	if cfg.StoreConfig().ResolvedBackend() != store.BackendRedis || cfg.StoreConfig().RedisURL == "" {
		t.Errorf("store = %+v", cfg.StoreConfig())
	}
	if cfg.Log.SlogLevel().String() != "DEBUG" {
		t.Errorf("level = %v", cfg.Log.SlogLevel())
	}
}

func TestLoad_SealedSecrets(t *testing.T) {
	clearEnv(t)
	key, _ := crypto.GenerateKey()
	box, err := crypto.NewBox(key)
	if err != nil {
		t.Fatal(err)
	}
	sealed, _ := box.Seal("secret_key", "real-secret")
	path := writeFile(t, "config.json", `{"auth_key": "ak", "secret_key": "`+sealed+`"}`)

	if _, err := Load(path); !errors.Is(err, ErrNoEncryptionKey) {
		t.Fatalf("err = %v, want ErrNoEncryptionKey", err)
	}

	t.Setenv(EnvEncryptionKey, key)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SecretKey != "real-secret" {
		t.Errorf("secret = %q", cfg.SecretKey)
	}
}

func TestLoad_SealedForOtherField(t *testing.T) {
	clearEnv(t)
	key, _ := crypto.GenerateKey()
	box, _ := crypto.NewBox(key)
	sealed, _ := box.Seal("secret_key", "x")
	path := writeFile(t, "config.json", `{"auth_key": "`+sealed+`"}`)
	t.Setenv(EnvEncryptionKey, key)

	if _, err := Load(path); !errors.Is(err, crypto.ErrOpen) {
		t.Fatalf("err = %v, want crypto.ErrOpen", err)
	}
}

func TestLoad_BadSyntax(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.json5", `{auth_key: `)
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.AuthKey, c.SecretKey, c.BaseURL = "ak", "sk", "https://auth.example.com/"
		return c
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"ok", func(*Config) {}, ""},
		{"no auth key", func(c *Config) { c.AuthKey = "" }, "auth_key"},
		{"no secret key", func(c *Config) { c.SecretKey = "" }, "secret_key"},
		{"relative url", func(c *Config) { c.BaseURL = "auth.example.com" }, "base_url"},
		{"ftp url", func(c *Config) { c.BaseURL = "ftp://auth.example.com/" }, "base_url"},
		{"postgres without dsn", func(c *Config) { c.Store.Backend = store.BackendPostgres }, "postgres_dsn"},
		{"redis without url", func(c *Config) { c.Store.Backend = store.BackendRedis }, "redis_url"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "mongo" }, "store.backend"},
		{"unknown dispatch", func(c *Config) { c.Dispatch.Mode = "carrier-pigeon" }, "dispatch.mode"},
		{"unknown device storage", func(c *Config) { c.Device.Storage = "usb" }, "device.storage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestRedacted(t *testing.T) {
	c := Default()
	c.AuthKey, c.SecretKey = "abcdefgh", "xy"
	c.Telemetry.Headers = map[string]string{"Authorization": "Bearer token1234"}

	r := c.Redacted()
	if r.AuthKey != "****efgh" || r.SecretKey != "****" {
		t.Errorf("redacted keys = %q/%q", r.AuthKey, r.SecretKey)
	}
	if r.Telemetry.Headers["Authorization"] != "****1234" {
		t.Errorf("header = %q", r.Telemetry.Headers["Authorization"])
	}
	if c.AuthKey != "abcdefgh" || c.Telemetry.Headers["Authorization"] != "Bearer token1234" {
		t.Error("Redacted must not modify the original")
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := map[string]string{
		"https://a.example.com":        "https://a.example.com/",
		"https://a.example.com/":       "https://a.example.com/",
		" https://a.example.com/svc// ": "https://a.example.com/svc/",
		"":                             "",
	}
	for in, want := range tests {
		if got := NormalizeBaseURL(in); got != want {
			t.Errorf("NormalizeBaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandHome("~/x/y"); got != filepath.Join(home, "x/y") {
		t.Errorf("ExpandHome = %q", got)
	}
	if got := ExpandHome("/abs/~"); got != "/abs/~" {
		t.Errorf("absolute path changed: %q", got)
	}
}
