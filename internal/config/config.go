// Package config loads the msgauth CLI configuration from a JSON5 or YAML
// file, environment overrides, and sealed secrets.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"

	"github.com/nextlevelbuilder/msgauth/internal/authflow"
	"github.com/nextlevelbuilder/msgauth/internal/crypto"
	"github.com/nextlevelbuilder/msgauth/internal/environment"
	"github.com/nextlevelbuilder/msgauth/internal/store"
	"github.com/nextlevelbuilder/msgauth/internal/transport"
)

// Environment variables read by Load.
const (
	EnvConfigPath    = "MSGAUTH_CONFIG"
	EnvAuthKey       = "MSGAUTH_AUTH_KEY"
	EnvSecretKey     = "MSGAUTH_SECRET_KEY"
	EnvBaseURL       = "MSGAUTH_BASE_URL"
	EnvEnvironment   = "MSGAUTH_ENVIRONMENT"
	EnvStoreBackend  = "MSGAUTH_STORE_BACKEND"
	EnvPostgresDSN   = "MSGAUTH_POSTGRES_DSN"
	EnvRedisURL      = "MSGAUTH_REDIS_URL"
	EnvLogLevel      = "MSGAUTH_LOG_LEVEL"
	EnvEncryptionKey = "MSGAUTH_ENCRYPTION_KEY"
)

// Dispatch modes.
const (
	DispatchConsole = "console"
	DispatchQR      = "qr"
)

// Device id storage.
const (
	DeviceKeyring = "keyring"
	DeviceFile    = "file"
)

// ErrNoEncryptionKey is returned when the file holds sealed secrets but
// MSGAUTH_ENCRYPTION_KEY is not set.
var ErrNoEncryptionKey = errors.New("config holds sealed secrets but " + EnvEncryptionKey + " is not set")

// Config is the root configuration.
type Config struct {
	AuthKey     string `json:"auth_key" yaml:"auth_key"`
	SecretKey   string `json:"secret_key" yaml:"secret_key"`
	BaseURL     string `json:"base_url" yaml:"base_url"`
	Environment string `json:"environment,omitempty" yaml:"environment,omitempty"` // "xcode", "tf", "prod"
	Locale      string `json:"locale,omitempty" yaml:"locale,omitempty"`

	App       AppConfig       `json:"app" yaml:"app"`
	Flow      FlowConfig      `json:"flow" yaml:"flow"`
	Transport TransportConfig `json:"transport" yaml:"transport"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	Device    DeviceConfig    `json:"device" yaml:"device"`
	Dispatch  DispatchConfig  `json:"dispatch" yaml:"dispatch"`
	Monitor   MonitorConfig   `json:"monitor" yaml:"monitor"`
	Log       LogConfig       `json:"log" yaml:"log"`
	Errors    ErrorsConfig    `json:"errors" yaml:"errors"`
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`
}

type AppConfig struct {
	BundleID string `json:"bundle_id,omitempty" yaml:"bundle_id,omitempty"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Version  string `json:"version,omitempty" yaml:"version,omitempty"`
	Build    string `json:"build,omitempty" yaml:"build,omitempty"`
}

// FlowConfig mirrors authflow.Configuration. RequestTimeoutSec is clamped
// to [30, 300]; 0 means the 90s default.
type FlowConfig struct {
	ShowLoader        bool `json:"show_loader" yaml:"show_loader"`
	LockInteraction   bool `json:"lock_interaction" yaml:"lock_interaction"`
	RequestTimeoutSec int  `json:"request_timeout_sec,omitempty" yaml:"request_timeout_sec,omitempty"`
}

type TransportConfig struct {
	TimeoutSec           int     `json:"timeout_sec,omitempty" yaml:"timeout_sec,omitempty"`
	MaxRequestsPerSecond float64 `json:"max_requests_per_second,omitempty" yaml:"max_requests_per_second,omitempty"`
}

type StoreConfig struct {
	Backend     string `json:"backend,omitempty" yaml:"backend,omitempty"` // "file", "sqlite", "postgres", "redis"
	FilePath    string `json:"file_path,omitempty" yaml:"file_path,omitempty"`
	SQLitePath  string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty"`
	PostgresDSN string `json:"postgres_dsn,omitempty" yaml:"postgres_dsn,omitempty"`
	RedisURL    string `json:"redis_url,omitempty" yaml:"redis_url,omitempty"`
	KeyPrefix   string `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
}

type DeviceConfig struct {
	Storage  string `json:"storage,omitempty" yaml:"storage,omitempty"` // "keyring" (default) or "file"
	FilePath string `json:"file_path,omitempty" yaml:"file_path,omitempty"`
}

type DispatchConfig struct {
	Mode    string `json:"mode,omitempty" yaml:"mode,omitempty"` // "console" (default) or "qr"
	PNGPath string `json:"png_path,omitempty" yaml:"png_path,omitempty"`
}

// MonitorConfig drives "session watch". Schedule is "@every 5m" or a cron
// expression.
type MonitorConfig struct {
	Schedule   string `json:"schedule,omitempty" yaml:"schedule,omitempty"`
	MaxRetries int    `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
}

type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`   // "debug", "info", "warn", "error"
	Format string `json:"format,omitempty" yaml:"format,omitempty"` // "text" or "json"
}

type ErrorsConfig struct {
	Detailed bool `json:"detailed" yaml:"detailed"`
}

type TelemetryConfig struct {
	Enabled     bool              `json:"enabled" yaml:"enabled"`
	Endpoint    string            `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Protocol    string            `json:"protocol,omitempty" yaml:"protocol,omitempty"`
	Insecure    bool              `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	ServiceName string            `json:"service_name,omitempty" yaml:"service_name,omitempty"`
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	SampleRatio float64           `json:"sample_ratio,omitempty" yaml:"sample_ratio,omitempty"`
}

// HomeDir is the directory holding default data files.
func HomeDir() string {
	return ExpandHome("~/.msgauth")
}

// DefaultPath returns MSGAUTH_CONFIG or ~/.msgauth/config.json5.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return ExpandHome(p)
	}
	return filepath.Join(HomeDir(), "config.json5")
}

// Default returns a Config with every optional field set.
func Default() *Config {
	home := HomeDir()
	return &Config{
		Environment: environment.EnvProduction,
		Flow: FlowConfig{
			ShowLoader:        true,
			LockInteraction:   true,
			RequestTimeoutSec: int(authflow.DefaultRequestTimeout / time.Second),
		},
		Transport: TransportConfig{
			TimeoutSec: int(transport.DefaultTimeout / time.Second),
		},
		Store: StoreConfig{
			Backend:    store.BackendFile,
			FilePath:   filepath.Join(home, "pending.json"),
			SQLitePath: filepath.Join(home, "msgauth.db"),
			KeyPrefix:  "msgauth:",
		},
		Device: DeviceConfig{
			Storage:  DeviceKeyring,
			FilePath: filepath.Join(home, "device.json"),
		},
		Dispatch: DispatchConfig{Mode: DispatchConsole},
		Monitor:  MonitorConfig{Schedule: "@every 5m", MaxRetries: 3},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the config at path over the defaults, applies environment
// overrides, and opens sealed secrets. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.openSecrets(os.Getenv(EnvEncryptionKey)); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json5.Unmarshal(data, cfg)
	}
}

func (c *Config) applyEnv() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envStr(EnvAuthKey, &c.AuthKey)
	envStr(EnvSecretKey, &c.SecretKey)
	envStr(EnvBaseURL, &c.BaseURL)
	envStr(EnvEnvironment, &c.Environment)
	envStr(EnvStoreBackend, &c.Store.Backend)
	envStr(EnvPostgresDSN, &c.Store.PostgresDSN)
	envStr(EnvRedisURL, &c.Store.RedisURL)
	envStr(EnvLogLevel, &c.Log.Level)
}

// secretFields lists the values that may be sealed, keyed by the field name
// bound into the ciphertext.
func (c *Config) secretFields() map[string]*string {
	return map[string]*string{
		"auth_key":           &c.AuthKey,
		"secret_key":         &c.SecretKey,
		"store.postgres_dsn": &c.Store.PostgresDSN,
		"store.redis_url":    &c.Store.RedisURL,
	}
}

// SecretFieldNames returns the field names accepted by "config seal".
func SecretFieldNames() []string {
	return []string{"auth_key", "secret_key", "store.postgres_dsn", "store.redis_url"}
}

func (c *Config) openSecrets(key string) error {
	var box *crypto.Box
	for field, ptr := range c.secretFields() {
		if !crypto.IsSealed(*ptr) {
			continue
		}
		if box == nil {
			if key == "" {
				return ErrNoEncryptionKey
			}
			b, err := crypto.NewBox(key)
			if err != nil {
				return fmt.Errorf("encryption key: %w", err)
			}
			box = b
		}
		plain, err := box.Open(field, *ptr)
		if err != nil {
			return fmt.Errorf("open %s: %w", field, err)
		}
		*ptr = plain
	}
	return nil
}

func (c *Config) normalize() {
	if c.BaseURL != "" {
		c.BaseURL = NormalizeBaseURL(c.BaseURL)
	}
	c.Store.FilePath = ExpandHome(c.Store.FilePath)
	c.Store.SQLitePath = ExpandHome(c.Store.SQLitePath)
	c.Device.FilePath = ExpandHome(c.Device.FilePath)
	c.Dispatch.PNGPath = ExpandHome(c.Dispatch.PNGPath)
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	c.Dispatch.Mode = strings.ToLower(strings.TrimSpace(c.Dispatch.Mode))
}

// Validate reports the first problem that would stop an auth flow.
func (c *Config) Validate() error {
	if c.AuthKey == "" {
		return fmt.Errorf("auth_key is required (or set %s)", EnvAuthKey)
	}
	if c.SecretKey == "" {
		return fmt.Errorf("secret_key is required (or set %s)", EnvSecretKey)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute http(s) URL, got %q", c.BaseURL)
	}
	switch c.Store.Backend {
	case "", store.BackendFile, store.BackendSQLite:
	case store.BackendPostgres:
		if c.Store.PostgresDSN == "" {
			return errors.New("store.postgres_dsn is required for the postgres backend")
		}
	case store.BackendRedis:
		if c.Store.RedisURL == "" {
			return errors.New("store.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}
	switch c.Dispatch.Mode {
	case "", DispatchConsole, DispatchQR:
	default:
		return fmt.Errorf("unknown dispatch.mode %q", c.Dispatch.Mode)
	}
	switch c.Device.Storage {
	case "", DeviceKeyring, DeviceFile:
	default:
		return fmt.Errorf("unknown device.storage %q", c.Device.Storage)
	}
	return nil
}

// FlowConfiguration returns the orchestrator configuration with the request
// timeout clamped.
func (c *Config) FlowConfiguration() authflow.Configuration {
	return authflow.NewConfiguration(c.Flow.ShowLoader, c.Flow.LockInteraction,
		time.Duration(c.Flow.RequestTimeoutSec)*time.Second)
}

func (c *Config) StoreConfig() store.StoreConfig {
	return store.StoreConfig{
		Backend:     c.Store.Backend,
		FilePath:    c.Store.FilePath,
		SQLitePath:  c.Store.SQLitePath,
		PostgresDSN: c.Store.PostgresDSN,
		RedisURL:    c.Store.RedisURL,
		KeyPrefix:   c.Store.KeyPrefix,
	}
}

func (c *Config) TransportTimeout() time.Duration {
	if c.Transport.TimeoutSec <= 0 {
		return transport.DefaultTimeout
	}
	return time.Duration(c.Transport.TimeoutSec) * time.Second
}

func (c *Config) AppInfo() environment.App {
	return environment.App{
		BundleID: c.App.BundleID,
		Name:     c.App.Name,
		Version:  c.App.Version,
		Build:    c.App.Build,
	}
}

// Redacted returns a copy safe to print: secrets keep only their last four
// characters.
func (c *Config) Redacted() *Config {
	cp := *c
	for _, ptr := range cp.secretFields() {
		*ptr = redact(*ptr)
	}
	if len(c.Telemetry.Headers) > 0 {
		cp.Telemetry.Headers = make(map[string]string, len(c.Telemetry.Headers))
		for k, v := range c.Telemetry.Headers {
			cp.Telemetry.Headers[k] = redact(v)
		}
	}
	return &cp
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// SlogLevel maps Level to a slog level. Unknown values mean info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
