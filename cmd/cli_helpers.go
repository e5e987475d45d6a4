package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nextlevelbuilder/msgauth/internal/config"
	"github.com/nextlevelbuilder/msgauth/internal/environment"
	"github.com/nextlevelbuilder/msgauth/internal/store"
	"github.com/nextlevelbuilder/msgauth/internal/store/file"
	"github.com/nextlevelbuilder/msgauth/internal/store/pg"
	"github.com/nextlevelbuilder/msgauth/internal/store/redisstore"
	"github.com/nextlevelbuilder/msgauth/internal/store/sqlite"
	"github.com/nextlevelbuilder/msgauth/internal/transport"
)

// loadConfig loads the config, installs logging, and exits on error.
func loadConfig() *config.Config {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fatalf("load config: %s", err)
	}
	setupLogging(cfg)
	return cfg
}

// loadValidConfig is loadConfig plus Validate, for commands that talk to the
// service.
func loadValidConfig() *config.Config {
	cfg := loadConfig()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config (%s): %s\n", resolveConfigPath(), err)
		fmt.Fprintln(os.Stderr, "Run 'msgauth config validate' after fixing it.")
		os.Exit(1)
	}
	return cfg
}

// openPendingStore opens the configured pending-request backend.
func openPendingStore(ctx context.Context, cfg *config.Config) (store.PendingStore, error) {
	sc := cfg.StoreConfig()
	var (
		st  store.PendingStore
		err error
	)
	switch sc.ResolvedBackend() {
	case store.BackendSQLite:
		st, err = sqlite.Open(sc.SQLitePath)
	case store.BackendPostgres:
		db, derr := pg.OpenDB(ctx, sc.PostgresDSN)
		if derr != nil {
			return nil, derr
		}
		if st, err = pg.NewPGPendingStore(ctx, db); err != nil {
			db.Close()
		}
	case store.BackendRedis:
		st, err = redisstore.Open(ctx, sc.RedisURL, sc.KeyPrefix)
	default:
		st, err = file.NewPendingStore(sc.FilePath)
	}
	if err != nil {
		return nil, fmt.Errorf("%s store: %w", sc.ResolvedBackend(), err)
	}
	slog.Debug("pending store opened", "backend", sc.ResolvedBackend())
	return st, nil
}

// deviceKV returns where the device id lives. With keyring storage, an
// unusable keychain (headless Linux, containers) falls back to the file.
func deviceKV(cfg *config.Config) environment.KV {
	fileKV := environment.NewFileKV(cfg.Device.FilePath)
	if cfg.Device.Storage == config.DeviceFile {
		return fileKV
	}
	kr := environment.NewKeyringKV(environment.KeyringService)
	if _, err := kr.Get(environment.DeviceIDKey); err != nil && !errors.Is(err, environment.ErrKeyNotFound) {
		slog.Debug("keychain unavailable, storing device id in file", "path", cfg.Device.FilePath, "error", err)
		return fileKV
	}
	return kr
}

func resolveEnvironment(cfg *config.Config) (environment.Context, error) {
	id, err := environment.ResolveDeviceID(deviceKV(cfg), environment.HardwareFingerprint)
	if err != nil {
		return environment.Context{}, err
	}
	return environment.Detect(cfg.Environment, cfg.AppInfo(), id, cfg.Locale), nil
}

func newTransport(cfg *config.Config) (*transport.Client, error) {
	env, err := resolveEnvironment(cfg)
	if err != nil {
		return nil, fmt.Errorf("device id: %w", err)
	}
	return transport.New(transport.Config{
		BaseURL:              cfg.BaseURL,
		AuthKey:              cfg.AuthKey,
		SecretKey:            cfg.SecretKey,
		Env:                  env,
		Timeout:              cfg.TransportTimeout(),
		MaxRequestsPerSecond: cfg.Transport.MaxRequestsPerSecond,
	})
}

func formatAgo(ms int64) string {
	return time.Since(time.UnixMilli(ms)).Truncate(time.Second).String()
}
