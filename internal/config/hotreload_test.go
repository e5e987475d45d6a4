package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	if err := os.WriteFile(path, []byte(`{monitor: {schedule: "@every 1m"}}`), 0600); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.debounce = 20 * time.Millisecond
	got := make(chan string, 4)
	w.OnChange(func(cfg *Config) { got <- cfg.Monitor.Schedule })
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.json5"), []byte(`{}`), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(`{monitor: {schedule: "@every 2m"}}`), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case s := <-got:
		if s != "@every 2m" {
			t.Errorf("schedule = %q", s)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("handler not called")
	}
}

func TestWatcher_KeepsPreviousOnBadFile(t *testing.T) {
	w := &Watcher{path: "x", load: func(string) (*Config, error) { return nil, os.ErrInvalid }}
	called := false
	w.OnChange(func(*Config) { called = true })
	w.reload()
	if called {
		t.Error("handler must not run when reload fails")
	}
}

func TestWatcher_StopTwice(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "c.json5"))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}
