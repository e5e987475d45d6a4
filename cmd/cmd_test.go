package cmd

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/msgauth/internal/authflow"
	"github.com/nextlevelbuilder/msgauth/internal/autherr"
	"github.com/nextlevelbuilder/msgauth/internal/config"
	"github.com/nextlevelbuilder/msgauth/internal/dispatch"
	"github.com/nextlevelbuilder/msgauth/internal/monitor"
	"github.com/nextlevelbuilder/msgauth/internal/store"
)

func TestShouldForget(t *testing.T) {
	tests := []struct {
		kind autherr.Kind
		want bool
	}{
		{autherr.KindTokenAlreadyRead, true},
		{autherr.KindInvalidRequestID, true},
		{autherr.KindMessageSendFailed, true},
		{autherr.KindRequestTimeout, false},
		{autherr.KindCanceledByUser, false},
		{autherr.KindServiceUnavailable, false},
	}
	for _, tt := range tests {
		if got := shouldForget(autherr.New(tt.kind)); got != tt.want {
			t.Errorf("shouldForget(%s) = %v, want %v", tt.kind, got, tt.want)
		}
	}
	if shouldForget(nil) {
		t.Error("nil failure must not forget")
	}
}

func TestFlowFlags_Apply(t *testing.T) {
	cfg := config.Default()
	f := flowFlags{qr: true, noLoader: true, noLock: true, timeout: 2 * time.Minute}
	f.apply(cfg)

	if cfg.Dispatch.Mode != config.DispatchQR {
		t.Errorf("mode = %q", cfg.Dispatch.Mode)
	}
	flow := cfg.FlowConfiguration()
	if flow.ShowLoader() || flow.LockInteraction() {
		t.Error("loader and lock should be off")
	}
	if flow.RequestTimeout() != 2*time.Minute {
		t.Errorf("timeout = %v", flow.RequestTimeout())
	}

	for _, tt := range []struct {
		in, want time.Duration
	}{
		{500 * time.Millisecond, 30 * time.Second},
		{time.Nanosecond, 30 * time.Second},
		{90500 * time.Millisecond, 91 * time.Second},
		{time.Hour, 300 * time.Second},
	} {
		cfg = config.Default()
		(&flowFlags{timeout: tt.in}).apply(cfg)
		if got := cfg.FlowConfiguration().RequestTimeout(); got != tt.want {
			t.Errorf("--timeout %v: request timeout = %v, want %v", tt.in, got, tt.want)
		}
	}

	cfg = config.Default()
	(&flowFlags{}).apply(cfg)
	if !cfg.Flow.ShowLoader || cfg.Dispatch.Mode != config.DispatchConsole {
		t.Error("empty flags must keep config values")
	}
}

func TestNewDispatcher(t *testing.T) {
	cfg := config.Default()
	if _, ok := newDispatcher(cfg).(*dispatch.Console); !ok {
		t.Error("default dispatcher should be the console")
	}
	cfg.Dispatch.Mode = config.DispatchQR
	cfg.Dispatch.PNGPath = "/tmp/x.png"
	q, ok := newDispatcher(cfg).(*dispatch.QR)
	if !ok || q.PNGPath != "/tmp/x.png" {
		t.Errorf("qr dispatcher = %#v", q)
	}
}

func TestFormatEvent(t *testing.T) {
	at := time.Date(2026, 10, 16, 9, 30, 0, 0, time.Local)
	ok := monitor.Event{
		At:   at,
		Info: &authflow.SessionInfo{ServerValid: true, ExpireDate: at.Add(time.Hour)},
		Next: at.Add(5 * time.Minute),
	}
	line := formatEvent(ok, false)
	if !strings.Contains(line, "valid=true") || !strings.Contains(line, "next 09:35:00") {
		t.Errorf("line = %q", line)
	}

	failed := monitor.Event{At: at, Err: autherr.New(autherr.KindInvalidAuthToken), Attempts: 1}
	if line := formatEvent(failed, true); !strings.Contains(line, "check failed after 1 attempt") {
		t.Errorf("line = %q", line)
	}
}

func TestResolveSessionToken(t *testing.T) {
	t.Setenv(envSessionToken, " env-token ")
	if got := resolveSessionToken([]string{" arg-token "}); got != "arg-token" {
		t.Errorf("arg token = %q", got)
	}
	if got := resolveSessionToken(nil); got != "env-token" {
		t.Errorf("env token = %q", got)
	}
}

func TestAsAuthError(t *testing.T) {
	ae := autherr.New(autherr.KindUnauthorized)
	if got := asAuthError(ae); got != ae {
		t.Errorf("asAuthError changed an auth error: %v", got)
	}
	if got := asAuthError(errors.New("boom")); got.Kind != autherr.KindUnableToHandleResponse {
		t.Errorf("kind = %s", got.Kind)
	}
}

func TestPendingLabel(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	p := store.NewPendingRequest("req-9", "AB12", "+15550100", nil, now.Add(-3*time.Minute))

	got := pendingLabel(p, now)
	want := "[req-9]  code AB12 to +15550100  (3m0s ago, 7m0s left)"
	if got != want {
		t.Errorf("label = %q, want %q", got, want)
	}
}

func TestPendingOptions_PreselectsNewest(t *testing.T) {
	now := time.Now()
	pending := []store.PendingRequest{
		store.NewPendingRequest("newest", "A", "x", nil, now),
		store.NewPendingRequest("older", "B", "y", nil, now.Add(-time.Minute)),
	}
	opts := pendingOptions(pending, now)
	if len(opts) != 2 {
		t.Fatalf("options = %d", len(opts))
	}
	if opts[0].Value != "newest" || opts[1].Value != "older" {
		t.Errorf("values = %q, %q", opts[0].Value, opts[1].Value)
	}
	if len(pendingOptions(nil, now)) != 0 {
		t.Error("no requests should give no options")
	}
}
