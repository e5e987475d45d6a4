package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/msgauth/internal/authflow"
	"github.com/nextlevelbuilder/msgauth/internal/autherr"
)

func TestRenderOutcome_Completed(t *testing.T) {
	out := authflow.Outcome{Session: &authflow.SessionToken{
		Token:      "tok-123",
		Contact:    "+15550100",
		ExpireDate: time.Now().Add(time.Hour),
	}}
	s := RenderOutcome(out, false)
	for _, want := range []string{"Signed in", "tok-123", "+15550100"} {
		if !strings.Contains(s, want) {
			t.Errorf("rendered outcome missing %q:\n%s", want, s)
		}
	}
}

func TestRenderOutcome_FailureMessages(t *testing.T) {
	out := authflow.Outcome{Failure: autherr.New(autherr.KindUnpaid)}

	generic := RenderOutcome(out, false)
	if !strings.Contains(generic, "currently unavailable") {
		t.Errorf("generic message expected:\n%s", generic)
	}
	detailed := RenderOutcome(out, true)
	if !strings.Contains(detailed, "unpaid") {
		t.Errorf("detailed message expected:\n%s", detailed)
	}
}

func TestRenderSession_Expired(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	info := &authflow.SessionInfo{ServerValid: true, ExpireDate: now.Add(-time.Minute)}
	if s := RenderSession(info, now); !strings.Contains(s, "expired") {
		t.Errorf("expected expired status:\n%s", s)
	}
	info.ExpireDate = now.Add(2 * time.Hour)
	s := RenderSession(info, now)
	if !strings.Contains(s, "valid") || !strings.Contains(s, "2h0m0s") {
		t.Errorf("expected valid status with remaining time:\n%s", s)
	}
}

func TestSignalGate_LockUnlockIdempotent(t *testing.T) {
	cancelled := false
	g := NewSignalGate(func() { cancelled = true })

	g.Lock()
	g.Lock()
	if !g.Locked() {
		t.Fatal("gate should be locked")
	}
	g.Unlock()
	g.Unlock()
	if g.Locked() {
		t.Fatal("gate should be unlocked")
	}
	if cancelled {
		t.Error("cancel must not run without an interrupt")
	}
}

func TestSpinner_ShowHide(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf, "waiting")

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Show()
		s.Suspend()
		s.Resume()
		s.SetLabel("still waiting")
		s.Hide()
		s.Hide()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("spinner did not stop")
	}
}
