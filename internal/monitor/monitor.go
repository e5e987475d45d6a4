// Package monitor re-validates a stored session token on a schedule and
// reports when the session ends.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nextlevelbuilder/msgauth/internal/authflow"
	"github.com/nextlevelbuilder/msgauth/internal/autherr"
)

// ErrSessionEnded is returned by Run once the token is rejected or expires.
var ErrSessionEnded = errors.New("session ended")

// Validator checks a session token. *authflow.Orchestrator satisfies it.
type Validator interface {
	ValidateSession(ctx context.Context, token string) (*authflow.SessionInfo, error)
}

// Event describes one completed check.
type Event struct {
	At       time.Time
	Info     *authflow.SessionInfo
	Err      error
	Attempts int
	Next     time.Time // zero when monitoring stops
}

// Monitor runs checks for one token until the session ends or ctx is done.
type Monitor struct {
	validator Validator
	token     string
	retry     RetryConfig

	mu       sync.Mutex
	schedule Schedule
	changed  chan struct{}

	now func() time.Time
}

func New(v Validator, token string, schedule Schedule, retry RetryConfig) *Monitor {
	return &Monitor{
		validator: v,
		token:     token,
		retry:     retry,
		schedule:  schedule,
		changed:   make(chan struct{}, 1),
		now:       time.Now,
	}
}

// SetSchedule replaces the schedule; a pending wait is recomputed.
func (m *Monitor) SetSchedule(s Schedule) {
	m.mu.Lock()
	m.schedule = s
	m.mu.Unlock()

	select {
	case m.changed <- struct{}{}:
	default:
	}
	slog.Info("session monitor schedule updated", "schedule", s.String())
}

func (m *Monitor) currentSchedule() Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.schedule
}

// Run checks immediately, then on every schedule tick. It returns
// ErrSessionEnded (wrapping the cause) when the token stops being valid, or
// ctx.Err() when cancelled.
func (m *Monitor) Run(ctx context.Context, onEvent func(Event)) error {
	for {
		ev := m.check(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}

		ended := sessionEnded(ev, m.now())
		if !ended {
			next, err := m.currentSchedule().Next(m.now())
			if err != nil {
				return fmt.Errorf("compute next check: %w", err)
			}
			ev.Next = next
		}
		if onEvent != nil {
			onEvent(ev)
		}
		if ended {
			if ev.Err != nil {
				return fmt.Errorf("%w: %w", ErrSessionEnded, ev.Err)
			}
			return fmt.Errorf("%w: token expired at %s", ErrSessionEnded, ev.Info.ExpireDate.Format(time.RFC3339))
		}

		if err := m.waitUntil(ctx, ev.Next); err != nil {
			return err
		}
	}
}

func (m *Monitor) check(ctx context.Context) Event {
	info, attempts, err := retry(ctx, m.retry, func() (*authflow.SessionInfo, error) {
		return m.validator.ValidateSession(ctx, m.token)
	}, transient)

	ev := Event{At: m.now(), Info: info, Err: err, Attempts: attempts}
	if err != nil {
		slog.Warn("session check failed", "attempts", attempts, "error", err)
	} else {
		slog.Debug("session check ok", "expires", info.ExpireDate, "attempts", attempts)
	}
	return ev
}

// waitUntil sleeps until t, re-reading the schedule when it changes.
func (m *Monitor) waitUntil(ctx context.Context, t time.Time) error {
	for {
		timer := time.NewTimer(time.Until(t))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			return nil
		case <-m.changed:
			timer.Stop()
			next, err := m.currentSchedule().Next(m.now())
			if err != nil {
				return fmt.Errorf("compute next check: %w", err)
			}
			t = next
		}
	}
}

// transient errors are retried; everything else is a verdict on the token.
func transient(err error) bool {
	switch autherr.KindOf(err) {
	case autherr.KindUnableToHandleResponse, autherr.KindInternalServerError, autherr.KindServiceUnavailable:
		return true
	}
	return false
}

func sessionEnded(ev Event, now time.Time) bool {
	if ev.Err != nil {
		return !transient(ev.Err)
	}
	return ev.Info == nil || !ev.Info.ValidAt(now)
}
