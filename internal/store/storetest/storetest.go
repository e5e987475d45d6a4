// Package storetest holds the behaviour every store.PendingStore backend
// must satisfy. Backend tests call Run with a constructor.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nextlevelbuilder/msgauth/internal/store"
)

func pending(id string, created time.Time, ttl time.Duration) store.PendingRequest {
	return store.PendingRequest{
		RequestID:  id,
		Code:       "C-" + id,
		SenderName: "+15550100",
		CreatedAt:  created.UnixMilli(),
		ExpiresAt:  created.Add(ttl).UnixMilli(),
	}
}

// Run exercises s. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.PendingStore) {
	ctx := context.Background()

	t.Run("save_get", func(t *testing.T) {
		s := newStore(t)
		now := time.Now()
		want := pending("r1", now, time.Hour)
		if err := s.Save(ctx, want); err != nil {
			t.Fatalf("save: %v", err)
		}
		got, err := s.Get(ctx, "r1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if *got != want {
			t.Errorf("got %+v, want %+v", *got, want)
		}
	})

	t.Run("get_missing", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Get(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
		if _, err := s.Latest(ctx); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("latest on empty store: err = %v, want ErrNotFound", err)
		}
	})

	t.Run("list_newest_first_without_expired", func(t *testing.T) {
		s := newStore(t)
		now := time.Now()
		for _, p := range []store.PendingRequest{
			pending("old", now.Add(-2*time.Minute), time.Hour),
			pending("expired", now.Add(-time.Hour), time.Minute),
			pending("new", now, time.Hour),
		} {
			if err := s.Save(ctx, p); err != nil {
				t.Fatalf("save %s: %v", p.RequestID, err)
			}
		}

		list, err := s.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 2 || list[0].RequestID != "new" || list[1].RequestID != "old" {
			t.Errorf("list = %+v, want [new old]", list)
		}
		latest, err := s.Latest(ctx)
		if err != nil || latest.RequestID != "new" {
			t.Errorf("latest = %+v, %v", latest, err)
		}
		if _, err := s.Get(ctx, "expired"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expired request returned: %v", err)
		}
	})

	t.Run("save_replaces", func(t *testing.T) {
		s := newStore(t)
		now := time.Now()
		first := pending("r1", now, time.Hour)
		second := first
		second.Code = "UPDATED"
		s.Save(ctx, first)
		if err := s.Save(ctx, second); err != nil {
			t.Fatalf("save: %v", err)
		}
		list, _ := s.List(ctx)
		if len(list) != 1 || list[0].Code != "UPDATED" {
			t.Errorf("list after replace = %+v", list)
		}
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		s.Save(ctx, pending("r1", time.Now(), time.Hour))
		if err := s.Delete(ctx, "r1"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := s.Get(ctx, "r1"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("get after delete: %v", err)
		}
		if err := s.Delete(ctx, "r1"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("second delete: err = %v, want ErrNotFound", err)
		}
	})

	t.Run("rejects_invalid_id", func(t *testing.T) {
		s := newStore(t)
		if err := s.Save(ctx, pending("", time.Now(), time.Hour)); err == nil {
			t.Error("expected error for empty request id")
		}
	})
}
