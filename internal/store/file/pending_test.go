package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/msgauth/internal/store"
	"github.com/nextlevelbuilder/msgauth/internal/store/storetest"
)

func TestPendingStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.PendingStore {
		s, err := NewPendingStore(filepath.Join(t.TempDir(), "pending.json"))
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		return s
	})
}

func TestPendingStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "pending.json")
	s, err := NewPendingStore(path)
	if err != nil {
		t.Fatal(err)
	}
	req := store.NewPendingRequest("r1", "AB12", "+15550100", nil, time.Now())
	if err := s.Save(context.Background(), req); err != nil {
		t.Fatalf("save: %v", err)
	}

	reopened, err := NewPendingStore(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := reopened.Get(context.Background(), "r1")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got.Code != "AB12" {
		t.Errorf("code = %q", got.Code)
	}
}

func TestPendingStore_CapsEntries(t *testing.T) {
	s, _ := NewPendingStore(filepath.Join(t.TempDir(), "pending.json"))
	now := time.Now()
	for i := 0; i < MaxPending+5; i++ {
		req := store.NewPendingRequest("r"+string(rune('a'+i)), "C", "S", nil, now.Add(time.Duration(i)*time.Second))
		if err := s.Save(context.Background(), req); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	list, _ := s.List(context.Background())
	if len(list) != MaxPending {
		t.Fatalf("len = %d, want %d", len(list), MaxPending)
	}
	if list[len(list)-1].RequestID != "r"+string(rune('a'+5)) {
		t.Errorf("oldest kept = %s", list[len(list)-1].RequestID)
	}
}

func TestPendingStore_PruneIsWrittenBack(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pending.json")
	now := time.Now()

	s, err := NewPendingStore(path)
	if err != nil {
		t.Fatal(err)
	}
	short := now.Add(time.Minute)
	if err := s.Save(ctx, store.NewPendingRequest("stale", "A", "S", &short, now)); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, store.NewPendingRequest("fresh", "B", "S", nil, now)); err != nil {
		t.Fatal(err)
	}

	s.now = func() time.Time { return now.Add(2 * time.Minute) }
	if list, _ := s.List(ctx); len(list) != 1 || list[0].RequestID != "fresh" {
		t.Fatalf("list = %+v", list)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), `"stale"`) {
		t.Errorf("expired entry still on disk: %s", data)
	}
}

func TestPendingStore_DeletePrunes(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pending.json")
	now := time.Now()

	s, _ := NewPendingStore(path)
	short := now.Add(time.Minute)
	if err := s.Save(ctx, store.NewPendingRequest("stale", "A", "S", &short, now)); err != nil {
		t.Fatal(err)
	}

	s.now = func() time.Time { return now.Add(2 * time.Minute) }
	if err := s.Delete(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("delete missing: err = %v", err)
	}

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), `"stale"`) {
		t.Errorf("expired entry still on disk after delete: %s", data)
	}
}
