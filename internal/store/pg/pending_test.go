package pg

import (
	"context"
	"os"
	"testing"

	"github.com/nextlevelbuilder/msgauth/internal/store"
	"github.com/nextlevelbuilder/msgauth/internal/store/storetest"
)

// Set MSGAUTH_TEST_POSTGRES_DSN to run against a scratch database.
func TestPGPendingStore(t *testing.T) {
	dsn := os.Getenv("MSGAUTH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("MSGAUTH_TEST_POSTGRES_DSN not set")
	}

	storetest.Run(t, func(t *testing.T) store.PendingStore {
		ctx := context.Background()
		db, err := OpenDB(ctx, dsn)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		s, err := NewPGPendingStore(ctx, db)
		if err != nil {
			t.Fatalf("migrate: %v", err)
		}
		if _, err := db.ExecContext(ctx, "TRUNCATE msgauth_pending_requests"); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}
