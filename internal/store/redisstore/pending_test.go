package redisstore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/nextlevelbuilder/msgauth/internal/store"
	"github.com/nextlevelbuilder/msgauth/internal/store/storetest"
)

// Set MSGAUTH_TEST_REDIS_URL (e.g. redis://localhost:6379/15) to run.
func TestRedisPendingStore(t *testing.T) {
	url := os.Getenv("MSGAUTH_TEST_REDIS_URL")
	if url == "" {
		t.Skip("MSGAUTH_TEST_REDIS_URL not set")
	}

	storetest.Run(t, func(t *testing.T) store.PendingStore {
		prefix := fmt.Sprintf("msgauth-test-%d:", time.Now().UnixNano())
		s, err := Open(context.Background(), url, prefix)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestKeys(t *testing.T) {
	s := New(nil, "")
	if s.indexKey() != "msgauth:pending" {
		t.Errorf("index key = %q", s.indexKey())
	}
	if s.itemKey("abc") != "msgauth:pending:abc" {
		t.Errorf("item key = %q", s.itemKey("abc"))
	}
}
