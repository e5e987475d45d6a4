package store

import (
	"strings"
	"testing"
	"time"
)

func TestValidateRequestID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"empty", "", true},
		{"normal", "c0ffee-1234", false},
		{"max_length", strings.Repeat("a", 255), false},
		{"too_long", strings.Repeat("a", 256), true},
		{"slash", "a/b", true},
		{"space", "a b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequestID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRequestID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestNewPendingRequest_Expiry(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	req := NewPendingRequest("r1", "AB12", "+15550100", nil, now)
	if got := time.UnixMilli(req.ExpiresAt).Sub(now); got != DefaultPendingTTL {
		t.Errorf("default ttl = %v, want %v", got, DefaultPendingTTL)
	}

	exp := now.Add(3 * time.Minute)
	req = NewPendingRequest("r1", "AB12", "+15550100", &exp, now)
	if req.ExpiresAt != exp.UnixMilli() {
		t.Errorf("expires_at = %d, want %d", req.ExpiresAt, exp.UnixMilli())
	}
	if req.Expired(now) || !req.Expired(exp.Add(time.Millisecond)) {
		t.Error("Expired boundary wrong")
	}
}

func TestStoreConfig_ResolvedBackend(t *testing.T) {
	if (StoreConfig{}).ResolvedBackend() != BackendFile {
		t.Error("default backend should be file")
	}
	if (StoreConfig{Backend: BackendRedis}).ResolvedBackend() != BackendRedis {
		t.Error("explicit backend not kept")
	}
}
