package crypto

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func newTestBox(t *testing.T) *Box {
	t.Helper()
	key, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewBox(key)
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	return b
}

func TestBox_SealOpen(t *testing.T) {
	b := newTestBox(t)
	sealed, err := b.Seal("auth_key", "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if !IsSealed(sealed) || strings.Contains(sealed, "s3cret") {
		t.Fatalf("unexpected sealed value %q", sealed)
	}
	got, err := b.Open("auth_key", sealed)
	if err != nil || got != "s3cret" {
		t.Errorf("Open = (%q, %v)", got, err)
	}
}

func TestBox_FieldBinding(t *testing.T) {
	b := newTestBox(t)
	sealed, _ := b.Seal("auth_key", "s3cret")
	if _, err := b.Open("secret_key", sealed); !errors.Is(err, ErrOpen) {
		t.Errorf("err = %v, want ErrOpen", err)
	}
}

func TestBox_WrongKey(t *testing.T) {
	sealed, _ := newTestBox(t).Seal("f", "v")
	if _, err := newTestBox(t).Open("f", sealed); !errors.Is(err, ErrOpen) {
		t.Errorf("err = %v, want ErrOpen", err)
	}
}

func TestBox_PlainAndCorrupt(t *testing.T) {
	b := newTestBox(t)
	if got, err := b.Open("f", "plain"); err != nil || got != "plain" {
		t.Errorf("plain value = (%q, %v)", got, err)
	}
	if _, err := b.Open("f", Prefix+"!!!"); !errors.Is(err, ErrOpen) {
		t.Errorf("bad base64: err = %v", err)
	}
	if _, err := b.Open("f", Prefix+base64.StdEncoding.EncodeToString([]byte("short"))); !errors.Is(err, ErrOpen) {
		t.Errorf("short data: err = %v", err)
	}
	if got, _ := b.Seal("f", ""); got != "" {
		t.Errorf("empty plaintext sealed to %q", got)
	}
}

func TestDeriveKey(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"hex", strings.Repeat("ab", 32), false},
		{"base64", base64.StdEncoding.EncodeToString(make([]byte, 32)), false},
		{"raw", strings.Repeat("k", 32), false},
		{"short", "short", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := DeriveKey(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && len(k) != 32 {
				t.Errorf("key length = %d", len(k))
			}
		})
	}
}
