package autherr

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestFromServiceCode(t *testing.T) {
	cases := map[int]Kind{
		120: KindMissingParameter,
		500: KindAccountSuspended,
		510: KindAccountBlocked,
		700: KindInvalidBundleID,
		710: KindUnableToInitRequest,
		720: KindServiceUnavailable,
		730: KindInvalidRequestID,
		740: KindInvalidAuthDevice,
		750: KindInvalidAuthToken,
		760: KindAuthTokenExpired,
		770: KindDeprecatedClient,
	}
	for code, want := range cases {
		if got := FromServiceCode(code); got != want {
			t.Errorf("code %d: got %s, want %s", code, got, want)
		}
	}
}

func TestFromServiceCode_UnknownIsBadRequest(t *testing.T) {
	for _, code := range []int{0, 1, 121, 999, -5} {
		if got := FromServiceCode(code); got != KindBadRequest {
			t.Errorf("code %d: got %s, want bad_request", code, got)
		}
	}
}

func TestFromStatus(t *testing.T) {
	cases := map[int]Kind{
		http.StatusUnauthorized:        KindWrongCredentials,
		http.StatusPaymentRequired:     KindUnpaid,
		http.StatusForbidden:           KindUnauthorized,
		http.StatusNotFound:            KindNotFound,
		http.StatusInternalServerError: KindInternalServerError,
		http.StatusServiceUnavailable:  KindInternalServerError,
		505:                            KindInternalServerError,
	}
	for status, want := range cases {
		got, ok := FromStatus(status)
		if !ok || got != want {
			t.Errorf("status %d: got (%s, %v), want %s", status, got, ok, want)
		}
	}

	for _, status := range []int{302, 409, 418, 429, 506, 599} {
		if _, ok := FromStatus(status); ok {
			t.Errorf("status %d should be unmapped", status)
		}
	}
}

func TestError_IsMatchesKind(t *testing.T) {
	err := Wrap(KindRequestTimeout, io.EOF)
	if !errors.Is(err, ErrRequestTimeout) {
		t.Error("expected errors.Is to match by kind")
	}
	if errors.Is(err, ErrCanceledByUser) {
		t.Error("different kinds must not match")
	}
	if !errors.Is(err, io.EOF) {
		t.Error("cause should be reachable through Unwrap")
	}

	wrapped := fmt.Errorf("poll: %w", err)
	if KindOf(wrapped) != KindRequestTimeout {
		t.Errorf("KindOf through wrap = %s", KindOf(wrapped))
	}
	if KindOf(io.EOF) != 0 {
		t.Error("KindOf on foreign error should be 0")
	}
}

func TestKinds_AllNamed(t *testing.T) {
	kinds := Kinds()
	if len(kinds) != 24 {
		t.Fatalf("expected 24 kinds, got %d", len(kinds))
	}
	for _, k := range kinds {
		if strings.HasPrefix(k.String(), "kind(") {
			t.Errorf("kind %d has no name", int(k))
		}
		if New(k).Message(true) == "Unknown auth error" {
			t.Errorf("kind %s has no message", k)
		}
	}
}

func TestMessage_DetailedVsGeneric(t *testing.T) {
	err := New(KindAccountBlocked)
	if err.Message(false) != unavailableMessage {
		t.Errorf("generic message leaked account state: %q", err.Message(false))
	}
	if err.Message(true) == unavailableMessage {
		t.Error("detailed message should describe the account state")
	}

	netErr := Wrap(KindUnableToHandleResponse, errors.New("dial tcp: refused"))
	if strings.Contains(netErr.Message(false), "refused") {
		t.Error("generic message must not include the cause")
	}
	if !strings.Contains(netErr.Message(true), "refused") {
		t.Error("detailed message should include the cause")
	}
}

func TestMessageOf_ForeignError(t *testing.T) {
	if MessageOf(nil, true) != "" {
		t.Error("nil error should have empty message")
	}
	if got := MessageOf(errors.New("boom"), false); got != "Unexpected error" {
		t.Errorf("got %q", got)
	}
	if got := MessageOf(errors.New("boom"), true); got != "boom" {
		t.Errorf("got %q", got)
	}
}
