package environment

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
)

type memKV struct {
	values map[string]string
	getErr error
}

func (m *memKV) Get(key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

func (m *memKV) Set(key, value string) error {
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = value
	return nil
}

func (m *memKV) Delete(key string) error {
	delete(m.values, key)
	return nil
}

func TestResolveDeviceID_ReturnsStored(t *testing.T) {
	kv := &memKV{values: map[string]string{DeviceIDKey: "STORED-ID"}}
	id, err := ResolveDeviceID(kv, func() (string, error) {
		t.Fatal("fingerprint must not be consulted when an id is stored")
		return "", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "STORED-ID" {
		t.Errorf("id = %q, want STORED-ID", id)
	}
}

func TestResolveDeviceID_DerivesFromHardwareAndPersists(t *testing.T) {
	kv := &memKV{}
	hw := func() (string, error) { return "4C4C4544-0042-3510-8052-B3C04F4E3732", nil }

	id, err := ResolveDeviceID(kv, hw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != VendorID("4C4C4544-0042-3510-8052-B3C04F4E3732") {
		t.Errorf("id %q not derived from hardware id", id)
	}
	if strings.Contains(id, "4C4C4544") {
		t.Error("raw hardware id must not be used directly")
	}
	if kv.values[DeviceIDKey] != id {
		t.Error("device id was not persisted")
	}

	again, _ := ResolveDeviceID(kv, func() (string, error) { return "other", nil })
	if again != id {
		t.Errorf("second resolve = %q, want stable %q", again, id)
	}
}

func TestResolveDeviceID_RandomFallback(t *testing.T) {
	kv := &memKV{}
	id, err := ResolveDeviceID(kv, func() (string, error) { return "", errors.New("no hw") })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("fallback id %q is not a UUID: %v", id, err)
	}
}

func TestResolveDeviceID_StoreError(t *testing.T) {
	kv := &memKV{getErr: errors.New("keychain locked")}
	if _, err := ResolveDeviceID(kv, nil); err == nil {
		t.Fatal("expected error when the store cannot be read")
	}
}

func TestVendorID_Normalizes(t *testing.T) {
	if VendorID("abc-123") != VendorID("  ABC-123 ") {
		t.Error("vendor id should ignore case and surrounding space")
	}
	if VendorID("a") == VendorID("b") {
		t.Error("different hardware ids must map to different vendor ids")
	}
}

func TestFileKV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "device.json")
	kv := NewFileKV(path)

	if _, err := kv.Get("missing"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if err := kv.Set("k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}

	reopened := NewFileKV(path)
	v, err := reopened.Get("k")
	if err != nil || v != "v" {
		t.Fatalf("get after reopen = (%q, %v)", v, err)
	}

	if err := reopened.Delete("k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := reopened.Get("k"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected key gone, got %v", err)
	}
}

func TestRegionOf(t *testing.T) {
	cases := map[string]string{
		"en_US":       "US",
		"en_US.UTF-8": "US",
		"pt-BR":       "BR",
		"de_DE@euro":  "DE",
		"zh-Hant-TW":  "TW",
		"fr":          "",
		"":            "",
	}
	for in, want := range cases {
		if got := RegionOf(in); got != want {
			t.Errorf("RegionOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDetect_Defaults(t *testing.T) {
	c := Detect("", App{BundleID: "com.example.app"}, "DEV-1", "en_GB")
	if c.Environment != EnvProduction {
		t.Errorf("environment = %q", c.Environment)
	}
	if c.BundleID != "com.example.app" || c.AppName != "???" {
		t.Errorf("unexpected app fields: %+v", c)
	}
	if c.Region != "GB" {
		t.Errorf("region = %q", c.Region)
	}
	if !strings.HasPrefix(c.LibraryVersionHeader(), "Library-Version-") {
		t.Errorf("library header = %q", c.LibraryVersionHeader())
	}
}

func TestPlatformOf(t *testing.T) {
	if PlatformOf("darwin") != "MAC" || PlatformOf("ios") != "IOS" || PlatformOf("linux") != "LINUX" {
		t.Error("unexpected platform mapping")
	}
}
