package environment

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

// DeviceIDKey is the key the device id is persisted under.
const DeviceIDKey = "msgauth-device-id"

// vendorNamespace scopes hardware-derived ids to this library, so the raw
// machine UUID never leaves the device and other vendors derive different ids.
var vendorNamespace = uuid.MustParse("6f1d4c2e-8a4b-5d3e-9c7f-2b1a0e9d8c7b")

// KV is a durable key-value store for small device-local values.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// ErrKeyNotFound is returned by KV implementations for a missing key.
var ErrKeyNotFound = errors.New("key not found")

// FingerprintFunc returns a stable hardware identifier for this machine.
type FingerprintFunc func() (string, error)

// ResolveDeviceID returns the persisted device id, creating one on first use.
// A new id is derived from the hardware fingerprint when available and falls
// back to a random UUID otherwise.
func ResolveDeviceID(kv KV, fingerprint FingerprintFunc) (string, error) {
	id, err := kv.Get(DeviceIDKey)
	if err == nil && id != "" {
		return id, nil
	}
	if err != nil && !errors.Is(err, ErrKeyNotFound) {
		return "", fmt.Errorf("read device id: %w", err)
	}

	id = ""
	if fingerprint != nil {
		if hw, ferr := fingerprint(); ferr == nil && hw != "" {
			id = VendorID(hw)
		} else if ferr != nil {
			slog.Debug("hardware fingerprint unavailable, using random device id", "error", ferr)
		}
	}
	if id == "" {
		id = strings.ToUpper(uuid.NewString())
	}

	if err := kv.Set(DeviceIDKey, id); err != nil {
		return "", fmt.Errorf("persist device id: %w", err)
	}
	slog.Info("device id created", "device_id", id)
	return id, nil
}

// VendorID derives a vendor-scoped UUID from a hardware identifier.
func VendorID(hardwareID string) string {
	normalized := strings.ToUpper(strings.TrimSpace(hardwareID))
	return strings.ToUpper(uuid.NewSHA1(vendorNamespace, []byte(normalized)).String())
}

// HardwareFingerprint returns the platform hardware UUID.
func HardwareFingerprint() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		return macOSUUID()
	case "linux":
		return linuxUUID()
	case "windows":
		return windowsUUID()
	default:
		return "", errors.New("unsupported platform: " + runtime.GOOS)
	}
}

func macOSUUID() (string, error) {
	out, err := exec.Command("ioreg", "-rd1", "-c", "IOPlatformExpertDevice").Output()
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, "IOPlatformUUID") {
			continue
		}
		parts := strings.Split(line, "\"")
		if len(parts) >= 4 {
			return parts[3], nil
		}
	}
	return "", errors.New("no IOPlatformUUID found")
}

func linuxUUID() (string, error) {
	// product_uuid is root-only on most distros; machine-id is world readable.
	for _, path := range []string{"/sys/class/dmi/id/product_uuid", "/etc/machine-id", "/var/lib/dbus/machine-id"} {
		b, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if id := strings.TrimSpace(string(b)); id != "" {
			return id, nil
		}
	}
	return "", errors.New("no hardware UUID found on Linux")
}

func windowsUUID() (string, error) {
	out, err := exec.Command("wmic", "csproduct", "get", "UUID").Output()
	if err != nil {
		return "", err
	}
	for _, line := range bytes.Split(out, []byte("\n")) {
		s := strings.TrimSpace(string(line))
		if s != "" && !strings.EqualFold(s, "UUID") {
			return s, nil
		}
	}
	return "", errors.New("no hardware UUID found on Windows")
}
