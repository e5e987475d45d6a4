package authflow

import "time"

// Request timeout bounds. The timeout is measured from the moment the user
// reports the message as sent (or from a resume) until a terminal status.
const (
	MinRequestTimeout     = 30 * time.Second
	MaxRequestTimeout     = 300 * time.Second
	DefaultRequestTimeout = 90 * time.Second

	// PollInterval is the fixed delay between status checks.
	PollInterval = 1500 * time.Millisecond
)

// Configuration is immutable once built.
type Configuration struct {
	showLoader      bool
	lockInteraction bool
	requestTimeout  time.Duration
}

// NewConfiguration clamps requestTimeout into [MinRequestTimeout,
// MaxRequestTimeout]. A zero or negative timeout selects DefaultRequestTimeout.
func NewConfiguration(showLoader, lockInteraction bool, requestTimeout time.Duration) Configuration {
	return Configuration{
		showLoader:      showLoader,
		lockInteraction: lockInteraction,
		requestTimeout:  ClampRequestTimeout(requestTimeout),
	}
}

// DefaultConfiguration shows the loader, locks interaction, and waits 90s.
func DefaultConfiguration() Configuration {
	return NewConfiguration(true, true, DefaultRequestTimeout)
}

// ClampRequestTimeout applies the request timeout bounds.
func ClampRequestTimeout(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultRequestTimeout
	case d < MinRequestTimeout:
		return MinRequestTimeout
	case d > MaxRequestTimeout:
		return MaxRequestTimeout
	}
	return d
}

func (c Configuration) ShowLoader() bool { return c.showLoader }

func (c Configuration) LockInteraction() bool { return c.lockInteraction }

func (c Configuration) RequestTimeout() time.Duration { return c.requestTimeout }
