package auth

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig holds configuration for failed-login response padding
type TimingConfig struct {
	BaseDelayMs    int  // Minimum response time in milliseconds
	RandomDelayMs  int  // Random jitter added on top of the base
	DelayOnSuccess bool // If true, pad successful logins too
}

// TimingDelay pads authentication responses to a minimum duration so the
// unknown-email branch (no bcrypt) is harder to tell from a wrong password.
// A zero config disables it.
type TimingDelay struct {
	config TimingConfig
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{config: config}
}

// Enabled reports whether any padding is configured.
func (td *TimingDelay) Enabled() bool {
	return td != nil && (td.config.BaseDelayMs > 0 || td.config.RandomDelayMs > 0)
}

// cryptoRandIntn returns a secure random number in [0, max)
func cryptoRandIntn(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return 0, err
	}

	randomValue := binary.BigEndian.Uint64(randomBytes)
	return int(randomValue % uint64(max)), nil
}

func (td *TimingDelay) target() time.Duration {
	target := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	if td.config.RandomDelayMs > 0 {
		if jitter, err := cryptoRandIntn(td.config.RandomDelayMs); err == nil {
			target += time.Duration(jitter) * time.Millisecond
		}
	}
	return target
}

// PadFrom sleeps until at least the configured target has elapsed since start.
// It returns early if ctx is cancelled.
func (td *TimingDelay) PadFrom(ctx context.Context, start time.Time, success bool) {
	if !td.Enabled() {
		return
	}
	if success && !td.config.DelayOnSuccess {
		return
	}

	remaining := td.target() - time.Since(start)
	if remaining <= 0 {
		return
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
