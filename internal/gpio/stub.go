//go:build !linux

package gpio

import (
	"errors"
	"time"
)

// RealIndicator is not available on non-Linux platforms.
type RealIndicator struct{}

// NewRealIndicator returns an error on non-Linux platforms.
func NewRealIndicator(chip string, offset int) (*RealIndicator, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Pulse is not implemented on non-Linux platforms.
func (r *RealIndicator) Pulse(d time.Duration) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealIndicator) Close() error {
	return nil
}
