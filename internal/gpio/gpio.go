// Package gpio drives the cycle indicator (lamp or buzzer) on a GPIO output
// line. The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "time"

// Indicator is an output that can be switched on for a while.
type Indicator interface {
	// Pulse drives the output active for d. A pulse started while another
	// is running extends the active period to end d from now.
	Pulse(d time.Duration) error

	// Close drives the output inactive and releases GPIO resources.
	Close() error
}

// Defaults (BCM numbering).
const (
	DefaultChip = "gpiochip0"
	DefaultLine = 17
)
