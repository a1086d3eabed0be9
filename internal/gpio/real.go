//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealIndicator drives an output line through the Linux GPIO character device.
type RealIndicator struct {
	mu     sync.Mutex
	chip   *gpiocdev.Chip
	line   *gpiocdev.Line
	timer  *time.Timer
	closed bool
}

// NewRealIndicator requests offset on chip as an output, initially inactive.
func NewRealIndicator(chip string, offset int) (*RealIndicator, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chip, err)
	}

	line, err := c.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("autoclave-monitor"))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request indicator line %d: %w", offset, err)
	}

	return &RealIndicator{chip: c, line: line}, nil
}

// Pulse drives the line high for d.
func (r *RealIndicator) Pulse(d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.New("gpio: indicator closed")
	}
	if err := r.line.SetValue(1); err != nil {
		return fmt.Errorf("set indicator line: %w", err)
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(d, r.off)
	return nil
}

func (r *RealIndicator) off() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.line.SetValue(0)
	}
}

// Close drives the line low and reconfigures it as an input with pull-down
// (the Pi boot default) before releasing it.
func (r *RealIndicator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
	}

	var errs []error
	if err := r.line.SetValue(0); err != nil {
		errs = append(errs, fmt.Errorf("clear indicator line: %w", err))
	}
	if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure indicator line: %w", err))
	}
	if err := r.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close indicator line: %w", err))
	}
	if err := r.chip.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close chip: %w", err))
	}
	return errors.Join(errs...)
}
