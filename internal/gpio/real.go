//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads the contact from actual hardware using the Linux GPIO character device.
type RealReader struct {
	chip      *gpiocdev.Chip
	line      *gpiocdev.Line
	activeLow bool
}

// NewRealReader requests pin on chip as an input with pull-up, which suits a
// reed switch wired to ground. With activeLow, a low level reads as open.
func NewRealReader(chip string, pin int, activeLow bool) (*RealReader, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chip, err)
	}

	line, err := c.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request contact pin %d: %w", pin, err)
	}

	return &RealReader{
		chip:      c,
		line:      line,
		activeLow: activeLow,
	}, nil
}

// Read returns the logical contact state.
// A closed reed switch pulls the line low, so by default high (1) = open.
func (r *RealReader) Read() (bool, error) {
	raw, err := r.line.Value()
	if err != nil {
		return false, fmt.Errorf("read contact pin: %w", err)
	}
	return logical(raw, r.activeLow), nil
}

func logical(raw int, activeLow bool) bool {
	if activeLow {
		return raw == 0
	}
	return raw != 0
}

// Close releases GPIO resources.
// Reconfigures the pin to input with pull-down (matching Pi boot defaults)
// before closing.
func (r *RealReader) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure contact pin: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close contact pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
