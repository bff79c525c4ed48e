// Package gpio provides contact input reading with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads the contact input.
type Reader interface {
	// Read returns the logical contact state (true = open).
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Defaults (BCM numbering).
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 17
)
