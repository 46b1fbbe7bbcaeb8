// Package spi provides a minimal SPI mode-0 master with hardware
// abstraction. The real implementation bit-bangs the bus over the Linux
// GPIO character device; the fake implementation allows testing without
// hardware.
//
// Each Bus owns its own chip-select line, so devices sharing physical
// clock/data lines are represented as separate Bus values.
package spi

// Bus is a synchronous byte-at-a-time SPI master attached to one device.
type Bus interface {
	// Transfer clocks one byte out and returns the byte clocked in.
	Transfer(b byte) (byte, error)

	// Select asserts the device's chip-select line (active low).
	Select() error

	// Deselect releases the chip-select line.
	Deselect() error

	// Close releases the underlying lines.
	Close() error
}

// Default pin assignments (BCM numbering). Both devices share the clock
// and data lines; each gets its own chip select.
const (
	DefaultPinSCK   = 11
	DefaultPinMOSI  = 10
	DefaultPinMISO  = 9
	DefaultPinCS    = 8
	DefaultPinADCCS = 7
)
