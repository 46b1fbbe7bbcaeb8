// Package relay drives the compressor contactor and the two panel LEDs.
package relay

// Default BCM pin assignments.
const (
	DefaultPinCompressor = 18
	DefaultPinRunLED     = 23
	DefaultPinFaultLED   = 24
)

// Driver actuates the compressor relay and status LEDs. The run LED
// mirrors the compressor state; the fault LED is driven independently so
// a latched fault stays visible with the compressor off.
type Driver interface {
	SetCompressor(on bool) error
	SetFault(on bool) error
	Close() error
}
