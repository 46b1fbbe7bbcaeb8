// Package watchdog feeds the hardware watchdog so a hung control loop
// forces a reboot instead of leaving the compressor in its last state.
package watchdog

// Feeder keeps the hardware watchdog from firing.
type Feeder interface {
	// Feed resets the watchdog countdown.
	Feed() error

	// Close disarms the watchdog and releases it.
	Close() error
}
