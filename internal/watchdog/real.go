//go:build linux

package watchdog

import (
	"fmt"
	"os"
)

// DefaultDevice is the kernel watchdog device node.
const DefaultDevice = "/dev/watchdog"

// RealFeeder feeds the kernel watchdog device.
type RealFeeder struct {
	f *os.File
}

// NewRealFeeder opens the watchdog device. Opening it arms the timer;
// the daemon must feed it from then on or the machine reboots.
func NewRealFeeder(device string) (*RealFeeder, error) {
	f, err := os.OpenFile(device, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open watchdog %s: %w", device, err)
	}
	return &RealFeeder{f: f}, nil
}

// Feed resets the watchdog countdown.
func (r *RealFeeder) Feed() error {
	if _, err := r.f.Write([]byte{0}); err != nil {
		return fmt.Errorf("feed watchdog: %w", err)
	}
	return nil
}

// Close writes the magic disarm character before closing, so a clean
// daemon shutdown does not reboot the machine.
func (r *RealFeeder) Close() error {
	if _, err := r.f.Write([]byte("V")); err != nil {
		r.f.Close()
		return fmt.Errorf("disarm watchdog: %w", err)
	}
	return r.f.Close()
}
