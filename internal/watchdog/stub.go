//go:build !linux

package watchdog

import "errors"

// DefaultDevice is the kernel watchdog device node.
const DefaultDevice = "/dev/watchdog"

// RealFeeder is not available on non-Linux platforms.
type RealFeeder struct{}

// NewRealFeeder returns an error on non-Linux platforms.
func NewRealFeeder(device string) (*RealFeeder, error) {
	return nil, errors.New("watchdog: not supported on this platform (requires Linux)")
}

func (r *RealFeeder) Feed() error {
	return errors.New("watchdog: not supported")
}

func (r *RealFeeder) Close() error {
	return nil
}
