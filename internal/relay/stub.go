//go:build !linux

package relay

import "errors"

// RealDriver is not available on non-Linux platforms.
type RealDriver struct{}

// NewRealDriver returns an error on non-Linux platforms.
func NewRealDriver(chipName string, pinCompressor, pinRunLED, pinFaultLED int) (*RealDriver, error) {
	return nil, errors.New("relay: not supported on this platform (requires Linux)")
}

func (d *RealDriver) SetCompressor(on bool) error {
	return errors.New("relay: not supported")
}

func (d *RealDriver) SetFault(on bool) error {
	return errors.New("relay: not supported")
}

func (d *RealDriver) Close() error {
	return nil
}
