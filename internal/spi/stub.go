//go:build !linux

package spi

import "errors"

// BitBang is not available on non-Linux platforms.
type BitBang struct{}

// NewBitBang returns an error on non-Linux platforms.
func NewBitBang(chipName string, pinSCK, pinMOSI, pinMISO, pinCS int) (*BitBang, error) {
	return nil, errors.New("spi: not supported on this platform (requires Linux)")
}

// NewSharedBitBang returns an error on non-Linux platforms.
func NewSharedBitBang(parent *BitBang, pinCS int) (*BitBang, error) {
	return nil, errors.New("spi: not supported on this platform (requires Linux)")
}

// Transfer is not implemented on non-Linux platforms.
func (b *BitBang) Transfer(out byte) (byte, error) {
	return 0, errors.New("spi: not supported")
}

// Select is not implemented on non-Linux platforms.
func (b *BitBang) Select() error { return errors.New("spi: not supported") }

// Deselect is not implemented on non-Linux platforms.
func (b *BitBang) Deselect() error { return errors.New("spi: not supported") }

// Close is not implemented on non-Linux platforms.
func (b *BitBang) Close() error { return nil }
