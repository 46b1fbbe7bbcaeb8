//go:build linux

package spi

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// BitBang is a software SPI mode-0 master over GPIO character device lines.
// It is deliberately slow-clocked (no delay loop is needed: the syscall
// round-trip per edge keeps the clock well under device limits), which
// matches the 250 kHz bus the original controller used.
type BitBang struct {
	chip *gpiocdev.Chip
	sck  *gpiocdev.Line
	mosi *gpiocdev.Line
	miso *gpiocdev.Line
	cs   *gpiocdev.Line

	// shared marks a bus borrowing another bus's clock and data lines;
	// Close then releases only the chip-select.
	shared bool
}

// NewBitBang opens the given chip ("gpiochip0" on a Pi) and requests the
// four bus lines. Clock idles low, chip-select idles high.
func NewBitBang(chipName string, pinSCK, pinMOSI, pinMISO, pinCS int) (*BitBang, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	b := &BitBang{chip: chip}

	b.sck, err = chip.RequestLine(pinSCK, gpiocdev.AsOutput(0))
	if err == nil {
		b.mosi, err = chip.RequestLine(pinMOSI, gpiocdev.AsOutput(0))
	}
	if err == nil {
		b.miso, err = chip.RequestLine(pinMISO, gpiocdev.AsInput)
	}
	if err == nil {
		b.cs, err = chip.RequestLine(pinCS, gpiocdev.AsOutput(1))
	}
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("request spi lines: %w", err)
	}

	return b, nil
}

// NewSharedBitBang creates a second bus on the same clock and data lines
// with its own chip-select. The parent bus must stay open for the shared
// bus's lifetime, and the caller must not drive both devices at once.
func NewSharedBitBang(parent *BitBang, pinCS int) (*BitBang, error) {
	cs, err := parent.chip.RequestLine(pinCS, gpiocdev.AsOutput(1))
	if err != nil {
		return nil, fmt.Errorf("request cs pin %d: %w", pinCS, err)
	}
	return &BitBang{
		chip:   parent.chip,
		sck:    parent.sck,
		mosi:   parent.mosi,
		miso:   parent.miso,
		cs:     cs,
		shared: true,
	}, nil
}

// Transfer clocks one byte, MSB first, sampling MISO on the rising edge.
func (b *BitBang) Transfer(out byte) (byte, error) {
	var in byte
	for bit := 7; bit >= 0; bit-- {
		mosi := 0
		if out&(1<<uint(bit)) != 0 {
			mosi = 1
		}
		if err := b.mosi.SetValue(mosi); err != nil {
			return 0, fmt.Errorf("set mosi: %w", err)
		}
		if err := b.sck.SetValue(1); err != nil {
			return 0, fmt.Errorf("clock high: %w", err)
		}
		v, err := b.miso.Value()
		if err != nil {
			return 0, fmt.Errorf("read miso: %w", err)
		}
		if v != 0 {
			in |= 1 << uint(bit)
		}
		if err := b.sck.SetValue(0); err != nil {
			return 0, fmt.Errorf("clock low: %w", err)
		}
	}
	return in, nil
}

// Select pulls chip-select low.
func (b *BitBang) Select() error {
	if err := b.cs.SetValue(0); err != nil {
		return fmt.Errorf("assert cs: %w", err)
	}
	return nil
}

// Deselect releases chip-select high.
func (b *BitBang) Deselect() error {
	if err := b.cs.SetValue(1); err != nil {
		return fmt.Errorf("release cs: %w", err)
	}
	return nil
}

// Close releases all requested lines and the chip.
func (b *BitBang) Close() error {
	if b.shared {
		if b.cs != nil {
			return b.cs.Close()
		}
		return nil
	}
	var errs []error
	for _, line := range []*gpiocdev.Line{b.sck, b.mosi, b.miso, b.cs} {
		if line == nil {
			continue
		}
		if err := line.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
