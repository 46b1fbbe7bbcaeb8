//go:build linux

package relay

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealDriver drives the relay and LEDs through the Linux GPIO character
// device.
type RealDriver struct {
	chip       *gpiocdev.Chip
	compressor *gpiocdev.Line
	runLED     *gpiocdev.Line
	faultLED   *gpiocdev.Line
}

// NewRealDriver requests the three output lines on the given chip. All
// outputs start low: compressor off, LEDs dark.
func NewRealDriver(chipName string, pinCompressor, pinRunLED, pinFaultLED int) (*RealDriver, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	compressor, err := chip.RequestLine(pinCompressor, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request compressor pin %d: %w", pinCompressor, err)
	}

	runLED, err := chip.RequestLine(pinRunLED, gpiocdev.AsOutput(0))
	if err != nil {
		compressor.Close()
		chip.Close()
		return nil, fmt.Errorf("request run LED pin %d: %w", pinRunLED, err)
	}

	faultLED, err := chip.RequestLine(pinFaultLED, gpiocdev.AsOutput(0))
	if err != nil {
		runLED.Close()
		compressor.Close()
		chip.Close()
		return nil, fmt.Errorf("request fault LED pin %d: %w", pinFaultLED, err)
	}

	return &RealDriver{
		chip:       chip,
		compressor: compressor,
		runLED:     runLED,
		faultLED:   faultLED,
	}, nil
}

// SetCompressor switches the contactor and mirrors the state on the run
// LED.
func (d *RealDriver) SetCompressor(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := d.compressor.SetValue(v); err != nil {
		return fmt.Errorf("set compressor pin: %w", err)
	}
	if err := d.runLED.SetValue(v); err != nil {
		return fmt.Errorf("set run LED pin: %w", err)
	}
	return nil
}

// SetFault drives the fault LED.
func (d *RealDriver) SetFault(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := d.faultLED.SetValue(v); err != nil {
		return fmt.Errorf("set fault LED pin: %w", err)
	}
	return nil
}

// Close forces the compressor off, darkens the LEDs, and releases the
// lines. The relay must never be left energized by a daemon restart.
func (d *RealDriver) Close() error {
	var errs []error

	if d.compressor != nil {
		if err := d.compressor.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drop compressor pin: %w", err))
		}
		if err := d.compressor.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close compressor pin: %w", err))
		}
	}
	if d.runLED != nil {
		d.runLED.SetValue(0)
		if err := d.runLED.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close run LED pin: %w", err))
		}
	}
	if d.faultLED != nil {
		d.faultLED.SetValue(0)
		if err := d.faultLED.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close fault LED pin: %w", err))
		}
	}
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
