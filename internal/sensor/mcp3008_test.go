package sensor

import (
	"errors"
	"math"
	"testing"

	"github.com/freezerx/freezerd/internal/spi"
)

// scriptADC returns a response script where every conversion on the bus
// yields the given raw count, for as many samples as the reader takes.
func scriptADC(raw int, samples int) []byte {
	var out []byte
	for i := 0; i < samples; i++ {
		out = append(out, 0x00, byte(raw>>8)&0x03, byte(raw))
	}
	return out
}

func TestCelsiusFromRawAtNominal(t *testing.T) {
	// At 25 degrees the thermistor equals its nominal resistance. With a
	// 10k thermistor against the 10k reference the divider sits at
	// half scale.
	got := celsiusFromRaw(analogResolution/2, primaryNominalResistance)
	if math.Abs(got-25) > 0.2 {
		t.Errorf("half-scale count = %.2f degrees, want ~25", got)
	}
}

func TestCelsiusFromRawMonotonicity(t *testing.T) {
	// The thermistor sits on the low side of the divider: a higher count
	// means more thermistor resistance, which for an NTC means colder.
	warm := celsiusFromRaw(200, primaryNominalResistance)
	cold := celsiusFromRaw(700, primaryNominalResistance)
	if warm <= cold {
		t.Errorf("expected raw 200 (%f) hotter than raw 700 (%f)", warm, cold)
	}
}

func TestCelsiusFromRawOpenProbe(t *testing.T) {
	got := celsiusFromRaw(analogResolution, primaryNominalResistance)
	if got != -273.15 {
		t.Errorf("open probe = %f, want -273.15", got)
	}
}

func TestCelsiusFromRawShortedProbe(t *testing.T) {
	got := celsiusFromRaw(0, secondaryNominalResistance)
	if !math.IsInf(got, 1) {
		t.Errorf("shorted probe = %f, want +Inf", got)
	}
}

func TestReadAveragesAndConverts(t *testing.T) {
	// 11 conversions per channel (one settling throwaway plus the
	// averaged samples), two channels.
	script := append(
		scriptADC(analogResolution/2, samplesPerRead+1),
		scriptADC(analogResolution/2, samplesPerRead+1)...)
	bus := spi.NewFakeBus(script)
	m := NewMCP3008(bus)

	r, err := m.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if math.Abs(r.Primary-25) > 0.2 {
		t.Errorf("primary = %.2f, want ~25", r.Primary)
	}
	// The secondary probe is a 100k thermistor; a half-scale divider
	// against the 10k reference means it is far below nominal
	// resistance, i.e. hot.
	if r.Secondary <= 25 {
		t.Errorf("secondary = %.2f, want above 25", r.Secondary)
	}
}

func TestReadCommandFraming(t *testing.T) {
	bus := spi.NewFakeBus(nil)
	m := NewMCP3008(bus)

	if _, err := m.Read(); err != nil {
		t.Fatalf("Read: %v", err)
	}

	if len(bus.Sent) != 2*3*(samplesPerRead+1) {
		t.Fatalf("sent %d bytes, want %d", len(bus.Sent), 2*3*(samplesPerRead+1))
	}
	// First conversion targets channel 0, single-ended.
	if bus.Sent[0] != 0x01 || bus.Sent[1] != 0x80 || bus.Sent[2] != 0x00 {
		t.Errorf("channel 0 frame = % x", bus.Sent[:3])
	}
	// Conversions for the second channel select channel 1.
	off := 3 * (samplesPerRead + 1)
	if bus.Sent[off] != 0x01 || bus.Sent[off+1] != 0x90 {
		t.Errorf("channel 1 frame = % x", bus.Sent[off:off+2])
	}
}

func TestReadChipSelectPerConversion(t *testing.T) {
	bus := spi.NewFakeBus(nil)
	m := NewMCP3008(bus)

	if _, err := m.Read(); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if bus.SelectCount != 2*(samplesPerRead+1) {
		t.Errorf("select count = %d, want %d", bus.SelectCount, 2*(samplesPerRead+1))
	}
	if bus.Selected {
		t.Error("bus left selected after Read")
	}
}

func TestReadPropagatesBusError(t *testing.T) {
	bus := spi.NewFakeBus(nil)
	bus.TransferError = errors.New("simulated error")
	m := NewMCP3008(bus)

	if _, err := m.Read(); err == nil {
		t.Error("expected bus error to propagate")
	}
}
