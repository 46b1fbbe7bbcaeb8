package sensor

import (
	"fmt"
	"math"

	"github.com/freezerx/freezerd/internal/spi"
)

// NTC divider constants. Both probes share the 10k reference resistor and
// beta value; the compressor-head probe uses a 100k thermistor for range.
const (
	referenceResistance = 10000
	nominalTemperature  = 25
	betaValue           = 3950
	analogResolution    = 1023

	primaryNominalResistance   = 10000
	secondaryNominalResistance = 100000
)

// ADC channels on the MCP3008.
const (
	primaryChannel   = 0
	secondaryChannel = 1
)

const samplesPerRead = 10

// MCP3008 reads the thermistor dividers through an MCP3008 ADC in
// single-ended mode. Each Read averages several samples per channel to
// smooth ADC noise.
type MCP3008 struct {
	bus spi.Bus
}

// NewMCP3008 creates a reader on the given SPI bus. The bus is owned by
// the caller; Close releases it.
func NewMCP3008(bus spi.Bus) *MCP3008 {
	return &MCP3008{bus: bus}
}

// Read samples both probes and converts to degrees Celsius.
func (m *MCP3008) Read() (Reading, error) {
	primary, err := m.readChannel(primaryChannel, primaryNominalResistance)
	if err != nil {
		return Reading{}, fmt.Errorf("read primary probe: %w", err)
	}
	secondary, err := m.readChannel(secondaryChannel, secondaryNominalResistance)
	if err != nil {
		return Reading{}, fmt.Errorf("read secondary probe: %w", err)
	}
	return Reading{Primary: primary, Secondary: secondary}, nil
}

// Close releases the SPI bus.
func (m *MCP3008) Close() error {
	m.bus.Close()
	return nil
}

func (m *MCP3008) readChannel(ch int, nominalResistance float64) (float64, error) {
	// Throwaway conversion lets the sample-and-hold settle after a
	// channel change.
	if _, err := m.sample(ch); err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < samplesPerRead; i++ {
		raw, err := m.sample(ch)
		if err != nil {
			return 0, err
		}
		sum += celsiusFromRaw(raw, nominalResistance)
	}
	return sum / samplesPerRead, nil
}

// sample runs one single-ended conversion. The MCP3008 exchange is three
// bytes: start bit, then single-ended mode plus channel in the top
// nibble, then a don't-care byte; the 10-bit result spans the last two
// response bytes.
func (m *MCP3008) sample(ch int) (int, error) {
	m.bus.Select()
	defer m.bus.Deselect()

	if _, err := m.bus.Transfer(0x01); err != nil {
		return 0, err
	}
	hi, err := m.bus.Transfer(byte(0x80 | ch<<4))
	if err != nil {
		return 0, err
	}
	lo, err := m.bus.Transfer(0x00)
	if err != nil {
		return 0, err
	}
	return int(hi&0x03)<<8 | int(lo), nil
}

// celsiusFromRaw converts an ADC count to temperature with the beta
// equation. The thermistor sits on the low side of the divider, so a
// disconnected probe pins the count at full scale and converts to
// absolute zero, while a shorted probe reads impossibly hot. Both land
// outside the plausible range the control loop accepts.
func celsiusFromRaw(raw int, nominalResistance float64) float64 {
	if raw <= 0 {
		// Shorted probe: zero divider voltage.
		return math.Inf(1)
	}
	if raw >= analogResolution {
		// Open probe: infinite resistance drives the beta equation to
		// absolute zero.
		return -273.15
	}
	resistance := referenceResistance / (float64(analogResolution)/float64(raw) - 1)

	t0 := float64(nominalTemperature) + 273.15
	invK := 1/t0 + math.Log(resistance/nominalResistance)/betaValue
	return 1/invK - 273.15
}
