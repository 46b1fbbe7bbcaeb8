// Package sensor reads the two NTC thermistor probes through an MCP3008
// ADC on the shared SPI bus.
package sensor

// Reading holds one sample of both probes in degrees Celsius.
type Reading struct {
	// Primary is the cabinet probe the control decisions run on.
	Primary float64
	// Secondary is the compressor-head probe watched for overheat.
	Secondary float64
}

// Reader samples both temperature probes.
type Reader interface {
	Read() (Reading, error)
	Close() error
}
