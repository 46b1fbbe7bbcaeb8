package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/freezerx/freezerd/internal/crc8"
)

// Record layout magics. RecordMagic opens every telemetry record on the
// card; ConfigMagic doubles as the configuration version marker.
var (
	RecordMagic = [4]byte{'F', 'Z', 'Z', 'X'}
	ConfigMagic = [4]byte{'F', '0', '0', '2'}
)

// RecordSize is the fixed on-card size of one telemetry record.
const RecordSize = 40

// Record is one immutable telemetry snapshot, built once per tick and
// handed to the append log. It is never mutated after creation.
type Record struct {
	Millis uint32 // monotonic milliseconds since boot
	Config Config
	Output Output
}

// recordWire is the fixed little-endian on-card representation, minus the
// trailing CRC byte.
type recordWire struct {
	Magic       [4]byte
	Millis      uint32
	ConfigMagic [4]byte
	Target      float32
	Hysteresis  int16
	DeadTime    int16
	MaxRunTime  int16
	Overheat    float32
	StartDelay  int16
	Primary     float32
	Secondary   float32
	TargetOn    bool
	ActualOn    bool
	Status      uint8
}

// MarshalBinary serializes the record in its fixed on-card layout and
// appends the whole-record CRC over all preceding bytes.
func (r Record) MarshalBinary() ([]byte, error) {
	w := recordWire{
		Magic:       RecordMagic,
		Millis:      r.Millis,
		ConfigMagic: ConfigMagic,
		Target:      r.Config.TargetTemperature,
		Hysteresis:  r.Config.HysteresisSeconds,
		DeadTime:    r.Config.DeadTimeMinutes,
		MaxRunTime:  r.Config.MaxRunTimeMinutes,
		Overheat:    r.Config.OverheatTemperature,
		StartDelay:  r.Config.StartupDelayMinutes,
		Primary:     float32(r.Output.Primary),
		Secondary:   float32(r.Output.Secondary),
		TargetOn:    r.Output.TargetOn,
		ActualOn:    r.Output.ActualOn,
		Status:      uint8(r.Output.Status),
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, w); err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	buf.WriteByte(crc8.Checksum(buf.Bytes()))

	b := buf.Bytes()
	if len(b) != RecordSize {
		return nil, fmt.Errorf("marshal record: layout is %d bytes, want %d", len(b), RecordSize)
	}
	return b, nil
}

// UnmarshalBinary parses a record from its on-card layout, validating the
// magic and the whole-record CRC.
func (r *Record) UnmarshalBinary(input []byte) error {
	if len(input) < RecordSize {
		return fmt.Errorf("unmarshal record: %d bytes, want %d", len(input), RecordSize)
	}
	input = input[:RecordSize]

	var w recordWire
	if err := binary.Read(bytes.NewReader(input), binary.LittleEndian, &w); err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}
	if w.Magic != RecordMagic {
		return fmt.Errorf("unmarshal record: bad magic %q", w.Magic[:])
	}
	if got, want := input[RecordSize-1], crc8.Checksum(input[:RecordSize-1]); got != want {
		return fmt.Errorf("unmarshal record: CRC %#x, computed %#x", got, want)
	}

	r.Millis = w.Millis
	r.Config = Config{
		TargetTemperature:   w.Target,
		HysteresisSeconds:   w.Hysteresis,
		DeadTimeMinutes:     w.DeadTime,
		MaxRunTimeMinutes:   w.MaxRunTime,
		OverheatTemperature: w.Overheat,
		StartupDelayMinutes: w.StartDelay,
	}
	r.Output = Output{
		Primary:   float64(w.Primary),
		Secondary: float64(w.Secondary),
		TargetOn:  w.TargetOn,
		ActualOn:  w.ActualOn,
		Status:    Status(w.Status),
	}
	return nil
}
