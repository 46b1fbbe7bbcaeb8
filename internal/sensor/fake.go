package sensor

import "errors"

// FakeReader is a test double that returns scripted readings.
type FakeReader struct {
	// Readings contains scripted values to return. Each call to Read()
	// consumes the next reading; the last one repeats when exhausted.
	Readings []Reading

	index int

	// Closed tracks if Close was called.
	Closed bool

	// ReadError, if set, will be returned by Read().
	ReadError error
}

// NewFakeReader creates a FakeReader with the given readings.
func NewFakeReader(readings []Reading) *FakeReader {
	return &FakeReader{Readings: readings}
}

// Read returns the next scripted reading.
func (f *FakeReader) Read() (Reading, error) {
	if f.ReadError != nil {
		return Reading{}, f.ReadError
	}
	if len(f.Readings) == 0 {
		return Reading{}, errors.New("no readings configured")
	}

	r := f.Readings[f.index]
	if f.index < len(f.Readings)-1 {
		f.index++
	}
	return r, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}
