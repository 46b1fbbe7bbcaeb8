package relay

// FakeDriver records actuation calls for tests.
type FakeDriver struct {
	// Compressor and Fault hold the last commanded states.
	Compressor bool
	Fault      bool

	// Transitions records every SetCompressor value in call order.
	Transitions []bool

	// Closed tracks if Close was called.
	Closed bool

	// SetError, if set, is returned by SetCompressor and SetFault.
	SetError error
}

// NewFakeDriver creates a FakeDriver with everything off.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{}
}

func (f *FakeDriver) SetCompressor(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Compressor = on
	f.Transitions = append(f.Transitions, on)
	return nil
}

func (f *FakeDriver) SetFault(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Fault = on
	return nil
}

// Close marks the driver as closed and drops the compressor.
func (f *FakeDriver) Close() error {
	f.Compressor = false
	f.Closed = true
	return nil
}
