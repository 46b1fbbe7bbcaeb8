package spi

// FakeBus is a test double that returns scripted response bytes.
type FakeBus struct {
	// Responses contains bytes to return from Transfer, in order. When
	// exhausted, Transfer returns 0xFF (an idle bus).
	Responses []byte

	// Sent records every byte written to the bus.
	Sent []byte

	// Selected tracks the current chip-select state.
	Selected bool

	// SelectCount counts Select calls.
	SelectCount int

	// Closed tracks if Close was called.
	Closed bool

	// TransferError, if set, is returned by Transfer.
	TransferError error

	index int
}

// NewFakeBus creates a FakeBus with the given scripted responses.
func NewFakeBus(responses []byte) *FakeBus {
	return &FakeBus{Responses: responses}
}

// Transfer records the outgoing byte and returns the next scripted response.
func (f *FakeBus) Transfer(b byte) (byte, error) {
	if f.TransferError != nil {
		return 0, f.TransferError
	}
	f.Sent = append(f.Sent, b)
	if f.index < len(f.Responses) {
		r := f.Responses[f.index]
		f.index++
		return r, nil
	}
	return 0xFF, nil
}

// Select marks the bus as selected.
func (f *FakeBus) Select() error {
	f.Selected = true
	f.SelectCount++
	return nil
}

// Deselect marks the bus as deselected.
func (f *FakeBus) Deselect() error {
	f.Selected = false
	return nil
}

// Close marks the bus as closed.
func (f *FakeBus) Close() error {
	f.Closed = true
	return nil
}
