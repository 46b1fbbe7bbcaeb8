package datalog

import "fmt"

// FakeDevice is an in-memory BlockDevice for tests. Fault injection knobs
// let tests break specific reads and writes, or cut power after a chosen
// number of successful writes to simulate a crash mid-append.
type FakeDevice struct {
	Blocks map[uint32][]byte

	// FailRead and FailWrite make operations on the given address error.
	FailRead  map[uint32]bool
	FailWrite map[uint32]bool

	// DieAfterWrites, when > 0, counts down on each successful write and
	// fails every write once it reaches zero.
	DieAfterWrites int
	dead           bool

	// Writes records every successful write address in order.
	Writes []uint32
}

// NewFakeDevice returns an empty device. Unwritten blocks read as zeroes,
// like a freshly formatted card.
func NewFakeDevice() *FakeDevice {
	return &FakeDevice{
		Blocks:    make(map[uint32][]byte),
		FailRead:  make(map[uint32]bool),
		FailWrite: make(map[uint32]bool),
	}
}

func (d *FakeDevice) ReadBlock(addr uint32) ([]byte, error) {
	if d.FailRead[addr] {
		return nil, fmt.Errorf("injected read fault at block %d", addr)
	}
	b, ok := d.Blocks[addr]
	if !ok {
		return make([]byte, 512), nil
	}
	out := make([]byte, 512)
	copy(out, b)
	return out, nil
}

func (d *FakeDevice) WriteBlock(addr uint32, p []byte) error {
	if d.dead || d.FailWrite[addr] {
		return fmt.Errorf("injected write fault at block %d", addr)
	}
	if d.DieAfterWrites > 0 {
		d.DieAfterWrites--
		if d.DieAfterWrites == 0 {
			d.dead = true
		}
	}
	b := make([]byte, len(p))
	copy(b, p)
	d.Blocks[addr] = b
	d.Writes = append(d.Writes, addr)
	return nil
}

// Corrupt flips a byte in a stored block, invalidating its checksum.
func (d *FakeDevice) Corrupt(addr uint32) {
	b, ok := d.Blocks[addr]
	if !ok {
		b = make([]byte, 512)
	}
	b[0] ^= 0xFF
	d.Blocks[addr] = b
}
