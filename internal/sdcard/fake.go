package sdcard

import "encoding/binary"

// FakeCard simulates an SD card at the bus level: it implements spi.Bus and
// answers the same command frames, tokens and busy signalling the real card
// does, backed by an in-memory block store. Knobs let tests script init
// rejection, slow initialization, write rejection and a wedged card.
type FakeCard struct {
	// Blocks holds the card contents, keyed by block address.
	Blocks map[uint32][]byte

	// OpCondPolls is how many ACMD41 rounds report "still initializing"
	// before the card is ready.
	OpCondPolls int

	// RejectCmd0 and RejectCmd8 make the respective init steps answer with
	// an illegal-command response.
	RejectCmd0 bool
	RejectCmd8 bool

	// RejectWrite makes the data-response token report a CRC rejection.
	RejectWrite bool

	// WedgeAfterWrite makes the card stay busy forever after accepting
	// write data.
	WedgeAfterWrite bool

	// BusyBytes is how many busy (0x00) bytes the card emits after a
	// write before reporting ready again.
	BusyBytes int

	// Selected and Closed track bus housekeeping for assertions.
	Selected bool
	Closed   bool

	out       []byte // pending output, drained one byte per transfer
	frame     []byte // partial command frame being collected
	appCmd    bool   // previous command was CMD55
	wedged    bool   // emit busy forever
	receiving bool   // collecting write payload
	awaiting  bool   // waiting for the write data token
	writeAddr uint32
	writeBuf  []byte
}

// NewFakeCard creates an empty, well-behaved fake card.
func NewFakeCard() *FakeCard {
	return &FakeCard{Blocks: make(map[uint32][]byte)}
}

// Transfer emits the next pending output byte and feeds b into the card's
// protocol state machine. Responses queued while processing b appear on
// subsequent transfers, matching the real card's turnaround.
func (f *FakeCard) Transfer(b byte) (byte, error) {
	out := f.pop()
	f.process(b)
	return out, nil
}

// Select records chip-select assertion.
func (f *FakeCard) Select() error {
	f.Selected = true
	return nil
}

// Deselect records chip-select release.
func (f *FakeCard) Deselect() error {
	f.Selected = false
	return nil
}

// Close marks the card as closed.
func (f *FakeCard) Close() error {
	f.Closed = true
	return nil
}

func (f *FakeCard) pop() byte {
	if len(f.out) > 0 {
		b := f.out[0]
		f.out = f.out[1:]
		return b
	}
	if f.wedged {
		return 0x00
	}
	return 0xFF
}

func (f *FakeCard) process(b byte) {
	switch {
	case f.receiving:
		f.writeBuf = append(f.writeBuf, b)
		if len(f.writeBuf) == BlockSize+2 { // payload + CRC
			f.receiving = false
			f.finishWrite()
		}
		return

	case f.awaiting:
		if b == tokenData {
			f.awaiting = false
			f.receiving = true
			f.writeBuf = f.writeBuf[:0]
		}
		return

	case len(f.frame) > 0:
		f.frame = append(f.frame, b)
		if len(f.frame) == 6 {
			f.handleCommand()
			f.frame = f.frame[:0]
		}
		return

	case b&0xC0 == 0x40:
		f.frame = append(f.frame, b)
	}
}

func (f *FakeCard) handleCommand() {
	cmd := f.frame[0] & 0x3F
	arg := binary.BigEndian.Uint32(f.frame[1:5])
	app := f.appCmd
	f.appCmd = false

	// One idle byte of command turnaround before every response.
	respond := func(bytes ...byte) {
		f.out = append(f.out, 0xFF)
		f.out = append(f.out, bytes...)
	}

	switch {
	case cmd == cmdGoIdle:
		if f.RejectCmd0 {
			respond(0x05)
			return
		}
		respond(respIdle)

	case cmd == cmdSendIfCond:
		if f.RejectCmd8 {
			respond(0x05)
			return
		}
		respond(respIdle)

	case cmd == cmdAppCmd:
		f.appCmd = true
		respond(respIdle)

	case cmd == acmdOpCond && app:
		if f.OpCondPolls > 0 {
			f.OpCondPolls--
			respond(respIdle)
			return
		}
		respond(respReady)

	case cmd == cmdReadSingle:
		block, ok := f.Blocks[arg]
		if !ok {
			block = make([]byte, BlockSize)
		}
		respond(respReady, 0xFF, tokenData)
		f.out = append(f.out, block...)
		f.out = append(f.out, 0xAA, 0xBB) // CRC, unchecked by the host

	case cmd == cmdWriteSingle:
		f.writeAddr = arg
		f.awaiting = true
		respond(respReady)

	default:
		respond(0x05) // illegal command
	}
}

func (f *FakeCard) finishWrite() {
	if f.RejectWrite {
		f.out = append(f.out, 0x0B) // CRC-error data response
		return
	}

	block := make([]byte, BlockSize)
	copy(block, f.writeBuf[:BlockSize])
	f.Blocks[f.writeAddr] = block

	f.out = append(f.out, dataRespAccepted)
	if f.WedgeAfterWrite {
		f.wedged = true
		return
	}
	for i := 0; i < f.BusyBytes; i++ {
		f.out = append(f.out, 0x00)
	}
}
