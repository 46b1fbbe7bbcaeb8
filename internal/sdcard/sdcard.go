// Package sdcard implements raw block access to an SD card in SPI mode.
// It speaks the card protocol directly — command frames, response polling,
// data tokens — with no filesystem and no library between it and the bus.
//
// This layer performs no retries: every failure propagates to the caller,
// which decides whether logging stays enabled for the session.
package sdcard

import (
	"errors"
	"fmt"
	"time"

	"github.com/freezerx/freezerd/internal/spi"
)

// BlockSize is the fixed transfer size of every read and write.
const BlockSize = 512

// Errors returned by card operations.
var (
	ErrInitFailed = errors.New("sdcard: initialization failed")
	ErrTimeout    = errors.New("sdcard: device timeout")
	ErrProtocol   = errors.New("sdcard: unexpected response")
)

// SPI-mode command set used by this controller.
const (
	cmdGoIdle      = 0  // CMD0: software reset
	cmdSendIfCond  = 8  // CMD8: voltage check / v2 probe
	cmdReadSingle  = 17 // CMD17: single block read
	cmdWriteSingle = 24 // CMD24: single block write
	cmdAppCmd      = 55 // CMD55: next command is application-specific
	acmdOpCond     = 41 // ACMD41: begin initialization
)

// Pre-computed CRC7 integrity bytes for the fixed-argument init commands.
// Post-init the card ignores CRCs in SPI mode, so a dummy suffices.
const (
	crcGoIdle     = 0x95
	crcSendIfCond = 0x87
	crcDummy      = 0x01
)

const (
	respIdle  = 0x01 // R1: in idle state (expected during init)
	respReady = 0x00 // R1: ready
	tokenData = 0xFE // start-of-data marker for reads and writes

	dataRespMask     = 0x1F
	dataRespAccepted = 0x05

	// responsePolls bounds how many idle bytes we clock while waiting for
	// a response or a data token.
	responsePolls = 10

	// busyTimeout bounds every busy wait on the card.
	busyTimeout = 300 * time.Millisecond

	// initAttempts bounds the CMD55/ACMD41 "begin initialization" rounds.
	initAttempts = 3
)

// Card is an SD card attached to an SPI bus.
type Card struct {
	bus spi.Bus
	now func() time.Time // injectable for tests
}

// New creates a Card on the given bus. The card is unusable until Init.
func New(bus spi.Bus) *Card {
	return &Card{bus: bus, now: time.Now}
}

// Init performs the SPI-mode initialization handshake: wake-up clocks,
// reset, version probe, then a bounded number of initialization polls.
// Any unexpected response fails the handshake; the caller must not retry
// mid-session.
func (c *Card) Init() error {
	// The card needs at least 74 clock cycles with chip-select released
	// before it will accept commands.
	for i := 0; i < 10; i++ {
		if _, err := c.bus.Transfer(0xFF); err != nil {
			return fmt.Errorf("%w: wake-up clocks: %v", ErrInitFailed, err)
		}
	}

	if err := c.bus.Select(); err != nil {
		return fmt.Errorf("%w: %v", ErrInitFailed, err)
	}
	defer c.release()

	resp, err := c.command(cmdGoIdle, 0, crcGoIdle)
	if err != nil {
		return fmt.Errorf("%w: CMD0: %v", ErrInitFailed, err)
	}
	if resp != respIdle {
		return fmt.Errorf("%w: CMD0 response %#x", ErrInitFailed, resp)
	}

	// CMD8 confirms a v2 card; the voltage range itself is not checked.
	resp, err = c.command(cmdSendIfCond, 0x1AA, crcSendIfCond)
	if err != nil {
		return fmt.Errorf("%w: CMD8: %v", ErrInitFailed, err)
	}
	if resp != respIdle {
		return fmt.Errorf("%w: CMD8 response %#x", ErrInitFailed, resp)
	}

	ready := false
	for i := 0; i < initAttempts; i++ {
		resp, err = c.command(cmdAppCmd, 0, crcDummy)
		if err != nil {
			return fmt.Errorf("%w: CMD55: %v", ErrInitFailed, err)
		}
		if resp != respIdle {
			return fmt.Errorf("%w: CMD55 response %#x", ErrInitFailed, resp)
		}

		// ACMD41 with HCS set: initialize in high-capacity mode.
		resp, err = c.command(acmdOpCond, 0x40000000, crcDummy)
		if err != nil {
			return fmt.Errorf("%w: ACMD41: %v", ErrInitFailed, err)
		}
		if resp == respReady {
			ready = true
			break
		}
	}
	if !ready {
		return fmt.Errorf("%w: card not ready after %d attempts", ErrInitFailed, initAttempts)
	}

	return nil
}

// ReadBlock reads the 512-byte block at the given address.
func (c *Card) ReadBlock(addr uint32) ([]byte, error) {
	if err := c.bus.Select(); err != nil {
		return nil, err
	}
	defer c.release()

	resp, err := c.command(cmdReadSingle, addr, crcDummy)
	if err != nil {
		return nil, fmt.Errorf("read block %d: %w", addr, err)
	}
	if resp != respReady {
		return nil, fmt.Errorf("read block %d: %w: response %#x", addr, ErrProtocol, resp)
	}

	// Wait for the start-of-data marker.
	found := false
	for i := 0; i < responsePolls; i++ {
		b, err := c.bus.Transfer(0xFF)
		if err != nil {
			return nil, fmt.Errorf("read block %d: %w", addr, err)
		}
		if b == tokenData {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("read block %d: %w: no data token", addr, ErrTimeout)
	}

	buf := make([]byte, BlockSize)
	for i := range buf {
		b, err := c.bus.Transfer(0xFF)
		if err != nil {
			return nil, fmt.Errorf("read block %d: %w", addr, err)
		}
		buf[i] = b
	}

	// The card appends a 16-bit CRC we do not validate.
	for i := 0; i < 2; i++ {
		if _, err := c.bus.Transfer(0xFF); err != nil {
			return nil, fmt.Errorf("read block %d: %w", addr, err)
		}
	}

	return buf, nil
}

// WriteBlock writes p to the block at the given address. Payloads shorter
// than 512 bytes are zero-padded to a full block.
func (c *Card) WriteBlock(addr uint32, p []byte) error {
	if len(p) > BlockSize {
		return fmt.Errorf("write block %d: payload %d exceeds block size", addr, len(p))
	}

	if err := c.bus.Select(); err != nil {
		return err
	}
	defer c.release()

	resp, err := c.command(cmdWriteSingle, addr, crcDummy)
	if err != nil {
		return fmt.Errorf("write block %d: %w", addr, err)
	}
	if resp != respReady {
		return fmt.Errorf("write block %d: %w: response %#x", addr, ErrProtocol, resp)
	}

	if _, err := c.bus.Transfer(tokenData); err != nil {
		return fmt.Errorf("write block %d: %w", addr, err)
	}
	for i := 0; i < BlockSize; i++ {
		var b byte
		if i < len(p) {
			b = p[i]
		}
		if _, err := c.bus.Transfer(b); err != nil {
			return fmt.Errorf("write block %d: %w", addr, err)
		}
	}
	// Dummy CRC.
	for i := 0; i < 2; i++ {
		if _, err := c.bus.Transfer(0xFF); err != nil {
			return fmt.Errorf("write block %d: %w", addr, err)
		}
	}

	resp, err = c.bus.Transfer(0xFF)
	if err != nil {
		return fmt.Errorf("write block %d: %w", addr, err)
	}
	if resp&dataRespMask != dataRespAccepted {
		return fmt.Errorf("write block %d: %w: data response %#x", addr, ErrProtocol, resp)
	}

	// The card signals busy with zero bytes while programming the block.
	start := c.now()
	for {
		b, err := c.bus.Transfer(0xFF)
		if err != nil {
			return fmt.Errorf("write block %d: %w", addr, err)
		}
		if b != 0x00 {
			break
		}
		if c.now().Sub(start) > busyTimeout {
			return fmt.Errorf("write block %d: %w: busy after write", addr, ErrTimeout)
		}
	}

	return nil
}

// command sends one framed command and returns the card's R1 response.
func (c *Card) command(cmd byte, arg uint32, crc byte) (byte, error) {
	if err := c.waitNotBusy(); err != nil {
		return 0, err
	}

	// Command frame: start+command bits, 32-bit big-endian argument,
	// integrity byte.
	frame := [6]byte{
		0x40 | cmd,
		byte(arg >> 24),
		byte(arg >> 16),
		byte(arg >> 8),
		byte(arg),
		crc,
	}
	for _, b := range frame {
		if _, err := c.bus.Transfer(b); err != nil {
			return 0, err
		}
	}

	return c.response()
}

// response polls for the first non-idle byte, bounded to responsePolls.
func (c *Card) response() (byte, error) {
	for i := 0; i < responsePolls; i++ {
		b, err := c.bus.Transfer(0xFF)
		if err != nil {
			return 0, err
		}
		if b != 0xFF {
			return b, nil
		}
	}
	return 0xFF, fmt.Errorf("%w: no response", ErrTimeout)
}

// waitNotBusy clocks the bus until the card reports idle, bounded by the
// busy timeout.
func (c *Card) waitNotBusy() error {
	start := c.now()
	for {
		b, err := c.bus.Transfer(0xFF)
		if err != nil {
			return err
		}
		if b == 0xFF {
			return nil
		}
		if c.now().Sub(start) > busyTimeout {
			return fmt.Errorf("%w: busy", ErrTimeout)
		}
	}
}

// release deselects the card and clocks one trailing byte, which some
// cards need to release the data line when sharing the bus.
func (c *Card) release() {
	c.bus.Deselect()
	c.bus.Transfer(0xFF)
}
