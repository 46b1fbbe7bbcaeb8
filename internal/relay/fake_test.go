package relay

import (
	"errors"
	"testing"
)

func TestFakeDriverRecordsTransitions(t *testing.T) {
	f := NewFakeDriver()

	if err := f.SetCompressor(true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.SetCompressor(false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.Compressor {
		t.Error("compressor should be off after last call")
	}
	if len(f.Transitions) != 2 || !f.Transitions[0] || f.Transitions[1] {
		t.Errorf("transitions = %v, want [true false]", f.Transitions)
	}
}

func TestFakeDriverFaultLED(t *testing.T) {
	f := NewFakeDriver()

	if err := f.SetFault(true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Fault {
		t.Error("fault LED should be on")
	}
}

func TestFakeDriverError(t *testing.T) {
	f := NewFakeDriver()
	f.SetError = errors.New("simulated error")

	if err := f.SetCompressor(true); err == nil {
		t.Error("expected error to be returned")
	}
	if f.Compressor {
		t.Error("state must not change on error")
	}
}

func TestFakeDriverClose(t *testing.T) {
	f := NewFakeDriver()
	f.SetCompressor(true)

	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
	if f.Compressor {
		t.Error("compressor must drop on Close()")
	}
}
