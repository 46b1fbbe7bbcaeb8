package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/freezerx/freezerd/internal/engine"
)

func TestFormatPayload(t *testing.T) {
	ts := time.Date(2026, 2, 3, 12, 30, 0, 0, time.UTC)
	event := Event{
		Timestamp:    ts,
		Status:       engine.StatusCooling,
		Previous:     engine.StatusWithinTarget,
		Primary:      -16.4,
		Secondary:    33.2,
		CompressorOn: true,
	}

	data, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("FormatPayload: %v", err)
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if p.Freezer.Timestamp != "2026-02-03T12:30:00Z" {
		t.Errorf("timestamp: got %q", p.Freezer.Timestamp)
	}
	if p.Freezer.State != "COOLING" {
		t.Errorf("state: got %q, want COOLING", p.Freezer.State)
	}
	if p.Freezer.Previous != "WITHIN_TARGET" {
		t.Errorf("previous: got %q, want WITHIN_TARGET", p.Freezer.Previous)
	}
	if p.Freezer.CabinetTemp != -16.4 {
		t.Errorf("cabinet_temp: got %v, want -16.4", p.Freezer.CabinetTemp)
	}
	if !p.Freezer.CompressorOn {
		t.Error("expected compressor_on=true")
	}
}

func TestFormatSystemPayload(t *testing.T) {
	ts := time.Date(2026, 2, 3, 12, 30, 0, 0, time.UTC)
	event := SystemEvent{
		Timestamp: ts,
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	data, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("FormatSystemPayload: %v", err)
	}

	var p SystemPayload
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if p.System.Event != "SHUTDOWN" {
		t.Errorf("event: got %q, want SHUTDOWN", p.System.Event)
	}
	if p.System.Reason != "SIGTERM" {
		t.Errorf("reason: got %q, want SIGTERM", p.System.Reason)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"state":"COOLING"}}`)
	event := SystemEvent{
		Timestamp:  time.Now(),
		Event:      "STARTUP",
		RawPayload: raw,
	}

	data, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("FormatSystemPayload: %v", err)
	}
	if string(data) != string(raw) {
		t.Errorf("raw payload was not passed through: %s", data)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Now(),
		Event:     "STARTUP",
	}

	data, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	system := raw["system"].(map[string]interface{})
	if _, exists := system["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
}

func TestConfigSetPayloadDecode(t *testing.T) {
	raw := []byte(`{
		"target_temperature": -20,
		"hysteresis_seconds": 90,
		"dead_time_minutes": 8,
		"max_runtime_minutes": 180,
		"overheat_temperature": 55,
		"startup_delay_minutes": 3
	}`)

	var p ConfigSetPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	cfg := p.Config()
	if cfg.TargetTemperature != -20 {
		t.Errorf("target: got %v, want -20", cfg.TargetTemperature)
	}
	if cfg.HysteresisSeconds != 90 {
		t.Errorf("hysteresis: got %v, want 90", cfg.HysteresisSeconds)
	}
	if cfg.StartupDelayMinutes != 3 {
		t.Errorf("startup delay: got %v, want 3", cfg.StartupDelayMinutes)
	}
}

func TestFakePublisherRecords(t *testing.T) {
	f := NewFakePublisher()

	err := f.Publish(Event{
		Timestamp: time.Now(),
		Status:    engine.StatusDeadTime,
		Previous:  engine.StatusWithinTarget,
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(f.Events) != 1 {
		t.Fatalf("events: got %d, want 1", len(f.Events))
	}
	if f.Events[0].Status != engine.StatusDeadTime {
		t.Errorf("status: got %v, want dead time", f.Events[0].Status)
	}
	if len(f.Payloads) != 1 {
		t.Errorf("payloads: got %d, want 1", len(f.Payloads))
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("simulated error")

	if err := f.Publish(Event{}); err == nil {
		t.Error("expected error")
	}
	if len(f.Events) != 0 {
		t.Error("no event should be recorded on error")
	}
}
