// Package mqtt provides MQTT publishing with abstraction for testing.
//
// Only state-change and lifecycle events go to the broker; the per-tick
// telemetry stream stays on the local datalog card.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/freezerx/freezerd/internal/engine"
)

// Topic is the MQTT topic for freezer state-change events.
const Topic = "appliance/freezer/controller/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "appliance/freezer/controller/system"

// TopicConfigSet is the MQTT topic for remote configuration commands.
const TopicConfigSet = "appliance/freezer/controller/config/set"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a state-change event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Event represents a control state change.
type Event struct {
	Timestamp    time.Time
	Status       engine.Status
	Previous     engine.Status
	Primary      float64
	Secondary    float64
	CompressorOn bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Freezer FreezerPayload `json:"freezer"`
}

// FreezerPayload contains the state-change details.
type FreezerPayload struct {
	Timestamp    string  `json:"timestamp"`
	State        string  `json:"state"`
	Previous     string  `json:"previous"`
	CabinetTemp  float64 `json:"cabinet_temp"`
	HeadTemp     float64 `json:"head_temp"`
	CompressorOn bool    `json:"compressor_on"`
}

// FormatPayload creates the JSON payload for a state-change event.
func FormatPayload(event Event) ([]byte, error) {
	payload := Payload{
		Freezer: FreezerPayload{
			Timestamp:    event.Timestamp.UTC().Format(time.RFC3339),
			State:        event.Status.String(),
			Previous:     event.Previous.String(),
			CabinetTemp:  event.Primary,
			HeadTemp:     event.Secondary,
			CompressorOn: event.CompressorOn,
		},
	}
	return json.Marshal(payload)
}

// ConfigSetPayload is the wire form of a remote configuration command.
// It replaces the whole parameter set; the daemon validates before
// applying.
type ConfigSetPayload struct {
	TargetTemperature   float32 `json:"target_temperature"`
	HysteresisSeconds   int16   `json:"hysteresis_seconds"`
	DeadTimeMinutes     int16   `json:"dead_time_minutes"`
	MaxRunTimeMinutes   int16   `json:"max_runtime_minutes"`
	OverheatTemperature float32 `json:"overheat_temperature"`
	StartupDelayMinutes int16   `json:"startup_delay_minutes"`
}

// Config converts the payload to engine parameters.
func (p ConfigSetPayload) Config() engine.Config {
	return engine.Config{
		TargetTemperature:   p.TargetTemperature,
		HysteresisSeconds:   p.HysteresisSeconds,
		DeadTimeMinutes:     p.DeadTimeMinutes,
		MaxRunTimeMinutes:   p.MaxRunTimeMinutes,
		OverheatTemperature: p.OverheatTemperature,
		StartupDelayMinutes: p.StartupDelayMinutes,
	}
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
