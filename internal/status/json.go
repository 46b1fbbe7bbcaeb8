package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	State         string      `json:"state"`
	Primary       float64     `json:"primary_temp"`
	Secondary     float64     `json:"secondary_temp"`
	CompressorOn  bool        `json:"compressor_on"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Datalog       DatalogJSON `json:"datalog"`
	Control       ControlJSON `json:"control"`
	Config        ConfigJSON  `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// DatalogJSON is the JSON representation of datalog health.
type DatalogJSON struct {
	Enabled  bool   `json:"enabled"`
	Appended uint64 `json:"appended"`
	Failed   uint64 `json:"failed"`
}

// ControlJSON is the JSON representation of the active control parameters.
type ControlJSON struct {
	TargetTemperature   float32 `json:"target_temperature"`
	HysteresisSeconds   int16   `json:"hysteresis_seconds"`
	DeadTimeMinutes     int16   `json:"dead_time_minutes"`
	MaxRunTimeMinutes   int16   `json:"max_runtime_minutes"`
	OverheatTemperature float32 `json:"overheat_temperature"`
	StartupDelayMinutes int16   `json:"startup_delay_minutes"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs     int64  `json:"tick_ms"`
	Broker     string `json:"broker"`
	HTTPPort   string `json:"http_port"`
	ConfigPath string `json:"config_path"`
}

func buildInner(snap Snapshot) StatusInner {
	return StatusInner{
		State:         snap.Output.Status.String(),
		Primary:       snap.Output.Primary,
		Secondary:     snap.Output.Secondary,
		CompressorOn:  snap.Output.ActualOn,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Datalog: DatalogJSON{
			Enabled:  snap.LoggingEnabled,
			Appended: snap.Log.Appended,
			Failed:   snap.Log.Failed,
		},
		Control: ControlJSON{
			TargetTemperature:   snap.Control.TargetTemperature,
			HysteresisSeconds:   snap.Control.HysteresisSeconds,
			DeadTimeMinutes:     snap.Control.DeadTimeMinutes,
			MaxRunTimeMinutes:   snap.Control.MaxRunTimeMinutes,
			OverheatTemperature: snap.Control.OverheatTemperature,
			StartupDelayMinutes: snap.Control.StartupDelayMinutes,
		},
		Config: ConfigJSON{
			TickMs:     snap.Config.TickMs,
			Broker:     snap.Config.Broker,
			HTTPPort:   snap.Config.HTTPPort,
			ConfigPath: snap.Config.ConfigPath,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
