// Package status provides a thread-safe status tracker for the freezerd
// daemon. It is read by HTTP handlers and the MQTT event publisher.
package status

import (
	"sync"
	"time"

	"github.com/freezerx/freezerd/internal/engine"
)

// Config contains daemon configuration for display.
type Config struct {
	TickMs     int64
	Broker     string
	HTTPPort   string
	ConfigPath string
}

// LogStats counts datalog activity since startup.
type LogStats struct {
	Appended uint64
	Failed   uint64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Output         engine.Output
	Control        engine.Config
	LoggingEnabled bool
	Log            LogStats
	StartTime      time.Time
	Now            time.Time
	MQTTConnected  bool
	Config         Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			Output:    engine.Output{Status: engine.StatusUnknown},
		},
	}
}

// Update sets the latest control decision. Called from runLoop on every
// tick.
func (t *Tracker) Update(out engine.Output) {
	t.mu.Lock()
	t.snap.Output = out
	t.mu.Unlock()
}

// SetControl sets the active control parameters.
func (t *Tracker) SetControl(cfg engine.Config) {
	t.mu.Lock()
	t.snap.Control = cfg
	t.mu.Unlock()
}

// SetLoggingEnabled records whether the datalog card initialized.
func (t *Tracker) SetLoggingEnabled(enabled bool) {
	t.mu.Lock()
	t.snap.LoggingEnabled = enabled
	t.mu.Unlock()
}

// CountAppend bumps the datalog counters.
func (t *Tracker) CountAppend(ok bool) {
	t.mu.Lock()
	if ok {
		t.snap.Log.Appended++
	} else {
		t.snap.Log.Failed++
	}
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
