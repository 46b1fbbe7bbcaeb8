// Package engine contains the pure thermal-control decision logic.
// This package has NO external dependencies (no GPIO, SPI, OS, or time.Sleep).
// Time is a uint32 millisecond counter injected by the caller; elapsed
// comparisons use unsigned subtraction and so tolerate a single wrap of the
// counter (about 49.7 days). Spans covering more than one wrap are out of
// scope for this device.
package engine

// Config is the persisted controller configuration, refreshed at most once
// per tick and treated as read-only input by the engine.
type Config struct {
	TargetTemperature   float32 // degrees Celsius
	HysteresisSeconds   int16   // hold after reaching target before turning off
	DeadTimeMinutes     int16   // minimum off-duration before a restart
	MaxRunTimeMinutes   int16   // continuous runtime limit
	OverheatTemperature float32 // compressor-body cutoff, degrees Celsius
	StartupDelayMinutes int16   // hold-off after power-up
}

// DefaultConfig returns the factory configuration.
func DefaultConfig() Config {
	return Config{
		TargetTemperature:   -18.0,
		HysteresisSeconds:   60,
		DeadTimeMinutes:     5,
		MaxRunTimeMinutes:   300,
		OverheatTemperature: 45.0,
		StartupDelayMinutes: 2,
	}
}

// Reading is one pair of averaged temperatures, supplied once per tick.
type Reading struct {
	Primary   float64 // evaporator sensor, degrees Celsius
	Secondary float64 // compressor-body sensor, degrees Celsius
}

// Status is the controller status after a tick.
type Status uint8

// Status codes match the on-card record layout and must not be renumbered.
const (
	StatusUnknown      Status = 0
	StatusCooling      Status = 1
	StatusWithinTarget Status = 2
	StatusDeadTime     Status = 3
	StatusMaxRuntime   Status = 4
	StatusStartupDelay Status = 5
	StatusOverheat     Status = 6
	StatusFault        Status = 7
)

var statusStrings = map[Status]string{
	StatusUnknown:      "UNKNOWN",
	StatusCooling:      "COOLING",
	StatusWithinTarget: "WITHIN_TARGET",
	StatusDeadTime:     "DEAD_TIME",
	StatusMaxRuntime:   "MAX_RUNTIME",
	StatusStartupDelay: "STARTUP_DELAY",
	StatusOverheat:     "OVERHEAT",
	StatusFault:        "FAULT",
}

func (s Status) String() string {
	if str, ok := statusStrings[s]; ok {
		return str
	}
	return "UNKNOWN"
}

// Output is the engine decision for one tick.
type Output struct {
	Primary   float64
	Secondary float64
	TargetOn  bool // what the base decision wanted
	ActualOn  bool // what the compressor was actually set to
	Status    Status
	Changed   bool // status differs from the previous tick
}

// History is the engine's actuation memory, owned and mutated only by
// Evaluate. Timestamps use the zero value as the "unset" sentinel.
type History struct {
	CompressorOnAt       uint32 // when the compressor last turned on
	CompressorOffAt      uint32 // when the compressor last turned off
	ReachedTargetAt      uint32 // when the primary temp first reached target
	ExceededMaxRuntimeAt uint32 // set while the max-runtime hold is active

	// StartupDelayOver latches permanently once the delay has been observed
	// elapsed, so a wrapped clock can never re-enter StartupDelay.
	StartupDelayOver bool

	// Faulted latches permanently; recovery is an external restart.
	Faulted bool

	ActualOn bool // last actuated relay state

	// PrevStatus is the previously emitted status, used only for
	// change-detection by external renderers.
	PrevStatus Status
}
