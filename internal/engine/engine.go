package engine

const msPerSecond = 1000
const msPerMinute = 60 * 1000

// Sensor plausibility limits. The primary sensor must read physically
// plausible values in both directions. The secondary sensor only guards
// overheat, so a disconnected probe (which reads far below range) is
// tolerated; a shorted one (which reads far above) is not.
const (
	minPlausibleTemp = -100.0
	maxPlausibleTemp = 100.0
)

// Evaluate runs one control tick: it decides the next compressor command
// from the configuration, the sensor reading, the current millisecond clock
// and the actuation history, mutating h in place.
func Evaluate(cfg Config, r Reading, now uint32, h *History) Output {
	out := Output{Primary: r.Primary, Secondary: r.Secondary}

	if h.Faulted || sensorFault(r) {
		h.Faulted = true
		setCompressor(false, now, h)
		out.Status = StatusFault
		return finish(out, h)
	}

	if !h.StartupDelayOver {
		// Latched into a flag so a clock wrap after ~49 days cannot
		// re-trigger the delay.
		if now >= uint32(cfg.StartupDelayMinutes)*msPerMinute {
			h.StartupDelayOver = true
		}
		setCompressor(false, now, h)
		out.Status = StatusStartupDelay
		return finish(out, h)
	}

	// Base decision: track the target temperature through the hysteresis hold.
	if r.Primary <= float64(cfg.TargetTemperature) {
		if h.ReachedTargetAt == 0 {
			h.ReachedTargetAt = now
		}
		if now-h.ReachedTargetAt >= uint32(cfg.HysteresisSeconds)*msPerSecond {
			out.TargetOn = false
			out.Status = StatusWithinTarget
		} else {
			out.TargetOn = true
			out.Status = StatusCooling
		}
	} else {
		h.ReachedTargetAt = 0
		out.TargetOn = true
		out.Status = StatusCooling
	}

	// Overrides can only veto turning the compressor on, never force it on.
	// Precedence: overheat, then max runtime, then dead time. First match wins.
	override := false
	if out.TargetOn {
		if r.Secondary >= float64(cfg.OverheatTemperature) {
			out.Status = StatusOverheat
			override = true
		} else if exceededMaxRuntime(cfg, now, h) {
			out.Status = StatusMaxRuntime
			override = true
		} else if !h.ActualOn && !deadTimeElapsed(cfg, now, h) {
			out.Status = StatusDeadTime
			override = true
		}
	}

	setCompressor(out.TargetOn && !override, now, h)
	out.ActualOn = h.ActualOn
	return finish(out, h)
}

func sensorFault(r Reading) bool {
	if r.Primary < minPlausibleTemp || r.Primary > maxPlausibleTemp {
		return true
	}
	return r.Secondary > maxPlausibleTemp
}

// exceededMaxRuntime implements the sticky max-runtime hold: once tripped,
// the hold persists until dead time (measured from the off-transition the
// hold itself caused) has elapsed.
func exceededMaxRuntime(cfg Config, now uint32, h *History) bool {
	if h.ExceededMaxRuntimeAt != 0 {
		if deadTimeElapsed(cfg, now, h) {
			h.ExceededMaxRuntimeAt = 0
			return false
		}
		return true
	}

	if h.ActualOn && now-h.CompressorOnAt >= uint32(cfg.MaxRunTimeMinutes)*msPerMinute {
		h.ExceededMaxRuntimeAt = now
		return true
	}

	return false
}

// deadTimeElapsed reports whether the compressor has been off long enough to
// restart. An unset off-timestamp means dead time is already satisfied.
func deadTimeElapsed(cfg Config, now uint32, h *History) bool {
	if h.CompressorOffAt == 0 {
		return true
	}
	return now-h.CompressorOffAt >= uint32(cfg.DeadTimeMinutes)*msPerMinute
}

// setCompressor records an actuation transition. Turning on clears the
// off-timestamp and sets the on-timestamp; turning off does the reverse.
func setCompressor(on bool, now uint32, h *History) {
	if on == h.ActualOn {
		return
	}
	if on {
		h.CompressorOnAt = now
		h.CompressorOffAt = 0
	} else {
		h.CompressorOffAt = now
		h.CompressorOnAt = 0
	}
	h.ActualOn = on
}

func finish(out Output, h *History) Output {
	out.Changed = out.Status != h.PrevStatus
	h.PrevStatus = out.Status
	return out
}
