// Package configstore persists the control parameters across restarts.
//
// The store mirrors how the controller keeps settings in non-volatile
// memory: a version tag guards the layout, and anything unversioned,
// missing, or out of range falls back to factory defaults rather than
// running the compressor on garbage.
package configstore

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/freezerx/freezerd/internal/engine"
)

// Version tags the stored layout. Bump it when the parameter set
// changes; old files are then discarded and rewritten with defaults.
const Version = "F002"

// Parameter bounds enforced on load and on every update.
const (
	MinTargetTemperature = -22
	MaxTargetTemperature = -10

	MinHysteresisSeconds = 5
	MaxHysteresisSeconds = 350

	MinDeadTimeMinutes = 2
	MaxDeadTimeMinutes = 20

	MinMaxRunTimeMinutes = 60
	MaxMaxRunTimeMinutes = 600

	MinOverheatTemperature = 30
	MaxOverheatTemperature = 60

	MinStartupDelayMinutes = 0
	MaxStartupDelayMinutes = 20
)

// ErrOutOfRange reports a parameter outside its allowed bounds.
var ErrOutOfRange = errors.New("configstore: parameter out of range")

// Store reads and writes the control configuration as a YAML file.
type Store struct {
	path string
	v    *viper.Viper
	log  *logrus.Entry
}

// New creates a store backed by the given file path.
func New(path string, log *logrus.Entry) *Store {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	return &Store{path: path, v: v, log: log}
}

// Load returns the persisted configuration. A missing file, version
// mismatch, or out-of-range parameter resets the store to defaults and
// persists them, so the daemon always starts with a safe configuration.
func (s *Store) Load() (engine.Config, error) {
	if err := s.v.ReadInConfig(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.log.WithField("path", s.path).Info("no stored config, writing defaults")
			return s.reset()
		}
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return s.reset()
		}
		s.log.WithError(err).Warn("unreadable config, resetting to defaults")
		return s.reset()
	}

	if got := s.v.GetString("config_version"); got != Version {
		s.log.WithFields(logrus.Fields{
			"found": got,
			"want":  Version,
		}).Warn("config version mismatch, resetting to defaults")
		return s.reset()
	}

	cfg := engine.Config{
		TargetTemperature:   float32(s.v.GetFloat64("target_temperature")),
		HysteresisSeconds:   int16(s.v.GetInt("hysteresis_seconds")),
		DeadTimeMinutes:     int16(s.v.GetInt("dead_time_minutes")),
		MaxRunTimeMinutes:   int16(s.v.GetInt("max_runtime_minutes")),
		OverheatTemperature: float32(s.v.GetFloat64("overheat_temperature")),
		StartupDelayMinutes: int16(s.v.GetInt("startup_delay_minutes")),
	}

	if err := Validate(cfg); err != nil {
		s.log.WithError(err).Warn("stored config out of range, resetting to defaults")
		return s.reset()
	}

	return cfg, nil
}

// Save validates and persists a configuration.
func (s *Store) Save(cfg engine.Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	s.v.Set("config_version", Version)
	s.v.Set("target_temperature", cfg.TargetTemperature)
	s.v.Set("hysteresis_seconds", int(cfg.HysteresisSeconds))
	s.v.Set("dead_time_minutes", int(cfg.DeadTimeMinutes))
	s.v.Set("max_runtime_minutes", int(cfg.MaxRunTimeMinutes))
	s.v.Set("overheat_temperature", cfg.OverheatTemperature)
	s.v.Set("startup_delay_minutes", int(cfg.StartupDelayMinutes))

	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write config %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) reset() (engine.Config, error) {
	cfg := engine.DefaultConfig()
	if err := s.Save(cfg); err != nil {
		return cfg, fmt.Errorf("persist defaults: %w", err)
	}
	return cfg, nil
}

// Validate checks every parameter against its bounds.
func Validate(cfg engine.Config) error {
	checks := []struct {
		name     string
		value    float64
		min, max float64
	}{
		{"target_temperature", float64(cfg.TargetTemperature), MinTargetTemperature, MaxTargetTemperature},
		{"hysteresis_seconds", float64(cfg.HysteresisSeconds), MinHysteresisSeconds, MaxHysteresisSeconds},
		{"dead_time_minutes", float64(cfg.DeadTimeMinutes), MinDeadTimeMinutes, MaxDeadTimeMinutes},
		{"max_runtime_minutes", float64(cfg.MaxRunTimeMinutes), MinMaxRunTimeMinutes, MaxMaxRunTimeMinutes},
		{"overheat_temperature", float64(cfg.OverheatTemperature), MinOverheatTemperature, MaxOverheatTemperature},
		{"startup_delay_minutes", float64(cfg.StartupDelayMinutes), MinStartupDelayMinutes, MaxStartupDelayMinutes},
	}
	for _, c := range checks {
		if c.value < c.min || c.value > c.max {
			return fmt.Errorf("%w: %s = %g, allowed %g..%g", ErrOutOfRange, c.name, c.value, c.min, c.max)
		}
	}
	return nil
}
