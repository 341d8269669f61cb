package controller

import (
	"errors"
	"fmt"
	"time"

	trashseparator "github.com/weedkat/trash-separator"
)

// ServoConfig has the calibrated pulse widths for one servo
type ServoConfig struct {
	Kind    AxisKind
	Presets map[Preset]int16
}

// CalibrationConfig has the timing values that depend on the mechanism and motor specifics
type CalibrationConfig struct {
	// StuckTime is how long the top axis may take to reach home before it is considered jammed
	StuckTime    time.Duration
	PollInterval time.Duration

	SoftStopSettle       time.Duration
	SoftStopCounterPulse time.Duration
	SoftStopTail         time.Duration
	HardStopSettle       time.Duration

	// TopSpinTime is how long the top axis spins before the home sensor is watched again,
	// so it has left the sensor by the time polling starts
	TopSpinTime      time.Duration
	BottomTravelTime time.Duration
	FrontHoldDelay   time.Duration

	UnjamReverse time.Duration
	UnjamBurst   time.Duration

	MaxRecoveries   int
	MaxHomingPasses int
}

// Config is everything needed to build a Controller
type Config struct {
	Top         ServoConfig
	Bottom      ServoConfig
	Calibration CalibrationConfig
	Routes      map[string]trashseparator.Maneuver
}

// DefaultTopServo is the calibration of the continuously-rotating gate servo at 50 Hz
func DefaultTopServo() ServoConfig {
	return ServoConfig{
		Kind: AxisContinuous,
		Presets: map[Preset]int16{
			PresetFastCCW:     200,
			PresetSlowCCW:     1240,
			PresetVerySlowCCW: 1356,
			PresetStop:        1400,
			PresetVerySlowCW:  1486,
			PresetSlowCW:      1560,
			PresetFastCW:      2400,
		},
	}
}

// DefaultBottomServo is the calibration of the positional platform servo at 50 Hz
func DefaultBottomServo() ServoConfig {
	return ServoConfig{
		Kind: AxisPositional,
		Presets: map[Preset]int16{
			PresetFastCW:  560,
			PresetStop:    1350,
			PresetFastCCW: 2098,
		},
	}
}

// DefaultCalibration returns the timing the prototype was tuned with
func DefaultCalibration() CalibrationConfig {
	return CalibrationConfig{
		StuckTime:            5 * time.Second,
		PollInterval:         10 * time.Millisecond,
		SoftStopSettle:       70 * time.Millisecond,
		SoftStopCounterPulse: 20 * time.Millisecond,
		SoftStopTail:         10 * time.Millisecond,
		HardStopSettle:       100 * time.Millisecond,
		TopSpinTime:          200 * time.Millisecond,
		BottomTravelTime:     2 * time.Second,
		FrontHoldDelay:       1 * time.Second,
		UnjamReverse:         400 * time.Millisecond,
		UnjamBurst:           1 * time.Second,
		MaxRecoveries:        1,
		MaxHomingPasses:      10,
	}
}

// DefaultRoutes maps the classifier's categories to bins
func DefaultRoutes() map[string]trashseparator.Maneuver {
	return map[string]trashseparator.Maneuver{
		"B3":         trashseparator.ManeuverFront,
		"Daur Ulang": trashseparator.ManeuverFrontRight,
		"Organik":    trashseparator.ManeuverBackRight,
		"Residu":     trashseparator.ManeuverBackLeft,
		"Guna Ulang": trashseparator.ManeuverFrontLeft,
	}
}

// DefaultConfig returns the calibration defaults for the whole mechanism
func DefaultConfig() Config {
	return Config{
		Top:         DefaultTopServo(),
		Bottom:      DefaultBottomServo(),
		Calibration: DefaultCalibration(),
		Routes:      DefaultRoutes(),
	}
}

// Validate checks the calibration values. It does not check the preset tables, NewProfile does that
func (c CalibrationConfig) Validate() error {
	var errs []error

	positive := map[string]time.Duration{
		"stuck_time":       c.StuckTime,
		"poll_interval":    c.PollInterval,
		"hard_stop_settle": c.HardStopSettle,
		"bottom_travel":    c.BottomTravelTime,
		"unjam_burst":      c.UnjamBurst,
	}
	for name, d := range positive {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}

	nonNegative := map[string]time.Duration{
		"soft_stop_settle":        c.SoftStopSettle,
		"soft_stop_counter_pulse": c.SoftStopCounterPulse,
		"soft_stop_tail":          c.SoftStopTail,
		"top_spin_time":           c.TopSpinTime,
		"front_hold_delay":        c.FrontHoldDelay,
		"unjam_reverse":           c.UnjamReverse,
	}
	for name, d := range nonNegative {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %s", name, d))
		}
	}

	if c.PollInterval > c.StuckTime {
		errs = append(errs, fmt.Errorf("poll_interval %s exceeds stuck_time %s", c.PollInterval, c.StuckTime))
	}
	if c.MaxRecoveries < 0 {
		errs = append(errs, fmt.Errorf("max_recoveries must not be negative, got %d", c.MaxRecoveries))
	}
	if c.MaxHomingPasses < 1 {
		errs = append(errs, fmt.Errorf("max_homing_passes must be at least 1, got %d", c.MaxHomingPasses))
	}

	if len(errs) > 0 {
		return newError("controller.validate_calibration", KindConfiguration, errors.Join(errs...))
	}
	return nil
}
