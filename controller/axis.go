package controller

import (
	"sync"
)

// Driver emits the physical drive signal for one servo
type Driver interface {
	// SetPulse starts emitting pulses of the given width in microseconds, immediately
	SetPulse(us int16) error
	// Release stops emitting pulses altogether
	Release() error
}

// AxisState is a snapshot of the last command issued to an axis
type AxisState struct {
	Preset    Preset    `json:"preset"`
	Direction Direction `json:"direction"`
	Pulse     int16     `json:"pulse"`
	Released  bool      `json:"released"`
}

// Axis drives one servo by preset. It has no notion of position or "done" because a
// continuously-rotating servo reports nothing back
type Axis struct {
	driver  Driver
	profile Profile

	mtx   sync.Mutex
	state AxisState
}

// NewAxis wraps a Driver with its calibration
func NewAxis(driver Driver, profile Profile) *Axis {
	return &Axis{
		driver:  driver,
		profile: profile,
		state: AxisState{
			Preset:   PresetStop,
			Pulse:    profile.Pulse(PresetStop),
			Released: true,
		},
	}
}

// Drive sets the speed and direction immediately. Calling it again with the same preset re-issues the same pulse
func (a *Axis) Drive(preset Preset) error {
	us := a.profile.Pulse(preset)

	err := a.driver.SetPulse(us)
	if err != nil {
		return newError("axis.drive", KindHardware, err)
	}

	a.mtx.Lock()
	a.state.Preset = preset
	a.state.Pulse = us
	a.state.Released = false
	if dir, moving := preset.Direction(); moving {
		a.state.Direction = dir
	}
	a.mtx.Unlock()

	return nil
}

// Stop is shorthand for Drive(PresetStop)
func (a *Axis) Stop() error {
	return a.Drive(PresetStop)
}

// Release stops emitting pulses. A released continuous servo coasts; a released positional servo holds nothing
func (a *Axis) Release() error {
	err := a.driver.Release()
	if err != nil {
		return newError("axis.release", KindHardware, err)
	}

	a.mtx.Lock()
	a.state.Preset = PresetStop
	a.state.Pulse = 0
	a.state.Released = true
	a.mtx.Unlock()

	return nil
}

// State returns the last commanded state
func (a *Axis) State() AxisState {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return a.state
}

// Direction is the direction of the last moving command
func (a *Axis) Direction() Direction {
	return a.State().Direction
}

// Stopped reports whether the axis is not being driven
func (a *Axis) Stopped() bool {
	s := a.State()
	return s.Released || s.Preset == PresetStop
}

// Supports reports whether the axis is calibrated for preset
func (a *Axis) Supports(preset Preset) bool {
	return a.profile.Has(preset)
}

func (a *Axis) Kind() AxisKind {
	return a.profile.Kind()
}

func (a *Axis) Name() string {
	return a.profile.Name()
}

// setDirection overrides the tracked direction without issuing a command
func (a *Axis) setDirection(d Direction) {
	a.mtx.Lock()
	a.state.Direction = d
	a.mtx.Unlock()
}
