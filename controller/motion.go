package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type bottomPosition int

const (
	bottomUnknown bottomPosition = iota
	bottomDefault
	bottomClockwise
	bottomCounterClockwise
)

func (b bottomPosition) String() string {
	switch b {
	case bottomDefault:
		return "default"
	case bottomClockwise:
		return "clockwise"
	case bottomCounterClockwise:
		return "counter_clockwise"
	default:
		return "unknown"
	}
}

// Motion holds the timed motion primitives. Every suspension point is a clock sleep
// or the home sensor poll, and every poll is bounded by StuckTime
type Motion struct {
	top    *Axis
	bottom *Axis
	sensor HomeSensor
	clock  Clock
	cal    CalibrationConfig
	logger *slog.Logger

	// bottomAt is only touched by the bottom-axis path of a fork-join
	mtx      sync.Mutex
	bottomAt bottomPosition
}

func newMotion(top, bottom *Axis, sensor HomeSensor, clock Clock, cal CalibrationConfig, logger *slog.Logger) *Motion {
	return &Motion{
		top:      top,
		bottom:   bottom,
		sensor:   sensor,
		clock:    clock,
		cal:      cal,
		logger:   logger,
		bottomAt: bottomUnknown,
	}
}

// TimedSpin drives the axis at preset for d. The axis keeps running afterwards; the caller decides what comes next
func (m *Motion) TimedSpin(ctx context.Context, axis *Axis, preset Preset, d time.Duration) error {
	m.logger.Debug("timed spin", "axis", axis.Name(), "preset", preset.String(), "duration", d)

	err := axis.Drive(preset)
	if err != nil {
		return err
	}

	return m.clock.Sleep(ctx, d)
}

// SoftStop stops the top axis with a short counter-pulse that cancels the residual momentum
func (m *Motion) SoftStop(ctx context.Context) error {
	dir := m.top.Direction()
	counter := PresetFor(SpeedSlow, dir.Opposite())

	steps := []struct {
		preset Preset
		wait   time.Duration
	}{
		{PresetStop, m.cal.SoftStopSettle},
		{counter, m.cal.SoftStopCounterPulse},
		{PresetStop, m.cal.SoftStopTail},
	}

	for _, step := range steps {
		err := m.top.Drive(step.preset)
		if err != nil {
			return err
		}

		// the counter-pulse brakes, it does not change where the axis was heading
		m.top.setDirection(dir)

		err = m.clock.Sleep(ctx, step.wait)
		if err != nil {
			return errors.Join(err, m.top.Stop())
		}
	}

	return nil
}

// HardStop stops the axis and waits for it to settle
func (m *Motion) HardStop(ctx context.Context, axis *Axis) error {
	err := axis.Stop()
	if err != nil {
		return err
	}
	return m.clock.Sleep(ctx, m.cal.HardStopSettle)
}

// WaitForHome waits for delay and then polls the home sensor until it reports home or
// StuckTime elapses. The sensor is read before the deadline is checked, and the last
// sleep is shortened so one read always happens exactly at the deadline
func (m *Motion) WaitForHome(ctx context.Context, delay time.Duration) error {
	op := "motion.wait_for_home"

	err := m.clock.Sleep(ctx, delay)
	if err != nil {
		return err
	}

	start := m.clock.Now()
	for {
		home, err := m.sensor.IsHome()
		if err != nil {
			return newError(op, KindSensorRead, err)
		}
		if home {
			return nil
		}

		elapsed := m.clock.Now().Sub(start)
		if elapsed >= m.cal.StuckTime {
			return newError(op, KindStall, fmt.Errorf("top axis not home after %s", m.cal.StuckTime))
		}

		err = m.clock.Sleep(ctx, min(m.cal.PollInterval, m.cal.StuckTime-elapsed))
		if err != nil {
			return err
		}
	}
}

// Home brings the top axis to rest on the home sensor. It drives toward home, slow on
// the first pass and very slow afterwards, hard-stops when the sensor trips and flips
// direction whenever the stop overshot. An axis already resting at home gets no commands
func (m *Motion) Home(ctx context.Context) error {
	op := "motion.home"
	dir := m.top.Direction().Opposite()

	for pass := 0; pass < m.cal.MaxHomingPasses; pass++ {
		home, err := m.readHome(op)
		if err != nil {
			return errors.Join(err, m.top.Stop())
		}

		if home {
			if m.top.Stopped() {
				return nil
			}

			err = m.HardStop(ctx, m.top)
			if err != nil {
				return err
			}

			home, err = m.readHome(op)
			if err != nil {
				return err
			}
			if home {
				m.logger.Debug("top axis home", "passes", pass)
				return nil
			}
			m.logger.Debug("top axis overshot home", "pass", pass)
		}

		speed := SpeedVerySlow
		if pass == 0 {
			speed = SpeedSlow
		}

		err = m.top.Drive(PresetFor(speed, dir))
		if err != nil {
			return err
		}

		err = m.WaitForHome(ctx, 0)
		if err != nil {
			return errors.Join(err, m.top.Stop())
		}

		dir = dir.Opposite()
	}

	return errors.Join(
		newError(op, KindStall, fmt.Errorf("top axis did not settle on home in %d passes", m.cal.MaxHomingPasses)),
		m.top.Stop(),
	)
}

// Revolve spins the top axis off the sensor and back around to it
func (m *Motion) Revolve(ctx context.Context, preset Preset) error {
	err := m.TimedSpin(ctx, m.top, preset, m.cal.TopSpinTime)
	if err != nil {
		return errors.Join(err, m.top.Stop())
	}

	err = m.WaitForHome(ctx, 0)
	if err != nil {
		return errors.Join(err, m.top.Stop())
	}

	return nil
}

// Unjam reverses the top axis slowly against its last direction and then bursts at full
// speed in that direction to break a mechanical jam
func (m *Motion) Unjam(ctx context.Context) error {
	dir := m.top.Direction()
	m.logger.Warn("un-jamming top axis", "direction", dir.String())

	err := m.TimedSpin(ctx, m.top, PresetFor(SpeedSlow, dir.Opposite()), m.cal.UnjamReverse)
	if err != nil {
		return errors.Join(err, m.top.Stop())
	}

	err = m.TimedSpin(ctx, m.top, PresetFor(SpeedFast, dir), m.cal.UnjamBurst)
	if err != nil {
		return errors.Join(err, m.top.Stop())
	}

	return m.Brake(ctx, m.top)
}

// Brake stops an axis. The top axis gets a soft stop when it was running fast, anything else a hard stop
func (m *Motion) Brake(ctx context.Context, axis *Axis) error {
	if axis == m.top && axis.Kind() == AxisContinuous && axis.State().Preset.Speed() == SpeedFast {
		return m.SoftStop(ctx)
	}
	return m.HardStop(ctx, axis)
}

// MoveBottom turns the platform to the bin position on the given side
func (m *Motion) MoveBottom(ctx context.Context, dir Direction) error {
	if dir == Clockwise {
		m.setBottomAt(bottomClockwise)
	} else {
		m.setBottomAt(bottomCounterClockwise)
	}

	err := m.TimedSpin(ctx, m.bottom, PresetFor(SpeedFast, dir), m.cal.BottomTravelTime)
	if err != nil {
		return errors.Join(err, m.settleBottom())
	}

	return m.settleBottom()
}

// ReturnBottom brings the platform back to its default position. A positional axis is
// commanded to the absolute default unless it is known to be there; a continuous axis
// retraces its last move for the same time
func (m *Motion) ReturnBottom(ctx context.Context) error {
	at := m.bottomPosition()

	var preset Preset
	switch {
	case m.bottom.Kind() == AxisPositional:
		if at == bottomDefault {
			return nil
		}
		preset = PresetStop
	case at == bottomClockwise:
		preset = PresetFor(SpeedFast, CounterClockwise)
	case at == bottomCounterClockwise:
		preset = PresetFor(SpeedFast, Clockwise)
	case at == bottomUnknown:
		m.logger.Warn("bottom axis position unknown, assuming default")
		m.setBottomAt(bottomDefault)
		return m.bottom.Stop()
	default:
		return nil
	}

	err := m.TimedSpin(ctx, m.bottom, preset, m.cal.BottomTravelTime)
	if err != nil {
		return errors.Join(err, m.settleBottom())
	}

	m.setBottomAt(bottomDefault)
	return m.settleBottom()
}

// Halt stops both axes and waits for them to settle. It ignores cancellation so it can be used to abort
func (m *Motion) Halt() error {
	err := errors.Join(m.top.Stop(), m.settleBottom())
	if err != nil {
		return err
	}
	return m.clock.Sleep(context.Background(), m.cal.HardStopSettle)
}

// settleBottom ends a bottom move: a positional servo is released once at its target, a continuous one stopped
func (m *Motion) settleBottom() error {
	if m.bottom.Kind() == AxisPositional {
		return m.bottom.Release()
	}
	return m.bottom.Stop()
}

func (m *Motion) readHome(op string) (bool, error) {
	home, err := m.sensor.IsHome()
	if err != nil {
		return false, newError(op, KindSensorRead, err)
	}
	return home, nil
}

func (m *Motion) setBottomAt(p bottomPosition) {
	m.mtx.Lock()
	m.bottomAt = p
	m.mtx.Unlock()
}

func (m *Motion) bottomPosition() bottomPosition {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.bottomAt
}
