package controller

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	trashseparator "github.com/weedkat/trash-separator"
)

type fakeClock struct {
	mtx    sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	c.mtx.Lock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	c.mtx.Unlock()

	return ctx.Err()
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return append([]time.Duration{}, c.sleeps...)
}

type command struct {
	seq     int64
	at      time.Time
	pulse   int16
	release bool
}

// recordingDriver records every command and forwards it to next, if set
type recordingDriver struct {
	seq  *atomic.Int64
	now  func() time.Time
	next Driver

	mtx  sync.Mutex
	cmds []command
	err  error
}

func newRecordingDriver(seq *atomic.Int64, now func() time.Time, next Driver) *recordingDriver {
	return &recordingDriver{seq: seq, now: now, next: next}
}

func (d *recordingDriver) SetPulse(us int16) error {
	return d.record(command{pulse: us})
}

func (d *recordingDriver) Release() error {
	return d.record(command{release: true})
}

func (d *recordingDriver) record(cmd command) error {
	d.mtx.Lock()
	err := d.err
	if err == nil {
		cmd.seq = d.seq.Add(1)
		cmd.at = d.now()
		d.cmds = append(d.cmds, cmd)
	}
	d.mtx.Unlock()

	if err != nil {
		return err
	}
	if d.next == nil {
		return nil
	}
	if cmd.release {
		return d.next.Release()
	}
	return d.next.SetPulse(cmd.pulse)
}

func (d *recordingDriver) Commands() []command {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return append([]command{}, d.cmds...)
}

// Pulses returns the pulse widths sent, with releases as 0
func (d *recordingDriver) Pulses() []int16 {
	var result []int16
	for _, cmd := range d.Commands() {
		result = append(result, cmd.pulse)
	}
	return result
}

func (d *recordingDriver) Count(us int16) int {
	n := 0
	for _, cmd := range d.Commands() {
		if !cmd.release && cmd.pulse == us {
			n++
		}
	}
	return n
}

func (d *recordingDriver) Clear() {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.cmds = nil
}

func (d *recordingDriver) Fail(err error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.err = err
}

type recordingObserver struct {
	mtx         sync.Mutex
	transitions [][2]State
	done        []trashseparator.Maneuver
}

func (o *recordingObserver) StateChanged(from, to State) {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	o.transitions = append(o.transitions, [2]State{from, to})
}

func (o *recordingObserver) ManeuverDone(m trashseparator.Maneuver, _ time.Duration, _ error) {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	o.done = append(o.done, m)
}

func (o *recordingObserver) States() []State {
	o.mtx.Lock()
	defer o.mtx.Unlock()

	var result []State
	for _, t := range o.transitions {
		result = append(result, t[1])
	}
	return result
}

func (o *recordingObserver) Transitions() [][2]State {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	return append([][2]State(nil), o.transitions...)
}

// scriptedSensor answers from a function and counts reads
type scriptedSensor struct {
	reads atomic.Int64
	fn    func() (bool, error)
}

func (s *scriptedSensor) IsHome() (bool, error) {
	s.reads.Add(1)
	return s.fn()
}

func alwaysHome() (bool, error) { return true, nil }

func neverHome() (bool, error) { return false, nil }

type testRig struct {
	clock  *fakeClock
	top    *recordingDriver
	bottom *recordingDriver
	sensor *scriptedSensor
}

func newTestRig(sensor func() (bool, error)) *testRig {
	clock := newFakeClock()
	seq := &atomic.Int64{}
	return &testRig{
		clock:  clock,
		top:    newRecordingDriver(seq, clock.Now, nil),
		bottom: newRecordingDriver(seq, clock.Now, nil),
		sensor: &scriptedSensor{fn: sensor},
	}
}

func (r *testRig) hardware() Hardware {
	return Hardware{Top: r.top, Bottom: r.bottom, Home: r.sensor}
}

func (r *testRig) newController(t *testing.T, opts ...Option) *Controller {
	t.Helper()

	c, err := New(r.hardware(), DefaultConfig(), append([]Option{WithClock(r.clock)}, opts...)...)
	require.NoError(t, err)
	return c
}

func (r *testRig) newMotion(t *testing.T) *Motion {
	t.Helper()

	cfg := DefaultConfig()
	top, err := NewProfile("top", cfg.Top.Kind, cfg.Top.Presets)
	require.NoError(t, err)
	bottom, err := NewProfile("bottom", cfg.Bottom.Kind, cfg.Bottom.Presets)
	require.NoError(t, err)

	return newMotion(NewAxis(r.top, top), NewAxis(r.bottom, bottom), r.sensor, r.clock, cfg.Calibration, discardLogger())
}
