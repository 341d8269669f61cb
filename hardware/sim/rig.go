// Package sim is a software model of the sorter mechanism. It stands in for the real
// servos and home switch when developing without hardware
package sim

import (
	"math"
	"sync"
	"time"
)

// Config describes the simulated mechanism
type Config struct {
	// TopStop is the pulse width at which the top servo stands still
	TopStop int16
	// TopDeadband is the distance from TopStop within which the servo does not turn
	TopDeadband int16
	// TopGain is the top axis speed in degrees per second for each microsecond away from TopStop.
	// Wider pulses turn clockwise
	TopGain float64
	// HomeWindow is the arc in degrees, centered on 0, over which the home switch is closed
	HomeWindow float64
	// Overshoot is how far in degrees the top axis coasts after being stopped while moving
	Overshoot float64

	// BottomDefault is the pulse width of the platform's default position
	BottomDefault int16
}

// DefaultConfig matches the default calibration: the slow preset turns once in about 1.5s
func DefaultConfig() Config {
	return Config{
		TopStop:       1400,
		TopDeadband:   20,
		TopGain:       1.5,
		HomeWindow:    10,
		BottomDefault: 1350,
	}
}

// Rig is the simulated mechanism. Its methods are safe for concurrent use
type Rig struct {
	cfg Config
	now func() time.Time

	mtx sync.Mutex

	topAngle float64
	topRate  float64
	topAt    time.Time
	jammed   bool

	bottomPulse    int16
	bottomReleased bool

	sensorErr error
	reads     int
}

// New creates a Rig resting at home with the platform at its default position.
// now defaults to time.Now
func New(cfg Config, now func() time.Time) *Rig {
	if now == nil {
		now = time.Now
	}
	return &Rig{
		cfg:            cfg,
		now:            now,
		topAt:          now(),
		bottomPulse:    cfg.BottomDefault,
		bottomReleased: true,
	}
}

// Top returns the driver of the top servo
func (r *Rig) Top() *TopServo {
	return &TopServo{rig: r}
}

// Bottom returns the driver of the bottom servo
func (r *Rig) Bottom() *BottomServo {
	return &BottomServo{rig: r}
}

// IsHome reads the simulated home switch
func (r *Rig) IsHome() (bool, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.reads++
	if r.sensorErr != nil {
		return false, r.sensorErr
	}

	r.advance()
	return r.inWindow(r.topAngle), nil
}

// Jam stops the top axis from turning, whatever it is driven with
func (r *Rig) Jam(jammed bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.advance()
	r.jammed = jammed
}

// FailSensor makes every home read fail with err until called with nil
func (r *Rig) FailSensor(err error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.sensorErr = err
}

// SetTopAngle moves the top axis by hand
func (r *Rig) SetTopAngle(deg float64) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.advance()
	r.topAngle = deg
}

// TopAngle returns the top axis angle in [0, 360)
func (r *Rig) TopAngle() float64 {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.advance()
	return normalize(r.topAngle)
}

// TopMoving reports whether the top axis is turning
func (r *Rig) TopMoving() bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.topRate != 0 && !r.jammed
}

// BottomState returns the last pulse sent to the bottom servo and whether it has since been released
func (r *Rig) BottomState() (int16, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.bottomPulse, r.bottomReleased
}

// Reads returns how many times the home switch was read
func (r *Rig) Reads() int {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.reads
}

func (r *Rig) setTop(us int16, released bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.advance()

	rate := 0.0
	offset := us - r.cfg.TopStop
	if !released && (offset > r.cfg.TopDeadband || offset < -r.cfg.TopDeadband) {
		rate = float64(offset) * r.cfg.TopGain
	}

	if rate == 0 && r.topRate != 0 && !r.jammed {
		r.topAngle += math.Copysign(r.cfg.Overshoot, r.topRate)
	}
	r.topRate = rate
}

func (r *Rig) setBottom(us int16, released bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if !released {
		r.bottomPulse = us
	}
	r.bottomReleased = released
}

// advance integrates the top axis angle up to now. Callers hold mtx
func (r *Rig) advance() {
	now := r.now()
	if !r.jammed {
		r.topAngle += r.topRate * now.Sub(r.topAt).Seconds()
	}
	r.topAt = now
}

func (r *Rig) inWindow(angle float64) bool {
	a := normalize(angle)
	half := r.cfg.HomeWindow / 2
	return a <= half || a >= 360-half
}

func normalize(angle float64) float64 {
	a := math.Mod(angle, 360)
	if a < 0 {
		a += 360
	}
	return a
}

// TopServo drives the simulated top axis
type TopServo struct {
	rig *Rig
}

func (s *TopServo) SetPulse(us int16) error {
	s.rig.setTop(us, false)
	return nil
}

func (s *TopServo) Release() error {
	s.rig.setTop(0, true)
	return nil
}

// BottomServo drives the simulated platform
type BottomServo struct {
	rig *Rig
}

func (s *BottomServo) SetPulse(us int16) error {
	s.rig.setBottom(us, false)
	return nil
}

func (s *BottomServo) Release() error {
	s.rig.setBottom(0, true)
	return nil
}
