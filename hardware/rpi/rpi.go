// Package rpi drives the servos from the Raspberry Pi's hardware PWM and reads the
// home switch from a GPIO pin
package rpi

import (
	"errors"
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
	"github.com/weedkat/trash-separator/controller"
)

const (
	// pwmClock ticks once per microsecond so a duty length is a pulse width
	pwmClock = 1_000_000
	// frameLength is one 50 Hz servo frame in pwmClock ticks
	frameLength = 20_000
)

var ErrPulseRange = errors.New("pulse width outside the servo frame")

// Config is the wiring. Pins are BCM numbers
type Config struct {
	TopPin    int
	BottomPin int
	HomePin   int
	// UseGPIOCDev reads the home switch through the character device instead of /dev/gpiomem
	UseGPIOCDev   bool
	Chip          string
	HomeActiveLow bool
}

// Board holds the opened devices
type Board struct {
	Top    *Servo
	Bottom *Servo
	Home   controller.HomeSensor

	closers []func() error
}

// Open maps the GPIO registers and sets up both servos and the home switch
func Open(cfg Config) (*Board, error) {
	err := rpio.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening gpio: %w", err)
	}

	b := &Board{
		Top:     NewServo(rpio.Pin(cfg.TopPin)),
		Bottom:  NewServo(rpio.Pin(cfg.BottomPin)),
		closers: []func() error{rpio.Close},
	}

	if cfg.UseGPIOCDev {
		line, err := NewLineSensor(cfg.Chip, cfg.HomePin, cfg.HomeActiveLow)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("error requesting home line: %w", err), rpio.Close())
		}
		b.Home = line
		b.closers = append(b.closers, line.Close)
	} else {
		b.Home = NewPinSensor(rpio.Pin(cfg.HomePin), cfg.HomeActiveLow)
	}

	return b, nil
}

// Close releases both servos and the GPIO resources
func (b *Board) Close() error {
	errs := []error{b.Top.Release(), b.Bottom.Release()}
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	return errors.Join(errs...)
}

type pwmPin interface {
	DutyCycle(dutyLen, cycleLen uint32)
}

// Servo emits servo pulses on a hardware PWM pin
type Servo struct {
	mtx sync.Mutex
	pin pwmPin
}

// NewServo switches pin to PWM mode clocked at one tick per microsecond. rpio must be open
func NewServo(pin rpio.Pin) *Servo {
	pin.Mode(rpio.Pwm)
	pin.Freq(pwmClock)
	pin.DutyCycle(0, frameLength)

	return &Servo{pin: pin}
}

// SetPulse implements controller.Driver
func (s *Servo) SetPulse(us int16) error {
	if us <= 0 || int(us) >= frameLength {
		return fmt.Errorf("%w: %dus", ErrPulseRange, us)
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.pin.DutyCycle(uint32(us), frameLength)
	return nil
}

// Release holds the output low
func (s *Servo) Release() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.pin.DutyCycle(0, frameLength)
	return nil
}

type inputPin interface {
	Read() rpio.State
}

// PinSensor reads the home switch through go-rpio
type PinSensor struct {
	pin       inputPin
	activeLow bool
}

// NewPinSensor sets pin as an input with the internal pull-up enabled. rpio must be open
func NewPinSensor(pin rpio.Pin, activeLow bool) *PinSensor {
	pin.Input()
	pin.PullUp()

	return &PinSensor{pin: pin, activeLow: activeLow}
}

// IsHome implements controller.HomeSensor
func (s *PinSensor) IsHome() (bool, error) {
	level := s.pin.Read()
	if s.activeLow {
		return level == rpio.Low, nil
	}
	return level == rpio.High, nil
}
