//go:build tinygo

package device

import (
	"errors"
	"machine"

	trashseparator "github.com/weedkat/trash-separator"

	"tinygo.org/x/drivers/servo"
)

var errUnknownAxis = errors.New("unknown axis")

// Device drives both servos and reads the home switch on behalf of the host
type Device struct {
	top    servo.Servo
	bottom servo.Servo

	homePin       machine.Pin
	homeActiveLow bool
}

// New configures both PWM outputs at 50 Hz and the home pin as a pulled-up input. The
// servos start released
func New(cfg Config) (Device, error) {
	top, err := servo.New(cfg.Top.PWM, cfg.Top.Pin)
	if err != nil {
		return Device{}, errors.New("error creating top servo: " + err.Error())
	}

	bottom, err := servo.New(cfg.Bottom.PWM, cfg.Bottom.Pin)
	if err != nil {
		return Device{}, errors.New("error creating bottom servo: " + err.Error())
	}

	top.SetMicroseconds(0)
	bottom.SetMicroseconds(0)

	cfg.HomePin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	return Device{
		top:           top,
		bottom:        bottom,
		homePin:       cfg.HomePin,
		homeActiveLow: cfg.HomeActiveLow,
	}, nil
}

// SetPulse starts sending pulses of the given width to a servo
func (d *Device) SetPulse(axis byte, us int16) error {
	s, err := d.servo(axis)
	if err != nil {
		return err
	}
	if us <= 0 || us > trashseparator.MaxPulse {
		return errors.New("pulse out of range")
	}

	s.SetMicroseconds(us)
	return nil
}

// Release stops sending pulses to a servo
func (d *Device) Release(axis byte) error {
	s, err := d.servo(axis)
	if err != nil {
		return err
	}

	s.SetMicroseconds(0)
	return nil
}

// IsHome reads the home switch
func (d *Device) IsHome() (bool, error) {
	level := d.homePin.Get()
	if d.homeActiveLow {
		return !level, nil
	}
	return level, nil
}

func (d *Device) servo(axis byte) (*servo.Servo, error) {
	switch axis {
	case trashseparator.AxisTop:
		return &d.top, nil
	case trashseparator.AxisBottom:
		return &d.bottom, nil
	default:
		return nil, errUnknownAxis
	}
}

// ReadByte reads from USB serial
func (d *Device) ReadByte() (byte, error) {
	return machine.Serial.ReadByte()
}

// Write writes to USB serial
func (d *Device) Write(b []byte) (int, error) {
	return machine.Serial.Write(b)
}
