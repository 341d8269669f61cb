//go:build tinygo

package device

import (
	"machine"

	"tinygo.org/x/drivers/servo"
)

// ServoConfig has device-level values for setting up a Servo
type ServoConfig struct {
	Pin machine.Pin
	PWM servo.PWM
}

// Config is the wiring of the bridge board
type Config struct {
	Top    ServoConfig
	Bottom ServoConfig

	HomePin machine.Pin
	// HomeActiveLow is set when the switch pulls the pin to ground at home
	HomeActiveLow bool
}
