package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/weedkat/trash-separator/controller"
	"github.com/weedkat/trash-separator/logger"
)

// Backend selects the hardware the controller drives
type Backend string

const (
	// BackendSim drives the software rig
	BackendSim Backend = "sim"
	// BackendRPi drives the servos from the Raspberry Pi's hardware PWM
	BackendRPi Backend = "rpi"
	// BackendSerial drives the servos through the microcontroller bridge
	BackendSerial Backend = "serial"
)

func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendSim, BackendRPi, BackendSerial:
		return b, nil
	default:
		return "", fmt.Errorf("unknown backend %q", s)
	}
}

// HomeDriver selects the GPIO library that reads the home switch on the rpi backend
type HomeDriver string

const (
	HomeDriverRPIO     HomeDriver = "rpio"
	HomeDriverGPIOCDev HomeDriver = "gpiocdev"
)

// RPi is the wiring on the Raspberry Pi. Pins are BCM numbers; the servo pins must
// be hardware PWM capable (12, 13, 18 or 19)
type RPi struct {
	TopPin        int
	BottomPin     int
	HomePin       int
	HomeDriver    HomeDriver
	Chip          string
	HomeActiveLow bool
}

type Serial struct {
	Port    string
	Baud    int
	Timeout time.Duration
}

type HTTP struct {
	Addr string
}

// App is the complete configuration of the program
type App struct {
	Backend    Backend
	RPi        RPi
	Serial     Serial
	HTTP       HTTP
	Log        logger.Config
	Controller controller.Config
}

// Default returns the configuration of the shipped machine
func Default() App {
	return App{
		Backend: BackendSim,
		RPi: RPi{
			TopPin:        12,
			BottomPin:     13,
			HomePin:       17,
			HomeDriver:    HomeDriverGPIOCDev,
			Chip:          "gpiochip0",
			HomeActiveLow: true,
		},
		Serial: Serial{
			Baud:    115200,
			Timeout: time.Second,
		},
		HTTP: HTTP{
			Addr: ":8080",
		},
		Log: logger.Config{
			Level:  "info",
			Format: "text",
		},
		Controller: controller.DefaultConfig(),
	}
}
