//go:build tinygo

package main

import (
	"machine"

	"github.com/weedkat/trash-separator/firmware/commands"
	"github.com/weedkat/trash-separator/firmware/device"
)

func main() {
	cfg := device.Config{
		Top: device.ServoConfig{
			PWM: machine.PWM3,
			Pin: machine.GP22,
		},
		Bottom: device.ServoConfig{
			PWM: machine.PWM2,
			Pin: machine.GP20,
		},
		HomePin:       machine.GP15,
		HomeActiveLow: true,
	}

	d, err := device.New(cfg)
	if err != nil {
		panic(err)
	}

	err = commands.Run(&d, &d)
	if err != nil {
		println("error:", err.Error())
	}
}
