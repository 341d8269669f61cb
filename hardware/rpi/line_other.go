//go:build !linux

package rpi

import "errors"

var errNoCDev = errors.New("gpio character device is only available on linux")

type LineSensor struct{}

func NewLineSensor(chip string, offset int, activeLow bool) (*LineSensor, error) {
	return nil, errNoCDev
}

func (s *LineSensor) IsHome() (bool, error) {
	return false, errNoCDev
}

func (s *LineSensor) Close() error {
	return nil
}
