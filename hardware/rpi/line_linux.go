//go:build linux

package rpi

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "trash-separator"

// LineSensor reads the home switch through the GPIO character device
type LineSensor struct {
	line *gpiocdev.Line
}

// NewLineSensor requests offset on chip as a pulled-up input. Active-low wiring is
// resolved by the kernel so IsHome reads true when the switch is closed
func NewLineSensor(chip string, offset int, activeLow bool) (*LineSensor, error) {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithConsumer(consumer),
	}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	line, err := gpiocdev.RequestLine(chip, offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("error requesting %s line %d: %w", chip, offset, err)
	}

	return &LineSensor{line: line}, nil
}

// IsHome implements controller.HomeSensor
func (s *LineSensor) IsHome() (bool, error) {
	v, err := s.line.Value()
	if err != nil {
		return false, err
	}
	return v == 1, nil
}

func (s *LineSensor) Close() error {
	return s.line.Close()
}
