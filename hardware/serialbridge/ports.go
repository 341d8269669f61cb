package serialbridge

import (
	"errors"
	"fmt"

	"go.bug.st/serial/enumerator"
)

// PortNone is offered next to the detected ports to run without a bridge
const PortNone = "None"

var ErrNoUSBSerial = errors.New("no USB serial ports found")

// PortInfo describes a serial port found on the host
type PortInfo struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
}

func (p PortInfo) String() string {
	if !p.IsUSB {
		return p.Name
	}
	return fmt.Sprintf("%s (USB %s:%s %s)", p.Name, p.VID, p.PID, p.SerialNumber)
}

// ListPorts returns the serial ports on the host, USB devices first.
// ErrNoUSBSerial is returned along with the list when none of them is USB
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("error listing serial ports: %w", err)
	}

	var usb, other []PortInfo
	for _, d := range details {
		info := PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
		}
		if d.IsUSB {
			usb = append(usb, info)
		} else {
			other = append(other, info)
		}
	}

	ports := append(usb, other...)
	if len(usb) == 0 {
		return ports, ErrNoUSBSerial
	}
	return ports, nil
}

// PortNames returns the names of the USB serial ports
func PortNames() ([]string, error) {
	ports, err := ListPorts()
	if err != nil {
		return nil, err
	}

	var names []string
	for _, p := range ports {
		if p.IsUSB {
			names = append(names, p.Name)
		}
	}
	return names, nil
}
