package trashseparator

import (
	"errors"
	"fmt"
	"strings"
)

const TerminationChar = '\n'

// Maneuver is one of the five fixed routes an item can take out of the chute
type Maneuver int

const (
	ManeuverUnknown Maneuver = iota
	ManeuverFront
	ManeuverFrontLeft
	ManeuverFrontRight
	ManeuverBackLeft
	ManeuverBackRight
)

// Maneuvers lists every routable maneuver in a stable order
var Maneuvers = []Maneuver{
	ManeuverFront,
	ManeuverFrontLeft,
	ManeuverFrontRight,
	ManeuverBackLeft,
	ManeuverBackRight,
}

var ErrInvalidManeuver = errors.New("invalid maneuver")

func (m Maneuver) String() string {
	switch m {
	case ManeuverFront:
		return "front"
	case ManeuverFrontLeft:
		return "front_left"
	case ManeuverFrontRight:
		return "front_right"
	case ManeuverBackLeft:
		return "back_left"
	case ManeuverBackRight:
		return "back_right"
	default:
		fallthrough
	case ManeuverUnknown:
		return "unknown"
	}
}

// ParseManeuver accepts the String form of a maneuver. Dashes and case are ignored
func ParseManeuver(s string) (Maneuver, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, m := range Maneuvers {
		if m.String() == normalized {
			return m, nil
		}
	}
	return ManeuverUnknown, fmt.Errorf("%w: %s", ErrInvalidManeuver, s)
}

// MarshalText implements encoding.TextMarshaler so maneuvers read naturally in YAML and JSON
func (m Maneuver) MarshalText() ([]byte, error) {
	if m == ManeuverUnknown {
		return nil, ErrInvalidManeuver
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *Maneuver) UnmarshalText(text []byte) error {
	parsed, err := ParseManeuver(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Serial bridge protocol. Every command is a single flag byte followed by a fixed
// number of input bytes and is answered by exactly one line
const (
	CommandSetPulse byte = 'S' // S <axis> <lo7> <hi7>
	CommandRelease  byte = 'R' // R <axis>
	CommandHome     byte = 'H' // H
	CommandPing     byte = 'P' // P
	CommandHelp     byte = '?' // ?

	AxisTop    byte = 'T'
	AxisBottom byte = 'B'

	ReplyOK      = "ok"
	ReplyHome    = "1"
	ReplyNotHome = "0"
	ReplyError   = "err: "
)

// MaxPulse is the largest pulse width that fits in two 7-bit bytes
const MaxPulse = 1<<14 - 1

// EncodePulse splits a pulse width into two 7-bit bytes, low byte first
func EncodePulse(us int16) [2]byte {
	v := uint16(us)
	return [2]byte{byte(v & 0x7F), byte((v >> 7) & 0x7F)}
}

// DecodePulse reverses EncodePulse
func DecodePulse(b [2]byte) int16 {
	return int16(uint16(b[0]&0x7F) | uint16(b[1]&0x7F)<<7)
}
