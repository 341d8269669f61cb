package controller

import (
	"fmt"
	"strings"
)

// Preset is a named motion preset. The pulse width each preset produces comes from the axis Profile
type Preset int

const (
	PresetStop Preset = iota
	PresetSlowCW
	PresetSlowCCW
	PresetVerySlowCW
	PresetVerySlowCCW
	PresetFastCW
	PresetFastCCW
)

var allPresets = []Preset{
	PresetStop,
	PresetSlowCW,
	PresetSlowCCW,
	PresetVerySlowCW,
	PresetVerySlowCCW,
	PresetFastCW,
	PresetFastCCW,
}

func (p Preset) String() string {
	switch p {
	case PresetStop:
		return "stop"
	case PresetSlowCW:
		return "slow_cw"
	case PresetSlowCCW:
		return "slow_ccw"
	case PresetVerySlowCW:
		return "very_slow_cw"
	case PresetVerySlowCCW:
		return "very_slow_ccw"
	case PresetFastCW:
		return "fast_cw"
	case PresetFastCCW:
		return "fast_ccw"
	default:
		return fmt.Sprintf("preset(%d)", int(p))
	}
}

// MarshalText implements encoding.TextMarshaler
func (p Preset) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Preset) UnmarshalText(text []byte) error {
	parsed, err := ParsePreset(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePreset parses the String form of a Preset
func ParsePreset(s string) (Preset, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, p := range allPresets {
		if p.String() == normalized {
			return p, nil
		}
	}
	return PresetStop, newError("controller.parse_preset", KindConfiguration, fmt.Errorf("unknown preset %q", s))
}

// Direction returns the rotation direction of the preset and whether it moves at all
func (p Preset) Direction() (Direction, bool) {
	switch p {
	case PresetSlowCW, PresetVerySlowCW, PresetFastCW:
		return Clockwise, true
	case PresetSlowCCW, PresetVerySlowCCW, PresetFastCCW:
		return CounterClockwise, true
	default:
		return Clockwise, false
	}
}

// Speed is the magnitude class of a Preset
type Speed int

const (
	SpeedStop Speed = iota
	SpeedVerySlow
	SpeedSlow
	SpeedFast
)

func (p Preset) Speed() Speed {
	switch p {
	case PresetVerySlowCW, PresetVerySlowCCW:
		return SpeedVerySlow
	case PresetSlowCW, PresetSlowCCW:
		return SpeedSlow
	case PresetFastCW, PresetFastCCW:
		return SpeedFast
	default:
		return SpeedStop
	}
}

// PresetFor returns the preset with the given speed and direction
func PresetFor(s Speed, d Direction) Preset {
	cw := d == Clockwise
	switch s {
	case SpeedVerySlow:
		if cw {
			return PresetVerySlowCW
		}
		return PresetVerySlowCCW
	case SpeedSlow:
		if cw {
			return PresetSlowCW
		}
		return PresetSlowCCW
	case SpeedFast:
		if cw {
			return PresetFastCW
		}
		return PresetFastCCW
	default:
		return PresetStop
	}
}

// Direction is the rotation direction of an axis. The zero value is Clockwise
type Direction uint8

const (
	Clockwise Direction = iota
	CounterClockwise
)

func (d Direction) String() string {
	if d == CounterClockwise {
		return "counter_clockwise"
	}
	return "clockwise"
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Opposite returns the inverted direction
func (d Direction) Opposite() Direction {
	if d == CounterClockwise {
		return Clockwise
	}
	return CounterClockwise
}

// AxisKind describes how an axis responds to a pulse width
type AxisKind int

const (
	// AxisContinuous is a continuously-rotating servo: the pulse sets speed and direction
	AxisContinuous AxisKind = iota
	// AxisPositional is a standard servo: the pulse sets a target angle. Stop is the default position
	AxisPositional
)

func (k AxisKind) String() string {
	if k == AxisPositional {
		return "positional"
	}
	return "continuous"
}

// ParseAxisKind parses the String form of an AxisKind
func ParseAxisKind(s string) (AxisKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "continuous":
		return AxisContinuous, nil
	case "positional":
		return AxisPositional, nil
	default:
		return AxisContinuous, newError("controller.parse_axis_kind", KindConfiguration, fmt.Errorf("unknown axis kind %q", s))
	}
}

// Profile is the calibrated pulse width (microseconds) for each preset of one axis.
// It is read-only after NewProfile
type Profile struct {
	name    string
	kind    AxisKind
	presets map[Preset]int16
}

// NewProfile validates and copies a preset table. Continuous axes need every preset;
// positional axes need stop and both fast presets
func NewProfile(name string, kind AxisKind, presets map[Preset]int16) (Profile, error) {
	op := "controller.new_profile"

	required := allPresets
	if kind == AxisPositional {
		required = []Preset{PresetStop, PresetFastCW, PresetFastCCW}
	}

	for _, p := range required {
		if _, ok := presets[p]; !ok {
			return Profile{}, newError(op, KindConfiguration, fmt.Errorf("%s axis: missing preset %s", name, p))
		}
	}

	table := make(map[Preset]int16, len(presets))
	for p, us := range presets {
		if us < 0 {
			return Profile{}, newError(op, KindConfiguration, fmt.Errorf("%s axis: preset %s has negative pulse %d", name, p, us))
		}
		table[p] = us
	}

	prof := Profile{name: name, kind: kind, presets: table}
	if err := prof.validateOrdering(); err != nil {
		return Profile{}, newError(op, KindConfiguration, err)
	}

	return prof, nil
}

// validateOrdering checks that each direction sits on one side of stop and that
// fast > slow > very slow in distance from stop
func (p Profile) validateOrdering() error {
	stop := int(p.presets[PresetStop])

	sides := map[Direction]int{}
	for _, d := range []Direction{Clockwise, CounterClockwise} {
		lastDistance := 0
		lastPreset := PresetStop
		for _, s := range []Speed{SpeedVerySlow, SpeedSlow, SpeedFast} {
			preset := PresetFor(s, d)
			us, ok := p.presets[preset]
			if !ok {
				continue
			}

			offset := int(us) - stop
			if offset == 0 {
				return fmt.Errorf("%s axis: preset %s equals stop pulse %d", p.name, preset, stop)
			}

			side := 1
			if offset < 0 {
				side = -1
				offset = -offset
			}
			if prev, ok := sides[d]; ok && prev != side {
				return fmt.Errorf("%s axis: %s presets are on both sides of stop", p.name, d)
			}
			sides[d] = side

			if offset <= lastDistance {
				return fmt.Errorf("%s axis: preset %s (%d) must be further from stop than %s", p.name, preset, us, lastPreset)
			}
			lastDistance = offset
			lastPreset = preset
		}
	}

	if sides[Clockwise] == sides[CounterClockwise] {
		return fmt.Errorf("%s axis: clockwise and counter-clockwise presets are on the same side of stop", p.name)
	}

	return nil
}

// Pulse returns the calibrated pulse for a preset. An unknown preset is a programming error and panics
func (p Profile) Pulse(preset Preset) int16 {
	us, ok := p.presets[preset]
	if !ok {
		panic(fmt.Sprintf("controller: %s axis has no calibration for preset %s", p.name, preset))
	}
	return us
}

// Has reports whether the profile carries a calibration for preset
func (p Profile) Has(preset Preset) bool {
	_, ok := p.presets[preset]
	return ok
}

func (p Profile) Name() string {
	return p.name
}

func (p Profile) Kind() AxisKind {
	return p.kind
}
