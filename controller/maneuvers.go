package controller

import (
	"context"
	"fmt"

	trashseparator "github.com/weedkat/trash-separator"
)

// runManeuver performs the bin-specific part of a maneuver. Returning both axes to
// default is left to the caller
func (c *Controller) runManeuver(ctx context.Context, m trashseparator.Maneuver) error {
	mo := c.motion

	switch m {
	case trashseparator.ManeuverFront:
		return forkJoin(
			func() error { return mo.MoveBottom(ctx, Clockwise) },
			func() error { return c.holdFront(ctx) },
		)
	case trashseparator.ManeuverFrontLeft:
		return forkJoin(
			func() error { return mo.MoveBottom(ctx, CounterClockwise) },
			func() error { return mo.Revolve(ctx, PresetSlowCW) },
		)
	case trashseparator.ManeuverFrontRight:
		return mo.Revolve(ctx, PresetSlowCCW)
	case trashseparator.ManeuverBackLeft:
		return mo.Revolve(ctx, PresetSlowCW)
	case trashseparator.ManeuverBackRight:
		return forkJoin(
			func() error { return mo.MoveBottom(ctx, CounterClockwise) },
			func() error { return mo.Revolve(ctx, PresetSlowCCW) },
		)
	default:
		return newError("controller.maneuver", KindConfiguration, fmt.Errorf("%w: %d", trashseparator.ErrInvalidManeuver, int(m)))
	}
}

// holdFront keeps the gate closed while the platform turns, then nudges it around once
// if it drifted off the sensor
func (c *Controller) holdFront(ctx context.Context) error {
	err := c.clock.Sleep(ctx, c.cal.FrontHoldDelay)
	if err != nil {
		return err
	}

	home, err := c.motion.readHome("controller.hold_front")
	if err != nil {
		return err
	}
	if home {
		return nil
	}

	return c.motion.Revolve(ctx, PresetSlowCCW)
}
