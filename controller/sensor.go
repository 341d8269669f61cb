package controller

import (
	"context"
	"time"
)

// HomeSensor reads the switch that closes when the top axis is at its default position.
// Each call is a single fresh read, true means home. Backends resolve active-low wiring
type HomeSensor interface {
	IsHome() (bool, error)
}

// HomeSensorFunc adapts a function to HomeSensor
type HomeSensorFunc func() (bool, error)

func (f HomeSensorFunc) IsHome() (bool, error) {
	return f()
}

// Clock is the source of time for every wait the controller performs
type Clock interface {
	Now() time.Time
	// Sleep waits for d or until ctx is done, whichever is first
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
