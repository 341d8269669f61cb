package controller

import (
	"time"

	trashseparator "github.com/weedkat/trash-separator"
)

// Observer is told about state changes and finished maneuvers. Calls come from the
// goroutine running the operation and must not block
type Observer interface {
	StateChanged(from, to State)
	ManeuverDone(m trashseparator.Maneuver, elapsed time.Duration, err error)
}

type noopObserver struct{}

var _ Observer = noopObserver{}

// StateChanged implements Observer.
func (noopObserver) StateChanged(from, to State) {}

// ManeuverDone implements Observer.
func (noopObserver) ManeuverDone(m trashseparator.Maneuver, elapsed time.Duration, err error) {}
