package ui

import (
	"image/color"

	"github.com/weedkat/trash-separator/controller"
)

var (
	colorIdle    = color.RGBA{R: 0, G: 128, B: 0, A: 255}
	colorMoving  = color.RGBA{R: 204, G: 153, B: 0, A: 255}
	colorRecover = color.RGBA{R: 230, G: 100, B: 0, A: 255}
	colorFaulted = color.RGBA{R: 139, G: 0, B: 0, A: 255}
)

// stateTitle is the text shown for a controller state
func stateTitle(s controller.State) string {
	switch s {
	case controller.StateIdle:
		return "Idle"
	case controller.StateHoming:
		return "Homing"
	case controller.StateExecuting:
		return "Sorting"
	case controller.StateStallRecovery:
		return "Recovering from stall"
	case controller.StateFaulted:
		return "Faulted - reset required"
	default:
		return "Unknown"
	}
}

func stateColor(s controller.State) color.Color {
	switch s {
	case controller.StateIdle:
		return colorIdle
	case controller.StateHoming, controller.StateExecuting:
		return colorMoving
	case controller.StateStallRecovery:
		return colorRecover
	default:
		return colorFaulted
	}
}

// accepting reports whether the sorting buttons should be enabled in state s
func accepting(s controller.State) bool {
	return s == controller.StateIdle
}
