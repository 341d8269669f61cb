package ui

import (
	"context"
	"fmt"
	"sync"

	trashseparator "github.com/weedkat/trash-separator"
	"github.com/weedkat/trash-separator/controller"
)

// Machine is what the panel drives
type Machine interface {
	Start(ctx context.Context) error
	Route(ctx context.Context, category string) error
	Execute(ctx context.Context, m trashseparator.Maneuver) error
	Reset(ctx context.Context) error
	Status() controller.Status
	Categories() []string
}

// actions runs machine operations off the UI goroutine. The controller rejects
// requests that overlap, so a second click while sorting is reported as busy
type actions struct {
	ctx     context.Context
	machine Machine
	report  func(string)
	wg      sync.WaitGroup
}

func (a *actions) Home() {
	a.run("home", a.machine.Start)
}

func (a *actions) Route(category string) {
	a.run("route "+category, func(ctx context.Context) error {
		return a.machine.Route(ctx, category)
	})
}

func (a *actions) Execute(m trashseparator.Maneuver) {
	a.run(m.String(), func(ctx context.Context) error {
		return a.machine.Execute(ctx, m)
	})
}

func (a *actions) Reset() {
	a.run("reset", a.machine.Reset)
}

// Wait blocks until every operation started so far has returned
func (a *actions) Wait() {
	a.wg.Wait()
}

func (a *actions) run(name string, fn func(context.Context) error) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		err := fn(a.ctx)
		if err != nil {
			a.report(fmt.Sprintf("%s failed: %v", name, err))
		}
	}()
}
