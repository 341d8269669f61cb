// Package ui is the operator panel: one button per category, direct maneuver
// buttons for testing, and the machine state
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	trashseparator "github.com/weedkat/trash-separator"
	"github.com/weedkat/trash-separator/config"
	"github.com/weedkat/trash-separator/controller"
)

const (
	appID      = "io.github.weedkat.trash-separator"
	maxLogRows = 200
)

// OpenFunc connects to the machine described by cfg. The panel observes it through o.
// The returned func releases the hardware
type OpenFunc func(cfg config.App, o controller.Observer) (Machine, func() error, error)

// Panel is the operator window. It implements controller.Observer
type Panel struct {
	cfg  config.App
	open OpenFunc

	app     fyne.App
	actions *actions
	closer  func() error

	stateText   *canvas.Text
	statusLabel *widget.Label
	sinceLast   *timer
	log         *eventLog
	sortButtons []*widget.Button
	resetButton *widget.Button
}

func New(cfg config.App, open OpenFunc) *Panel {
	return &Panel{
		cfg:  cfg,
		open: open,
	}
}

// Run shows the configuration window and then the panel until the window is
// closed or ctx is done
func (p *Panel) Run(ctx context.Context) error {
	p.app = app.NewWithID(appID)

	var openErr error
	cw := NewConfigWindow(p.app)
	cw.OnSubmit = func(cfg config.App) {
		openErr = p.start(ctx, cfg)
		if openErr != nil {
			window := p.app.NewWindow("Trash Separator")
			window.Show()
			showError(p.app, window, openErr)
		}
	}
	cw.Show(p.cfg)

	go func() {
		<-ctx.Done()
		fyne.Do(func() {
			p.app.Quit()
		})
	}()

	p.app.Run()

	return errors.Join(openErr, p.stop())
}

func (p *Panel) start(ctx context.Context, cfg config.App) error {
	p.stateText = canvas.NewText(stateTitle(controller.StateIdle), stateColor(controller.StateIdle))
	p.stateText.TextStyle.Bold = true
	p.statusLabel = widget.NewLabel("")
	p.sinceLast = newTimer(false)
	p.log = newEventLog(maxLogRows)

	machine, closer, err := p.open(cfg, p)
	if err != nil {
		return fmt.Errorf("error opening %s backend: %w", cfg.Backend, err)
	}
	p.closer = closer
	p.actions = &actions{
		ctx:     ctx,
		machine: machine,
		report: func(msg string) {
			fyne.Do(func() {
				p.log.Add(msg)
			})
		},
	}

	window := p.app.NewWindow(fmt.Sprintf("Trash Separator (%s)", cfg.Backend))
	window.SetContent(p.content(machine))
	window.Resize(fyne.NewSize(420, 360))
	window.SetMaster()
	window.Show()

	p.sinceLast.Go()
	p.refreshStatus(machine.Status())
	p.actions.Home()

	return nil
}

func (p *Panel) content(machine Machine) fyne.CanvasObject {
	categories := container.NewGridWithColumns(2)
	for _, category := range machine.Categories() {
		b := widget.NewButton(category, func() {
			p.actions.Route(category)
		})
		p.sortButtons = append(p.sortButtons, b)
		categories.Add(b)
	}

	maneuvers := container.NewGridWithColumns(3)
	for _, m := range trashseparator.Maneuvers {
		b := widget.NewButton(m.String(), func() {
			p.actions.Execute(m)
		})
		p.sortButtons = append(p.sortButtons, b)
		maneuvers.Add(b)
	}

	p.resetButton = widget.NewButton("Reset", p.actions.Reset)

	return container.NewVBox(
		container.NewHBox(
			container.NewPadded(p.stateText),
			layout.NewSpacer(),
			widget.NewLabel("Since last:"),
			container.NewPadded(p.sinceLast.text),
		),
		p.statusLabel,
		widget.NewCard("Categories", "", categories),
		widget.NewAccordion(
			widget.NewAccordionItem("Maneuvers", maneuvers),
			widget.NewAccordionItem("Logs", p.log.scroll),
		),
		p.resetButton,
	)
}

// StateChanged implements controller.Observer
func (p *Panel) StateChanged(from, to controller.State) {
	var status controller.Status
	if p.actions != nil {
		status = p.actions.machine.Status()
	}
	fyne.Do(func() {
		p.log.Add(fmt.Sprintf("%s -> %s", from, to))
		p.setState(to)
		if p.actions != nil {
			p.refreshStatus(status)
		}
	})
}

// ManeuverDone implements controller.Observer
func (p *Panel) ManeuverDone(m trashseparator.Maneuver, elapsed time.Duration, err error) {
	if err == nil {
		p.sinceLast.Set(time.Now())
	}
	fyne.Do(func() {
		if err != nil {
			p.log.Add(fmt.Sprintf("%s failed after %s: %v", m, elapsed.Round(time.Millisecond), err))
			return
		}
		p.log.Add(fmt.Sprintf("%s done in %s", m, elapsed.Round(time.Millisecond)))
	})
}

func (p *Panel) setState(s controller.State) {
	p.stateText.Text = stateTitle(s)
	p.stateText.Color = stateColor(s)
	p.stateText.Refresh()

	for _, b := range p.sortButtons {
		if accepting(s) {
			b.Enable()
		} else {
			b.Disable()
		}
	}
}

func (p *Panel) refreshStatus(status controller.Status) {
	text := fmt.Sprintf("homed: %t   sorted: %d", status.Homed, status.Maneuvers)
	if status.LastError != "" {
		text += "\nlast error: " + status.LastError
	}
	p.statusLabel.SetText(text)
}

// stop waits for running operations and releases the hardware
func (p *Panel) stop() error {
	if p.sinceLast != nil {
		p.sinceLast.Stop()
	}
	if p.actions != nil {
		p.actions.Wait()
	}
	if p.closer != nil {
		return p.closer()
	}
	return nil
}

// eventLog is a scrolling list of the most recent events
type eventLog struct {
	lines  *logLines
	label  *widget.Label
	scroll *container.Scroll
}

func newEventLog(limit int) *eventLog {
	label := widget.NewLabel("")
	scroll := container.NewVScroll(label)
	scroll.SetMinSize(fyne.NewSize(300, 100))
	return &eventLog{
		lines:  newLogLines(limit),
		label:  label,
		scroll: scroll,
	}
}

// Add must be called on the fyne goroutine
func (l *eventLog) Add(msg string) {
	l.lines.Add(time.Now().Format("15:04:05.000") + " " + msg)
	l.label.SetText(l.lines.String())
	l.scroll.ScrollToBottom()
}

// logLines keeps the last limit lines
type logLines struct {
	limit int
	lines []string
}

func newLogLines(limit int) *logLines {
	return &logLines{limit: limit}
}

func (l *logLines) Add(line string) {
	l.lines = append(l.lines, line)
	if len(l.lines) > l.limit {
		l.lines = l.lines[len(l.lines)-l.limit:]
	}
}

func (l *logLines) String() string {
	return strings.Join(l.lines, "\n")
}
