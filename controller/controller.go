package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	trashseparator "github.com/weedkat/trash-separator"
	"golang.org/x/sync/errgroup"
)

// State is the lifecycle state of the Controller
type State int

const (
	StateIdle State = iota
	StateHoming
	StateExecuting
	StateStallRecovery
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHoming:
		return "homing"
	case StateExecuting:
		return "executing_maneuver"
	case StateStallRecovery:
		return "stall_recovery"
	case StateFaulted:
		return "faulted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// AxisID selects one of the two axes
type AxisID string

const (
	AxisTop    AxisID = "top"
	AxisBottom AxisID = "bottom"
)

// ParseAxisID accepts "top" or "bottom"
func ParseAxisID(s string) (AxisID, error) {
	switch id := AxisID(s); id {
	case AxisTop, AxisBottom:
		return id, nil
	default:
		return "", newError("controller.parse_axis", KindConfiguration, fmt.Errorf("unknown axis %q", s))
	}
}

// Hardware is the set of devices the Controller drives
type Hardware struct {
	Top    Driver
	Bottom Driver
	Home   HomeSensor
}

// Status is a snapshot of the Controller for operators
type Status struct {
	State        State     `json:"state"`
	Homed        bool      `json:"homed"`
	Maneuvers    int       `json:"maneuvers"`
	LastManeuver string    `json:"last_maneuver,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
	Top          AxisState `json:"top"`
	Bottom       AxisState `json:"bottom"`
}

// Controller sequences the two axes through homing and the sorting maneuvers. It runs
// at most one operation at a time and rejects requests that arrive while it is busy
type Controller struct {
	motion     *Motion
	dispatcher *Dispatcher
	cal        CalibrationConfig

	clock    Clock
	logger   *slog.Logger
	observer Observer

	mtx          sync.Mutex
	state        State
	homed        bool
	closed       bool
	lastErr      error
	lastManeuver trashseparator.Maneuver
	maneuvers    int
}

// Option configures optional collaborators of the Controller
type Option func(*Controller)

// WithLogger sets the logger. The default discards everything
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithClock replaces the wall clock
func WithClock(clock Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithObserver registers an Observer
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observer = o
	}
}

// New validates the configuration and creates a Controller in the Idle state. It does
// not move anything: call Start to home the mechanism
func New(hw Hardware, cfg Config, opts ...Option) (*Controller, error) {
	op := "controller.new"

	if hw.Top == nil || hw.Bottom == nil || hw.Home == nil {
		return nil, newError(op, KindConfiguration, errors.New("top driver, bottom driver and home sensor are required"))
	}
	if cfg.Top.Kind != AxisContinuous {
		return nil, newError(op, KindConfiguration, errors.New("top axis must be continuous"))
	}

	err := cfg.Calibration.Validate()
	if err != nil {
		return nil, err
	}

	topProfile, err := NewProfile(string(AxisTop), cfg.Top.Kind, cfg.Top.Presets)
	if err != nil {
		return nil, err
	}
	bottomProfile, err := NewProfile(string(AxisBottom), cfg.Bottom.Kind, cfg.Bottom.Presets)
	if err != nil {
		return nil, err
	}

	dispatcher, err := NewDispatcher(cfg.Routes)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		dispatcher: dispatcher,
		cal:        cfg.Calibration,
		clock:      realClock{},
		logger:     discardLogger(),
		observer:   noopObserver{},
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.motion = newMotion(
		NewAxis(hw.Top, topProfile),
		NewAxis(hw.Bottom, bottomProfile),
		hw.Home,
		c.clock,
		c.cal,
		c.logger,
	)

	return c, nil
}

// Start homes the mechanism. It is the first call after New
func (c *Controller) Start(ctx context.Context) error {
	c.logger.Info("starting controller")
	return c.home(ctx, "controller.start", false)
}

// Reset re-homes the mechanism. It is the only way out of the Faulted state
func (c *Controller) Reset(ctx context.Context) error {
	c.logger.Info("resetting controller")
	return c.home(ctx, "controller.reset", true)
}

// Route resolves a classifier category and executes its maneuver. An unknown category
// produces no motion
func (c *Controller) Route(ctx context.Context, category string) error {
	m, err := c.dispatcher.Resolve(category)
	if err != nil {
		c.logger.Warn("unknown category", "category", category)
		return err
	}

	c.logger.Info("routing item", "category", category, "maneuver", m.String())
	return c.Execute(ctx, m)
}

// Execute runs one maneuver and returns the mechanism to its default position
func (c *Controller) Execute(ctx context.Context, m trashseparator.Maneuver) error {
	op := "controller.execute"

	if m == trashseparator.ManeuverUnknown {
		return newError(op, KindConfiguration, trashseparator.ErrInvalidManeuver)
	}

	err := c.begin(op, StateExecuting, false)
	if err != nil {
		return err
	}

	start := c.clock.Now()
	err = c.execute(ctx, op, m)
	elapsed := c.clock.Now().Sub(start)

	c.mtx.Lock()
	c.lastManeuver = m
	if err == nil {
		c.maneuvers++
	}
	c.mtx.Unlock()

	if err != nil {
		c.logger.Error("maneuver failed", "maneuver", m.String(), "elapsed", elapsed, "error", err)
	} else {
		c.logger.Info("maneuver done", "maneuver", m.String(), "elapsed", elapsed)
	}
	c.observer.ManeuverDone(m, elapsed, err)

	return err
}

func (c *Controller) execute(ctx context.Context, op string, m trashseparator.Maneuver) error {
	if !c.isHomed() {
		c.logger.Info("position unknown, homing before maneuver", "maneuver", m.String())
		c.setState(StateHoming)

		err := c.returnToDefault(ctx, nil)
		if err != nil {
			return c.fault(op, err)
		}
		c.setState(StateExecuting)
	}

	err := c.runManeuver(ctx, m)
	switch {
	case err == nil:
		c.setState(StateHoming)
	case ctx.Err() != nil:
		return c.abort(ctx, op, m, err)
	case recoverable(err):
		c.logger.Warn("stall during maneuver", "maneuver", m.String(), "error", err)
	default:
		return c.fault(op, err)
	}

	err = c.returnToDefault(ctx, err)
	if err != nil {
		if ctx.Err() != nil {
			return c.abort(ctx, op, m, err)
		}
		return c.fault(op, err)
	}

	c.finish()
	return nil
}

// abort halts both axes and re-homes them without the cancelled context. The caller
// still receives the cancellation
func (c *Controller) abort(ctx context.Context, op string, m trashseparator.Maneuver, cause error) error {
	c.logger.Warn("maneuver aborted, halting", "maneuver", m.String(), "error", ctx.Err())

	err := c.motion.Halt()
	if err != nil {
		return c.fault(op, errors.Join(cause, err))
	}

	c.setState(StateHoming)
	err = c.returnToDefault(context.WithoutCancel(ctx), nil)
	if err != nil {
		return c.fault(op, errors.Join(cause, err))
	}

	c.finish()
	return fmt.Errorf("%s: maneuver %s aborted: %w", op, m, ctx.Err())
}

// Jog drives one axis at preset for d and stops it again. It is a calibration aid and
// leaves the position unknown, so the next maneuver homes first
func (c *Controller) Jog(ctx context.Context, id AxisID, preset Preset, d time.Duration) error {
	op := "controller.jog"

	axis, err := c.axis(id)
	if err != nil {
		return err
	}
	if !axis.Supports(preset) {
		return newError(op, KindConfiguration, fmt.Errorf("%s axis has no calibration for preset %s", id, preset))
	}
	if d < 0 {
		return newError(op, KindConfiguration, fmt.Errorf("negative duration %s", d))
	}

	err = c.begin(op, StateExecuting, false)
	if err != nil {
		return err
	}

	c.mtx.Lock()
	c.homed = false
	c.mtx.Unlock()
	if id == AxisBottom {
		c.motion.setBottomAt(bottomUnknown)
	}

	c.logger.Info("jogging axis", "axis", string(id), "preset", preset.String(), "duration", d)

	err = c.motion.TimedSpin(ctx, axis, preset, d)
	if err != nil {
		return c.fault(op, err)
	}

	if id == AxisBottom {
		err = c.motion.settleBottom()
	} else {
		err = c.motion.Brake(ctx, axis)
	}
	if err != nil {
		return c.fault(op, err)
	}

	c.setState(StateIdle)
	return nil
}

// Shutdown releases both axes. Every later call fails with ErrClosed
func (c *Controller) Shutdown() error {
	c.mtx.Lock()
	if c.closed {
		c.mtx.Unlock()
		return nil
	}
	c.closed = true
	c.mtx.Unlock()

	c.logger.Info("shutting down controller")

	err := errors.Join(c.motion.top.Release(), c.motion.bottom.Release())
	if err != nil {
		return newError("controller.shutdown", KindHardware, err)
	}
	return nil
}

// State returns the current lifecycle state
func (c *Controller) State() State {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.state
}

// Status returns a snapshot for display
func (c *Controller) Status() Status {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	s := Status{
		State:     c.state,
		Homed:     c.homed,
		Maneuvers: c.maneuvers,
		Top:       c.motion.top.State(),
		Bottom:    c.motion.bottom.State(),
	}
	if c.lastManeuver != trashseparator.ManeuverUnknown {
		s.LastManeuver = c.lastManeuver.String()
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}

// Categories lists the routable classifier categories
func (c *Controller) Categories() []string {
	return c.dispatcher.Categories()
}

func (c *Controller) home(ctx context.Context, op string, fromFault bool) error {
	err := c.begin(op, StateHoming, fromFault)
	if err != nil {
		return err
	}

	err = c.returnToDefault(ctx, nil)
	if err != nil {
		return c.fault(op, err)
	}

	c.finish()
	return nil
}

// returnToDefault homes both axes, un-jamming the top axis between attempts while the
// recovery budget lasts. A non-nil stalled starts with a recovery
func (c *Controller) returnToDefault(ctx context.Context, stalled error) error {
	err := stalled
	recoveries := 0
	for {
		if err != nil {
			if !recoverable(err) || recoveries >= c.cal.MaxRecoveries || ctx.Err() != nil {
				return err
			}
			recoveries++

			c.setState(StateStallRecovery)
			c.logger.Warn("top axis stuck, attempting recovery", "attempt", recoveries, "error", err)

			uerr := c.motion.Unjam(ctx)
			if uerr != nil {
				return errors.Join(err, uerr)
			}
			c.setState(StateHoming)
		}

		err = c.homeAxes(ctx)
		if err == nil {
			return nil
		}
	}
}

// homeAxes runs the bottom return and top homing concurrently, then confirms the top axis once more
func (c *Controller) homeAxes(ctx context.Context) error {
	err := forkJoin(
		func() error { return c.motion.ReturnBottom(ctx) },
		func() error { return c.motion.Home(ctx) },
	)
	if err != nil {
		return err
	}
	return c.motion.Home(ctx)
}

// begin claims the controller for one operation
func (c *Controller) begin(op string, next State, fromFault bool) error {
	c.mtx.Lock()

	if c.closed {
		c.mtx.Unlock()
		return newError(op, KindClosed, nil)
	}

	switch c.state {
	case StateIdle:
	case StateFaulted:
		if !fromFault {
			err := c.lastErr
			c.mtx.Unlock()
			return newError(op, KindFaulted, err)
		}
	default:
		state := c.state
		c.mtx.Unlock()
		return newError(op, KindBusy, fmt.Errorf("controller is %s", state))
	}

	from := c.state
	c.state = next
	c.mtx.Unlock()

	c.notify(from, next)
	return nil
}

func (c *Controller) finish() {
	c.mtx.Lock()
	from := c.state
	c.state = StateIdle
	c.homed = true
	c.lastErr = nil
	c.mtx.Unlock()

	c.notify(from, StateIdle)
}

// fault stops everything and parks the controller in Faulted until Reset
func (c *Controller) fault(op string, err error) error {
	haltErr := c.motion.Halt()
	if haltErr != nil {
		err = errors.Join(err, haltErr)
	}

	kind := KindFaulted
	var e *Error
	if errors.As(err, &e) {
		kind = e.Kind
	}
	wrapped := newError(op, kind, err)

	c.mtx.Lock()
	from := c.state
	c.state = StateFaulted
	c.homed = false
	c.lastErr = wrapped
	c.mtx.Unlock()

	c.logger.Error("controller faulted", "op", op, "error", err)
	c.notify(from, StateFaulted)

	return wrapped
}

func (c *Controller) setState(next State) {
	c.mtx.Lock()
	from := c.state
	c.state = next
	c.mtx.Unlock()

	c.notify(from, next)
}

func (c *Controller) notify(from, to State) {
	if from == to {
		return
	}
	c.logger.Debug("state changed", "from", from.String(), "to", to.String())
	c.observer.StateChanged(from, to)
}

func (c *Controller) isHomed() bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.homed
}

func (c *Controller) axis(id AxisID) (*Axis, error) {
	switch id {
	case AxisTop:
		return c.motion.top, nil
	case AxisBottom:
		return c.motion.bottom, nil
	default:
		return nil, newError("controller.axis", KindConfiguration, fmt.Errorf("unknown axis %q", id))
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func forkJoin(fns ...func() error) error {
	var g errgroup.Group
	for _, fn := range fns {
		g.Go(fn)
	}
	return g.Wait()
}
