package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	trashseparator "github.com/weedkat/trash-separator"
)

func TestNew(t *testing.T) {
	rig := newTestRig(alwaysHome)

	t.Run("MissingHardware", func(t *testing.T) {
		_, err := New(Hardware{Top: rig.top}, DefaultConfig())
		assert.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("PositionalTop", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Top = DefaultBottomServo()
		_, err := New(rig.hardware(), cfg)
		assert.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("InvalidCalibration", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Calibration.StuckTime = 0
		_, err := New(rig.hardware(), cfg)
		assert.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("NoRoutes", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Routes = nil
		_, err := New(rig.hardware(), cfg)
		assert.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("IdleWithoutMotion", func(t *testing.T) {
		c, err := New(rig.hardware(), DefaultConfig())
		require.NoError(t, err)
		assert.Equal(t, StateIdle, c.State())
		assert.False(t, c.Status().Homed)
		assert.Empty(t, rig.top.Commands())
		assert.Empty(t, rig.bottom.Commands())
	})
}

func TestStartAlreadyHome(t *testing.T) {
	rig := newTestRig(alwaysHome)
	obs := &recordingObserver{}
	c := rig.newController(t, WithObserver(obs))

	require.NoError(t, c.Start(context.Background()))

	assert.Equal(t, StateIdle, c.State())
	assert.True(t, c.Status().Homed)
	assert.Empty(t, rig.top.Commands(), "top axis resting at home must not be driven")
	assert.Equal(t, []command{{pulse: 1350}, {release: true}}, stripMeta(rig.bottom.Commands()))
	assert.Equal(t, []State{StateHoming, StateIdle}, obs.States())

	t.Run("HomingAgainIsIdempotent", func(t *testing.T) {
		rig.top.Clear()
		rig.bottom.Clear()

		require.NoError(t, c.Reset(context.Background()))
		assert.Empty(t, rig.top.Commands())
		assert.Empty(t, rig.bottom.Commands())
	})
}

func TestStallRecovery(t *testing.T) {
	t.Run("RecoveredByUnjam", func(t *testing.T) {
		rig := newTestRig(nil)
		// the jam clears once the axis has been burst at full speed
		rig.sensor.fn = func() (bool, error) {
			return rig.top.Count(200) > 0 || rig.top.Count(2400) > 0, nil
		}
		obs := &recordingObserver{}
		c := rig.newController(t, WithObserver(obs))

		require.NoError(t, c.Start(context.Background()))

		assert.Equal(t, StateIdle, c.State())
		assert.Equal(t, []State{StateHoming, StateStallRecovery, StateHoming, StateIdle}, obs.States())
		assert.Equal(t, 1, rig.top.Count(200)+rig.top.Count(2400))
	})

	t.Run("FaultsAfterOneRecovery", func(t *testing.T) {
		rig := newTestRig(neverHome)
		obs := &recordingObserver{}
		c := rig.newController(t, WithObserver(obs))

		err := c.Start(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrStall)
		assert.True(t, IsKind(err, KindStall))

		assert.Equal(t, StateFaulted, c.State())
		assert.Equal(t, 1, rig.top.Count(200)+rig.top.Count(2400), "unjam runs at most once")
		assert.Equal(t, []State{StateHoming, StateStallRecovery, StateHoming, StateFaulted}, obs.States())

		status := c.Status()
		assert.False(t, status.Homed)
		assert.NotEmpty(t, status.LastError)

		// motors are left stopped
		top := rig.top.Pulses()
		assert.Equal(t, int16(1400), top[len(top)-1])
	})

	t.Run("ConfigurableBudget", func(t *testing.T) {
		rig := newTestRig(neverHome)
		cfg := DefaultConfig()
		cfg.Calibration.MaxRecoveries = 3

		c, err := New(rig.hardware(), cfg, WithClock(rig.clock))
		require.NoError(t, err)

		assert.ErrorIs(t, c.Start(context.Background()), ErrStall)
		assert.Equal(t, 3, rig.top.Count(200)+rig.top.Count(2400))
	})

	t.Run("SensorErrorIsRecoverable", func(t *testing.T) {
		readErr := errors.New("gpio read failed")
		rig := newTestRig(func() (bool, error) { return false, readErr })
		c := rig.newController(t)

		err := c.Start(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSensorRead)
		assert.ErrorIs(t, err, readErr)
		assert.Equal(t, StateFaulted, c.State())
		assert.Equal(t, 1, rig.top.Count(200)+rig.top.Count(2400))
	})
}

func TestFaulted(t *testing.T) {
	rig := newTestRig(neverHome)
	c := rig.newController(t)
	ctx := context.Background()

	require.ErrorIs(t, c.Start(ctx), ErrStall)
	require.Equal(t, StateFaulted, c.State())

	rig.top.Clear()
	rig.bottom.Clear()

	t.Run("RejectsRequestsWithoutMotion", func(t *testing.T) {
		assert.ErrorIs(t, c.Route(ctx, "B3"), ErrFaulted)
		assert.ErrorIs(t, c.Execute(ctx, trashseparator.ManeuverBackLeft), ErrFaulted)
		assert.ErrorIs(t, c.Start(ctx), ErrFaulted)
		assert.ErrorIs(t, c.Jog(ctx, AxisTop, PresetSlowCW, time.Second), ErrFaulted)

		assert.Empty(t, rig.top.Commands())
		assert.Empty(t, rig.bottom.Commands())
		assert.Equal(t, StateFaulted, c.State())
	})

	t.Run("ResetRecovers", func(t *testing.T) {
		rig.sensor.fn = alwaysHome

		require.NoError(t, c.Reset(ctx))
		assert.Equal(t, StateIdle, c.State())
		assert.Empty(t, c.Status().LastError)

		require.NoError(t, c.Route(ctx, "Residu"))
	})
}

func TestRouteUnknownCategory(t *testing.T) {
	rig := newTestRig(alwaysHome)
	c := rig.newController(t)

	err := c.Route(context.Background(), "Kaca")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownCategory)
	assert.True(t, IsKind(err, KindUnknownCategory))

	assert.Empty(t, rig.top.Commands())
	assert.Empty(t, rig.bottom.Commands())
	assert.EqualValues(t, 0, rig.sensor.reads.Load())
	assert.Equal(t, StateIdle, c.State())
}

func TestExecuteUnknownManeuver(t *testing.T) {
	rig := newTestRig(alwaysHome)
	c := rig.newController(t)

	err := c.Execute(context.Background(), trashseparator.ManeuverUnknown)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Empty(t, rig.top.Commands())
	assert.Equal(t, StateIdle, c.State())
}

func TestBusy(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	var once sync.Once
	rig := newTestRig(func() (bool, error) {
		once.Do(func() {
			close(entered)
			<-release
		})
		return true, nil
	})
	c := rig.newController(t)

	result := make(chan error, 1)
	go func() {
		result <- c.Start(context.Background())
	}()

	<-entered
	assert.Equal(t, StateHoming, c.State())

	err := c.Route(context.Background(), "B3")
	assert.ErrorIs(t, err, ErrBusy)
	assert.True(t, IsKind(err, KindBusy))
	assert.ErrorIs(t, c.Reset(context.Background()), ErrBusy)

	close(release)
	require.NoError(t, <-result)
	assert.Equal(t, StateIdle, c.State())
}

func TestStartCancelledFaults(t *testing.T) {
	rig := newTestRig(neverHome)
	c := rig.newController(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Start(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFaulted, c.State())
}

func TestHardwareErrorFaults(t *testing.T) {
	rig := newTestRig(neverHome)
	driverErr := errors.New("pwm channel busy")
	rig.top.Fail(driverErr)
	c := rig.newController(t)

	err := c.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHardware)
	assert.ErrorIs(t, err, driverErr)
	assert.Equal(t, StateFaulted, c.State())
}

func TestJog(t *testing.T) {
	rig := newTestRig(alwaysHome)
	c := rig.newController(t)
	ctx := context.Background()

	require.NoError(t, c.Start(ctx))
	rig.top.Clear()
	rig.bottom.Clear()

	t.Run("Top", func(t *testing.T) {
		require.NoError(t, c.Jog(ctx, AxisTop, PresetSlowCW, 300*time.Millisecond))
		assert.Equal(t, []int16{1560, 1400}, rig.top.Pulses())
		assert.Equal(t, StateIdle, c.State())
		assert.False(t, c.Status().Homed)
	})

	t.Run("Bottom", func(t *testing.T) {
		require.NoError(t, c.Jog(ctx, AxisBottom, PresetFastCCW, time.Second))
		assert.Equal(t, []command{{pulse: 2098}, {release: true}}, stripMeta(rig.bottom.Commands()))
	})

	t.Run("UncalibratedPreset", func(t *testing.T) {
		err := c.Jog(ctx, AxisBottom, PresetSlowCW, time.Second)
		assert.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("UnknownAxis", func(t *testing.T) {
		err := c.Jog(ctx, AxisID("middle"), PresetStop, time.Second)
		assert.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("NextManeuverHomesFirst", func(t *testing.T) {
		rig.bottom.Clear()

		require.NoError(t, c.Execute(ctx, trashseparator.ManeuverBackLeft))
		assert.True(t, c.Status().Homed)
		// the platform position was unknown after the jog, so it is re-seated
		assert.Equal(t, []command{{pulse: 1350}, {release: true}}, stripMeta(rig.bottom.Commands()))
	})
}

func TestShutdown(t *testing.T) {
	rig := newTestRig(alwaysHome)
	c := rig.newController(t)
	ctx := context.Background()

	require.NoError(t, c.Start(ctx))
	require.NoError(t, c.Shutdown())

	topCmds := rig.top.Commands()
	bottomCmds := rig.bottom.Commands()
	assert.True(t, topCmds[len(topCmds)-1].release)
	assert.True(t, bottomCmds[len(bottomCmds)-1].release)

	assert.ErrorIs(t, c.Route(ctx, "B3"), ErrClosed)
	assert.ErrorIs(t, c.Reset(ctx), ErrClosed)
	assert.NoError(t, c.Shutdown())
}

func TestStatus(t *testing.T) {
	rig := newTestRig(alwaysHome)
	c := rig.newController(t)
	ctx := context.Background()

	require.NoError(t, c.Route(ctx, "residu"))

	status := c.Status()
	assert.Equal(t, StateIdle, status.State)
	assert.True(t, status.Homed)
	assert.Equal(t, 1, status.Maneuvers)
	assert.Equal(t, "back_left", status.LastManeuver)
	assert.Empty(t, status.LastError)
	assert.Equal(t, PresetStop, status.Top.Preset)
	assert.True(t, status.Bottom.Released)

	assert.Equal(t, []string{"B3", "Daur Ulang", "Guna Ulang", "Organik", "Residu"}, c.Categories())
}

func TestStateTransitions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		sensor   func() (bool, error)
		run      func(t *testing.T, rig *testRig, c *Controller)
		expected []State
	}{
		{
			"Startup",
			alwaysHome,
			func(t *testing.T, _ *testRig, c *Controller) {
				require.NoError(t, c.Start(ctx))
			},
			[]State{StateHoming, StateIdle},
		},
		{
			"Maneuver",
			alwaysHome,
			func(t *testing.T, _ *testRig, c *Controller) {
				require.NoError(t, c.Start(ctx))
				require.NoError(t, c.Execute(ctx, trashseparator.ManeuverBackLeft))
			},
			[]State{StateHoming, StateIdle, StateExecuting, StateHoming, StateIdle},
		},
		{
			"ManeuverBeforeStart",
			alwaysHome,
			func(t *testing.T, _ *testRig, c *Controller) {
				require.NoError(t, c.Route(ctx, "Residu"))
			},
			[]State{StateExecuting, StateHoming, StateExecuting, StateHoming, StateIdle},
		},
		{
			"StallRecovered",
			nil,
			func(t *testing.T, rig *testRig, c *Controller) {
				rig.sensor.fn = func() (bool, error) {
					return rig.top.Count(200) > 0 || rig.top.Count(2400) > 0, nil
				}
				require.NoError(t, c.Start(ctx))
			},
			[]State{StateHoming, StateStallRecovery, StateHoming, StateIdle},
		},
		{
			"StallFaults",
			neverHome,
			func(t *testing.T, _ *testRig, c *Controller) {
				require.ErrorIs(t, c.Start(ctx), ErrStall)
			},
			[]State{StateHoming, StateStallRecovery, StateHoming, StateFaulted},
		},
		{
			"StallDuringManeuverFaults",
			alwaysHome,
			func(t *testing.T, rig *testRig, c *Controller) {
				require.NoError(t, c.Start(ctx))
				rig.sensor.fn = neverHome
				require.ErrorIs(t, c.Execute(ctx, trashseparator.ManeuverFrontRight), ErrStall)
			},
			[]State{StateHoming, StateIdle, StateExecuting, StateStallRecovery, StateHoming, StateFaulted},
		},
		{
			"ResetFromFault",
			neverHome,
			func(t *testing.T, rig *testRig, c *Controller) {
				require.ErrorIs(t, c.Start(ctx), ErrStall)
				rig.sensor.fn = alwaysHome
				require.NoError(t, c.Reset(ctx))
			},
			[]State{StateHoming, StateStallRecovery, StateHoming, StateFaulted, StateHoming, StateIdle},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := newTestRig(tt.sensor)
			obs := &recordingObserver{}
			c := rig.newController(t, WithObserver(obs))

			tt.run(t, rig, c)

			assert.Equal(t, tt.expected, obs.States())

			// every transition starts where the previous one ended
			from := StateIdle
			for _, transition := range obs.Transitions() {
				assert.Equal(t, from, transition[0])
				from = transition[1]
			}
		})
	}
}
