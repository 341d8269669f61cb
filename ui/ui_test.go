package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	trashseparator "github.com/weedkat/trash-separator"
	"github.com/weedkat/trash-separator/config"
	"github.com/weedkat/trash-separator/controller"
	"github.com/weedkat/trash-separator/hardware/serialbridge"
)

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		elapsed    time.Duration
		showMillis bool
		expected   string
	}{
		{0, false, "00:00"},
		{0, true, "00:00.000"},
		{61*time.Second + 250*time.Millisecond, false, "01:01"},
		{61*time.Second + 250*time.Millisecond, true, "01:01.250"},
		{75 * time.Minute, false, "75:00"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatElapsed(tt.elapsed, tt.showMillis))
		})
	}
}

func TestStatePresentation(t *testing.T) {
	states := []controller.State{
		controller.StateIdle,
		controller.StateHoming,
		controller.StateExecuting,
		controller.StateStallRecovery,
		controller.StateFaulted,
	}

	for _, s := range states {
		t.Run(s.String(), func(t *testing.T) {
			assert.NotEqual(t, "Unknown", stateTitle(s))
			assert.Equal(t, s == controller.StateIdle, accepting(s))
		})
	}

	assert.Equal(t, colorFaulted, stateColor(controller.StateFaulted))
	assert.Equal(t, colorIdle, stateColor(controller.StateIdle))
}

func TestLogLines(t *testing.T) {
	l := newLogLines(3)
	for i := range 5 {
		l.Add(fmt.Sprintf("line %d", i))
	}

	assert.Equal(t, "line 2\nline 3\nline 4", l.String())
}

func TestFormApply(t *testing.T) {
	base := config.Default()

	tests := []struct {
		name    string
		form    form
		wantErr bool
		check   func(*testing.T, config.App)
	}{
		{
			"Sim",
			form{backend: "sim", port: serialbridge.PortNone, baud: ""},
			false,
			func(t *testing.T, app config.App) {
				assert.Equal(t, config.BackendSim, app.Backend)
			},
		},
		{
			"Serial",
			form{backend: "serial", port: "/dev/ttyACM0", baud: "57600"},
			false,
			func(t *testing.T, app config.App) {
				assert.Equal(t, config.BackendSerial, app.Backend)
				assert.Equal(t, "/dev/ttyACM0", app.Serial.Port)
				assert.Equal(t, 57600, app.Serial.Baud)
			},
		},
		{"SerialWithoutPort", form{backend: "serial", port: serialbridge.PortNone, baud: "115200"}, true, nil},
		{"SerialBadBaud", form{backend: "serial", port: "/dev/ttyACM0", baud: "fast"}, true, nil},
		{"UnknownBackend", form{backend: "plc"}, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, err := tt.form.apply(base)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, app)
		})
	}
}

type fakeMachine struct {
	mtx      sync.Mutex
	calls    []string
	routeErr error
}

func (f *fakeMachine) record(call string) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeMachine) Start(context.Context) error {
	f.record("start")
	return nil
}

func (f *fakeMachine) Route(_ context.Context, category string) error {
	f.record("route " + category)
	return f.routeErr
}

func (f *fakeMachine) Execute(_ context.Context, m trashseparator.Maneuver) error {
	f.record("execute " + m.String())
	return nil
}

func (f *fakeMachine) Reset(context.Context) error {
	f.record("reset")
	return nil
}

func (f *fakeMachine) Status() controller.Status {
	return controller.Status{}
}

func (f *fakeMachine) Categories() []string {
	return []string{"B3"}
}

func TestActions(t *testing.T) {
	machine := &fakeMachine{routeErr: errors.New("controller busy")}

	var mtx sync.Mutex
	var reports []string
	a := &actions{
		ctx:     context.Background(),
		machine: machine,
		report: func(msg string) {
			mtx.Lock()
			defer mtx.Unlock()
			reports = append(reports, msg)
		},
	}

	a.Home()
	a.Wait()
	a.Route("B3")
	a.Wait()
	a.Execute(trashseparator.ManeuverFront)
	a.Wait()
	a.Reset()
	a.Wait()

	assert.Equal(t, []string{"start", "route B3", "execute front", "reset"}, machine.calls)
	assert.Equal(t, []string{"route B3 failed: controller busy"}, reports)
}
