package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weedkat/trash-separator/config"
	"github.com/weedkat/trash-separator/controller"
)

type fakeLineController struct {
	routed []string
	resets int
}

func (f *fakeLineController) Route(_ context.Context, category string) error {
	f.routed = append(f.routed, category)
	if category == "Kaca" {
		return &controller.Error{Op: "controller.route", Kind: controller.KindUnknownCategory}
	}
	return nil
}

func (f *fakeLineController) Reset(context.Context) error {
	f.resets++
	return nil
}

func (f *fakeLineController) Status() controller.Status {
	return controller.Status{State: controller.StateIdle, LastManeuver: "back_left"}
}

func TestRunLoop(t *testing.T) {
	ctrl := &fakeLineController{}
	in := strings.NewReader("Residu\n\n  Kaca \nstatus\nRESET\nquit\nB3\n")
	var out bytes.Buffer

	require.NoError(t, runLoop(context.Background(), ctrl, in, &out))

	assert.Equal(t, []string{"Residu", "Kaca"}, ctrl.routed)
	assert.Equal(t, 1, ctrl.resets)

	text := out.String()
	assert.Contains(t, text, "ok: Residu (back_left)")
	assert.Contains(t, text, "error: controller.route: unknown_category")
	assert.Contains(t, text, `"state": "idle"`)
	assert.Contains(t, text, "ok: homed")
}

func TestRunLoopEndOfInput(t *testing.T) {
	ctrl := &fakeLineController{}
	var out bytes.Buffer

	require.NoError(t, runLoop(context.Background(), ctrl, strings.NewReader("Organik"), &out))
	assert.Equal(t, []string{"Organik"}, ctrl.routed)
}

type blockingReader struct {
	done chan struct{}
}

func (r blockingReader) Read([]byte) (int, error) {
	<-r.done
	return 0, errors.New("closed")
}

func TestRunLoopCancelled(t *testing.T) {
	r := blockingReader{done: make(chan struct{})}
	defer close(r.done)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	require.NoError(t, runLoop(ctx, &fakeLineController{}, r, &out))
}

func TestLoadFlags(t *testing.T) {
	t.Setenv(config.EnvBackend, "")
	t.Setenv(config.EnvLogLevel, "")

	t.Run("Defaults", func(t *testing.T) {
		app, err := (&globalOptions{}).load()
		require.NoError(t, err)
		assert.Equal(t, config.BackendSim, app.Backend)
	})

	t.Run("FlagsOverride", func(t *testing.T) {
		app, err := (&globalOptions{backend: "serial", logLevel: "debug"}).load()
		require.NoError(t, err)
		assert.Equal(t, config.BackendSerial, app.Backend)
		assert.Equal(t, "debug", app.Log.Level)
	})

	t.Run("InvalidBackend", func(t *testing.T) {
		_, err := (&globalOptions{backend: "plc"}).load()
		assert.Error(t, err)
	})

	t.Run("ConfigFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("backend: rpi\n"), 0o600))

		app, err := (&globalOptions{configPath: path}).load()
		require.NoError(t, err)
		assert.Equal(t, config.BackendRPi, app.Backend)
	})
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands(t *testing.T) {
	t.Setenv(config.EnvBackend, "")
	t.Setenv(config.EnvLogLevel, "")

	t.Run("Config", func(t *testing.T) {
		out, err := execute(t, "config")
		require.NoError(t, err)
		assert.Contains(t, out, "backend: sim")
		assert.Contains(t, out, "Daur Ulang: front_right")
	})

	t.Run("Categories", func(t *testing.T) {
		out, err := execute(t, "categories")
		require.NoError(t, err)
		assert.Contains(t, out, "Residu")
		assert.Contains(t, out, "back_left")
	})

	t.Run("UnknownManeuver", func(t *testing.T) {
		_, err := execute(t, "maneuver", "sideways")
		assert.Error(t, err)
	})

	t.Run("JogUnknownAxis", func(t *testing.T) {
		_, err := execute(t, "jog", "--axis", "middle")
		assert.ErrorIs(t, err, controller.ErrConfiguration)
	})
}
