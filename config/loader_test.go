package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	trashseparator "github.com/weedkat/trash-separator"
	"github.com/weedkat/trash-separator/controller"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{EnvBackend, EnvSerialPort, EnvHTTPAddr, EnvLogLevel} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	app, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), app)
}

func TestLoadExampleMatchesDefaults(t *testing.T) {
	clearEnv(t)

	app, err := Load(filepath.Join("..", "config.example.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), app)
}

func TestLoadOverride(t *testing.T) {
	clearEnv(t)

	app, err := Load(filepath.Join("testdata", "override.yaml"))
	require.NoError(t, err)

	assert.Equal(t, BackendSerial, app.Backend)
	assert.Equal(t, "/dev/ttyACM0", app.Serial.Port)
	assert.Equal(t, 115200, app.Serial.Baud)
	assert.Equal(t, "debug", app.Log.Level)
	assert.Equal(t, "json", app.Log.Format)

	top := app.Controller.Top.Presets
	assert.Equal(t, int16(1580), top[controller.PresetSlowCW])
	assert.Equal(t, int16(1220), top[controller.PresetSlowCCW])
	assert.Equal(t, int16(1400), top[controller.PresetStop], "presets not in the file keep their defaults")
	assert.Equal(t, controller.DefaultBottomServo(), app.Controller.Bottom)

	assert.Equal(t, 3*time.Second, app.Controller.Calibration.StuckTime)
	assert.Equal(t, 10*time.Millisecond, app.Controller.Calibration.PollInterval)
	assert.Equal(t, 2, app.Controller.Calibration.MaxRecoveries)

	assert.Equal(t, map[string]trashseparator.Maneuver{
		"Kaca":   trashseparator.ManeuverFront,
		"Kertas": trashseparator.ManeuverBackLeft,
	}, app.Controller.Routes)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		file    string
		wantErr string
	}{
		{"missing.yaml", "no such file"},
		{"unknown_field.yaml", "stuck_tme"},
		{"bad_preset.yaml", "servos.top.presets"},
		{"bad_route.yaml", "routes.B3"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			_, err := Load(filepath.Join("testdata", tt.file))
			require.Error(t, err)
			assert.ErrorIs(t, err, controller.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvBackend, "RPI")
	t.Setenv(EnvSerialPort, "/dev/ttyUSB1")
	t.Setenv(EnvHTTPAddr, "127.0.0.1:9000")
	t.Setenv(EnvLogLevel, "warn")

	app, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, BackendRPi, app.Backend)
	assert.Equal(t, "/dev/ttyUSB1", app.Serial.Port)
	assert.Equal(t, "127.0.0.1:9000", app.HTTP.Addr)
	assert.Equal(t, "warn", app.Log.Level)
}

func TestApplyEnvInvalid(t *testing.T) {
	tests := map[string]string{
		EnvBackend:  "arduino",
		EnvLogLevel: "chatty",
	}

	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			app := Default()
			err := ApplyEnv(&app, func(key string) (string, bool) {
				if key == name {
					return value, true
				}
				return "", false
			})
			assert.ErrorIs(t, err, controller.ErrConfiguration)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	clearEnv(t)

	app := Default()
	app.Backend = BackendRPi
	app.Controller.Calibration.StuckTime = 4 * time.Second
	app.Controller.Routes = map[string]trashseparator.Maneuver{"Logam": trashseparator.ManeuverFrontLeft}

	data, err := Marshal(app)
	require.NoError(t, err)
	assert.Contains(t, string(data), "stuck_time: 4s")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, app, loaded)
}
