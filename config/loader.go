package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/weedkat/trash-separator/controller"
	"github.com/weedkat/trash-separator/logger"
	"gopkg.in/yaml.v3"
)

const (
	EnvBackend    = "TRASH_SEPARATOR_BACKEND"
	EnvSerialPort = "TRASH_SEPARATOR_SERIAL_PORT"
	EnvHTTPAddr   = "TRASH_SEPARATOR_HTTP_ADDR"
	EnvLogLevel   = "TRASH_SEPARATOR_LOG_LEVEL"
)

// Load reads the YAML file at path on top of Default and applies the environment
// overrides. An empty path loads the defaults only. Routes in the file replace the
// default routes instead of being merged with them
func Load(path string) (App, error) {
	dto := ToYAML(Default())

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return App{}, &controller.Error{Op: "config.load", Kind: controller.KindConfiguration, Err: err}
		}

		dto, err = decode(path, b, dto)
		if err != nil {
			return App{}, err
		}
	}

	app, err := MapApp(path, dto)
	if err != nil {
		return App{}, err
	}

	err = ApplyEnv(&app, os.LookupEnv)
	if err != nil {
		return App{}, err
	}

	return app, nil
}

func decode(path string, b []byte, base YAMLApp) (YAMLApp, error) {
	defaultRoutes := base.Routes
	base.Routes = nil

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	err := dec.Decode(&base)
	if err != nil && !errors.Is(err, io.EOF) {
		return YAMLApp{}, &controller.Error{
			Op:   "config.load",
			Kind: controller.KindConfiguration,
			Err:  fmt.Errorf("%s: %w", path, err),
		}
	}

	if base.Routes == nil {
		base.Routes = defaultRoutes
	}
	return base, nil
}

// ApplyEnv overrides fields from the environment
func ApplyEnv(app *App, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvBackend); ok && v != "" {
		backend, err := ParseBackend(v)
		if err != nil {
			return envError(EnvBackend, err)
		}
		app.Backend = backend
	}

	if v, ok := lookup(EnvSerialPort); ok && v != "" {
		app.Serial.Port = strings.TrimSpace(v)
	}

	if v, ok := lookup(EnvHTTPAddr); ok && v != "" {
		app.HTTP.Addr = strings.TrimSpace(v)
	}

	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		_, err := logger.ParseLevel(v)
		if err != nil {
			return envError(EnvLogLevel, err)
		}
		app.Log.Level = strings.TrimSpace(v)
	}

	return nil
}

// Marshal renders the App as a YAML file that Load accepts
func Marshal(app App) ([]byte, error) {
	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	err := enc.Encode(ToYAML(app))
	if err != nil {
		return nil, err
	}
	err = enc.Close()
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func envError(name string, err error) error {
	return &controller.Error{
		Op:   "config.env",
		Kind: controller.KindConfiguration,
		Err:  fmt.Errorf("%s: %w", name, err),
	}
}
