package ui

import (
	"errors"
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/weedkat/trash-separator/config"
	"github.com/weedkat/trash-separator/hardware/serialbridge"
)

const (
	prefBackend    = "backend"
	prefSerialPort = "serialPort"
	prefBaudRate   = "baudRate"
)

// ConfigWindow picks the backend and serial port before the machine is opened
type ConfigWindow struct {
	app      fyne.App
	OnSubmit func(config.App)
}

func NewConfigWindow(app fyne.App) *ConfigWindow {
	return &ConfigWindow{
		app: app,
	}
}

// form holds the values being edited
type form struct {
	backend string
	port    string
	baud    string
}

func (cw *ConfigWindow) loadFromPreferences(cfg config.App) form {
	prefs := cw.app.Preferences()
	port := cfg.Serial.Port
	if port == "" {
		port = serialbridge.PortNone
	}
	return form{
		backend: prefs.StringWithFallback(prefBackend, string(cfg.Backend)),
		port:    prefs.StringWithFallback(prefSerialPort, port),
		baud:    prefs.StringWithFallback(prefBaudRate, strconv.Itoa(cfg.Serial.Baud)),
	}
}

func (cw *ConfigWindow) saveToPreferences(f form) {
	prefs := cw.app.Preferences()
	prefs.SetString(prefBackend, f.backend)
	prefs.SetString(prefSerialPort, f.port)
	prefs.SetString(prefBaudRate, f.baud)
}

// apply validates f and copies it onto cfg
func (f form) apply(cfg config.App) (config.App, error) {
	backend, err := config.ParseBackend(f.backend)
	if err != nil {
		return config.App{}, err
	}
	cfg.Backend = backend

	if backend != config.BackendSerial {
		return cfg, nil
	}

	if f.port == "" || f.port == serialbridge.PortNone {
		return config.App{}, errors.New("the serial backend needs a serial port")
	}

	baud, err := strconv.Atoi(f.baud)
	if err != nil || baud <= 0 {
		return config.App{}, fmt.Errorf("invalid baud rate %q", f.baud)
	}

	cfg.Serial.Port = f.port
	cfg.Serial.Baud = baud
	return cfg, nil
}

func (cw *ConfigWindow) Show(cfg config.App) {
	window := cw.app.NewWindow("Trash Separator - Configuration")
	window.Resize(fyne.NewSize(400, 200))
	window.SetCloseIntercept(func() {
		// Treat window close as cancel
		window.Close()
		cw.app.Quit()
	})
	window.Show()

	f := cw.loadFromPreferences(cfg)

	serialPorts, err := serialbridge.PortNames()
	if err != nil && !errors.Is(err, serialbridge.ErrNoUSBSerial) {
		showError(cw.app, window, fmt.Errorf("error getting serial ports: %w", err))
		return
	}
	serialPorts = append(serialPorts, serialbridge.PortNone)

	errLabel := widget.NewLabel("")

	submitButton := widget.NewButton("Submit", func() {
		app, err := f.apply(cfg)
		if err != nil {
			errLabel.SetText(err.Error())
			return
		}
		cw.saveToPreferences(f)
		window.Close()
		cw.OnSubmit(app)
	})

	validateForm := func() {
		_, err := f.apply(cfg)
		if err != nil {
			errLabel.SetText(err.Error())
			submitButton.Disable()
			return
		}
		errLabel.SetText("")
		submitButton.Enable()
	}

	backendSelect := widget.NewSelect([]string{
		string(config.BackendSim),
		string(config.BackendRPi),
		string(config.BackendSerial),
	}, nil)
	backendSelect.SetSelected(f.backend)

	serialSelect := widget.NewSelect(serialPorts, nil)
	serialSelect.SetSelected(f.port)

	baudRateEntry := widget.NewEntry()
	baudRateEntry.SetText(f.baud)

	// Add listeners to field changes
	backendSelect.OnChanged = func(s string) {
		f.backend = s
		validateForm()
	}
	serialSelect.OnChanged = func(s string) {
		f.port = s
		validateForm()
	}
	baudRateEntry.OnChanged = func(s string) {
		f.baud = s
		validateForm()
	}

	// Initial validation
	validateForm()

	content := container.NewVBox(
		widget.NewCard("Configuration", "", container.NewVBox(
			container.NewGridWithColumns(2,
				widget.NewLabel("Backend:"),
				backendSelect,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("Serial Port:"),
				serialSelect,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("Baud Rate:"),
				baudRateEntry,
			),
		)),
		errLabel,
		container.NewHBox(
			widget.NewButton("Cancel", func() {
				window.Close()
				cw.app.Quit()
			}),
			submitButton,
		),
	)

	window.SetContent(content)
}

func showError(app fyne.App, window fyne.Window, err error) {
	d := dialog.NewError(err, window)
	d.SetOnClosed(func() {
		app.Quit()
	})
	d.Show()
}
