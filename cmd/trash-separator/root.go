package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	trashseparator "github.com/weedkat/trash-separator"
	"github.com/weedkat/trash-separator/config"
	"github.com/weedkat/trash-separator/controller"
	"github.com/weedkat/trash-separator/hardware/rpi"
	"github.com/weedkat/trash-separator/hardware/serialbridge"
	"github.com/weedkat/trash-separator/hardware/sim"
	"github.com/weedkat/trash-separator/logger"
)

type globalOptions struct {
	configPath string
	backend    string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:          "trash-separator",
		Short:        "Drive the two-axis waste sorting gate",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file (optional; built-in defaults if omitted)")
	cmd.PersistentFlags().StringVar(&opts.backend, "backend", "", "hardware backend: sim, rpi or serial (overrides the config file)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides the config file)")

	cmd.AddCommand(
		routeCmd(opts),
		maneuverCmd(opts),
		homeCmd(opts),
		resetCmd(opts),
		jogCmd(opts),
		runCmd(opts),
		serveCmd(opts),
		panelCmd(opts),
		portsCmd(),
		configCmd(opts),
		categoriesCmd(opts),
	)

	return cmd
}

// load reads the config file and applies the flags on top of it
func (o *globalOptions) load() (config.App, error) {
	app, err := config.Load(o.configPath)
	if err != nil {
		return config.App{}, err
	}

	if o.backend != "" {
		app.Backend, err = config.ParseBackend(o.backend)
		if err != nil {
			return config.App{}, err
		}
	}

	if o.logLevel != "" {
		_, err = logger.ParseLevel(o.logLevel)
		if err != nil {
			return config.App{}, err
		}
		app.Log.Level = strings.TrimSpace(o.logLevel)
	}

	return app, nil
}

// session is an opened machine
type session struct {
	app     config.App
	ctrl    *controller.Controller
	logger  *slog.Logger
	closers []func() error
}

// open loads the config, sets up logging and connects to the hardware
func (o *globalOptions) open(opts ...controller.Option) (*session, error) {
	app, err := o.load()
	if err != nil {
		return nil, err
	}
	return openSession(app, opts...)
}

func openSession(app config.App, opts ...controller.Option) (*session, error) {
	cleanup, err := logger.Setup(app.Log)
	if err != nil {
		return nil, err
	}

	s := &session{
		app:     app,
		logger:  logger.L(),
		closers: []func() error{cleanup},
	}

	hw, closeHW, err := openHardware(app, s.logger)
	if err != nil {
		return nil, errors.Join(err, s.close())
	}
	s.closers = append(s.closers, closeHW)

	opts = append([]controller.Option{controller.WithLogger(s.logger)}, opts...)
	s.ctrl, err = controller.New(hw, app.Controller, opts...)
	if err != nil {
		return nil, errors.Join(err, s.close())
	}

	s.logger.Info("machine ready", "backend", app.Backend)
	return s, nil
}

// Close releases both servos, then the hardware, then the log file
func (s *session) Close() error {
	var err error
	if s.ctrl != nil {
		err = s.ctrl.Shutdown()
	}
	return errors.Join(err, s.close())
}

func (s *session) close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}

// withSession opens the machine for the duration of fn
func (o *globalOptions) withSession(fn func(*session) error) (err error) {
	s, err := o.open()
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.Close())
	}()

	return fn(s)
}

func openHardware(app config.App, log *slog.Logger) (controller.Hardware, func() error, error) {
	switch app.Backend {
	case config.BackendSim:
		rig := sim.New(sim.DefaultConfig(), nil)
		return controller.Hardware{Top: rig.Top(), Bottom: rig.Bottom(), Home: rig}, func() error { return nil }, nil

	case config.BackendRPi:
		board, err := rpi.Open(rpi.Config{
			TopPin:        app.RPi.TopPin,
			BottomPin:     app.RPi.BottomPin,
			HomePin:       app.RPi.HomePin,
			UseGPIOCDev:   app.RPi.HomeDriver == config.HomeDriverGPIOCDev,
			Chip:          app.RPi.Chip,
			HomeActiveLow: app.RPi.HomeActiveLow,
		})
		if err != nil {
			return controller.Hardware{}, nil, err
		}
		return controller.Hardware{Top: board.Top, Bottom: board.Bottom, Home: board.Home}, board.Close, nil

	case config.BackendSerial:
		port := app.Serial.Port
		if port == "" {
			names, err := serialbridge.PortNames()
			if err != nil {
				return controller.Hardware{}, nil, err
			}
			port = names[0]
			log.Info("no serial port configured, using the first USB port", "port", port)
		}

		bridge, err := serialbridge.Open(port, app.Serial.Baud, app.Serial.Timeout)
		if err != nil {
			return controller.Hardware{}, nil, err
		}
		return controller.Hardware{
			Top:    bridge.Axis(trashseparator.AxisTop),
			Bottom: bridge.Axis(trashseparator.AxisBottom),
			Home:   bridge,
		}, bridge.Close, nil

	default:
		return controller.Hardware{}, nil, fmt.Errorf("unknown backend %q", app.Backend)
	}
}
