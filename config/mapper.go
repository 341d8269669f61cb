package config

import (
	"fmt"
	"strings"
	"time"

	trashseparator "github.com/weedkat/trash-separator"
	"github.com/weedkat/trash-separator/controller"
	"github.com/weedkat/trash-separator/logger"
)

// MapApp validates a decoded file and converts it to an App. path is only used in errors
func MapApp(path string, y YAMLApp) (App, error) {
	backend, err := ParseBackend(y.Backend)
	if err != nil {
		return App{}, invalidField(path, "backend", err.Error())
	}

	rpi, err := mapRPi(path, y.RPi)
	if err != nil {
		return App{}, err
	}

	timeout, err := parseDuration(path, "serial.timeout", y.Serial.Timeout)
	if err != nil {
		return App{}, err
	}
	if y.Serial.Baud <= 0 {
		return App{}, invalidField(path, "serial.baud", "must be positive")
	}

	if strings.TrimSpace(y.HTTP.Addr) == "" {
		return App{}, invalidField(path, "http.addr", "address is required")
	}

	_, err = logger.ParseLevel(y.Log.Level)
	if err != nil {
		return App{}, invalidField(path, "log.level", err.Error())
	}
	switch strings.ToLower(y.Log.Format) {
	case "", "text", "json":
	default:
		return App{}, invalidField(path, "log.format", fmt.Sprintf("unsupported format %q", y.Log.Format))
	}

	top, err := mapServo(path, "servos.top", y.Servos.Top)
	if err != nil {
		return App{}, err
	}
	bottom, err := mapServo(path, "servos.bottom", y.Servos.Bottom)
	if err != nil {
		return App{}, err
	}

	cal, err := mapCalibration(path, y.Calibration)
	if err != nil {
		return App{}, err
	}

	routes, err := mapRoutes(path, y.Routes)
	if err != nil {
		return App{}, err
	}

	return App{
		Backend: backend,
		RPi:     rpi,
		Serial: Serial{
			Port:    strings.TrimSpace(y.Serial.Port),
			Baud:    y.Serial.Baud,
			Timeout: timeout,
		},
		HTTP: HTTP{Addr: y.HTTP.Addr},
		Log: logger.Config{
			Level:  y.Log.Level,
			Format: strings.ToLower(y.Log.Format),
			Path:   y.Log.Path,
		},
		Controller: controller.Config{
			Top:         top,
			Bottom:      bottom,
			Calibration: cal,
			Routes:      routes,
		},
	}, nil
}

// ToYAML converts an App back to its file form
func ToYAML(a App) YAMLApp {
	cal := a.Controller.Calibration

	routes := make(map[string]string, len(a.Controller.Routes))
	for category, m := range a.Controller.Routes {
		routes[category] = m.String()
	}

	return YAMLApp{
		Backend: string(a.Backend),
		RPi: YAMLRPi{
			TopPin:        a.RPi.TopPin,
			BottomPin:     a.RPi.BottomPin,
			HomePin:       a.RPi.HomePin,
			HomeDriver:    string(a.RPi.HomeDriver),
			Chip:          a.RPi.Chip,
			HomeActiveLow: a.RPi.HomeActiveLow,
		},
		Serial: YAMLSerial{
			Port:    a.Serial.Port,
			Baud:    a.Serial.Baud,
			Timeout: a.Serial.Timeout.String(),
		},
		HTTP: YAMLHTTP{Addr: a.HTTP.Addr},
		Log: YAMLLog{
			Level:  a.Log.Level,
			Format: a.Log.Format,
			Path:   a.Log.Path,
		},
		Servos: YAMLServos{
			Top:    servoToYAML(a.Controller.Top),
			Bottom: servoToYAML(a.Controller.Bottom),
		},
		Calibration: YAMLCalibration{
			StuckTime:            cal.StuckTime.String(),
			PollInterval:         cal.PollInterval.String(),
			SoftStopSettle:       cal.SoftStopSettle.String(),
			SoftStopCounterPulse: cal.SoftStopCounterPulse.String(),
			SoftStopTail:         cal.SoftStopTail.String(),
			HardStopSettle:       cal.HardStopSettle.String(),
			TopSpinTime:          cal.TopSpinTime.String(),
			BottomTravelTime:     cal.BottomTravelTime.String(),
			FrontHoldDelay:       cal.FrontHoldDelay.String(),
			UnjamReverse:         cal.UnjamReverse.String(),
			UnjamBurst:           cal.UnjamBurst.String(),
			MaxRecoveries:        cal.MaxRecoveries,
			MaxHomingPasses:      cal.MaxHomingPasses,
		},
		Routes: routes,
	}
}

func mapRPi(path string, y YAMLRPi) (RPi, error) {
	driver := HomeDriver(strings.ToLower(strings.TrimSpace(y.HomeDriver)))
	switch driver {
	case HomeDriverRPIO, HomeDriverGPIOCDev:
	default:
		return RPi{}, invalidField(path, "rpi.home_driver", fmt.Sprintf("unsupported driver %q", y.HomeDriver))
	}

	pins := map[string]int{
		"rpi.top_pin":    y.TopPin,
		"rpi.bottom_pin": y.BottomPin,
		"rpi.home_pin":   y.HomePin,
	}
	for field, pin := range pins {
		if pin < 0 || pin > 27 {
			return RPi{}, invalidField(path, field, fmt.Sprintf("BCM pin %d out of range", pin))
		}
	}
	if y.TopPin == y.BottomPin {
		return RPi{}, invalidField(path, "rpi.bottom_pin", "top and bottom servos share a pin")
	}

	return RPi{
		TopPin:        y.TopPin,
		BottomPin:     y.BottomPin,
		HomePin:       y.HomePin,
		HomeDriver:    driver,
		Chip:          y.Chip,
		HomeActiveLow: y.HomeActiveLow,
	}, nil
}

func mapServo(path, field string, y YAMLServo) (controller.ServoConfig, error) {
	kind, err := controller.ParseAxisKind(y.Kind)
	if err != nil {
		return controller.ServoConfig{}, invalidField(path, field+".kind", err.Error())
	}

	presets := make(map[controller.Preset]int16, len(y.Presets))
	for name, us := range y.Presets {
		p, err := controller.ParsePreset(name)
		if err != nil {
			return controller.ServoConfig{}, invalidField(path, field+".presets", err.Error())
		}
		presets[p] = us
	}

	// validated here so a bad table is reported against the file
	_, err = controller.NewProfile(field, kind, presets)
	if err != nil {
		return controller.ServoConfig{}, invalidField(path, field+".presets", err.Error())
	}

	return controller.ServoConfig{Kind: kind, Presets: presets}, nil
}

func servoToYAML(s controller.ServoConfig) YAMLServo {
	presets := make(map[string]int16, len(s.Presets))
	for p, us := range s.Presets {
		presets[p.String()] = us
	}
	return YAMLServo{Kind: s.Kind.String(), Presets: presets}
}

func mapCalibration(path string, y YAMLCalibration) (controller.CalibrationConfig, error) {
	cal := controller.CalibrationConfig{
		MaxRecoveries:   y.MaxRecoveries,
		MaxHomingPasses: y.MaxHomingPasses,
	}

	durations := []struct {
		field string
		in    string
		out   *time.Duration
	}{
		{"stuck_time", y.StuckTime, &cal.StuckTime},
		{"poll_interval", y.PollInterval, &cal.PollInterval},
		{"soft_stop_settle", y.SoftStopSettle, &cal.SoftStopSettle},
		{"soft_stop_counter_pulse", y.SoftStopCounterPulse, &cal.SoftStopCounterPulse},
		{"soft_stop_tail", y.SoftStopTail, &cal.SoftStopTail},
		{"hard_stop_settle", y.HardStopSettle, &cal.HardStopSettle},
		{"top_spin_time", y.TopSpinTime, &cal.TopSpinTime},
		{"bottom_travel_time", y.BottomTravelTime, &cal.BottomTravelTime},
		{"front_hold_delay", y.FrontHoldDelay, &cal.FrontHoldDelay},
		{"unjam_reverse", y.UnjamReverse, &cal.UnjamReverse},
		{"unjam_burst", y.UnjamBurst, &cal.UnjamBurst},
	}
	for _, d := range durations {
		v, err := parseDuration(path, "calibration."+d.field, d.in)
		if err != nil {
			return controller.CalibrationConfig{}, err
		}
		*d.out = v
	}

	err := cal.Validate()
	if err != nil {
		return controller.CalibrationConfig{}, invalidField(path, "calibration", err.Error())
	}

	return cal, nil
}

func mapRoutes(path string, in map[string]string) (map[string]trashseparator.Maneuver, error) {
	if in == nil {
		return controller.DefaultRoutes(), nil
	}
	if len(in) == 0 {
		return nil, invalidField(path, "routes", "at least one route is required")
	}

	routes := make(map[string]trashseparator.Maneuver, len(in))
	for category, name := range in {
		m, err := trashseparator.ParseManeuver(name)
		if err != nil {
			return nil, invalidField(path, "routes."+category, err.Error())
		}
		routes[category] = m
	}

	_, err := controller.NewDispatcher(routes)
	if err != nil {
		return nil, invalidField(path, "routes", err.Error())
	}

	return routes, nil
}

func parseDuration(path, field, s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, invalidField(path, field, "duration is required")
	}
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, invalidField(path, field, err.Error())
	}
	return d, nil
}

func invalidField(path, field, msg string) error {
	err := fmt.Errorf("field %s: %s", field, msg)
	if path != "" {
		err = fmt.Errorf("%s: %w", path, err)
	}
	return &controller.Error{
		Op:   "config.map",
		Kind: controller.KindConfiguration,
		Err:  err,
	}
}
