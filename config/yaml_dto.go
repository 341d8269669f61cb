package config

type YAMLApp struct {
	Backend     string            `yaml:"backend"`
	RPi         YAMLRPi           `yaml:"rpi"`
	Serial      YAMLSerial        `yaml:"serial"`
	HTTP        YAMLHTTP          `yaml:"http"`
	Log         YAMLLog           `yaml:"log"`
	Servos      YAMLServos        `yaml:"servos"`
	Calibration YAMLCalibration   `yaml:"calibration"`
	Routes      map[string]string `yaml:"routes"`
}

type YAMLRPi struct {
	TopPin        int    `yaml:"top_pin"`
	BottomPin     int    `yaml:"bottom_pin"`
	HomePin       int    `yaml:"home_pin"`
	HomeDriver    string `yaml:"home_driver"`
	Chip          string `yaml:"chip"`
	HomeActiveLow bool   `yaml:"home_active_low"`
}

type YAMLSerial struct {
	Port    string `yaml:"port"`
	Baud    int    `yaml:"baud"`
	Timeout string `yaml:"timeout"`
}

type YAMLHTTP struct {
	Addr string `yaml:"addr"`
}

type YAMLLog struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Path   string `yaml:"path"`
}

type YAMLServos struct {
	Top    YAMLServo `yaml:"top"`
	Bottom YAMLServo `yaml:"bottom"`
}

type YAMLServo struct {
	Kind    string           `yaml:"kind"`
	Presets map[string]int16 `yaml:"presets"`
}

type YAMLCalibration struct {
	StuckTime            string `yaml:"stuck_time"`
	PollInterval         string `yaml:"poll_interval"`
	SoftStopSettle       string `yaml:"soft_stop_settle"`
	SoftStopCounterPulse string `yaml:"soft_stop_counter_pulse"`
	SoftStopTail         string `yaml:"soft_stop_tail"`
	HardStopSettle       string `yaml:"hard_stop_settle"`
	TopSpinTime          string `yaml:"top_spin_time"`
	BottomTravelTime     string `yaml:"bottom_travel_time"`
	FrontHoldDelay       string `yaml:"front_hold_delay"`
	UnjamReverse         string `yaml:"unjam_reverse"`
	UnjamBurst           string `yaml:"unjam_burst"`
	MaxRecoveries        int    `yaml:"max_recoveries"`
	MaxHomingPasses      int    `yaml:"max_homing_passes"`
}
