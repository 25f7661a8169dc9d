// Package config holds the robot's tunables.  Everything has a compiled-in
// default; /cfg/bumperbot.yaml may override any of it.
package config

import (
	"io/ioutil"
	"os"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
	"periph.io/x/periph/conn/physic"

	"github.com/tigerbot-team/bumperbot/pkg/clock"
	"github.com/tigerbot-team/bumperbot/pkg/collision"
	"github.com/tigerbot-team/bumperbot/pkg/lsm303"
	"github.com/tigerbot-team/bumperbot/pkg/motor"
	"github.com/tigerbot-team/bumperbot/pkg/pca9685"
	"github.com/tigerbot-team/bumperbot/pkg/sample"
)

const (
	DefaultPath  = "/cfg/bumperbot.yaml"
	DefaultInUse = "/cfg/bumperbot-in-use.yaml"
)

type Bus struct {
	// Backend is "periph" or "devfs".
	Backend string `yaml:"backend"`
	Device  string `yaml:"device"`
}

type Clock struct {
	TickHz int `yaml:"tick_hz"`
}

type Accel struct {
	RateHz int `yaml:"rate_hz"`
}

type Mag struct {
	Enabled bool    `yaml:"enabled"`
	RateHz  float64 `yaml:"rate_hz"`
}

type PWM struct {
	FrequencyHz int `yaml:"frequency_hz"`
}

type Motors struct {
	Wiring string `yaml:"wiring"`
}

type Control struct {
	Threshold   int32  `yaml:"threshold"`
	SettleTicks uint32 `yaml:"settle_ticks"`
	DriveSpeed  uint16 `yaml:"drive_speed"`
	CycleTicks  uint32 `yaml:"cycle_ticks"`
	MeanMode    string `yaml:"mean_mode"`
	Symmetric   bool   `yaml:"symmetric"`
}

type Indicator struct {
	// GPIOPins are the LEDs N, NE, E, SE, S, SW, W, NW.  Empty disables
	// the LED ring.
	GPIOPins []string `yaml:"gpio_pins"`
	// ScreenDevice is a framebuffer to draw the dial on; empty disables it.
	ScreenDevice string `yaml:"screen_device"`
}

type Sound struct {
	Bump string `yaml:"bump"`
}

type Telemetry struct {
	// SerialDevice is a UART for event lines; empty disables telemetry.
	SerialDevice string `yaml:"serial_device"`
	BaudRate     int    `yaml:"baud_rate"`
}

type Config struct {
	Bus       Bus       `yaml:"bus"`
	Clock     Clock     `yaml:"clock"`
	Accel     Accel     `yaml:"accel"`
	Mag       Mag       `yaml:"mag"`
	PWM       PWM       `yaml:"pwm"`
	Motors    Motors    `yaml:"motors"`
	Control   Control   `yaml:"control"`
	Indicator Indicator `yaml:"indicator"`
	Sound     Sound     `yaml:"sound"`
	Telemetry Telemetry `yaml:"telemetry"`
}

func Default() *Config {
	return &Config{
		Bus:   Bus{Backend: "periph", Device: "/dev/i2c-1"},
		Clock: Clock{TickHz: 1000},
		Accel: Accel{RateHz: 400},
		Mag:   Mag{Enabled: true, RateHz: 75},
		PWM:   PWM{FrequencyHz: 1000},
		Motors: Motors{
			Wiring: "default",
		},
		Control: Control{
			Threshold:   collision.DefaultThreshold,
			SettleTicks: collision.DefaultSettleTicks,
			DriveSpeed:  collision.DefaultDriveSpeed,
			MeanMode:    sample.MeanSkipNewest.String(),
		},
		Indicator: Indicator{
			GPIOPins: []string{"GPIO5", "GPIO6", "GPIO13", "GPIO19", "GPIO26", "GPIO16", "GPIO20", "GPIO21"},
		},
		Sound:     Sound{Bump: "/sounds/bump.wav"},
		Telemetry: Telemetry{BaudRate: 115200},
	}
}

// Load overlays the file at path on the defaults.  A missing file is not an
// error.
func Load(path string) (*Config, error) {
	c := Default()
	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		glog.Infof("No config at %s, using defaults", path)
		return c, c.Validate()
	} else if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config in %s", path)
	}
	return c, nil
}

// WriteInUse records the effective config next to the one we loaded.
func (c *Config) WriteInUse(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshalling config")
	}
	return errors.Wrap(ioutil.WriteFile(path, data, 0666), "writing config")
}

func (c *Config) Validate() error {
	switch c.Bus.Backend {
	case "periph", "devfs":
	default:
		return errors.Errorf("unknown bus backend %q", c.Bus.Backend)
	}
	if c.Clock.TickHz < 1 {
		return errors.Errorf("tick rate must be at least 1Hz, got %d", c.Clock.TickHz)
	}
	if _, err := c.AccelRate(); err != nil {
		return err
	}
	if c.Mag.Enabled {
		if _, err := c.MagRate(); err != nil {
			return err
		}
	}
	if _, err := pca9685.Prescale(c.PWMFrequency()); err != nil {
		return err
	}
	w, err := motor.WiringByName(c.Motors.Wiring)
	if err != nil {
		return err
	}
	if err := w.Validate(); err != nil {
		return err
	}
	if c.Control.Threshold <= 0 {
		return errors.New("collision threshold must be positive")
	}
	if c.Control.DriveSpeed > pca9685.PWMMax {
		return errors.Errorf("drive speed 0x%x exceeds 0x%x", c.Control.DriveSpeed, pca9685.PWMMax)
	}
	if _, err := sample.ParseMeanMode(c.Control.MeanMode); err != nil {
		return err
	}
	if c.Telemetry.BaudRate < 0 {
		return errors.Errorf("bad baud rate %d", c.Telemetry.BaudRate)
	}
	if n := len(c.Indicator.GPIOPins); n != 0 && n != 8 {
		return errors.Errorf("indicator needs 8 GPIO pins, got %d", n)
	}
	return nil
}

func (c *Config) TickRate() physic.Frequency {
	return physic.Frequency(c.Clock.TickHz) * physic.Hertz
}

func (c *Config) AccelRate() (lsm303.AccelRate, error) {
	return lsm303.AccelRateForHz(c.Accel.RateHz)
}

func (c *Config) MagRate() (lsm303.MagRate, error) {
	return lsm303.MagRateForHz(c.Mag.RateHz)
}

func (c *Config) PWMFrequency() physic.Frequency {
	return physic.Frequency(c.PWM.FrequencyHz) * physic.Hertz
}

func (c *Config) Wiring() (motor.Wiring, error) {
	return motor.WiringByName(c.Motors.Wiring)
}

// Collision converts the control section for the controller.
func (c *Config) Collision() (collision.Config, error) {
	mode, err := sample.ParseMeanMode(c.Control.MeanMode)
	if err != nil {
		return collision.Config{}, err
	}
	return collision.Config{
		Threshold:   c.Control.Threshold,
		SettleTicks: clock.Tick(c.Control.SettleTicks),
		DriveSpeed:  c.Control.DriveSpeed,
		CycleTicks:  clock.Tick(c.Control.CycleTicks),
		MeanMode:    mode,
		Symmetric:   c.Control.Symmetric,
	}, nil
}
