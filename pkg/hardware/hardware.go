package hardware

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/tigerbot-team/bumperbot/pkg/clock"
	"github.com/tigerbot-team/bumperbot/pkg/collision"
	"github.com/tigerbot-team/bumperbot/pkg/config"
	"github.com/tigerbot-team/bumperbot/pkg/dial"
	"github.com/tigerbot-team/bumperbot/pkg/i2cbus"
	"github.com/tigerbot-team/bumperbot/pkg/lsm303"
	"github.com/tigerbot-team/bumperbot/pkg/motor"
	"github.com/tigerbot-team/bumperbot/pkg/pca9685"
	"github.com/tigerbot-team/bumperbot/pkg/regbus"
	"github.com/tigerbot-team/bumperbot/pkg/screen"
	"github.com/tigerbot-team/bumperbot/pkg/sound"
	"github.com/tigerbot-team/bumperbot/pkg/telemetry"
)

type Hardware struct {
	cfg *config.Config

	bus    regbus.Bus
	closer io.Closer

	timer *clock.TickerTimer
	clock *clock.Clock

	accel  *lsm303.Accel
	mag    *lsm303.Mag
	pwm    *pca9685.PCA9685
	motors *motor.Motors

	indicator dial.Multi
	screen    *screen.Screen
	player    *sound.Player
	telemetry *telemetry.Writer
}

var _ Interface = (*Hardware)(nil)

// New opens the configured bus and brings up every device on it.
func New(cfg *config.Config) (*Hardware, error) {
	bus, err := i2cbus.Open(cfg.Bus.Backend, cfg.Bus.Device)
	if err != nil {
		return nil, err
	}
	h, err := NewWithBus(cfg, bus)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	h.closer = bus
	return h, nil
}

// NewWithBus brings up the devices on an already-open bus.  The accelerometer,
// PWM chip and motors are required; the compass, indicator, screen and sound
// are optional and only logged if they fail.
func NewWithBus(cfg *config.Config, bus regbus.Bus) (_ *Hardware, err error) {
	h := &Hardware{
		cfg:   cfg,
		bus:   bus,
		timer: clock.NewTickerTimer(),
	}
	defer func() {
		if err != nil {
			h.timer.Stop()
		}
	}()

	h.clock, err = clock.New(h.timer, clock.Config{Rate: cfg.TickRate()})
	if err != nil {
		return nil, err
	}

	if cfg.Mag.Enabled {
		if magRate, err := cfg.MagRate(); err != nil {
			glog.Warningf("Compass disabled: %v", err)
		} else if h.mag, err = lsm303.NewMag(bus, magRate); err != nil {
			glog.Warningf("Compass disabled: %v", err)
		}
	}

	accelRate, err := cfg.AccelRate()
	if err != nil {
		return nil, err
	}
	if h.accel, err = lsm303.NewAccel(bus, accelRate); err != nil {
		return nil, err
	}

	h.pwm = pca9685.New(bus)
	if err = h.pwm.Init(); err != nil {
		return nil, err
	}
	if err = h.pwm.SetFrequency(cfg.PWMFrequency(), h.clock); err != nil {
		return nil, errors.Wrap(err, "setting PWM frequency")
	}

	wiring, err := cfg.Wiring()
	if err != nil {
		return nil, err
	}
	if h.motors, err = motor.New(h.pwm, wiring); err != nil {
		return nil, err
	}

	if len(cfg.Indicator.GPIOPins) > 0 {
		if leds, err := dial.Open(cfg.Indicator.GPIOPins); err != nil {
			glog.Warningf("LED ring disabled: %v", err)
		} else {
			h.indicator = append(h.indicator, leds)
		}
	}
	if cfg.Indicator.ScreenDevice != "" {
		h.screen = screen.New(cfg.Indicator.ScreenDevice)
		h.indicator = append(h.indicator, h.screen)
	}
	if cfg.Sound.Bump != "" {
		h.player = sound.Init()
	}
	if cfg.Telemetry.SerialDevice != "" {
		if h.telemetry, err = telemetry.OpenSerial(cfg.Telemetry.SerialDevice, cfg.Telemetry.BaudRate); err != nil {
			glog.Warningf("Telemetry disabled: %v", err)
			h.telemetry, err = nil, nil
		}
	}
	glog.Info("Hardware initialised")
	return h, nil
}

func (h *Hardware) Start(ctx context.Context) {
	if h.screen != nil {
		go h.screen.Loop(ctx, 100*time.Millisecond)
	}
}

func (h *Hardware) Clock() clock.TimeSource {
	return h.clock
}

func (h *Hardware) Motors() motor.Interface {
	return h.motors
}

func (h *Hardware) Indicator() dial.Interface {
	return h.indicator
}

func (h *Hardware) Accel() Sensor {
	return h.accel
}

func (h *Hardware) Compass() Sensor {
	if h.mag == nil {
		return nil
	}
	return h.mag
}

func (h *Hardware) Controller() (*collision.Controller, error) {
	cc, err := h.cfg.Collision()
	if err != nil {
		return nil, err
	}
	c := collision.New(cc, h.accel, h.motors, h.clock)
	if len(h.indicator) > 0 {
		c.SetIndicator(h.indicator)
	}
	if h.mag != nil {
		c.SetCompass(h.mag)
	}
	c.OnCollision(func(e collision.Event) {
		if h.screen != nil {
			h.screen.SetStatus(fmt.Sprintf("%d %v", e.Count, e.State))
		}
		if h.telemetry != nil {
			if err := h.telemetry.Collision(e); err != nil {
				glog.Warningf("Telemetry write failed: %v", err)
			}
		}
		if h.cfg.Sound.Bump != "" {
			h.PlaySound(h.cfg.Sound.Bump)
		}
	})
	return c, nil
}

func (h *Hardware) PlaySound(path string) {
	if h.player == nil {
		glog.V(1).Infof("No sound player, skipping %s", path)
		return
	}
	h.player.Play(path)
}

func (h *Hardware) Shutdown() {
	glog.Info("HW: Shutting down")
	if err := h.motors.AllOff(); err != nil {
		glog.Errorf("Failed to stop motors: %v", err)
	}
	if len(h.indicator) > 0 {
		if err := h.indicator.Reset(); err != nil {
			glog.Warningf("Failed to reset indicator: %v", err)
		}
	}
	h.clock.Stop()
	if n := h.timer.Missed(); n > 0 {
		glog.Warningf("Tick timer missed %d updates", n)
	}
	if h.player != nil {
		h.player.Close()
	}
	if h.telemetry != nil {
		_ = h.telemetry.Close()
	}
	if h.closer != nil {
		if err := h.closer.Close(); err != nil {
			glog.Warningf("Failed to close bus: %v", err)
		}
	}
}
