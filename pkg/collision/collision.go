// Package collision runs the bump-and-reverse loop: it watches the
// accelerometer for a jolt against its recent baseline and flips the drive
// direction whenever it sees one.
package collision

import (
	"context"
	"fmt"
	"math"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/quartercastle/vector"

	"github.com/tigerbot-team/bumperbot/pkg/clock"
	"github.com/tigerbot-team/bumperbot/pkg/lsm303"
	"github.com/tigerbot-team/bumperbot/pkg/motor"
	"github.com/tigerbot-team/bumperbot/pkg/sample"
)

type State int

const (
	Forward State = iota
	Backward
)

func (s State) String() string {
	if s == Forward {
		return "forward"
	}
	return "backward"
}

func (s State) Toggle() State {
	if s == Forward {
		return Backward
	}
	return Forward
}

func (s State) Direction() motor.Direction {
	if s == Forward {
		return motor.Forward
	}
	return motor.Backward
}

const (
	DefaultThreshold   = 10000
	DefaultSettleTicks = 1000
	DefaultDriveSpeed  = 0xe00
)

type Config struct {
	// Threshold is the per-axis deviation from the baseline that counts as a
	// collision, in raw accelerometer units.
	Threshold int32
	// SettleTicks is how long the motors are left off before reversing.
	SettleTicks clock.Tick
	DriveSpeed  uint16
	// CycleTicks paces the loop; zero means run flat out.
	CycleTicks clock.Tick
	MeanMode   sample.MeanMode
	// Symmetric compares the magnitude of each axis deviation.  Otherwise
	// only a positive deviation can trigger.
	Symmetric bool
}

func DefaultConfig() Config {
	return Config{
		Threshold:   DefaultThreshold,
		SettleTicks: DefaultSettleTicks,
		DriveSpeed:  DefaultDriveSpeed,
		MeanMode:    sample.MeanSkipNewest,
	}
}

// Detect reports whether any axis of live-mean exceeds threshold.  The
// comparison is on the signed difference unless symmetric is set, so by default
// a deceleration of any size along an axis is ignored.
func Detect(live, mean sample.Sample, threshold int32, symmetric bool) bool {
	for _, d := range sample.Sub(live, mean).Axes() {
		if symmetric && d < 0 {
			d = -d
		}
		if d > threshold {
			return true
		}
	}
	return false
}

// Magnitude scales the size of a deviation to 0-8 for the indicator, reaching
// 4 at the collision threshold.
func Magnitude(d sample.Delta, threshold int32) int {
	if threshold <= 0 {
		return 0
	}
	v := vector.Vector{float64(d.X), float64(d.Y), float64(d.Z)}
	m := int(math.Round(v.Magnitude() * 4 / float64(threshold)))
	if m > 8 {
		m = 8
	}
	return m
}

// Event describes one detected collision.
type Event struct {
	// Count is the number of collisions so far, including this one.
	Count     int
	State     State
	Deviation sample.Delta
}

type Accelerometer interface {
	ReadSample() (sample.Sample, error)
}

// Compass supplies the magnetometer reading used to point the indicator.
type Compass interface {
	ReadSample() (sample.Sample, error)
}

type Indicator interface {
	SetDirection(d int) error
	SetMagnitude(m int) error
}

type Controller struct {
	cfg    Config
	accel  Accelerometer
	motors motor.Interface
	src    clock.TimeSource

	compass     Compass
	indicator   Indicator
	onCollision func(Event)

	window     sample.Window
	state      State
	collisions int
}

func New(cfg Config, accel Accelerometer, motors motor.Interface, src clock.TimeSource) *Controller {
	return &Controller{
		cfg:    cfg,
		accel:  accel,
		motors: motors,
		src:    src,
		state:  Forward,
	}
}

func (c *Controller) SetIndicator(i Indicator) {
	c.indicator = i
}

// SetCompass makes the indicator show the compass heading after a collision
// rather than the size of the jolt.
func (c *Controller) SetCompass(m Compass) {
	c.compass = m
}

// OnCollision registers a callback, run after the motors have reversed.
func (c *Controller) OnCollision(f func(Event)) {
	c.onCollision = f
}

func (c *Controller) State() State {
	return c.state
}

func (c *Controller) Collisions() int {
	return c.collisions
}

func (c *Controller) Window() *sample.Window {
	return &c.window
}

// Start drives in the initial direction.
func (c *Controller) Start() error {
	glog.Infof("Starting %v at speed 0x%03x", c.state, c.cfg.DriveSpeed)
	return c.motors.DriveAll(c.state.Direction(), c.cfg.DriveSpeed)
}

// Step runs one control cycle.  A failure to read the accelerometer is
// returned; the controller must not keep driving on stale data.
func (c *Controller) Step() error {
	live, err := c.accel.ReadSample()
	if err != nil {
		return errors.Wrap(err, "reading accelerometer")
	}
	mean := c.window.Mean(c.cfg.MeanMode)
	if glog.V(2) {
		glog.Infof("live=%v mean=%v diff=%v", live, mean, sample.Sub(live, mean))
	}
	if Detect(live, mean, c.cfg.Threshold, c.cfg.Symmetric) {
		if err := c.reverse(sample.Sub(live, mean)); err != nil {
			return err
		}
	}
	c.window.Push(live)
	return nil
}

func (c *Controller) reverse(diff sample.Delta) error {
	c.state = c.state.Toggle()
	c.collisions++
	glog.Infof("Collision %d (deviation %v), now going %v", c.collisions, diff, c.state)

	if err := c.motors.AllOff(); err != nil {
		return errors.Wrap(err, "stopping motors")
	}
	clock.Wait(clock.NewDelay(c.cfg.SettleTicks, c.src), c.src)
	if err := c.motors.DriveAll(c.state.Direction(), c.cfg.DriveSpeed); err != nil {
		return errors.Wrapf(err, "driving %v", c.state)
	}

	// The indicator is for humans watching; a failed update is not worth
	// stopping for.
	if err := c.updateIndicator(diff); err != nil {
		glog.Warningf("Indicator update failed: %v", err)
	}
	if c.onCollision != nil {
		c.onCollision(Event{Count: c.collisions, State: c.state, Deviation: diff})
	}
	return nil
}

func (c *Controller) updateIndicator(diff sample.Delta) error {
	if c.indicator == nil {
		return nil
	}
	if c.compass != nil {
		m, err := c.compass.ReadSample()
		if err != nil {
			return errors.Wrap(err, "reading compass")
		}
		return c.indicator.SetDirection(lsm303.HeadingSector(m))
	}
	return c.indicator.SetMagnitude(Magnitude(diff, c.cfg.Threshold))
}

// Run steps the controller until ctx is done or a step fails, then stops the
// motors.
func (c *Controller) Run(ctx context.Context) (err error) {
	defer func() {
		if offErr := c.motors.AllOff(); offErr != nil {
			glog.Errorf("Failed to stop motors: %v", offErr)
			if err == nil {
				err = offErr
			}
		}
	}()

	if err = c.Start(); err != nil {
		return
	}

	var pace *clock.Interval
	if c.cfg.CycleTicks > 0 {
		pace = clock.NewInterval(c.cfg.CycleTicks, c.src)
	}
	for ctx.Err() == nil {
		before := c.collisions
		if err = c.Step(); err != nil {
			glog.Errorf("Control loop failed: %v", err)
			return
		}
		if pace != nil && c.collisions != before {
			// The settle wait overran the cycle; restart the cadence from
			// now instead of catching up.
			pace = clock.NewInterval(c.cfg.CycleTicks, c.src)
		}
		if pace != nil {
			for !pace.Poll(c.src) {
				if ctx.Err() != nil {
					return nil
				}
			}
		}
	}
	return nil
}

func (c *Controller) String() string {
	return fmt.Sprintf("collision controller (%v, %d collisions)", c.state, c.collisions)
}
