// Package motor drives four DC motors through H-bridges fed by PWM channels.
// Each motor has one channel per direction.
package motor

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/tigerbot-team/bumperbot/pkg/pca9685"
)

type Motor int

const (
	FrontLeft Motor = iota
	FrontRight
	RearLeft
	RearRight

	NumMotors = 4
)

var AllMotors = [NumMotors]Motor{FrontLeft, FrontRight, RearLeft, RearRight}

func (m Motor) String() string {
	switch m {
	case FrontLeft:
		return "front-left"
	case FrontRight:
		return "front-right"
	case RearLeft:
		return "rear-left"
	case RearRight:
		return "rear-right"
	}
	return fmt.Sprintf("Motor(%d)", int(m))
}

type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Forward {
		return "forward"
	}
	return "backward"
}

func (d Direction) Opposite() Direction {
	if d == Forward {
		return Backward
	}
	return Forward
}

type MotorDirection struct {
	Motor     Motor
	Direction Direction
}

func (md MotorDirection) String() string {
	return md.Motor.String() + "/" + md.Direction.String()
}

// Antagonist is the same motor driven the other way.
func (md MotorDirection) Antagonist() MotorDirection {
	return MotorDirection{Motor: md.Motor, Direction: md.Direction.Opposite()}
}

// Wiring maps each motor and direction to the PWM channel that drives it.
type Wiring [NumMotors][2]pca9685.Channel

var (
	DefaultWiring = Wiring{
		FrontLeft:  {Forward: 2, Backward: 3},
		FrontRight: {Forward: 0, Backward: 1},
		RearLeft:   {Forward: 4, Backward: 5},
		RearRight:  {Forward: 7, Backward: 6},
	}
	// The second chassis has its front-left and rear-left bridges swapped
	// and the front-right pair on the far end of the connector.
	AlternateWiring = Wiring{
		FrontLeft:  {Forward: 0, Backward: 1},
		FrontRight: {Forward: 7, Backward: 6},
		RearLeft:   {Forward: 2, Backward: 3},
		RearRight:  {Forward: 4, Backward: 5},
	}
)

func WiringByName(name string) (Wiring, error) {
	switch name {
	case "", "default":
		return DefaultWiring, nil
	case "alternate":
		return AlternateWiring, nil
	}
	return Wiring{}, errors.Errorf("unknown motor wiring %q", name)
}

func (w Wiring) Channel(md MotorDirection) pca9685.Channel {
	return w[md.Motor][md.Direction]
}

// Validate checks that the table uses each of channels 0-7 exactly once.
func (w Wiring) Validate() error {
	var seen [2 * NumMotors]bool
	for _, m := range AllMotors {
		for _, d := range []Direction{Forward, Backward} {
			ch := w[m][d]
			if ch < 0 || int(ch) >= len(seen) {
				return errors.Errorf("%v/%v wired to channel %v, want 0-7", m, d, ch)
			}
			if seen[ch] {
				return errors.Errorf("channel %v wired twice", ch)
			}
			seen[ch] = true
		}
	}
	return nil
}

// Channels lists all eight direction channels in table order.
func (w Wiring) Channels() []pca9685.Channel {
	chs := make([]pca9685.Channel, 0, 2*NumMotors)
	for _, m := range AllMotors {
		chs = append(chs, w[m][Forward], w[m][Backward])
	}
	return chs
}

type Interface interface {
	SetMotorSpeed(md MotorDirection, speed uint16) error
	DriveAll(dir Direction, speed uint16) error
	AllOff() error
}

type Motors struct {
	pwm    pca9685.Interface
	wiring Wiring
}

var _ Interface = (*Motors)(nil)

// New stops every motor before returning.
func New(pwm pca9685.Interface, wiring Wiring) (*Motors, error) {
	if err := wiring.Validate(); err != nil {
		return nil, err
	}
	m := &Motors{
		pwm:    pwm,
		wiring: wiring,
	}
	if err := m.AllOff(); err != nil {
		return nil, errors.Wrap(err, "motors init")
	}
	return m, nil
}

// SetMotorSpeed turns the opposite direction off before driving md, so the
// H-bridge never has both halves on.  speed is a 12-bit duty cycle.
func (m *Motors) SetMotorSpeed(md MotorDirection, speed uint16) error {
	speed = pca9685.Check12Bit("speed", speed)
	if err := m.pwm.SetPWM(m.wiring.Channel(md.Antagonist()), 0, pca9685.PWMMax); err != nil {
		return errors.Wrapf(err, "stopping %v", md.Antagonist())
	}
	if err := m.pwm.SetPWM(m.wiring.Channel(md), speed, pca9685.PWMMax-speed); err != nil {
		return errors.Wrapf(err, "driving %v", md)
	}
	glog.V(2).Infof("Motor %v speed 0x%03x", md, speed)
	return nil
}

func (m *Motors) DriveAll(dir Direction, speed uint16) error {
	for _, mot := range AllMotors {
		if err := m.SetMotorSpeed(MotorDirection{Motor: mot, Direction: dir}, speed); err != nil {
			return err
		}
	}
	return nil
}

func (m *Motors) AllOff() error {
	return m.pwm.SetMultiplePWM(m.wiring.Channels(), 0, pca9685.PWMMax)
}
