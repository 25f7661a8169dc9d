// Package dial drives the ring of eight LEDs used as a direction and
// magnitude indicator.  LED 1 is north, then clockwise to LED 8, north-west.
package dial

import (
	"sync"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"

	"github.com/tigerbot-team/bumperbot/pkg/clock"
)

const NumLEDs = 8

var Names = [NumLEDs]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

type Interface interface {
	// SetDirection lights only LED d, or none for 0.
	SetDirection(d int) error
	// SetMagnitude lights the first m LEDs.
	SetMagnitude(m int) error
	Reset() error
}

// DirectionMask returns the LEDs lit for a direction, bit 0 being LED 1.
func DirectionMask(d int) (uint8, error) {
	if d < 0 || d > NumLEDs {
		return 0, errors.Errorf("direction %d out of range", d)
	}
	if d == 0 {
		return 0, nil
	}
	return 1 << uint(d-1), nil
}

func MagnitudeMask(m int) (uint8, error) {
	if m < 0 || m > NumLEDs {
		return 0, errors.Errorf("magnitude %d out of range", m)
	}
	return uint8((1 << uint(m)) - 1), nil
}

type LEDs struct {
	pins [NumLEDs]gpio.PinOut
	lit  uint8
}

var _ Interface = (*LEDs)(nil)

// Open finds the named GPIO pins, N first.
func Open(names []string) (*LEDs, error) {
	if len(names) != NumLEDs {
		return nil, errors.Errorf("need %d LED pins, got %d", NumLEDs, len(names))
	}
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "periph host init")
	}
	var pins [NumLEDs]gpio.PinOut
	for i, name := range names {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, errors.Errorf("no GPIO pin %q for LED %s", name, Names[i])
		}
		pins[i] = p
	}
	l := New(pins)
	return l, l.Reset()
}

func New(pins [NumLEDs]gpio.PinOut) *LEDs {
	return &LEDs{pins: pins}
}

func (l *LEDs) SetDirection(d int) error {
	mask, err := DirectionMask(d)
	if err != nil {
		return err
	}
	return l.Set(mask)
}

func (l *LEDs) SetMagnitude(m int) error {
	mask, err := MagnitudeMask(m)
	if err != nil {
		return err
	}
	return l.Set(mask)
}

func (l *LEDs) Reset() error {
	return l.Set(0)
}

// Set drives every LED to match mask.
func (l *LEDs) Set(mask uint8) error {
	for i, p := range l.pins {
		level := gpio.Level(mask&(1<<uint(i)) != 0)
		if err := p.Out(level); err != nil {
			return errors.Wrapf(err, "LED %s", Names[i])
		}
	}
	l.lit = mask
	return nil
}

func (l *LEDs) Lit() uint8 {
	return l.lit
}

// Blink flashes one LED on and off, spinning on the clock between changes.
// The other LEDs are left off.
func (l *LEDs) Blink(led, times int, period clock.Tick, src clock.TimeSource) error {
	mask, err := DirectionMask(led)
	if err != nil {
		return err
	}
	for i := 0; i < times; i++ {
		if err := l.Set(mask); err != nil {
			return err
		}
		clock.Wait(clock.NewDelay(period, src), src)
		if err := l.Set(0); err != nil {
			return err
		}
		clock.Wait(clock.NewDelay(period, src), src)
	}
	return nil
}

// Multi fans each update out to several indicators.  Every indicator is
// updated even if an earlier one fails; the first error is returned.
type Multi []Interface

func (m Multi) SetDirection(d int) error {
	return m.each(func(i Interface) error { return i.SetDirection(d) })
}

func (m Multi) SetMagnitude(v int) error {
	return m.each(func(i Interface) error { return i.SetMagnitude(v) })
}

func (m Multi) Reset() error {
	return m.each(Interface.Reset)
}

func (m Multi) each(f func(Interface) error) error {
	var firstErr error
	for _, i := range m {
		if err := f(i); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// State is an in-memory indicator.  It backs the screen and dry runs.
type State struct {
	lock sync.Mutex
	lit  uint8
}

func (s *State) SetDirection(d int) error {
	mask, err := DirectionMask(d)
	if err != nil {
		return err
	}
	s.set(mask)
	return nil
}

func (s *State) SetMagnitude(m int) error {
	mask, err := MagnitudeMask(m)
	if err != nil {
		return err
	}
	s.set(mask)
	return nil
}

func (s *State) Reset() error {
	s.set(0)
	return nil
}

func (s *State) set(mask uint8) {
	s.lock.Lock()
	s.lit = mask
	s.lock.Unlock()
	glog.V(1).Infof("Indicator %08b", mask)
}

func (s *State) Lit() uint8 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.lit
}
