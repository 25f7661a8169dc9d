package clock

import (
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/periph/conn/physic"
)

// Tick is one period of the hardware timer.  It wraps at 2^32.
type Tick uint32

const DefaultRate = physic.KiloHertz

var ErrWouldBlock = errors.New("would block")

// TimeSource is anything that can report the current tick.
type TimeSource interface {
	CurrentTime() Tick
}

// Timer is the periodic hardware timer that drives the clock.  Start arms the
// update interrupt; the handler runs once per period.
type Timer interface {
	Start(period time.Duration, handler func()) error
	// ClearPending acknowledges the update event that caused the current handler call.
	ClearPending()
	Stop()
}

type Config struct {
	Rate physic.Frequency
}

type Clock struct {
	ticks atomic.Uint32
	timer Timer
	rate  physic.Frequency
}

// New configures timer to fire at cfg.Rate and starts counting.
func New(timer Timer, cfg Config) (*Clock, error) {
	if cfg.Rate == 0 {
		cfg.Rate = DefaultRate
	}
	if cfg.Rate < physic.Hertz {
		return nil, errors.Errorf("tick rate %s is below 1Hz", cfg.Rate)
	}
	c := &Clock{
		timer: timer,
		rate:  cfg.Rate,
	}
	if err := timer.Start(Period(cfg.Rate), c.handleUpdate); err != nil {
		return nil, errors.Wrap(err, "start tick timer")
	}
	return c, nil
}

// Period converts a tick rate into the timer period.
func Period(f physic.Frequency) time.Duration {
	return time.Duration(int64(physic.Hertz) * int64(time.Second) / int64(f))
}

func (c *Clock) handleUpdate() {
	c.timer.ClearPending()
	c.ticks.Add(1)
}

func (c *Clock) CurrentTime() Tick {
	return Tick(c.ticks.Load())
}

func (c *Clock) Rate() physic.Frequency {
	return c.rate
}

// Ticks converts a duration to a whole number of ticks at this clock's rate.
func (c *Clock) Ticks(d time.Duration) Tick {
	return Tick(int64(d) / int64(Period(c.rate)))
}

func (c *Clock) Stop() {
	c.timer.Stop()
}

// Reached reports whether now is at or past target.  The comparison is done on
// the wrapping difference so it stays correct across a counter wrap as long as
// the two are less than 2^31 ticks apart.
func Reached(now, target Tick) bool {
	return int32(now-target) >= 0
}
