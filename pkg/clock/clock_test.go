package clock

import (
	"math"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"periph.io/x/periph/conn/physic"
)

type manualTimer struct {
	period  time.Duration
	handler func()
	cleared int
	stopped bool
	err     error
}

func (m *manualTimer) Start(period time.Duration, handler func()) error {
	if m.err != nil {
		return m.err
	}
	m.period = period
	m.handler = handler
	return nil
}

func (m *manualTimer) ClearPending() { m.cleared++ }
func (m *manualTimer) Stop()         { m.stopped = true }

func (m *manualTimer) fire(n int) {
	for i := 0; i < n; i++ {
		m.handler()
	}
}

// fixedTime is a TimeSource the test sets directly.
type fixedTime Tick

func (f *fixedTime) CurrentTime() Tick { return Tick(*f) }

func TestNewConfiguresOneKilohertz(t *testing.T) {
	timer := &manualTimer{}
	c, err := New(timer, Config{})
	require.NoError(t, err)
	require.Equal(t, time.Millisecond, timer.period)
	require.Equal(t, physic.KiloHertz, c.Rate())
	require.Equal(t, Tick(0), c.CurrentTime())
}

func TestNewPropagatesTimerError(t *testing.T) {
	boom := errors.New("no timer")
	_, err := New(&manualTimer{err: boom}, Config{})
	require.Error(t, err)
	require.Equal(t, boom, errors.Cause(err))
}

func TestHandlerClearsThenIncrements(t *testing.T) {
	timer := &manualTimer{}
	c, err := New(timer, Config{})
	require.NoError(t, err)

	timer.fire(3)
	require.Equal(t, Tick(3), c.CurrentTime())
	require.Equal(t, 3, timer.cleared)

	c.Stop()
	require.True(t, timer.stopped)
}

func TestTicksConversion(t *testing.T) {
	c, err := New(&manualTimer{}, Config{Rate: 100 * physic.Hertz})
	require.NoError(t, err)
	require.Equal(t, 10*time.Millisecond, Period(c.Rate()))
	require.Equal(t, Tick(100), c.Ticks(time.Second))
}

func TestDelay(t *testing.T) {
	now := fixedTime(100)
	d := NewDelay(50, &now)
	require.Equal(t, Tick(150), d.Target())

	now = 149
	require.Equal(t, ErrWouldBlock, d.Poll(&now))
	now = 150
	require.NoError(t, d.Poll(&now))
	now = 151
	require.NoError(t, d.Poll(&now), "a delay stays ready once reached")
}

func TestDelayAcrossWrap(t *testing.T) {
	now := fixedTime(math.MaxUint32 - 9)
	d := NewDelay(20, &now)
	require.Equal(t, Tick(10), d.Target())

	now = math.MaxUint32
	require.Equal(t, ErrWouldBlock, d.Poll(&now))
	now = 0
	require.Equal(t, ErrWouldBlock, d.Poll(&now))
	now = 9
	require.Equal(t, ErrWouldBlock, d.Poll(&now))
	now = 10
	require.NoError(t, d.Poll(&now))
}

func TestIntervalRearmsFromBoundary(t *testing.T) {
	now := fixedTime(0)
	i := NewInterval(100, &now)

	now = 99
	require.False(t, i.Poll(&now))
	now = 100
	require.True(t, i.Poll(&now))
	require.False(t, i.Poll(&now), "fires once per boundary")
	require.Equal(t, Tick(200), i.Next())

	// Polled late: the next boundary is still 300, not 230+100.
	now = 230
	require.True(t, i.Poll(&now))
	require.Equal(t, Tick(300), i.Next())
	now = 299
	require.False(t, i.Poll(&now))
	now = 300
	require.True(t, i.Poll(&now))
}

func TestIntervalCatchesUpOnMissedBoundaries(t *testing.T) {
	now := fixedTime(0)
	i := NewInterval(10, &now)

	now = 35
	fired := 0
	for i.Poll(&now) {
		fired++
	}
	require.Equal(t, 3, fired)
	require.Equal(t, Tick(40), i.Next())
}

func TestIntervalAcrossWrap(t *testing.T) {
	now := fixedTime(math.MaxUint32 - 4)
	i := NewInterval(10, &now)

	now = math.MaxUint32
	require.False(t, i.Poll(&now))
	now = 5
	require.True(t, i.Poll(&now))
	require.Equal(t, Tick(15), i.Next())
}

func TestReached(t *testing.T) {
	for _, tc := range []struct {
		now, target Tick
		expect      bool
	}{
		{0, 0, true},
		{1, 0, true},
		{0, 1, false},
		{5, math.MaxUint32 - 5, true},
		{math.MaxUint32 - 5, 5, false},
	} {
		require.Equal(t, tc.expect, Reached(tc.now, tc.target), "now=%d target=%d", tc.now, tc.target)
	}
}

// steppingTime advances by one tick on every read so spin waits terminate.
type steppingTime struct {
	now   Tick
	reads int
}

func (s *steppingTime) CurrentTime() Tick {
	s.reads++
	s.now++
	return s.now
}

func TestWaitSpinsUntilReady(t *testing.T) {
	src := &steppingTime{}
	d := NewDelay(1000, src)
	Wait(d, src)
	require.True(t, Reached(src.now, d.Target()))
	require.Equal(t, Tick(1001), src.now)
}

func TestWaitInterval(t *testing.T) {
	src := &steppingTime{}
	i := NewInterval(5, src)
	WaitInterval(i, src)
	require.Equal(t, Tick(6), src.now)
	require.Equal(t, Tick(11), i.Next())
}

func TestTickerTimerDrivesClock(t *testing.T) {
	timer := NewTickerTimer()
	c, err := New(timer, Config{Rate: physic.KiloHertz})
	require.NoError(t, err)
	defer c.Stop()

	d := NewDelay(5, c)
	deadline := time.Now().Add(5 * time.Second)
	for d.Poll(c) != nil {
		require.True(t, time.Now().Before(deadline), "ticker clock did not advance")
		time.Sleep(time.Millisecond)
	}
	require.Error(t, timer.Start(time.Millisecond, func() {}), "double start")
}

func TestTickerTimerCountsUnacknowledgedUpdates(t *testing.T) {
	timer := NewTickerTimer()
	// Never clears pending, so every update after the first is a miss.
	require.NoError(t, timer.Start(time.Millisecond, func() {}))
	deadline := time.Now().Add(5 * time.Second)
	for timer.Missed() < 2 {
		require.True(t, time.Now().Before(deadline), "no missed updates counted")
		time.Sleep(time.Millisecond)
	}
	timer.Stop()
	timer.Stop()

	acked := NewTickerTimer()
	c, err := New(acked, Config{Rate: physic.KiloHertz})
	require.NoError(t, err)
	d := NewDelay(5, c)
	for d.Poll(c) != nil {
		time.Sleep(time.Millisecond)
	}
	c.Stop()
	require.Zero(t, acked.Missed())
}
