package clock

// Delay is a single-shot deadline.  Once it is ready it stays ready.
type Delay struct {
	target Tick
}

func NewDelay(duration Tick, src TimeSource) Delay {
	return Delay{target: src.CurrentTime() + duration}
}

// Poll returns nil once the deadline has passed and ErrWouldBlock before that.
func (d Delay) Poll(src TimeSource) error {
	if Reached(src.CurrentTime(), d.target) {
		return nil
	}
	return ErrWouldBlock
}

func (d Delay) Target() Tick {
	return d.target
}

// Wait spins on d until it is ready.  There is nothing else for the controller
// to do in the meantime so it never yields.
func Wait(d Delay, src TimeSource) {
	for d.Poll(src) != nil {
	}
}

// Interval fires once per period.  After firing it re-arms from the boundary it
// fired for, not from the time it was polled, so a slow caller does not drift.
type Interval struct {
	period Tick
	next   Tick
}

func NewInterval(period Tick, src TimeSource) *Interval {
	return &Interval{
		period: period,
		next:   src.CurrentTime() + period,
	}
}

// Poll reports whether a period boundary has been crossed since the last time
// it returned true.  If several boundaries were crossed, each subsequent Poll
// returns true until the interval has caught up.
func (i *Interval) Poll(src TimeSource) bool {
	if !Reached(src.CurrentTime(), i.next) {
		return false
	}
	i.next += i.period
	return true
}

func (i *Interval) Next() Tick {
	return i.next
}

// WaitInterval spins until i fires.
func WaitInterval(i *Interval, src TimeSource) {
	for !i.Poll(src) {
	}
}
