package clock

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// TickerTimer is the host stand-in for a hardware timer: a goroutine driven by
// a time.Ticker calls the update handler once per period.
type TickerTimer struct {
	lock    sync.Mutex
	stop    chan struct{}
	done    sync.WaitGroup
	pending atomic.Uint32
	missed  atomic.Uint64
}

func NewTickerTimer() *TickerTimer {
	return &TickerTimer{}
}

var _ Timer = (*TickerTimer)(nil)

func (t *TickerTimer) Start(period time.Duration, handler func()) error {
	if period <= 0 {
		return errors.Errorf("invalid timer period %v", period)
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.stop != nil {
		return errors.New("timer already started")
	}
	t.stop = make(chan struct{})
	ticker := time.NewTicker(period)
	t.done.Add(1)
	go func(stop chan struct{}) {
		defer t.done.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if t.pending.Swap(1) != 0 {
					// Previous update was never acknowledged.
					t.missed.Add(1)
				}
				handler()
			case <-stop:
				return
			}
		}
	}(t.stop)
	glog.V(1).Infof("Tick timer started, period %v", period)
	return nil
}

func (t *TickerTimer) ClearPending() {
	t.pending.Store(0)
}

// Missed returns the number of updates that fired while the previous one was
// still pending.
func (t *TickerTimer) Missed() uint64 {
	return t.missed.Load()
}

func (t *TickerTimer) Stop() {
	t.lock.Lock()
	stop := t.stop
	t.stop = nil
	t.lock.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	t.done.Wait()
}
