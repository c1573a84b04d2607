package node

import (
	"math/rand"
	"time"
)

type timerFactory func(time.Duration) <-chan time.Time

// ControlTimer signals on tickCh when its timer fires, then waits to be re-armed
// through resetCh. It never runs node logic itself; the node's loop receives
// the tick and does the work, so ticks are serialised with message dispatch.
type ControlTimer struct {
	timerFactory timerFactory
	tickCh       chan struct{}      //sends a signal to listening process
	resetCh      chan time.Duration //receives instruction to reset the timer
	shutdownCh   chan struct{}      //receives instruction to exit Run loop
}

// NewControlTimer ...
func NewControlTimer(timerFactory timerFactory) *ControlTimer {
	return &ControlTimer{
		timerFactory: timerFactory,
		tickCh:       make(chan struct{}),
		resetCh:      make(chan time.Duration),
		shutdownCh:   make(chan struct{}),
	}
}

// NewFixedControlTimer returns a ControlTimer that fires exactly after the
// requested period.
func NewFixedControlTimer() *ControlTimer {
	fixedTimeout := func(d time.Duration) <-chan time.Time {
		if d <= 0 {
			return nil
		}
		return time.After(d)
	}
	return NewControlTimer(fixedTimeout)
}

// NewRandomControlTimer returns a ControlTimer that fires between one and two
// periods after being armed, which spreads the retries of many nodes started
// at the same time.
func NewRandomControlTimer() *ControlTimer {
	randomTimeout := func(min time.Duration) <-chan time.Time {
		if min <= 0 {
			return nil
		}
		extra := (time.Duration(rand.Int63()) % min)
		return time.After(min + extra)
	}
	return NewControlTimer(randomTimeout)
}

// Run arms the timer with init and serves ticks and reset instructions
// until Shutdown is called.
func (c *ControlTimer) Run(init time.Duration) {
	timer := c.timerFactory(init)
	for {
		select {
		case <-timer:
			timer = nil
			select {
			case c.tickCh <- struct{}{}:
			case <-c.shutdownCh:
				return
			}
		case t := <-c.resetCh:
			timer = c.timerFactory(t)
		case <-c.shutdownCh:
			return
		}
	}
}

// Reset re-arms the timer. It returns false if the timer was shut down.
func (c *ControlTimer) Reset(t time.Duration) bool {
	select {
	case c.resetCh <- t:
		return true
	case <-c.shutdownCh:
		return false
	}
}

// Shutdown ends Run. It must be called at most once.
func (c *ControlTimer) Shutdown() {
	close(c.shutdownCh)
}
