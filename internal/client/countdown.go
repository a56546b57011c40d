package client

import (
	"sync"
	"time"
)

// Timer is the cancellable round countdown the Synchronizer drives.
type Timer interface {
	Start(onTick func(remaining int), onExpire func())
	Cancel()
	Remaining() int
}

// Countdown counts from ceiling to 0 in whole units. The value is derived
// from wall-clock time elapsed since Start, so late or skipped ticks never
// make it drift. Ticks from a cancelled or restarted run are ignored.
type Countdown struct {
	ceiling int
	unit    time.Duration
	refresh time.Duration
	now     func() time.Time

	mu      sync.Mutex
	gen     uint64
	started time.Time
	running bool
	frozen  int
	stop    chan struct{}
}

func NewCountdown(ceiling int, unit, refresh time.Duration) *Countdown {
	return &Countdown{
		ceiling: ceiling,
		unit:    unit,
		refresh: refresh,
		now:     time.Now,
		frozen:  ceiling,
	}
}

// Start restarts the countdown from the ceiling. onTick runs on every
// refresh; onExpire runs once when 0 is reached. Callbacks run on the
// countdown goroutine, never under its lock.
func (c *Countdown) Start(onTick func(remaining int), onExpire func()) {
	c.mu.Lock()
	c.cancelLocked()
	c.gen++
	gen := c.gen
	c.started = c.now()
	c.running = true
	stop := make(chan struct{})
	c.stop = stop
	c.mu.Unlock()

	go c.loop(gen, stop, onTick, onExpire)
}

func (c *Countdown) loop(gen uint64, stop <-chan struct{}, onTick func(int), onExpire func()) {
	t := time.NewTicker(c.refresh)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-t.C:
		}

		c.mu.Lock()
		if gen != c.gen || !c.running {
			c.mu.Unlock()
			return
		}
		rem := c.remainingLocked()
		expired := rem == 0
		if expired {
			c.running = false
			c.frozen = 0
		}
		c.mu.Unlock()

		if onTick != nil {
			onTick(rem)
		}
		if expired {
			if onExpire != nil {
				onExpire()
			}
			return
		}
	}
}

// Cancel stops the countdown and freezes Remaining at its current value.
func (c *Countdown) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
}

func (c *Countdown) cancelLocked() {
	if c.running {
		c.frozen = c.remainingLocked()
		c.running = false
	}
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	c.gen++
}

func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return c.frozen
	}
	return c.remainingLocked()
}

func (c *Countdown) remainingLocked() int {
	elapsed := int(c.now().Sub(c.started) / c.unit)
	return max(c.ceiling-elapsed, 0)
}
