package app

import (
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	tickInterval    = 250 * time.Millisecond
	dangerThreshold = 30 // seconds
)

// TimerView is the render-ready countdown state.
type TimerView struct {
	Display string `json:"display"`
	Danger  bool   `json:"danger"`
	Running bool   `json:"running"`
	Expired bool   `json:"expired"`
}

// Countdown is the per-attempt countdown clock. The deadline is derived once
// from the attempt start time plus the allowed duration and never recomputed.
// The expiry callback fires exactly once even if the check keeps running past
// the deadline.
type Countdown struct {
	deadline time.Time
	now      func() time.Time
	onTick   func(TimerView)
	onExpire func()

	mu        sync.Mutex
	fired     bool
	stopped   bool
	lastShown int
	stop      chan struct{}
}

// NewCountdown builds a countdown without starting its recurring check; call
// Run to arm it. A nil clock defaults to time.Now.
func NewCountdown(start time.Time, limit time.Duration, clock func() time.Time, onTick func(TimerView), onExpire func()) *Countdown {
	if clock == nil {
		clock = time.Now
	}
	return &Countdown{
		deadline:  start.Add(limit),
		now:       clock,
		onTick:    onTick,
		onExpire:  onExpire,
		lastShown: -1,
		stop:      make(chan struct{}),
	}
}

// Run starts the recurring 250ms check in its own goroutine.
func (c *Countdown) Run() {
	go func() {
		if c.tick() {
			return
		}
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
				if c.tick() {
					return
				}
			}
		}
	}()
}

// tick recomputes the remaining time, notifies when the displayed second
// changes and fires the expiry callback at zero. Returns true once expired.
func (c *Countdown) tick() bool {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return true
	}
	remain := remainingSeconds(c.deadline, c.now())
	view := TimerView{
		Display: formatClock(remain),
		Danger:  remain <= dangerThreshold,
		Running: true,
	}
	fire := remain == 0 && !c.fired
	if fire {
		c.fired = true
		c.stopped = true
		view.Running = false
		view.Expired = true
	}
	changed := remain != c.lastShown
	c.lastShown = remain
	onTick, onExpire := c.onTick, c.onExpire
	c.mu.Unlock()

	if changed && onTick != nil {
		onTick(view)
	}
	if fire {
		if onExpire != nil {
			onExpire()
		}
		return true
	}
	return remain == 0
}

// Cancel stops the recurring check and blanks the display. Safe to call any
// number of times, including when the countdown never ran.
func (c *Countdown) Cancel() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	close(c.stop)
	onTick := c.onTick
	c.mu.Unlock()

	if onTick != nil {
		onTick(TimerView{})
	}
}

// View returns the current countdown state without side effects.
func (c *Countdown) View() TimerView {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped && !c.fired {
		return TimerView{}
	}
	remain := remainingSeconds(c.deadline, c.now())
	return TimerView{
		Display: formatClock(remain),
		Danger:  remain <= dangerThreshold,
		Running: !c.fired,
		Expired: c.fired,
	}
}

// remainingSeconds rounds up, so the display only reaches "00:00" at the
// deadline itself.
func remainingSeconds(deadline, now time.Time) int {
	left := deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

func formatClock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
