package app

import (
	"sync"
	"time"
)

// Schedule runs f once after d and returns a cancel func. Production code
// uses AfterFunc; tests substitute a manual scheduler for deterministic ticks.
type Schedule func(d time.Duration, f func()) (cancel func())

// AfterFunc is the default Schedule, backed by time.AfterFunc.
func AfterFunc(d time.Duration, f func()) func() {
	t := time.AfterFunc(d, f)
	return func() { t.Stop() }
}

// Countdown drives the per-question timer: a recurring one-second tick that
// reports the remaining time and fires an expiry signal exactly once when it
// reaches zero. Arm cancels any live schedule before starting a new one, so
// at most one tick sequence is outstanding; a fire from a cancelled or
// superseded arm is discarded via the generation counter.
type Countdown struct {
	schedule Schedule

	mu        sync.Mutex
	gen       uint64
	cancelFn  func()
	remaining int
	total     int
	onTick    func(remaining int)
	onExpire  func()
}

func newCountdown(schedule Schedule) *Countdown {
	if schedule == nil {
		schedule = AfterFunc
	}
	return &Countdown{schedule: schedule}
}

// Arm starts a fresh countdown of the given duration, replacing any countdown
// still running. onTick receives each new remaining value above zero; onExpire
// fires once when the countdown hits zero.
func (c *Countdown) Arm(seconds int, onTick func(remaining int), onExpire func()) {
	c.mu.Lock()
	c.stopLocked()
	c.gen++
	gen := c.gen
	c.remaining = seconds
	c.total = seconds
	c.onTick = onTick
	c.onExpire = onExpire
	c.cancelFn = c.schedule(time.Second, func() { c.tick(gen) })
	c.mu.Unlock()
}

func (c *Countdown) tick(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.remaining--
	remaining := c.remaining
	onTick, onExpire := c.onTick, c.onExpire
	if remaining > 0 {
		c.cancelFn = c.schedule(time.Second, func() { c.tick(gen) })
	} else {
		c.cancelFn = nil
		c.gen++ // expired; nothing left to fire for this arm
	}
	c.mu.Unlock()

	if remaining > 0 {
		if onTick != nil {
			onTick(remaining)
		}
		return
	}
	if onExpire != nil {
		onExpire()
	}
}

// Cancel stops any pending tick. Idempotent; a tick already past the
// generation check will still be discarded.
func (c *Countdown) Cancel() {
	c.mu.Lock()
	c.stopLocked()
	c.gen++
	c.mu.Unlock()
}

func (c *Countdown) stopLocked() {
	if c.cancelFn != nil {
		c.cancelFn()
		c.cancelFn = nil
	}
}

// Remaining reports the seconds left on the current countdown.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Band classifies remaining time for display.
type Band string

const (
	BandSafe     Band = "safe"
	BandWarning  Band = "warning"
	BandCritical Band = "critical"
)

// TimerDisplay is the render-ready view of a countdown: a color band and the
// sweep angle of a proportional arc (360 at full time, 0 at expiry). It is a
// pure function of (remaining, total) so clients only draw it.
type TimerDisplay struct {
	Remaining int     `json:"remaining"`
	Band      Band    `json:"band"`
	Sweep     float64 `json:"sweep"`
}

// DisplayFor maps remaining seconds to its display state.
func DisplayFor(remaining, total int) TimerDisplay {
	return TimerDisplay{
		Remaining: remaining,
		Band:      bandFor(remaining),
		Sweep:     sweepDegrees(remaining, total),
	}
}

func bandFor(remaining int) Band {
	switch {
	case remaining > 10:
		return BandSafe
	case remaining > 5:
		return BandWarning
	default:
		return BandCritical
	}
}

func sweepDegrees(remaining, total int) float64 {
	if total <= 0 {
		return 0
	}
	return 360 * float64(remaining) / float64(total)
}
