package session

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ClockReconciler owns the two countdown values and produces a smooth local
// display between authoritative ticks. Remaining time is always computed as
// (last synced value - local elapsed since sync) on the running side; there is
// no independently ticking counter to drift.
type ClockReconciler struct {
	mu    sync.Mutex
	clock clockwork.Clock

	own      time.Duration
	opponent time.Duration
	synced   bool
	syncedAt time.Time
	serverTS int64

	running Side

	staleAfter time.Duration
}

func NewClockReconciler(clock clockwork.Clock, staleAfter time.Duration) *ClockReconciler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Second
	}
	return &ClockReconciler{clock: clock, staleAfter: staleAfter}
}

// OnAuthoritativeTick resets the sync baseline. Values are milliseconds as
// sent on the wire.
func (c *ClockReconciler) OnAuthoritativeTick(ownMS, opponentMS, serverTimestampMS int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.own = clampDuration(time.Duration(ownMS) * time.Millisecond)
	c.opponent = clampDuration(time.Duration(opponentMS) * time.Millisecond)
	c.serverTS = serverTimestampMS
	c.syncedAt = c.clock.Now()
	c.synced = true
}

// SetRunning tells the reconciler which side's clock is counting down.
// Changing the running side rebases the stored values so elapsed time charged
// so far stays with the side that spent it.
func (c *ClockReconciler) SetRunning(side Side) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if side == c.running {
		return
	}
	if c.synced {
		c.own, c.opponent = c.displayLocked()
		c.syncedAt = c.clock.Now()
	}
	c.running = side
}

// CurrentDisplay returns the interpolated remaining times, clamped at zero.
func (c *ClockReconciler) CurrentDisplay() (own, opponent time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.displayLocked()
}

// Stale reports whether no authoritative tick has arrived within the
// staleness threshold while a clock is running. The display keeps counting
// down locally as a best effort; forfeiture is always the authority's call.
func (c *ClockReconciler) Stale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.synced || c.running == SideNone {
		return false
	}
	return c.clock.Since(c.syncedAt) > c.staleAfter
}

// LastServerTimestamp returns the server timestamp of the latest sync, zero
// before the first tick.
func (c *ClockReconciler) LastServerTimestamp() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverTS
}

func (c *ClockReconciler) displayLocked() (time.Duration, time.Duration) {
	if !c.synced {
		return 0, 0
	}
	own, opponent := c.own, c.opponent
	elapsed := c.clock.Since(c.syncedAt)
	switch c.running {
	case SideOwn:
		own -= elapsed
	case SideOpponent:
		opponent -= elapsed
	}
	return clampDuration(own), clampDuration(opponent)
}

func clampDuration(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
