package session

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestClock_ZeroBeforeFirstSync(t *testing.T) {
	fc := clockwork.NewFakeClock()
	c := NewClockReconciler(fc, 10*time.Second)

	own, opp := c.CurrentDisplay()
	if own != 0 || opp != 0 {
		t.Fatalf("display before sync: own=%v opp=%v", own, opp)
	}
	if c.Stale() {
		t.Fatalf("stale before any sync")
	}
}

func TestClock_RunningSideCountsDown(t *testing.T) {
	fc := clockwork.NewFakeClock()
	c := NewClockReconciler(fc, 10*time.Second)

	c.OnAuthoritativeTick(60_000, 45_000, 1000)
	c.SetRunning(SideOwn)

	fc.Advance(10 * time.Second)
	own, opp := c.CurrentDisplay()
	if own != 50*time.Second {
		t.Fatalf("own=%v want 50s", own)
	}
	if opp != 45*time.Second {
		t.Fatalf("idle side moved: opp=%v", opp)
	}

	// Display is monotonically non-increasing between syncs.
	fc.Advance(3 * time.Second)
	own2, _ := c.CurrentDisplay()
	if own2 > own {
		t.Fatalf("display increased: %v -> %v", own, own2)
	}
}

func TestClock_ClampsAtZero(t *testing.T) {
	fc := clockwork.NewFakeClock()
	c := NewClockReconciler(fc, 10*time.Second)

	c.OnAuthoritativeTick(5_000, 60_000, 1000)
	c.SetRunning(SideOwn)

	fc.Advance(30 * time.Second)
	own, opp := c.CurrentDisplay()
	if own != 0 {
		t.Fatalf("own=%v want 0", own)
	}
	if opp != 60*time.Second {
		t.Fatalf("opp=%v want 60s", opp)
	}
}

func TestClock_SetRunningRebasesElapsed(t *testing.T) {
	fc := clockwork.NewFakeClock()
	c := NewClockReconciler(fc, 10*time.Second)

	c.OnAuthoritativeTick(60_000, 60_000, 1000)
	c.SetRunning(SideOwn)
	fc.Advance(10 * time.Second)

	// Handing the turn over charges the elapsed 10s to own and freezes it.
	c.SetRunning(SideOpponent)
	fc.Advance(5 * time.Second)

	own, opp := c.CurrentDisplay()
	if own != 50*time.Second {
		t.Fatalf("own=%v want 50s", own)
	}
	if opp != 55*time.Second {
		t.Fatalf("opp=%v want 55s", opp)
	}
}

func TestClock_AuthoritativeTickOverridesDrift(t *testing.T) {
	fc := clockwork.NewFakeClock()
	c := NewClockReconciler(fc, 10*time.Second)

	c.OnAuthoritativeTick(60_000, 60_000, 1000)
	c.SetRunning(SideOwn)
	fc.Advance(8 * time.Second)

	// Server says less time was spent than we interpolated.
	c.OnAuthoritativeTick(55_000, 60_000, 2000)
	own, _ := c.CurrentDisplay()
	if own != 55*time.Second {
		t.Fatalf("own=%v want 55s after resync", own)
	}
	if got := c.LastServerTimestamp(); got != 2000 {
		t.Fatalf("server ts=%d want 2000", got)
	}
}

func TestClock_Staleness(t *testing.T) {
	fc := clockwork.NewFakeClock()
	c := NewClockReconciler(fc, 10*time.Second)

	c.OnAuthoritativeTick(60_000, 60_000, 1000)
	c.SetRunning(SideOwn)

	fc.Advance(9 * time.Second)
	if c.Stale() {
		t.Fatalf("stale before threshold")
	}
	fc.Advance(2 * time.Second)
	if !c.Stale() {
		t.Fatalf("not stale after threshold")
	}

	c.OnAuthoritativeTick(49_000, 60_000, 3000)
	if c.Stale() {
		t.Fatalf("stale right after fresh tick")
	}
}

func TestClock_NotStaleWhenNothingRuns(t *testing.T) {
	fc := clockwork.NewFakeClock()
	c := NewClockReconciler(fc, 10*time.Second)

	c.OnAuthoritativeTick(60_000, 60_000, 1000)
	fc.Advance(time.Minute)
	if c.Stale() {
		t.Fatalf("stale with no running side")
	}
	own, opp := c.CurrentDisplay()
	if own != time.Minute || opp != time.Minute {
		t.Fatalf("paused clocks moved: own=%v opp=%v", own, opp)
	}
}
