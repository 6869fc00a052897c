package sim

import (
	"sync"
	"testing"
	"time"

	"github.com/t76/instrument-core/internal/hw"
)

// manualTimer is a timerHandle test double the watchdog drives instead of a
// real time.Timer, mirroring the teacher's manualTimer/manualTimerFactory
// pair in pit_timer_test.go.
type manualTimer struct {
	mu       sync.Mutex
	cb       func()
	duration time.Duration
	stopped  bool
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasRunning := !t.stopped
	t.stopped = true
	return wasRunning
}

func (t *manualTimer) Reset(d time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasRunning := !t.stopped
	t.stopped = false
	t.duration = d
	return wasRunning
}

// Fire invokes the callback as if the duration had elapsed, regardless of
// whether it actually has — the point of injecting a fake timer.
func (t *manualTimer) Fire() {
	t.mu.Lock()
	cb := t.cb
	stopped := t.stopped
	t.mu.Unlock()
	if !stopped && cb != nil {
		cb()
	}
}

func newManualTimerFactory() (func(time.Duration, func()) timerHandle, func() *manualTimer) {
	var mu sync.Mutex
	var last *manualTimer
	factory := func(d time.Duration, cb func()) timerHandle {
		mu.Lock()
		defer mu.Unlock()
		last = &manualTimer{cb: cb, duration: d}
		return last
	}
	latest := func() *manualTimer {
		mu.Lock()
		defer mu.Unlock()
		return last
	}
	return factory, latest
}

// recordingResetController records every Reset call instead of terminating
// the process, so tests can observe the watchdog's behaviour.
type recordingResetController struct {
	mu      sync.Mutex
	reasons []hw.ResetReason
}

func (r *recordingResetController) Reset(reason hw.ResetReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

func (r *recordingResetController) calls() []hw.ResetReason {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]hw.ResetReason(nil), r.reasons...)
}

func TestWatchdogRefreshPreventsReset(t *testing.T) {
	factory, latest := newManualTimerFactory()
	rc := &recordingResetController{}
	w := NewWatchdog(rc, WithWatchdogTimerFactory(factory))

	w.Enable(10 * time.Millisecond)
	w.Refresh()

	if len(rc.calls()) != 0 {
		t.Fatalf("Reset called after Refresh, want none: %v", rc.calls())
	}
	if latest() == nil {
		t.Fatalf("no timer was created by Enable")
	}
}

func TestWatchdogFiresResetWhenStarved(t *testing.T) {
	factory, latest := newManualTimerFactory()
	rc := &recordingResetController{}
	w := NewWatchdog(rc, WithWatchdogTimerFactory(factory))

	w.Enable(10 * time.Millisecond)
	latest().Fire()

	calls := rc.calls()
	if len(calls) != 1 || calls[0] != hw.ResetReasonWatchdogStarved {
		t.Fatalf("Reset calls = %v, want exactly one ResetReasonWatchdogStarved", calls)
	}
}

func TestWatchdogRefreshWithoutEnableIsNoop(t *testing.T) {
	factory, _ := newManualTimerFactory()
	rc := &recordingResetController{}
	w := NewWatchdog(rc, WithWatchdogTimerFactory(factory))

	w.Refresh()

	if len(rc.calls()) != 0 {
		t.Fatalf("Reset called from Refresh before any Enable: %v", rc.calls())
	}
}

func TestWatchdogEnableStopsPriorTimer(t *testing.T) {
	factory, latest := newManualTimerFactory()
	rc := &recordingResetController{}
	w := NewWatchdog(rc, WithWatchdogTimerFactory(factory))

	w.Enable(10 * time.Millisecond)
	first := latest()
	w.Enable(20 * time.Millisecond)

	if !first.stopped {
		t.Fatalf("the first timer should have been stopped when Enable re-armed the watchdog")
	}
}
