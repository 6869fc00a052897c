package sim

import (
	"sync"
	"time"

	"github.com/t76/instrument-core/internal/hw"
)

// timerFactory is the same seam the teacher's chipset package uses
// (timerFactory in internal/devices/amd64/chipset/timer.go) to let tests
// inject a deterministic timer instead of a real one.
type timerFactory func(d time.Duration, cb func()) timerHandle

type timerHandle interface {
	Stop() bool
	Reset(d time.Duration) bool
}

func defaultTimerFactory(d time.Duration, cb func()) timerHandle {
	return time.AfterFunc(d, cb)
}

// Watchdog simulates a hardware watchdog timer: if Refresh is not called
// again before the armed timeout elapses, it calls Reset on the configured
// hw.ResetController exactly once.
type Watchdog struct {
	mu      sync.Mutex
	reset   hw.ResetController
	factory timerFactory
	timer   timerHandle
	armed   bool
	timeout time.Duration
}

// WatchdogOption customises a Watchdog, mainly for tests.
type WatchdogOption func(*Watchdog)

// WithWatchdogTimerFactory injects a custom timer factory.
func WithWatchdogTimerFactory(f func(time.Duration, func()) timerHandle) WatchdogOption {
	return func(w *Watchdog) {
		if f != nil {
			w.factory = f
		}
	}
}

// NewWatchdog returns a Watchdog that resets via rc when starved.
func NewWatchdog(rc hw.ResetController, opts ...WatchdogOption) *Watchdog {
	w := &Watchdog{reset: rc, factory: defaultTimerFactory}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Enable implements hw.Watchdog: it arms (or re-arms) the timeout.
func (w *Watchdog) Enable(timeout time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.armed = true
	w.timeout = timeout
	w.timer = w.factory(timeout, w.fire)
}

// Refresh implements hw.Watchdog: it re-arms the most recently configured
// timeout, simulating a hardware watchdog "kick".
func (w *Watchdog) Refresh() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.armed && w.timer != nil {
		w.timer.Reset(w.lastTimeout())
	}
}

// lastTimeout is a placeholder seam; real hardware watchdogs reload the
// previously-programmed count on kick, so callers always pair Enable with
// subsequent Refresh calls rather than re-specifying the timeout.
func (w *Watchdog) lastTimeout() time.Duration {
	return w.timeout
}

func (w *Watchdog) fire() {
	w.mu.Lock()
	rc := w.reset
	w.mu.Unlock()
	if rc != nil {
		rc.Reset(hw.ResetReasonWatchdogStarved)
	}
}
