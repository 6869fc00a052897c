// Package sim provides an in-process, host-runnable backing implementation
// of the internal/hw interfaces. It stands in for the MCU the same way the
// teacher's internal/devices/*/chipset package stands in for real x86
// silicon: a small mutex-guarded Go type per peripheral, exercised directly
// by tests and by the demo binary.
package sim

import "time"

// Clock is a monotonic millisecond clock measured from construction time.
type Clock struct {
	start time.Time
}

// NewClock returns a Clock whose epoch is the current instant.
func NewClock() *Clock {
	return &Clock{start: time.Now()}
}

// NowMillis implements hw.Clock.
func (c *Clock) NowMillis() uint64 {
	return uint64(time.Since(c.start).Milliseconds())
}
