// Package config holds the compile-time-in-spirit constants of the dual-core
// instrument runtime. On a real MCU these would be #define / constexpr
// values baked into the firmware image; here they are a struct with
// defaults, overridable through functional options the way the teacher's
// chipset devices take PITOption/CMOSOption constructors.
package config

import "time"

// Config bundles every tunable named in spec.md §6.
type Config struct {
	// MaxReboots is the number of consecutive fault-triggered reboots
	// tolerated before the Safety Monitor is entered.
	MaxReboots uint32

	// WatchdogTimeout is the hardware watchdog's refresh deadline.
	WatchdogTimeout time.Duration

	// HeartbeatTimeout is the maximum age of the secondary core's
	// heartbeat before it is considered stalled.
	HeartbeatTimeout time.Duration

	// ArbiterPeriod is the wake period of the dual-core watchdog arbiter
	// task on the primary core.
	ArbiterPeriod time.Duration

	// ComponentCapacity bounds the number of components the registry can
	// hold.
	ComponentCapacity int

	// ABDMax bounds the byte size of an Arbitrary Block Data payload.
	ABDMax int

	// StableUptimeReset is the delay after which a stable boot clears
	// reboot_count. Zero disables the alarm.
	StableUptimeReset time.Duration
}

// Defaults returns the spec's documented default configuration.
func Defaults() Config {
	return Config{
		MaxReboots:        3,
		WatchdogTimeout:   5000 * time.Millisecond,
		HeartbeatTimeout:  2000 * time.Millisecond,
		ArbiterPeriod:     500 * time.Millisecond,
		ComponentCapacity: 32,
		ABDMax:            256,
		StableUptimeReset: 0,
	}
}

// Option customises a Config produced by Defaults.
type Option func(*Config)

// New builds a Config from Defaults with the supplied options applied.
func New(opts ...Option) Config {
	c := Defaults()
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}

// WithMaxReboots overrides MaxReboots.
func WithMaxReboots(n uint32) Option {
	return func(c *Config) { c.MaxReboots = n }
}

// WithWatchdogTimeout overrides WatchdogTimeout.
func WithWatchdogTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.WatchdogTimeout = d
		}
	}
}

// WithHeartbeatTimeout overrides HeartbeatTimeout.
func WithHeartbeatTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.HeartbeatTimeout = d
		}
	}
}

// WithArbiterPeriod overrides ArbiterPeriod.
func WithArbiterPeriod(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.ArbiterPeriod = d
		}
	}
}

// WithComponentCapacity overrides ComponentCapacity.
func WithComponentCapacity(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.ComponentCapacity = n
		}
	}
}

// WithABDMax overrides ABDMax.
func WithABDMax(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.ABDMax = n
		}
	}
}

// WithStableUptimeReset overrides StableUptimeReset. A zero duration
// disables the alarm.
func WithStableUptimeReset(d time.Duration) Option {
	return func(c *Config) { c.StableUptimeReset = d }
}
