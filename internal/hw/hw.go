// Package hw declares the narrow interfaces the safety core uses to talk to
// hardware. Everything in §1's "OUT OF SCOPE" list (USB stack, heap shim,
// descriptor tables) and everything in §6's "External Interfaces" is a
// collaborator reached only through one of these interfaces — the runtime
// itself never assumes a particular MCU. This mirrors how the teacher's
// chipset package only ever talks to silicon through hv.VirtualMachine /
// hv.X86IOPortDevice, never directly.
package hw

import "time"

// CoreID identifies one of the two physical cores.
type CoreID uint8

const (
	CoreP CoreID = 0 // primary: preemptive scheduler
	CoreS CoreID = 1 // secondary: bare-metal loop
)

func (c CoreID) String() string {
	switch c {
	case CoreP:
		return "P"
	case CoreS:
		return "S"
	default:
		return "unknown"
	}
}

// Clock reports monotonic milliseconds since boot.
type Clock interface {
	NowMillis() uint64
}

// Field identifies one of the naturally-aligned 32-bit words of the
// persistent region that §5 permits lock-free access to.
type Field int

const (
	FieldMagic Field = iota
	FieldRebootCount
	FieldSafetyTriggered
	FieldWatchdogFailureCore
	FieldHeartbeat
	fieldCount
)

// FieldCount is the number of single-word fields a Region must back.
const FieldCount = int(fieldCount)

// Region models the aligned, link-time-placed persistent RAM region
// described in §6's "Persisted state layout". Bytes returns the raw backing
// buffer for multi-field reads/writes (last_fault, history), which callers
// must only perform while holding the Mutex returned alongside the Region.
// Word/SetWord are for the handful of naturally-aligned 32-bit fields that
// are safe to access lock-free per §5's ordering guarantees.
type Region interface {
	Bytes() []byte
	Word(f Field) uint32
	SetWord(f Field, v uint32)
	// Sync flushes the region to whatever stable medium backs it. The
	// in-memory simulation treats this as a no-op; a file-backed one
	// flushes to disk so a restarted process observes prior faults.
	Sync() error
}

// Mutex is the cross-core mutex of §4.1: it also models interrupt masking on
// the acquiring core. TryLock reports whether the primitive was available at
// all — callers degrade to best-effort behaviour per §4.1's failure
// semantics when it is not (e.g. the mutex has not been initialised yet).
type Mutex interface {
	Lock()
	Unlock()
	TryLock() bool
}

// ResetReason distinguishes why a reset was requested, mirroring the
// ResetCause sum type discussed in spec.md §9.
type ResetReason uint8

const (
	ResetReasonUnspecified ResetReason = iota
	ResetReasonFault                   // a fault was just persisted; reset to resume cleanly
	ResetReasonWatchdogStarved         // arbiter deliberately withheld a refresh
)

func (r ResetReason) String() string {
	switch r {
	case ResetReasonFault:
		return "fault"
	case ResetReasonWatchdogStarved:
		return "watchdog-starved"
	default:
		return "unspecified"
	}
}

// Watchdog is the hardware watchdog timer. Enable arms it with the given
// timeout; if Refresh is not called again before the timeout elapses, the
// watchdog resets the chip. Enable with a very short timeout is how §4.3
// step 4 forces an immediate reset.
type Watchdog interface {
	Enable(timeout time.Duration)
	Refresh()
}

// ResetController performs the actual reset. Implementations are documented
// to never return control to the caller, matching the bare-metal behaviour
// of §4.3 and §4.5.
type ResetController interface {
	Reset(reason ResetReason)
}

// ResetCauseQuery answers "was the last reset caused by the watchdog". The
// bool result is only meaningful when available is true — on platforms
// without a last-reset-cause register (§9 Open Questions), available is
// false and callers must fall back to the heartbeat-stale heuristic.
type ResetCauseQuery interface {
	WasWatchdogReset() (watchdog bool, available bool)
}
