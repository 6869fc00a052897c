package safety

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/t76/instrument-core/internal/hw"
)

// Magic is the canonical constant from spec.md §6 proving the persistent
// region has already been initialised by this runtime.
const Magic uint32 = 0x054F3570

// Version is the on-disk/on-RAM layout version.
const Version uint32 = 1

// MaxRebootsCap bounds how large Config.MaxReboots may be: the history
// array is a compile-time-sized buffer the way a real linker-placed
// persistent RAM region would be, so MaxReboots can be tuned per build but
// never exceed the array it is backed by.
const MaxRebootsCap = 16

// SentinelCore marks "no core" in WatchdogFailureCore.
const SentinelCore uint8 = 0xFF

// payload is the gob-encoded portion of the store, following an 8-byte
// magic+version header written directly with binary.LittleEndian so the
// "has this region ever been initialised" check never depends on decoding
// untrusted/garbage bytes. The teacher's own snapshot_gob.go registers gob
// encoders for device state for exactly this reason: compact, versioned,
// and trivial to round-trip without hand-rolled byte packing.
type payload struct {
	LastFault           FaultRecord
	RebootCount         uint32
	History             [MaxRebootsCap]FaultRecord
	SafetyTriggered     bool
	WatchdogFailureCore uint8
}

// Store wraps a hw.Region + hw.Mutex as the FaultStore of spec.md §3,
// enforcing the §4.1 invariants: multi-field reads/writes happen only under
// the mutex, and the few single-word fields (magic, reboot_count,
// safety_triggered, watchdog_failure_core) are readable lock-free via the
// region's atomics.
type Store struct {
	region hw.Region
	mutex  hw.Mutex
	maxReboots uint32
}

// NewStore wraps region/mutex as a Store capped at maxReboots consecutive
// fault records (clamped to MaxRebootsCap).
func NewStore(region hw.Region, mutex hw.Mutex, maxReboots uint32) *Store {
	if maxReboots == 0 || maxReboots > MaxRebootsCap {
		maxReboots = MaxRebootsCap
	}
	s := &Store{region: region, mutex: mutex, maxReboots: maxReboots}
	// A region reloaded from its stable medium carries the magic header in
	// its bytes but not in its word atomics: restore the words from it.
	if data := region.Bytes(); region.Word(hw.FieldMagic) != Magic && len(data) >= 8 && binary.LittleEndian.Uint32(data[0:4]) == Magic {
		mutex.Lock()
		p := s.readLocked()
		mutex.Unlock()
		region.SetWord(hw.FieldRebootCount, p.RebootCount)
		if p.SafetyTriggered {
			region.SetWord(hw.FieldSafetyTriggered, 1)
		}
		region.SetWord(hw.FieldWatchdogFailureCore, uint32(p.WatchdogFailureCore))
		region.SetWord(hw.FieldMagic, Magic)
	}
	return s
}

// Initialized reports whether the region already carries a valid store,
// per §3's invariant "valid iff magic equals the canonical constant". This
// is a lock-free single-word read, safe before the mutex is known-good.
func (s *Store) Initialized() bool {
	return s.region.Word(hw.FieldMagic) == Magic
}

// Reset zeroes the store and stamps magic/version — "created on first boot"
// per §3's Lifecycle. Must only be called once per cold boot (§4.1).
func (s *Store) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.writeLocked(payload{WatchdogFailureCore: SentinelCore})
	s.region.SetWord(hw.FieldMagic, Magic)
	s.region.SetWord(hw.FieldRebootCount, 0)
	s.region.SetWord(hw.FieldSafetyTriggered, 0)
	s.region.SetWord(hw.FieldWatchdogFailureCore, uint32(SentinelCore))
	_ = s.region.Sync()
}

// readLocked decodes the current payload. Callers must hold the mutex.
func (s *Store) readLocked() payload {
	var p payload
	data := s.region.Bytes()
	if len(data) <= 8 {
		return p
	}
	dec := gob.NewDecoder(bytes.NewReader(data[8:]))
	_ = dec.Decode(&p) // best-effort: a short/garbage buffer just yields zero value
	return p
}

func (s *Store) writeLocked(p payload) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&p); err != nil {
		return
	}
	data := s.region.Bytes()
	if len(data) < 8+buf.Len() {
		return // region too small; best-effort degrade per §4.1 failure semantics
	}
	binary.LittleEndian.PutUint32(data[0:4], s.region.Word(hw.FieldMagic))
	binary.LittleEndian.PutUint32(data[4:8], Version)
	copy(data[8:], buf.Bytes())
}

// LastFault returns the most recently reported fault.
func (s *Store) LastFault() FaultRecord {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.readLocked().LastFault
}

// RebootCount is the number of consecutive fault-triggered reboots.
// Lock-free per §5.
func (s *Store) RebootCount() uint32 {
	return s.region.Word(hw.FieldRebootCount)
}

// SafetyTriggered reports whether the prior reset was initiated by this
// runtime, lock-free per §5.
func (s *Store) SafetyTriggered() bool {
	return s.region.Word(hw.FieldSafetyTriggered) != 0
}

// WatchdogFailureCore returns the core the arbiter first observed unhealthy,
// or SentinelCore, lock-free per §5.
func (s *Store) WatchdogFailureCore() uint8 {
	return uint8(s.region.Word(hw.FieldWatchdogFailureCore))
}

// History returns the populated portion of the fault history, ordered by
// insertion (§3 invariant: history[0..reboot_count] are populated).
func (s *Store) History() []FaultRecord {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	p := s.readLocked()
	n := p.RebootCount
	if n > uint32(len(p.History)) {
		n = uint32(len(p.History))
	}
	out := make([]FaultRecord, n)
	copy(out, p.History[:n])
	return out
}

// AppendFault records rec as last_fault and, if the history is not full,
// appends it and increments reboot_count, clamped at maxReboots (§3
// invariant 0 <= reboot_count <= MAX_REBOOTS). It also sets
// safety_triggered, per §4.3 step 3. Must be called under conditions where
// the caller will trigger a reset immediately afterwards.
func (s *Store) AppendFault(rec FaultRecord) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	p := s.readLocked()
	p.LastFault = rec
	if p.RebootCount < s.maxReboots && p.RebootCount < uint32(len(p.History)) {
		p.History[p.RebootCount] = rec
		p.RebootCount++
	}
	p.SafetyTriggered = true
	s.writeLocked(p)

	s.region.SetWord(hw.FieldRebootCount, p.RebootCount)
	s.region.SetWord(hw.FieldSafetyTriggered, 1)
	_ = s.region.Sync()
}

// SetWatchdogFailureCore records the first-observed unhealthy core (§4.4
// step 5), under the mutex.
func (s *Store) SetWatchdogFailureCore(core uint8) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.WatchdogFailureCore() != SentinelCore {
		return
	}
	p := s.readLocked()
	p.WatchdogFailureCore = core
	s.writeLocked(p)
	s.region.SetWord(hw.FieldWatchdogFailureCore, uint32(core))
	_ = s.region.Sync()
}

// ClearWatchdogObservation resets watchdog_failure_core to the sentinel,
// called whenever both cores are observed healthy (§4.4 step 4).
func (s *Store) ClearWatchdogObservation() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	p := s.readLocked()
	p.WatchdogFailureCore = SentinelCore
	s.writeLocked(p)
	s.region.SetWord(hw.FieldWatchdogFailureCore, uint32(SentinelCore))
	_ = s.region.Sync()
}

// BeginBootCycle resets safety_triggered and watchdog_failure_core for the
// next cycle (§4.5 step 5), returning the values observed before the reset
// so the caller can classify the reboot.
func (s *Store) BeginBootCycle() (wasSafetyTriggered bool, watchdogFailureCore uint8) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	p := s.readLocked()
	wasSafetyTriggered = p.SafetyTriggered
	watchdogFailureCore = p.WatchdogFailureCore

	p.SafetyTriggered = false
	p.WatchdogFailureCore = SentinelCore
	s.writeLocked(p)
	s.region.SetWord(hw.FieldSafetyTriggered, 0)
	s.region.SetWord(hw.FieldWatchdogFailureCore, uint32(SentinelCore))
	_ = s.region.Sync()
	return wasSafetyTriggered, watchdogFailureCore
}

// PublishHeartbeat implements the secondary core's half of §4.4: it writes
// the current monotonic millisecond timestamp into the single shared
// heartbeat word, lock-free per §5.
func (s *Store) PublishHeartbeat(nowMillis uint64) {
	s.region.SetWord(hw.FieldHeartbeat, uint32(nowMillis))
}

// Heartbeat reads the last-published heartbeat timestamp, lock-free.
func (s *Store) Heartbeat() uint32 {
	return s.region.Word(hw.FieldHeartbeat)
}

// ClearRebootCount implements the optional stable-uptime alarm of §4.5 step
// 7: the system has proved stable, so the consecutive-fault counter is
// cleared.
func (s *Store) ClearRebootCount() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	p := s.readLocked()
	p.RebootCount = 0
	s.writeLocked(p)
	s.region.SetWord(hw.FieldRebootCount, 0)
	_ = s.region.Sync()
}
