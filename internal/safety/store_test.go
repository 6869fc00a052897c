package safety

import (
	"testing"

	"github.com/t76/instrument-core/internal/hw/sim"
)

func newTestStore(t *testing.T, maxReboots uint32) *Store {
	t.Helper()
	region := sim.NewMemoryRegion(16 * 1024)
	mutex := sim.NewCrossCoreMutex()
	return NewStore(region, mutex, maxReboots)
}

func TestStoreUninitializedUntilReset(t *testing.T) {
	s := newTestStore(t, 3)
	if s.Initialized() {
		t.Fatalf("a fresh store should report Initialized() == false")
	}
	s.Reset()
	if !s.Initialized() {
		t.Fatalf("Initialized() should be true after Reset()")
	}
}

func TestStoreResetClearsSentinelFields(t *testing.T) {
	s := newTestStore(t, 3)
	s.Reset()

	if got := s.RebootCount(); got != 0 {
		t.Fatalf("RebootCount() after Reset = %d, want 0", got)
	}
	if s.SafetyTriggered() {
		t.Fatalf("SafetyTriggered() after Reset = true, want false")
	}
	if got := s.WatchdogFailureCore(); got != SentinelCore {
		t.Fatalf("WatchdogFailureCore() after Reset = %d, want sentinel %d", got, SentinelCore)
	}
}

func TestStoreAppendFaultIncrementsRebootCountAndHistory(t *testing.T) {
	s := newTestStore(t, 3)
	s.Reset()

	rec := NewFaultRecord(1000, 0, KindAssertStandard, "main.go", 42, "run", "boom")
	s.AppendFault(rec)

	if got := s.RebootCount(); got != 1 {
		t.Fatalf("RebootCount() after one AppendFault = %d, want 1", got)
	}
	if !s.SafetyTriggered() {
		t.Fatalf("SafetyTriggered() after AppendFault = false, want true")
	}
	history := s.History()
	if len(history) != 1 {
		t.Fatalf("len(History()) = %d, want 1", len(history))
	}
	if history[0].Description() != "boom" {
		t.Fatalf("History()[0].Description() = %q, want %q", history[0].Description(), "boom")
	}
	last := s.LastFault()
	if last.Description() != "boom" {
		t.Fatalf("LastFault().Description() = %q, want %q", last.Description(), "boom")
	}
}

func TestStoreAppendFaultClampsAtMaxReboots(t *testing.T) {
	s := newTestStore(t, 2)
	s.Reset()

	for i := 0; i < 5; i++ {
		s.AppendFault(NewFaultRecord(uint64(i), 0, KindAssertStandard, "f.go", i, "fn", "fault"))
	}

	if got := s.RebootCount(); got != 2 {
		t.Fatalf("RebootCount() after 5 faults with maxReboots=2 = %d, want clamped to 2", got)
	}
	if got := len(s.History()); got != 2 {
		t.Fatalf("len(History()) = %d, want 2", got)
	}
}

func TestStoreBeginBootCycleResetsAndReportsPriorState(t *testing.T) {
	s := newTestStore(t, 3)
	s.Reset()
	s.AppendFault(NewFaultRecord(1, 0, KindAssertStandard, "f.go", 1, "fn", "fault"))
	s.SetWatchdogFailureCore(1)

	wasTriggered, failedCore := s.BeginBootCycle()

	if !wasTriggered {
		t.Fatalf("BeginBootCycle wasSafetyTriggered = false, want true")
	}
	if failedCore != 1 {
		t.Fatalf("BeginBootCycle watchdogFailureCore = %d, want 1", failedCore)
	}
	if s.SafetyTriggered() {
		t.Fatalf("SafetyTriggered() after BeginBootCycle = true, want false (cleared for next cycle)")
	}
	if got := s.WatchdogFailureCore(); got != SentinelCore {
		t.Fatalf("WatchdogFailureCore() after BeginBootCycle = %d, want sentinel", got)
	}
}

func TestStoreSetWatchdogFailureCoreOnlyLatchesOnce(t *testing.T) {
	s := newTestStore(t, 3)
	s.Reset()

	s.SetWatchdogFailureCore(0)
	s.SetWatchdogFailureCore(1)

	if got := s.WatchdogFailureCore(); got != 0 {
		t.Fatalf("WatchdogFailureCore() = %d, want the first-observed value 0", got)
	}
}

func TestStoreClearWatchdogObservationResetsSentinel(t *testing.T) {
	s := newTestStore(t, 3)
	s.Reset()
	s.SetWatchdogFailureCore(0)

	s.ClearWatchdogObservation()

	if got := s.WatchdogFailureCore(); got != SentinelCore {
		t.Fatalf("WatchdogFailureCore() after ClearWatchdogObservation = %d, want sentinel", got)
	}
}

func TestStoreHeartbeatRoundTrip(t *testing.T) {
	s := newTestStore(t, 3)
	s.Reset()

	s.PublishHeartbeat(12345)

	if got := s.Heartbeat(); got != 12345 {
		t.Fatalf("Heartbeat() = %d, want 12345", got)
	}
}

func TestStoreClearRebootCount(t *testing.T) {
	s := newTestStore(t, 3)
	s.Reset()
	s.AppendFault(NewFaultRecord(1, 0, KindAssertStandard, "f.go", 1, "fn", "fault"))

	s.ClearRebootCount()

	if got := s.RebootCount(); got != 0 {
		t.Fatalf("RebootCount() after ClearRebootCount = %d, want 0", got)
	}
}

func TestStoreSurvivesRestartAgainstSameRegion(t *testing.T) {
	region := sim.NewMemoryRegion(16 * 1024)
	mutex := sim.NewCrossCoreMutex()
	first := NewStore(region, mutex, 3)
	first.Reset()
	first.AppendFault(NewFaultRecord(1, 0, KindAssertStandard, "f.go", 1, "fn", "persisted"))

	second := NewStore(region, mutex, 3)
	if !second.Initialized() {
		t.Fatalf("a store built over an already-initialised region should report Initialized() == true")
	}
	last := second.LastFault()
	if got := last.Description(); got != "persisted" {
		t.Fatalf("LastFault().Description() on reattach = %q, want %q", got, "persisted")
	}
}
