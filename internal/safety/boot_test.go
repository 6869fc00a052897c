package safety

import (
	"testing"

	"github.com/t76/instrument-core/internal/config"
	"github.com/t76/instrument-core/internal/hw"
	"github.com/t76/instrument-core/internal/hw/sim"
)

type fixedCauseQuery struct {
	watchdog  bool
	available bool
}

func (q fixedCauseQuery) WasWatchdogReset() (bool, bool) { return q.watchdog, q.available }

func newTestEscalator(t *testing.T, cfg config.Config, query hw.ResetCauseQuery) (*Escalator, *Store, *Registry, *recordingReset) {
	t.Helper()
	store := NewStore(sim.NewMemoryRegion(16 * 1024), sim.NewCrossCoreMutex(), cfg.MaxReboots)
	registry := NewRegistry(cfg.ComponentCapacity)
	reset := &recordingReset{}
	reporter := NewReporter(store, &fakeClock{now: 1}, &recordingWatchdog{}, reset, nil)
	escalator := NewEscalator(store, registry, reporter, &fakeClock{now: 1}, query, cfg, nil)
	reporter.SetAlarmCanceler(escalator.CancelAlarm)
	return escalator, store, registry, reset
}

func TestEscalatorFirstBootInitializesStore(t *testing.T) {
	cfg := config.Defaults()
	escalator, store, registry, _ := newTestEscalator(t, cfg, fixedCauseQuery{available: false})
	registry.Register(&fakeComponent{name: "a", activateOK: true})

	enterSafetyMonitor := escalator.Boot()

	if enterSafetyMonitor {
		t.Fatalf("Boot on a fresh store should not enter the safety monitor")
	}
	if !store.Initialized() {
		t.Fatalf("Boot should initialise the store on first boot")
	}
}

func TestEscalatorClassifiesWatchdogResetAsFault(t *testing.T) {
	cfg := config.Defaults()
	escalator, store, registry, _ := newTestEscalator(t, cfg, fixedCauseQuery{watchdog: true, available: true})
	registry.Register(&fakeComponent{name: "a", activateOK: true})
	store.Reset() // simulate "already initialised" so the watchdog classification branch runs

	escalator.Boot()

	if got := store.RebootCount(); got == 0 {
		t.Fatalf("a classified watchdog reset should have appended a fault record, RebootCount() = %d", got)
	}
	last := store.LastFault()
	if last.Kind != KindWatchdogTimeout {
		t.Fatalf("LastFault().Kind = %v, want KindWatchdogTimeout", last.Kind)
	}
}

func TestEscalatorSkipsWatchdogClassificationWhenSafetyTriggered(t *testing.T) {
	cfg := config.Defaults()
	escalator, store, registry, _ := newTestEscalator(t, cfg, fixedCauseQuery{watchdog: true, available: true})
	registry.Register(&fakeComponent{name: "a", activateOK: true})
	store.Reset()
	// A reset-cause register cannot tell a genuine watchdog stall apart
	// from the reset the Reporter itself forces after persisting a fault
	// (§4.3 step 4 also arms the hardware watchdog) — both leave the same
	// "watchdog caused this reboot" bit set. safety_triggered is what
	// disambiguates them, so a fault already recorded this cycle must
	// suppress the synthesized watchdog-timeout classification.
	store.AppendFault(NewFaultRecord(1, 0, KindAssertStandard, "f.go", 1, "fn", "genuine fault"))
	before := store.RebootCount()

	escalator.Boot()

	if got := store.RebootCount(); got != before {
		t.Fatalf("Boot() synthesized an extra watchdog fault on top of an already-reported one: RebootCount went from %d to %d", before, got)
	}
	if last := store.LastFault(); last.Kind == KindWatchdogTimeout {
		t.Fatalf("Boot() classified a Reporter-forced reset as a watchdog timeout, LastFault().Kind = %v", last.Kind)
	}
}

func TestEscalatorSkipsWatchdogClassificationOnFirstBoot(t *testing.T) {
	cfg := config.Defaults()
	escalator, store, registry, _ := newTestEscalator(t, cfg, fixedCauseQuery{watchdog: true, available: true})
	registry.Register(&fakeComponent{name: "a", activateOK: true})
	// Deliberately do not pre-initialise the store, so Boot() sees firstBoot
	// == true: there is no prior cycle to classify a watchdog reset against.

	escalator.Boot()

	if got := store.RebootCount(); got != 0 {
		t.Fatalf("Boot() on a first boot should not synthesize a watchdog fault, RebootCount() = %d", got)
	}
}

func TestEscalatorEntersSafetyMonitorAtRebootBudget(t *testing.T) {
	cfg := config.Defaults()
	cfg.MaxReboots = 2
	escalator, store, registry, _ := newTestEscalator(t, cfg, fixedCauseQuery{available: false})
	registry.Register(&fakeComponent{name: "a", activateOK: true})
	store.Reset()
	store.AppendFault(NewFaultRecord(1, 0, KindAssertStandard, "f.go", 1, "fn", "one"))
	store.AppendFault(NewFaultRecord(2, 0, KindAssertStandard, "f.go", 2, "fn", "two"))

	enterSafetyMonitor := escalator.Boot()

	if !enterSafetyMonitor {
		t.Fatalf("Boot should enter the safety monitor once reboot_count reaches MaxReboots")
	}
}

func TestEscalatorActivationFailureReportsAndStaysNormal(t *testing.T) {
	cfg := config.Defaults()
	escalator, store, registry, reset := newTestEscalator(t, cfg, fixedCauseQuery{available: false})
	registry.Register(&fakeComponent{name: "bad", activateOK: false})
	store.Reset()

	enterSafetyMonitor := escalator.Boot()

	if enterSafetyMonitor {
		t.Fatalf("an activation failure should not by itself enter the safety monitor")
	}
	if len(reset.calls()) != 1 {
		t.Fatalf("an activation failure should report through the reporter, triggering exactly one reset, got %v", reset.calls())
	}
}

func TestEscalatorMakeSafeAllRunsEveryBoot(t *testing.T) {
	cfg := config.Defaults()
	escalator, store, registry, _ := newTestEscalator(t, cfg, fixedCauseQuery{available: false})
	c := &fakeComponent{name: "a", activateOK: true}
	registry.Register(c)
	store.Reset()

	escalator.Boot()

	if c.safeCount() == 0 {
		t.Fatalf("Boot should call MakeSafeAll on every boot, safeCount() = %d", c.safeCount())
	}
}
