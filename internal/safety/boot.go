package safety

import (
	"log/slog"
	"sync"
	"time"

	"github.com/t76/instrument-core/internal/config"
	"github.com/t76/instrument-core/internal/hw"
)

// Escalator implements the Consecutive-fault Escalator of §4.5 (C6): the
// boot-time decision of whether to run normally or drop into the Safety
// Monitor, and the bookkeeping (watchdog-reset classification, stable-uptime
// alarm) that surrounds it.
type Escalator struct {
	store    *Store
	registry *Registry
	reporter *Reporter
	clock    hw.Clock
	query    hw.ResetCauseQuery
	cfg      config.Config
	log      *slog.Logger

	mu    sync.Mutex
	alarm *time.Timer
}

// NewEscalator builds an Escalator. query may be nil, modelling an MCU with
// no last-reset-cause register (§9 Open Questions); Boot then treats the
// prior reset as a watchdog timeout only if the arbiter had recorded an
// unhealthy core (watchdog_failure_core) and safety_triggered is false.
func NewEscalator(store *Store, registry *Registry, reporter *Reporter, clock hw.Clock, query hw.ResetCauseQuery, cfg config.Config, log *slog.Logger) *Escalator {
	if log == nil {
		log = slog.Default()
	}
	return &Escalator{
		store:    store,
		registry: registry,
		reporter: reporter,
		clock:    clock,
		query:    query,
		cfg:      cfg,
		log:      log,
	}
}

// Boot runs §4.5 steps 1-9 and reports whether the Safety Monitor must be
// entered instead of normal operation. enterSafetyMonitor is true when
// reboot_count has reached MaxReboots and the caller must hand control to
// the Safety Monitor instead of activating components.
func (e *Escalator) Boot() (enterSafetyMonitor bool) {
	firstBoot := !e.store.Initialized()
	if firstBoot {
		e.log.Info("first boot: initialising fault store")
		e.store.Reset()
	}

	// The reset-cause register alone cannot tell a genuine watchdog stall
	// apart from the Reporter's own forced reset (§4.3 step 4 arms the
	// hardware watchdog with the shortest possible timeout to reset the
	// chip): both leave the same "watchdog caused this reboot" bit set.
	// safety_triggered disambiguates the two, so it must be read before
	// BeginBootCycle clears it, and the classification must additionally
	// never run on first boot (there is no prior cycle to classify).
	safetyTriggeredBeforeClassification := e.store.SafetyTriggered()
	watchdog, available := e.classifyWatchdogReset()
	if !available {
		// No reset-cause register: an unhealthy core the arbiter recorded
		// before the reset (watchdog_failure_core not the sentinel) stands in.
		watchdog = e.store.WatchdogFailureCore() != SentinelCore
	}
	if watchdog && !firstBoot && !safetyTriggeredBeforeClassification {
		e.log.Warn("prior reset was a watchdog timeout")
		if e.reporter != nil {
			rec := NewFaultRecord(e.clock.NowMillis(), uint8(hw.CoreP), KindWatchdogTimeout,
				"escalator", 0, "Boot", "watchdog arbiter withheld refresh")
			e.store.AppendFault(rec)
		}
	}

	wasSafetyTriggered, failedCore := e.store.BeginBootCycle()
	if wasSafetyTriggered {
		e.log.Info("prior boot ended in a reported fault", slog.Uint64("failed_core", uint64(failedCore)))
	}

	e.registry.MakeSafeAll()
	e.scheduleStableUptimeAlarm()

	if e.store.RebootCount() >= e.cfg.MaxReboots {
		e.log.Error("consecutive reboot budget exhausted, entering safety monitor",
			slog.Uint64("reboot_count", uint64(e.store.RebootCount())),
			slog.Uint64("max_reboots", uint64(e.cfg.MaxReboots)),
		)
		return true
	}

	ok, failedName := e.registry.ActivateAll()
	if !ok {
		e.log.Error("component activation failed", slog.String("component", failedName))
		if e.reporter != nil {
			e.reporter.Capture(hw.CoreP, KindActivationFailed, "activation failed: "+failedName)
			// Capture does not return in production; reachable only under test doubles.
		}
		return false
	}
	return false
}

// classifyWatchdogReset reports whether the prior reset was watchdog-caused,
// falling back to "unavailable" when query is nil (§9 Open Questions: not
// every MCU exposes a last-reset-cause register).
func (e *Escalator) classifyWatchdogReset() (watchdog bool, available bool) {
	if e.query == nil {
		return false, false
	}
	return e.query.WasWatchdogReset()
}

// scheduleStableUptimeAlarm arms the optional stable-uptime alarm from §4.5
// step 7: if the system runs for StableUptimeReset without faulting,
// reboot_count is cleared. A zero StableUptimeReset disables the alarm
// entirely. CancelAlarm is wired into the Reporter via SetAlarmCanceler so a
// fault arriving before the alarm fires does not race a clear against the
// AppendFault that is about to happen.
func (e *Escalator) scheduleStableUptimeAlarm() {
	if e.cfg.StableUptimeReset <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alarm = time.AfterFunc(e.cfg.StableUptimeReset, func() {
		e.log.Info("uptime stable, clearing consecutive reboot count")
		e.store.ClearRebootCount()
	})
}

// CancelAlarm stops the pending stable-uptime alarm, if any. It is safe to
// call more than once and from any goroutine; intended for
// Reporter.SetAlarmCanceler.
func (e *Escalator) CancelAlarm() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.alarm != nil {
		e.alarm.Stop()
	}
}
