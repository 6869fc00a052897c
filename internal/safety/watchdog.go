package safety

import (
	"context"
	"log/slog"
	"time"

	"github.com/t76/instrument-core/internal/hw"
)

// SchedulerStatus answers whether the primary core's task scheduler is
// currently running, the P_healthy half of §4.4 step 3.
type SchedulerStatus interface {
	IsRunning() bool
}

// Arbiter is the Dual-core Watchdog Arbiter of §4.4 (C5): a lowest-priority
// periodic task on P that refreshes the hardware watchdog only when both
// cores are observed healthy.
type Arbiter struct {
	store            *Store
	clock            hw.Clock
	watchdog         hw.Watchdog
	scheduler        SchedulerStatus
	period           time.Duration
	heartbeatTimeout time.Duration
	log              *slog.Logger
}

// NewArbiter builds an Arbiter. period and heartbeatTimeout come from
// config.Config's ArbiterPeriod / HeartbeatTimeout.
func NewArbiter(store *Store, clock hw.Clock, watchdog hw.Watchdog, scheduler SchedulerStatus, period, heartbeatTimeout time.Duration, log *slog.Logger) *Arbiter {
	if log == nil {
		log = slog.Default()
	}
	return &Arbiter{
		store:            store,
		clock:            clock,
		watchdog:         watchdog,
		scheduler:        scheduler,
		period:           period,
		heartbeatTimeout: heartbeatTimeout,
		log:              log,
	}
}

// FeedFromSecondary publishes the current monotonic millisecond timestamp
// into the heartbeat word, the secondary core's API from §4.4. It is a
// no-op if called with hw.CoreP, matching "no-op if called from P".
func (a *Arbiter) FeedFromSecondary(core hw.CoreID) {
	if core == hw.CoreP {
		return
	}
	a.store.PublishHeartbeat(a.clock.NowMillis())
}

// tick performs one arbitration decision (§4.4 steps 1-5).
func (a *Arbiter) tick() {
	now := a.clock.NowMillis()
	heartbeat := uint64(a.store.Heartbeat())

	var ageMs uint64
	if now >= heartbeat {
		ageMs = now - heartbeat
	}
	sHealthy := heartbeat != 0 && ageMs < uint64(a.heartbeatTimeout.Milliseconds())
	pHealthy := a.scheduler == nil || a.scheduler.IsRunning()

	if sHealthy && pHealthy {
		a.watchdog.Refresh()
		a.store.ClearWatchdogObservation()
		return
	}

	failed := hw.CoreS
	if pHealthy {
		// S is the unhealthy one, already hw.CoreS.
	} else if sHealthy {
		failed = hw.CoreP
	}
	a.log.Warn("dual-core watchdog arbiter withholding refresh",
		slog.Bool("s_healthy", sHealthy),
		slog.Bool("p_healthy", pHealthy),
	)
	a.store.SetWatchdogFailureCore(uint8(failed))
	// Deliberately do not refresh: the hardware watchdog, if starved long
	// enough, will fire on its own.
}

// Run blocks, ticking every period using absolute deadlines so the
// scheduling does not drift with each iteration's own processing time, per
// spec.md §9's "must use absolute deadlines to avoid drift". It returns
// when ctx is cancelled.
func (a *Arbiter) Run(ctx context.Context) {
	deadline := time.Now().Add(a.period)
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			a.tick()
			deadline = deadline.Add(a.period)
			d := time.Until(deadline)
			if d < 0 {
				// We fell behind by more than a full period; resync
				// instead of firing a burst of catch-up ticks.
				deadline = time.Now().Add(a.period)
				d = a.period
			}
			timer.Reset(d)
		}
	}
}
