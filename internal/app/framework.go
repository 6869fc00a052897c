// Package app wires components C1-C11 together into the boot sequence of
// spec.md §4.10 (C12): the Application Framework.
package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/t76/instrument-core/internal/config"
	"github.com/t76/instrument-core/internal/hw"
	"github.com/t76/instrument-core/internal/safety"
)

// IdentityFunc is the SPEC_FULL-supplemented boot banner hook (the
// original's `*IDN?`-equivalent identification string), invoked once after
// the scheduler phase begins.
type IdentityFunc func() string

// App bundles every wired collaborator the framework's Run needs. Build one
// with New, supplying at minimum a Store, Registry, Escalator, Arbiter, and
// the hw collaborators; everything else defaults to a harmless no-op.
type App struct {
	Config config.Config
	Log    *slog.Logger

	Store     *safety.Store
	Registry  *safety.Registry
	Reporter  *safety.Reporter
	Escalator *safety.Escalator
	Arbiter   *safety.Arbiter
	Monitor   *safety.Monitor
	Watchdog  hw.Watchdog
	Reset     hw.ResetController

	// InitHook runs first, for application-specific stdio/status-LED setup.
	InitHook func()
	// InitPrimaryHook runs after the arbiter is launched, for creating
	// application tasks. It receives the App so hooks can reach wired
	// collaborators (Store, Registry, ...).
	InitPrimaryHook func(*App)
	// StartSecondary is S's entry point, launched in its own goroutine. It
	// must call Arbiter.FeedFromSecondary periodically and should return
	// when ctx is cancelled.
	StartSecondary func(ctx context.Context, arbiter *safety.Arbiter)
	// Identity produces the boot banner printed once scheduling begins.
	Identity IdentityFunc

	wg sync.WaitGroup
}

// New builds an App from its required collaborators. Optional fields
// (InitHook, InitPrimaryHook, StartSecondary, Identity, Monitor) may be set
// on the returned value before calling Run.
func New(cfg config.Config, log *slog.Logger, store *safety.Store, registry *safety.Registry, reporter *safety.Reporter, escalator *safety.Escalator, arbiter *safety.Arbiter, watchdog hw.Watchdog, reset hw.ResetController) *App {
	if log == nil {
		log = slog.Default()
	}
	return &App{
		Config:    cfg,
		Log:       log,
		Store:     store,
		Registry:  registry,
		Reporter:  reporter,
		Escalator: escalator,
		Arbiter:   arbiter,
		Watchdog:  watchdog,
		Reset:     reset,
	}
}

// Run executes the §4.10 boot sequence. It blocks until ctx is cancelled,
// matching the "never returns under normal operation" contract (production
// callers pass context.Background(); tests can cancel to observe the
// post-boot state without hanging).
func (a *App) Run(ctx context.Context) {
	if a.InitHook != nil {
		a.InitHook()
	}

	if a.Escalator.Boot() {
		if a.Monitor != nil {
			a.Monitor.Run(ctx)
		}
		return
	}

	if a.Watchdog == nil || a.Reset == nil {
		a.Log.Error("dual-core watchdog arbiter has no hardware backing")
		if a.Reporter != nil {
			a.Reporter.Capture(hw.CoreP, safety.KindHardwareFault, "watchdog arbiter missing hardware backing")
		}
		return
	}

	if a.StartSecondary != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.StartSecondary(ctx, a.Arbiter)
		}()
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.Arbiter.Run(ctx)
	}()

	if a.InitPrimaryHook != nil {
		a.InitPrimaryHook(a)
	}

	if a.Identity != nil {
		a.Log.Info("boot complete", slog.String("identity", a.Identity()))
	}

	<-ctx.Done()
	a.wg.Wait()
}
