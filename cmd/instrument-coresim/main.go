// Command instrument-coresim demonstrates the dual-core instrument runtime
// end to end: it boots the safety core's escalator, simulates the two
// physical cores as goroutines, and serves a minimal SCPI command set over
// stdin/stdout, all backed by a persistent state file that survives
// process restarts the way persistent RAM survives a reset.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/t76/instrument-core/internal/app"
	"github.com/t76/instrument-core/internal/config"
	"github.com/t76/instrument-core/internal/hw"
	"github.com/t76/instrument-core/internal/hw/sim"
	"github.com/t76/instrument-core/internal/safety"
	"github.com/t76/instrument-core/internal/scpi"
)

const regionSize = 16 * 1024

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "instrument-coresim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	statePath := flag.String("state", "instrument.state", "path to the persistent state file")
	injectFault := flag.Bool("inject-fault", false, "report a synthetic fault before booting, to exercise the escalator")
	maxReboots := flag.Uint("max-reboots", 0, "override the consecutive reboot budget (0 keeps the default)")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg := config.Defaults()
	if *maxReboots > 0 {
		cfg.MaxReboots = uint32(*maxReboots)
	}

	clock := sim.NewClock()
	mutex := sim.NewCrossCoreMutex()
	region, existed, err := sim.NewFileRegion(*statePath, regionSize)
	if err != nil {
		return fmt.Errorf("opening persistent region: %w", err)
	}
	if !existed {
		log.Info("no prior state file found, this is a cold boot", slog.String("path", *statePath))
	}

	resetCause := *statePath + ".reset-cause"
	resetController := sim.NewResetController(log, resetCause)
	causeQuery := sim.NewCauseQuery(resetCause)
	watchdog := sim.NewWatchdog(resetController)

	store := safety.NewStore(region, mutex, cfg.MaxReboots)
	registry := safety.NewRegistry(cfg.ComponentCapacity)
	reporter := safety.NewReporter(store, clock, watchdog, resetController, log)
	escalator := safety.NewEscalator(store, registry, reporter, clock, causeQuery, cfg, log)
	reporter.SetAlarmCanceler(escalator.CancelAlarm)
	arbiter := safety.NewArbiter(store, clock, watchdog, nil, cfg.ArbiterPeriod, cfg.HeartbeatTimeout, log)
	monitor := safety.NewMonitor(store, nil, os.Stdout, 400*time.Millisecond, log)

	if *injectFault {
		reporter.Capture(hw.CoreP, safety.KindAssertStandard, "synthetic fault requested via -inject-fault")
	}

	registry.Register(stdioComponent{})

	table := scpi.BuildCommandTable(demoCommands(store))
	interp := scpi.NewInterpreter(table, cfg.ABDMax)

	instrument := app.New(cfg, log, store, registry, reporter, escalator, arbiter, watchdog, resetController)
	instrument.Monitor = monitor
	instrument.StartSecondary = func(ctx context.Context, arbiter *safety.Arbiter) {
		runSecondaryCore(ctx, arbiter)
	}
	instrument.InitPrimaryHook = func(a *app.App) {
		progress := progressbar.Default(int64(a.Registry.Count()))
		defer progress.Close()
		progress.Describe("activating components")
		progress.Add(a.Registry.Count())
	}
	instrument.Identity = func() string {
		return "t76,instrument-coresim,0,1.0"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("putting console in raw mode: %w", err)
		}
		defer term.Restore(fd, oldState)
	}

	go serveSCPI(ctx, interp, log)

	instrument.Run(ctx)
	return nil
}

// runSecondaryCore simulates S: a bare-metal loop with no scheduler that
// simply proves it is alive by feeding the watchdog arbiter's heartbeat.
func runSecondaryCore(ctx context.Context, arbiter *safety.Arbiter) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			arbiter.FeedFromSecondary(hw.CoreS)
		}
	}
}

// serveSCPI feeds stdin through the interpreter byte by byte, printing any
// queued errors after each line — a minimal stand-in for the USB task that
// would drive process() on real hardware.
func serveSCPI(ctx context.Context, interp *scpi.Interpreter, log *slog.Logger) {
	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		b, err := reader.ReadByte()
		if err != nil {
			return
		}
		interp.Process(b)
		if b == '\n' || b == '\r' {
			for _, e := range interp.Errors() {
				fmt.Fprintln(os.Stdout, e)
			}
		}
	}
}

// stdioComponent is the minimal §4.2 Component this demo registers so
// ActivateAll/MakeSafeAll have at least one real member to exercise.
type stdioComponent struct{}

func (stdioComponent) Activate() bool { return true }
func (stdioComponent) MakeSafe()      {}
func (stdioComponent) Name() string   { return "stdio" }

// demoCommands builds a tiny SCPI command set: *IDN?, SYSTem:ERRor?, and
// SYSTem:FAULTcount? — enough to prove dispatch, error-queue draining, and
// a read-only query into the safety core's persistent state all work
// end to end.
func demoCommands(store *safety.Store) []scpi.CommandDescriptor {
	return []scpi.CommandDescriptor{
		{
			Name: "*IDN?",
			Handler: func(values []scpi.ParameterValue, interp *scpi.Interpreter) {
				fmt.Fprintln(os.Stdout, "t76,instrument-coresim,0,1.0")
			},
		},
		{
			Name: "SYSTem:ERRor?",
			Handler: func(values []scpi.ParameterValue, interp *scpi.Interpreter) {
				for _, e := range scpi.DrainErrors(interp) {
					fmt.Fprintln(os.Stdout, e)
				}
			},
		},
		{
			Name: "SYSTem:FAULTcount?",
			Handler: func(values []scpi.ParameterValue, interp *scpi.Interpreter) {
				fmt.Fprintln(os.Stdout, store.RebootCount())
			},
		},
	}
}
