package safety

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/t76/instrument-core/internal/hw"
)

// StatusIndicator is the minimal status LED the Safety Monitor toggles once
// per history pass, per §4.5.
type StatusIndicator interface {
	Toggle()
}

// noopIndicator is the default when no application-specific LED is wired.
type noopIndicator struct{}

func (noopIndicator) Toggle() {}

// Monitor is the post-mortem Safety Monitor of §4.5 (C7): reached after
// MaxReboots consecutive fault-triggered reboots, it boots minimal I/O and
// emits the fault history until an external reset. Run blocks until ctx is
// cancelled; production callers pass context.Background() so it behaves as
// the spec's "does not return" contract, while tests can cancel ctx to
// observe the banner and at least one history pass.
type Monitor struct {
	store     *Store
	indicator StatusIndicator
	out       io.Writer
	delay     time.Duration
	log       *slog.Logger
}

// NewMonitor builds a Monitor. indicator may be nil, defaulting to a no-op.
func NewMonitor(store *Store, indicator StatusIndicator, out io.Writer, interRecordDelay time.Duration, log *slog.Logger) *Monitor {
	if indicator == nil {
		indicator = noopIndicator{}
	}
	if log == nil {
		log = slog.Default()
	}
	if interRecordDelay <= 0 {
		interRecordDelay = 500 * time.Millisecond
	}
	return &Monitor{store: store, indicator: indicator, out: out, delay: interRecordDelay, log: log}
}

// Run initializes minimum I/O and starts the two cooperative tasks described
// in §4.5: a USB stack task stub that would service USB interrupts on real
// hardware, and a reporter task that prints the reboot-limit banner and
// cycles through the fault history, toggling the status indicator each pass.
func (m *Monitor) Run(ctx context.Context) {
	banner := ansi.Style{}.Bold().Foreground(ansi.BrightRed).Styled("SAFETY MONITOR: reboot limit reached")
	fmt.Fprintln(m.out, banner)
	m.log.Error("entering safety monitor")

	usbDone := make(chan struct{})
	go m.usbStackTask(ctx, usbDone)

	m.reporterTask(ctx)
	<-usbDone
}

// usbStackTask stands in for "services USB interrupts" — there are no real
// USB interrupts to service in this simulation, so it simply idles until
// cancelled, preserving the two-cooperative-tasks shape of §4.5.
func (m *Monitor) usbStackTask(ctx context.Context, done chan struct{}) {
	defer close(done)
	<-ctx.Done()
}

// reporterTask prints the fault history on a fixed inter-record delay,
// toggling the status indicator once per full pass, until ctx is cancelled.
func (m *Monitor) reporterTask(ctx context.Context) {
	for {
		history := m.store.History()
		fmt.Fprintf(m.out, "%s\n", ansi.Style{}.Bold().Styled(fmt.Sprintf("fault history (%d entries)", len(history))))
		for _, rec := range history {
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.delay):
			}
			fmt.Fprintf(m.out, "  core=%s kind=%s at=%s:%d %q\n",
				hw.CoreID(rec.CoreID), rec.Kind, rec.SourceFile(), rec.SourceLine(), rec.Description())
		}
		m.indicator.Toggle()

		select {
		case <-ctx.Done():
			return
		case <-time.After(m.delay):
		}
	}
}
