package safety

import (
	"log/slog"
	"time"

	"github.com/t76/instrument-core/internal/hw"
)

// TaskContext describes the scheduler context a fault was captured in.
type TaskContext struct {
	InTask bool
	Handle uint32
	Name   string
}

// HeapStats describes heap headroom at the moment of a fault. Available is
// false wherever §4.3 says heap stats are unobtainable (the secondary core
// has no heap of its own in this runtime's model).
type HeapStats struct {
	FreeBytes    uint32
	MinFreeBytes uint32
	Available    bool
}

// ContextProvider answers "what task, if any, is running on core right now"
// per §4.3's "task context is detectable only on P when not inside an
// interrupt".
type ContextProvider interface {
	CurrentTask(core hw.CoreID, inInterrupt bool) TaskContext
}

// HeapProvider answers heap headroom queries, available only on P per §4.3.
type HeapProvider interface {
	Heap(core hw.CoreID) HeapStats
}

// StackSampler answers stack headroom queries. §9's Open Question notes
// this is heuristic on S and inside interrupt context; such samples must
// set StackInfo.IsValid to false.
type StackSampler interface {
	Sample(core hw.CoreID, inTask bool) StackInfo
}

// noopContext/noopHeap/noopStack are the "nothing wired up" defaults so a
// Reporter is usable (if less informative) before an application supplies
// real introspection hooks.
type noopContext struct{}

func (noopContext) CurrentTask(hw.CoreID, bool) TaskContext { return TaskContext{} }

type noopHeap struct{}

func (noopHeap) Heap(hw.CoreID) HeapStats { return HeapStats{} }

type noopStack struct{}

func (noopStack) Sample(hw.CoreID, bool) StackInfo { return StackInfo{IsValid: false} }

// Reporter implements the Fault Reporter of §4.3 (C4): it captures a fault,
// persists it, and resets. Report is documented to never return control to
// its caller in production, matching the bare-metal contract; test doubles
// for hw.ResetController may choose to return so unit tests can observe
// state afterwards.
type Reporter struct {
	store    *Store
	clock    hw.Clock
	watchdog hw.Watchdog
	reset    hw.ResetController
	log      *slog.Logger

	context ContextProvider
	heap    HeapProvider
	stack   StackSampler

	cancelAlarm func() // set by the escalator; see AppendFault's caller contract
}

// ReporterOption customises a Reporter.
type ReporterOption func(*Reporter)

// WithContextProvider overrides the task-context introspection hook.
func WithContextProvider(c ContextProvider) ReporterOption {
	return func(r *Reporter) {
		if c != nil {
			r.context = c
		}
	}
}

// WithHeapProvider overrides the heap introspection hook.
func WithHeapProvider(h HeapProvider) ReporterOption {
	return func(r *Reporter) {
		if h != nil {
			r.heap = h
		}
	}
}

// WithStackSampler overrides the stack introspection hook.
func WithStackSampler(s StackSampler) ReporterOption {
	return func(r *Reporter) {
		if s != nil {
			r.stack = s
		}
	}
}

// WithAlarmCanceler registers a hook invoked before a fault is persisted, to
// cancel any pending stable-uptime alarm — the SPEC_FULL supplemented
// behaviour that prevents a just-fired alarm from racing a fresh fault and
// wrongly clearing reboot_count.
func WithAlarmCanceler(cancel func()) ReporterOption {
	return func(r *Reporter) {
		if cancel != nil {
			r.cancelAlarm = cancel
		}
	}
}

// NewReporter builds a Reporter. store may be nil to model the "FaultStore
// pointer is null" case of §4.3 step 1.
func NewReporter(store *Store, clock hw.Clock, watchdog hw.Watchdog, reset hw.ResetController, log *slog.Logger, opts ...ReporterOption) *Reporter {
	if log == nil {
		log = slog.Default()
	}
	r := &Reporter{
		store:    store,
		clock:    clock,
		watchdog: watchdog,
		reset:    reset,
		log:      log,
		context:  noopContext{},
		heap:     noopHeap{},
		stack:    noopStack{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report implements §4.3. description, file, and function are copied into
// fixed-size static-equivalent buffers inside the FaultRecord value — the
// FaultRecord itself lives on Report's stack frame only momentarily before
// being copied into the persistent region under the mutex, never retained
// as a long-lived stack pointer, matching the "never on the stack" spirit
// of the minimal-stack discipline as closely as a managed-memory language
// allows.
func (r *Reporter) Report(core hw.CoreID, kind Kind, description, file string, line int, function string, inInterrupt bool, interruptNumber uint32) {
	r.log.Error("fault captured",
		slog.String("core", core.String()),
		slog.String("kind", kind.String()),
		slog.String("description", description),
		slog.String("file", file),
		slog.Int("line", line),
	)

	if r.store == nil {
		// §4.3 step 1: no persistent store, nothing to record — reset
		// immediately.
		r.resetNow()
		return
	}

	rec := NewFaultRecord(r.clock.NowMillis(), uint8(core), kind, file, line, function, description)

	task := r.context.CurrentTask(core, inInterrupt)
	rec.TaskHandle = task.Handle
	rec.SetTaskName(task.Name)

	if heap := r.heap.Heap(core); heap.Available {
		rec.HeapFreeBytes = heap.FreeBytes
		rec.HeapMinFreeBytes = heap.MinFreeBytes
	}

	rec.Stack = r.stack.Sample(core, task.InTask)
	rec.InInterrupt = inInterrupt
	rec.InterruptNumber = interruptNumber

	if r.cancelAlarm != nil {
		r.cancelAlarm()
	}

	r.store.AppendFault(rec)
	r.resetNow()
}

// resetNow implements §4.3 step 4: arm the watchdog for the shortest
// possible timeout and reset.
func (r *Reporter) resetNow() {
	if r.watchdog != nil {
		r.watchdog.Enable(time.Nanosecond)
	}
	if r.reset != nil {
		r.reset.Reset(hw.ResetReasonFault)
	}
}

// SetAlarmCanceler wires the stable-uptime alarm cancellation hook after
// construction, for callers where the Escalator (which owns the alarm) and
// the Reporter have a circular dependency: the Escalator needs a *Reporter
// to report ACTIVATION_FAILED, and the Reporter needs the Escalator's
// CancelAlarm. Build both, then call this once.
func (r *Reporter) SetAlarmCanceler(cancel func()) {
	r.cancelAlarm = cancel
}

// Capture is the SPEC_FULL-supplemented panic-with-location helper: it uses
// runtime.Caller instead of the original's __FILE__/__LINE__ macro (§9 Open
// Question) to fill source_location without textual macro substitution.
func (r *Reporter) Capture(core hw.CoreID, kind Kind, description string) {
	file, line, function := callerLocation(1)
	r.Report(core, kind, description, file, line, function, false, 0)
}
