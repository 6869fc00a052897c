package sim

import (
	"log/slog"
	"os"

	"github.com/t76/instrument-core/internal/hw"
)

// terminate ends the current process to simulate a hardware reset. It is
// platform-specific (reset_unix.go / reset_other.go), mirroring the
// teacher's snapshot_darwin_arm64.go / snapshot_other.go split for
// platform-conditional behaviour.
var terminate func(log *slog.Logger)

// ResetController simulates a hardware reset by persisting a reset-cause
// marker next to the backing region (if any) and then terminating the
// process, matching §4.3 step 4 / §4.5's "never returns" contract.
type ResetController struct {
	log  *slog.Logger
	path string // reset-cause marker path; empty disables persistence
}

// NewResetController returns a ResetController. causePath, if non-empty,
// names the file used to remember the reset reason across a process
// restart so a ResetCauseQuery can answer "was the last reset a watchdog
// timeout" on the next simulated boot.
func NewResetController(log *slog.Logger, causePath string) *ResetController {
	if log == nil {
		log = slog.Default()
	}
	return &ResetController{log: log, path: causePath}
}

// Reset implements hw.ResetController.
func (r *ResetController) Reset(reason hw.ResetReason) {
	r.log.Error("simulated hardware reset", slog.String("reason", reason.String()))
	if r.path != "" {
		marker := byte(0)
		if reason == hw.ResetReasonWatchdogStarved {
			marker = 1
		}
		_ = os.WriteFile(r.path, []byte{marker}, 0o600)
	}
	terminate(r.log)
	panic("unreachable: terminate must not return")
}

// CauseQuery answers hw.ResetCauseQuery by reading (and clearing) the
// marker ResetController leaves behind. A missing marker file reports
// available=true with no watchdog reset; an empty marker path reports
// available=false, exercising the §9 fallback path for platforms without a
// last-reset-cause register.
type CauseQuery struct {
	path string
}

// NewCauseQuery returns a CauseQuery reading the given marker path.
func NewCauseQuery(path string) *CauseQuery {
	return &CauseQuery{path: path}
}

// WasWatchdogReset implements hw.ResetCauseQuery.
func (c *CauseQuery) WasWatchdogReset() (watchdog bool, available bool) {
	if c.path == "" {
		return false, false
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return false, true // register available, simply reads "no prior reset"
	}
	_ = os.Remove(c.path)
	return len(data) > 0 && data[0] == 1, true
}
