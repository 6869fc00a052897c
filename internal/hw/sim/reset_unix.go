//go:build unix

package sim

import (
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

func init() {
	terminate = func(log *slog.Logger) {
		log.Warn("raising SIGABRT to self to simulate an abrupt hardware reset")
		_ = unix.Kill(os.Getpid(), unix.SIGABRT)
		// Belt and braces in case delivery is deferred or masked.
		os.Exit(1)
	}
}
