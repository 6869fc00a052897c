//go:build !unix

package sim

import (
	"log/slog"
	"os"
)

func init() {
	terminate = func(log *slog.Logger) {
		log.Warn("exiting process to simulate an abrupt hardware reset")
		os.Exit(1)
	}
}
