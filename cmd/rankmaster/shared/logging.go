package shared

import (
	"os"

	"github.com/charmbracelet/log"
)

// SetupLogger configures console logging at the named level. Debug wins over
// the configured level.
func SetupLogger(level string, debug bool) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})
	if debug {
		logger.SetLevel(log.DebugLevel)
		return logger
	}
	if parsed, err := log.ParseLevel(level); err == nil {
		logger.SetLevel(parsed)
	}
	return logger
}
