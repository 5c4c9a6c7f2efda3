// Package logger provides modifications to charmbracelet/log's default logger to be used in various files/packages.
package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New creates a new default charm log on stderr that respects the global log level.
func New(prefix string) *log.Logger {
	return NewWithConfig(os.Stderr, prefix, log.GetLevel(), false, log.GetLevel() <= log.DebugLevel, log.TextFormatter)
}

// NewWithConfig creates a new charm log with custom config
func NewWithConfig(w io.Writer, prefix string, level log.Level, caller bool, showTimestamp bool, fmt log.Formatter) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportCaller:    caller,
		ReportTimestamp: showTimestamp,
		Formatter:       fmt,
	})
}

// Setup configures the package-level logger used by library code.
// Debug mode lowers the level and turns on timestamps and caller info.
func Setup(debug bool) {
	log.SetOutput(os.Stderr)
	if debug {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
		log.SetReportCaller(true)
		return
	}
	log.SetLevel(log.WarnLevel)
	log.SetReportTimestamp(false)
	log.SetReportCaller(false)
}
