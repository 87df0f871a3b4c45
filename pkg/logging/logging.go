// Package logging provides component-aware loggers with consistent field naming.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// New creates the base logger used across the process.
func New(debug bool) *log.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
		TimeFormat:      time.Kitchen,
	})
}

// NewWriter creates a base logger writing to w. Tests pass io.Discard.
func NewWriter(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{Level: log.InfoLevel})
}

// ForComponent returns a child logger tagged with the component name.
func ForComponent(base *log.Logger, component string) *log.Logger {
	if base == nil {
		base = New(false)
	}
	return base.With("component", component)
}
