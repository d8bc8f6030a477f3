// Package sleighlog is a thin, component-tagged wrapper over the standard
// library logger, used for diagnostic tracing by cmd/sleighctl's parse
// subcommand; the preprocessor, parser and matcher do not log. It carries
// no correctness weight: every caller would behave identically with a nil
// logger.
//
// No structured/leveled logging library appears anywhere in the retrieved
// example pack (see DESIGN.md), so this one ambient concern is deliberately
// built on the standard library rather than an ecosystem dependency.
package sleighlog

import (
	"io"
	"log"
	"os"
)

// Logger tags every line with a component name.
type Logger struct {
	component string
	inner     *log.Logger
}

// New returns a Logger that writes to os.Stderr, tagged with component.
func New(component string) *Logger {
	return &Logger{
		component: component,
		inner:     log.New(os.Stderr, "", log.LstdFlags),
	}
}

// NewTo returns a Logger writing to w instead of os.Stderr.
func NewTo(component string, w io.Writer) *Logger {
	return &Logger{
		component: component,
		inner:     log.New(w, "", log.LstdFlags),
	}
}

// Tracef logs a formatted diagnostic line.
func (l *Logger) Tracef(format string, args ...any) {
	if l == nil {
		return
	}
	l.inner.Printf("["+l.component+"] "+format, args...)
}
