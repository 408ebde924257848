package out

import (
	"fmt"
	"io"
	"log"

	"github.com/davecgh/go-spew/spew"
)

// Logger prefixes lines with their level, debug lines are dropped unless enabled.
// It satisfies the apm.Logger interface so the tracer logs through it as well.
type Logger struct {
	*log.Logger
	debug bool
}

func NewLogger(w io.Writer, debug bool) *Logger {
	return &Logger{
		Logger: log.New(w, "", log.Ldate|log.Ltime|log.Lshortfile),
		debug:  debug,
	}
}

// Discard returns a logger that writes nowhere, for tests.
func Discard() *Logger {
	return NewLogger(io.Discard, false)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.debug {
		l.Output(2, fmt.Sprintf("[debug] "+format, args...))
	}
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.Output(2, fmt.Sprintf("[info] "+format, args...))
}

func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Output(2, fmt.Sprintf("[warning] "+format, args...))
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Output(2, fmt.Sprintf("[error] "+format, args...))
}

// Dump writes a deep representation of `v` at debug level.
func (l *Logger) Dump(label string, v interface{}) {
	if l.debug {
		l.Output(2, fmt.Sprintf("[debug] %s: %s", label, spew.Sdump(v)))
	}
}

func (l *Logger) DebugEnabled() bool {
	return l.debug
}
