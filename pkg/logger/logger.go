// Package logger provides the leveled logger used across ichain.
//
// The library itself never requires logging: every constructor defaults to
// the no-op logger. Callers that want the bookkeeping trail (which cached
// lists were found, how many entries a preselection covers, and so on) plug
// in a standard or file-backed logger.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// timeFormat is UTC with constant width and microsecond resolution.
const timeFormat = "2006-01-02T15:04:05.000000Z07:00"

// Verbosity levels, lowest to highest.
const (
	LevelError = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// levelPrefix returns the constant-width tag for a level.
func levelPrefix(level int) string {
	return [...]string{"ERROR: ", "WARN:  ", "INFO:  ", "DEBUG: "}[level]
}

// Logger is the logging interface the rest of the module depends on.
type Logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)

	// WithPrefix returns a Logger with the same configuration that tags
	// every line with the given prefix.
	WithPrefix(prefix string) Logger
}

// NopLogger discards everything.
var NopLogger Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

func (n nopLogger) WithPrefix(string) Logger { return n }

// StderrLogger logs to stderr at info verbosity.
var StderrLogger = NewStandardLogger(os.Stderr)

// standardLogger writes leveled lines through a stdlib log.Logger.
type standardLogger struct {
	logger    *log.Logger
	verbosity int
	prefix    string
	w         io.Writer
}

// timestamped prepends a UTC timestamp to every write.
type timestamped struct {
	w io.Writer
}

func (t timestamped) Write(p []byte) (int, error) {
	return fmt.Fprintf(t.w, "%s %s", time.Now().UTC().Format(timeFormat), p)
}

func newStandardLogger(w io.Writer, verbosity int, prefix string) *standardLogger {
	return &standardLogger{
		logger:    log.New(timestamped{w: w}, prefix, 0),
		verbosity: verbosity,
		prefix:    prefix,
		w:         w,
	}
}

// NewStandardLogger returns a Logger writing to w at info verbosity.
func NewStandardLogger(w io.Writer) Logger {
	return newStandardLogger(w, LevelInfo, "")
}

// NewVerboseLogger returns a Logger writing to w that includes debug lines.
func NewVerboseLogger(w io.Writer) Logger {
	return newStandardLogger(w, LevelDebug, "")
}

func (s *standardLogger) printf(level int, format string, v ...any) {
	if level > s.verbosity {
		return
	}

	s.logger.Printf(levelPrefix(level)+format, v...)
}

func (s *standardLogger) Debugf(format string, v ...any) {
	s.printf(LevelDebug, format, v...)
}

func (s *standardLogger) Infof(format string, v ...any) {
	s.printf(LevelInfo, format, v...)
}

func (s *standardLogger) Warnf(format string, v ...any) {
	s.printf(LevelWarn, format, v...)
}

func (s *standardLogger) Errorf(format string, v ...any) {
	s.printf(LevelError, format, v...)
}

func (s *standardLogger) WithPrefix(prefix string) Logger {
	return newStandardLogger(s.w, s.verbosity, prefix)
}

// Logfer is anything with a Logf method, for instance testing.T.
type Logfer interface {
	Logf(format string, v ...any)
}

// NewLogfLogger adapts a Logfer (testing.T, testing.B) to the Logger
// interface so library logs land in test output.
func NewLogfLogger(l Logfer) Logger {
	return &logfLogger{wrapped: l}
}

type logfLogger struct {
	wrapped Logfer
}

func (l *logfLogger) Debugf(format string, v ...any) { l.wrapped.Logf(format, v...) }
func (l *logfLogger) Infof(format string, v ...any)  { l.wrapped.Logf(format, v...) }
func (l *logfLogger) Warnf(format string, v ...any)  { l.wrapped.Logf(format, v...) }
func (l *logfLogger) Errorf(format string, v ...any) { l.wrapped.Logf(format, v...) }

func (l *logfLogger) WithPrefix(string) Logger { return l }
