package cozy

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// LoggerSetter is implemented by renderers that accept a logger.
type LoggerSetter interface {
	SetLogger(*slog.Logger)
}

var (
	sinksMu sync.Mutex
	sinks   []LoggerSetter
)

// SetLogger configures the logger for cozy and every registered renderer.
// By default cozy produces no log output. Pass nil to restore silence.
//
// Log levels used by cozy:
//   - [slog.LevelDebug]: pipeline creation, buffer growth, hot reloads
//   - [slog.LevelInfo]: lifecycle events (device opened, loop started)
//   - [slog.LevelWarn]: texture fallbacks, skipped frames, handshake failures
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	sinksMu.Lock()
	defer sinksMu.Unlock()
	for _, s := range sinks {
		s.SetLogger(l)
	}
}

// Logger returns the current logger. Sub-packages call this to share the
// same configuration without import cycles.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// RegisterLoggerSink hands the current logger to s now and on every later
// SetLogger call.
func RegisterLoggerSink(s LoggerSetter) {
	sinksMu.Lock()
	sinks = append(sinks, s)
	sinksMu.Unlock()
	s.SetLogger(Logger())
}

// UnregisterLoggerSink stops propagating logger changes to s.
func UnregisterLoggerSink(s LoggerSetter) {
	sinksMu.Lock()
	defer sinksMu.Unlock()
	for i, have := range sinks {
		if have == s {
			sinks = append(sinks[:i], sinks[i+1:]...)
			return
		}
	}
}
