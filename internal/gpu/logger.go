//go:build !nogpu

package gpu

import (
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

var silent = slog.New(slog.DiscardHandler)

// pkgLogger is swapped by cozy.SetLogger through Renderer.SetLogger while
// frames may be logging, hence atomic.
var pkgLogger atomic.Pointer[slog.Logger]

func init() { pkgLogger.Store(silent) }

func slogger() *slog.Logger { return pkgLogger.Load() }

// setLogger installs l; nil silences the package again.
func setLogger(l *slog.Logger) {
	if l == nil {
		l = silent
	}
	pkgLogger.Store(l)
}

// throttledWarn emits the first warning and then at most one per second.
// Skipped frames and texture fallbacks repeat every frame until resolved.
type throttledWarn struct {
	s rate.Sometimes
}

func newThrottledWarn() *throttledWarn {
	return &throttledWarn{s: rate.Sometimes{First: 1, Interval: time.Second}}
}

func (w *throttledWarn) warn(msg string, args ...any) {
	w.s.Do(func() { slogger().Warn(msg, args...) })
}
