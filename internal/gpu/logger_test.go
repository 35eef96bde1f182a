//go:build !nogpu

package gpu

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestSetLogger(t *testing.T) {
	t.Cleanup(func() { setLogger(nil) })

	var buf bytes.Buffer
	setLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	w := newThrottledWarn()
	for range 5 {
		w.warn("texture not available", "handle", "raw:9")
	}
	if n := strings.Count(buf.String(), "texture not available"); n != 1 {
		t.Errorf("logged %d warnings, want 1:\n%s", n, buf.String())
	}

	setLogger(nil)
	if slogger().Enabled(context.Background(), slog.LevelError) {
		t.Error("setLogger(nil) left logging enabled")
	}
}
