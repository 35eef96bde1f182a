package cozy

import (
	"math"
	"testing"
	"time"
)

func TestTimeTick(t *testing.T) {
	var tm Time
	start := time.Unix(100, 0)
	tm.Tick(start)
	if tm.Frame != 0 || tm.Delta != 0 {
		t.Fatalf("first tick: frame %d delta %v", tm.Frame, tm.Delta)
	}
	tm.Tick(start.Add(16 * time.Millisecond))
	tm.Tick(start.Add(48 * time.Millisecond))
	if tm.Frame != 2 {
		t.Errorf("Frame = %d, want 2", tm.Frame)
	}
	if tm.Delta != 32*time.Millisecond {
		t.Errorf("Delta = %v, want 32ms", tm.Delta)
	}
	if tm.Elapsed != 48*time.Millisecond {
		t.Errorf("Elapsed = %v, want 48ms", tm.Elapsed)
	}
	if got := tm.ElapsedSeconds(); math.Abs(float64(got)-0.048) > 1e-6 {
		t.Errorf("ElapsedSeconds() = %v", got)
	}
}

func TestTimeFPS(t *testing.T) {
	var tm Time
	if tm.FPS() != 0 {
		t.Error("FPS before any frame is not zero")
	}
	now := time.Unix(0, 0)
	tm.Tick(now)
	for range 2 * fpsWindow {
		now = now.Add(10 * time.Millisecond)
		tm.Tick(now)
	}
	if got := tm.FPS(); math.Abs(got-100) > 0.01 {
		t.Errorf("FPS() = %v, want 100", got)
	}
}
