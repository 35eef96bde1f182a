package cozy

import "time"

// fpsWindow is the number of frames averaged by Time.FPS.
const fpsWindow = 60

// Time tracks simulation time across ticks.
type Time struct {
	Delta   time.Duration
	Elapsed time.Duration
	Frame   uint64

	last    time.Time
	samples [fpsWindow]time.Duration
	next    int
	filled  int
}

// Tick advances the clock to now.
func (t *Time) Tick(now time.Time) {
	if t.last.IsZero() {
		t.last = now
		return
	}
	t.Delta = now.Sub(t.last)
	t.last = now
	t.Elapsed += t.Delta
	t.Frame++

	t.samples[t.next] = t.Delta
	t.next = (t.next + 1) % fpsWindow
	if t.filled < fpsWindow {
		t.filled++
	}
}

// DeltaSeconds returns the last frame time in seconds.
func (t *Time) DeltaSeconds() float32 { return float32(t.Delta.Seconds()) }

// ElapsedSeconds returns the total simulated time in seconds.
func (t *Time) ElapsedSeconds() float32 { return float32(t.Elapsed.Seconds()) }

// FPS returns the average frame rate over the last 60 frames.
func (t *Time) FPS() float64 {
	if t.filled == 0 {
		return 0
	}
	var sum time.Duration
	for i := 0; i < t.filled; i++ {
		sum += t.samples[i]
	}
	if sum <= 0 {
		return 0
	}
	return float64(t.filled) / sum.Seconds()
}
