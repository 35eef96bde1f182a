package cozy

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// fakeRenderer records frames and drains the queue like a real renderer.
type fakeRenderer struct {
	mu      sync.Mutex
	frames  []uint64
	groups  []int
	resizes [][2]uint32
	samples []Msaa
	failAt  int
	err     error
}

func (r *fakeRenderer) Render(f *Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f.Time.Frame)
	r.groups = append(r.groups, len(f.Context.ConsumeRenderQueues()))
	f.Context.EndFrame()
	if r.err != nil && len(r.frames) == r.failAt {
		return r.err
	}
	return nil
}

func (r *fakeRenderer) Resize(w, h uint32) error {
	r.mu.Lock()
	r.resizes = append(r.resizes, [2]uint32{w, h})
	r.mu.Unlock()
	return nil
}

func (r *fakeRenderer) SetSampleCount(m Msaa) error {
	r.mu.Lock()
	r.samples = append(r.samples, m)
	r.mu.Unlock()
	return nil
}

func unlimited() Config {
	cfg := DefaultConfig()
	cfg.TargetFPS = 0
	return cfg
}

func drawOne(f *Frame) error {
	f.Context.DrawRect(mgl32.Vec2{1, 1}, mgl32.Vec2{2, 2}, White, 0)
	return nil
}

func TestLoopMaxFrames(t *testing.T) {
	r := &fakeRenderer{}
	loop := NewLoop(unlimited(), GameFunc(drawOne), r, WithMaxFrames(3))
	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if len(r.frames) != 3 {
		t.Fatalf("rendered %d frames, want 3", len(r.frames))
	}
	for i, f := range r.frames {
		if f != uint64(i) {
			t.Errorf("frame %d has number %d", i, f)
		}
		if r.groups[i] != 1 {
			t.Errorf("frame %d drained %d groups, want 1", i, r.groups[i])
		}
	}
}

func TestLoopStopFromGame(t *testing.T) {
	r := &fakeRenderer{}
	calls := 0
	game := GameFunc(func(f *Frame) error {
		calls++
		if calls == 2 {
			return ErrStopLoop
		}
		return nil
	})
	if err := NewLoop(unlimited(), game, r).Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if len(r.frames) != 1 {
		t.Errorf("rendered %d frames, want 1", len(r.frames))
	}
}

func TestLoopGameError(t *testing.T) {
	boom := errors.New("boom")
	game := GameFunc(func(*Frame) error { return boom })
	err := NewLoop(unlimited(), game, &fakeRenderer{}).Run(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("Run() = %v, want boom", err)
	}
}

func TestLoopRenderErrorStops(t *testing.T) {
	r := &fakeRenderer{err: ErrUnknownShader, failAt: 2}
	err := NewLoop(unlimited(), GameFunc(drawOne), r, WithMaxFrames(10)).Run(context.Background())
	if !errors.Is(err, ErrUnknownShader) {
		t.Fatalf("Run() = %v, want ErrUnknownShader", err)
	}
	if got := err.Error(); got != "render frame 1: cozy: unknown shader" {
		t.Errorf("error = %q", got)
	}
	if len(r.frames) != 2 {
		t.Errorf("rendered %d frames, want 2", len(r.frames))
	}
}

func TestLoopContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	game := GameFunc(func(f *Frame) error {
		if f.Time.Frame == 1 {
			cancel()
		}
		return nil
	})
	err := NewLoop(unlimited(), game, &fakeRenderer{}).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
}

// A request closed without a value loses the acknowledgment; the tick
// still succeeds and the warning is throttled.
func TestRequestRenderLostAck(t *testing.T) {
	buf := captureLogger(t)
	l := NewLoop(unlimited(), GameFunc(drawOne), &fakeRenderer{})
	go func() {
		for range 3 {
			req := <-l.requests
			close(req.done)
		}
	}()

	frame := &Frame{Context: l.dc}
	for i := range 3 {
		if err := l.requestRender(context.Background(), frame); err != nil {
			t.Fatalf("requestRender %d = %v, want nil", i, err)
		}
	}
	if n := strings.Count(buf.String(), "render acknowledgment lost"); n != 1 {
		t.Errorf("logged %d lost-ack warnings, want 1:\n%s", n, buf.String())
	}
}

func TestRequestRenderAfterRenderExit(t *testing.T) {
	l := NewLoop(unlimited(), GameFunc(drawOne), &fakeRenderer{})
	close(l.renderDone)
	frame := &Frame{Context: l.dc}

	if err := l.requestRender(context.Background(), frame); !errors.Is(err, ErrLoopClosed) {
		t.Errorf("requestRender with live ctx = %v, want ErrLoopClosed", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.requestRender(ctx, frame); !errors.Is(err, context.Canceled) {
		t.Errorf("requestRender with canceled ctx = %v, want context.Canceled", err)
	}
}

// After cancellation the render goroutine exits without drawing, and a
// request it picks up is closed without a value.
func TestRenderNeverStartsFrameAfterCancel(t *testing.T) {
	r := &fakeRenderer{}
	l := NewLoop(unlimited(), GameFunc(drawOne), r)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	errc := make(chan error, 1)
	go func() { errc <- l.render(ctx) }()

	req := renderRequest{frame: &Frame{Context: l.dc}, done: make(chan error, 1)}
	sent := false
	select {
	case l.requests <- req:
		sent = true
	case <-l.renderDone:
	}
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("render() = %v, want context.Canceled", err)
	}
	if sent {
		if err, ok := <-req.done; ok {
			t.Errorf("request acknowledged with %v, want closed without a value", err)
		}
	}
	if len(r.frames) != 0 {
		t.Errorf("rendered %d frames after cancellation", len(r.frames))
	}
}

func TestLoopEventsAppliedBeforeFrame(t *testing.T) {
	r := &fakeRenderer{}
	dc := NewDrawContext()
	cam := &Camera{Zoom: 100}
	var loop *Loop
	game := GameFunc(func(f *Frame) error {
		if f.Context != dc || f.Camera != cam {
			t.Error("frame does not carry the configured context and camera")
		}
		if f.Time.Frame == 0 {
			loop.Resize(320, 200)
			loop.SetSampleCount(MsaaOff)
		}
		return nil
	})
	loop = NewLoop(unlimited(), game, r, WithMaxFrames(2), WithDrawContext(dc), WithCamera(cam))
	if err := loop.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(r.resizes) != 1 || r.resizes[0] != [2]uint32{320, 200} {
		t.Errorf("resizes = %v", r.resizes)
	}
	if len(r.samples) != 1 || r.samples[0] != MsaaOff {
		t.Errorf("samples = %v", r.samples)
	}
}
