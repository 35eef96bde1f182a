package cozy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// renderRequest asks the render goroutine to draw one frame. The render
// side answers on done exactly once; a close without a value means the
// frame was dropped.
type renderRequest struct {
	frame *Frame
	done  chan error
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithMaxFrames stops the loop cleanly after n simulation ticks.
func WithMaxFrames(n uint64) LoopOption {
	return func(l *Loop) { l.maxFrames = n }
}

// WithCamera sets the camera passed with every frame.
func WithCamera(c *Camera) LoopOption {
	return func(l *Loop) { l.camera = c }
}

// WithClock replaces the wall clock, for deterministic tests.
func WithClock(now func() time.Time) LoopOption {
	return func(l *Loop) { l.now = now }
}

// WithDrawContext makes the loop queue draws on dc instead of a fresh one.
func WithDrawContext(dc *DrawContext) LoopOption {
	return func(l *Loop) { l.dc = dc }
}

// Loop runs a Game on a simulation goroutine and a Renderer on a render
// goroutine, handing over exactly one frame per tick.
type Loop struct {
	game     Game
	renderer Renderer
	limiter  *FrameLimiter
	dc       *DrawContext
	camera   *Camera
	now      func() time.Time

	maxFrames uint64
	time      Time

	requests   chan renderRequest
	events     chan func(Renderer) error
	renderDone chan struct{}

	warnEvery rate.Sometimes
}

// NewLoop returns a loop for game and renderer paced by cfg.TargetFPS.
func NewLoop(cfg Config, game Game, renderer Renderer, opts ...LoopOption) *Loop {
	l := &Loop{
		game:       game,
		renderer:   renderer,
		limiter:    NewFrameLimiter(cfg.TargetFPS),
		now:        time.Now,
		requests:   make(chan renderRequest),
		events:     make(chan func(Renderer) error, 16),
		renderDone: make(chan struct{}),
		warnEvery:  rate.Sometimes{Interval: time.Second},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.dc == nil {
		l.dc = NewDrawContext()
	}
	return l
}

// DrawContext returns the context the game draws into.
func (l *Loop) DrawContext() *DrawContext { return l.dc }

// Resize schedules a surface resize. It is applied on the render goroutine
// between two frames.
func (l *Loop) Resize(width, height uint32) {
	l.post(func(r Renderer) error { return r.Resize(width, height) })
}

// SetSampleCount schedules an MSAA change between two frames.
func (l *Loop) SetSampleCount(m Msaa) {
	l.post(func(r Renderer) error { return r.SetSampleCount(m) })
}

func (l *Loop) post(ev func(Renderer) error) {
	select {
	case l.events <- ev:
	default:
		Logger().Warn("render event queue full, dropping event")
	}
}

// Run blocks until the game stops, a fatal render error occurs, or ctx is
// canceled. A game that returns ErrStopLoop, or reaching WithMaxFrames,
// makes Run return nil. Run may only be called once.
func (l *Loop) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return l.render(ctx) })
	g.Go(func() error { return l.simulate(ctx) })

	err := g.Wait()
	if errors.Is(err, ErrStopLoop) {
		return nil
	}
	return err
}

func (l *Loop) simulate(ctx context.Context) error {
	Logger().Info("game loop started", "target_fps", fpsOf(l.limiter.Period()))
	for {
		start := l.now()
		l.time.Tick(start)

		frame := &Frame{Context: l.dc, Camera: l.camera, Time: l.time}
		if err := l.game.Update(frame); err != nil {
			return err
		}

		if err := l.requestRender(ctx, frame); err != nil {
			return err
		}

		if l.maxFrames > 0 && l.time.Frame+1 >= l.maxFrames {
			return ErrStopLoop
		}
		if err := l.limiter.Wait(ctx, l.now().Sub(start)); err != nil {
			return err
		}
	}
}

// requestRender hands frame to the render goroutine and blocks until it
// has been drawn.
func (l *Loop) requestRender(ctx context.Context, frame *Frame) error {
	req := renderRequest{frame: frame, done: make(chan error, 1)}
	select {
	case l.requests <- req:
	case <-l.renderDone:
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err, ok := <-req.done:
		if !ok {
			l.warnEvery.Do(func() {
				Logger().Warn("render acknowledgment lost", "frame", frame.Time.Frame)
			})
			return nil
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) render(ctx context.Context) error {
	defer close(l.renderDone)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-l.events:
			if err := ev(l.renderer); err != nil {
				Logger().Warn("render event failed", "err", err)
			}
		case req := <-l.requests:
			if ctx.Err() != nil {
				// Frames are never started after shutdown began.
				close(req.done)
				return ctx.Err()
			}
			l.drainEvents()
			err := l.renderer.Render(req.frame)
			if err != nil {
				err = fmt.Errorf("render frame %d: %w", req.frame.Time.Frame, err)
			}
			req.done <- err
			if err != nil {
				return err
			}
		}
	}
}

// drainEvents applies every pending event before a frame is drawn.
func (l *Loop) drainEvents() {
	for {
		select {
		case ev := <-l.events:
			if err := ev(l.renderer); err != nil {
				Logger().Warn("render event failed", "err", err)
			}
		default:
			return
		}
	}
}

func fpsOf(period time.Duration) int {
	if period <= 0 {
		return 0
	}
	return int(time.Second / period)
}
