package cozy

// Frame is everything a renderer needs to draw one simulation tick.
type Frame struct {
	Context *DrawContext

	// Camera is optional; nil selects the pixel-perfect projection.
	Camera *Camera

	Time Time
}

// Renderer draws frames. All methods are called from the render goroutine
// only; the game loop never calls them concurrently.
type Renderer interface {
	// Render drains f.Context, draws every queued group, presents, and
	// ends the frame. Configuration errors are returned and stop the loop.
	Render(f *Frame) error

	// Resize rebuilds the default target for a new surface size.
	Resize(width, height uint32) error

	// SetSampleCount rebuilds every render target for a new MSAA setting.
	SetSampleCount(m Msaa) error
}

// Game is driven by the simulation goroutine of a Loop.
type Game interface {
	// Update advances the game by one tick and queues its draws on
	// f.Context. Returning ErrStopLoop ends the loop cleanly.
	Update(f *Frame) error
}

// GameFunc adapts a function to the Game interface.
type GameFunc func(f *Frame) error

// Update calls fn(f).
func (fn GameFunc) Update(f *Frame) error { return fn(f) }
