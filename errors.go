package cozy

import "errors"

var (
	// ErrUnknownShader is returned when a draw references a shader that was
	// never registered. It indicates API misuse and stops the game loop.
	ErrUnknownShader = errors.New("cozy: unknown shader")

	// ErrUnknownShaderInstance is returned when a mesh group references a
	// shader instance that is not in the current frame's instance table.
	ErrUnknownShaderInstance = errors.New("cozy: unknown shader instance")

	// ErrUnknownRenderTarget is returned when a draw references a render
	// target that was never created.
	ErrUnknownRenderTarget = errors.New("cozy: unknown render target")

	// ErrMissingUniform is returned when a declared uniform has neither a
	// per-instance override nor a shader default.
	ErrMissingUniform = errors.New("cozy: uniform has no value and no default")

	// ErrSurfaceUnavailable is returned by a Surface that cannot provide a
	// texture this frame. The renderer skips the frame silently.
	ErrSurfaceUnavailable = errors.New("cozy: surface texture unavailable")

	// ErrLoopClosed is returned when the render side of the game loop has
	// stopped accepting frames.
	ErrLoopClosed = errors.New("cozy: game loop closed")
)

// ErrStopLoop may be returned by Game.Update to end the loop without error.
var ErrStopLoop = errors.New("cozy: stop loop")
