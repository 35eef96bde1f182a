package cozy

import "github.com/go-gl/mathgl/mgl32"

// Camera is a 2D camera looking at Center. Zoom is the visible world width
// in world units; zero falls back to the viewport width.
type Camera struct {
	Center mgl32.Vec2
	Zoom   float32

	// Matrix, when non-nil, overrides the computed projection.
	Matrix *mgl32.Mat4
}

// ViewProjection returns the projection-view matrix for a viewport of the
// given size.
func (c *Camera) ViewProjection(width, height uint32) mgl32.Mat4 {
	if c.Matrix != nil {
		return *c.Matrix
	}
	if width == 0 || height == 0 {
		return mgl32.Ident4()
	}
	aspect := float32(height) / float32(width)
	w := c.Zoom
	if w <= 0 {
		w = float32(width)
	}
	h := w * aspect
	return Ortho(
		c.Center.X()-w/2, c.Center.X()+w/2,
		c.Center.Y()+h/2, c.Center.Y()-h/2,
		-1, 1,
	)
}

// PixelPerfect is the fallback projection: one world unit per pixel, origin
// at the top-left corner.
func PixelPerfect(width, height uint32) mgl32.Mat4 {
	return Ortho(0, float32(width), float32(height), 0, -1, 1)
}

// depthRemap maps OpenGL clip depth [-1, 1] onto the WebGPU range [0, 1].
var depthRemap = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// Ortho is mgl32.Ortho with WebGPU clip depth. With near -1 and far 1, a
// greater z lands closer to the viewer.
func Ortho(left, right, bottom, top, near, far float32) mgl32.Mat4 {
	return depthRemap.Mul4(mgl32.Ortho(left, right, bottom, top, near, far))
}

// ProjectionFor returns cam's projection, or PixelPerfect when cam is nil.
func ProjectionFor(cam *Camera, width, height uint32) mgl32.Mat4 {
	if cam == nil {
		return PixelPerfect(width, height)
	}
	return cam.ViewProjection(width, height)
}
