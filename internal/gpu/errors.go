//go:build !nogpu

package gpu

import "errors"

var (
	// ErrRendererClosed is returned when operating on a closed renderer.
	ErrRendererClosed = errors.New("gpu: renderer closed")

	// ErrVertexStageInSource is returned when a user shader defines its own
	// vertex stage. Only fragment code may be supplied.
	ErrVertexStageInSource = errors.New("gpu: shader source must only contain the fragment stage")

	// ErrDuplicateShader is returned when a shader name is registered twice.
	ErrDuplicateShader = errors.New("gpu: shader already exists")

	// ErrUnsupportedUniform is returned for uniform declarations whose type
	// is not f32, vec2, vec3 or vec4.
	ErrUnsupportedUniform = errors.New("gpu: unsupported uniform type")

	// ErrInvalidUniformDefault is returned when a declared default cannot be
	// parsed or has the wrong number of components.
	ErrInvalidUniformDefault = errors.New("gpu: invalid uniform default")

	// ErrInvalidTargetSize is returned when a render target has a zero
	// dimension.
	ErrInvalidTargetSize = errors.New("gpu: render target size must be non-zero")

	// ErrInvalidSampleCount is returned for MSAA settings other than 1, 2, 4
	// and 8.
	ErrInvalidSampleCount = errors.New("gpu: invalid sample count")

	// ErrNoDevice is returned when a renderer is created without a device.
	ErrNoDevice = errors.New("gpu: device and queue are required")
)
