//go:build !nogpu

// Package gpu implements the cozy renderer on gogpu/wgpu HAL.
//
// The renderer drains a cozy.DrawContext once per frame and turns every
// mesh group into one render pass:
//
//	DrawContext queue -> y-sort -> pack buffers -> resolve pipeline -> pass -> resolve -> present
//
// Key components:
//
//   - Renderer: entry point; owns the device, queue and every registry
//   - shaderRegistry: user fragment shaders, uniform parsing, WGSL assembly
//   - targetRegistry: render targets with MSAA color, depth and resolve
//     attachments; target 0 aliases the presentation surface
//   - textureTable: sampled textures with the built-in white and error
//     textures
//   - pipelineCache: built-in and user pipelines keyed by blend mode,
//     shader, z-buffer and sample count
//   - sizedBuffer: grow-on-demand vertex and index buffers
//
// # Passes
//
// The first pass into a target in a frame clears it; later passes load.
// When every mesh group of a frame misses the default target, a
// zero-vertex pass still clears it. With MSAA the default target is
// resolved into the surface by a dedicated pass at the end of the frame,
// while user targets resolve on every pass so that later groups can
// sample them.
//
// # Errors
//
// Unknown shaders, shader instances and render targets, and uniforms
// without a value, are returned as errors wrapping the cozy sentinels and
// abort the frame. An unavailable surface skips the frame. Unknown
// textures fall back to the error texture.
package gpu
