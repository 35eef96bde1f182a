// Package cozy provides the batching core of a 2D sprite and mesh engine
// built on gogpu/wgpu.
//
// # Overview
//
// Game code submits meshes through a [DrawContext]. Each submission is
// filed under a [MeshGroupKey] built from its z-index, blend mode, texture,
// the shader instance active at submission time and the render target
// active at submission time. Once per frame the renderer drains the queue
// in key order and turns every group into one render pass.
//
// # Quick Start
//
//	import (
//	    "github.com/go-gl/mathgl/mgl32"
//	    "github.com/gogpu/cozy"
//	    "github.com/gogpu/cozy/gpu"
//	)
//
//	dev, err := gpu.OpenDevice()
//	// handle err
//	defer dev.Close()
//	r, err := gpu.NewRenderer(dev, gpu.WithConfig(cfg))
//	// handle err
//
//	dc := cozy.NewDrawContext()
//	dc.DrawRect(mgl32.Vec2{100, 100}, mgl32.Vec2{32, 32}, cozy.White, 0)
//	err = r.Render(&cozy.Frame{Context: dc})
//
// # Ambient State
//
// Shader and render target selection is ambient: [DrawContext.UseShader]
// and [DrawContext.UseRenderTarget] affect every mesh queued after them.
// [DrawContext.SetUniform] never mutates a shader instance in place; it
// snapshots the active instance, so meshes queued earlier keep the values
// that were in effect when they were queued.
//
// # Coordinate System
//
// The fallback camera is pixel perfect:
//   - Origin (0,0) at top-left
//   - X increases right
//   - Y increases down
//   - Vertex z is z-index / 1000
package cozy

// Version is the current version of the library.
const Version = "0.1.0"
