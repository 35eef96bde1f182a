package cozy

import (
	"maps"
	"sync"
	"sync/atomic"
)

// ShaderInstance is a snapshot of a shader plus its uniform overrides.
// Instances are never mutated after they enter the table.
type ShaderInstance struct {
	Shader   ShaderID
	Uniforms map[string]Uniform
}

// Uniform returns the override for name, if the instance has one.
func (si *ShaderInstance) Uniform(name string) (Uniform, bool) {
	u, ok := si.Uniforms[name]
	return u, ok
}

// DrawContext carries everything game code touches while building a frame:
// the render queue, the shader instance table, the ambient shader and
// render target, and the y-sort flags.
//
// A DrawContext is safe for concurrent use. The game loop guarantees that
// the queue is only drained while the simulation side is blocked, so the
// locks are rarely contended.
type DrawContext struct {
	queue *renderQueue

	shaderMu      sync.Mutex
	instances     []ShaderInstance // instances[i] has id i+1
	currentShader ShaderInstanceID

	currentTarget atomic.Uint32

	ysortMu sync.RWMutex
	ysort   map[int32]bool
}

// NewDrawContext returns an empty context with the default shader and
// default render target selected.
func NewDrawContext() *DrawContext {
	return &DrawContext{
		queue: newRenderQueue(),
		ysort: make(map[int32]bool),
	}
}

// QueueMeshDraw files mesh for the current frame under a key built from
// the mesh and the currently active shader instance and render target.
// Handles are not validated here.
func (dc *DrawContext) QueueMeshDraw(mesh Mesh, blend BlendMode) {
	key := MeshGroupKey{
		ZIndex:  mesh.ZIndex,
		Blend:   blend,
		Texture: mesh.TextureOrWhite(),
		Shader:  dc.CurrentShader(),
		Target:  dc.CurrentRenderTarget(),
	}
	dc.queue.push(key, mesh)
}

// ConsumeRenderQueues returns every queued group in ascending key order
// and leaves the queue empty.
func (dc *DrawContext) ConsumeRenderQueues() []MeshGroup {
	return dc.queue.drain()
}

// QueuedGroups returns the number of distinct keys waiting to be drawn.
func (dc *DrawContext) QueuedGroups() int { return dc.queue.len() }

// UseShader appends a fresh instance of shader id and makes it current.
func (dc *DrawContext) UseShader(id ShaderID) ShaderInstanceID {
	dc.shaderMu.Lock()
	defer dc.shaderMu.Unlock()
	dc.instances = append(dc.instances, ShaderInstance{Shader: id, Uniforms: map[string]Uniform{}})
	dc.currentShader = ShaderInstanceID(len(dc.instances)) //nolint:gosec // table is cleared every frame
	return dc.currentShader
}

// SetUniform snapshots the current instance with name set to v and makes
// the snapshot current. Meshes queued before the call keep their values.
//
// SetUniform panics if no shader is active.
func (dc *DrawContext) SetUniform(name string, v Uniform) ShaderInstanceID {
	dc.shaderMu.Lock()
	defer dc.shaderMu.Unlock()
	if dc.currentShader == DefaultShaderInstance {
		panic("cozy: SetUniform called with no shader active")
	}
	cur := dc.instances[dc.currentShader-1]
	next := ShaderInstance{Shader: cur.Shader, Uniforms: maps.Clone(cur.Uniforms)}
	if next.Uniforms == nil {
		next.Uniforms = map[string]Uniform{}
	}
	next.Uniforms[name] = v
	dc.instances = append(dc.instances, next)
	dc.currentShader = ShaderInstanceID(len(dc.instances)) //nolint:gosec // table is cleared every frame
	return dc.currentShader
}

// UseDefaultShader selects the built-in sprite pipeline.
func (dc *DrawContext) UseDefaultShader() {
	dc.shaderMu.Lock()
	dc.currentShader = DefaultShaderInstance
	dc.shaderMu.Unlock()
}

// CurrentShader returns the active shader instance id.
func (dc *DrawContext) CurrentShader() ShaderInstanceID {
	dc.shaderMu.Lock()
	defer dc.shaderMu.Unlock()
	return dc.currentShader
}

// ShaderInstance looks up an instance of the current frame.
func (dc *DrawContext) ShaderInstance(id ShaderInstanceID) (ShaderInstance, bool) {
	dc.shaderMu.Lock()
	defer dc.shaderMu.Unlock()
	if id == DefaultShaderInstance || int(id) > len(dc.instances) {
		return ShaderInstance{}, false
	}
	return dc.instances[id-1], true
}

// EndFrame clears the shader instance table and resets the active shader.
// It is called by the renderer after the queue has been drawn.
func (dc *DrawContext) EndFrame() {
	dc.shaderMu.Lock()
	dc.instances = dc.instances[:0]
	dc.currentShader = DefaultShaderInstance
	dc.shaderMu.Unlock()
}

// UseRenderTarget redirects subsequent draws to target id.
func (dc *DrawContext) UseRenderTarget(id RenderTargetID) {
	dc.currentTarget.Store(uint32(id))
}

// UseDefaultRenderTarget redirects subsequent draws to the window target.
func (dc *DrawContext) UseDefaultRenderTarget() {
	dc.currentTarget.Store(uint32(DefaultRenderTarget))
}

// CurrentRenderTarget returns the active render target.
func (dc *DrawContext) CurrentRenderTarget() RenderTargetID {
	return RenderTargetID(dc.currentTarget.Load())
}

// SetYSort enables or disables y-sorting for meshes at zIndex.
func (dc *DrawContext) SetYSort(zIndex int32, enabled bool) {
	dc.ysortMu.Lock()
	defer dc.ysortMu.Unlock()
	if enabled {
		dc.ysort[zIndex] = true
		return
	}
	delete(dc.ysort, zIndex)
}

// YSort reports whether y-sorting is enabled for zIndex.
func (dc *DrawContext) YSort(zIndex int32) bool {
	dc.ysortMu.RLock()
	defer dc.ysortMu.RUnlock()
	return dc.ysort[zIndex]
}
