//go:build !nogpu

package gpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/cozy"
)

// pipelineKey identifies one pipeline configuration. Every field takes
// part in equality, so two keys that differ in any field never share a
// pipeline.
type pipelineKey struct {
	User    bool
	Blend   cozy.BlendMode
	Shader  cozy.ShaderID
	ZBuffer bool
	Samples uint32
}

// String returns the label used for the pipeline and in frame stats.
func (k pipelineKey) String() string {
	kind := "sprite"
	if k.User {
		kind = "user"
	}
	return fmt.Sprintf("%s:%s:shader%d:z%t:x%d", kind, k.Blend, k.Shader, k.ZBuffer, k.Samples)
}

// pipelineEntry is the sum of the two pipeline variants. user is nil for
// built-in pipelines; user pipelines bind a third group from its pool.
type pipelineEntry struct {
	key      pipelineKey
	layout   hal.PipelineLayout
	pipeline hal.RenderPipeline
	user     *userBindings
}

// uniformSet is one group-2 bind group with a buffer per uniform. shadow
// mirrors the bytes last written to each buffer.
type uniformSet struct {
	buffers   []hal.Buffer
	bindGroup hal.BindGroup
	shadow    [][]byte
}

func (s *uniformSet) destroy(device hal.Device) {
	if s.bindGroup != nil {
		device.DestroyBindGroup(s.bindGroup)
	}
	for _, b := range s.buffers {
		device.DestroyBuffer(b)
	}
}

// userBindings is the group-2 layout of a user shader together with a
// pool of uniform sets. Each group drawn in a frame takes its own set, so
// groups using different instances of the shader do not overwrite each
// other's values within one submission.
type userBindings struct {
	shader *shader
	layout hal.BindGroupLayout
	sets   []*uniformSet
	used   int
}

func newUserBindings(device hal.Device, s *shader) (*userBindings, error) {
	entries := make([]gputypes.BindGroupLayoutEntry, len(s.parsed.bindings))
	for i, b := range s.parsed.bindings {
		entries[i] = gputypes.BindGroupLayoutEntry{
			Binding:    b.binding,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		}
	}
	layout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   s.name + "_uniform_layout",
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s uniform layout: %w", s.name, err)
	}
	return &userBindings{shader: s, layout: layout}, nil
}

// acquire returns the next free set of the frame with every uniform of
// inst written to it.
func (u *userBindings) acquire(device hal.Device, queue hal.Queue, inst *cozy.ShaderInstance) (*uniformSet, error) {
	values := make([][]byte, len(u.shader.parsed.bindings))
	for i, b := range u.shader.parsed.bindings {
		v, err := u.shader.uniformValue(inst, b.name)
		if err != nil {
			return nil, err
		}
		values[i] = v.Bytes()
	}

	if u.used == len(u.sets) {
		set, err := u.newSet(device, queue)
		if err != nil {
			return nil, err
		}
		u.sets = append(u.sets, set)
	}
	set := u.sets[u.used]
	u.used++
	for i, data := range values {
		queue.WriteBuffer(set.buffers[i], 0, data)
		set.shadow[i] = data
	}
	return set, nil
}

// newSet allocates buffers seeded with the shader defaults, or zero for
// uniforms without one.
func (u *userBindings) newSet(device hal.Device, queue hal.Queue) (*uniformSet, error) {
	bindings := u.shader.parsed.bindings
	set := &uniformSet{
		buffers: make([]hal.Buffer, 0, len(bindings)),
		shadow:  make([][]byte, len(bindings)),
	}
	for i, b := range bindings {
		buf, err := device.CreateBuffer(&hal.BufferDescriptor{
			Label: fmt.Sprintf("%s_uniform_%s", u.shader.name, b.name),
			Size:  b.kind.BufferSize(),
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			set.destroy(device)
			return nil, fmt.Errorf("create uniform buffer %s: %w", b.name, err)
		}
		set.buffers = append(set.buffers, buf)
		seed := cozy.Uniform{Kind: b.kind}
		if def := u.shader.parsed.defs[b.name]; def.Default != nil {
			seed = *def.Default
		}
		set.shadow[i] = seed.Bytes()
		queue.WriteBuffer(buf, 0, set.shadow[i])
	}
	bg, err := createUniformBindGroup(device, u.layout, u.shader.name+"_uniform_bind_group",
		set.buffers, cozy.UniformVec4.BufferSize())
	if err != nil {
		set.destroy(device)
		return nil, err
	}
	set.bindGroup = bg
	return set, nil
}

// reset returns every set to the pool at the end of a frame.
func (u *userBindings) reset() { u.used = 0 }

func (u *userBindings) destroy(device hal.Device) {
	for _, s := range u.sets {
		s.destroy(device)
	}
	u.sets = nil
	if u.layout != nil {
		device.DestroyBindGroupLayout(u.layout)
		u.layout = nil
	}
}

// pipelineCache creates pipelines on first use and keeps them until the
// shader they were built from is reloaded or the renderer closes.
type pipelineCache struct {
	mu      sync.Mutex
	device  hal.Device
	layouts *bindLayouts
	shaders *shaderRegistry

	entries  map[pipelineKey]*pipelineEntry
	bindings map[cozy.ShaderID]*userBindings
}

func newPipelineCache(device hal.Device, layouts *bindLayouts, shaders *shaderRegistry) *pipelineCache {
	return &pipelineCache{
		device:   device,
		layouts:  layouts,
		shaders:  shaders,
		entries:  make(map[pipelineKey]*pipelineEntry),
		bindings: make(map[cozy.ShaderID]*userBindings),
	}
}

// resolve returns the cached pipeline for key, building it when absent.
// created reports whether a new pipeline was built.
func (c *pipelineCache) resolve(key pipelineKey) (entry *pipelineEntry, created bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e, false, nil
	}

	s, ok := c.shaders.get(key.Shader)
	if !ok || s.user != key.User {
		return nil, false, fmt.Errorf("%w: %s", cozy.ErrUnknownShader, key.Shader)
	}

	groups := []hal.BindGroupLayout{c.layouts.texture, c.layouts.camera}
	var ub *userBindings
	if key.User {
		ub = c.bindings[key.Shader]
		if ub == nil {
			if ub, err = newUserBindings(c.device, s); err != nil {
				return nil, false, err
			}
			c.bindings[key.Shader] = ub
		}
		groups = append(groups, ub.layout)
	}

	label := key.String()
	layout, err := c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_layout",
		BindGroupLayouts: groups,
	})
	if err != nil {
		return nil, false, fmt.Errorf("create pipeline layout %s: %w", label, err)
	}

	blend := blendState(key.Blend)
	desc := &hal.RenderPipelineDescriptor{
		Label:  label,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     s.module,
			EntryPoint: "vs_main",
			Buffers:    vertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     s.module,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{{
				Format:    colorFormat,
				Blend:     &blend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Multisample: gputypes.MultisampleState{Count: key.Samples, Mask: 0xFFFFFFFF},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
	}
	if key.ZBuffer {
		desc.DepthStencil = depthState()
	}
	pipeline, err := c.device.CreateRenderPipeline(desc)
	if err != nil {
		c.device.DestroyPipelineLayout(layout)
		return nil, false, fmt.Errorf("create pipeline %s: %w", label, err)
	}

	e := &pipelineEntry{key: key, layout: layout, pipeline: pipeline, user: ub}
	c.entries[key] = e
	slogger().Debug("pipeline created", "key", label)
	return e, true, nil
}

// len returns the number of cached pipelines.
func (c *pipelineCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// endFrame returns all uniform sets to their pools.
func (c *pipelineCache) endFrame() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ub := range c.bindings {
		ub.reset()
	}
}

// invalidateShader drops every pipeline and the uniform pool built from
// shader id.
func (c *pipelineCache) invalidateShader(id cozy.ShaderID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key, e := range c.entries {
		if key.Shader != id {
			continue
		}
		e.destroy(c.device)
		delete(c.entries, key)
		n++
	}
	if ub := c.bindings[id]; ub != nil {
		ub.destroy(c.device)
		delete(c.bindings, id)
	}
	return n
}

// invalidateSamples drops pipelines built for a sample count other than n.
func (c *pipelineCache) invalidateSamples(n uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if key.Samples != n {
			e.destroy(c.device)
			delete(c.entries, key)
		}
	}
}

func (c *pipelineCache) destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		e.destroy(c.device)
		delete(c.entries, key)
	}
	for id, ub := range c.bindings {
		ub.destroy(c.device)
		delete(c.bindings, id)
	}
}

func (e *pipelineEntry) destroy(device hal.Device) {
	if e.pipeline != nil {
		device.DestroyRenderPipeline(e.pipeline)
		e.pipeline = nil
	}
	if e.layout != nil {
		device.DestroyPipelineLayout(e.layout)
		e.layout = nil
	}
}

// vertexLayout matches cozy.Vertex: position, uv, color.
func vertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{{
		ArrayStride: cozy.VertexSize,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: gputypes.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1},
			{Format: gputypes.VertexFormatFloat32x4, Offset: 20, ShaderLocation: 2},
		},
	}}
}

// blendState maps a blend mode to the color target blend. None and Alpha
// both use straight alpha blending.
func blendState(mode cozy.BlendMode) gputypes.BlendState {
	if mode == cozy.BlendAdditive {
		add := gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorOne,
			Operation: gputypes.BlendOperationAdd,
		}
		return gputypes.BlendState{Color: add, Alpha: add}
	}
	return gputypes.BlendState{
		Color: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorSrcAlpha,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
		Alpha: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
	}
}

func depthState() *hal.DepthStencilState {
	keep := hal.StencilFaceState{
		Compare:     gputypes.CompareFunctionAlways,
		FailOp:      hal.StencilOperationKeep,
		DepthFailOp: hal.StencilOperationKeep,
		PassOp:      hal.StencilOperationKeep,
	}
	return &hal.DepthStencilState{
		Format:            depthFormat,
		DepthWriteEnabled: true,
		DepthCompare:      gputypes.CompareFunctionLess,
		StencilFront:      keep,
		StencilBack:       keep,
	}
}
