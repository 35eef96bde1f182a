//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/cozy"
)

// fenceTimeout bounds the wait for a submitted frame.
const fenceTimeout = 5 * time.Second

// drawRange is where a group's geometry lives in the frame buffers.
type drawRange struct {
	indexed     bool
	first       uint32 // first index, or first vertex when not indexed
	count       uint32
	vertexCount uint32
}

// packedFrame is the concatenated geometry of every group in a frame.
type packedFrame struct {
	vertices []byte
	indices  []byte
	ranges   []drawRange
}

// packGroups concatenates vertices and indices of all groups. Indices are
// offset by the running vertex count. A group is indexed when any of its
// meshes has indices; meshes without indices in such a group get a
// sequential index list.
func packGroups(groups []cozy.MeshGroup) packedFrame {
	var pf packedFrame
	pf.ranges = make([]drawRange, len(groups))
	var vertexBase, indexBase uint32
	for i, g := range groups {
		indexed := false
		for _, m := range g.Meshes {
			if len(m.Indices) > 0 {
				indexed = true
				break
			}
		}
		dr := drawRange{indexed: indexed, first: indexBase}
		if !indexed {
			dr.first = vertexBase
		}
		for _, m := range g.Meshes {
			n := uint32(len(m.Vertices)) //nolint:gosec // mesh sizes fit uint32
			pf.vertices = cozy.AppendVertexBytes(pf.vertices, m.Vertices)
			if indexed {
				idx := m.Indices
				if len(idx) == 0 {
					idx = sequentialIndices(n)
				}
				pf.indices = cozy.AppendIndexBytes(pf.indices, idx, vertexBase)
				dr.count += uint32(len(idx)) //nolint:gosec // mesh sizes fit uint32
			} else {
				dr.count += n
			}
			dr.vertexCount += n
			vertexBase += n
		}
		if indexed {
			indexBase += dr.count
		}
		pf.ranges[i] = dr
	}
	return pf
}

func sequentialIndices(n uint32) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = uint32(i) //nolint:gosec // bounded by n
	}
	return out
}

// passPlan is everything needed to record one group's pass. It is built
// completely before the pass begins so that errors never leave a pass open.
type passPlan struct {
	target    *renderTarget
	entry     *pipelineEntry
	uniforms  *uniformSet
	texture   hal.BindGroup
	handle    cozy.TextureHandle
	draw      drawRange
	colorLoad gputypes.LoadOp
}

// frameState tracks per-frame executor state.
type frameState struct {
	surfaceView hal.TextureView
	touched     map[cozy.RenderTargetID]bool
	stats       FrameStats
}

// renderFrame runs the batched passes for one frame and presents it.
func (r *Renderer) renderFrame(f *cozy.Frame) (err error) {
	dc := f.Context
	r.frame++
	stats := FrameStats{Frame: r.frame}

	r.applyReloads()

	st, err := r.surface.Acquire()
	if err != nil {
		if errors.Is(err, cozy.ErrSurfaceUnavailable) {
			dropped := dc.ConsumeRenderQueues()
			dc.EndFrame()
			stats.Skipped = true
			stats.Groups = len(dropped)
			r.setStats(stats)
			r.skipWarn.warn("surface unavailable, frame skipped", "frame", r.frame, "err", err)
			return nil
		}
		return fmt.Errorf("acquire surface: %w", err)
	}

	presented := false
	defer func() {
		if !presented {
			r.surface.Discard(st)
		}
		r.endFrame(dc)
		stats.PipelinesCached = r.pipelines.len()
		r.setStats(stats)
	}()

	w, h := r.surface.Size()
	if def, ok := r.targets.get(cozy.DefaultRenderTarget); ok &&
		(def.attachments.width != w || def.attachments.height != h) {
		if err := r.targets.resize(cozy.DefaultRenderTarget, w, h); err != nil {
			return err
		}
	}

	r.shaders.setTime(f.Time.ElapsedSeconds())
	r.camera.update(r.queue, cozy.ProjectionFor(f.Camera, w, h))

	groups := dc.ConsumeRenderQueues()
	for i := range groups {
		dc.PrepareGroup(&groups[i])
	}
	stats.Groups = len(groups)

	packed := packGroups(groups)
	if err := r.vertices.ensureSizeAndCopy(r.device, r.queue, packed.vertices); err != nil {
		return err
	}
	if err := r.indices.ensureSizeAndCopy(r.device, r.queue, packed.indices); err != nil {
		return err
	}
	stats.VertexBytes = uint64(len(packed.vertices))
	stats.IndexBytes = uint64(len(packed.indices))

	fs := &frameState{
		surfaceView: st.View(),
		touched:     make(map[cozy.RenderTargetID]bool),
	}

	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "frame_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("frame"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	for i, g := range groups {
		plan, created, err := r.planPass(dc, fs, g.Key, packed.ranges[i])
		if err != nil {
			encoder.DiscardEncoding()
			return err
		}
		if created {
			stats.PipelinesCreated++
		}
		stats.Passes = append(stats.Passes, r.recordPass(encoder, fs, g.Key.Target, plan))
	}

	if !fs.touched[cozy.DefaultRenderTarget] {
		plan, created, err := r.planPass(dc, fs, cozy.MeshGroupKey{
			Blend:   cozy.BlendAlpha,
			Texture: cozy.WhiteTexture(),
			Shader:  cozy.DefaultShaderInstance,
			Target:  cozy.DefaultRenderTarget,
		}, drawRange{})
		if err != nil {
			encoder.DiscardEncoding()
			return err
		}
		if created {
			stats.PipelinesCreated++
		}
		stats.Passes = append(stats.Passes, r.recordPass(encoder, fs, cozy.DefaultRenderTarget, plan))
	}

	if def, _ := r.targets.get(cozy.DefaultRenderTarget); def.attachments.msaaView != nil {
		stats.Passes = append(stats.Passes, r.recordResolvePass(encoder, fs, def))
	}

	if err := r.submit(encoder); err != nil {
		return err
	}
	presented = true
	if err := r.surface.Present(st); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	return nil
}

// planPass resolves the target, texture, pipeline and uniforms of a group.
func (r *Renderer) planPass(dc *cozy.DrawContext, fs *frameState, key cozy.MeshGroupKey,
	dr drawRange) (passPlan, bool, error) {
	target, ok := r.targets.get(key.Target)
	if !ok {
		return passPlan{}, false, fmt.Errorf("%w: %s", cozy.ErrUnknownRenderTarget, key.Target)
	}

	pk := pipelineKey{
		Blend:   key.Blend,
		Shader:  spriteShaderID,
		ZBuffer: r.zbuffer,
		Samples: r.targets.sampleCount(),
	}
	var inst cozy.ShaderInstance
	if key.Shader != cozy.DefaultShaderInstance {
		inst, ok = dc.ShaderInstance(key.Shader)
		if !ok {
			return passPlan{}, false, fmt.Errorf("%w: %s", cozy.ErrUnknownShaderInstance, key.Shader)
		}
		pk.User = true
		pk.Shader = inst.Shader
	}
	entry, created, err := r.pipelines.resolve(pk)
	if err != nil {
		return passPlan{}, false, err
	}

	plan := passPlan{target: target, entry: entry, draw: dr}
	if entry.user != nil {
		set, err := entry.user.acquire(r.device, r.queue, &inst)
		if err != nil {
			return passPlan{}, false, err
		}
		plan.uniforms = set
	}
	plan.handle, plan.texture = r.textureBindGroup(key.Texture, key.Target)

	plan.colorLoad = gputypes.LoadOpLoad
	if !fs.touched[key.Target] {
		plan.colorLoad = gputypes.LoadOpClear
		fs.touched[key.Target] = true
	}
	return plan, created, nil
}

// textureBindGroup resolves a handle to its group-0 bind group. Unknown
// handles, the default target and the target being drawn into all fall
// back to the error texture.
func (r *Renderer) textureBindGroup(h cozy.TextureHandle, drawing cozy.RenderTargetID) (cozy.TextureHandle, hal.BindGroup) {
	if id, ok := h.Target(); ok {
		if t, found := r.targets.get(id); found && !t.surface && id != drawing && t.blitGroup != nil {
			return h, t.blitGroup
		}
	} else if gt, ok := r.textures.get(h); ok {
		return h, gt.bindGroup
	}
	r.textureWarn.warn("texture not available, using error texture", "handle", h.String())
	errTex, _ := r.textures.get(cozy.ErrorTexture())
	return cozy.ErrorTexture(), errTex.bindGroup
}

// recordPass encodes one render pass for a planned group.
func (r *Renderer) recordPass(encoder hal.CommandEncoder, fs *frameState, id cozy.RenderTargetID, p passPlan) PassStat {
	view, resolve := p.target.attachments.colorView()
	if p.target.surface {
		view, resolve = p.target.attachments.msaaView, nil
		if view == nil {
			view = fs.surfaceView
		}
	}

	desc := &hal.RenderPassDescriptor{
		Label: fmt.Sprintf("%s_pass", p.target.label),
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:          view,
			ResolveTarget: resolve,
			LoadOp:        p.colorLoad,
			StoreOp:       gputypes.StoreOpStore,
			ClearValue:    r.clearValue(),
		}},
	}
	stat := PassStat{
		Target:    id,
		ColorLoad: p.colorLoad,
		Pipeline:  p.entry.key.String(),
		Texture:   p.handle,
	}
	if r.zbuffer {
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:            p.target.attachments.depthView,
			DepthLoadOp:     p.colorLoad,
			DepthStoreOp:    gputypes.StoreOpStore,
			DepthClearValue: 1.0,
		}
		stat.DepthLoad = p.colorLoad
	}

	rp := encoder.BeginRenderPass(desc)
	rp.SetPipeline(p.entry.pipeline)
	rp.SetBindGroup(0, p.texture, nil)
	rp.SetBindGroup(1, r.camera.bindGroup, nil)
	if p.uniforms != nil {
		rp.SetBindGroup(userUniformGroup, p.uniforms.bindGroup, nil)
	}
	if r.vertices.buffer != nil && p.draw.vertexCount > 0 {
		rp.SetVertexBuffer(0, r.vertices.buffer, 0)
	}
	if p.draw.indexed {
		rp.SetIndexBuffer(r.indices.buffer, gputypes.IndexFormatUint32, 0)
		rp.DrawIndexed(p.draw.count, 1, p.draw.first, 0, 0)
		stat.Kind = DrawIndexed
	} else {
		rp.Draw(p.draw.count, 1, p.draw.first, 0)
		stat.Kind = DrawVertices
	}
	stat.Count = p.draw.count
	rp.End()
	return stat
}

// recordResolvePass resolves the default target's MSAA color into the
// surface texture.
func (r *Renderer) recordResolvePass(encoder hal.CommandEncoder, fs *frameState, def *renderTarget) PassStat {
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "msaa_resolve_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:          def.attachments.msaaView,
			ResolveTarget: fs.surfaceView,
			LoadOp:        gputypes.LoadOpLoad,
			StoreOp:       gputypes.StoreOpStore,
		}},
	})
	rp.End()
	return PassStat{Target: cozy.DefaultRenderTarget, ColorLoad: gputypes.LoadOpLoad, Resolve: true}
}

// submit ends encoding, submits and waits for the GPU.
func (r *Renderer) submit(encoder hal.CommandEncoder) error {
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer r.device.FreeCommandBuffer(cmdBuf)

	fence, err := r.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer r.device.DestroyFence(fence)

	if err := r.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := r.device.Wait(fence, 1, fenceTimeout)
	if err != nil || !fenceOK {
		return fmt.Errorf("wait for GPU: ok=%v err=%w", fenceOK, err)
	}
	return nil
}

// endFrame clears the frame buffers, returns uniform sets to their pools
// and clears the shader instance table.
func (r *Renderer) endFrame(dc *cozy.DrawContext) {
	r.vertices.clear(r.queue)
	r.indices.clear(r.queue)
	r.pipelines.endFrame()
	dc.EndFrame()
}

func (r *Renderer) clearValue() gputypes.Color {
	c := r.clearColor
	return gputypes.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B), A: float64(c.A)}
}
