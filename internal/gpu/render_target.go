//go:build !nogpu

package gpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/cozy"
)

// RenderTargetParams describes a user render target.
type RenderTargetParams struct {
	Label string
	Size  cozy.Resolution

	// FilterMode is used when the target is sampled through
	// cozy.TextureOfTarget. The zero value selects linear filtering.
	FilterMode gputypes.FilterMode
}

// renderTarget is the GPU side of a render target id.
type renderTarget struct {
	id     cozy.RenderTargetID
	label  string
	filter gputypes.FilterMode

	// surface marks the default target: no resolve texture, the surface
	// texture of the frame is the resolve destination.
	surface bool

	attachments attachmentSet
	sampler     hal.Sampler
	blitGroup   hal.BindGroup
}

// rebuild recreates attachments and, for user targets, the blit bind group.
func (t *renderTarget) rebuild(device hal.Device, layout hal.BindGroupLayout, w, h, samples uint32) error {
	t.destroyBlit(device)
	if err := t.attachments.ensure(device, w, h, samples, !t.surface, t.label); err != nil {
		return fmt.Errorf("render target %s: %w", t.label, err)
	}
	if t.surface {
		return nil
	}
	sampler, err := createSampler(device, t.label+"_sampler", t.filter)
	if err != nil {
		return err
	}
	t.sampler = sampler
	bg, err := createTextureBindGroup(device, layout, t.label+"_blit_bind_group", t.attachments.resolveView, sampler)
	if err != nil {
		return err
	}
	t.blitGroup = bg
	return nil
}

func (t *renderTarget) destroyBlit(device hal.Device) {
	if t.blitGroup != nil {
		device.DestroyBindGroup(t.blitGroup)
		t.blitGroup = nil
	}
	if t.sampler != nil {
		device.DestroySampler(t.sampler)
		t.sampler = nil
	}
}

func (t *renderTarget) destroy(device hal.Device) {
	t.destroyBlit(device)
	t.attachments.destroy(device)
}

// targetRegistry maps render target ids to their attachments. Target 0 is
// created with the registry and tracks the surface size.
type targetRegistry struct {
	mu      sync.RWMutex
	device  hal.Device
	layout  hal.BindGroupLayout
	samples uint32

	targets map[cozy.RenderTargetID]*renderTarget
	nextID  cozy.RenderTargetID
}

func newTargetRegistry(device hal.Device, layout hal.BindGroupLayout, w, h, samples uint32) (*targetRegistry, error) {
	r := &targetRegistry{
		device:  device,
		layout:  layout,
		samples: samples,
		targets: make(map[cozy.RenderTargetID]*renderTarget),
		nextID:  cozy.DefaultRenderTarget + 1,
	}
	def := &renderTarget{id: cozy.DefaultRenderTarget, label: "default_target", surface: true}
	if err := def.rebuild(device, layout, w, h, samples); err != nil {
		return nil, err
	}
	r.targets[cozy.DefaultRenderTarget] = def
	return r, nil
}

// create allocates a user render target.
func (r *targetRegistry) create(p RenderTargetParams) (cozy.RenderTargetID, error) {
	if p.Size.Width == 0 || p.Size.Height == 0 {
		return 0, fmt.Errorf("%w: %s %dx%d", ErrInvalidTargetSize, p.Label, p.Size.Width, p.Size.Height)
	}
	if p.FilterMode == gputypes.FilterMode(0) {
		p.FilterMode = gputypes.FilterModeLinear
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	label := p.Label
	if label == "" {
		label = fmt.Sprintf("render_target_%d", id)
	}
	t := &renderTarget{id: id, label: label, filter: p.FilterMode}
	if err := t.rebuild(r.device, r.layout, p.Size.Width, p.Size.Height, r.samples); err != nil {
		t.destroy(r.device)
		return 0, err
	}
	r.nextID++
	r.targets[id] = t
	slogger().Debug("render target created", "id", id, "label", label,
		"width", p.Size.Width, "height", p.Size.Height, "samples", r.samples)
	return id, nil
}

func (r *targetRegistry) get(id cozy.RenderTargetID) (*renderTarget, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.targets[id]
	return t, ok
}

// resize rebuilds one target at a new size.
func (r *targetRegistry) resize(id cozy.RenderTargetID, w, h uint32) error {
	if w == 0 || h == 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidTargetSize, w, h)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[id]
	if !ok {
		return fmt.Errorf("%w: %s", cozy.ErrUnknownRenderTarget, id)
	}
	return t.rebuild(r.device, r.layout, w, h, r.samples)
}

// setSamples rebuilds every target with a new sample count. If any
// rebuild fails, the targets already touched go back to the old count.
func (r *targetRegistry) setSamples(samples uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if samples == r.samples {
		return nil
	}
	type size struct{ w, h uint32 }
	sizes := make(map[*renderTarget]size, len(r.targets))
	for _, t := range r.targets {
		sizes[t] = size{t.attachments.width, t.attachments.height}
	}
	var touched []*renderTarget
	for _, t := range r.targets {
		touched = append(touched, t)
		sz := sizes[t]
		if err := t.rebuild(r.device, r.layout, sz.w, sz.h, samples); err != nil {
			for _, back := range touched {
				sz := sizes[back]
				if rerr := back.rebuild(r.device, r.layout, sz.w, sz.h, r.samples); rerr != nil {
					slogger().Error("render target left without attachments", "target", back.label, "err", rerr)
				}
			}
			return err
		}
	}
	r.samples = samples
	return nil
}

func (r *targetRegistry) sampleCount() uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.samples
}

func (r *targetRegistry) destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.targets {
		t.destroy(r.device)
		delete(r.targets, id)
	}
}
