//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// colorFormat is the format of every color attachment and the surface.
const colorFormat = gputypes.TextureFormatBGRA8Unorm

// depthFormat is the format of every depth attachment.
const depthFormat = gputypes.TextureFormatDepth32Float

// attachmentSet holds the textures a render target draws into:
//   - MSAA color: samples > 1 only, RenderAttachment
//   - depth: samples to match the color attachment, Depth32Float
//   - resolve: single sample, TextureBinding | RenderAttachment; omitted
//     for the surface-backed default target, whose resolve destination is
//     the surface texture acquired each frame
type attachmentSet struct {
	msaaTex     hal.Texture
	msaaView    hal.TextureView
	depthTex    hal.Texture
	depthView   hal.TextureView
	resolveTex  hal.Texture
	resolveView hal.TextureView

	width   uint32
	height  uint32
	samples uint32
}

// ensure creates or recreates the attachments when size or sample count
// changed. withResolve selects whether a sampleable resolve texture is
// created.
func (as *attachmentSet) ensure(device hal.Device, w, h, samples uint32, withResolve bool, label string) error {
	if as.width == w && as.height == h && as.samples == samples && as.depthTex != nil &&
		(as.resolveTex != nil) == withResolve {
		return nil
	}
	as.destroy(device)

	size := hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}

	if samples > 1 {
		tex, view, err := createAttachment(device, label+"_msaa_color", size, samples, colorFormat,
			gputypes.TextureUsageRenderAttachment)
		if err != nil {
			return err
		}
		as.msaaTex, as.msaaView = tex, view
	}

	tex, view, err := createAttachment(device, label+"_depth", size, samples, depthFormat,
		gputypes.TextureUsageRenderAttachment)
	if err != nil {
		as.destroy(device)
		return err
	}
	as.depthTex, as.depthView = tex, view

	if withResolve {
		tex, view, err := createAttachment(device, label+"_resolve", size, 1, colorFormat,
			gputypes.TextureUsageTextureBinding|gputypes.TextureUsageRenderAttachment)
		if err != nil {
			as.destroy(device)
			return err
		}
		as.resolveTex, as.resolveView = tex, view
	}

	as.width, as.height, as.samples = w, h, samples
	return nil
}

func createAttachment(device hal.Device, label string, size hal.Extent3D, samples uint32,
	format gputypes.TextureFormat, usage gputypes.TextureUsage) (hal.Texture, hal.TextureView, error) {
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create %s texture: %w", label, err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: label + "_view",
	})
	if err != nil {
		device.DestroyTexture(tex)
		return nil, nil, fmt.Errorf("create %s view: %w", label, err)
	}
	return tex, view, nil
}

// colorView returns the view passes render into, and the resolve target
// each pass writes when resolving inline.
func (as *attachmentSet) colorView() (view, resolve hal.TextureView) {
	if as.msaaView != nil {
		return as.msaaView, as.resolveView
	}
	return as.resolveView, nil
}

// destroy releases all textures and resets dimensions.
func (as *attachmentSet) destroy(device hal.Device) {
	if as.resolveView != nil {
		device.DestroyTextureView(as.resolveView)
		as.resolveView = nil
	}
	if as.resolveTex != nil {
		device.DestroyTexture(as.resolveTex)
		as.resolveTex = nil
	}
	if as.depthView != nil {
		device.DestroyTextureView(as.depthView)
		as.depthView = nil
	}
	if as.depthTex != nil {
		device.DestroyTexture(as.depthTex)
		as.depthTex = nil
	}
	if as.msaaView != nil {
		device.DestroyTextureView(as.msaaView)
		as.msaaView = nil
	}
	if as.msaaTex != nil {
		device.DestroyTexture(as.msaaTex)
		as.msaaTex = nil
	}
	as.width, as.height, as.samples = 0, 0, 0
}
