//go:build !nogpu

package gpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// SurfaceTexture is the texture a frame resolves into.
type SurfaceTexture interface {
	View() hal.TextureView
}

// Surface is the presentation target of the default render target.
//
// Acquire returns cozy.ErrSurfaceUnavailable (possibly wrapped) when no
// texture can be obtained this frame; the renderer then skips the frame.
// Any other error is fatal.
//
// Every acquired texture is handed back exactly once, through Present
// when the frame was submitted or Discard when it failed.
type Surface interface {
	Acquire() (SurfaceTexture, error)
	Present(SurfaceTexture) error
	Discard(SurfaceTexture)
	Resize(width, height uint32) error
	Size() (width, height uint32)
}

// OffscreenSurface is a Surface backed by a single texture. It is used for
// headless rendering and tests.
type OffscreenSurface struct {
	mu     sync.Mutex
	device hal.Device

	tex    hal.Texture
	view   hal.TextureView
	width  uint32
	height uint32

	presented uint64
	discarded uint64
}

type offscreenTexture struct{ view hal.TextureView }

func (t offscreenTexture) View() hal.TextureView { return t.view }

// NewOffscreenSurface creates an offscreen surface of the given size.
func NewOffscreenSurface(device hal.Device, width, height uint32) (*OffscreenSurface, error) {
	s := &OffscreenSurface{device: device}
	if err := s.Resize(width, height); err != nil {
		return nil, err
	}
	return s, nil
}

// Acquire returns the surface texture.
func (s *OffscreenSurface) Acquire() (SurfaceTexture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == nil {
		return nil, ErrRendererClosed
	}
	return offscreenTexture{view: s.view}, nil
}

// Present counts the presented frame.
func (s *OffscreenSurface) Present(SurfaceTexture) error {
	s.mu.Lock()
	s.presented++
	s.mu.Unlock()
	return nil
}

// Discard counts the abandoned frame.
func (s *OffscreenSurface) Discard(SurfaceTexture) {
	s.mu.Lock()
	s.discarded++
	s.mu.Unlock()
}

// Discarded returns the number of acquired frames that were abandoned.
func (s *OffscreenSurface) Discarded() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.discarded
}

// Presented returns the number of frames presented so far.
func (s *OffscreenSurface) Presented() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presented
}

// Resize recreates the backing texture.
func (s *OffscreenSurface) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidTargetSize, width, height)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tex != nil && s.width == width && s.height == height {
		return nil
	}
	s.release()
	tex, view, err := createAttachment(s.device, "offscreen_surface",
		hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1}, 1, colorFormat,
		gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageCopySrc)
	if err != nil {
		return err
	}
	s.tex, s.view = tex, view
	s.width, s.height = width, height
	return nil
}

// Size returns the surface size in pixels.
func (s *OffscreenSurface) Size() (width, height uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Destroy releases the backing texture.
func (s *OffscreenSurface) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release()
}

func (s *OffscreenSurface) release() {
	if s.view != nil {
		s.device.DestroyTextureView(s.view)
		s.view = nil
	}
	if s.tex != nil {
		s.device.DestroyTexture(s.tex)
		s.tex = nil
	}
}
