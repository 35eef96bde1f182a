//go:build !nogpu

package gpu

import (
	"fmt"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/cozy"
)

// createNoopDevice opens the noop hal device used by every GPU test.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// newTestRenderer creates a 640x480 single-sample renderer on the noop
// device. Later options override the defaults.
func newTestRenderer(t *testing.T, opts ...Option) *Renderer {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	base := []Option{
		WithSize(640, 480),
		WithSampleCount(cozy.MsaaOff),
		WithoutShaderValidation(),
		WithoutHotReload(),
	}
	r, err := NewRenderer(device, queue, append(base, opts...)...)
	if err != nil {
		cleanup()
		t.Fatalf("NewRenderer failed: %v", err)
	}
	t.Cleanup(func() {
		if err := r.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
		cleanup()
	})
	return r
}

// renderOnce renders the draws queued on dc as one frame.
func renderOnce(t *testing.T, r *Renderer, dc *cozy.DrawContext) FrameStats {
	t.Helper()
	if err := r.Render(&cozy.Frame{Context: dc}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	return r.LastFrameStats()
}

// lostSurface never has a texture to give.
type lostSurface struct{ w, h uint32 }

func (s *lostSurface) Acquire() (SurfaceTexture, error) {
	return nil, fmt.Errorf("swapchain outdated: %w", cozy.ErrSurfaceUnavailable)
}
func (s *lostSurface) Present(SurfaceTexture) error { return nil }
func (s *lostSurface) Discard(SurfaceTexture)       {}
func (s *lostSurface) Resize(w, h uint32) error     { s.w, s.h = w, h; return nil }
func (s *lostSurface) Size() (uint32, uint32)       { return s.w, s.h }
