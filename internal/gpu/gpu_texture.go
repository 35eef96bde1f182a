//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"os"
	"sync"

	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/webp" // register decoder

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/draw"

	"github.com/gogpu/cozy"
)

// textureFormat is the format of every sampled texture.
const textureFormat = gputypes.TextureFormatRGBA8Unorm

// maxTextureSize is the largest dimension uploaded as is. Bigger images
// are scaled down keeping their aspect ratio.
const maxTextureSize = 8192

// ErrNilImage is returned by LoadTexture for a nil image.
var ErrNilImage = errors.New("gpu: image is nil")

// errorCheckerSize is the side of the built-in error texture in pixels.
const errorCheckerSize = 8

// gpuTexture is a sampled texture with its group-0 bind group.
type gpuTexture struct {
	tex       hal.Texture
	view      hal.TextureView
	sampler   hal.Sampler
	bindGroup hal.BindGroup

	width  uint32
	height uint32
}

func (t *gpuTexture) destroy(device hal.Device) {
	if t.bindGroup != nil {
		device.DestroyBindGroup(t.bindGroup)
	}
	if t.sampler != nil {
		device.DestroySampler(t.sampler)
	}
	if t.view != nil {
		device.DestroyTextureView(t.view)
	}
	if t.tex != nil {
		device.DestroyTexture(t.tex)
	}
}

// textureTable holds every loaded texture by handle.
type textureTable struct {
	mu     sync.RWMutex
	device hal.Device
	queue  hal.Queue
	layout hal.BindGroupLayout

	textures map[cozy.TextureHandle]*gpuTexture
}

func newTextureTable(device hal.Device, queue hal.Queue, layout hal.BindGroupLayout) (*textureTable, error) {
	t := &textureTable{
		device:   device,
		queue:    queue,
		layout:   layout,
		textures: make(map[cozy.TextureHandle]*gpuTexture),
	}
	white := image.NewRGBA(image.Rect(0, 0, 1, 1))
	white.Set(0, 0, color.White)
	if err := t.load(cozy.WhiteTexture(), white, gputypes.FilterModeNearest); err != nil {
		return nil, fmt.Errorf("white texture: %w", err)
	}
	if err := t.load(cozy.ErrorTexture(), errorChecker(), gputypes.FilterModeNearest); err != nil {
		return nil, fmt.Errorf("error texture: %w", err)
	}
	return t, nil
}

// errorChecker is a magenta and black checkerboard.
func errorChecker() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, errorCheckerSize, errorCheckerSize))
	magenta := color.RGBA{R: 0xff, B: 0xff, A: 0xff}
	black := color.RGBA{A: 0xff}
	half := errorCheckerSize / 2
	for y := range errorCheckerSize {
		for x := range errorCheckerSize {
			if (x/half+y/half)%2 == 0 {
				img.SetRGBA(x, y, magenta)
			} else {
				img.SetRGBA(x, y, black)
			}
		}
	}
	return img
}

// toRGBA converts img to tightly packed RGBA, scaling it down when a side
// exceeds maxTextureSize.
func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > maxTextureSize || h > maxTextureSize {
		scale := float64(maxTextureSize) / float64(max(w, h))
		w = max(1, int(float64(w)*scale))
		h = max(1, int(float64(h)*scale))
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		slogger().Debug("texture scaled down", "from_w", b.Dx(), "from_h", b.Dy(), "to_w", w, "to_h", h)
		return dst
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == 4*w {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// load uploads img under handle, replacing any texture already there.
func (t *textureTable) load(handle cozy.TextureHandle, img image.Image, filter gputypes.FilterMode) error {
	if img == nil {
		return ErrNilImage
	}
	rgba := toRGBA(img)
	w := uint32(rgba.Rect.Dx()) //nolint:gosec // bounded by maxTextureSize
	h := uint32(rgba.Rect.Dy()) //nolint:gosec // bounded by maxTextureSize
	if w == 0 || h == 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidTargetSize, w, h)
	}
	label := handle.String()

	tex, err := t.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        textureFormat,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create texture %s: %w", label, err)
	}
	gt := &gpuTexture{tex: tex, width: w, height: h}

	gt.view, err = t.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        textureFormat,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		gt.destroy(t.device)
		return fmt.Errorf("create texture view %s: %w", label, err)
	}

	t.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, MipLevel: 0},
		rgba.Pix,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: w * 4, RowsPerImage: h},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)

	if gt.sampler, err = createSampler(t.device, label+"_sampler", filter); err != nil {
		gt.destroy(t.device)
		return err
	}
	if gt.bindGroup, err = createTextureBindGroup(t.device, t.layout, label+"_bind_group", gt.view, gt.sampler); err != nil {
		gt.destroy(t.device)
		return err
	}

	t.mu.Lock()
	old := t.textures[handle]
	t.textures[handle] = gt
	t.mu.Unlock()
	if old != nil {
		old.destroy(t.device)
	}
	slogger().Debug("texture loaded", "handle", label, "width", w, "height", h)
	return nil
}

// decodeImageFile decodes the image at path with any registered decoder.
func decodeImageFile(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open texture: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("decode texture %s: %w", path, err)
	}
	return img, format, nil
}

func (t *textureTable) get(handle cozy.TextureHandle) (*gpuTexture, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	gt, ok := t.textures[handle]
	return gt, ok
}

// has reports whether handle is loaded.
func (t *textureTable) has(handle cozy.TextureHandle) bool {
	_, ok := t.get(handle)
	return ok
}

func (t *textureTable) destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for h, gt := range t.textures {
		gt.destroy(t.device)
		delete(t.textures, h)
	}
}
