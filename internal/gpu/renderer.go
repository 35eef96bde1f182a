//go:build !nogpu

package gpu

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/cozy"
)

// Renderer draws cozy frames with a hal device. It implements
// cozy.Renderer.
//
// Render, Resize and SetSampleCount belong to the render goroutine.
// Shaders, targets and textures may be created or replaced from any
// goroutine. Target and texture changes wait for an in-flight frame to
// finish, so a frame never sees attachments or bind groups destroyed under
// it.
type Renderer struct {
	mu     sync.Mutex
	closed bool

	device hal.Device
	queue  hal.Queue

	surface     Surface
	ownsSurface bool

	zbuffer    bool
	clearColor cozy.Color
	shaderDir  string

	layouts   *bindLayouts
	camera    *cameraBinding
	shaders   *shaderRegistry
	targets   *targetRegistry
	textures  *textureTable
	pipelines *pipelineCache
	vertices  *sizedBuffer
	indices   *sizedBuffer
	reloader  *shaderReloader

	frame       uint64
	skipWarn    *throttledWarn
	textureWarn *throttledWarn

	statsMu sync.Mutex
	stats   FrameStats
}

var _ cozy.Renderer = (*Renderer)(nil)

// NewRenderer creates a renderer on device and queue. The sprite shader,
// built-in textures and the default render target are created here.
func NewRenderer(device hal.Device, queue hal.Queue, opts ...Option) (*Renderer, error) {
	if device == nil || queue == nil {
		return nil, ErrNoDevice
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if !o.samples.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSampleCount, o.samples)
	}

	r := &Renderer{
		device:      device,
		queue:       queue,
		surface:     o.surface,
		zbuffer:     o.zbuffer,
		clearColor:  o.clearColor,
		shaderDir:   o.shaderDir,
		vertices:    newSizedBuffer("vertex_buffer", gputypes.BufferUsageVertex),
		indices:     newSizedBuffer("index_buffer", gputypes.BufferUsageIndex),
		skipWarn:    newThrottledWarn(),
		textureWarn: newThrottledWarn(),
	}
	if err := r.init(o); err != nil {
		r.release()
		return nil, err
	}
	cozy.RegisterLoggerSink(r)
	slogger().Info("renderer created", "samples", o.samples, "z_buffer", o.zbuffer)
	return r, nil
}

func (r *Renderer) init(o options) error {
	if r.surface == nil {
		s, err := NewOffscreenSurface(r.device, o.width, o.height)
		if err != nil {
			return err
		}
		r.surface, r.ownsSurface = s, true
	}

	var err error
	if r.layouts, err = createBindLayouts(r.device); err != nil {
		return err
	}
	if r.camera, err = newCameraBinding(r.device, r.layouts.camera); err != nil {
		return err
	}

	var validate func(string) error
	if o.validate {
		validate = validateWGSL
	}
	r.shaders = newShaderRegistry(r.device, validate)
	if err := r.shaders.initSprite(); err != nil {
		return err
	}

	w, h := r.surface.Size()
	if r.targets, err = newTargetRegistry(r.device, r.layouts.texture, w, h, uint32(o.samples)); err != nil {
		return err
	}
	if r.textures, err = newTextureTable(r.device, r.queue, r.layouts.texture); err != nil {
		return err
	}
	r.pipelines = newPipelineCache(r.device, r.layouts, r.shaders)

	if o.hotReload {
		if r.reloader, err = newShaderReloader(); err != nil {
			// Hot reload is a convenience; rendering works without it.
			slogger().Warn("shader hot reload disabled", "err", err)
			r.reloader = nil
		}
	}
	return nil
}

// Render drains f.Context, draws every group and presents the frame.
func (r *Renderer) Render(f *cozy.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRendererClosed
	}
	return r.renderFrame(f)
}

// Resize resizes the surface and rebuilds the default target.
func (r *Renderer) Resize(width, height uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRendererClosed
	}
	if err := r.surface.Resize(width, height); err != nil {
		return fmt.Errorf("resize surface: %w", err)
	}
	return r.targets.resize(cozy.DefaultRenderTarget, width, height)
}

// SetSampleCount rebuilds every render target with a new sample count.
// Pipelines for the old count are dropped.
func (r *Renderer) SetSampleCount(m cozy.Msaa) error {
	if !m.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidSampleCount, m)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRendererClosed
	}
	if err := r.targets.setSamples(uint32(m)); err != nil {
		return err
	}
	r.pipelines.invalidateSamples(uint32(m))
	slogger().Info("sample count changed", "samples", m)
	return nil
}

// SampleCount returns the current MSAA sample count.
func (r *Renderer) SampleCount() cozy.Msaa {
	return cozy.Msaa(r.targets.sampleCount())
}

// CreateShader registers a fragment shader. See the package documentation
// for the uniform declaration syntax.
func (r *Renderer) CreateShader(name, fragment string) (cozy.ShaderID, error) {
	if r.isClosed() {
		return 0, ErrRendererClosed
	}
	return r.shaders.create(name, fragment, "")
}

// CreateShaderFromFile registers the shader at path and reloads it when
// the file changes. Relative paths are resolved against the shader
// directory when one is configured.
func (r *Renderer) CreateShaderFromFile(name, path string) (cozy.ShaderID, error) {
	if r.isClosed() {
		return 0, ErrRendererClosed
	}
	if r.shaderDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(r.shaderDir, path)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read shader %q: %w", name, err)
	}
	id, err := r.shaders.create(name, string(src), path)
	if err != nil {
		return 0, err
	}
	if r.reloader != nil {
		if err := r.reloader.watch(id, path); err != nil {
			slogger().Warn("shader not watched", "name", name, "err", err)
		}
	}
	return id, nil
}

// Shader looks a shader up by name.
func (r *Renderer) Shader(name string) (cozy.ShaderID, bool) {
	return r.shaders.lookup(name)
}

// CreateRenderTarget allocates an offscreen render target. Draw into it
// with DrawContext.UseRenderTarget and sample it with
// cozy.TextureOfTarget.
func (r *Renderer) CreateRenderTarget(p RenderTargetParams) (cozy.RenderTargetID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, ErrRendererClosed
	}
	return r.targets.create(p)
}

// ResizeRenderTarget rebuilds a user render target at a new size.
func (r *Renderer) ResizeRenderTarget(id cozy.RenderTargetID, size cozy.Resolution) error {
	if id == cozy.DefaultRenderTarget {
		return fmt.Errorf("%w: default target follows the surface", cozy.ErrUnknownRenderTarget)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRendererClosed
	}
	return r.targets.resize(id, size.Width, size.Height)
}

// LoadTexture uploads img under handle with linear filtering.
func (r *Renderer) LoadTexture(handle cozy.TextureHandle, img image.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRendererClosed
	}
	return r.textures.load(handle, img, gputypes.FilterModeLinear)
}

// LoadTextureFile decodes a PNG, JPEG, BMP or WebP file and uploads it
// under cozy.TexturePath(path). Decoding does not block rendering.
func (r *Renderer) LoadTextureFile(path string) (cozy.TextureHandle, error) {
	img, format, err := decodeImageFile(path)
	if err != nil {
		return cozy.TextureHandle{}, err
	}
	handle := cozy.TexturePath(path)
	if err := r.LoadTexture(handle, img); err != nil {
		return cozy.TextureHandle{}, err
	}
	slogger().Info("texture file loaded", "path", path, "format", format)
	return handle, nil
}

// HasTexture reports whether handle is loaded.
func (r *Renderer) HasTexture(handle cozy.TextureHandle) bool {
	return r.textures.has(handle)
}

// LastFrameStats returns the stats of the most recent frame.
func (r *Renderer) LastFrameStats() FrameStats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	return r.stats
}

func (r *Renderer) setStats(s FrameStats) {
	r.statsMu.Lock()
	r.stats = s
	r.statsMu.Unlock()
}

// Surface returns the presentation surface.
func (r *Renderer) Surface() Surface { return r.surface }

// SetLogger implements cozy.LoggerSetter.
func (r *Renderer) SetLogger(l *slog.Logger) { setLogger(l) }

// Close releases every GPU resource owned by the renderer. The device
// and queue are left to the caller.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	cozy.UnregisterLoggerSink(r)
	var err error
	if r.reloader != nil {
		err = r.reloader.close()
	}
	r.release()
	slogger().Info("renderer closed", "frames", r.frame)
	return err
}

func (r *Renderer) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// release destroys whatever init managed to create.
func (r *Renderer) release() {
	if r.pipelines != nil {
		r.pipelines.destroy()
	}
	if r.textures != nil {
		r.textures.destroy()
	}
	if r.targets != nil {
		r.targets.destroy()
	}
	if r.shaders != nil {
		r.shaders.destroy()
	}
	r.vertices.destroy(r.device)
	r.indices.destroy(r.device)
	if r.camera != nil {
		r.camera.destroy(r.device)
	}
	if r.layouts != nil {
		r.layouts.destroy(r.device)
	}
	if s, ok := r.surface.(*OffscreenSurface); ok && r.ownsSurface {
		s.Destroy()
	}
}
