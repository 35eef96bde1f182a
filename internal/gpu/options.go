//go:build !nogpu

package gpu

import "github.com/gogpu/cozy"

// Option configures a Renderer during creation.
//
// Example:
//
//	r, err := gpu.NewRenderer(device, queue,
//		gpu.WithSampleCount(cozy.Msaa4),
//		gpu.WithClearColor(cozy.Black),
//	)
type Option func(*options)

type options struct {
	surface    Surface
	width      uint32
	height     uint32
	samples    cozy.Msaa
	zbuffer    bool
	clearColor cozy.Color
	shaderDir  string
	validate   bool
	hotReload  bool
}

func defaultOptions() options {
	cfg := cozy.DefaultConfig()
	return options{
		width:      cfg.Resolution.Width,
		height:     cfg.Resolution.Height,
		samples:    cfg.Msaa,
		zbuffer:    cfg.ZBuffer,
		clearColor: cfg.ClearColor,
		validate:   true,
		hotReload:  true,
	}
}

// WithConfig takes size, sample count, z-buffer, clear color and shader
// directory from cfg.
func WithConfig(cfg cozy.Config) Option {
	return func(o *options) {
		o.width, o.height = cfg.Resolution.Width, cfg.Resolution.Height
		o.samples = cfg.Msaa
		o.zbuffer = cfg.ZBuffer
		o.clearColor = cfg.ClearColor
		o.shaderDir = cfg.ShaderDir
	}
}

// WithSurface sets the presentation surface. Without it the renderer
// creates an OffscreenSurface of the configured size.
func WithSurface(s Surface) Option {
	return func(o *options) {
		o.surface = s
	}
}

// WithSize sets the size of the offscreen surface created when no
// surface is given.
func WithSize(width, height uint32) Option {
	return func(o *options) {
		o.width, o.height = width, height
	}
}

// WithSampleCount sets the MSAA sample count of every render target.
func WithSampleCount(m cozy.Msaa) Option {
	return func(o *options) {
		o.samples = m
	}
}

// WithZBuffer enables depth testing for every pipeline.
func WithZBuffer(enabled bool) Option {
	return func(o *options) {
		o.zbuffer = enabled
	}
}

// WithClearColor sets the color each target is cleared to on its first
// pass of a frame.
func WithClearColor(c cozy.Color) Option {
	return func(o *options) {
		o.clearColor = c
	}
}

// WithShaderDir sets the directory relative shader paths are resolved in.
func WithShaderDir(dir string) Option {
	return func(o *options) {
		o.shaderDir = dir
	}
}

// WithoutShaderValidation skips naga validation of shader modules.
func WithoutShaderValidation() Option {
	return func(o *options) {
		o.validate = false
	}
}

// WithoutHotReload disables watching shader files.
func WithoutHotReload() Option {
	return func(o *options) {
		o.hotReload = false
	}
}
