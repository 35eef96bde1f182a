//go:build !nogpu

// Package gpu opens a GPU device and creates cozy renderers on it.
//
// Three ways to get a renderer:
//
//	dev, err := gpu.OpenDevice()              // Vulkan, else the noop device
//	r, err := gpu.NewRenderer(dev, opts...)
//
//	r, err := gpu.NewRendererFromProvider(p)  // share a host's device (gogpu)
//
//	r, err := gpu.NewRendererOn(device, queue) // raw hal handles
//
// The noop device accepts every call and draws nothing. It lets games and
// tests run headless.
package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	_ "github.com/gogpu/wgpu/hal/vulkan" // register backend

	"github.com/gogpu/cozy"
	gpuimpl "github.com/gogpu/cozy/internal/gpu"
)

// Renderer is the hal-backed cozy renderer.
type Renderer = gpuimpl.Renderer

// Option configures a Renderer.
type Option = gpuimpl.Option

// RenderTargetParams describes an offscreen render target.
type RenderTargetParams = gpuimpl.RenderTargetParams

// FrameStats and PassStat describe the most recent frame.
type (
	FrameStats = gpuimpl.FrameStats
	PassStat   = gpuimpl.PassStat
)

// Surface is the presentation target of the default render target.
type Surface = gpuimpl.Surface

// Renderer options.
var (
	WithConfig              = gpuimpl.WithConfig
	WithSurface             = gpuimpl.WithSurface
	WithSize                = gpuimpl.WithSize
	WithSampleCount         = gpuimpl.WithSampleCount
	WithZBuffer             = gpuimpl.WithZBuffer
	WithClearColor          = gpuimpl.WithClearColor
	WithShaderDir           = gpuimpl.WithShaderDir
	WithoutShaderValidation = gpuimpl.WithoutShaderValidation
	WithoutHotReload        = gpuimpl.WithoutHotReload
)

// ErrNilProvider is returned when a nil DeviceProvider is passed.
var ErrNilProvider = errors.New("gpu: nil DeviceProvider")

// ErrNoHalAccess is returned when a provider does not expose hal types.
var ErrNoHalAccess = errors.New("gpu: provider does not expose HAL types")

// Device is an opened hal device and its queue.
type Device struct {
	Device hal.Device
	Queue  hal.Queue

	// Name is the adapter name.
	Name string

	// Headless is set for the noop device.
	Headless bool

	instance hal.Instance
}

// Close destroys the device and its instance.
func (d *Device) Close() {
	if d.Device != nil {
		d.Device.Destroy()
		d.Device = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
}

// OpenDevice opens the first discrete or integrated Vulkan adapter. When
// Vulkan is not available the noop device is returned instead.
func OpenDevice() (*Device, error) {
	dev, err := openVulkan()
	if err == nil {
		cozy.Logger().Info("gpu device opened", "adapter", dev.Name)
		return dev, nil
	}
	cozy.Logger().Warn("vulkan unavailable, using noop device", "err", err)
	return OpenNoopDevice()
}

func openVulkan() (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, errors.New("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, errors.New("no GPU adapters found")
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}
	return &Device{
		Device:   openDev.Device,
		Queue:    openDev.Queue,
		Name:     selected.Info.Name,
		instance: instance,
	}, nil
}

// OpenNoopDevice opens the noop device.
func OpenNoopDevice() (*Device, error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("create noop instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, errors.New("no noop adapter")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open noop device: %w", err)
	}
	return &Device{
		Device:   openDev.Device,
		Queue:    openDev.Queue,
		Name:     "noop",
		Headless: true,
		instance: instance,
	}, nil
}

// NewRenderer creates a renderer on an opened device.
func NewRenderer(dev *Device, opts ...Option) (*Renderer, error) {
	if dev == nil {
		return nil, gpuimpl.ErrNoDevice
	}
	return gpuimpl.NewRenderer(dev.Device, dev.Queue, opts...)
}

// NewRendererOn creates a renderer on raw hal handles.
func NewRendererOn(device hal.Device, queue hal.Queue, opts ...Option) (*Renderer, error) {
	return gpuimpl.NewRenderer(device, queue, opts...)
}

// NewRendererFromProvider shares the device of a host application. The
// provider must also expose its hal device and queue through
// HalDevice() and HalQueue().
func NewRendererFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Renderer, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHalAccess
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHalAccess)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHalAccess)
	}
	if f := provider.SurfaceFormat(); f != gputypes.TextureFormatBGRA8Unorm {
		cozy.Logger().Warn("surface format differs from render format", "surface", f)
	}
	return gpuimpl.NewRenderer(device, queue, opts...)
}
