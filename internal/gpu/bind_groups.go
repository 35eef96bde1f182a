//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// cameraUniformSize is one mat4x4<f32>.
const cameraUniformSize = 64

// bindLayouts are the layouts shared by every pipeline: group 0 texture
// and sampler, group 1 camera.
type bindLayouts struct {
	texture hal.BindGroupLayout
	camera  hal.BindGroupLayout
}

func createBindLayouts(device hal.Device) (*bindLayouts, error) {
	texture, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "texture_bind_group_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create texture layout: %w", err)
	}
	camera, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "camera_bind_group_layout",
		Entries: []gputypes.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: gputypes.ShaderStageVertex,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		}},
	})
	if err != nil {
		device.DestroyBindGroupLayout(texture)
		return nil, fmt.Errorf("create camera layout: %w", err)
	}
	return &bindLayouts{texture: texture, camera: camera}, nil
}

func (l *bindLayouts) destroy(device hal.Device) {
	if l.camera != nil {
		device.DestroyBindGroupLayout(l.camera)
		l.camera = nil
	}
	if l.texture != nil {
		device.DestroyBindGroupLayout(l.texture)
		l.texture = nil
	}
}

// createTextureBindGroup binds a view and sampler for group 0.
func createTextureBindGroup(device hal.Device, layout hal.BindGroupLayout, label string,
	view hal.TextureView, sampler hal.Sampler) (hal.BindGroup, error) {
	bg, err := device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  label,
		Layout: layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()}},
			{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	return bg, nil
}

// createSampler creates a clamp-to-edge sampler with the given filter.
func createSampler(device hal.Device, label string, filter gputypes.FilterMode) (hal.Sampler, error) {
	s, err := device.CreateSampler(&hal.SamplerDescriptor{
		Label:        label,
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    filter,
		MinFilter:    filter,
		MipmapFilter: filter,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	return s, nil
}

// createUniformBindGroup binds one uniform buffer per binding index.
func createUniformBindGroup(device hal.Device, layout hal.BindGroupLayout, label string,
	buffers []hal.Buffer, size uint64) (hal.BindGroup, error) {
	entries := make([]gputypes.BindGroupEntry, len(buffers))
	for i, buf := range buffers {
		entries[i] = gputypes.BindGroupEntry{
			Binding:  uint32(i), //nolint:gosec // few uniforms
			Resource: gputypes.BufferBinding{Buffer: buf.NativeHandle(), Offset: 0, Size: size},
		}
	}
	bg, err := device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	return bg, nil
}

// cameraBinding is the group-1 uniform holding the projection-view matrix.
type cameraBinding struct {
	buffer    hal.Buffer
	bindGroup hal.BindGroup
	last      mgl32.Mat4
}

func newCameraBinding(device hal.Device, layout hal.BindGroupLayout) (*cameraBinding, error) {
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "camera_uniform",
		Size:  cameraUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create camera buffer: %w", err)
	}
	bg, err := createUniformBindGroup(device, layout, "camera_bind_group", []hal.Buffer{buf}, cameraUniformSize)
	if err != nil {
		device.DestroyBuffer(buf)
		return nil, err
	}
	return &cameraBinding{buffer: buf, bindGroup: bg}, nil
}

// update writes m to the camera buffer.
func (c *cameraBinding) update(queue hal.Queue, m mgl32.Mat4) {
	c.last = m
	queue.WriteBuffer(c.buffer, 0, matrixBytes(m))
}

func (c *cameraBinding) destroy(device hal.Device) {
	if c.bindGroup != nil {
		device.DestroyBindGroup(c.bindGroup)
		c.bindGroup = nil
	}
	if c.buffer != nil {
		device.DestroyBuffer(c.buffer)
		c.buffer = nil
	}
}

// matrixBytes serializes a column-major matrix as WGSL expects it.
func matrixBytes(m mgl32.Mat4) []byte {
	out := make([]byte, 0, cameraUniformSize)
	for _, v := range m {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}
