//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// minBufferSize is the initial capacity of a sizedBuffer.
const minBufferSize = 4096

// sizedBuffer is a GPU buffer that grows on demand. Writes that fit reuse
// the existing buffer; larger writes recreate it at the next power of two.
type sizedBuffer struct {
	label  string
	usage  gputypes.BufferUsage
	buffer hal.Buffer

	capacity uint64
	length   uint64
	grows    int
}

func newSizedBuffer(label string, usage gputypes.BufferUsage) *sizedBuffer {
	return &sizedBuffer{label: label, usage: usage | gputypes.BufferUsageCopyDst}
}

// ensureSizeAndCopy uploads data at offset 0, growing the buffer first
// when it does not fit.
func (b *sizedBuffer) ensureSizeAndCopy(device hal.Device, queue hal.Queue, data []byte) error {
	size := uint64(len(data))
	if b.buffer == nil || size > b.capacity {
		capacity := max(b.capacity, minBufferSize)
		for capacity < size {
			capacity *= 2
		}
		buf, err := device.CreateBuffer(&hal.BufferDescriptor{
			Label: b.label,
			Size:  capacity,
			Usage: b.usage,
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", b.label, err)
		}
		if b.buffer != nil {
			device.DestroyBuffer(b.buffer)
			b.grows++
			slogger().Debug("buffer grown", "label", b.label, "from", b.capacity, "to", capacity)
		}
		b.buffer = buf
		b.capacity = capacity
	}
	if size > 0 {
		queue.WriteBuffer(b.buffer, 0, padTo4(data))
	}
	b.length = size
	return nil
}

// clear zeroes the used range and resets the length. The buffer itself is
// kept for the next frame.
func (b *sizedBuffer) clear(queue hal.Queue) {
	if b.buffer == nil || b.length == 0 {
		b.length = 0
		return
	}
	queue.WriteBuffer(b.buffer, 0, make([]byte, alignUp4(b.length)))
	b.length = 0
}

func (b *sizedBuffer) destroy(device hal.Device) {
	if b.buffer != nil {
		device.DestroyBuffer(b.buffer)
		b.buffer = nil
	}
	b.capacity, b.length = 0, 0
}

// alignUp4 rounds n up to the copy alignment of WriteBuffer.
func alignUp4(n uint64) uint64 { return (n + 3) &^ 3 }

func padTo4(data []byte) []byte {
	if pad := alignUp4(uint64(len(data))) - uint64(len(data)); pad > 0 {
		return append(data, make([]byte, pad)...)
	}
	return data
}
