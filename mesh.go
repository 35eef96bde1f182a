package cozy

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// VertexSize is the byte stride of one interleaved Vertex on the GPU:
// position float32x3, uv float32x2, color float32x4.
const VertexSize = 36

// ZDiv scales a mesh z-index into clip-space depth.
const ZDiv = 1000

// Vertex is one sprite vertex.
type Vertex struct {
	Position mgl32.Vec3
	UV       mgl32.Vec2
	Color    mgl32.Vec4
}

// Mesh is one drawable unit. A mesh is consumed exactly once when the
// render queue is drained.
type Mesh struct {
	// Origin is the sort anchor used by y-sorting.
	Origin mgl32.Vec3

	Vertices []Vertex
	Indices  []uint32

	ZIndex int32

	// Texture is the sampled texture; nil selects the white texture.
	Texture *TextureHandle

	// YSortOffset biases Origin.Y when the mesh's z-index is y-sorted.
	YSortOffset float32
}

// TextureOrWhite returns the mesh texture, or the white texture when unset.
func (m *Mesh) TextureOrWhite() TextureHandle {
	if m.Texture == nil {
		return WhiteTexture()
	}
	return *m.Texture
}

// AppendVertexBytes appends the GPU layout of vs to dst.
func AppendVertexBytes(dst []byte, vs []Vertex) []byte {
	for i := range vs {
		v := &vs[i]
		dst = appendF32(dst, v.Position[0], v.Position[1], v.Position[2])
		dst = appendF32(dst, v.UV[0], v.UV[1])
		dst = appendF32(dst, v.Color[0], v.Color[1], v.Color[2], v.Color[3])
	}
	return dst
}

// AppendIndexBytes appends idx as little-endian uint32, each one offset by
// base.
func AppendIndexBytes(dst []byte, idx []uint32, base uint32) []byte {
	for _, i := range idx {
		dst = binary.LittleEndian.AppendUint32(dst, i+base)
	}
	return dst
}

func appendF32(dst []byte, vs ...float32) []byte {
	for _, v := range vs {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}
