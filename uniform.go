package cozy

import (
	"encoding/binary"
	"fmt"
	"math"
)

// UniformKind is the WGSL type of a shader uniform.
type UniformKind uint8

const (
	UniformF32 UniformKind = iota
	UniformVec2
	UniformVec3
	UniformVec4
)

// Components returns the number of float32 lanes of the kind.
func (k UniformKind) Components() int { return int(k) + 1 }

// WGSL returns the type as written in generated shader source.
func (k UniformKind) WGSL() string {
	switch k {
	case UniformVec2:
		return "vec2<f32>"
	case UniformVec3:
		return "vec3<f32>"
	case UniformVec4:
		return "vec4<f32>"
	default:
		return "f32"
	}
}

// BufferSize is the GPU buffer size for the kind. WGSL uniform buffers
// bind at least 16 bytes, so every kind uses one vec4 slot.
func (k UniformKind) BufferSize() uint64 { return 16 }

// Uniform is a uniform value set through DrawContext.SetUniform or declared
// as a shader default.
type Uniform struct {
	Kind UniformKind
	V    [4]float32
}

// F32 returns a scalar uniform.
func F32(v float32) Uniform { return Uniform{Kind: UniformF32, V: [4]float32{v}} }

// Vec2Uniform returns a vec2 uniform.
func Vec2Uniform(x, y float32) Uniform { return Uniform{Kind: UniformVec2, V: [4]float32{x, y}} }

// Vec3Uniform returns a vec3 uniform.
func Vec3Uniform(x, y, z float32) Uniform {
	return Uniform{Kind: UniformVec3, V: [4]float32{x, y, z}}
}

// Vec4Uniform returns a vec4 uniform.
func Vec4Uniform(x, y, z, w float32) Uniform {
	return Uniform{Kind: UniformVec4, V: [4]float32{x, y, z, w}}
}

// Bytes returns the 16-byte little-endian buffer contents of u.
func (u Uniform) Bytes() []byte {
	out := make([]byte, 0, 16)
	for _, v := range u.V {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

// String formats the used lanes of u.
func (u Uniform) String() string {
	switch u.Kind {
	case UniformVec2:
		return fmt.Sprintf("vec2(%g, %g)", u.V[0], u.V[1])
	case UniformVec3:
		return fmt.Sprintf("vec3(%g, %g, %g)", u.V[0], u.V[1], u.V[2])
	case UniformVec4:
		return fmt.Sprintf("vec4(%g, %g, %g, %g)", u.V[0], u.V[1], u.V[2], u.V[3])
	default:
		return fmt.Sprintf("%g", u.V[0])
	}
}

// UniformDef declares a shader uniform. Default is nil when the shader
// source gives no default value.
type UniformDef struct {
	Kind    UniformKind
	Default *Uniform
}
