package cozy

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// circleSegments is the tessellation of DrawCircle.
const circleSegments = 40

// UVRect selects a sub-rectangle of a texture in normalized coordinates.
type UVRect struct {
	Min, Max mgl32.Vec2
}

// FullUV covers the whole texture.
var FullUV = UVRect{Min: mgl32.Vec2{0, 0}, Max: mgl32.Vec2{1, 1}}

// SpriteParams tunes DrawSprite.
type SpriteParams struct {
	Rotation    float32
	FlipX       bool
	FlipY       bool
	Source      *UVRect
	YSortOffset float32
	Blend       BlendMode
}

func depth(z int32) float32 { return float32(z) / ZDiv }

// quadVertices returns the four corners of a rotated rectangle, ordered
// top-left, top-right, bottom-right, bottom-left.
func quadVertices(center, size mgl32.Vec2, rotation float32, z int32, uv UVRect, color Color) []Vertex {
	hw, hh := size.X()/2, size.Y()/2
	sin, cos := math32.Sincos(rotation)
	corners := [4]mgl32.Vec2{{-hw, -hh}, {hw, -hh}, {hw, hh}, {-hw, hh}}
	uvs := [4]mgl32.Vec2{
		{uv.Min.X(), uv.Min.Y()},
		{uv.Max.X(), uv.Min.Y()},
		{uv.Max.X(), uv.Max.Y()},
		{uv.Min.X(), uv.Max.Y()},
	}
	c := color.Vec4()
	vs := make([]Vertex, 4)
	for i, p := range corners {
		x := p.X()*cos - p.Y()*sin + center.X()
		y := p.X()*sin + p.Y()*cos + center.Y()
		vs[i] = Vertex{Position: mgl32.Vec3{x, y, depth(z)}, UV: uvs[i], Color: c}
	}
	return vs
}

var quadIndices = []uint32{0, 1, 2, 0, 2, 3}

// DrawMesh queues mesh with alpha blending.
func (dc *DrawContext) DrawMesh(mesh Mesh) {
	dc.QueueMeshDraw(mesh, BlendAlpha)
}

// DrawQuad queues a rotated, optionally textured quad.
func (dc *DrawContext) DrawQuad(center, size mgl32.Vec2, rotation float32, color Color, z int32, texture *TextureHandle) {
	dc.QueueMeshDraw(Mesh{
		Origin:   mgl32.Vec3{center.X(), center.Y(), depth(z)},
		Vertices: quadVertices(center, size, rotation, z, FullUV, color),
		Indices:  append([]uint32(nil), quadIndices...),
		ZIndex:   z,
		Texture:  texture,
	}, BlendAlpha)
}

// DrawRect queues an untextured axis-aligned rectangle.
func (dc *DrawContext) DrawRect(center, size mgl32.Vec2, color Color, z int32) {
	dc.DrawQuad(center, size, 0, color, z, nil)
}

// DrawSprite queues a textured quad.
func (dc *DrawContext) DrawSprite(texture TextureHandle, center, size mgl32.Vec2, color Color, z int32, p SpriteParams) {
	uv := FullUV
	if p.Source != nil {
		uv = *p.Source
	}
	if p.FlipX {
		uv.Min[0], uv.Max[0] = uv.Max[0], uv.Min[0]
	}
	if p.FlipY {
		uv.Min[1], uv.Max[1] = uv.Max[1], uv.Min[1]
	}
	tex := texture
	dc.QueueMeshDraw(Mesh{
		Origin:      mgl32.Vec3{center.X(), center.Y(), depth(z)},
		Vertices:    quadVertices(center, size, p.Rotation, z, uv, color),
		Indices:     append([]uint32(nil), quadIndices...),
		ZIndex:      z,
		Texture:     &tex,
		YSortOffset: p.YSortOffset,
	}, p.Blend)
}

// DrawLine queues a line segment of the given thickness as a quad.
func (dc *DrawContext) DrawLine(p1, p2 mgl32.Vec2, thickness float32, color Color, z int32) {
	dir := p2.Sub(p1)
	if dir.Len() == 0 {
		return
	}
	n := mgl32.Vec2{-dir.Y(), dir.X()}.Normalize().Mul(thickness / 2)
	c := color.Vec4()
	d := depth(z)
	pts := [4]mgl32.Vec2{p1.Add(n), p1.Sub(n), p2.Add(n), p2.Sub(n)}
	vs := make([]Vertex, 4)
	for i, p := range pts {
		vs[i] = Vertex{Position: mgl32.Vec3{p.X(), p.Y(), d}, Color: c}
	}
	mid := p1.Add(p2).Mul(0.5)
	dc.QueueMeshDraw(Mesh{
		Origin:   mgl32.Vec3{mid.X(), mid.Y(), d},
		Vertices: vs,
		Indices:  []uint32{0, 1, 2, 2, 1, 3},
		ZIndex:   z,
	}, BlendAlpha)
}

// DrawPoly queues a regular polygon with the given number of sides.
func (dc *DrawContext) DrawPoly(center mgl32.Vec2, sides int, radius, rotation float32, color Color, z int32) {
	if sides < 3 {
		return
	}
	c := color.Vec4()
	d := depth(z)
	vs := make([]Vertex, 0, sides+1)
	vs = append(vs, Vertex{Position: mgl32.Vec3{center.X(), center.Y(), d}, UV: mgl32.Vec2{0.5, 0.5}, Color: c})
	step := 2 * math32.Pi / float32(sides)
	for i := 0; i < sides; i++ {
		sin, cos := math32.Sincos(rotation + step*float32(i))
		vs = append(vs, Vertex{
			Position: mgl32.Vec3{center.X() + radius*cos, center.Y() + radius*sin, d},
			UV:       mgl32.Vec2{0.5 + cos/2, 0.5 + sin/2},
			Color:    c,
		})
	}
	idx := make([]uint32, 0, sides*3)
	for i := 1; i <= sides; i++ {
		next := i%sides + 1
		idx = append(idx, 0, uint32(i), uint32(next)) //nolint:gosec // sides is small
	}
	dc.QueueMeshDraw(Mesh{
		Origin:   mgl32.Vec3{center.X(), center.Y(), d},
		Vertices: vs,
		Indices:  idx,
		ZIndex:   z,
	}, BlendAlpha)
}

// DrawCircle queues a filled circle.
func (dc *DrawContext) DrawCircle(center mgl32.Vec2, radius float32, color Color, z int32) {
	dc.DrawPoly(center, circleSegments, radius, 0, color, z)
}
