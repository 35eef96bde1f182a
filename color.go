package cozy

import (
	"fmt"
	"image/color"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// Color is a straight-alpha RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float32
}

// Common colors.
var (
	White       = Color{1, 1, 1, 1}
	Black       = Color{0, 0, 0, 1}
	Red         = Color{1, 0, 0, 1}
	Green       = Color{0, 1, 0, 1}
	Blue        = Color{0, 0, 1, 1}
	Transparent = Color{}
)

// RGB creates an opaque color.
func RGB(r, g, b float32) Color { return Color{R: r, G: g, B: b, A: 1} }

// RGBA creates a color from all four components.
func RGBA(r, g, b, a float32) Color { return Color{R: r, G: g, B: b, A: a} }

// Hex parses "RGB", "RGBA", "RRGGBB" or "RRGGBBAA", with or without a
// leading '#'.
func Hex(hex string) (Color, error) {
	if hex != "" && hex[0] == '#' {
		hex = hex[1:]
	}
	expand := func(s string) string {
		out := make([]byte, 0, len(s)*2)
		for i := 0; i < len(s); i++ {
			out = append(out, s[i], s[i])
		}
		return string(out)
	}
	switch len(hex) {
	case 3, 4:
		hex = expand(hex)
	case 6, 8:
	default:
		return Color{}, fmt.Errorf("cozy: invalid hex color %q", hex)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("cozy: invalid hex color %q: %w", hex, err)
	}
	return Color{
		R: float32(v>>24&0xff) / 255,
		G: float32(v>>16&0xff) / 255,
		B: float32(v>>8&0xff) / 255,
		A: float32(v&0xff) / 255,
	}, nil
}

// FromColor converts a standard color.Color.
func FromColor(c color.Color) Color {
	nc := color.NRGBAModel.Convert(c).(color.NRGBA)
	return Color{
		R: float32(nc.R) / 255,
		G: float32(nc.G) / 255,
		B: float32(nc.B) / 255,
		A: float32(nc.A) / 255,
	}
}

// Vec4 returns the color as a vertex attribute.
func (c Color) Vec4() mgl32.Vec4 { return mgl32.Vec4{c.R, c.G, c.B, c.A} }

// WithAlpha returns a copy of c with alpha replaced.
func (c Color) WithAlpha(a float32) Color {
	c.A = a
	return c
}

// UnmarshalYAML accepts either a hex string or a list of 3 or 4 floats.
func (c *Color) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		parsed, err := Hex(node.Value)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}
	var parts []float32
	if err := node.Decode(&parts); err != nil {
		return fmt.Errorf("cozy: decode color: %w", err)
	}
	switch len(parts) {
	case 3:
		*c = RGB(parts[0], parts[1], parts[2])
	case 4:
		*c = RGBA(parts[0], parts[1], parts[2], parts[3])
	default:
		return fmt.Errorf("cozy: color needs 3 or 4 components, got %d", len(parts))
	}
	return nil
}

// MarshalYAML writes the color as a four-element list.
func (c Color) MarshalYAML() (any, error) {
	return []float32{c.R, c.G, c.B, c.A}, nil
}
