//go:build !nogpu

package gpu

import (
	_ "embed"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/gogpu/cozy"
	"github.com/gogpu/naga"
)

// Embedded WGSL shader sources.

//go:embed shaders/prelude.wgsl
var preludeShaderSource string

//go:embed shaders/sprite.wgsl
var spriteShaderSource string

// userUniformGroup is the bind group index of user shader uniforms.
const userUniformGroup = 2

// timeUniform is declared in every user shader. The renderer keeps its
// default equal to the elapsed game time.
const timeUniform = "time"

// uniformDecl matches `var<uniform> name: type;` with an optional
// `= default` before the semicolon.
var uniformDecl = regexp.MustCompile(`var\s*<\s*uniform\s*>\s+([A-Za-z_][A-Za-z0-9_]*)\s*:\s*([A-Za-z0-9_<>]+)\s*(?:=\s*([^;]*))?;`)

var (
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineComment  = regexp.MustCompile(`//[^\n]*`)
)

// stripComments removes WGSL comments. Block comments become a space so
// the tokens around them stay apart.
func stripComments(src string) string {
	return lineComment.ReplaceAllString(blockComment.ReplaceAllString(src, " "), "")
}

// uniformBinding is the slot a uniform occupies in group 2.
type uniformBinding struct {
	name    string
	binding uint32
	kind    cozy.UniformKind
}

// parsedShader is the CPU side of a user shader.
type parsedShader struct {
	defs     map[string]cozy.UniformDef
	bindings []uniformBinding // sorted by name, binding == index
	source   string           // complete WGSL module
}

// parseUniformKind maps a declared WGSL type to a uniform kind.
func parseUniformKind(typ string) (cozy.UniformKind, error) {
	switch typ {
	case "f32":
		return cozy.UniformF32, nil
	case "vec2", "vec2f", "vec2<f32>":
		return cozy.UniformVec2, nil
	case "vec3", "vec3f", "vec3<f32>":
		return cozy.UniformVec3, nil
	case "vec4", "vec4f", "vec4<f32>":
		return cozy.UniformVec4, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedUniform, typ)
	}
}

// parseUniformDefault parses "0.5", "1, 2" or "vec2<f32>(1.0, 2.0)".
func parseUniformDefault(kind cozy.UniformKind, text string) (cozy.Uniform, error) {
	text = strings.TrimSpace(text)
	if open := strings.IndexByte(text, '('); open >= 0 && strings.HasSuffix(text, ")") {
		text = text[open+1 : len(text)-1]
	}
	parts := strings.Split(text, ",")
	if len(parts) != kind.Components() {
		return cozy.Uniform{}, fmt.Errorf("%w: %q needs %d components", ErrInvalidUniformDefault, text, kind.Components())
	}
	u := cozy.Uniform{Kind: kind}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return cozy.Uniform{}, fmt.Errorf("%w: %q: %w", ErrInvalidUniformDefault, p, err)
		}
		u.V[i] = float32(v)
	}
	return u, nil
}

// parseUniforms extracts uniform declarations from a fragment source and
// returns the definitions along with the source stripped of them and of
// comments. Declarations inside comments are ignored.
func parseUniforms(fragment string) (map[string]cozy.UniformDef, string, error) {
	fragment = stripComments(fragment)
	defs := make(map[string]cozy.UniformDef)
	for _, m := range uniformDecl.FindAllStringSubmatch(fragment, -1) {
		name, typ, def := m[1], m[2], m[3]
		kind, err := parseUniformKind(typ)
		if err != nil {
			return nil, "", fmt.Errorf("uniform %s: %w", name, err)
		}
		d := cozy.UniformDef{Kind: kind}
		if strings.TrimSpace(def) != "" {
			u, err := parseUniformDefault(kind, def)
			if err != nil {
				return nil, "", fmt.Errorf("uniform %s: %w", name, err)
			}
			d.Default = &u
		}
		defs[name] = d
	}
	if _, ok := defs[timeUniform]; !ok {
		zero := cozy.F32(0)
		defs[timeUniform] = cozy.UniformDef{Kind: cozy.UniformF32, Default: &zero}
	}
	return defs, uniformDecl.ReplaceAllString(fragment, ""), nil
}

// assignBindings numbers uniforms in lexicographic order so the layout is
// stable for a given set of names.
func assignBindings(defs map[string]cozy.UniformDef) []uniformBinding {
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	slices.Sort(names)
	out := make([]uniformBinding, len(names))
	for i, name := range names {
		out[i] = uniformBinding{name: name, binding: uint32(i), kind: defs[name].Kind} //nolint:gosec // few uniforms
	}
	return out
}

// buildShaderSource assembles the full module: group-2 uniform
// declarations, the engine prelude, then the user fragment.
func buildShaderSource(fragment string, bindings []uniformBinding) string {
	var b strings.Builder
	for _, u := range bindings {
		fmt.Fprintf(&b, "@group(%d) @binding(%d)\nvar<uniform> %s: %s;\n", userUniformGroup, u.binding, u.name, u.kind.WGSL())
	}
	b.WriteString(preludeShaderSource)
	b.WriteString("\n")
	b.WriteString(fragment)
	return b.String()
}

// parseShader turns a user fragment into a complete shader module.
func parseShader(fragment string) (*parsedShader, error) {
	fragment = stripComments(fragment)
	if strings.Contains(fragment, "@vertex") {
		return nil, ErrVertexStageInSource
	}
	defs, cleaned, err := parseUniforms(fragment)
	if err != nil {
		return nil, err
	}
	bindings := assignBindings(defs)
	return &parsedShader{
		defs:     defs,
		bindings: bindings,
		source:   buildShaderSource(cleaned, bindings),
	}, nil
}

// spriteSource is the built-in sprite shader module.
func spriteSource() string {
	return preludeShaderSource + "\n" + spriteShaderSource
}

// validateWGSL compiles src with naga and discards the output.
func validateWGSL(src string) error {
	if _, err := naga.Compile(src); err != nil {
		return fmt.Errorf("compile shader: %w", err)
	}
	return nil
}
