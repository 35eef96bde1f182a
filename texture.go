package cozy

import (
	"cmp"
	"fmt"
	"hash/fnv"
)

// TextureKind discriminates the variants of a TextureHandle.
type TextureKind uint8

const (
	// TextureKindPath is a handle derived from an asset path.
	TextureKindPath TextureKind = iota

	// TextureKindRaw is a caller-chosen numeric handle.
	TextureKindRaw

	// TextureKindTarget refers to the resolve attachment of a render target.
	TextureKindTarget
)

// TextureHandle names a texture without owning it. Handles are comparable,
// so they can key maps, and totally ordered through Compare.
type TextureHandle struct {
	Kind  TextureKind
	Value uint64
}

// Built-in texture names registered by every renderer.
const (
	// WhiteTextureName is the 1x1 white texture used by untextured meshes.
	WhiteTextureName = "1px"

	// ErrorTextureName is substituted for handles that are not loaded.
	ErrorTextureName = "error"
)

// TexturePath returns the handle for a path-loaded texture. The handle is
// the 64-bit FNV-1a hash of the path.
func TexturePath(path string) TextureHandle {
	h := fnv.New64a()
	_, _ = h.Write([]byte(path))
	return TextureHandle{Kind: TextureKindPath, Value: h.Sum64()}
}

// TextureRaw returns a raw numeric texture handle.
func TextureRaw(id uint64) TextureHandle {
	return TextureHandle{Kind: TextureKindRaw, Value: id}
}

// TextureOfTarget returns a handle that samples the given render target.
func TextureOfTarget(id RenderTargetID) TextureHandle {
	return TextureHandle{Kind: TextureKindTarget, Value: uint64(id)}
}

// WhiteTexture returns the handle of the built-in white texture.
func WhiteTexture() TextureHandle { return TexturePath(WhiteTextureName) }

// ErrorTexture returns the handle of the built-in error texture.
func ErrorTexture() TextureHandle { return TexturePath(ErrorTextureName) }

// Target reports the render target a TextureKindTarget handle refers to.
func (t TextureHandle) Target() (RenderTargetID, bool) {
	if t.Kind != TextureKindTarget {
		return 0, false
	}
	return RenderTargetID(t.Value), true //nolint:gosec // built from a RenderTargetID
}

// Compare orders handles by kind, then value.
func (t TextureHandle) Compare(o TextureHandle) int {
	if c := cmp.Compare(t.Kind, o.Kind); c != 0 {
		return c
	}
	return cmp.Compare(t.Value, o.Value)
}

// String returns a short description of the handle.
func (t TextureHandle) String() string {
	switch t.Kind {
	case TextureKindPath:
		return fmt.Sprintf("path(%016x)", t.Value)
	case TextureKindRaw:
		return fmt.Sprintf("raw(%d)", t.Value)
	case TextureKindTarget:
		return fmt.Sprintf("target(%d)", t.Value)
	default:
		return "invalid"
	}
}
