package cozy

import "fmt"

// ShaderID identifies a registered shader program. The zero value is the
// built-in sprite shader.
type ShaderID uint32

// ShaderInstanceID indexes the per-frame shader instance table.
// Zero means "no custom shader"; real instances start at 1.
type ShaderInstanceID uint32

// DefaultShaderInstance selects the built-in sprite pipeline.
const DefaultShaderInstance ShaderInstanceID = 0

// RenderTargetID identifies a render target. Zero is the window-backed
// default target and always exists.
type RenderTargetID uint32

// DefaultRenderTarget is the target that aliases the presentation surface.
const DefaultRenderTarget RenderTargetID = 0

func (id ShaderID) String() string         { return fmt.Sprintf("shader#%d", uint32(id)) }
func (id ShaderInstanceID) String() string { return fmt.Sprintf("instance#%d", uint32(id)) }
func (id RenderTargetID) String() string   { return fmt.Sprintf("target#%d", uint32(id)) }
