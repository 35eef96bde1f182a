//go:build !nogpu

package gpu

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/cozy"
)

// DrawKind tells how a pass issued its draw.
type DrawKind uint8

const (
	// DrawIndexed is a DrawIndexed call over the group's index range.
	DrawIndexed DrawKind = iota

	// DrawVertices is a non-indexed Draw call.
	DrawVertices
)

// String returns "indexed" or "vertices".
func (k DrawKind) String() string {
	if k == DrawIndexed {
		return "indexed"
	}
	return "vertices"
}

// PassStat describes one render pass of a frame.
type PassStat struct {
	Target    cozy.RenderTargetID
	ColorLoad gputypes.LoadOp
	DepthLoad gputypes.LoadOp // zero when the pass has no depth attachment
	Pipeline  string          // pipeline key label, empty for the resolve pass

	Kind  DrawKind
	Count uint32 // indices or vertices drawn

	// Resolve marks the dedicated MSAA resolve pass of the default target.
	Resolve bool

	// Texture is the handle bound at group 0 after error fallback.
	Texture cozy.TextureHandle
}

// FrameStats summarizes the last rendered frame.
type FrameStats struct {
	Frame            uint64
	Groups           int
	Passes           []PassStat
	PipelinesCreated int
	PipelinesCached  int
	VertexBytes      uint64
	IndexBytes       uint64

	// Skipped is set when the surface was unavailable and nothing was drawn.
	Skipped bool
}

// DrawCalls returns the number of passes that drew something.
func (s FrameStats) DrawCalls() int {
	n := 0
	for _, p := range s.Passes {
		if !p.Resolve {
			n++
		}
	}
	return n
}
