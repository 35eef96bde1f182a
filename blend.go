package cozy

// BlendMode selects how a mesh group is composited onto its target.
type BlendMode uint8

const (
	// BlendNone uses the default straight alpha blend state.
	BlendNone BlendMode = iota

	// BlendAlpha is standard src-alpha / one-minus-src-alpha blending.
	BlendAlpha

	// BlendAdditive adds source color to the destination (one/one, add).
	BlendAdditive
)

// String returns the blend mode name.
func (b BlendMode) String() string {
	switch b {
	case BlendNone:
		return "None"
	case BlendAlpha:
		return "Alpha"
	case BlendAdditive:
		return "Additive"
	default:
		return "Unknown"
	}
}
