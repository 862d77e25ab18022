// Package colorpix defines the single pixel format this compositing core
// operates on: premultiplied 8-bit RGBA, plus the "over" blend formula used
// by order-dependent compositing.
package colorpix

// RGBA8 is a premultiplied-alpha color: R, G, B are already scaled by A/255.
type RGBA8 struct {
	R, G, B, A uint8
}

// Over composites top over bottom using the premultiplied-alpha formula
// out = top + bottom*(1 - alpha(top)), applied component-wise including
// alpha itself.
func Over(top, bottom RGBA8) RGBA8 {
	inv := 255 - uint32(top.A)
	return RGBA8{
		R: clamp8(uint32(top.R) + lerp(bottom.R, inv)),
		G: clamp8(uint32(top.G) + lerp(bottom.G, inv)),
		B: clamp8(uint32(top.B) + lerp(bottom.B, inv)),
		A: clamp8(uint32(top.A) + lerp(bottom.A, inv)),
	}
}

// lerp scales an 8-bit channel by weight/255, rounding to nearest.
func lerp(channel uint8, weight uint32) uint32 {
	return (uint32(channel)*weight + 127) / 255
}

func clamp8(v uint32) uint8 {
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Equal reports whether two colors have identical channel values.
func Equal(a, b RGBA8) bool {
	return a == b
}
