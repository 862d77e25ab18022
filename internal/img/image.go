// Package img implements the compositing core's image data model: a
// sealed set of four variants over {color-only, color+depth} x {dense,
// run-length-sparse}, windowing/aliasing without copying, and the blend
// contract each scheduler relies on.
package img

import "github.com/dstorm-vis/slcompose/internal/colorpix"

// Viewport is a 2-D sub-rectangle hint over the frame, carried alongside
// an Image's 1-D pixel region.
type Viewport struct {
	MinX, MinY, MaxX, MaxY int
}

// Union returns the bounding box of v and other.
func (v Viewport) Union(other Viewport) Viewport {
	return Viewport{
		MinX: min(v.MinX, other.MinX),
		MinY: min(v.MinY, other.MinY),
		MaxX: max(v.MaxX, other.MaxX),
		MaxY: max(v.MaxY, other.MaxY),
	}
}

// Background is the template used by clear() and by sparse images for
// pixels outside any run-length's foreground span.
type Background struct {
	Color colorpix.RGBA8
	Depth float32
}

// Variant identifies one of the four closed Image implementations.
type Variant int

const (
	VariantDenseColor Variant = iota
	VariantDenseColorDepth
	VariantSparseColor
	VariantSparseColorDepth
)

func (v Variant) String() string {
	switch v {
	case VariantDenseColor:
		return "DenseColor"
	case VariantDenseColorDepth:
		return "DenseColorDepth"
	case VariantSparseColor:
		return "SparseColor"
	case VariantSparseColorDepth:
		return "SparseColorDepth"
	default:
		return "Unknown"
	}
}

// HasDepth reports whether a variant carries per-pixel depth.
func (v Variant) HasDepth() bool {
	return v == VariantDenseColorDepth || v == VariantSparseColorDepth
}

// Sparse reports whether a variant uses run-length storage.
func (v Variant) Sparse() bool {
	return v == VariantSparseColor || v == VariantSparseColorDepth
}

// Image is the sealed interface implemented by exactly the four variants
// in this package. Schedulers operate only through this interface; the
// concrete type is recovered internally (via Variant) only where the
// blend/run-length algorithms require it.
type Image interface {
	Width() int
	Height() int
	RegionBegin() int
	RegionEnd() int
	NumberOfPixels() int
	Viewport() Viewport
	Variant() Variant

	// BlendIsOrderDependent reports whether the receiver's blend result
	// depends on which operand is "top". True for color-only images.
	BlendIsOrderDependent() bool

	// Blend composites the receiver (as "top") over other (as "bottom").
	// Both must share the same Variant.
	Blend(other Image) (Image, error)

	// Window returns a read-only view of pixels [a,b) of the receiver's
	// own region, sharing underlying storage.
	Window(a, b int) Image

	// CopySubrange returns a freshly allocated, deep copy of pixels
	// [a,b) of the receiver's own region.
	CopySubrange(a, b int) Image

	// ShallowCopy returns an independent handle sharing the receiver's
	// storage under shared ownership.
	ShallowCopy() Image

	// Clear resets every pixel (and, for sparse images, the run-length
	// sequence and background template) to bg.
	Clear(bg Background)
}

// CreateNew allocates a fresh image of the given variant, shape, and
// region, cleared to bg.
func CreateNew(variant Variant, width, height, regionBegin, regionEnd int, vp Viewport, bg Background) Image {
	switch variant {
	case VariantDenseColor:
		return newDenseColor(width, height, regionBegin, regionEnd, vp, bg.Color)
	case VariantDenseColorDepth:
		return newDenseColorDepth(width, height, regionBegin, regionEnd, vp, bg)
	case VariantSparseColor:
		return newEmptySparseColor(width, height, regionBegin, regionEnd, vp, bg.Color)
	case VariantSparseColorDepth:
		return newEmptySparseColorDepth(width, height, regionBegin, regionEnd, vp, bg)
	default:
		panic("img: unknown variant")
	}
}

func regionsIdentical(a, b Image) bool {
	return a.RegionBegin() == b.RegionBegin() && a.RegionEnd() == b.RegionEnd()
}

// regionsGap reports whether a and b's regions are neither overlapping nor
// adjacent, i.e. there exist pixels strictly between them covered by
// neither.
func regionsGap(a, b Image) bool {
	return a.RegionEnd() < b.RegionBegin() || b.RegionEnd() < a.RegionBegin()
}
