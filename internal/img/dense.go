package img

import (
	"github.com/dstorm-vis/slcompose/internal/colorpix"
	"github.com/dstorm-vis/slcompose/internal/pixelbuf"
)

// DenseColorImage is the color-only, dense variant. Blend is order
// dependent ("over" compositing) and requires identical regions.
type DenseColorImage struct {
	width, height int
	rb, re        int
	vp            Viewport
	buf           *pixelbuf.Buffer[colorpix.RGBA8]
	bufBase       int // global pixel index corresponding to buf[0]
}

func newDenseColor(width, height, rb, re int, vp Viewport, bg colorpix.RGBA8) *DenseColorImage {
	data := make([]colorpix.RGBA8, re-rb)
	for i := range data {
		data[i] = bg
	}
	return &DenseColorImage{width: width, height: height, rb: rb, re: re, vp: vp, buf: pixelbuf.New(data), bufBase: rb}
}

// NewDenseColor wraps caller-supplied pixel data directly (used by wire
// decoding and the simulation painter). len(pixels) must equal re-rb.
func NewDenseColor(width, height, rb, re int, vp Viewport, pixels []colorpix.RGBA8) *DenseColorImage {
	return &DenseColorImage{width: width, height: height, rb: rb, re: re, vp: vp, buf: pixelbuf.New(pixels), bufBase: rb}
}

func (d *DenseColorImage) Width() int             { return d.width }
func (d *DenseColorImage) Height() int            { return d.height }
func (d *DenseColorImage) RegionBegin() int       { return d.rb }
func (d *DenseColorImage) RegionEnd() int         { return d.re }
func (d *DenseColorImage) NumberOfPixels() int    { return d.re - d.rb }
func (d *DenseColorImage) Viewport() Viewport     { return d.vp }
func (d *DenseColorImage) Variant() Variant       { return VariantDenseColor }
func (d *DenseColorImage) BlendIsOrderDependent() bool { return true }

func (d *DenseColorImage) Pixels() []colorpix.RGBA8 {
	return d.buf.View(d.rb-d.bufBase, d.re-d.bufBase)
}

func (d *DenseColorImage) Blend(other Image) (Image, error) {
	bottom, ok := other.(*DenseColorImage)
	if !ok {
		return nil, newError(BlendTypeMismatch, "DenseColorImage.Blend: operand is not dense color-only")
	}
	if !regionsIdentical(d, bottom) {
		return nil, newError(BlendRegionGap, "DenseColorImage.Blend: color-only blend requires identical regions")
	}
	top := d.Pixels()
	bot := bottom.Pixels()
	out := make([]colorpix.RGBA8, len(top))
	for i := range out {
		out[i] = colorpix.Over(top[i], bot[i])
	}
	return NewDenseColor(d.width, d.height, d.rb, d.re, d.vp.Union(bottom.vp), out), nil
}

func (d *DenseColorImage) Window(a, b int) Image {
	return &DenseColorImage{width: d.width, height: d.height, rb: d.rb + a, re: d.rb + b, vp: d.vp, buf: d.buf.Retain(), bufBase: d.bufBase}
}

func (d *DenseColorImage) CopySubrange(a, b int) Image {
	src := d.Pixels()[a:b]
	out := make([]colorpix.RGBA8, len(src))
	copy(out, src)
	return NewDenseColor(d.width, d.height, d.rb+a, d.rb+b, d.vp, out)
}

func (d *DenseColorImage) ShallowCopy() Image {
	return &DenseColorImage{width: d.width, height: d.height, rb: d.rb, re: d.re, vp: d.vp, buf: d.buf.Retain(), bufBase: d.bufBase}
}

func (d *DenseColorImage) Clear(bg Background) {
	dst := d.buf.MutableView(d.rb-d.bufBase, d.re-d.bufBase)
	for i := range dst {
		dst[i] = bg.Color
	}
}

// DenseColorDepthImage is the color+depth, dense variant. Blend is order
// independent (nearest depth wins) and permits the union of non-identical
// but overlapping-or-adjacent regions.
type DenseColorDepthImage struct {
	width, height int
	rb, re        int
	vp            Viewport
	colorBuf      *pixelbuf.Buffer[colorpix.RGBA8]
	depthBuf      *pixelbuf.Buffer[float32]
	bufBase       int
}

func newDenseColorDepth(width, height, rb, re int, vp Viewport, bg Background) *DenseColorDepthImage {
	colors := make([]colorpix.RGBA8, re-rb)
	depths := make([]float32, re-rb)
	for i := range colors {
		colors[i] = bg.Color
		depths[i] = bg.Depth
	}
	return &DenseColorDepthImage{width: width, height: height, rb: rb, re: re, vp: vp, colorBuf: pixelbuf.New(colors), depthBuf: pixelbuf.New(depths), bufBase: rb}
}

// NewDenseColorDepth wraps caller-supplied color and depth data directly.
func NewDenseColorDepth(width, height, rb, re int, vp Viewport, colors []colorpix.RGBA8, depths []float32) *DenseColorDepthImage {
	return &DenseColorDepthImage{width: width, height: height, rb: rb, re: re, vp: vp, colorBuf: pixelbuf.New(colors), depthBuf: pixelbuf.New(depths), bufBase: rb}
}

func (d *DenseColorDepthImage) Width() int             { return d.width }
func (d *DenseColorDepthImage) Height() int            { return d.height }
func (d *DenseColorDepthImage) RegionBegin() int       { return d.rb }
func (d *DenseColorDepthImage) RegionEnd() int         { return d.re }
func (d *DenseColorDepthImage) NumberOfPixels() int    { return d.re - d.rb }
func (d *DenseColorDepthImage) Viewport() Viewport     { return d.vp }
func (d *DenseColorDepthImage) Variant() Variant       { return VariantDenseColorDepth }
func (d *DenseColorDepthImage) BlendIsOrderDependent() bool { return false }

func (d *DenseColorDepthImage) Colors() []colorpix.RGBA8 {
	return d.colorBuf.View(d.rb-d.bufBase, d.re-d.bufBase)
}

func (d *DenseColorDepthImage) Depths() []float32 {
	return d.depthBuf.View(d.rb-d.bufBase, d.re-d.bufBase)
}

func (d *DenseColorDepthImage) Blend(other Image) (Image, error) {
	bottom, ok := other.(*DenseColorDepthImage)
	if !ok {
		return nil, newError(BlendTypeMismatch, "DenseColorDepthImage.Blend: operand is not dense color+depth")
	}
	if regionsGap(d, bottom) {
		return nil, newError(BlendRegionGap, "DenseColorDepthImage.Blend: regions neither overlap nor touch")
	}
	newRb := min(d.rb, bottom.rb)
	newRe := max(d.re, bottom.re)
	outColor := make([]colorpix.RGBA8, newRe-newRb)
	outDepth := make([]float32, newRe-newRb)

	topColor, topDepth := d.Colors(), d.Depths()
	botColor, botDepth := bottom.Colors(), bottom.Depths()

	for p := newRb; p < newRe; p++ {
		inTop := p >= d.rb && p < d.re
		inBot := p >= bottom.rb && p < bottom.re
		idx := p - newRb
		switch {
		case inTop && inBot:
			ti, bi := p-d.rb, p-bottom.rb
			if topDepth[ti] <= botDepth[bi] {
				outColor[idx], outDepth[idx] = topColor[ti], topDepth[ti]
			} else {
				outColor[idx], outDepth[idx] = botColor[bi], botDepth[bi]
			}
		case inTop:
			ti := p - d.rb
			outColor[idx], outDepth[idx] = topColor[ti], topDepth[ti]
		case inBot:
			bi := p - bottom.rb
			outColor[idx], outDepth[idx] = botColor[bi], botDepth[bi]
		}
	}
	return NewDenseColorDepth(d.width, d.height, newRb, newRe, d.vp.Union(bottom.vp), outColor, outDepth), nil
}

func (d *DenseColorDepthImage) Window(a, b int) Image {
	return &DenseColorDepthImage{width: d.width, height: d.height, rb: d.rb + a, re: d.rb + b, vp: d.vp, colorBuf: d.colorBuf.Retain(), depthBuf: d.depthBuf.Retain(), bufBase: d.bufBase}
}

func (d *DenseColorDepthImage) CopySubrange(a, b int) Image {
	srcColor := d.Colors()[a:b]
	srcDepth := d.Depths()[a:b]
	outColor := make([]colorpix.RGBA8, len(srcColor))
	outDepth := make([]float32, len(srcDepth))
	copy(outColor, srcColor)
	copy(outDepth, srcDepth)
	return NewDenseColorDepth(d.width, d.height, d.rb+a, d.rb+b, d.vp, outColor, outDepth)
}

func (d *DenseColorDepthImage) ShallowCopy() Image {
	return &DenseColorDepthImage{width: d.width, height: d.height, rb: d.rb, re: d.re, vp: d.vp, colorBuf: d.colorBuf.Retain(), depthBuf: d.depthBuf.Retain(), bufBase: d.bufBase}
}

func (d *DenseColorDepthImage) Clear(bg Background) {
	dstColor := d.colorBuf.MutableView(d.rb-d.bufBase, d.re-d.bufBase)
	dstDepth := d.depthBuf.MutableView(d.rb-d.bufBase, d.re-d.bufBase)
	for i := range dstColor {
		dstColor[i] = bg.Color
		dstDepth[i] = bg.Depth
	}
}
