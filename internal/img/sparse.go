package img

import (
	"github.com/dstorm-vis/slcompose/internal/colorpix"
	"github.com/dstorm-vis/slcompose/internal/pixelbuf"
)

// RunLength is a (background, foreground) pixel-count pair; a sparse
// image's region is a concatenation of such runs.
type RunLength struct {
	Background int
	Foreground int
}

func (r RunLength) total() int { return r.Background + r.Foreground }
func (r RunLength) empty() bool { return r.Background == 0 && r.Foreground == 0 }

// appendRun appends r to out, merging it into the trailing run whenever
// the result is still one (background, foreground) pair: when the
// trailing run has no foreground yet, or when r has no background. Every
// run but the first then has background > 0 and every run but the last
// has foreground > 0, so a region of p pixels needs at most p/2+1 runs.
func appendRun(out *[]RunLength, r RunLength) {
	if r.empty() {
		return
	}
	if n := len(*out); n > 0 {
		last := &(*out)[n-1]
		if last.Foreground == 0 || r.Background == 0 {
			last.Background += r.Background
			last.Foreground += r.Foreground
			return
		}
	}
	*out = append(*out, r)
}

// runCursor walks a run-length sequence pixel by pixel, tracking how many
// foreground (active) pixels have been consumed so far, for indexing into
// a parallel dense active-pixel buffer. Mirrors ImageSparse's
// RunLengthIterator.
type runCursor struct {
	runs      []RunLength
	idx       int
	remaining RunLength
	consumed  int // cumulative foreground pixels consumed
}

func newRunCursor(runs []RunLength) *runCursor {
	c := &runCursor{runs: runs}
	c.loadNext()
	return c
}

func (c *runCursor) loadNext() {
	for c.remaining.empty() && c.idx < len(c.runs) {
		c.remaining = c.runs[c.idx]
		c.idx++
	}
}

func (c *runCursor) atEnd() bool {
	return c.remaining.empty() && c.idx >= len(c.runs)
}

func (c *runCursor) inBackground() bool { return c.remaining.Background > 0 }
func (c *runCursor) inForeground() bool { return !c.inBackground() && c.remaining.Foreground > 0 }

// consumeBackground consumes up to n background pixels from the current
// run (n must not exceed c.remaining.Background).
func (c *runCursor) consumeBackground(n int) {
	c.remaining.Background -= n
	c.loadNext()
}

// consumeForeground consumes up to n foreground pixels from the current
// run (n must not exceed c.remaining.Foreground), advancing the active-
// pixel cursor.
func (c *runCursor) consumeForeground(n int) {
	c.remaining.Foreground -= n
	c.consumed += n
	c.loadNext()
}

// advance skips numPixels pixels without copying, returning how many of
// them were foreground (active).
func (c *runCursor) advance(numPixels int) int {
	startConsumed := c.consumed
	for numPixels > 0 && !c.atEnd() {
		if c.inBackground() {
			take := min(numPixels, c.remaining.Background)
			c.consumeBackground(take)
			numPixels -= take
		} else {
			take := min(numPixels, c.remaining.Foreground)
			c.consumeForeground(take)
			numPixels -= take
		}
	}
	return c.consumed - startConsumed
}

// copyPixels copies numPixels pixels into out (as minimal runs), returning
// how many were foreground (active).
func (c *runCursor) copyPixels(numPixels int, out *[]RunLength) int {
	startConsumed := c.consumed
	for numPixels > 0 && !c.atEnd() {
		var r RunLength
		if c.inBackground() {
			r.Background = min(numPixels, c.remaining.Background)
			c.consumeBackground(r.Background)
		} else {
			r.Foreground = min(numPixels, c.remaining.Foreground)
			c.consumeForeground(r.Foreground)
		}
		appendRun(out, r)
		numPixels -= r.total()
	}
	return c.consumed - startConsumed
}

// splitRuns implements the run-length subregion copy of spec §4.1.1: given
// runs over [0,N) and a requested [a,b), returns the output run sequence
// for that subrange plus the corresponding active-pixel sub-range
// [activeA, activeB) to slice from the dense buffer.
func splitRuns(runs []RunLength, a, b int) (out []RunLength, activeA, activeB int) {
	c := newRunCursor(runs)
	activeA = c.advance(a)
	activeInB := c.copyPixels(b-a, &out)
	activeB = activeA + activeInB
	return out, activeA, activeB
}

// compressDense scans a dense pixel array against a background color and
// produces the equivalent run-length sequence plus the packed active
// (foreground) pixels, mirroring ImageSparseColorOnly::compress.
func compressDense(pixels []colorpix.RGBA8, bg colorpix.RGBA8) ([]RunLength, []colorpix.RGBA8) {
	var runs []RunLength
	active := make([]colorpix.RGBA8, 0, len(pixels))
	i := 0
	for i < len(pixels) {
		if colorpix.Equal(pixels[i], bg) {
			j := i
			for j < len(pixels) && colorpix.Equal(pixels[j], bg) {
				j++
			}
			appendRun(&runs, RunLength{Background: j - i})
			i = j
		} else {
			j := i
			for j < len(pixels) && !colorpix.Equal(pixels[j], bg) {
				j++
			}
			appendRun(&runs, RunLength{Foreground: j - i})
			active = append(active, pixels[i:j]...)
			i = j
		}
	}
	return runs, active
}

// compressDenseDepth is compressDense's color+depth counterpart: a pixel
// is background only if both its color and depth match the template.
func compressDenseDepth(colors []colorpix.RGBA8, depths []float32, bg Background) ([]RunLength, []colorpix.RGBA8, []float32) {
	isBg := func(i int) bool { return colorpix.Equal(colors[i], bg.Color) && depths[i] == bg.Depth }
	var runs []RunLength
	activeColor := make([]colorpix.RGBA8, 0, len(colors))
	activeDepth := make([]float32, 0, len(depths))
	i := 0
	for i < len(colors) {
		if isBg(i) {
			j := i
			for j < len(colors) && isBg(j) {
				j++
			}
			appendRun(&runs, RunLength{Background: j - i})
			i = j
		} else {
			j := i
			for j < len(colors) && !isBg(j) {
				j++
			}
			appendRun(&runs, RunLength{Foreground: j - i})
			activeColor = append(activeColor, colors[i:j]...)
			activeDepth = append(activeDepth, depths[i:j]...)
			i = j
		}
	}
	return runs, activeColor, activeDepth
}

// uncompressColor expands a run-length sequence back to a dense buffer
// using bg for background pixels.
func uncompressColor(runs []RunLength, active []colorpix.RGBA8, bg colorpix.RGBA8) []colorpix.RGBA8 {
	total := 0
	for _, r := range runs {
		total += r.total()
	}
	out := make([]colorpix.RGBA8, 0, total)
	ai := 0
	for _, r := range runs {
		for k := 0; k < r.Background; k++ {
			out = append(out, bg)
		}
		out = append(out, active[ai:ai+r.Foreground]...)
		ai += r.Foreground
	}
	return out
}

func uncompressColorDepth(runs []RunLength, activeColor []colorpix.RGBA8, activeDepth []float32, bg Background) ([]colorpix.RGBA8, []float32) {
	total := 0
	for _, r := range runs {
		total += r.total()
	}
	outColor := make([]colorpix.RGBA8, 0, total)
	outDepth := make([]float32, 0, total)
	ai := 0
	for _, r := range runs {
		for k := 0; k < r.Background; k++ {
			outColor = append(outColor, bg.Color)
			outDepth = append(outDepth, bg.Depth)
		}
		outColor = append(outColor, activeColor[ai:ai+r.Foreground]...)
		outDepth = append(outDepth, activeDepth[ai:ai+r.Foreground]...)
		ai += r.Foreground
	}
	return outColor, outDepth
}

// ---- SparseColorImage ----

// SparseColorImage is the color-only sparse variant: a run-length sequence
// plus a dense buffer of foreground pixels, shared under window via
// pixelbuf.Buffer.
type SparseColorImage struct {
	width, height int
	rb, re        int
	vp            Viewport
	runs          []RunLength
	active        *pixelbuf.Buffer[colorpix.RGBA8]
	activeOffset  int
	numActive     int
	background    colorpix.RGBA8
}

func newEmptySparseColor(width, height, rb, re int, vp Viewport, bg colorpix.RGBA8) *SparseColorImage {
	return &SparseColorImage{
		width: width, height: height, rb: rb, re: re, vp: vp,
		runs:       []RunLength{{Background: re - rb}},
		active:     pixelbuf.New(make([]colorpix.RGBA8, 0)),
		background: bg,
	}
}

// NewSparseColor wraps caller-supplied run lengths and active pixels.
func NewSparseColor(width, height, rb, re int, vp Viewport, runs []RunLength, active []colorpix.RGBA8, bg colorpix.RGBA8) *SparseColorImage {
	return &SparseColorImage{width: width, height: height, rb: rb, re: re, vp: vp, runs: runs, active: pixelbuf.New(active), numActive: len(active), background: bg}
}

// NewSparseColorFromDense compresses a dense color image against bg.
func NewSparseColorFromDense(d *DenseColorImage, bg colorpix.RGBA8) *SparseColorImage {
	runs, active := compressDense(d.Pixels(), bg)
	return NewSparseColor(d.width, d.height, d.rb, d.re, d.vp, runs, active, bg)
}

func (s *SparseColorImage) Width() int             { return s.width }
func (s *SparseColorImage) Height() int            { return s.height }
func (s *SparseColorImage) RegionBegin() int       { return s.rb }
func (s *SparseColorImage) RegionEnd() int         { return s.re }
func (s *SparseColorImage) NumberOfPixels() int    { return s.re - s.rb }
func (s *SparseColorImage) Viewport() Viewport     { return s.vp }
func (s *SparseColorImage) Variant() Variant       { return VariantSparseColor }
func (s *SparseColorImage) BlendIsOrderDependent() bool { return true }
func (s *SparseColorImage) Background() colorpix.RGBA8  { return s.background }
func (s *SparseColorImage) Runs() []RunLength      { return s.runs }

func (s *SparseColorImage) ActivePixels() []colorpix.RGBA8 {
	return s.active.View(s.activeOffset, s.activeOffset+s.numActive)
}

// Uncompress expands this image back to a dense representation.
func (s *SparseColorImage) Uncompress() *DenseColorImage {
	pixels := uncompressColor(s.runs, s.ActivePixels(), s.background)
	return NewDenseColor(s.width, s.height, s.rb, s.re, s.vp, pixels)
}

func (s *SparseColorImage) Blend(other Image) (Image, error) {
	bottom, ok := other.(*SparseColorImage)
	if !ok {
		return nil, newError(BlendTypeMismatch, "SparseColorImage.Blend: operand is not sparse color-only")
	}
	if !regionsIdentical(s, bottom) {
		return nil, newError(BlendRegionGap, "SparseColorImage.Blend: color-only blend requires identical regions")
	}
	top := newRunCursor(s.runs)
	bot := newRunCursor(bottom.runs)
	topActive := s.ActivePixels()
	botActive := bottom.ActivePixels()

	maxActive := min(s.numActive+bottom.numActive, s.re-s.rb)
	outActive := make([]colorpix.RGBA8, 0, maxActive)
	var outRuns []RunLength

	for !top.atEnd() || !bot.atEnd() {
		switch {
		case top.inBackground() && bot.inBackground():
			n := min(top.remaining.Background, bot.remaining.Background)
			appendRun(&outRuns, RunLength{Background: n})
			top.consumeBackground(n)
			bot.consumeBackground(n)
		case top.inBackground() && bot.inForeground():
			n := min(top.remaining.Background, bot.remaining.Foreground)
			appendRun(&outRuns, RunLength{Foreground: n})
			outActive = append(outActive, botActive[bot.consumed:bot.consumed+n]...)
			top.consumeBackground(n)
			bot.consumeForeground(n)
		case top.inForeground() && bot.inBackground():
			n := min(top.remaining.Foreground, bot.remaining.Background)
			appendRun(&outRuns, RunLength{Foreground: n})
			outActive = append(outActive, topActive[top.consumed:top.consumed+n]...)
			top.consumeForeground(n)
			bot.consumeBackground(n)
		default:
			n := min(top.remaining.Foreground, bot.remaining.Foreground)
			for k := 0; k < n; k++ {
				outActive = append(outActive, colorpix.Over(topActive[top.consumed+k], botActive[bot.consumed+k]))
			}
			appendRun(&outRuns, RunLength{Foreground: n})
			top.consumeForeground(n)
			bot.consumeForeground(n)
		}
	}
	bg := colorpix.Over(s.background, bottom.background)
	return NewSparseColor(s.width, s.height, s.rb, s.re, s.vp.Union(bottom.vp), outRuns, outActive, bg), nil
}

func (s *SparseColorImage) Window(a, b int) Image {
	runs, activeA, activeB := splitRuns(s.runs, a, b)
	return &SparseColorImage{
		width: s.width, height: s.height, rb: s.rb + a, re: s.rb + b, vp: s.vp,
		runs: runs, active: s.active.Retain(), activeOffset: s.activeOffset + activeA,
		numActive: activeB - activeA, background: s.background,
	}
}

func (s *SparseColorImage) CopySubrange(a, b int) Image {
	runs, activeA, activeB := splitRuns(s.runs, a, b)
	src := s.ActivePixels()[activeA:activeB]
	out := make([]colorpix.RGBA8, len(src))
	copy(out, src)
	return NewSparseColor(s.width, s.height, s.rb+a, s.rb+b, s.vp, runs, out, s.background)
}

func (s *SparseColorImage) ShallowCopy() Image {
	return &SparseColorImage{
		width: s.width, height: s.height, rb: s.rb, re: s.re, vp: s.vp,
		runs: s.runs, active: s.active.Retain(), activeOffset: s.activeOffset,
		numActive: s.numActive, background: s.background,
	}
}

func (s *SparseColorImage) Clear(bg Background) {
	s.runs = []RunLength{{Background: s.re - s.rb}}
	s.active = pixelbuf.New(make([]colorpix.RGBA8, 0))
	s.activeOffset = 0
	s.numActive = 0
	s.background = bg.Color
}

// ---- SparseColorDepthImage ----

// SparseColorDepthImage is the color+depth sparse variant. Blend is order
// independent; it requires identical background templates across
// operands (which holds whenever every participant clears to the same
// scene background before rendering) and returns a BlendTypeMismatch
// error when they differ.
type SparseColorDepthImage struct {
	width, height int
	rb, re        int
	vp            Viewport
	runs          []RunLength
	activeColor   *pixelbuf.Buffer[colorpix.RGBA8]
	activeDepth   *pixelbuf.Buffer[float32]
	activeOffset  int
	numActive     int
	background    Background
}

func newEmptySparseColorDepth(width, height, rb, re int, vp Viewport, bg Background) *SparseColorDepthImage {
	return &SparseColorDepthImage{
		width: width, height: height, rb: rb, re: re, vp: vp,
		runs:        []RunLength{{Background: re - rb}},
		activeColor: pixelbuf.New(make([]colorpix.RGBA8, 0)),
		activeDepth: pixelbuf.New(make([]float32, 0)),
		background:  bg,
	}
}

// NewSparseColorDepth wraps caller-supplied run lengths and active pixels.
func NewSparseColorDepth(width, height, rb, re int, vp Viewport, runs []RunLength, activeColor []colorpix.RGBA8, activeDepth []float32, bg Background) *SparseColorDepthImage {
	return &SparseColorDepthImage{
		width: width, height: height, rb: rb, re: re, vp: vp, runs: runs,
		activeColor: pixelbuf.New(activeColor), activeDepth: pixelbuf.New(activeDepth),
		numActive: len(activeColor), background: bg,
	}
}

// NewSparseColorDepthFromDense compresses a dense color+depth image against bg.
func NewSparseColorDepthFromDense(d *DenseColorDepthImage, bg Background) *SparseColorDepthImage {
	runs, activeColor, activeDepth := compressDenseDepth(d.Colors(), d.Depths(), bg)
	return NewSparseColorDepth(d.width, d.height, d.rb, d.re, d.vp, runs, activeColor, activeDepth, bg)
}

func (s *SparseColorDepthImage) Width() int             { return s.width }
func (s *SparseColorDepthImage) Height() int            { return s.height }
func (s *SparseColorDepthImage) RegionBegin() int       { return s.rb }
func (s *SparseColorDepthImage) RegionEnd() int         { return s.re }
func (s *SparseColorDepthImage) NumberOfPixels() int    { return s.re - s.rb }
func (s *SparseColorDepthImage) Viewport() Viewport     { return s.vp }
func (s *SparseColorDepthImage) Variant() Variant       { return VariantSparseColorDepth }
func (s *SparseColorDepthImage) BlendIsOrderDependent() bool { return false }
func (s *SparseColorDepthImage) Background() Background { return s.background }
func (s *SparseColorDepthImage) Runs() []RunLength      { return s.runs }

func (s *SparseColorDepthImage) ActiveColors() []colorpix.RGBA8 {
	return s.activeColor.View(s.activeOffset, s.activeOffset+s.numActive)
}

func (s *SparseColorDepthImage) ActiveDepths() []float32 {
	return s.activeDepth.View(s.activeOffset, s.activeOffset+s.numActive)
}

// Uncompress expands this image back to a dense representation.
func (s *SparseColorDepthImage) Uncompress() *DenseColorDepthImage {
	colors, depths := uncompressColorDepth(s.runs, s.ActiveColors(), s.ActiveDepths(), s.background)
	return NewDenseColorDepth(s.width, s.height, s.rb, s.re, s.vp, colors, depths)
}

func (s *SparseColorDepthImage) Blend(other Image) (Image, error) {
	bottom, ok := other.(*SparseColorDepthImage)
	if !ok {
		return nil, newError(BlendTypeMismatch, "SparseColorDepthImage.Blend: operand is not sparse color+depth")
	}
	if regionsGap(s, bottom) {
		return nil, newError(BlendRegionGap, "SparseColorDepthImage.Blend: regions neither overlap nor touch")
	}
	if s.background != bottom.background {
		return nil, newError(BlendTypeMismatch, "SparseColorDepthImage.Blend: mismatched background templates")
	}
	if !regionsIdentical(s, bottom) {
		// Uncommon path (ragged regions): fall back through the dense
		// union blend, then recompress against the shared background.
		dense, err := s.Uncompress().Blend(bottom.Uncompress())
		if err != nil {
			return nil, err
		}
		return NewSparseColorDepthFromDense(dense.(*DenseColorDepthImage), s.background), nil
	}

	top := newRunCursor(s.runs)
	bot := newRunCursor(bottom.runs)
	topColor, topDepth := s.ActiveColors(), s.ActiveDepths()
	botColor, botDepth := bottom.ActiveColors(), bottom.ActiveDepths()

	maxActive := min(s.numActive+bottom.numActive, s.re-s.rb)
	outColor := make([]colorpix.RGBA8, 0, maxActive)
	outDepth := make([]float32, 0, maxActive)
	var outRuns []RunLength

	nearer := func(tc colorpix.RGBA8, td float32, bc colorpix.RGBA8, bd float32) (colorpix.RGBA8, float32) {
		if td <= bd {
			return tc, td
		}
		return bc, bd
	}

	for !top.atEnd() || !bot.atEnd() {
		switch {
		case top.inBackground() && bot.inBackground():
			n := min(top.remaining.Background, bot.remaining.Background)
			appendRun(&outRuns, RunLength{Background: n})
			top.consumeBackground(n)
			bot.consumeBackground(n)
		case top.inBackground() && bot.inForeground():
			// Compare the (shared) background template's depth against
			// each bottom foreground pixel's depth, per pixel.
			n := min(top.remaining.Background, bot.remaining.Foreground)
			for k := 0; k < n; k++ {
				fgColor, fgDepth := botColor[bot.consumed+k], botDepth[bot.consumed+k]
				if s.background.Depth <= fgDepth {
					appendRun(&outRuns, RunLength{Background: 1})
				} else {
					appendRun(&outRuns, RunLength{Foreground: 1})
					outColor = append(outColor, fgColor)
					outDepth = append(outDepth, fgDepth)
				}
			}
			top.consumeBackground(n)
			bot.consumeForeground(n)
		case top.inForeground() && bot.inBackground():
			n := min(top.remaining.Foreground, bot.remaining.Background)
			for k := 0; k < n; k++ {
				fgColor, fgDepth := topColor[top.consumed+k], topDepth[top.consumed+k]
				if fgDepth <= s.background.Depth {
					appendRun(&outRuns, RunLength{Foreground: 1})
					outColor = append(outColor, fgColor)
					outDepth = append(outDepth, fgDepth)
				} else {
					appendRun(&outRuns, RunLength{Background: 1})
				}
			}
			top.consumeForeground(n)
			bot.consumeBackground(n)
		default:
			n := min(top.remaining.Foreground, bot.remaining.Foreground)
			for k := 0; k < n; k++ {
				c, dep := nearer(topColor[top.consumed+k], topDepth[top.consumed+k], botColor[bot.consumed+k], botDepth[bot.consumed+k])
				outColor = append(outColor, c)
				outDepth = append(outDepth, dep)
			}
			appendRun(&outRuns, RunLength{Foreground: n})
			top.consumeForeground(n)
			bot.consumeForeground(n)
		}
	}
	return NewSparseColorDepth(s.width, s.height, s.rb, s.re, s.vp.Union(bottom.vp), outRuns, outColor, outDepth, s.background), nil
}

func (s *SparseColorDepthImage) Window(a, b int) Image {
	runs, activeA, activeB := splitRuns(s.runs, a, b)
	return &SparseColorDepthImage{
		width: s.width, height: s.height, rb: s.rb + a, re: s.rb + b, vp: s.vp,
		runs: runs, activeColor: s.activeColor.Retain(), activeDepth: s.activeDepth.Retain(),
		activeOffset: s.activeOffset + activeA, numActive: activeB - activeA, background: s.background,
	}
}

func (s *SparseColorDepthImage) CopySubrange(a, b int) Image {
	runs, activeA, activeB := splitRuns(s.runs, a, b)
	srcColor := s.ActiveColors()[activeA:activeB]
	srcDepth := s.ActiveDepths()[activeA:activeB]
	outColor := make([]colorpix.RGBA8, len(srcColor))
	outDepth := make([]float32, len(srcDepth))
	copy(outColor, srcColor)
	copy(outDepth, srcDepth)
	return NewSparseColorDepth(s.width, s.height, s.rb+a, s.rb+b, s.vp, runs, outColor, outDepth, s.background)
}

func (s *SparseColorDepthImage) ShallowCopy() Image {
	return &SparseColorDepthImage{
		width: s.width, height: s.height, rb: s.rb, re: s.re, vp: s.vp,
		runs: s.runs, activeColor: s.activeColor.Retain(), activeDepth: s.activeDepth.Retain(),
		activeOffset: s.activeOffset, numActive: s.numActive, background: s.background,
	}
}

func (s *SparseColorDepthImage) Clear(bg Background) {
	s.runs = []RunLength{{Background: s.re - s.rb}}
	s.activeColor = pixelbuf.New(make([]colorpix.RGBA8, 0))
	s.activeDepth = pixelbuf.New(make([]float32, 0))
	s.activeOffset = 0
	s.numActive = 0
	s.background = bg
}
