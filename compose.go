// Package compose is the public surface of the sort-last compositing
// core: the Image data model, process groups, the transfer fabric, and
// every scheduler family, re-exported from their internal packages so a
// driver only ever imports this one package. Mirrors agg_go's own
// root-package style of re-exporting its core types for callers who
// don't need the internal package layout.
package compose

import (
	"github.com/dstorm-vis/slcompose/internal/colorpix"
	"github.com/dstorm-vis/slcompose/internal/fabric"
	"github.com/dstorm-vis/slcompose/internal/group"
	"github.com/dstorm-vis/slcompose/internal/img"
	"github.com/dstorm-vis/slcompose/internal/scheduler/binaryswap"
	"github.com/dstorm-vis/slcompose/internal/scheduler/directsend"
	"github.com/dstorm-vis/slcompose/internal/scheduler/radixk"
	"github.com/dstorm-vis/slcompose/internal/scheduler/swap23"
	"github.com/dstorm-vis/slcompose/internal/tree"
	"github.com/dstorm-vis/slcompose/internal/wire"
)

// Image is the sealed interface every compositing operation produces
// and consumes.
type Image = img.Image

// Color is a premultiplied-alpha RGBA pixel.
type Color = colorpix.RGBA8

// Viewport is a 2-D sub-rectangle hint carried alongside an Image's
// 1-D pixel region.
type Viewport = img.Viewport

// Background is the clear/template color (and, for depth variants,
// depth) used outside any sparse image's foreground runs.
type Background = img.Background

// Variant identifies one of the four Image implementations.
type Variant = img.Variant

const (
	VariantDenseColor      = img.VariantDenseColor
	VariantDenseColorDepth = img.VariantDenseColorDepth
	VariantSparseColor     = img.VariantSparseColor
	VariantSparseColorDepth = img.VariantSparseColorDepth
)

// NewImage allocates a fresh image of the given variant, shape, and
// region, cleared to bg.
func NewImage(variant Variant, width, height, regionBegin, regionEnd int, vp Viewport, bg Background) Image {
	return img.CreateNew(variant, width, height, regionBegin, regionEnd, vp, bg)
}

// NewDenseColor wraps caller-supplied pixel data as a dense color-only
// image.
func NewDenseColor(width, height, regionBegin, regionEnd int, vp Viewport, pixels []Color) Image {
	return img.NewDenseColor(width, height, regionBegin, regionEnd, vp, pixels)
}

// NewDenseColorDepth wraps caller-supplied color and depth data as a
// dense color+depth image.
func NewDenseColorDepth(width, height, regionBegin, regionEnd int, vp Viewport, colors []Color, depths []float32) Image {
	return img.NewDenseColorDepth(width, height, regionBegin, regionEnd, vp, colors, depths)
}

// Group is an immutable ordered membership drawn from a surrounding
// communicator of fixed size, the scope every scheduler composites over.
type Group = group.Group

// AllRanks returns the group containing every rank [0, n).
func AllRanks(n int) *Group { return group.All(n) }

// NewGroup wraps an explicit, ordered list of enclosing ranks.
func NewGroup(ranks []int) *Group { return group.New(ranks) }

// Fabric is the in-process transfer substrate connecting every
// participant in a composite run.
type Fabric = fabric.Fabric

// Endpoint is one participant's view of a Fabric.
type Endpoint = fabric.Endpoint

// NewFabric creates a Fabric for n participants, ranked [0, n).
func NewFabric(n int) *Fabric { return fabric.New(n) }

// Tag distinguishes concurrent compose calls sharing one Fabric.
type Tag = fabric.Tag

// Options controls wire-level transfer behavior (compression).
type Options = wire.Options

// Tree is a composite-tree node built for 2-3 Swap.
type Tree = tree.Node

// BuildTree constructs the composite tree 2-3 Swap recurses over, for a
// group g and an image of imageSize pixels.
func BuildTree(g *Group, imageSize int) *Tree { return tree.Build(g, imageSize) }

// BinarySwapResult is one participant's Binary-Swap outcome.
type BinarySwapResult = binaryswap.Result

// BinarySwap runs the base Binary-Swap algorithm: g.Size() must be a
// power of two.
func BinarySwap(ep *Endpoint, g *Group, image Image, tag Tag, opts Options) (BinarySwapResult, error) {
	return binaryswap.Do(ep, g, image, tag, opts)
}

// BinarySwapFold runs Binary-Swap over an arbitrary group size by
// folding the excess above the largest power of two into the base
// algorithm.
func BinarySwapFold(ep *Endpoint, g *Group, image Image, tag Tag, opts Options) (BinarySwapResult, error) {
	return binaryswap.DoFold(ep, g, image, tag, opts)
}

// BinarySwapRemainder runs Binary-Swap over an image whose pixel count
// does not divide evenly by the group size.
func BinarySwapRemainder(ep *Endpoint, g *Group, image Image, tag Tag, opts Options) (BinarySwapResult, error) {
	return binaryswap.DoRemainder(ep, g, image, tag, opts)
}

// BinarySwapTelescoping runs Binary-Swap and relocates every
// participant's final piece into left-to-right display order.
func BinarySwapTelescoping(ep *Endpoint, g *Group, image Image, tag Tag, opts Options) (BinarySwapResult, error) {
	return binaryswap.DoTelescoping(ep, g, image, tag, opts)
}

// BinarySwap234 generalizes Binary-Swap to a mixed {2,3,4}-radix
// schedule, covering group sizes Base alone cannot.
func BinarySwap234(ep *Endpoint, g *Group, image Image, tag Tag, opts Options) (BinarySwapResult, error) {
	return binaryswap.DoSchedule234(ep, g, image, tag, opts)
}

// Swap23Result is one participant's 2-3 Swap outcome.
type Swap23Result = swap23.Result

// Swap23 runs the 2-3 Swap algorithm over a tree built by BuildTree.
func Swap23(ep *Endpoint, t *Tree, image Image, tag Tag, opts Options) (Swap23Result, error) {
	return swap23.Do(ep, t, image, tag, opts)
}

// DirectSendResult is one participant's Direct-Send-with-Overlap
// outcome.
type DirectSendResult = directsend.Result

// DirectSend runs Direct-Send with Overlap.
func DirectSend(ep *Endpoint, g *Group, image Image, tag Tag, opts Options) (DirectSendResult, error) {
	return directsend.Do(ep, g, image, tag, opts)
}

// RadixKResult is one participant's Radix-k outcome.
type RadixKResult = radixk.Result

// RadixK runs Radix-k with the given target k.
func RadixK(ep *Endpoint, g *Group, image Image, tag Tag, targetK int, opts Options) (RadixKResult, error) {
	return radixk.Do(ep, g, image, tag, targetK, opts)
}
