package binaryswap

import (
	"github.com/dstorm-vis/slcompose/internal/basics"
	"github.com/dstorm-vis/slcompose/internal/fabric"
	"github.com/dstorm-vis/slcompose/internal/group"
	"github.com/dstorm-vis/slcompose/internal/img"
	"github.com/dstorm-vis/slcompose/internal/wire"
)

const telescopeTagOffset = 256

// DoTelescoping runs Base Binary-Swap and then relocates every
// participant's final piece from its bit-reversed holding rank to the
// rank matching the piece's left-to-right order, so the caller receives
// pieces already in display order without a separate gather pass.
// BitReverse is its own inverse, so the rank currently holding piece i is
// BitReverse(i, numProc); that rank sends to canonical rank i.
func DoTelescoping(ep *fabric.Endpoint, g *group.Group, image img.Image, tagBase fabric.Tag, opts wire.Options) (Result, error) {
	res, err := Do(ep, g, image, tagBase, opts)
	if err != nil {
		return Result{}, err
	}

	numProc := g.Size()
	groupRank := g.RankOfSelf(ep.Rank())
	tag := fabric.Tag(int(tagBase) + telescopeTagOffset)

	canonicalRank := res.PieceIndex
	destRank := g.EnclosingRank(canonicalRank)
	wire.PostSend(ep, destRank, tag, res.Piece, opts)

	sourceGroupRank := basics.BitReverse(groupRank, numProc)
	sourceRank := g.EnclosingRank(sourceGroupRank)
	begin, end := basics.GetPieceRange(image.NumberOfPixels(), groupRank, numProc)
	spec := wire.Spec{
		Width: image.Width(), Height: image.Height(),
		RegionBegin: image.RegionBegin() + begin, RegionEnd: image.RegionBegin() + end,
		Variant: res.Piece.Variant(),
	}
	in := wire.PostRecv(ep, sourceRank, tag, spec)
	in.Final.Wait()
	piece, err := in.Finish()
	if err != nil {
		return Result{}, err
	}
	return Result{Piece: piece, PieceIndex: groupRank, Tail: res.Tail}, nil
}
