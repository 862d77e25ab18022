package binaryswap

import (
	"github.com/dstorm-vis/slcompose/internal/basics"
	"github.com/dstorm-vis/slcompose/internal/fabric"
	"github.com/dstorm-vis/slcompose/internal/group"
	"github.com/dstorm-vis/slcompose/internal/img"
	"github.com/dstorm-vis/slcompose/internal/wire"
)

// DoRemainder runs Base Binary-Swap but carves off a trailing remainder
// strip so every round's split is an exact halving: the image's pixel
// count n is split into a base of n-(n%numProc) leading pixels, run
// through Do, and a remainder of the last n%numProc pixels, which every
// rank sends after Do finishes to the highest-numbered rank; that rank
// returns the composited strip as Result.Tail. The group size must be a
// power of two.
func DoRemainder(ep *fabric.Endpoint, g *group.Group, image img.Image, tagBase fabric.Tag, opts wire.Options) (Result, error) {
	numProc := g.Size()
	if !basics.IsPowerOfTwo(numProc) {
		return Result{}, img.NewError(img.GroupConstraintViolated, "binaryswap: DoRemainder requires a power-of-two group size")
	}
	groupRank := g.RankOfSelf(ep.Rank())
	if groupRank == group.Undefined {
		return Result{}, img.NewError(img.GroupConstraintViolated, "binaryswap: remainder endpoint is not a member of the group")
	}

	n := image.NumberOfPixels()
	remainder := n % numProc
	if remainder == 0 {
		return Do(ep, g, image, tagBase, opts)
	}

	base := image.Window(0, n-remainder)
	tail := image.Window(n-remainder, n)

	res, err := Do(ep, g, base, tagBase, opts)
	if err != nil {
		return Result{}, err
	}

	const tailTag = 128
	merged, err := gatherTail(ep, g, groupRank, tail, fabric.Tag(int(tagBase)+tailTag), opts)
	if err != nil {
		return Result{}, err
	}
	if merged == nil {
		return res, nil
	}
	return Result{Piece: res.Piece, PieceIndex: res.PieceIndex, Tail: merged}, nil
}

// gatherTail composites the sub-numProc-pixel remainder strip by simple
// serial accumulation at the highest-numbered rank, in ascending group
// rank order (lowest rank top, highest rank bottom, as in Do), returning
// the composited strip there and nil everywhere else.
func gatherTail(ep *fabric.Endpoint, g *group.Group, groupRank int, tail img.Image, tag fabric.Tag, opts wire.Options) (img.Image, error) {
	numProc := g.Size()
	collector := numProc - 1
	if groupRank != collector {
		peer := g.EnclosingRank(collector)
		wire.PostSend(ep, peer, tag, tail, opts)
		return nil, nil
	}

	var acc img.Image
	for sender := 0; sender < collector; sender++ {
		peer := g.EnclosingRank(sender)
		spec := wire.Spec{Width: tail.Width(), Height: tail.Height(), RegionBegin: tail.RegionBegin(), RegionEnd: tail.RegionEnd(), Variant: tail.Variant()}
		in := wire.PostRecv(ep, peer, tag, spec)
		in.Final.Wait()
		contribution, err := in.Finish()
		if err != nil {
			return nil, err
		}
		if acc == nil {
			acc = contribution
			continue
		}
		// contribution's group rank is higher than everything folded into
		// acc so far, so it composites underneath.
		acc, err = acc.Blend(contribution)
		if err != nil {
			return nil, err
		}
	}
	if acc == nil {
		return tail, nil
	}
	// The collector's own tail has the highest group rank of all and
	// composites last, at the bottom.
	return acc.Blend(tail)
}
