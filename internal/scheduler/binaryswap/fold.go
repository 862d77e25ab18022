package binaryswap

import (
	"github.com/dstorm-vis/slcompose/internal/basics"
	"github.com/dstorm-vis/slcompose/internal/fabric"
	"github.com/dstorm-vis/slcompose/internal/group"
	"github.com/dstorm-vis/slcompose/internal/img"
	"github.com/dstorm-vis/slcompose/internal/wire"
)

// foldTagOffset separates the fold-in/fold-out exchange from the base
// rounds' tag range, which occupies [tagBase, tagBase+numRounds).
const foldTagOffset = 64

// DoFold runs Binary-Swap over an arbitrary group size by folding the
// excess above the largest power of two down into the base algorithm's
// participants, then unfolding the result back out: each "extra"
// participant sends its whole image to a partner below the power-of-two
// line, which blends it in before running Do, then sends the composited
// piece back so the extra participant ends up with a final piece too.
func DoFold(ep *fabric.Endpoint, g *group.Group, image img.Image, tagBase fabric.Tag, opts wire.Options) (Result, error) {
	numProc := g.Size()
	base := basics.LargestPowerOfTwoNoBiggerThan(numProc)
	extra := numProc - base

	if extra == 0 {
		return Do(ep, g, image, tagBase, opts)
	}

	groupRank := g.RankOfSelf(ep.Rank())
	if groupRank == group.Undefined {
		return Result{}, img.NewError(img.GroupConstraintViolated, "binaryswap: fold endpoint is not a member of the group")
	}

	// Extra participants are the top `extra` ranks; each folds into the
	// partner `extra` below it.
	isExtra := groupRank >= base
	var partnerGroupRank int
	if isExtra {
		partnerGroupRank = groupRank - extra
	} else if groupRank >= base-extra {
		partnerGroupRank = groupRank + extra
	}

	cur := image
	if isExtra {
		partnerRank := g.EnclosingRank(partnerGroupRank)
		wire.PostSend(ep, partnerRank, fabric.Tag(int(tagBase)+foldTagOffset), cur, opts)
	} else if groupRank >= base-extra {
		partnerRank := g.EnclosingRank(partnerGroupRank)
		spec := wire.Spec{Width: cur.Width(), Height: cur.Height(), RegionBegin: cur.RegionBegin(), RegionEnd: cur.RegionEnd(), Variant: cur.Variant()}
		in := wire.PostRecv(ep, partnerRank, fabric.Tag(int(tagBase)+foldTagOffset), spec)
		in.Final.Wait()
		foldedIn, err := in.Finish()
		if err != nil {
			return Result{}, err
		}
		// The folded-in extra participant's original rank is higher, so
		// for order-dependent blends it composites below this
		// participant's own image (lower group rank is top, as in Do);
		// for order-independent blends the argument order doesn't matter.
		top, bottom := cur, foldedIn
		cur, err = top.Blend(bottom)
		if err != nil {
			return Result{}, err
		}
	}

	if isExtra {
		// Wait for the base group to finish and send back our piece.
		partnerRank := g.EnclosingRank(partnerGroupRank)
		spec := wire.Spec{Width: image.Width(), Height: image.Height(), RegionBegin: 0, RegionEnd: 0, Variant: image.Variant()}
		// Region is unknown ahead of time for the extra participant since
		// it never runs Do itself; the partner reports it by resizing the
		// spec's region to the piece's own RegionBegin/RegionEnd on send.
		// PostRecv here uses an oversized bound: the whole original image.
		spec.RegionBegin, spec.RegionEnd = image.RegionBegin(), image.RegionEnd()
		in := wire.PostRecv(ep, partnerRank, fabric.Tag(int(tagBase)+foldTagOffset+1), spec)
		in.Final.Wait()
		piece, err := in.Finish()
		if err != nil {
			return Result{}, err
		}
		return Result{Piece: piece, PieceIndex: basics.BitReverse(partnerGroupRank, base)}, nil
	}

	baseGroup := g.IncludeByRange(0, base-1, 1)
	res, err := Do(ep, baseGroup, cur, tagBase, opts)
	if err != nil {
		return Result{}, err
	}

	if groupRank >= base-extra {
		extraGroupRank := groupRank + extra
		extraRank := g.EnclosingRank(extraGroupRank)
		wire.PostSend(ep, extraRank, fabric.Tag(int(tagBase)+foldTagOffset+1), res.Piece, opts)
	}

	return res, nil
}
