// Package binaryswap implements the Binary-Swap family: Base and its
// Fold, Remainder, Telescoping, and 234-Schedule variants. Ported from
// the five corresponding files under original_source/BinarySwap/, one
// file per variant in this package, all sharing the same per-round
// exchange primitive in this file.
package binaryswap

import (
	"github.com/dstorm-vis/slcompose/internal/basics"
	"github.com/dstorm-vis/slcompose/internal/fabric"
	"github.com/dstorm-vis/slcompose/internal/group"
	"github.com/dstorm-vis/slcompose/internal/img"
	"github.com/dstorm-vis/slcompose/internal/wire"
)

// roundsTagSpan reserves this many wire tag bases per round so a single
// Compose invocation never collides with another running concurrently on
// the same Endpoint pair.
const roundsTagSpan = 1

// Result is one participant's outcome: the composited piece it ends up
// holding, and the piece index (in [0, numProc)) that piece corresponds
// to in the final image's left-to-right ordering.
type Result struct {
	Piece      img.Image
	PieceIndex int
	// Tail holds the composited remainder strip when the image's pixel
	// count does not divide evenly by the group size, populated only at
	// the single collecting rank by DoRemainder; nil otherwise.
	Tail img.Image
}

// Do runs the base Binary-Swap algorithm: g.Size() must be a power of
// two. At round r, each participant exchanges half of its current piece
// with the partner differing in bit r of its group rank, keeping the
// half matching its own bit and discarding (by not recomputing) the
// other, then blends the kept half against the half just received: the
// lower-ranked (even) side of the pair is top. After log2(numProc)
// rounds every participant holds one final 1/numProc slice of the
// image, at the piece index BitReverse(groupRank, numProc).
func Do(ep *fabric.Endpoint, g *group.Group, image img.Image, tagBase fabric.Tag, opts wire.Options) (Result, error) {
	numProc := g.Size()
	if !basics.IsPowerOfTwo(numProc) {
		return Result{}, img.NewError(img.GroupConstraintViolated, "binaryswap: Do requires a power-of-two group size")
	}
	groupRank := g.RankOfSelf(ep.Rank())
	if groupRank == group.Undefined {
		return Result{}, img.NewError(img.GroupConstraintViolated, "binaryswap: endpoint is not a member of the group")
	}

	cur := image
	numRounds := 0
	for p := numProc; p > 1; p >>= 1 {
		numRounds++
	}

	for round := 0; round < numRounds; round++ {
		bit := 1 << round
		partnerGroupRank := groupRank ^ bit
		partnerRank := g.EnclosingRank(partnerGroupRank)

		keep, send := splitHalf(cur, groupRank&bit != 0)

		spec := wire.Spec{
			Width: send.Width(), Height: send.Height(),
			RegionBegin: send.RegionBegin(), RegionEnd: send.RegionEnd(),
			Variant: send.Variant(),
		}
		roundTag := fabric.Tag(int(tagBase) + round*roundsTagSpan)
		in := wire.PostRecv(ep, partnerRank, roundTag, spec)
		wire.PostSend(ep, partnerRank, roundTag, send, opts)

		in.Final.Wait()
		received, err := in.Finish()
		if err != nil {
			return Result{}, err
		}

		var top, bottom img.Image
		if groupRank < partnerGroupRank {
			top, bottom = keep, received
		} else {
			top, bottom = received, keep
		}
		cur, err = top.Blend(bottom)
		if err != nil {
			return Result{}, err
		}
	}

	return Result{Piece: cur, PieceIndex: basics.BitReverse(groupRank, numProc)}, nil
}

// splitHalf divides cur's current region in half by pixel count and
// returns (keep, send): keepUpper selects which half the caller keeps.
func splitHalf(cur img.Image, keepUpper bool) (keep, send img.Image) {
	n := cur.NumberOfPixels()
	mid := n / 2
	lower := cur.Window(0, mid)
	upper := cur.Window(mid, n)
	if keepUpper {
		return upper, lower.CopySubrange(0, lower.NumberOfPixels())
	}
	return lower, upper.CopySubrange(0, upper.NumberOfPixels())
}
