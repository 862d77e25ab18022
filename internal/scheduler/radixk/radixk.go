// Package radixk implements Radix-k: numProc is factored into a
// sequence of per-round k-values close to a target k, and each round
// runs Direct-Send-with-Overlap within k-sized subgroups carved out of
// the full group by a mixed-radix digit addressing scheme (round 0 is
// the finest, smallest-span digit; later rounds address progressively
// coarser digit positions). Grounded on
// original_source/RadixK/Base/RadixKBase.cpp's compose() round loop and
// its generateK() factor search.
package radixk

import (
	"github.com/dstorm-vis/slcompose/internal/fabric"
	"github.com/dstorm-vis/slcompose/internal/group"
	"github.com/dstorm-vis/slcompose/internal/img"
	"github.com/dstorm-vis/slcompose/internal/scheduler/directsend"
	"github.com/dstorm-vis/slcompose/internal/wire"
)

// GenerateK factors numProc into a sequence of per-round k-values, each
// round's k chosen as the largest divisor of the remaining factor that
// does not exceed targetK; when the remaining factor has no such divisor,
// its smallest divisor above targetK (its smallest prime factor) is
// taken for that round instead.
func GenerateK(targetK, numProc int) []int {
	var ks []int
	remaining := numProc
	for remaining > 1 {
		k := 0
		ceiling := targetK
		if ceiling > remaining {
			ceiling = remaining
		}
		for cand := ceiling; cand >= 2; cand-- {
			if remaining%cand == 0 {
				k = cand
				break
			}
		}
		if k == 0 {
			for cand := targetK + 1; cand <= remaining; cand++ {
				if remaining%cand == 0 {
					k = cand
					break
				}
			}
		}
		ks = append(ks, k)
		remaining /= k
	}
	if len(ks) == 0 {
		ks = []int{1}
	}
	return ks
}

// Result is one participant's final composited piece.
type Result struct {
	Piece      img.Image
	PieceIndex int
}

// Do composites image across g using the round schedule GenerateK(targetK,
// g.Size()) produces.
func Do(ep *fabric.Endpoint, g *group.Group, image img.Image, tagBase fabric.Tag, targetK int, opts wire.Options) (Result, error) {
	numProc := g.Size()
	groupRank := g.RankOfSelf(ep.Rank())
	if groupRank == group.Undefined {
		return Result{}, img.NewError(img.GroupConstraintViolated, "radixk: endpoint is not a member of the group")
	}
	ks := GenerateK(targetK, numProc)

	cur := image
	digitSpan := 1
	for round, k := range ks {
		if k == 1 {
			continue
		}
		block := digitSpan * k
		blockBase := (groupRank / block) * block
		offset := groupRank % digitSpan

		lo := blockBase + offset
		hi := lo + (k-1)*digitSpan
		subGroup := g.IncludeByRange(lo, hi, digitSpan)

		roundTag := fabric.Tag(int(tagBase) + round*4096)
		res, err := directsend.Do(ep, subGroup, cur, roundTag, opts)
		if err != nil {
			return Result{}, err
		}
		cur = res.Piece
		digitSpan = block
	}

	return Result{Piece: cur, PieceIndex: reverseMixedRadix(groupRank, ks)}, nil
}

// reverseMixedRadix mirrors Binary-Swap's bit-reversal relationship for
// an arbitrary mixed-radix digit sequence: the rank's per-round digits,
// read out in reverse round order, give the final piece index.
func reverseMixedRadix(rank int, radices []int) int {
	digits := make([]int, len(radices))
	span := 1
	for i, radix := range radices {
		digits[i] = (rank / span) % radix
		span *= radix
	}
	out := 0
	mult := 1
	for i := len(digits) - 1; i >= 0; i-- {
		out += digits[i] * mult
		mult *= radices[i]
	}
	return out
}
