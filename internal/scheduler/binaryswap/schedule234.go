package binaryswap

import (
	"github.com/dstorm-vis/slcompose/internal/fabric"
	"github.com/dstorm-vis/slcompose/internal/group"
	"github.com/dstorm-vis/slcompose/internal/img"
	"github.com/dstorm-vis/slcompose/internal/wire"
)

// factorSchedule factors numProc into a sequence of per-round radices
// from {4, 3, 2}, preferring larger radices first since fewer, fatter
// rounds move less total data than many binary rounds. Any numProc whose
// prime factorization uses only 2s and 3s is covered; anything else is
// rejected (the caller should fall back to Fold or Remainder instead).
func factorSchedule(numProc int) ([]int, bool) {
	var radices []int
	n := numProc
	for n%4 == 0 {
		radices = append(radices, 4)
		n /= 4
	}
	for n%3 == 0 {
		radices = append(radices, 3)
		n /= 3
	}
	for n%2 == 0 {
		radices = append(radices, 2)
		n /= 2
	}
	if n != 1 {
		return nil, false
	}
	return radices, true
}

// DoSchedule234 generalizes Base Binary-Swap to a mixed-radix schedule
// over {2,3,4}-way rounds. At round r, ranks are grouped into blocks of
// size digitSpan*radix sharing every more-significant digit; within a
// block, the radix participants split their current piece into radix
// equal slices by digit and each exchanges its non-matching slices with
// every other member, mirroring Base's bit-indexed partner selection
// generalized from base-2 to base-radix digits.
func DoSchedule234(ep *fabric.Endpoint, g *group.Group, image img.Image, tagBase fabric.Tag, opts wire.Options) (Result, error) {
	numProc := g.Size()
	groupRank := g.RankOfSelf(ep.Rank())
	if groupRank == group.Undefined {
		return Result{}, img.NewError(img.GroupConstraintViolated, "binaryswap: schedule234 endpoint is not a member of the group")
	}
	radices, ok := factorSchedule(numProc)
	if !ok {
		return Result{}, img.NewError(img.GroupConstraintViolated, "binaryswap: schedule234 requires a group size with only 2, 3, and 4 as prime factors")
	}

	cur := image
	digitSpan := 1
	for round, radix := range radices {
		block := digitSpan * radix
		blockBase := (groupRank / block) * block
		digit := (groupRank / digitSpan) % radix
		offset := groupRank % digitSpan

		n := cur.NumberOfPixels()
		sliceLen := n / radix

		sliceRange := func(d int) (int, int) {
			begin := d * sliceLen
			end := begin + sliceLen
			if d == radix-1 {
				end = n
			}
			return begin, end
		}

		keepBegin, keepEnd := sliceRange(digit)
		keep := cur.Window(keepBegin, keepEnd)

		pieces := make(map[int]img.Image, radix)
		pieces[digit] = keep

		roundTag := fabric.Tag(int(tagBase) + round*16)
		incoming := make(map[int]*wire.Incoming, radix-1)

		for peerDigit := 0; peerDigit < radix; peerDigit++ {
			if peerDigit == digit {
				continue
			}
			peerGroupRank := blockBase + peerDigit*digitSpan + offset
			peerRank := g.EnclosingRank(peerGroupRank)

			sendBegin, sendEnd := sliceRange(peerDigit)
			send := cur.Window(sendBegin, sendEnd).CopySubrange(0, sendEnd-sendBegin)

			recvTag := fabric.Tag(int(roundTag) + peerDigit)
			sendTag := fabric.Tag(int(roundTag) + digit)
			spec := wire.Spec{
				Width: keep.Width(), Height: keep.Height(),
				RegionBegin: keep.RegionBegin(), RegionEnd: keep.RegionEnd(),
				Variant: send.Variant(),
			}
			incoming[peerDigit] = wire.PostRecv(ep, peerRank, recvTag, spec)
			wire.PostSend(ep, peerRank, sendTag, send, opts)
		}

		for peerDigit, in := range incoming {
			in.Final.Wait()
			received, err := in.Finish()
			if err != nil {
				return Result{}, err
			}
			pieces[peerDigit] = received
		}

		// Composite descending by digit: lower digit (lower group rank)
		// is top, higher digit is bottom, matching Base's even/lower-rank-
		// is-top convention.
		var acc img.Image
		for d := radix - 1; d >= 0; d-- {
			p, ok := pieces[d]
			if !ok {
				continue
			}
			if acc == nil {
				acc = p
				continue
			}
			var err error
			acc, err = p.Blend(acc)
			if err != nil {
				return Result{}, err
			}
		}

		cur = acc
		digitSpan = block
	}

	pieceIndex := reverseMixedRadix(groupRank, radices)
	return Result{Piece: cur, PieceIndex: pieceIndex}, nil
}

// reverseMixedRadix mirrors BitReverse for a mixed-radix digit sequence:
// the rank's per-round digits, read out in reverse round order, give the
// final piece index, generalizing the power-of-two bit-reversal
// relationship to arbitrary {2,3,4} radices.
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
