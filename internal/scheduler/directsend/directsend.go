// Package directsend implements Direct-Send with Overlap: every
// participant splits its full local image into numProc pieces (one per
// destination rank), posts a non-blocking send of each non-local piece
// immediately so outgoing transfer overlaps with everything else this
// rank does, and assembles its own assigned piece by waiting on incoming
// contributions strictly in ascending source-rank order (never skipping
// a still-pending lower-ranked contribution to process a higher-ranked
// one that happens to be ready first, since order-dependent color
// blending requires painter's-algorithm order). Grounded on
// original_source/DirectSend/Overlap/DirectSendOverlap.cpp.
package directsend

import (
	"github.com/dstorm-vis/slcompose/internal/basics"
	"github.com/dstorm-vis/slcompose/internal/fabric"
	"github.com/dstorm-vis/slcompose/internal/group"
	"github.com/dstorm-vis/slcompose/internal/img"
	"github.com/dstorm-vis/slcompose/internal/wire"
)

// MaxImageSplit bounds how many pieces a single compose call will ever
// split an image into, regardless of group size, matching the original's
// DEFAULT_MAX_IMAGE_SPLIT safety cap. Callers (e.g. a CLI's
// --max-image-split flag) may lower or raise it before the first Do call.
var MaxImageSplit = 1000000

// Result is one participant's assigned, fully composited piece.
type Result struct {
	Piece      img.Image
	PieceIndex int
}

// Do composites image across g: g.Size() pieces, piece i assigned to
// g's member i.
func Do(ep *fabric.Endpoint, g *group.Group, image img.Image, tagBase fabric.Tag, opts wire.Options) (Result, error) {
	numProc := g.Size()
	if numProc > MaxImageSplit {
		return Result{}, img.NewError(img.PartitionOutOfRange, "directsend: group size exceeds MaxImageSplit")
	}
	groupRank := g.RankOfSelf(ep.Rank())
	if groupRank == group.Undefined {
		return Result{}, img.NewError(img.GroupConstraintViolated, "directsend: endpoint is not a member of the group")
	}

	n := image.NumberOfPixels()

	// Post every outgoing piece immediately so sends overlap with the
	// receive-and-blend loop below.
	for dest := 0; dest < numProc; dest++ {
		if dest == groupRank {
			continue
		}
		begin, end := basics.GetPieceRange(n, dest, numProc)
		piece := image.Window(begin, end).CopySubrange(0, end-begin)
		destRank := g.EnclosingRank(dest)
		tag := fabric.Tag(int(tagBase) + dest)
		wire.PostSend(ep, destRank, tag, piece, opts)
	}

	myBegin, myEnd := basics.GetPieceRange(n, groupRank, numProc)
	localPiece := image.Window(myBegin, myEnd)

	// Pre-post every incoming piece's receive so they can all progress
	// concurrently; the scan below still consumes them in strict
	// ascending source-rank order, blocking on a specific still-pending
	// slot rather than skipping ahead to one that happens to be ready.
	incoming := make(map[int]*wire.Incoming, numProc-1)
	tag := fabric.Tag(int(tagBase) + groupRank)
	spec := wire.Spec{
		Width: localPiece.Width(), Height: localPiece.Height(),
		RegionBegin: localPiece.RegionBegin(), RegionEnd: localPiece.RegionEnd(),
		Variant: localPiece.Variant(),
	}
	for source := 0; source < numProc; source++ {
		if source == groupRank {
			continue
		}
		sourceRank := g.EnclosingRank(source)
		incoming[source] = wire.PostRecv(ep, sourceRank, tag, spec)
	}

	var acc img.Image
	for rank := 0; rank < numProc; rank++ {
		var piece img.Image
		if rank == groupRank {
			piece = localPiece
		} else {
			in := incoming[rank]
			in.Final.Wait()
			received, err := in.Finish()
			if err != nil {
				return Result{}, err
			}
			piece = received
		}
		if acc == nil {
			acc = piece
			continue
		}
		// rank is strictly greater than every rank folded into acc so
		// far, so it composites on top.
		var err error
		acc, err = piece.Blend(acc)
		if err != nil {
			return Result{}, err
		}
	}

	return Result{Piece: acc, PieceIndex: groupRank}, nil
}
