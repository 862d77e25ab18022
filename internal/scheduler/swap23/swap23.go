// Package swap23 implements the 2-3 Swap algorithm: a composite tree
// (internal/tree) recursively subdivides the group into 2-way or 3-way
// subtrees, and the group exchanges and blends its current piece level
// by level, finest subtree first, generalizing Base Binary-Swap's
// bit-indexed halving to a branching factor that also covers group
// sizes that are not powers of two. Grounded on
// original_source/2-3-Swap/Base/Swap_2_3_Base.cpp's top-level compose
// loop; PostReceivesFromSubtree's handling of unevenly sized sibling
// subtrees is simplified here to "extra members at a level with no
// sibling counterpart carry their current piece through unchanged,"
// documented in DESIGN.md.
package swap23

import (
	"github.com/dstorm-vis/slcompose/internal/basics"
	"github.com/dstorm-vis/slcompose/internal/fabric"
	"github.com/dstorm-vis/slcompose/internal/img"
	"github.com/dstorm-vis/slcompose/internal/tree"
	"github.com/dstorm-vis/slcompose/internal/wire"
)

// Result is one participant's final composited piece.
type Result struct {
	Piece      img.Image
	PieceIndex int
}

// Do composites image across root's group, root having been built over
// the group by tree.Build.
func Do(ep *fabric.Endpoint, root *tree.Node, image img.Image, tagBase fabric.Tag, opts wire.Options) (Result, error) {
	path := pathToLeaf(root, ep.Rank())

	cur := image
	for level := len(path) - 1; level >= 0; level-- {
		node := path[level]
		groupRank := node.Group.RankOfSelf(ep.Rank())
		subIdx, subRank := node.SubnodeOf(groupRank)
		numSub := len(node.Subnodes)

		hasSiblingAtThisLevel := false
		for peerIdx, sub := range node.Subnodes {
			if peerIdx != subIdx && subRank < sub.GroupSize {
				hasSiblingAtThisLevel = true
				break
			}
		}
		if !hasSiblingAtThisLevel {
			continue
		}

		n := cur.NumberOfPixels()
		keepBegin, keepEnd := basics.GetPieceRange(n, subIdx, numSub)
		keep := cur.Window(keepBegin, keepEnd)

		pieces := make(map[int]img.Image, numSub)
		pieces[subIdx] = keep
		levelTag := fabric.Tag(int(tagBase) + level*32)

		incoming := make(map[int]*wire.Incoming, numSub-1)
		for peerIdx, sub := range node.Subnodes {
			if peerIdx == subIdx || subRank >= sub.GroupSize {
				continue
			}
			peerRank := sub.Group.EnclosingRank(subRank)
			peerBegin, peerEnd := basics.GetPieceRange(n, peerIdx, numSub)
			send := cur.Window(peerBegin, peerEnd).CopySubrange(0, peerEnd-peerBegin)

			recvTag := fabric.Tag(int(levelTag) + peerIdx)
			sendTag := fabric.Tag(int(levelTag) + subIdx)
			spec := wire.Spec{
				Width: keep.Width(), Height: keep.Height(),
				RegionBegin: keep.RegionBegin(), RegionEnd: keep.RegionEnd(),
				Variant: send.Variant(),
			}
			incoming[peerIdx] = wire.PostRecv(ep, peerRank, recvTag, spec)
			wire.PostSend(ep, peerRank, sendTag, send, opts)
		}

		for peerIdx, in := range incoming {
			in.Final.Wait()
			received, err := in.Finish()
			if err != nil {
				return Result{}, err
			}
			pieces[peerIdx] = received
		}

		var acc img.Image
		for idx := 0; idx < numSub; idx++ {
			p, ok := pieces[idx]
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
	}

	groupRank := root.Group.RankOfSelf(ep.Rank())
	return Result{Piece: cur, PieceIndex: groupRank}, nil
}

// pathToLeaf returns the chain of tree nodes from root down to (but not
// including) the singleton leaf containing rank, in root-first order.
func pathToLeaf(root *tree.Node, rank int) []*tree.Node {
	var path []*tree.Node
	cur := root
	for cur.GroupSize > 1 {
		path = append(path, cur)
		groupRank := cur.Group.RankOfSelf(rank)
		subIdx, _ := cur.SubnodeOf(groupRank)
		cur = cur.Subnodes[subIdx]
	}
	return path
}
