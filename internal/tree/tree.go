// Package tree builds the composite tree 2-3 Swap recurses over: a
// recursive descriptor assigning, at every level, one contiguous image
// sub-region to each participant and merging ranks in interleaved order
// so that descending into a child yields the contiguous-neighbor
// relationship the blend-ordering invariant needs. Ported directly from
// Swap_2_3_Node::setup in the original source.
package tree

import "github.com/dstorm-vis/slcompose/internal/group"

// Node is one level of the composite tree.
type Node struct {
	Group         *group.Group
	GroupSize     int
	RegionIndices []int // length GroupSize+1, partitions [0, imageSize]
	Subnodes      []*Node
}

// Build constructs the tree for g over an image of imageSize pixels.
func Build(g *group.Group, imageSize int) *Node {
	return build(g, g.Size(), imageSize)
}

func build(g *group.Group, groupSize, imageSize int) *Node {
	if groupSize == 1 {
		return &Node{Group: g, GroupSize: 1, RegionIndices: []int{0, imageSize}}
	}

	largerPow2 := smallestPowerOfTwoGreaterThan(groupSize)

	if groupSize < largerPow2-1 {
		return buildDivideBy2(g, groupSize, imageSize, largerPow2)
	}
	return buildDivideBy3(g, groupSize, imageSize, largerPow2)
}

func smallestPowerOfTwoGreaterThan(n int) int {
	p := 1
	for p <= n {
		p *= 2
	}
	return p
}

func buildDivideBy2(g *group.Group, groupSize, imageSize, largerPow2 int) *Node {
	subSize2 := groupSize / 2
	subSize1 := groupSize - subSize2

	sub0 := build(g.IncludeByRange(0, subSize1-1, 1), subSize1, imageSize)
	sub1 := build(g.IncludeByRange(subSize1, groupSize-1, 1), subSize2, imageSize/1)

	merged := make([]int, groupSize)
	regionIndices := make([]int, groupSize+1)

	if subSize1 == subSize2 {
		for i := 0; i < subSize1; i++ {
			merged[2*i] = g.EnclosingRank(i)
			merged[2*i+1] = g.EnclosingRank(subSize1 + i)
			regionIndices[2*i] = sub0.RegionIndices[i]
			regionIndices[2*i+1] = (sub0.RegionIndices[i] + sub0.RegionIndices[i+1]) / 2
		}
		regionIndices[groupSize] = sub0.RegionIndices[subSize1]
	} else {
		for i := 0; i < subSize1; i++ {
			merged[i] = g.EnclosingRank(i)
		}
		for i := 0; i < subSize2; i++ {
			merged[subSize1+i] = g.EnclosingRank(subSize1 + i)
		}
		// Interleave ranks for blend ordering while distributing regions
		// evenly by slot, tail absorbing the remainder.
		interleaved := interleaveTwo(merged, subSize1, subSize2)
		merged = interleaved
		slot := imageSize / groupSize
		for i := 0; i < groupSize; i++ {
			regionIndices[i] = i * slot
		}
		regionIndices[groupSize] = imageSize
	}

	return &Node{
		Group:         group.New(merged),
		GroupSize:     groupSize,
		RegionIndices: regionIndices,
		Subnodes:      []*Node{sub0, sub1},
	}
}

func buildDivideBy3(g *group.Group, groupSize, imageSize, largerPow2 int) *Node {
	subSize2 := groupSize / 3
	subSize1 := groupSize - 2*subSize2

	sub0 := build(g.IncludeByRange(0, subSize1-1, 1), subSize1, imageSize)
	sub1 := build(g.IncludeByRange(subSize1, subSize1+subSize2-1, 1), subSize2, imageSize)
	sub2 := build(g.IncludeByRange(subSize1+subSize2, groupSize-1, 1), subSize2, imageSize)

	merged := make([]int, groupSize)
	for i := 0; i < subSize1; i++ {
		merged[i] = g.EnclosingRank(i)
	}
	for i := 0; i < subSize2; i++ {
		merged[subSize1+i] = g.EnclosingRank(subSize1 + i)
	}
	for i := 0; i < subSize2; i++ {
		merged[subSize1+subSize2+i] = g.EnclosingRank(subSize1 + subSize2 + i)
	}

	regionIndices := make([]int, groupSize+1)
	if subSize1 == subSize2 {
		for i := 0; i < subSize1; i++ {
			merged[3*i] = g.EnclosingRank(i)
			merged[3*i+1] = g.EnclosingRank(subSize1 + i)
			merged[3*i+2] = g.EnclosingRank(subSize1 + subSize2 + i)
			a, b := sub0.RegionIndices[i], sub0.RegionIndices[i+1]
			regionIndices[3*i] = a
			regionIndices[3*i+1] = (2*a + b) / 3
			regionIndices[3*i+2] = (a + 2*b) / 3
		}
		regionIndices[groupSize] = sub0.RegionIndices[subSize1]
	} else {
		merged = interleaveThree(merged, subSize1, subSize2)
		slot := imageSize / groupSize
		for i := 0; i < groupSize; i++ {
			regionIndices[i] = i * slot
		}
		regionIndices[groupSize] = imageSize
	}

	return &Node{
		Group:         group.New(merged),
		GroupSize:     groupSize,
		RegionIndices: regionIndices,
		Subnodes:      []*Node{sub0, sub1, sub2},
	}
}

// interleaveTwo reorders [sub0 members..., sub1 members...] into
// 0,1,0,1,... order; when sub1 is exhausted, remaining sub0 members are
// appended in order.
func interleaveTwo(merged []int, subSize1, subSize2 int) []int {
	out := make([]int, 0, len(merged))
	i, j := 0, 0
	for i < subSize1 || j < subSize2 {
		if i < subSize1 {
			out = append(out, merged[i])
			i++
		}
		if j < subSize2 {
			out = append(out, merged[subSize1+j])
			j++
		}
	}
	return out
}

func interleaveThree(merged []int, subSize1, subSize2 int) []int {
	out := make([]int, 0, len(merged))
	i, j, k := 0, 0, 0
	for i < subSize1 || j < subSize2 || k < subSize2 {
		if i < subSize1 {
			out = append(out, merged[i])
			i++
		}
		if j < subSize2 {
			out = append(out, merged[subSize1+j])
			j++
		}
		if k < subSize2 {
			out = append(out, merged[subSize1+subSize2+k])
			k++
		}
	}
	return out
}

// SubnodeOf returns the index of the subnode containing groupRank, and
// that subnode's rank within itself.
func (n *Node) SubnodeOf(groupRank int) (subnodeIndex, subRank int) {
	enclosing := n.Group.EnclosingRank(groupRank)
	for idx, sub := range n.Subnodes {
		if r := sub.Group.RankOfSelf(enclosing); r != group.Undefined {
			return idx, r
		}
	}
	panic("tree: group rank out of range")
}
