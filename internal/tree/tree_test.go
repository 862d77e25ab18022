package tree

import (
	"testing"

	"github.com/dstorm-vis/slcompose/internal/group"
)

func TestBuildLeafSingleton(t *testing.T) {
	n := Build(group.All(1), 100)
	if n.GroupSize != 1 {
		t.Fatalf("GroupSize = %d, want 1", n.GroupSize)
	}
	if n.RegionIndices[0] != 0 || n.RegionIndices[1] != 100 {
		t.Fatalf("RegionIndices = %v, want [0 100]", n.RegionIndices)
	}
}

func TestBuildDivideBy2PowerOfTwo(t *testing.T) {
	n := Build(group.All(4), 100)
	if n.GroupSize != 4 {
		t.Fatalf("GroupSize = %d, want 4", n.GroupSize)
	}
	if n.RegionIndices[0] != 0 || n.RegionIndices[len(n.RegionIndices)-1] != 100 {
		t.Fatalf("RegionIndices endpoints = %v", n.RegionIndices)
	}
	for i := 1; i < len(n.RegionIndices); i++ {
		if n.RegionIndices[i] < n.RegionIndices[i-1] {
			t.Fatalf("RegionIndices not monotonic: %v", n.RegionIndices)
		}
	}
}

func TestBuildSixRanksNonPowerOfTwo(t *testing.T) {
	n := Build(group.All(6), 120)
	if n.GroupSize != 6 {
		t.Fatalf("GroupSize = %d, want 6", n.GroupSize)
	}
	if n.Group.Size() != 6 {
		t.Fatalf("merged group size = %d, want 6", n.Group.Size())
	}
	// every enclosing rank 0..5 appears exactly once in the merged group
	seen := make(map[int]bool)
	for i := 0; i < n.Group.Size(); i++ {
		seen[n.Group.EnclosingRank(i)] = true
	}
	if len(seen) != 6 {
		t.Fatalf("merged group ranks = %v, want 6 distinct", seen)
	}
	if n.RegionIndices[0] != 0 || n.RegionIndices[len(n.RegionIndices)-1] != 120 {
		t.Fatalf("RegionIndices endpoints = %v", n.RegionIndices)
	}
}

func TestSubnodeOfCoversWholeGroup(t *testing.T) {
	n := Build(group.All(7), 70)
	total := 0
	for _, sub := range n.Subnodes {
		total += sub.GroupSize
	}
	if total != 7 {
		t.Fatalf("subnode sizes sum to %d, want 7", total)
	}
	for gr := 0; gr < 7; gr++ {
		idx, subRank := n.SubnodeOf(gr)
		if idx < 0 || idx >= len(n.Subnodes) {
			t.Fatalf("SubnodeOf(%d) index %d out of range", gr, idx)
		}
		if subRank < 0 || subRank >= n.Subnodes[idx].GroupSize {
			t.Fatalf("SubnodeOf(%d) subRank %d out of range", gr, subRank)
		}
	}
}

func TestBuildFiveRanksAllMembersPresent(t *testing.T) {
	n := Build(group.All(5), 50)
	seen := make(map[int]bool)
	for i := 0; i < n.Group.Size(); i++ {
		seen[n.Group.EnclosingRank(i)] = true
	}
	for r := 0; r < 5; r++ {
		if !seen[r] {
			t.Errorf("rank %d missing from merged group", r)
		}
	}
}
