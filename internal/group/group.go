// Package group implements the process-group abstraction of the
// compositing core: an immutable ordered membership drawn from a
// surrounding communicator, with include/exclude-by-range and rank
// translation. Modeled directly on MPI_Group semantics (there is no
// prior Go art for this concept anywhere in the retrieval pack); ranks
// are plain ints naming positions in an enclosing communicator of fixed
// size N, exactly mirroring how the original scheduling code carves
// sub-groups out of MPI_COMM_WORLD.
package group

// Undefined is returned by RankOfSelf when the enclosing rank is not a
// member of the group, mirroring MPI_UNDEFINED.
const Undefined = -1

// Group is an immutable ordered list of enclosing-communicator ranks.
// Position within the list is the member's rank within the group.
type Group struct {
	ranks []int
}

// New wraps an explicit, ordered list of enclosing ranks.
func New(ranks []int) *Group {
	cp := make([]int, len(ranks))
	copy(cp, ranks)
	return &Group{ranks: cp}
}

// All returns the group containing every rank [0, n) in order.
func All(n int) *Group {
	ranks := make([]int, n)
	for i := range ranks {
		ranks[i] = i
	}
	return &Group{ranks: ranks}
}

// Size returns the number of members.
func (g *Group) Size() int { return len(g.ranks) }

// EnclosingRank returns the enclosing-communicator rank of the member at
// groupRank.
func (g *Group) EnclosingRank(groupRank int) int { return g.ranks[groupRank] }

// RankOfSelf returns the group rank of the member whose enclosing rank is
// selfEnclosingRank, or Undefined if it is not a member.
func (g *Group) RankOfSelf(selfEnclosingRank int) int {
	for i, r := range g.ranks {
		if r == selfEnclosingRank {
			return i
		}
	}
	return Undefined
}

// IncludeByRange returns the sub-group formed by {lo, lo+stride, ...}
// through hi inclusive (stride may be negative), mirroring
// MPI_Group_range_incl for a single range triple.
func (g *Group) IncludeByRange(lo, hi, stride int) *Group {
	var out []int
	if stride > 0 {
		for i := lo; i <= hi; i += stride {
			out = append(out, g.ranks[i])
		}
	} else {
		for i := lo; i >= hi; i += stride {
			out = append(out, g.ranks[i])
		}
	}
	return &Group{ranks: out}
}

// ExcludeByRange returns the sub-group formed by removing
// {lo, lo+stride, ...} through hi inclusive, preserving the relative
// order of the remaining members, mirroring MPI_Group_range_excl.
func (g *Group) ExcludeByRange(lo, hi, stride int) *Group {
	excluded := make(map[int]bool)
	if stride > 0 {
		for i := lo; i <= hi; i += stride {
			excluded[i] = true
		}
	} else {
		for i := lo; i >= hi; i += stride {
			excluded[i] = true
		}
	}
	var out []int
	for i, r := range g.ranks {
		if !excluded[i] {
			out = append(out, r)
		}
	}
	return &Group{ranks: out}
}

// TranslateRanks maps a list of this group's member ranks into their
// ranks within dst, by enclosing identity, mirroring
// MPI_Group_translate_ranks. A member not present in dst maps to
// Undefined.
func (g *Group) TranslateRanks(groupRanks []int, dst *Group) []int {
	out := make([]int, len(groupRanks))
	for i, gr := range groupRanks {
		out[i] = dst.RankOfSelf(g.ranks[gr])
	}
	return out
}

// TranslateRank is the single-rank convenience form of TranslateRanks.
func (g *Group) TranslateRank(groupRank int, dst *Group) int {
	return dst.RankOfSelf(g.ranks[groupRank])
}
