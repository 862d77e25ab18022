package group

import "testing"

func TestIncludeExcludeComplement(t *testing.T) {
	g := All(8)
	included := g.IncludeByRange(0, 6, 2) // 0,2,4,6
	excluded := g.ExcludeByRange(0, 6, 2) // 1,3,5,7

	if included.Size()+excluded.Size() != g.Size() {
		t.Fatalf("include+exclude sizes = %d+%d, want %d", included.Size(), excluded.Size(), g.Size())
	}
	for i := 0; i < included.Size(); i++ {
		if included.EnclosingRank(i)%2 != 0 {
			t.Errorf("included[%d] = %d, want even", i, included.EnclosingRank(i))
		}
	}
	for i := 0; i < excluded.Size(); i++ {
		if excluded.EnclosingRank(i)%2 != 1 {
			t.Errorf("excluded[%d] = %d, want odd", i, excluded.EnclosingRank(i))
		}
	}
}

func TestRankOfSelfUndefined(t *testing.T) {
	g := New([]int{2, 4, 6})
	if r := g.RankOfSelf(5); r != Undefined {
		t.Errorf("RankOfSelf(5) = %d, want Undefined", r)
	}
	if r := g.RankOfSelf(4); r != 1 {
		t.Errorf("RankOfSelf(4) = %d, want 1", r)
	}
}

func TestTranslateRanks(t *testing.T) {
	full := All(8)
	sub := full.IncludeByRange(1, 7, 2) // enclosing ranks 1,3,5,7
	other := New([]int{3, 7})

	translated := sub.TranslateRanks([]int{1, 3}, other) // sub-ranks 1,3 -> enclosing 3,7
	if translated[0] != 0 || translated[1] != 1 {
		t.Errorf("TranslateRanks = %v, want [0 1]", translated)
	}

	translated2 := sub.TranslateRanks([]int{0}, other) // enclosing rank 1, not in other
	if translated2[0] != Undefined {
		t.Errorf("TranslateRanks of non-member = %d, want Undefined", translated2[0])
	}
}
