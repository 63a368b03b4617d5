package search

import (
	"testing"

	"github.com/vaultlens/vaultlens/internal/index"
)

func TestRRFIdenticalListsPreserveOrder(t *testing.T) {
	list := []index.Hit{
		{Index: 4, Score: 0.9},
		{Index: 1, Score: 0.7},
		{Index: 7, Score: 0.5},
	}

	fused := fuseRRF(list, list, DefaultSemanticWeight, DefaultKeywordWeight, DefaultRRFConstant)
	if len(fused) != len(list) {
		t.Fatalf("fused %d hits, want %d", len(fused), len(list))
	}
	for i := range list {
		if fused[i].Index != list[i].Index {
			t.Errorf("position %d: doc %d, want %d", i, fused[i].Index, list[i].Index)
		}
	}
}

func TestRRFAbsentDocContributesZero(t *testing.T) {
	semantic := []index.Hit{{Index: 0, Score: 0.9}}
	keyword := []index.Hit{{Index: 0, Score: 3.0}, {Index: 1, Score: 2.0}}

	fused := fuseRRF(semantic, keyword, 0.7, 0.3, 60)
	if len(fused) != 2 {
		t.Fatalf("fused %d hits, want 2", len(fused))
	}
	if fused[0].Index != 0 {
		t.Errorf("top doc = %d, want 0 (present in both lists)", fused[0].Index)
	}

	wantTop := 0.7/61 + 0.3/61
	if diff := fused[0].Score - wantTop; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("top score = %v, want %v", fused[0].Score, wantTop)
	}
	wantSecond := 0.3 / 62
	if diff := fused[1].Score - wantSecond; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("second score = %v, want %v", fused[1].Score, wantSecond)
	}
}

func TestRRFTieBreaksBySmallerIndex(t *testing.T) {
	semantic := []index.Hit{{Index: 5, Score: 0.9}}
	keyword := []index.Hit{{Index: 2, Score: 1.0}}

	// Equal weights, both docs at rank 1 of their list: exact tie.
	fused := fuseRRF(semantic, keyword, 0.5, 0.5, 60)
	if fused[0].Index != 2 || fused[1].Index != 5 {
		t.Errorf("tie order = %d, %d; want 2, 5", fused[0].Index, fused[1].Index)
	}
}

func TestRRFCarriesMatchedTerms(t *testing.T) {
	keyword := []index.Hit{{Index: 0, Score: 1.0, Terms: []string{"tdd"}}}

	fused := fuseRRF(nil, keyword, 0.7, 0.3, 60)
	if len(fused) != 1 || len(fused[0].Terms) != 1 || fused[0].Terms[0] != "tdd" {
		t.Errorf("fused = %+v, want matched terms preserved", fused)
	}
}

func TestFuseRankListsRewardsRecurringDocs(t *testing.T) {
	lists := [][]index.Hit{
		{{Index: 0, Score: 1}, {Index: 1, Score: 0.5}},
		{{Index: 1, Score: 2}, {Index: 2, Score: 1}},
		{{Index: 1, Score: 9}},
	}

	fused := fuseRankLists(lists, 60)
	if len(fused) != 3 {
		t.Fatalf("fused %d docs, want 3", len(fused))
	}
	if fused[0].Index != 1 {
		t.Errorf("top doc = %d, want 1 (appears in all three lists)", fused[0].Index)
	}
}

func TestFuseAdditiveWeightsNativeScores(t *testing.T) {
	semantic := []index.Hit{{Index: 0, Score: 0.8}, {Index: 1, Score: 0.6}}

	fused := fuseAdditive(semantic, nil, 0.7, 0.3)
	if len(fused) != 2 || fused[0].Index != 0 {
		t.Fatalf("fused = %+v", fused)
	}
	if diff := fused[0].Score - 0.7*0.8; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("score = %v, want %v", fused[0].Score, 0.7*0.8)
	}
}
