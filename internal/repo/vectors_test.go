package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/recall/internal/observe"
	"github.com/felixgeelhaar/recall/internal/store"
)

func TestVectorRepository_StoreWritesBothTiers(t *testing.T) {
	cache := newFakeVectorStore()
	durable := newFakeVectorStore()
	r := NewVectorRepository(cache, durable, observe.Discard())

	if err := r.StoreVector(context.Background(), "m1", []float32{1, 0}); err != nil {
		t.Fatalf("StoreVector failed: %v", err)
	}

	if cache.storeCalls != 1 || durable.storeCalls != 1 {
		t.Errorf("expected 1 write per tier, got cache=%d durable=%d", cache.storeCalls, durable.storeCalls)
	}
}

func TestVectorRepository_StoreSurvivesTierFailure(t *testing.T) {
	cache := newFakeVectorStore()
	durable := newFakeVectorStore()
	r := NewVectorRepository(cache, durable, observe.Discard())

	tierDown := errors.New("tier down")
	durable.failWrites = tierDown

	err := r.StoreVector(context.Background(), "m1", []float32{1, 0})
	if !errors.Is(err, tierDown) {
		t.Fatalf("expected tier failure to surface, got %v", err)
	}
	if len(cache.vectors) != 1 {
		t.Error("expected cache write to survive durable failure")
	}
}

func TestVectorRepository_SearchMergesTiers(t *testing.T) {
	// m1 only in the cache, m3 only durable, m2 in both with a fresher
	// cached score.
	cache := newFakeVectorStore(
		store.VectorMatch{MessageID: "m1", Similarity: 0.9},
		store.VectorMatch{MessageID: "m2", Similarity: 0.8},
	)
	durable := newFakeVectorStore(
		store.VectorMatch{MessageID: "m2", Similarity: 0.5},
		store.VectorMatch{MessageID: "m3", Similarity: 0.4},
	)
	r := NewVectorRepository(cache, durable, observe.Discard())

	matches, err := r.SearchSimilar(context.Background(), []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("SearchSimilar failed: %v", err)
	}

	want := []store.VectorMatch{
		{MessageID: "m1", Similarity: 0.9},
		{MessageID: "m2", Similarity: 0.8},
		{MessageID: "m3", Similarity: 0.4},
	}
	if len(matches) != len(want) {
		t.Fatalf("expected %d matches, got %d", len(want), len(matches))
	}
	for i := range want {
		if matches[i] != want[i] {
			t.Errorf("match %d: expected %+v, got %+v", i, want[i], matches[i])
		}
	}
}

func TestVectorRepository_SearchTruncatesAfterMerge(t *testing.T) {
	cache := newFakeVectorStore(store.VectorMatch{MessageID: "m1", Similarity: 0.9})
	durable := newFakeVectorStore(
		store.VectorMatch{MessageID: "m2", Similarity: 0.8},
		store.VectorMatch{MessageID: "m3", Similarity: 0.7},
	)
	r := NewVectorRepository(cache, durable, observe.Discard())

	matches, err := r.SearchSimilar(context.Background(), []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("SearchSimilar failed: %v", err)
	}
	if !equalMatchIDs(matches, []string{"m1", "m2"}) {
		t.Errorf("expected top 2 after merge, got %+v", matches)
	}
}

func TestVectorRepository_SearchTieBreak(t *testing.T) {
	cache := newFakeVectorStore(
		store.VectorMatch{MessageID: "mB", Similarity: 0.5},
		store.VectorMatch{MessageID: "mA", Similarity: 0.5},
	)
	durable := newFakeVectorStore()
	r := NewVectorRepository(cache, durable, observe.Discard())

	matches, err := r.SearchSimilar(context.Background(), []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("SearchSimilar failed: %v", err)
	}
	if !equalMatchIDs(matches, []string{"mA", "mB"}) {
		t.Errorf("expected deterministic id tie-break, got %+v", matches)
	}
}

func TestVectorRepository_SearchToleratesOneTierFailure(t *testing.T) {
	cache := newFakeVectorStore(store.VectorMatch{MessageID: "m1", Similarity: 0.9})
	durable := newFakeVectorStore()
	durable.failReads = errors.New("tier down")
	r := NewVectorRepository(cache, durable, observe.Discard())

	matches, err := r.SearchSimilar(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("expected degraded result, got error: %v", err)
	}
	if !equalMatchIDs(matches, []string{"m1"}) {
		t.Errorf("expected cached results, got %+v", matches)
	}
}

func TestVectorRepository_SearchFailsWhenBothTiersFail(t *testing.T) {
	cache := newFakeVectorStore()
	durable := newFakeVectorStore()
	cache.failReads = errors.New("cache down")
	durable.failReads = errors.New("durable down")
	r := NewVectorRepository(cache, durable, observe.Discard())

	if _, err := r.SearchSimilar(context.Background(), []float32{1, 0}, 5); err == nil {
		t.Error("expected error when both tiers fail")
	}
}

func equalMatchIDs(matches []store.VectorMatch, want []string) bool {
	if len(matches) != len(want) {
		return false
	}
	for i := range want {
		if matches[i].MessageID != want[i] {
			return false
		}
	}
	return true
}
