package store

import (
	"context"
	"math"
	"testing"

	"github.com/felixgeelhaar/recall/internal/observe"
)

func newChromemStore(t *testing.T) (*ChromemVectorStore, *fakeSessions) {
	t.Helper()
	sessions := newFakeSessions("s1", t.TempDir())
	s := NewChromemVectorStore(sessions, observe.Discard())
	t.Cleanup(func() { s.Close() })
	return s, sessions
}

func TestChromemVectorStore_StoreAndSearch(t *testing.T) {
	s, _ := newChromemStore(t)
	ctx := context.Background()

	if err := s.StoreVector(ctx, "m1", []float32{1, 0, 0}); err != nil {
		t.Fatalf("StoreVector failed: %v", err)
	}
	if err := s.StoreVector(ctx, "m2", []float32{0, 1, 0}); err != nil {
		t.Fatalf("StoreVector failed: %v", err)
	}

	matches, err := s.SearchSimilar(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("SearchSimilar failed: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("expected matches")
	}
	if matches[0].MessageID != "m1" || math.Abs(float64(matches[0].Similarity)-1.0) > 1e-5 {
		t.Errorf("expected m1 with similarity ~1.0 first, got %+v", matches[0])
	}
}

func TestChromemVectorStore_EmptyCollection(t *testing.T) {
	s, _ := newChromemStore(t)

	matches, err := s.SearchSimilar(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("SearchSimilar failed: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches from empty collection, got %v", matches)
	}
}

func TestChromemVectorStore_LimitClamped(t *testing.T) {
	s, _ := newChromemStore(t)
	ctx := context.Background()

	if err := s.StoreVector(ctx, "m1", []float32{1, 0}); err != nil {
		t.Fatalf("StoreVector failed: %v", err)
	}

	// Requesting more results than stored entries must not fail.
	matches, err := s.SearchSimilar(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("SearchSimilar failed: %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("expected 1 match, got %d", len(matches))
	}
}

func TestChromemVectorStore_RejectsEmptyVector(t *testing.T) {
	s, _ := newChromemStore(t)

	if err := s.StoreVector(context.Background(), "m1", nil); err != ErrEmptyVector {
		t.Errorf("expected ErrEmptyVector, got %v", err)
	}
	if err := s.StoreVector(context.Background(), "", []float32{1}); err != ErrEmptyID {
		t.Errorf("expected ErrEmptyID, got %v", err)
	}
}

func TestChromemVectorStore_SessionSwitch(t *testing.T) {
	s, sessions := newChromemStore(t)
	ctx := context.Background()

	if err := s.StoreVector(ctx, "m1", []float32{1, 0}); err != nil {
		t.Fatalf("StoreVector failed: %v", err)
	}

	sessions.switchTo("s2", t.TempDir())

	matches, err := s.SearchSimilar(ctx, []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("SearchSimilar failed: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected empty store for new session, got %v", matches)
	}
}
