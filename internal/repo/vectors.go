package repo

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/recall/internal/observe"
	"github.com/felixgeelhaar/recall/internal/store"
)

// VectorRepository orchestrates the embedding tiers.
type VectorRepository struct {
	cache   store.VectorStore
	durable store.VectorStore
	log     *bolt.Logger
}

func NewVectorRepository(cache, durable store.VectorStore, obs *observe.Observer) *VectorRepository {
	return &VectorRepository{
		cache:   cache,
		durable: durable,
		log:     obs.Log(),
	}
}

// StoreVector writes the embedding to both tiers concurrently. As with
// messages, a failed tier is reported but not rolled back.
func (r *VectorRepository) StoreVector(ctx context.Context, messageID string, embedding []float32) error {
	cacheErr := make(chan error, 1)
	go func() {
		cacheErr <- r.cache.StoreVector(ctx, messageID, embedding)
	}()
	durableErr := r.durable.StoreVector(ctx, messageID, embedding)
	cached := <-cacheErr

	if cached != nil {
		cached = fmt.Errorf("cached tier: %w", cached)
	}
	if durableErr != nil {
		durableErr = fmt.Errorf("durable tier: %w", durableErr)
	}
	return errors.Join(cached, durableErr)
}

// SearchSimilar queries both tiers concurrently and merges by message id.
// When both tiers score the same message, the cached score wins: the cache
// always holds the most recently written embedding for an id, so its score
// reflects the freshest data. Results are sorted by similarity descending,
// ties broken by message id, and truncated to limit.
func (r *VectorRepository) SearchSimilar(ctx context.Context, query []float32, limit int) ([]store.VectorMatch, error) {
	type result struct {
		matches []store.VectorMatch
		err     error
	}
	cacheRes := make(chan result, 1)
	go func() {
		m, err := r.cache.SearchSimilar(ctx, query, limit)
		cacheRes <- result{m, err}
	}()

	durableMatches, durableErr := r.durable.SearchSimilar(ctx, query, limit)
	cached := <-cacheRes

	if cached.err != nil && durableErr != nil {
		return nil, errors.Join(
			fmt.Errorf("cached tier: %w", cached.err),
			fmt.Errorf("durable tier: %w", durableErr),
		)
	}
	if cached.err != nil {
		r.log.Warn().Err(cached.err).Msg("vector cache search failed, using durable results only")
	}
	if durableErr != nil {
		r.log.Warn().Err(durableErr).Msg("durable vector search failed, using cached results only")
	}

	merged := make(map[string]float32, len(durableMatches)+len(cached.matches))
	for _, m := range durableMatches {
		merged[m.MessageID] = m.Similarity
	}
	for _, m := range cached.matches {
		merged[m.MessageID] = m.Similarity
	}

	out := make([]store.VectorMatch, 0, len(merged))
	for id, score := range merged {
		out = append(out, store.VectorMatch{MessageID: id, Similarity: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].MessageID < out[j].MessageID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
