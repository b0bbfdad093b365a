// Package repo contains the dual-tier orchestrators. Each repository
// composes one cached and one durable tier: writes fan out to both, reads
// are served from the cache when it can answer and fall back to durable
// storage otherwise. The repositories own no data themselves.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/recall/internal/observe"
	"github.com/felixgeelhaar/recall/internal/store"
)

// MessageRepository orchestrates the message tiers.
type MessageRepository struct {
	cache   store.MessageStore
	durable store.MessageStore
	log     *bolt.Logger
}

func NewMessageRepository(cache, durable store.MessageStore, obs *observe.Observer) *MessageRepository {
	return &MessageRepository{
		cache:   cache,
		durable: durable,
		log:     obs.Log(),
	}
}

// StoreMessage writes to both tiers concurrently and returns once both have
// finished. A failed tier is reported but never rolled back; the other
// tier's write stands. This is an accepted weak-consistency window.
func (r *MessageRepository) StoreMessage(ctx context.Context, m store.Message) error {
	return r.storeBoth(func(tier store.MessageStore) error {
		return tier.StoreMessage(ctx, m)
	})
}

// StoreMessages writes the batch to both tiers concurrently, with the same
// non-atomic policy as StoreMessage.
func (r *MessageRepository) StoreMessages(ctx context.Context, msgs []store.Message) error {
	return r.storeBoth(func(tier store.MessageStore) error {
		return tier.StoreMessages(ctx, msgs)
	})
}

func (r *MessageRepository) storeBoth(write func(store.MessageStore) error) error {
	cacheErr := make(chan error, 1)
	go func() {
		cacheErr <- write(r.cache)
	}()
	durableErr := write(r.durable)
	cached := <-cacheErr

	if cached != nil {
		cached = fmt.Errorf("cached tier: %w", cached)
	}
	if durableErr != nil {
		durableErr = fmt.Errorf("durable tier: %w", durableErr)
	}
	return errors.Join(cached, durableErr)
}

// History returns the conversation transcript. Unlimited requests bypass the
// cache entirely; it is bounded and cannot answer them correctly. Limited
// requests are served from the cache when it holds enough entries, or when
// its newest entry is a summary: the summary stands in for everything older,
// so the durable tier holds nothing the window is missing. Anything else
// escalates to the durable tier, which applies its own summary boundary.
func (r *MessageRepository) History(ctx context.Context, limit int) ([]store.Message, error) {
	if limit <= 0 {
		return r.durable.History(ctx, 0)
	}

	cached, err := r.cache.History(ctx, limit)
	if err != nil {
		r.log.Warn().Err(err).Msg("message cache read failed, falling back to durable tier")
		return r.durable.History(ctx, limit)
	}
	if len(cached) >= limit {
		return cached, nil
	}
	if n := len(cached); n > 0 && cached[n-1].Type == store.TypeSummary {
		return cached, nil
	}
	return r.durable.History(ctx, limit)
}

// ByType serves limited requests cache-first, escalating when the cache
// returns fewer than limit entries. Unlimited requests go straight to the
// durable tier.
func (r *MessageRepository) ByType(ctx context.Context, mt store.MessageType, limit int) ([]store.Message, error) {
	if limit <= 0 {
		return r.durable.ByType(ctx, mt, 0)
	}

	cached, err := r.cache.ByType(ctx, mt, limit)
	if err != nil {
		r.log.Warn().Err(err).Msg("message cache read failed, falling back to durable tier")
		return r.durable.ByType(ctx, mt, limit)
	}
	if len(cached) >= limit {
		return cached, nil
	}
	return r.durable.ByType(ctx, mt, limit)
}

// SearchRegex follows the same two-tier strategy as ByType.
func (r *MessageRepository) SearchRegex(ctx context.Context, pattern string, limit int, mt store.MessageType) ([]store.Message, error) {
	if limit <= 0 {
		return r.durable.SearchRegex(ctx, pattern, 0, mt)
	}

	cached, err := r.cache.SearchRegex(ctx, pattern, limit, mt)
	if err != nil {
		return nil, err
	}
	if len(cached) >= limit {
		return cached, nil
	}
	return r.durable.SearchRegex(ctx, pattern, limit, mt)
}

// ByID is a cache-first point lookup. A miss in both tiers yields
// (nil, nil), not an error.
func (r *MessageRepository) ByID(ctx context.Context, id string) (*store.Message, error) {
	cached, err := r.cache.ByID(ctx, id)
	if err != nil {
		r.log.Warn().Err(err).Msg("message cache lookup failed, falling back to durable tier")
	} else if cached != nil {
		return cached, nil
	}
	return r.durable.ByID(ctx, id)
}
