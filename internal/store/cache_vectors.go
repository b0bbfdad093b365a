package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/recall/internal/observe"
	"github.com/felixgeelhaar/recall/internal/session"
)

type vectorEntry struct {
	messageID string
	embedding []float32
	storedAt  time.Time
}

// CachedVectorStore is the bounded in-memory vector tier. Entries are kept in
// store order; when the bound is exceeded the oldest entries are discarded
// synchronously after the write. The cache clears itself on session switch.
type CachedVectorStore struct {
	sessions    session.Provider
	limit       int
	log         *bolt.Logger
	unsubscribe func()

	mu      sync.Mutex
	bound   bool
	session string
	entries []vectorEntry // oldest first
}

// NewCachedVectorStore creates a vector cache holding at most limit entries
// and subscribes it to session change notifications.
func NewCachedVectorStore(sessions session.Provider, limit int, obs *observe.Observer) *CachedVectorStore {
	s := &CachedVectorStore{
		sessions: sessions,
		limit:    limit,
		log:      obs.Log(),
	}
	s.unsubscribe = sessions.Subscribe(s.onSessionChange)
	return s
}

// Close unregisters the session listener.
func (s *CachedVectorStore) Close() error {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	return nil
}

func (s *CachedVectorStore) onSessionChange(ev session.Event) {
	if ev.Kind != session.EventSwitched {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.session = ev.Active.Name
	s.bound = true
	s.log.Debug().Str("session", ev.Active.Name).Msg("vector cache cleared on session switch")
}

// bind resolves the active session on first use. Must be called with the
// mutex held.
func (s *CachedVectorStore) bind() error {
	if s.bound {
		return nil
	}
	d, err := s.sessions.Active()
	if err != nil {
		return fmt.Errorf("failed to bind vector cache to session: %w", err)
	}
	s.session = d.Name
	s.bound = true
	return nil
}

func (s *CachedVectorStore) StoreVector(ctx context.Context, messageID string, embedding []float32) error {
	if messageID == "" {
		return ErrEmptyID
	}
	if len(embedding) == 0 {
		return ErrEmptyVector
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.bind(); err != nil {
		return err
	}

	entry := vectorEntry{
		messageID: messageID,
		embedding: cloneVector(embedding),
		storedAt:  time.Now(),
	}

	// Upsert by message ID: drop any previous entry before appending, so
	// the replacement counts as the newest.
	for i := range s.entries {
		if s.entries[i].messageID == messageID {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	s.entries = append(s.entries, entry)

	if s.limit > 0 && len(s.entries) > s.limit {
		dropped := len(s.entries) - s.limit
		s.entries = append([]vectorEntry(nil), s.entries[dropped:]...)
		s.log.Debug().Int("dropped", dropped).Msg("vector cache evicted oldest entries")
	}
	return nil
}

func (s *CachedVectorStore) SearchSimilar(ctx context.Context, query []float32, limit int) ([]VectorMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.bind(); err != nil {
		return nil, err
	}

	// Full linear scan over the bounded set.
	var matches []VectorMatch
	for _, e := range s.entries {
		score := cosineSimilarity(query, e.embedding)
		if score < 0 {
			continue
		}
		matches = append(matches, VectorMatch{MessageID: e.messageID, Similarity: score})
	}

	sortMatches(matches)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Len reports the number of cached entries.
func (s *CachedVectorStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
