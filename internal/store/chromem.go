package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/felixgeelhaar/bolt/v3"
	chromem "github.com/philippgille/chromem-go"

	"github.com/felixgeelhaar/recall/internal/observe"
	"github.com/felixgeelhaar/recall/internal/session"
)

const chromemDir = "vectors"

// ChromemVectorStore is a durable vector tier backed by chromem-go, an
// embedded pure-Go vector database. Each session owns a persistent database
// under its session directory; a session switch rebinds to the new one.
type ChromemVectorStore struct {
	sessions    session.Provider
	log         *bolt.Logger
	unsubscribe func()

	mu  sync.Mutex
	col *chromem.Collection
	dir string
}

// NewChromemVectorStore creates the store. The underlying database is opened
// lazily on first use.
func NewChromemVectorStore(sessions session.Provider, obs *observe.Observer) *ChromemVectorStore {
	s := &ChromemVectorStore{
		sessions: sessions,
		log:      obs.Log(),
	}
	s.unsubscribe = sessions.Subscribe(s.onSessionChange)
	return s
}

// Close unregisters the session listener. chromem keeps no open handles.
func (s *ChromemVectorStore) Close() error {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	return nil
}

func (s *ChromemVectorStore) onSessionChange(ev session.Event) {
	if ev.Kind != session.EventSwitched {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.col = nil
	s.dir = ev.Active.Path
	s.log.Debug().Str("session", ev.Active.Name).Msg("chromem store rebound to new session")
}

// collection resolves the session's vector collection, opening the
// persistent database on first use. Must be called with the mutex held.
func (s *ChromemVectorStore) collection() (*chromem.Collection, error) {
	if s.col != nil {
		return s.col, nil
	}

	if s.dir == "" {
		d, err := s.sessions.Active()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve session for chromem store: %w", err)
		}
		s.dir = d.Path
	}

	db, err := chromem.NewPersistentDB(filepath.Join(s.dir, chromemDir), false)
	if err != nil {
		return nil, fmt.Errorf("failed to open chromem database: %w", err)
	}

	// Embeddings are always provided by the caller, so no embedding func.
	col, err := db.GetOrCreateCollection("messages", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open chromem collection: %w", err)
	}

	s.col = col
	return col, nil
}

func (s *ChromemVectorStore) StoreVector(ctx context.Context, messageID string, embedding []float32) error {
	if messageID == "" {
		return ErrEmptyID
	}
	if len(embedding) == 0 {
		return ErrEmptyVector
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	col, err := s.collection()
	if err != nil {
		return err
	}

	doc := chromem.Document{
		ID:        messageID,
		Content:   messageID,
		Embedding: cloneVector(embedding),
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to store vector: %w", err)
	}
	return nil
}

func (s *ChromemVectorStore) SearchSimilar(ctx context.Context, query []float32, limit int) ([]VectorMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, err := s.collection()
	if err != nil {
		return nil, err
	}

	// chromem requires nResults <= collection size.
	n := col.Count()
	if n == 0 {
		return nil, nil
	}
	if limit > 0 && limit < n {
		n = limit
	}

	results, err := col.QueryEmbedding(ctx, cloneVector(query), n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	var matches []VectorMatch
	for _, r := range results {
		if r.Similarity < 0 {
			continue
		}
		matches = append(matches, VectorMatch{MessageID: r.ID, Similarity: r.Similarity})
	}
	sortMatches(matches)
	return matches, nil
}
