package repo

import (
	"errors"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/recall/internal/config"
	"github.com/felixgeelhaar/recall/internal/observe"
	"github.com/felixgeelhaar/recall/internal/provider"
	"github.com/felixgeelhaar/recall/internal/session"
	"github.com/felixgeelhaar/recall/internal/store"
)

// Factory wires the session provider, tiers, and repositories from
// configuration. Each component is built once and memoized; Close tears
// everything down.
type Factory struct {
	cfg config.Config
	obs *observe.Observer

	mu       sync.Mutex
	sessions *session.Manager
	embedder provider.Embedder
	sqlite   *store.SQLiteStore
	chromem  *store.ChromemVectorStore
	msgCache *store.CachedMessageStore
	vecCache *store.CachedVectorStore
	messages *MessageRepository
	vectors  *VectorRepository
	semantic *SemanticMessageRepository
}

func NewFactory(cfg config.Config, obs *observe.Observer) *Factory {
	return &Factory{cfg: cfg, obs: obs}
}

// Sessions returns the shared session provider.
func (f *Factory) Sessions() *session.Manager {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessionsLocked()
}

func (f *Factory) sessionsLocked() *session.Manager {
	if f.sessions == nil {
		f.sessions = session.NewManager(f.cfg.DataDir, f.obs)
	}
	return f.sessions
}

// Embedder returns the configured embedding provider. Configuration errors
// fall back to the unavailable embedder so the layer keeps operating in
// message-only mode.
func (f *Factory) Embedder() provider.Embedder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.embedderLocked()
}

func (f *Factory) embedderLocked() provider.Embedder {
	if f.embedder == nil {
		e, err := provider.FromConfig(f.cfg.Embedding)
		if err != nil {
			f.obs.Log().Warn().Err(err).Msg("embedding provider unavailable, semantic search disabled")
		}
		f.embedder = e
	}
	return f.embedder
}

func (f *Factory) sqliteLocked() *store.SQLiteStore {
	if f.sqlite == nil {
		f.sqlite = store.NewSQLiteStore(f.sessionsLocked(), f.obs)
	}
	return f.sqlite
}

// Messages returns the dual-tier message repository.
func (f *Factory) Messages() *MessageRepository {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messagesLocked()
}

func (f *Factory) messagesLocked() *MessageRepository {
	if f.messages == nil {
		f.msgCache = store.NewCachedMessageStore(f.sessionsLocked(), f.cfg.Cache.MessageLimit, f.obs)
		f.messages = NewMessageRepository(f.msgCache, f.sqliteLocked(), f.obs)
	}
	return f.messages
}

// Vectors returns the dual-tier vector repository. The durable tier is
// selected by the vector_backend setting: sqlite shares the session database,
// chromem keeps its own per-session persistent collection.
func (f *Factory) Vectors() (*VectorRepository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vectorsLocked()
}

func (f *Factory) vectorsLocked() (*VectorRepository, error) {
	if f.vectors != nil {
		return f.vectors, nil
	}

	var durable store.VectorStore
	switch f.cfg.VectorBackend {
	case "", "sqlite":
		durable = f.sqliteLocked()
	case "chromem":
		f.chromem = store.NewChromemVectorStore(f.sessionsLocked(), f.obs)
		durable = f.chromem
	default:
		return nil, fmt.Errorf("unknown vector backend: %s", f.cfg.VectorBackend)
	}

	f.vecCache = store.NewCachedVectorStore(f.sessionsLocked(), f.cfg.Cache.VectorLimit, f.obs)
	f.vectors = NewVectorRepository(f.vecCache, durable, f.obs)
	return f.vectors, nil
}

// Semantic returns the natural-language repository over the message and
// vector repositories.
func (f *Factory) Semantic() (*SemanticMessageRepository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.semantic == nil {
		vectors, err := f.vectorsLocked()
		if err != nil {
			return nil, err
		}
		f.semantic = NewSemanticMessageRepository(f.messagesLocked(), vectors, f.embedderLocked(), f.obs)
	}
	return f.semantic, nil
}

// Close releases every component the factory has built so far.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	if f.msgCache != nil {
		errs = append(errs, f.msgCache.Close())
	}
	if f.vecCache != nil {
		errs = append(errs, f.vecCache.Close())
	}
	if f.sqlite != nil {
		errs = append(errs, f.sqlite.Close())
	}
	if f.chromem != nil {
		errs = append(errs, f.chromem.Close())
	}

	f.msgCache, f.vecCache, f.sqlite, f.chromem = nil, nil, nil, nil
	f.messages, f.vectors, f.semantic = nil, nil, nil
	f.sessions, f.embedder = nil, nil
	return errors.Join(errs...)
}
