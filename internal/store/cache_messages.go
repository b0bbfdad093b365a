package store

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/recall/internal/observe"
	"github.com/felixgeelhaar/recall/internal/session"
)

// CachedMessageStore is the bounded in-memory message tier. It binds lazily
// to the active session and drops its entire contents when the session
// switches. Operations racing a switch may complete against the old
// session's data; the clear always wins afterwards.
type CachedMessageStore struct {
	sessions    session.Provider
	limit       int
	log         *bolt.Logger
	unsubscribe func()

	mu       sync.Mutex
	bound    bool
	session  string
	messages []Message // chronological, oldest first
}

// NewCachedMessageStore creates a message cache holding at most limit
// entries and subscribes it to session change notifications.
func NewCachedMessageStore(sessions session.Provider, limit int, obs *observe.Observer) *CachedMessageStore {
	s := &CachedMessageStore{
		sessions: sessions,
		limit:    limit,
		log:      obs.Log(),
	}
	s.unsubscribe = sessions.Subscribe(s.onSessionChange)
	return s
}

// Close unregisters the session listener. The cached contents stay readable.
func (s *CachedMessageStore) Close() error {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	return nil
}

func (s *CachedMessageStore) onSessionChange(ev session.Event) {
	if ev.Kind != session.EventSwitched {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.session = ev.Active.Name
	s.bound = true
	s.log.Debug().Str("session", ev.Active.Name).Msg("message cache cleared on session switch")
}

// bind resolves the active session on first use. Must be called with the
// mutex held.
func (s *CachedMessageStore) bind() error {
	if s.bound {
		return nil
	}
	d, err := s.sessions.Active()
	if err != nil {
		return fmt.Errorf("failed to bind message cache to session: %w", err)
	}
	s.session = d.Name
	s.bound = true
	return nil
}

func (s *CachedMessageStore) StoreMessage(ctx context.Context, msg Message) error {
	if msg.ID == "" {
		return ErrEmptyID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.bind(); err != nil {
		return err
	}

	s.upsert(msg)
	s.evict()
	return nil
}

func (s *CachedMessageStore) StoreMessages(ctx context.Context, msgs []Message) error {
	for _, m := range msgs {
		if m.ID == "" {
			return ErrEmptyID
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.bind(); err != nil {
		return err
	}

	for _, m := range msgs {
		s.upsert(m)
	}
	s.evict()
	return nil
}

// upsert replaces an existing entry with the same ID or appends a new one,
// keeping the slice ordered by timestamp. Must be called with the mutex held.
func (s *CachedMessageStore) upsert(msg Message) {
	msg = cloneMessage(msg)
	for i := range s.messages {
		if s.messages[i].ID == msg.ID {
			s.messages[i] = msg
			sort.SliceStable(s.messages, func(a, b int) bool {
				return s.messages[a].Timestamp.Before(s.messages[b].Timestamp)
			})
			return
		}
	}
	s.messages = append(s.messages, msg)
	sort.SliceStable(s.messages, func(a, b int) bool {
		return s.messages[a].Timestamp.Before(s.messages[b].Timestamp)
	})
}

// evict discards the oldest entries down to the configured bound. Runs
// synchronously after every write. Must be called with the mutex held.
func (s *CachedMessageStore) evict() {
	if s.limit <= 0 || len(s.messages) <= s.limit {
		return
	}
	dropped := len(s.messages) - s.limit
	s.messages = append([]Message(nil), s.messages[dropped:]...)
	s.log.Debug().Int("dropped", dropped).Msg("message cache evicted oldest entries")
}

func (s *CachedMessageStore) History(ctx context.Context, limit int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.bind(); err != nil {
		return nil, err
	}

	msgs := s.messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return cloneMessages(msgs), nil
}

func (s *CachedMessageStore) ByType(ctx context.Context, mt MessageType, limit int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.bind(); err != nil {
		return nil, err
	}

	var matched []Message
	for _, m := range s.messages {
		if m.Type == mt {
			matched = append(matched, m)
		}
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return cloneMessages(matched), nil
}

func (s *CachedMessageStore) SearchRegex(ctx context.Context, pattern string, limit int, mt MessageType) ([]Message, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid search pattern: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.bind(); err != nil {
		return nil, err
	}

	var matched []Message
	for _, m := range s.messages {
		if mt != "" && m.Type != mt {
			continue
		}
		if re.MatchString(m.Content) {
			matched = append(matched, m)
		}
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return cloneMessages(matched), nil
}

func (s *CachedMessageStore) ByID(ctx context.Context, id string) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.bind(); err != nil {
		return nil, err
	}

	for _, m := range s.messages {
		if m.ID == id {
			found := cloneMessage(m)
			return &found, nil
		}
	}
	return nil, nil
}

// Len reports the number of cached entries.
func (s *CachedMessageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
