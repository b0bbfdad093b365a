package repo

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"time"

	"github.com/felixgeelhaar/recall/internal/store"
)

func msg(id string, mt store.MessageType, content string, ts time.Time) store.Message {
	return store.Message{ID: id, Type: mt, Content: content, Timestamp: ts}
}

func messageIDs(msgs []store.Message) []string {
	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	return ids
}

func equalIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// fakeMessageStore is an in-memory MessageStore that records calls and can be
// forced to fail, standing in for either tier.
type fakeMessageStore struct {
	mu       sync.Mutex
	messages []store.Message

	failWrites error
	failReads  error

	storeCalls   int
	historyCalls int
	byTypeCalls  int
	searchCalls  int
	byIDCalls    int
}

func (f *fakeMessageStore) StoreMessage(ctx context.Context, m store.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storeCalls++
	if f.failWrites != nil {
		return f.failWrites
	}
	for i, existing := range f.messages {
		if existing.ID == m.ID {
			f.messages[i] = m
			return nil
		}
	}
	f.messages = append(f.messages, m)
	return nil
}

func (f *fakeMessageStore) StoreMessages(ctx context.Context, msgs []store.Message) error {
	var errs []error
	for _, m := range msgs {
		errs = append(errs, f.StoreMessage(ctx, m))
	}
	return errors.Join(errs...)
}

func (f *fakeMessageStore) History(ctx context.Context, limit int) ([]store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls++
	if f.failReads != nil {
		return nil, f.failReads
	}
	out := f.messages
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return append([]store.Message(nil), out...), nil
}

func (f *fakeMessageStore) ByType(ctx context.Context, mt store.MessageType, limit int) ([]store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byTypeCalls++
	if f.failReads != nil {
		return nil, f.failReads
	}
	var out []store.Message
	for _, m := range f.messages {
		if m.Type == mt {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeMessageStore) SearchRegex(ctx context.Context, pattern string, limit int, mt store.MessageType) ([]store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	if f.failReads != nil {
		return nil, f.failReads
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	var out []store.Message
	for _, m := range f.messages {
		if mt != "" && m.Type != mt {
			continue
		}
		if re.MatchString(m.Content) {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeMessageStore) ByID(ctx context.Context, id string) (*store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byIDCalls++
	if f.failReads != nil {
		return nil, f.failReads
	}
	for _, m := range f.messages {
		if m.ID == id {
			out := m
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeMessageStore) calls() (stores, reads int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.storeCalls, f.historyCalls + f.byTypeCalls + f.searchCalls + f.byIDCalls
}

// fakeVectorStore is an in-memory VectorStore with preset search results.
type fakeVectorStore struct {
	mu      sync.Mutex
	vectors map[string][]float32
	results []store.VectorMatch

	failWrites error
	failReads  error

	storeCalls  int
	searchCalls int
	lastLimit   int
}

func newFakeVectorStore(results ...store.VectorMatch) *fakeVectorStore {
	return &fakeVectorStore{
		vectors: make(map[string][]float32),
		results: results,
	}
}

func (f *fakeVectorStore) StoreVector(ctx context.Context, messageID string, embedding []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storeCalls++
	if f.failWrites != nil {
		return f.failWrites
	}
	f.vectors[messageID] = append([]float32(nil), embedding...)
	return nil
}

func (f *fakeVectorStore) SearchSimilar(ctx context.Context, query []float32, limit int) ([]store.VectorMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	f.lastLimit = limit
	if f.failReads != nil {
		return nil, f.failReads
	}
	out := f.results
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return append([]store.VectorMatch(nil), out...), nil
}
