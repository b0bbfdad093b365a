package store

import (
	"sync"
	"time"

	"github.com/felixgeelhaar/recall/internal/session"
)

// fakeSessions is an in-memory session provider for store tests.
type fakeSessions struct {
	mu          sync.Mutex
	active      session.Descriptor
	handlers    []session.Handler
	activeCalls int
}

func newFakeSessions(name, path string) *fakeSessions {
	now := time.Now().UTC()
	return &fakeSessions{
		active: session.Descriptor{
			Name:       name,
			CreatedAt:  now,
			LastActive: now,
			Path:       path,
		},
	}
}

func (f *fakeSessions) Active() (session.Descriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activeCalls++
	return f.active, nil
}

func (f *fakeSessions) Subscribe(h session.Handler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, h)
	return func() {}
}

func (f *fakeSessions) switchTo(name, path string) {
	f.mu.Lock()
	previous := f.active
	now := time.Now().UTC()
	f.active = session.Descriptor{Name: name, CreatedAt: now, LastActive: now, Path: path}
	ev := session.Event{Kind: session.EventSwitched, Active: f.active, Previous: &previous}
	handlers := append([]session.Handler(nil), f.handlers...)
	f.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

func msg(id string, mt MessageType, content string, ts time.Time) Message {
	return Message{
		ID:        id,
		Type:      mt,
		Content:   content,
		Sender:    "tester",
		Timestamp: ts,
	}
}

func messageIDs(msgs []Message) []string {
	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	return ids
}

func equalIDs(a []string, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
