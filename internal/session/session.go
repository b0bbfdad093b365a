// Package session owns the identity of the active conversation session and
// notifies subscribers when it changes. The cache tiers scope their contents
// to the active session through the Provider capability.
package session

import (
	"errors"
	"time"
)

var (
	// ErrNoSession indicates no session could be resolved or created.
	ErrNoSession = errors.New("session: no active session")
	// ErrInvalidName indicates the provided session name is empty or malformed.
	ErrInvalidName = errors.New("session: invalid session name")
)

// Descriptor identifies a session and the directory that owns its stores.
type Descriptor struct {
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
	Path       string    `json:"-"`
}

// EventKind classifies a session change notification.
type EventKind string

const (
	// EventSwitched means the active session identity changed.
	EventSwitched EventKind = "session-switched"
	// EventUpdated means the same session had its timestamp refreshed.
	EventUpdated EventKind = "session-updated"
)

// Event is delivered to subscribers on every session change.
type Event struct {
	Kind     EventKind
	Active   Descriptor
	Previous *Descriptor
}

// Handler receives session change events.
type Handler func(Event)

// Provider is the capability the storage tiers depend on. Consumers bind
// lazily to the first descriptor seen and rely on events afterwards.
type Provider interface {
	// Active returns the current session, creating one if none exists.
	Active() (Descriptor, error)

	// Subscribe registers a handler for session change events and returns
	// a function that unregisters it.
	Subscribe(h Handler) (unsubscribe func())
}
