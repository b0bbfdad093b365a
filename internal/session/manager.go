package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/recall/internal/observe"
)

const metadataFile = "session.json"

// Manager is the file-backed session provider. Each session owns a directory
// under <root>/sessions/<name> holding a small metadata file and the durable
// stores. Exactly one session is active at a time.
type Manager struct {
	root string
	log  *bolt.Logger

	mu       sync.Mutex
	active   *Descriptor
	handlers map[int]Handler
	nextID   int
}

// NewManager creates a Manager rooted at dir. No session is resolved until
// Active or Switch is called.
func NewManager(dir string, obs *observe.Observer) *Manager {
	return &Manager{
		root:     filepath.Join(dir, "sessions"),
		log:      obs.Log(),
		handlers: make(map[int]Handler),
	}
}

// Active returns the current session descriptor. On first call it resumes the
// most recently active session on disk, or creates a fresh one if none exist.
func (m *Manager) Active() (Descriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return *m.active, nil
	}

	d, err := m.resumeLatest()
	if err != nil {
		return Descriptor{}, err
	}
	if d == nil {
		created, err := m.create()
		if err != nil {
			return Descriptor{}, err
		}
		d = created
	}

	m.active = d
	m.log.Info().Str("session", d.Name).Msg("session bound")
	return *d, nil
}

// Switch creates a new session, makes it active and notifies subscribers.
func (m *Manager) Switch() (Descriptor, error) {
	m.mu.Lock()
	previous := m.active
	d, err := m.create()
	if err != nil {
		m.mu.Unlock()
		return Descriptor{}, err
	}
	m.active = d
	handlers := m.snapshotHandlers()
	m.mu.Unlock()

	m.log.Info().Str("session", d.Name).Msg("session switched")
	m.emit(handlers, Event{Kind: EventSwitched, Active: *d, Previous: previous})
	return *d, nil
}

// Touch refreshes the active session's last-active timestamp, persists it and
// notifies subscribers with a session-updated event.
func (m *Manager) Touch() error {
	m.mu.Lock()
	if m.active == nil {
		m.mu.Unlock()
		return ErrNoSession
	}
	m.active.LastActive = time.Now().UTC()
	d := *m.active
	handlers := m.snapshotHandlers()
	err := writeMetadata(d)
	m.mu.Unlock()

	if err != nil {
		return err
	}
	m.emit(handlers, Event{Kind: EventUpdated, Active: d})
	return nil
}

// Subscribe registers a handler for session change events. The returned
// function unregisters it; calling it more than once is harmless.
func (m *Manager) Subscribe(h Handler) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.handlers[id] = h

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.handlers, id)
	}
}

// snapshotHandlers must be called with the mutex held.
func (m *Manager) snapshotHandlers() []Handler {
	out := make([]Handler, 0, len(m.handlers))
	for _, h := range m.handlers {
		out = append(out, h)
	}
	return out
}

// emit runs outside the mutex so handlers can call back into the Manager.
func (m *Manager) emit(handlers []Handler, ev Event) {
	for _, h := range handlers {
		h(ev)
	}
}

// create allocates a session directory named after its creation time and
// persists the metadata file. Must be called with the mutex held.
func (m *Manager) create() (*Descriptor, error) {
	now := time.Now().UTC()
	name := now.Format("20060102-150405")

	path := filepath.Join(m.root, name)
	for i := 2; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		// Same-second collision with an existing session directory.
		path = filepath.Join(m.root, fmt.Sprintf("%s-%d", name, i))
	}

	if err := os.MkdirAll(path, 0750); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	d := &Descriptor{
		Name:       filepath.Base(path),
		CreatedAt:  now,
		LastActive: now,
		Path:       path,
	}
	if err := writeMetadata(*d); err != nil {
		return nil, err
	}
	return d, nil
}

// List returns every session on disk, most recently active first.
// Directories with unreadable metadata are skipped.
func (m *Manager) List() ([]Descriptor, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var found []Descriptor
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		d, err := readMetadata(filepath.Join(m.root, e.Name()))
		if err != nil {
			m.log.Warn().Str("session", e.Name()).Err(err).Msg("skipping unreadable session metadata")
			continue
		}
		found = append(found, d)
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].LastActive.After(found[j].LastActive)
	})
	return found, nil
}

// resumeLatest returns the on-disk session with the newest last-active
// timestamp, or nil when none exist. Must be called with the mutex held.
func (m *Manager) resumeLatest() (*Descriptor, error) {
	found, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	latest := found[0]
	return &latest, nil
}

func writeMetadata(d Descriptor) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(d.Path, metadataFile), data, 0600); err != nil {
		return fmt.Errorf("failed to write session metadata: %w", err)
	}
	return nil
}

func readMetadata(path string) (Descriptor, error) {
	data, err := os.ReadFile(filepath.Join(path, metadataFile)) // #nosec G304
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to read session metadata: %w", err)
	}

	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return Descriptor{}, fmt.Errorf("failed to unmarshal session metadata: %w", err)
	}
	if d.Name == "" {
		return Descriptor{}, ErrInvalidName
	}
	d.Path = path
	return d, nil
}
