// internal/store/memory.go
//
// In-memory implementation of the session Store interface.
// Sessions hold a live game.Controller, so they cannot outlive the process;
// finished results are persisted separately by the results package.
//
// Characteristics:
//   - Stores *Session objects keyed by ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Delete closes the session: its controller is stopped so no timer is
//     left running, then its OnClose hooks run (result watchers unsubscribe).
//   - Sessions are never evicted; they live until Delete or process exit.

package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/minesweeper/apps/go-server/internal/game"
)

// ErrNotFound is returned by Get for unknown session IDs.
var ErrNotFound = errors.New("session not found")

// Session binds a controller to its owner.
type Session struct {
	ID         string
	UserID     string // empty for guests
	DailyDate  string // YYYY-MM-DD for daily boards, empty otherwise
	CreatedAt  time.Time
	Controller *game.Controller

	mu      sync.Mutex
	closers []func()
	closed  bool
}

// OnClose registers fn to run when the session is closed. On a session
// that is already closed fn runs immediately.
func (s *Session) OnClose(fn func()) {
	s.mu.Lock()
	if !s.closed {
		s.closers = append(s.closers, fn)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	fn()
}

// Close stops the controller and runs the OnClose hooks. Only the first
// call has any effect.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	if s.Controller != nil {
		s.Controller.Stop()
	}
	for _, fn := range closers {
		fn()
	}
}

// NewSession wraps c with a fresh random ID.
func NewSession(c *game.Controller, userID, dailyDate string) *Session {
	return &Session{
		ID:         randomID(),
		UserID:     userID,
		DailyDate:  dailyDate,
		CreatedAt:  time.Now().UTC(),
		Controller: c,
	}
}

// Store defines the persistence interface for game sessions.
type Store interface {
	// Save persists or replaces a session.
	Save(ctx context.Context, s *Session) error

	// Get retrieves a session by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete stops and removes a session. Unknown IDs are not an error.
	Delete(ctx context.Context, id string) error
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.RWMutex        // guards sessions map
	sessions map[string]*Session // keyed by Session.ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]*Session)}
}

func (m *memory) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, ErrNotFound
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
	return nil
}

// randomID returns a compact 16-hex-char identifier.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
