// ABOUTME: In-memory session store with TTL cleanup and capacity limits
// ABOUTME: Thread-safe storage for managing active editor sessions

package editor

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389-research/nodegraph/graph"
	"github.com/2389-research/nodegraph/nodes"
)

type Store struct {
	mu           sync.RWMutex
	sessions     map[string]*Session
	maxSessions  int
	ttl          time.Duration
	historyLimit int
	registry     *nodes.Registry
}

// NewStore creates a new session store. Every session it creates shares the
// registry for op-code resolution. historyLimit zero means the default.
func NewStore(registry *nodes.Registry, maxSessions int, ttl time.Duration, historyLimit int) *Store {
	if historyLimit <= 0 {
		historyLimit = graph.DefaultHistoryLimit
	}
	return &Store{
		sessions:     make(map[string]*Session),
		maxSessions:  maxSessions,
		ttl:          ttl,
		historyLimit: historyLimit,
		registry:     registry,
	}
}

// Create creates a new session, optionally seeded from a snapshot. A nil
// snapshot starts an empty graph.
func (s *Store) Create(snap *graph.Snapshot) (*Session, error) {
	g := graph.New()
	g.SetKindResolver(s.registry.Resolver())
	if snap != nil {
		if err := g.Restore(snap); err != nil {
			return nil, err
		}
		g.SetModified(false)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check capacity
	if len(s.sessions) >= s.maxSessions {
		// Evict oldest session
		var oldestID string
		var oldestTime time.Time
		for id, sess := range s.sessions {
			if oldestTime.IsZero() || sess.LastAccess.Before(oldestTime) {
				oldestID = id
				oldestTime = sess.LastAccess
			}
		}
		delete(s.sessions, oldestID)
	}

	now := time.Now()
	sess := &Session{
		ID:         uuid.New().String(),
		Graph:      g,
		History:    graph.NewHistory(g, s.historyLimit),
		registry:   s.registry,
		CreatedAt:  now,
		LastAccess: now,
	}
	sess.History.Push("Initial state")

	s.sessions[sess.ID] = sess
	return sess, nil
}

// Get retrieves a session by ID and updates its LastAccess time
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}

	sess.LastAccess = time.Now()
	return sess, true
}

// Remove drops a session. Removing an unknown ID is a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Cleanup removes sessions older than TTL
func (s *Store) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.ttl)
	for id, sess := range s.sessions {
		if sess.LastAccess.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}

// StartCleanup starts a background cleanup goroutine and returns a stop function
func (s *Store) StartCleanup(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				s.Cleanup()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		close(done)
	}
}
