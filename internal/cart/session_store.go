package cart

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

type sessionEntry struct {
	agg      *Aggregate
	deadline time.Time
}

// SessionStore owns one Aggregate per session key. Entries expire after a
// TTL (with jitter so a burst of sessions does not expire in one sweep) and
// are reaped by Run.
type SessionStore struct {
	mu        sync.Mutex
	sessions  map[string]*sessionEntry
	baseTTL   time.Duration
	sweepTick time.Duration
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions:  make(map[string]*sessionEntry),
		baseTTL:   ttl,
		sweepTick: time.Minute,
	}
}

// Get returns the session's cart, creating it on first use. Each access
// pushes the expiry forward.
func (s *SessionStore) Get(sessionKey string) *Aggregate {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sessionKey]
	if !ok {
		e = &sessionEntry{agg: NewAggregate()}
		s.sessions[sessionKey] = e
	}
	jitter := time.Duration(rand.Intn(60)) * time.Second
	e.deadline = time.Now().Add(s.baseTTL + jitter)
	return e.agg
}

// Drop removes the session's cart immediately (logout, session end).
func (s *SessionStore) Drop(sessionKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionKey)
}

// Run sweeps expired sessions until the context is cancelled.
func (s *SessionStore) Run(ctx context.Context) {
	ticker := time.NewTicker(s.sweepTick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep(time.Now())
		case <-ctx.Done():
			return
		}
	}
}

func (s *SessionStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.sessions {
		// never reap a cart mid-submission
		if now.After(e.deadline) && !e.agg.inFlight() {
			delete(s.sessions, key)
		}
	}
}
