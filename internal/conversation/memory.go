package conversation

import (
	"context"
	"sync"
	"time"
)

// Registry owns the per-session bounded utterance memory. It is the only
// mutable cross-call state in the analysis core; everything else is
// computed from the call arguments.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*sessionMemory
	maxTurns int
}

type sessionMemory struct {
	mu         sync.Mutex
	turns      []string
	lastActive time.Time
}

// NewRegistry creates a registry whose sessions keep at most maxTurns
// recent utterances, oldest evicted first.
func NewRegistry(maxTurns int) *Registry {
	if maxTurns <= 0 {
		maxTurns = 20
	}
	return &Registry{
		sessions: make(map[string]*sessionMemory),
		maxTurns: maxTurns,
	}
}

// Append records one utterance for the session as a single atomic step.
// Concurrent appends for the same session are serialized by the session
// lock, so the bounded window never corrupts under out-of-order arrival.
func (r *Registry) Append(sessionID, text string) {
	if sessionID == "" {
		return
	}
	s := r.session(sessionID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, text)
	if len(s.turns) > r.maxTurns {
		s.turns = s.turns[len(s.turns)-r.maxTurns:]
	}
	s.lastActive = time.Now().UTC()
}

// Recent returns a copy of the session's remembered utterances in
// chronological order. Unknown sessions yield an empty history.
func (r *Registry) Recent(sessionID string) []string {
	if sessionID == "" {
		return nil
	}
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.turns))
	copy(out, s.turns)
	return out
}

// SessionCount reports how many sessions currently hold memory.
func (r *Registry) SessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// StartJanitor evicts sessions idle longer than idleTimeout until the
// context is cancelled.
func (r *Registry) StartJanitor(ctx context.Context, interval, idleTimeout time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.evictIdle(idleTimeout)
			}
		}
	}()
}

func (r *Registry) evictIdle(idleTimeout time.Duration) {
	if idleTimeout <= 0 {
		return
	}
	cutoff := time.Now().UTC().Add(-idleTimeout)

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		s.mu.Lock()
		idle := s.lastActive.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(r.sessions, id)
		}
	}
}

func (r *Registry) session(sessionID string) *sessionMemory {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		s = &sessionMemory{lastActive: time.Now().UTC()}
		r.sessions[sessionID] = s
	}
	return s
}
