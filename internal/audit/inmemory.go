package audit

import (
	"context"
	"sync"
	"time"

	"github.com/antoniostano/guardian/internal/safety"
)

// InMemoryStore is a simple in-process audit store for local/dev use.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []safety.AuditEvent
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) SaveEvent(_ context.Context, event safety.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	s.events = append(s.events, event)
	return nil
}

// Events returns a snapshot of everything saved so far.
func (s *InMemoryStore) Events() []safety.AuditEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]safety.AuditEvent, len(s.events))
	copy(out, s.events)
	return out
}

func (s *InMemoryStore) Close() error { return nil }
