package audit

import (
	"context"
	"sync"
	"time"

	"github.com/antoniostano/guardian/internal/safety"
)

const saveTimeout = 5 * time.Second

// AsyncSink decouples verdict latency from audit persistence. Events are
// queued to a worker goroutine; when the queue is full the event is
// dropped rather than blocking the analysis path.
type AsyncSink struct {
	store   Store
	onDrop  func()
	onError func(error)

	mu     sync.RWMutex
	closed bool
	queue  chan safety.AuditEvent
	done   chan struct{}
}

// NewAsyncSink starts the persistence worker. onDrop and onError may be
// nil; onDrop is called once per dropped event, onError once per failed
// save.
func NewAsyncSink(store Store, queueSize int, onDrop func(), onError func(error)) *AsyncSink {
	if queueSize <= 0 {
		queueSize = 256
	}
	s := &AsyncSink{
		store:   store,
		onDrop:  onDrop,
		onError: onError,
		queue:   make(chan safety.AuditEvent, queueSize),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// LogHighRisk queues the event without blocking. Events arriving after
// Close, or while the queue is full, are dropped.
func (s *AsyncSink) LogHighRisk(event safety.AuditEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- event:
	default:
		if s.onDrop != nil {
			s.onDrop()
		}
	}
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for event := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		if err := s.store.SaveEvent(ctx, event); err != nil && s.onError != nil {
			s.onError(err)
		}
		cancel()
	}
}

// Close stops accepting events, drains the queue, and waits for the
// worker to finish.
func (s *AsyncSink) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
}
