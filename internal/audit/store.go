package audit

import (
	"context"
	"strings"

	"github.com/antoniostano/guardian/internal/safety"
)

// Store persists high-risk audit events.
type Store interface {
	SaveEvent(ctx context.Context, event safety.AuditEvent) error
	Close() error
}

// NewStore creates a postgres-backed store when configured, otherwise in-memory.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryStore(), nil
	}
	return NewPostgresStore(ctx, databaseURL)
}
