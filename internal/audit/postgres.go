package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/antoniostano/guardian/internal/safety"
)

// PostgresStore persists audit events in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS safety_audit_events (
			id TEXT PRIMARY KEY,
			occurred_at TIMESTAMPTZ NOT NULL,
			session_id TEXT NOT NULL DEFAULT '',
			risk_level TEXT NOT NULL,
			toxicity_score DOUBLE PRECISION NOT NULL,
			content_hash TEXT NOT NULL,
			detected_patterns TEXT[] NOT NULL DEFAULT '{}'
		);`,
		`CREATE INDEX IF NOT EXISTS idx_safety_audit_events_session_occurred
			ON safety_audit_events (session_id, occurred_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveEvent(ctx context.Context, event safety.AuditEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO safety_audit_events
			(id, occurred_at, session_id, risk_level, toxicity_score, content_hash, detected_patterns)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.NewString(),
		event.Timestamp,
		event.SessionID,
		event.RiskLevel.String(),
		event.ToxicityScore,
		event.ContentHash,
		event.DetectedPatterns,
	)
	if err != nil {
		return fmt.Errorf("save audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
