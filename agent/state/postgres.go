package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// PostgresStore persists sessions in Postgres via bun. One row per
// (tenant_id, session_id); the messages column is jsonb.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(db *bun.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Load(ctx context.Context, tenantID, sessionID string) (*Session, error) {
	if _, err := sessionKey(tenantID, sessionID); err != nil {
		return nil, err
	}

	sess := new(Session)
	err := s.db.NewSelect().
		Model(sess).
		Where("tenant_id = ?", tenantID).
		Where("session_id = ?", sessionID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: tenant=%s session=%s", ErrSessionNotFound, tenantID, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}
	return sess, nil
}

func (s *PostgresStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil {
		return ErrNilSession
	}
	if _, err := sessionKey(sess.TenantID, sess.SessionID); err != nil {
		return err
	}

	now := time.Now().UTC()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now

	_, err := s.db.NewInsert().
		Model(sess).
		On("CONFLICT (tenant_id, session_id) DO UPDATE").
		Set("messages = EXCLUDED.messages").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}
