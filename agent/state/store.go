package state

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	contractx "github.com/Jamesonkanakulya/appointment-agent/agent/contract"
)

// Store is the persistence contract for session histories. Save is an upsert:
// a brand-new session row is created when none exists. Concurrent saves of
// the same session are last-writer-wins; the webhook caller is expected to
// await a turn before sending the next message for that session.
type Store interface {
	Load(ctx context.Context, tenantID, sessionID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
}

func sessionKey(tenantID, sessionID string) (string, error) {
	tenantID = strings.TrimSpace(tenantID)
	sessionID = strings.TrimSpace(sessionID)
	if tenantID == "" || sessionID == "" {
		return "", ErrInvalidSession
	}
	return tenantID + ":" + sessionID, nil
}

/* ------------------------------ In-memory ----------------------------- */

// MemoryStore is a map-backed Store for tests and single-node development.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

func (s *MemoryStore) Load(ctx context.Context, tenantID, sessionID string) (*Session, error) {
	key, err := sessionKey(tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	found, ok := s.sessions[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, key)
	}
	out := found
	out.Messages = append([]contractx.Message(nil), found.Messages...)
	return &out, nil
}

func (s *MemoryStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil {
		return ErrNilSession
	}
	key, err := sessionKey(sess.TenantID, sess.SessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.sessions[key]; ok {
		sess.CreatedAt = existing.CreatedAt
	} else if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now
	stored := *sess
	stored.Messages = append([]contractx.Message(nil), sess.Messages...)
	s.sessions[key] = stored
	return nil
}
