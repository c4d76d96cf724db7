package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Store resolves tenants for inbound webhook calls.
type Store interface {
	FindByWebhookPath(ctx context.Context, path string) (*Tenant, error)
	Insert(ctx context.Context, t *Tenant) error
}

/* ------------------------------ Postgres ------------------------------ */

// PostgresStore keeps tenants in Postgres via bun.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(db *bun.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) FindByWebhookPath(ctx context.Context, path string) (*Tenant, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: empty webhook path", ErrNotFound)
	}

	t := new(Tenant)
	err := s.db.NewSelect().
		Model(t).
		Where("webhook_path = ?", path).
		Where("active = TRUE").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: webhook_path=%s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("select tenant: %w", err)
	}

	t.Normalize()
	return t, nil
}

func (s *PostgresStore) Insert(ctx context.Context, t *Tenant) error {
	if t == nil {
		return errors.New("nil tenant")
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	t.Normalize()

	if _, err := s.db.NewInsert().Model(t).Exec(ctx); err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

/* ------------------------------ In-memory ----------------------------- */

// MemoryStore is a map-backed Store for tests and single-node development.
type MemoryStore struct {
	mu      sync.RWMutex
	tenants map[string]Tenant // keyed by webhook path
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tenants: make(map[string]Tenant)}
}

func (s *MemoryStore) FindByWebhookPath(ctx context.Context, path string) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[strings.TrimSpace(path)]
	if !ok || !t.Active {
		return nil, fmt.Errorf("%w: webhook_path=%s", ErrNotFound, path)
	}
	out := t
	out.Normalize()
	return &out, nil
}

func (s *MemoryStore) Insert(ctx context.Context, t *Tenant) error {
	if t == nil {
		return errors.New("nil tenant")
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	t.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.WebhookPath] = *t
	return nil
}
