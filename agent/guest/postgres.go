package guest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// PostgresStore keeps guest records in Postgres via bun. The update path
// targets the latest row through a locking subquery, so concurrent mutations
// of the same (tenant, email) serialize on the row lock.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(db *bun.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Insert(ctx context.Context, r *Record) error {
	if r == nil {
		return fmt.Errorf("nil record")
	}
	now := time.Now().UTC()
	r.Email = NormalizeEmail(r.Email)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	if _, err := s.db.NewInsert().Model(r).Exec(ctx); err != nil {
		return fmt.Errorf("insert guest record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindLatestByEmail(ctx context.Context, tenantID, email string) (*Record, error) {
	email = NormalizeEmail(email)

	r := new(Record)
	err := s.db.NewSelect().
		Model(r).
		Where("tenant_id = ?", tenantID).
		Where("lower(email) = ?", email).
		OrderExpr("updated_at DESC, id DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: email=%s", ErrRecordNotFound, email)
	}
	if err != nil {
		return nil, fmt.Errorf("select guest record: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) UpdateLatestByEmail(ctx context.Context, tenantID, email string, patch Patch) (*Record, error) {
	email = NormalizeEmail(email)
	now := time.Now().UTC()

	var updated Record
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		r := new(Record)
		err := tx.NewSelect().
			Model(r).
			Where("tenant_id = ?", tenantID).
			Where("lower(email) = ?", email).
			OrderExpr("updated_at DESC, id DESC").
			Limit(1).
			For("UPDATE").
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: email=%s", ErrRecordNotFound, email)
		}
		if err != nil {
			return fmt.Errorf("select guest record for update: %w", err)
		}

		applyPatch(r, patch, now)
		if _, err := tx.NewUpdate().Model(r).WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("update guest record: %w", err)
		}
		updated = *r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID string) ([]Record, error) {
	var out []Record
	err := s.db.NewSelect().
		Model(&out).
		Where("tenant_id = ?", tenantID).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list guest records: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListActive(ctx context.Context, tenantID string) ([]Record, error) {
	var out []Record
	err := s.db.NewSelect().
		Model(&out).
		Where("tenant_id = ?", tenantID).
		Where("status = ?", StatusActive).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active guest records: %w", err)
	}
	return out, nil
}
