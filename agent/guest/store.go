package guest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Store is the persistence contract for guest records.
//
// FindLatestByEmail and UpdateLatestByEmail select the most recently updated
// record for (tenant, email); older rows stay as history. Implementations
// must serialize concurrent mutations of the same (tenant, email) pair so a
// racing cancel and reschedule cannot leave an inconsistent status/PIN pair.
type Store interface {
	FindLatestByEmail(ctx context.Context, tenantID, email string) (*Record, error)
	Insert(ctx context.Context, r *Record) error
	UpdateLatestByEmail(ctx context.Context, tenantID, email string, patch Patch) (*Record, error)
	ListByTenant(ctx context.Context, tenantID string) ([]Record, error)
	ListActive(ctx context.Context, tenantID string) ([]Record, error)
}

// NormalizeEmail lowercases and trims an address for matching.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func applyPatch(r *Record, patch Patch, now time.Time) {
	if patch.Status != nil {
		r.Status = *patch.Status
	}
	if patch.PIN != nil {
		r.PIN = *patch.PIN
	}
	if patch.BookingTime != nil {
		r.BookingTime = *patch.BookingTime
	}
	if patch.MeetingTitle != nil {
		r.MeetingTitle = *patch.MeetingTitle
	}
	if patch.CalendarEventID != nil {
		r.CalendarEventID = *patch.CalendarEventID
	}
	r.UpdatedAt = now
}

/* ------------------------------ In-memory ----------------------------- */

// MemoryStore is a slice-backed Store for tests and single-node development.
// The single mutex also serves as the per-(tenant, email) serialization.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
	nextID  int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (s *MemoryStore) Insert(ctx context.Context, r *Record) error {
	if r == nil {
		return fmt.Errorf("nil record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	r.ID = s.nextID
	s.nextID++
	r.Email = NormalizeEmail(r.Email)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	s.records = append(s.records, *r)
	return nil
}

func (s *MemoryStore) FindLatestByEmail(ctx context.Context, tenantID, email string) (*Record, error) {
	email = NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.latestIndex(tenantID, email)
	if idx < 0 {
		return nil, fmt.Errorf("%w: email=%s", ErrRecordNotFound, email)
	}
	out := s.records[idx]
	return &out, nil
}

func (s *MemoryStore) UpdateLatestByEmail(ctx context.Context, tenantID, email string, patch Patch) (*Record, error) {
	email = NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.latestIndex(tenantID, email)
	if idx < 0 {
		return nil, fmt.Errorf("%w: email=%s", ErrRecordNotFound, email)
	}
	applyPatch(&s.records[idx], patch, time.Now().UTC())
	out := s.records[idx]
	return &out, nil
}

func (s *MemoryStore) ListByTenant(ctx context.Context, tenantID string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for _, r := range s.records {
		if r.TenantID == tenantID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ListActive(ctx context.Context, tenantID string) ([]Record, error) {
	all, err := s.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, r := range all {
		if r.Status == StatusActive {
			out = append(out, r)
		}
	}
	return out, nil
}

// latestIndex returns the index of the most recently updated record for
// (tenantID, email), breaking update-time ties by highest ID. Callers hold mu.
func (s *MemoryStore) latestIndex(tenantID, email string) int {
	best := -1
	for i, r := range s.records {
		if r.TenantID != tenantID || r.Email != email {
			continue
		}
		if best < 0 ||
			r.UpdatedAt.After(s.records[best].UpdatedAt) ||
			(r.UpdatedAt.Equal(s.records[best].UpdatedAt) && r.ID > s.records[best].ID) {
			best = i
		}
	}
	return best
}
