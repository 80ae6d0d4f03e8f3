// internal/adapters/memstore/store.go
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/ammerola/warehouse-crm/internal/core/domain"
	"github.com/ammerola/warehouse-crm/internal/core/ports"
)

type entry struct {
	seq    uint64
	record domain.CatalogRecord
}

// Store is an in-memory CatalogStore. It evaluates the same predicate,
// ordering and pagination as the database adapters and is safe for
// concurrent use.
type Store struct {
	mu      sync.RWMutex
	nextSeq uint64
	byID    map[uuid.UUID]*entry
	bySKU   map[string]uuid.UUID
}

var _ ports.CatalogStore = (*Store)(nil)

// New creates an empty store
func New() *Store {
	return &Store{
		byID:  make(map[uuid.UUID]*entry),
		bySKU: make(map[string]uuid.UUID),
	}
}

// sorted returns matching entries ordered by updatedAt desc, then insertion order.
// Callers hold at least a read lock.
func (s *Store) sorted(match func(*domain.CatalogRecord) bool) []*entry {
	out := lo.Filter(lo.Values(s.byID), func(e *entry, _ int) bool {
		return match(&e.record)
	})
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.record.UpdatedAt.Equal(b.record.UpdatedAt) {
			return a.record.UpdatedAt.After(b.record.UpdatedAt)
		}
		return a.seq < b.seq
	})
	return out
}

func clone(e *entry) *domain.CatalogRecord {
	r := e.record
	return &r
}

func (s *Store) Find(ctx context.Context, filter domain.CatalogFilter, opts ports.FindOptions) ([]*domain.CatalogRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.sorted(filter.Matches)
	if opts.Skip < 0 || opts.Skip >= len(matched) {
		return []*domain.CatalogRecord{}, nil
	}
	matched = matched[opts.Skip:]
	if opts.Limit > 0 && opts.Limit < len(matched) {
		matched = matched[:opts.Limit]
	}
	return lo.Map(matched, func(e *entry, _ int) *domain.CatalogRecord { return clone(e) }), nil
}

func (s *Store) Count(ctx context.Context, filter domain.CatalogFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(lo.CountBy(lo.Values(s.byID), func(e *entry) bool {
		return filter.Matches(&e.record)
	})), nil
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*domain.CatalogRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(e), nil
}

func (s *Store) FindBySKU(ctx context.Context, sku string) (*domain.CatalogRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bySKU[sku]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(s.byID[id]), nil
}

func (s *Store) FindLowStock(ctx context.Context) ([]*domain.CatalogRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	low := s.sorted(func(r *domain.CatalogRecord) bool { return r.IsLowStock() })
	return lo.Map(low, func(e *entry, _ int) *domain.CatalogRecord { return clone(e) }), nil
}

func (s *Store) Insert(ctx context.Context, record *domain.CatalogRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.bySKU[record.SKU]; taken {
		return domain.ErrDuplicateKey
	}
	if _, taken := s.byID[record.ID]; taken {
		return domain.ErrDuplicateKey
	}

	s.nextSeq++
	s.byID[record.ID] = &entry{seq: s.nextSeq, record: *record}
	s.bySKU[record.SKU] = record.ID
	return nil
}

func (s *Store) UpdateOne(ctx context.Context, record *domain.CatalogRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[record.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if owner, taken := s.bySKU[record.SKU]; taken && owner != record.ID {
		return domain.ErrDuplicateKey
	}

	delete(s.bySKU, e.record.SKU)
	e.record = *record
	s.bySKU[record.SKU] = record.ID
	return nil
}

func (s *Store) DeleteOne(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(s.bySKU, e.record.SKU)
	delete(s.byID, id)
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}
