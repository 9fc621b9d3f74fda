// Package memory is an in-process Ledger Store, adapted from the
// dvloznov-finance-tracker job store's copy-on-read/write map pattern.
// Data is lost on restart; use store/bigquery for a persisted deployment.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/numa-app/numa-core/internal/domain"
	"github.com/numa-app/numa-core/internal/ledger"
)

// Store is a mutex-guarded map of Transactions keyed by id. Writes to a
// single id are serialized by per-id locks so that two concurrent verify
// attempts on the same row cannot both observe PROVISIONAL.
type Store struct {
	mu    sync.RWMutex
	rows  map[string]*domain.Transaction
	locks map[string]*sync.Mutex
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		rows:  make(map[string]*domain.Transaction),
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *Store) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// InsertProvisional implements ledger.Store.
func (s *Store) InsertProvisional(ctx context.Context, t *domain.Transaction) error {
	clone := t.Clone()
	s.mu.Lock()
	s.rows[t.ID] = clone
	s.mu.Unlock()
	return nil
}

// GetForOwner implements ledger.Store.
func (s *Store) GetForOwner(ctx context.Context, owner, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	row, ok := s.rows[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotOwner
	}
	if row.OwnerID != owner {
		// Not-found and cross-tenant access are indistinguishable to the
		// caller: both surface as ErrNotOwner, which callers report as not
		// found (HTTP 404, or "no encontrado" in a chat reply) so existence
		// is never leaked.
		return nil, domain.ErrNotOwner
	}
	return row.Clone(), nil
}

// CompareAndSwapStatus implements ledger.Store.
func (s *Store) CompareAndSwapStatus(ctx context.Context, owner, id string, expectedStatus domain.TransactionStatus, mutate func(*domain.Transaction)) (*domain.Transaction, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	row, ok := s.rows[id]
	s.mu.RUnlock()
	if !ok || row.OwnerID != owner {
		return nil, domain.ErrNotOwner
	}
	if row.Status != expectedStatus {
		return nil, domain.ErrNotProvisional
	}

	updated := row.Clone()
	mutate(updated)

	s.mu.Lock()
	s.rows[id] = updated
	s.mu.Unlock()
	return updated.Clone(), nil
}

// ListByOwner implements ledger.Store.
func (s *Store) ListByOwner(ctx context.Context, owner string, filter ledger.ListFilter) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Transaction
	for _, row := range s.rows {
		if row.OwnerID != owner {
			continue
		}
		if !ledger.Matches(row, filter) {
			continue
		}
		result = append(result, row.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

var _ ledger.Store = (*Store)(nil)
