package memory

import (
	"context"
	"sync"

	"incentive-token/internal/domain"
	"incentive-token/internal/storage"
)

// StateStore is an in-memory implementation of storage.StateStore.
// It keeps its own deep copy of the ledger state.
type StateStore struct {
	mu      sync.RWMutex
	state   *domain.Snapshot // nil until Init
	applied int              // deltas applied since Init
}

// NewStateStore creates a new, uninitialized in-memory state store.
func NewStateStore() *StateStore {
	return &StateStore{}
}

// Load returns a copy of the stored state. Returns ErrNotFound before Init.
func (s *StateStore) Load(_ context.Context) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == nil {
		return nil, storage.ErrNotFound
	}
	return s.state.Clone(), nil
}

// Init writes the genesis snapshot. Returns ErrDuplicateKey if already initialized.
func (s *StateStore) Init(_ context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != nil {
		return storage.ErrDuplicateKey
	}
	s.state = snap.Clone()
	return nil
}

// Apply writes one delta. Returns ErrNotFound before Init, ErrConflict if the
// delta does not directly follow the stored operation counter, and
// ErrDuplicateKey if the delta carries a mint record id already stored.
func (s *StateStore) Apply(_ context.Context, d *domain.Delta) error {
	if d == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return storage.ErrNotFound
	}
	if d.Config.OpCounter != s.state.Config.OpCounter+1 {
		return storage.ErrConflict
	}
	if d.Record != nil {
		if _, exists := s.state.MintRecords[d.Record.ID]; exists {
			return storage.ErrDuplicateKey
		}
	}

	d.ApplyTo(s.state)
	s.applied++
	return nil
}

// Applied returns the number of deltas applied since Init.
func (s *StateStore) Applied() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.applied
}

var _ storage.StateStore = (*StateStore)(nil)
