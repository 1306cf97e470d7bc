package memory

import (
	"context"
	"sync"

	"listrank/internal/domain"
	"listrank/internal/storage"
)

// TrendingSnapshotStore is an in-memory implementation of
// storage.TrendingSnapshotStore.
type TrendingSnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TrendingSnapshot
}

// NewTrendingSnapshotStore creates an empty in-memory snapshot store.
func NewTrendingSnapshotStore() *TrendingSnapshotStore {
	return &TrendingSnapshotStore{data: make(map[string]*domain.TrendingSnapshot)}
}

// Compile-time interface check.
var _ storage.TrendingSnapshotStore = (*TrendingSnapshotStore)(nil)

// Get retrieves a snapshot by view key. Returns ErrNotFound if absent.
func (s *TrendingSnapshotStore) Get(_ context.Context, view string) (*domain.TrendingSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.data[view]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneSnapshot(snap), nil
}

// Put stores a snapshot, replacing any existing one for the same view.
func (s *TrendingSnapshotStore) Put(_ context.Context, snap *domain.TrendingSnapshot) error {
	if snap == nil || snap.View == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[snap.View] = cloneSnapshot(snap)
	return nil
}

func cloneSnapshot(snap *domain.TrendingSnapshot) *domain.TrendingSnapshot {
	snapCopy := *snap
	snapCopy.Results = append([]domain.TrendingResult(nil), snap.Results...)
	return &snapCopy
}
