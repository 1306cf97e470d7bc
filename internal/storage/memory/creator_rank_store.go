package memory

import (
	"context"
	"sort"
	"sync"

	"listrank/internal/domain"
	"listrank/internal/storage"
)

// CreatorRankStore is an in-memory implementation of storage.CreatorRankStore.
type CreatorRankStore struct {
	mu   sync.RWMutex
	data map[string]domain.CreatorRank
}

// NewCreatorRankStore creates an empty in-memory creator rank store.
func NewCreatorRankStore() *CreatorRankStore {
	return &CreatorRankStore{data: make(map[string]domain.CreatorRank)}
}

// Compile-time interface check.
var _ storage.CreatorRankStore = (*CreatorRankStore)(nil)

// Upsert replaces a creator's rank snapshot.
func (s *CreatorRankStore) Upsert(_ context.Context, r *domain.CreatorRank) error {
	if r == nil || r.UserID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[r.UserID] = *r
	return nil
}

// GetByIDs retrieves rank snapshots keyed by user id. Users without a
// snapshot are absent from the map.
func (s *CreatorRankStore) GetByIDs(_ context.Context, userIDs []string) (map[string]domain.CreatorRank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.CreatorRank, len(userIDs))
	for _, id := range userIDs {
		if r, exists := s.data[id]; exists {
			result[id] = r
		}
	}
	return result, nil
}

// TopByMomentum returns snapshots by momentum descending, user id ascending,
// capped at limit.
func (s *CreatorRankStore) TopByMomentum(_ context.Context, limit int) ([]domain.CreatorRank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.CreatorRank, 0, len(s.data))
	for _, r := range s.data {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].MomentumScore != result[j].MomentumScore {
			return result[i].MomentumScore > result[j].MomentumScore
		}
		return result[i].UserID < result[j].UserID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
