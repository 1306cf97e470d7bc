package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"listrank/internal/domain"
	"listrank/internal/storage"
)

// FeaturedSlotStore is an in-memory implementation of storage.FeaturedSlotStore.
type FeaturedSlotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FeaturedSlot
}

// NewFeaturedSlotStore creates an empty in-memory featured slot store.
func NewFeaturedSlotStore() *FeaturedSlotStore {
	return &FeaturedSlotStore{data: make(map[string]*domain.FeaturedSlot)}
}

// Compile-time interface check.
var _ storage.FeaturedSlotStore = (*FeaturedSlotStore)(nil)

// Insert adds a slot. Generates an id when empty.
func (s *FeaturedSlotStore) Insert(_ context.Context, slot *domain.FeaturedSlot) error {
	if slot == nil || slot.ListID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slotCopy := cloneSlot(slot)
	if slotCopy.ID == "" {
		slotCopy.ID = uuid.NewString()
	}
	if _, exists := s.data[slotCopy.ID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[slotCopy.ID] = slotCopy
	return nil
}

// GetByID retrieves a slot by id. Returns ErrNotFound if not exists.
func (s *FeaturedSlotStore) GetByID(_ context.Context, id string) (*domain.FeaturedSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneSlot(slot), nil
}

// ActiveAt returns slots whose window contains t.
func (s *FeaturedSlotStore) ActiveAt(_ context.Context, t time.Time) ([]*domain.FeaturedSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FeaturedSlot
	for _, slot := range s.data {
		if slot.Active(t) {
			result = append(result, cloneSlot(slot))
		}
	}
	sortSlots(result)
	return result, nil
}

// InRange returns slots overlapping [start, end).
func (s *FeaturedSlotStore) InRange(_ context.Context, start, end time.Time) ([]*domain.FeaturedSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FeaturedSlot
	for _, slot := range s.data {
		if slot.StartsAt.Before(end) && slot.EndsAt.After(start) {
			result = append(result, cloneSlot(slot))
		}
	}
	sortSlots(result)
	return result, nil
}

// UpsertScoreSnapshot writes the engine-owned derived fields. BaselineScore
// is write-once; PeakScore only ever increases.
func (s *FeaturedSlotStore) UpsertScoreSnapshot(_ context.Context, slotID string, baselineScore, peakScore *float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, exists := s.data[slotID]
	if !exists {
		return storage.ErrNotFound
	}

	if baselineScore != nil && slot.BaselineScore == nil {
		v := *baselineScore
		slot.BaselineScore = &v
	}
	if peakScore != nil && (slot.PeakScore == nil || *peakScore > *slot.PeakScore) {
		v := *peakScore
		slot.PeakScore = &v
	}
	return nil
}

func sortSlots(slots []*domain.FeaturedSlot) {
	sort.Slice(slots, func(i, j int) bool {
		if !slots[i].StartsAt.Equal(slots[j].StartsAt) {
			return slots[i].StartsAt.Before(slots[j].StartsAt)
		}
		return slots[i].ID < slots[j].ID
	})
}

func cloneSlot(slot *domain.FeaturedSlot) *domain.FeaturedSlot {
	slotCopy := *slot
	if slot.BaselineScore != nil {
		v := *slot.BaselineScore
		slotCopy.BaselineScore = &v
	}
	if slot.PeakScore != nil {
		v := *slot.PeakScore
		slotCopy.PeakScore = &v
	}
	return &slotCopy
}
