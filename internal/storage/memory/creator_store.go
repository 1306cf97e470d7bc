package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"listrank/internal/domain"
	"listrank/internal/storage"
)

// CreatorStore is an in-memory implementation of storage.CreatorStore.
// Eligibility (owning a public active list) is resolved against a ListStore
// so the two stay consistent.
type CreatorStore struct {
	mu      sync.RWMutex
	data    map[string]*domain.Creator
	follows map[string]map[string]struct{} // userID -> followed creator ids
	lists   *ListStore
}

// NewCreatorStore creates an empty in-memory creator store backed by lists.
func NewCreatorStore(lists *ListStore) *CreatorStore {
	return &CreatorStore{
		data:    make(map[string]*domain.Creator),
		follows: make(map[string]map[string]struct{}),
		lists:   lists,
	}
}

// Compile-time interface check.
var _ storage.CreatorStore = (*CreatorStore)(nil)

// Insert adds a creator. Generates an id when empty.
func (s *CreatorStore) Insert(_ context.Context, c *domain.Creator) error {
	if c == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	creatorCopy := *c
	if creatorCopy.ID == "" {
		creatorCopy.ID = uuid.NewString()
	}
	if _, exists := s.data[creatorCopy.ID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[creatorCopy.ID] = &creatorCopy
	return nil
}

// GetByID retrieves a creator by id. Returns ErrNotFound if not exists.
func (s *CreatorStore) GetByID(_ context.Context, id string) (*domain.Creator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	creatorCopy := *c
	return &creatorCopy, nil
}

// GetByIDs retrieves creators keyed by id. Missing ids are skipped.
func (s *CreatorStore) GetByIDs(_ context.Context, ids []string) (map[string]*domain.Creator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*domain.Creator, len(ids))
	for _, id := range ids {
		if c, exists := s.data[id]; exists {
			creatorCopy := *c
			result[id] = &creatorCopy
		}
	}
	return result, nil
}

// EligibleCreators returns creators owning at least one active public list,
// excluding excludeUserID, id ascending.
func (s *CreatorStore) EligibleCreators(ctx context.Context, excludeUserID string) ([]*domain.Creator, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		if id != excludeUserID {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()

	byCreator, err := s.lists.PublicListsByCreators(ctx, ids)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Creator
	for id, lists := range byCreator {
		if len(lists) == 0 {
			continue
		}
		if c, exists := s.data[id]; exists {
			creatorCopy := *c
			result = append(result, &creatorCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Following returns ids of creators the user follows, ascending.
func (s *CreatorStore) Following(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id := range s.follows[userID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Follow records that userID follows creatorID. Idempotent.
func (s *CreatorStore) Follow(_ context.Context, userID, creatorID string) error {
	if userID == "" || creatorID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.follows[userID] == nil {
		s.follows[userID] = make(map[string]struct{})
	}
	s.follows[userID][creatorID] = struct{}{}
	return nil
}
