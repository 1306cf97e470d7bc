package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"listrank/internal/domain"
	"listrank/internal/storage"
)

// ListStore is an in-memory implementation of storage.ListStore.
type ListStore struct {
	mu   sync.RWMutex
	data map[string]*domain.List
}

// NewListStore creates an empty in-memory list store.
func NewListStore() *ListStore {
	return &ListStore{data: make(map[string]*domain.List)}
}

// Compile-time interface check.
var _ storage.ListStore = (*ListStore)(nil)

// Insert adds a list. Generates an id when empty.
func (s *ListStore) Insert(_ context.Context, l *domain.List) error {
	if l == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	listCopy := cloneList(l)
	if listCopy.ID == "" {
		listCopy.ID = uuid.NewString()
	}
	if _, exists := s.data[listCopy.ID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[listCopy.ID] = listCopy
	return nil
}

// GetByID retrieves a list by id. Returns ErrNotFound if not exists.
func (s *ListStore) GetByID(_ context.Context, id string) (*domain.List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneList(l), nil
}

// GetByIDs retrieves lists for the given ids. Missing ids are skipped.
func (s *ListStore) GetByIDs(_ context.Context, ids []string) ([]*domain.List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.List, 0, len(ids))
	for _, id := range ids {
		if l, exists := s.data[id]; exists {
			result = append(result, cloneList(l))
		}
	}
	return result, nil
}

// Categories returns category slugs having at least one active public list.
func (s *ListStore) Categories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, l := range s.data {
		if l.Eligible() && l.Category != "" {
			seen[l.Category] = struct{}{}
		}
	}

	cats := make([]string, 0, len(seen))
	for c := range seen {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats, nil
}

// TopByCategory returns a category's active public lists by save count
// descending, id ascending, capped at limit.
func (s *ListStore) TopByCategory(_ context.Context, category string, limit int) ([]*domain.List, error) {
	return s.filtered(limit, func(l *domain.List) bool {
		return l.Eligible() && l.Category == category
	}), nil
}

// TopBySaves returns active public lists by save count descending, id
// ascending, capped at limit.
func (s *ListStore) TopBySaves(_ context.Context, limit int) ([]*domain.List, error) {
	return s.filtered(limit, func(l *domain.List) bool {
		return l.Eligible()
	}), nil
}

// ByCategoryOrTags returns active public lists sharing the category or at
// least one tag, excluding excludeID, capped at limit.
func (s *ListStore) ByCategoryOrTags(_ context.Context, category string, tags []string, excludeID string, limit int) ([]*domain.List, error) {
	tagSet := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		tagSet[t] = struct{}{}
	}

	return s.filtered(limit, func(l *domain.List) bool {
		if !l.Eligible() || l.ID == excludeID {
			return false
		}
		if category != "" && l.Category == category {
			return true
		}
		for _, t := range l.Tags {
			if _, ok := tagSet[t]; ok {
				return true
			}
		}
		return false
	}), nil
}

// PublicListsByCreators returns each creator's active public lists keyed by
// creator id.
func (s *ListStore) PublicListsByCreators(_ context.Context, creatorIDs []string) (map[string][]*domain.List, error) {
	wanted := make(map[string]struct{}, len(creatorIDs))
	for _, id := range creatorIDs {
		wanted[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string][]*domain.List)
	for _, l := range s.data {
		if !l.Eligible() {
			continue
		}
		if _, ok := wanted[l.CreatorID]; ok {
			result[l.CreatorID] = append(result[l.CreatorID], cloneList(l))
		}
	}
	for _, lists := range result {
		sortBySaves(lists)
	}
	return result, nil
}

// CreatedCategoryCounts returns one creator's active public list counts per
// category.
func (s *ListStore) CreatedCategoryCounts(_ context.Context, creatorID string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, l := range s.data {
		if l.Eligible() && l.CreatorID == creatorID && l.Category != "" {
			counts[l.Category]++
		}
	}
	return counts, nil
}

// filtered collects matching lists by save count descending, id ascending.
func (s *ListStore) filtered(limit int, match func(*domain.List) bool) []*domain.List {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.List
	for _, l := range s.data {
		if match(l) {
			result = append(result, cloneList(l))
		}
	}
	sortBySaves(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func sortBySaves(lists []*domain.List) {
	sort.Slice(lists, func(i, j int) bool {
		if lists[i].SaveCount != lists[j].SaveCount {
			return lists[i].SaveCount > lists[j].SaveCount
		}
		return lists[i].ID < lists[j].ID
	})
}

func cloneList(l *domain.List) *domain.List {
	listCopy := *l
	listCopy.Tags = append([]string(nil), l.Tags...)
	listCopy.ItemTitles = append([]string(nil), l.ItemTitles...)
	return &listCopy
}
