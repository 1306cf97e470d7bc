// Package memory provides in-memory store implementations used by tests
// and by --use-memory deployments.
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

// EngagementStore is an in-memory implementation of storage.EngagementStore.
type EngagementStore struct {
	mu     sync.RWMutex
	events []*domain.EngagementEvent
}

// NewEngagementStore creates an empty in-memory engagement store.
func NewEngagementStore() *EngagementStore {
	return &EngagementStore{}
}

// Compile-time interface check.
var _ storage.EngagementStore = (*EngagementStore)(nil)

// RecordEvent appends one event to the log. Generates an id when empty.
func (s *EngagementStore) RecordEvent(_ context.Context, e *domain.EngagementEvent) error {
	if e == nil || e.ListID == "" || e.Kind == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eventCopy := *e
	if eventCopy.ID == "" {
		eventCopy.ID = uuid.NewString()
	}
	s.events = append(s.events, &eventCopy)
	return nil
}

// CountByList returns per-list event counts of one kind since the given time.
func (s *EngagementStore) CountByList(_ context.Context, listIDs []string, kind domain.EventKind, since time.Time) (map[string]int, error) {
	wanted := make(map[string]struct{}, len(listIDs))
	for _, id := range listIDs {
		wanted[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, e := range s.events {
		if e.Kind != kind || e.OccurredAt.Before(since) {
			continue
		}
		if _, ok := wanted[e.ListID]; ok {
			counts[e.ListID]++
		}
	}
	return counts, nil
}

// LastSaveAt returns the most recent save timestamp per list.
func (s *EngagementStore) LastSaveAt(_ context.Context, listIDs []string) (map[string]time.Time, error) {
	wanted := make(map[string]struct{}, len(listIDs))
	for _, id := range listIDs {
		wanted[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	last := make(map[string]time.Time)
	for _, e := range s.events {
		if e.Kind != domain.EventSave {
			continue
		}
		if _, ok := wanted[e.ListID]; !ok {
			continue
		}
		if cur, ok := last[e.ListID]; !ok || e.OccurredAt.After(cur) {
			last[e.ListID] = e.OccurredAt
		}
	}
	return last, nil
}

// ListsWithSavesSince returns ids of lists with at least one save since the
// given time, most-saved first, id ascending on ties, capped at limit.
func (s *EngagementStore) ListsWithSavesSince(_ context.Context, since time.Time, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, e := range s.events {
		if e.Kind == domain.EventSave && !e.OccurredAt.Before(since) {
			counts[e.ListID]++
		}
	}

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})

	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// Savers returns the distinct user ids that saved a list, capped at limit.
func (s *EngagementStore) Savers(_ context.Context, listID string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var users []string
	for _, e := range s.events {
		if e.Kind != domain.EventSave || e.ListID != listID || e.UserID == "" {
			continue
		}
		if _, ok := seen[e.UserID]; ok {
			continue
		}
		seen[e.UserID] = struct{}{}
		users = append(users, e.UserID)
	}

	sort.Strings(users)
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

// CoSavedCounts returns how many cohort members saved each other list.
func (s *EngagementStore) CoSavedCounts(_ context.Context, userIDs []string, excludeListID string) (map[string]int, error) {
	cohort := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		cohort[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// Distinct (user, list) pairs so repeated saves do not double count.
	type pair struct{ user, list string }
	seen := make(map[pair]struct{})
	counts := make(map[string]int)
	for _, e := range s.events {
		if e.Kind != domain.EventSave || e.ListID == excludeListID {
			continue
		}
		if _, ok := cohort[e.UserID]; !ok {
			continue
		}
		p := pair{e.UserID, e.ListID}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		counts[e.ListID]++
	}
	return counts, nil
}

// UserCategoryCounts returns one user's event counts of a kind grouped by
// list category.
func (s *EngagementStore) UserCategoryCounts(_ context.Context, userID string, kind domain.EventKind) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, e := range s.events {
		if e.UserID == userID && e.Kind == kind && e.ListCategory != "" {
			counts[e.ListCategory]++
		}
	}
	return counts, nil
}

// CreatorOverlapCounts returns one user's save/like counts grouped by the
// creator of the engaged lists.
func (s *EngagementStore) CreatorOverlapCounts(_ context.Context, userID string) (map[string]domain.CreatorOverlap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	overlaps := make(map[string]domain.CreatorOverlap)
	for _, e := range s.events {
		if e.UserID != userID || e.ListCreatorID == "" {
			continue
		}
		o := overlaps[e.ListCreatorID]
		switch e.Kind {
		case domain.EventSave:
			o.Saves++
		case domain.EventLike:
			o.Likes++
		default:
			continue
		}
		overlaps[e.ListCreatorID] = o
	}
	return overlaps, nil
}
