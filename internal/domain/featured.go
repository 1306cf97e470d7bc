package domain

import "time"

// FeaturedSlot is a time-bounded assignment of one list to a promotional
// position. Corresponds to the featured_slots table in PostgreSQL.
//
// Lifecycle: created at promotion time with a baseline snapshot; mutated
// while active (peak tracking, impression/click counters); immutable once
// EndsAt has passed. The engine writes only BaselineScore and PeakScore;
// every other field is owned by the storage collaborator.
type FeaturedSlot struct {
	ID       string // PRIMARY KEY, opaque id (UUID)
	ListID   string
	Position string // promotional position, e.g. "home_hero"
	StartsAt time.Time
	EndsAt   time.Time

	// Baseline captured at slot creation. Either half may be missing if a
	// capture partially failed; readers null-guard each independently.
	BaselineSaves int
	BaselineScore *float64

	// Updated while the slot is active.
	PeakScore   *float64
	SavesDuring int
	Impressions int
	Clicks      int
}

// Active reports whether the slot window contains t.
func (s *FeaturedSlot) Active(t time.Time) bool {
	return s != nil && !t.Before(s.StartsAt) && t.Before(s.EndsAt)
}
