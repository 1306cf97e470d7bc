package domain

import "time"

// EventKind identifies a kind of engagement event.
type EventKind string

// Engagement event kinds.
const (
	EventSave    EventKind = "save"
	EventLike    EventKind = "like"
	EventComment EventKind = "comment"
	EventView    EventKind = "view"
)

// EngagementEvent is a single raw engagement event in the event log.
// Denormalized with the list's category and creator so grouped queries
// never need a join against the relational store.
type EngagementEvent struct {
	ID            string
	ListID        string
	UserID        string
	ListCategory  string // category slug of the list at event time
	ListCreatorID string // creator of the list at event time
	Kind          EventKind
	OccurredAt    time.Time
}

// CreatorOverlap counts one user's engagement with a single creator's lists.
type CreatorOverlap struct {
	Saves int
	Likes int
}

// WindowMetrics holds per-list engagement metrics for one time window.
// Computation-local value object: built fresh on every scoring call and
// never persisted.
type WindowMetrics struct {
	Saves        int     // saves within the window
	Likes        int     // likes within the window
	Comments     int     // comments within the window
	Views        int     // views within the window (always 0 upstream)
	AgeDays      float64 // list age in days, fractional
	SaveVelocity float64 // saves normalized by recency of the last save
}
