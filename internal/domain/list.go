package domain

import "time"

// List represents a curated list as read from storage.
// Corresponds to the lists table in PostgreSQL. Read-only to the engine:
// durable counters are maintained by the storage collaborator.
type List struct {
	ID         string    // PRIMARY KEY, opaque id (UUID)
	Title      string
	Slug       string
	Category   string   // category slug
	CreatorID  string   // owning user
	Tags       []string // normalized lowercase tags
	ItemTitles []string // titles of list items, for content similarity
	SaveCount  int      // lifetime saves
	LikeCount  int      // lifetime likes
	ViewCount  int      // lifetime views (not tracked upstream yet)
	ItemCount  int
	IsActive   bool
	IsPublic   bool
	CreatedAt  time.Time
}

// Eligible reports whether a list may appear in any ranked output.
func (l *List) Eligible() bool {
	return l != nil && l.IsActive && l.IsPublic
}
