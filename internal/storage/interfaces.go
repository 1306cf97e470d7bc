package storage

import (
	"context"
	"time"

	"listrank/internal/domain"
)

// EngagementStore provides grouped reads over the raw engagement event log.
// Every multi-entity read is a single grouped query per call; implementations
// must never fan out per entity.
type EngagementStore interface {
	// CountByList returns per-list event counts of one kind since the given
	// time. Lists with no matching events are simply absent from the map.
	CountByList(ctx context.Context, listIDs []string, kind domain.EventKind, since time.Time) (map[string]int, error)

	// LastSaveAt returns the most recent save timestamp per list.
	LastSaveAt(ctx context.Context, listIDs []string) (map[string]time.Time, error)

	// ListsWithSavesSince returns ids of lists with at least one save since
	// the given time, most-saved first, capped at limit.
	ListsWithSavesSince(ctx context.Context, since time.Time, limit int) ([]string, error)

	// Savers returns the distinct user ids that saved a list, capped at limit.
	Savers(ctx context.Context, listID string, limit int) ([]string, error)

	// CoSavedCounts returns, for the given user cohort, how many cohort
	// members saved each other list. The excluded list id is left out.
	CoSavedCounts(ctx context.Context, userIDs []string, excludeListID string) (map[string]int, error)

	// UserCategoryCounts returns one user's event counts of a kind grouped
	// by list category.
	UserCategoryCounts(ctx context.Context, userID string, kind domain.EventKind) (map[string]int, error)

	// CreatorOverlapCounts returns one user's save/like counts grouped by
	// the creator of the engaged lists.
	CreatorOverlapCounts(ctx context.Context, userID string) (map[string]domain.CreatorOverlap, error)

	// RecordEvent appends one event to the log.
	RecordEvent(ctx context.Context, e *domain.EngagementEvent) error
}

// ListStore provides access to curated lists. All ranked reads return only
// active public lists unless stated otherwise.
type ListStore interface {
	// GetByID retrieves a list by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.List, error)

	// GetByIDs retrieves lists for the given ids in one query. Missing ids
	// are skipped, not errors.
	GetByIDs(ctx context.Context, ids []string) ([]*domain.List, error)

	// Categories returns category slugs having at least one active public
	// list, sorted ascending.
	Categories(ctx context.Context) ([]string, error)

	// TopByCategory returns a category's active public lists ordered by
	// raw save count descending, id ascending, capped at limit.
	TopByCategory(ctx context.Context, category string, limit int) ([]*domain.List, error)

	// TopBySaves returns active public lists ordered by raw save count
	// descending, id ascending, capped at limit.
	TopBySaves(ctx context.Context, limit int) ([]*domain.List, error)

	// ByCategoryOrTags returns active public lists sharing the category or
	// at least one tag, excluding excludeID, capped at limit.
	ByCategoryOrTags(ctx context.Context, category string, tags []string, excludeID string, limit int) ([]*domain.List, error)

	// PublicListsByCreators returns each creator's active public lists,
	// keyed by creator id, in a single batched query.
	PublicListsByCreators(ctx context.Context, creatorIDs []string) (map[string][]*domain.List, error)

	// CreatedCategoryCounts returns one creator's active public list counts
	// grouped by category.
	CreatedCategoryCounts(ctx context.Context, creatorID string) (map[string]int, error)

	// Insert adds a list. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, l *domain.List) error
}

// CreatorStore provides access to creators and the follow graph.
type CreatorStore interface {
	// GetByID retrieves a creator by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Creator, error)

	// GetByIDs retrieves creators keyed by id in one query.
	GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Creator, error)

	// EligibleCreators returns creators owning at least one active public
	// list, excluding excludeUserID. Role filtering is engine policy, not
	// a storage concern.
	EligibleCreators(ctx context.Context, excludeUserID string) ([]*domain.Creator, error)

	// Following returns ids of creators the user already follows.
	Following(ctx context.Context, userID string) ([]string, error)

	// Insert adds a creator. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, c *domain.Creator) error

	// Follow records that userID follows creatorID. Idempotent.
	Follow(ctx context.Context, userID, creatorID string) error
}

// CreatorRankStore provides access to the precomputed creator ranking table.
type CreatorRankStore interface {
	// GetByIDs retrieves rank snapshots keyed by user id in one query.
	// Users without a snapshot are absent from the map.
	GetByIDs(ctx context.Context, userIDs []string) (map[string]domain.CreatorRank, error)

	// TopByMomentum returns snapshots ordered by momentum descending,
	// user id ascending, capped at limit.
	TopByMomentum(ctx context.Context, limit int) ([]domain.CreatorRank, error)

	// Upsert replaces a creator's rank snapshot.
	Upsert(ctx context.Context, r *domain.CreatorRank) error
}

// FeaturedSlotStore provides access to featured slots.
type FeaturedSlotStore interface {
	// Insert adds a slot. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, s *domain.FeaturedSlot) error

	// GetByID retrieves a slot by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.FeaturedSlot, error)

	// ActiveAt returns slots whose window contains t.
	ActiveAt(ctx context.Context, t time.Time) ([]*domain.FeaturedSlot, error)

	// InRange returns slots overlapping [start, end), ordered by StartsAt
	// ascending, id ascending.
	InRange(ctx context.Context, start, end time.Time) ([]*domain.FeaturedSlot, error)

	// UpsertScoreSnapshot writes the engine-owned derived fields. A nil
	// pointer leaves that field untouched. BaselineScore is write-once;
	// PeakScore never decreases, so concurrent refreshes cannot lose the
	// higher value.
	UpsertScoreSnapshot(ctx context.Context, slotID string, baselineScore, peakScore *float64) error
}

// TrendingSnapshotStore caches computed trending views.
type TrendingSnapshotStore interface {
	// Get retrieves a snapshot by view key. Returns ErrNotFound if absent.
	Get(ctx context.Context, view string) (*domain.TrendingSnapshot, error)

	// Put stores a snapshot, replacing any existing one for the same view.
	Put(ctx context.Context, snap *domain.TrendingSnapshot) error
}
