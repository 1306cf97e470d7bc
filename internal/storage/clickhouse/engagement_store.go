package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"listrank/internal/domain"
	"listrank/internal/storage"
)

// EngagementStore implements storage.EngagementStore using ClickHouse.
// Every read is a single grouped query; nothing fans out per list or user.
type EngagementStore struct {
	conn *Conn
}

// NewEngagementStore creates a new EngagementStore.
func NewEngagementStore(conn *Conn) *EngagementStore {
	return &EngagementStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EngagementStore = (*EngagementStore)(nil)

// RecordEvent appends one event to the log. Generates an id when absent.
func (s *EngagementStore) RecordEvent(ctx context.Context, e *domain.EngagementEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO engagement_events (
			id, kind, user_id, list_id, list_category, list_creator_id, occurred_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare event insert: %w", err)
	}

	err = batch.Append(
		e.ID, string(e.Kind), e.UserID, e.ListID,
		e.ListCategory, e.ListCreatorID, e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send event insert: %w", err)
	}
	return nil
}

// CountByList returns per-list event counts of one kind since the given time.
func (s *EngagementStore) CountByList(ctx context.Context, listIDs []string, kind domain.EventKind, since time.Time) (map[string]int, error) {
	out := make(map[string]int, len(listIDs))
	if len(listIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT list_id, count() AS n
		FROM engagement_events
		WHERE list_id IN (?) AND kind = ? AND occurred_at >= ?
		GROUP BY list_id
	`

	rows, err := s.conn.Query(ctx, query, listIDs, string(kind), since)
	if err != nil {
		return nil, fmt.Errorf("count events by list: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var listID string
		var n uint64
		if err := rows.Scan(&listID, &n); err != nil {
			return nil, fmt.Errorf("scan event count: %w", err)
		}
		out[listID] = int(n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event counts: %w", err)
	}
	return out, nil
}

// LastSaveAt returns the most recent save timestamp per list.
func (s *EngagementStore) LastSaveAt(ctx context.Context, listIDs []string) (map[string]time.Time, error) {
	out := make(map[string]time.Time, len(listIDs))
	if len(listIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT list_id, max(occurred_at) AS last_save
		FROM engagement_events
		WHERE list_id IN (?) AND kind = 'save'
		GROUP BY list_id
	`

	rows, err := s.conn.Query(ctx, query, listIDs)
	if err != nil {
		return nil, fmt.Errorf("last save times: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var listID string
		var at time.Time
		if err := rows.Scan(&listID, &at); err != nil {
			return nil, fmt.Errorf("scan last save: %w", err)
		}
		out[listID] = at
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate last saves: %w", err)
	}
	return out, nil
}

// ListsWithSavesSince returns ids of lists with at least one save since the
// given time, most-saved first, capped at limit.
func (s *EngagementStore) ListsWithSavesSince(ctx context.Context, since time.Time, limit int) ([]string, error) {
	query := `
		SELECT list_id, count() AS n
		FROM engagement_events
		WHERE kind = 'save' AND occurred_at >= ?
		GROUP BY list_id
		ORDER BY n DESC, list_id ASC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("lists with recent saves: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var listID string
		var n uint64
		if err := rows.Scan(&listID, &n); err != nil {
			return nil, fmt.Errorf("scan saved list: %w", err)
		}
		ids = append(ids, listID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saved lists: %w", err)
	}
	return ids, nil
}

// Savers returns the distinct user ids that saved a list, capped at limit.
func (s *EngagementStore) Savers(ctx context.Context, listID string, limit int) ([]string, error) {
	query := `
		SELECT DISTINCT user_id
		FROM engagement_events
		WHERE list_id = ? AND kind = 'save'
		ORDER BY user_id ASC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, listID, limit)
	if err != nil {
		return nil, fmt.Errorf("list savers: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan saver: %w", err)
		}
		users = append(users, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate savers: %w", err)
	}
	return users, nil
}

// CoSavedCounts returns, for the given user cohort, how many cohort members
// saved each other list. Repeat saves by one user count once.
func (s *EngagementStore) CoSavedCounts(ctx context.Context, userIDs []string, excludeListID string) (map[string]int, error) {
	out := make(map[string]int)
	if len(userIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT list_id, uniqExact(user_id) AS n
		FROM engagement_events
		WHERE kind = 'save' AND user_id IN (?) AND list_id != ?
		GROUP BY list_id
	`

	rows, err := s.conn.Query(ctx, query, userIDs, excludeListID)
	if err != nil {
		return nil, fmt.Errorf("co-saved counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var listID string
		var n uint64
		if err := rows.Scan(&listID, &n); err != nil {
			return nil, fmt.Errorf("scan co-saved count: %w", err)
		}
		out[listID] = int(n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate co-saved counts: %w", err)
	}
	return out, nil
}

// UserCategoryCounts returns one user's event counts of a kind grouped by
// list category.
func (s *EngagementStore) UserCategoryCounts(ctx context.Context, userID string, kind domain.EventKind) (map[string]int, error) {
	query := `
		SELECT list_category, count() AS n
		FROM engagement_events
		WHERE user_id = ? AND kind = ?
		GROUP BY list_category
	`

	rows, err := s.conn.Query(ctx, query, userID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("user category counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var category string
		var n uint64
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		out[category] = int(n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category counts: %w", err)
	}
	return out, nil
}

// CreatorOverlapCounts returns one user's save/like counts grouped by the
// creator of the engaged lists.
func (s *EngagementStore) CreatorOverlapCounts(ctx context.Context, userID string) (map[string]domain.CreatorOverlap, error) {
	query := `
		SELECT
			list_creator_id,
			countIf(kind = 'save') AS saves,
			countIf(kind = 'like') AS likes
		FROM engagement_events
		WHERE user_id = ? AND kind IN ('save', 'like')
		GROUP BY list_creator_id
	`

	rows, err := s.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("creator overlap counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.CreatorOverlap)
	for rows.Next() {
		var creatorID string
		var saves, likes uint64
		if err := rows.Scan(&creatorID, &saves, &likes); err != nil {
			return nil, fmt.Errorf("scan creator overlap: %w", err)
		}
		out[creatorID] = domain.CreatorOverlap{Saves: int(saves), Likes: int(likes)}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate creator overlaps: %w", err)
	}
	return out, nil
}
