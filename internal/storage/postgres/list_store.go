package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"listrank/internal/domain"
	"listrank/internal/storage"
)

// ListStore implements storage.ListStore using PostgreSQL.
type ListStore struct {
	pool *Pool
}

// NewListStore creates a new ListStore.
func NewListStore(pool *Pool) *ListStore {
	return &ListStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ListStore = (*ListStore)(nil)

const listColumns = `
	id, title, slug, category, creator_id, tags, item_titles,
	save_count, like_count, view_count, item_count,
	is_active, is_public, created_at
`

// Insert adds a list. Returns ErrDuplicateKey if the id exists.
func (s *ListStore) Insert(ctx context.Context, l *domain.List) error {
	query := `
		INSERT INTO lists (` + listColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := s.pool.Exec(ctx, query,
		l.ID,
		l.Title,
		l.Slug,
		l.Category,
		l.CreatorID,
		l.Tags,
		l.ItemTitles,
		l.SaveCount,
		l.LikeCount,
		l.ViewCount,
		l.ItemCount,
		l.IsActive,
		l.IsPublic,
		l.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert list: %w", err)
	}
	return nil
}

// GetByID retrieves a list by id. Returns ErrNotFound if not exists.
func (s *ListStore) GetByID(ctx context.Context, id string) (*domain.List, error) {
	query := `SELECT ` + listColumns + ` FROM lists WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, id)
	l, err := scanList(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get list by id: %w", err)
	}
	return l, nil
}

// GetByIDs retrieves lists for the given ids in one query. Missing ids are
// skipped, not errors.
func (s *ListStore) GetByIDs(ctx context.Context, ids []string) ([]*domain.List, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + listColumns + ` FROM lists WHERE id = ANY($1) ORDER BY id`

	rows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get lists by ids: %w", err)
	}
	defer rows.Close()

	return scanLists(rows)
}

// Categories returns category slugs having at least one active public list,
// sorted ascending.
func (s *ListStore) Categories(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT category
		FROM lists
		WHERE is_active AND is_public
		ORDER BY category
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

// TopByCategory returns a category's active public lists ordered by raw
// save count descending, id ascending, capped at limit.
func (s *ListStore) TopByCategory(ctx context.Context, category string, limit int) ([]*domain.List, error) {
	query := `
		SELECT ` + listColumns + `
		FROM lists
		WHERE is_active AND is_public AND category = $1
		ORDER BY save_count DESC, id ASC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, category, limit)
	if err != nil {
		return nil, fmt.Errorf("top lists by category: %w", err)
	}
	defer rows.Close()

	return scanLists(rows)
}

// TopBySaves returns active public lists ordered by raw save count
// descending, id ascending, capped at limit.
func (s *ListStore) TopBySaves(ctx context.Context, limit int) ([]*domain.List, error) {
	query := `
		SELECT ` + listColumns + `
		FROM lists
		WHERE is_active AND is_public
		ORDER BY save_count DESC, id ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("top lists by saves: %w", err)
	}
	defer rows.Close()

	return scanLists(rows)
}

// ByCategoryOrTags returns active public lists sharing the category or at
// least one tag, excluding excludeID, capped at limit.
func (s *ListStore) ByCategoryOrTags(ctx context.Context, category string, tags []string, excludeID string, limit int) ([]*domain.List, error) {
	query := `
		SELECT ` + listColumns + `
		FROM lists
		WHERE is_active AND is_public
		  AND id <> $1
		  AND (category = $2 OR tags && $3)
		ORDER BY save_count DESC, id ASC
		LIMIT $4
	`

	rows, err := s.pool.Query(ctx, query, excludeID, category, tags, limit)
	if err != nil {
		return nil, fmt.Errorf("lists by category or tags: %w", err)
	}
	defer rows.Close()

	return scanLists(rows)
}

// PublicListsByCreators returns each creator's active public lists, keyed
// by creator id, in a single batched query.
func (s *ListStore) PublicListsByCreators(ctx context.Context, creatorIDs []string) (map[string][]*domain.List, error) {
	out := make(map[string][]*domain.List, len(creatorIDs))
	if len(creatorIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT ` + listColumns + `
		FROM lists
		WHERE is_active AND is_public AND creator_id = ANY($1)
		ORDER BY creator_id, save_count DESC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, creatorIDs)
	if err != nil {
		return nil, fmt.Errorf("lists by creators: %w", err)
	}
	defer rows.Close()

	lists, err := scanLists(rows)
	if err != nil {
		return nil, err
	}
	for _, l := range lists {
		out[l.CreatorID] = append(out[l.CreatorID], l)
	}
	return out, nil
}

// CreatedCategoryCounts returns one creator's active public list counts
// grouped by category.
func (s *ListStore) CreatedCategoryCounts(ctx context.Context, creatorID string) (map[string]int, error) {
	query := `
		SELECT category, COUNT(*)
		FROM lists
		WHERE is_active AND is_public AND creator_id = $1
		GROUP BY category
	`

	rows, err := s.pool.Query(ctx, query, creatorID)
	if err != nil {
		return nil, fmt.Errorf("created category counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		counts[category] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category counts: %w", err)
	}
	return counts, nil
}

// scanList scans a single row into a List.
func scanList(row pgx.Row) (*domain.List, error) {
	var l domain.List

	err := row.Scan(
		&l.ID,
		&l.Title,
		&l.Slug,
		&l.Category,
		&l.CreatorID,
		&l.Tags,
		&l.ItemTitles,
		&l.SaveCount,
		&l.LikeCount,
		&l.ViewCount,
		&l.ItemCount,
		&l.IsActive,
		&l.IsPublic,
		&l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &l, nil
}

func scanLists(rows pgx.Rows) ([]*domain.List, error) {
	var lists []*domain.List
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		lists = append(lists, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lists: %w", err)
	}
	return lists, nil
}
