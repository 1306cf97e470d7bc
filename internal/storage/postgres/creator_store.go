package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"listrank/internal/domain"
	"listrank/internal/storage"
)

// CreatorStore implements storage.CreatorStore using PostgreSQL. The follow
// graph lives in follows(user_id, creator_id).
type CreatorStore struct {
	pool *Pool
}

// NewCreatorStore creates a new CreatorStore.
func NewCreatorStore(pool *Pool) *CreatorStore {
	return &CreatorStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CreatorStore = (*CreatorStore)(nil)

const creatorColumns = `id, username, display_name, role, created_at`

// Insert adds a creator. Returns ErrDuplicateKey if the id exists.
func (s *CreatorStore) Insert(ctx context.Context, c *domain.Creator) error {
	query := `
		INSERT INTO creators (` + creatorColumns + `)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query,
		c.ID,
		c.Username,
		c.DisplayName,
		c.Role,
		c.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert creator: %w", err)
	}
	return nil
}

// GetByID retrieves a creator by id. Returns ErrNotFound if not exists.
func (s *CreatorStore) GetByID(ctx context.Context, id string) (*domain.Creator, error) {
	query := `SELECT ` + creatorColumns + ` FROM creators WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, id)
	c, err := scanCreator(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get creator by id: %w", err)
	}
	return c, nil
}

// GetByIDs retrieves creators keyed by id in one query.
func (s *CreatorStore) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Creator, error) {
	out := make(map[string]*domain.Creator, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `SELECT ` + creatorColumns + ` FROM creators WHERE id = ANY($1)`

	rows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get creators by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCreator(rows)
		if err != nil {
			return nil, fmt.Errorf("scan creator: %w", err)
		}
		out[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate creators: %w", err)
	}
	return out, nil
}

// EligibleCreators returns creators owning at least one active public list,
// excluding excludeUserID.
func (s *CreatorStore) EligibleCreators(ctx context.Context, excludeUserID string) ([]*domain.Creator, error) {
	query := `
		SELECT DISTINCT c.id, c.username, c.display_name, c.role, c.created_at
		FROM creators c
		JOIN lists l ON l.creator_id = c.id
		WHERE l.is_active AND l.is_public AND c.id <> $1
		ORDER BY c.id
	`

	rows, err := s.pool.Query(ctx, query, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("eligible creators: %w", err)
	}
	defer rows.Close()

	var creators []*domain.Creator
	for rows.Next() {
		c, err := scanCreator(rows)
		if err != nil {
			return nil, fmt.Errorf("scan creator: %w", err)
		}
		creators = append(creators, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate creators: %w", err)
	}
	return creators, nil
}

// Following returns ids of creators the user already follows.
func (s *CreatorStore) Following(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT creator_id FROM follows WHERE user_id = $1 ORDER BY creator_id`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("following: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan followed id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate followed ids: %w", err)
	}
	return ids, nil
}

// Follow records that userID follows creatorID. Idempotent.
func (s *CreatorStore) Follow(ctx context.Context, userID, creatorID string) error {
	query := `
		INSERT INTO follows (user_id, creator_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, creator_id) DO NOTHING
	`

	if _, err := s.pool.Exec(ctx, query, userID, creatorID); err != nil {
		return fmt.Errorf("follow creator: %w", err)
	}
	return nil
}

// scanCreator scans a single row into a Creator.
func scanCreator(row pgx.Row) (*domain.Creator, error) {
	var c domain.Creator

	err := row.Scan(
		&c.ID,
		&c.Username,
		&c.DisplayName,
		&c.Role,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &c, nil
}
