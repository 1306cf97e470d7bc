package postgres

import (
	"context"
	"fmt"

	"listrank/internal/domain"
	"listrank/internal/storage"
)

// CreatorRankStore implements storage.CreatorRankStore using PostgreSQL.
// Rows are precomputed snapshots, one per creator.
type CreatorRankStore struct {
	pool *Pool
}

// NewCreatorRankStore creates a new CreatorRankStore.
func NewCreatorRankStore(pool *Pool) *CreatorRankStore {
	return &CreatorRankStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CreatorRankStore = (*CreatorRankStore)(nil)

// GetByIDs retrieves rank snapshots keyed by user id in one query.
func (s *CreatorRankStore) GetByIDs(ctx context.Context, userIDs []string) (map[string]domain.CreatorRank, error) {
	out := make(map[string]domain.CreatorRank, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT user_id, influence_score, momentum_score, computed_at
		FROM creator_ranks
		WHERE user_id = ANY($1)
	`

	rows, err := s.pool.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("get creator ranks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r domain.CreatorRank
		if err := rows.Scan(&r.UserID, &r.InfluenceScore, &r.MomentumScore, &r.ComputedAt); err != nil {
			return nil, fmt.Errorf("scan creator rank: %w", err)
		}
		out[r.UserID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate creator ranks: %w", err)
	}
	return out, nil
}

// TopByMomentum returns snapshots ordered by momentum descending, user id
// ascending, capped at limit.
func (s *CreatorRankStore) TopByMomentum(ctx context.Context, limit int) ([]domain.CreatorRank, error) {
	query := `
		SELECT user_id, influence_score, momentum_score, computed_at
		FROM creator_ranks
		ORDER BY momentum_score DESC, user_id ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("top creator ranks: %w", err)
	}
	defer rows.Close()

	var ranks []domain.CreatorRank
	for rows.Next() {
		var r domain.CreatorRank
		if err := rows.Scan(&r.UserID, &r.InfluenceScore, &r.MomentumScore, &r.ComputedAt); err != nil {
			return nil, fmt.Errorf("scan creator rank: %w", err)
		}
		ranks = append(ranks, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate creator ranks: %w", err)
	}
	return ranks, nil
}

// Upsert replaces a creator's rank snapshot.
func (s *CreatorRankStore) Upsert(ctx context.Context, r *domain.CreatorRank) error {
	query := `
		INSERT INTO creator_ranks (user_id, influence_score, momentum_score, computed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			influence_score = EXCLUDED.influence_score,
			momentum_score = EXCLUDED.momentum_score,
			computed_at = EXCLUDED.computed_at
	`

	if _, err := s.pool.Exec(ctx, query, r.UserID, r.InfluenceScore, r.MomentumScore, r.ComputedAt); err != nil {
		return fmt.Errorf("upsert creator rank: %w", err)
	}
	return nil
}
