package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"listrank/internal/domain"
	"listrank/internal/storage"
)

// TrendingSnapshotStore implements storage.TrendingSnapshotStore using
// PostgreSQL. Results are stored as a JSONB document; snapshots are small
// and read whole, so there is nothing to gain from relational rows.
type TrendingSnapshotStore struct {
	pool *Pool
}

// NewTrendingSnapshotStore creates a new TrendingSnapshotStore.
func NewTrendingSnapshotStore(pool *Pool) *TrendingSnapshotStore {
	return &TrendingSnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TrendingSnapshotStore = (*TrendingSnapshotStore)(nil)

// Get retrieves a snapshot by view key. Returns ErrNotFound if absent.
func (s *TrendingSnapshotStore) Get(ctx context.Context, view string) (*domain.TrendingSnapshot, error) {
	query := `
		SELECT view, result_limit, computed_at, results
		FROM trending_snapshots
		WHERE view = $1
	`

	var snap domain.TrendingSnapshot
	var raw []byte
	err := s.pool.QueryRow(ctx, query, view).Scan(&snap.View, &snap.Limit, &snap.ComputedAt, &raw)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trending snapshot: %w", err)
	}

	if err := json.Unmarshal(raw, &snap.Results); err != nil {
		return nil, fmt.Errorf("decode trending snapshot results: %w", err)
	}
	return &snap, nil
}

// Put stores a snapshot, replacing any existing one for the same view.
func (s *TrendingSnapshotStore) Put(ctx context.Context, snap *domain.TrendingSnapshot) error {
	raw, err := json.Marshal(snap.Results)
	if err != nil {
		return fmt.Errorf("encode trending snapshot results: %w", err)
	}

	query := `
		INSERT INTO trending_snapshots (view, result_limit, computed_at, results)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (view) DO UPDATE SET
			result_limit = EXCLUDED.result_limit,
			computed_at = EXCLUDED.computed_at,
			results = EXCLUDED.results
	`

	if _, err := s.pool.Exec(ctx, query, snap.View, snap.Limit, snap.ComputedAt, raw); err != nil {
		return fmt.Errorf("put trending snapshot: %w", err)
	}
	return nil
}
