package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"listrank/internal/domain"
	"listrank/internal/storage"
)

// FeaturedSlotStore implements storage.FeaturedSlotStore using PostgreSQL.
type FeaturedSlotStore struct {
	pool *Pool
}

// NewFeaturedSlotStore creates a new FeaturedSlotStore.
func NewFeaturedSlotStore(pool *Pool) *FeaturedSlotStore {
	return &FeaturedSlotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FeaturedSlotStore = (*FeaturedSlotStore)(nil)

const slotColumns = `
	id, list_id, position, starts_at, ends_at,
	baseline_saves, baseline_score, peak_score,
	saves_during, impressions, clicks
`

// Insert adds a slot. Returns ErrDuplicateKey if the id exists.
func (s *FeaturedSlotStore) Insert(ctx context.Context, slot *domain.FeaturedSlot) error {
	query := `
		INSERT INTO featured_slots (` + slotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		slot.ID,
		slot.ListID,
		slot.Position,
		slot.StartsAt,
		slot.EndsAt,
		slot.BaselineSaves,
		slot.BaselineScore,
		slot.PeakScore,
		slot.SavesDuring,
		slot.Impressions,
		slot.Clicks,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert featured slot: %w", err)
	}
	return nil
}

// GetByID retrieves a slot by id. Returns ErrNotFound if not exists.
func (s *FeaturedSlotStore) GetByID(ctx context.Context, id string) (*domain.FeaturedSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM featured_slots WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, id)
	slot, err := scanSlot(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get featured slot by id: %w", err)
	}
	return slot, nil
}

// ActiveAt returns slots whose window contains t.
func (s *FeaturedSlotStore) ActiveAt(ctx context.Context, t time.Time) ([]*domain.FeaturedSlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM featured_slots
		WHERE starts_at <= $1 AND ends_at > $1
		ORDER BY starts_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, t)
	if err != nil {
		return nil, fmt.Errorf("active featured slots: %w", err)
	}
	defer rows.Close()

	return scanSlots(rows)
}

// InRange returns slots overlapping [start, end), ordered by StartsAt
// ascending, id ascending.
func (s *FeaturedSlotStore) InRange(ctx context.Context, start, end time.Time) ([]*domain.FeaturedSlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM featured_slots
		WHERE starts_at < $2 AND ends_at > $1
		ORDER BY starts_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("featured slots in range: %w", err)
	}
	defer rows.Close()

	return scanSlots(rows)
}

// UpsertScoreSnapshot writes the engine-owned derived fields. COALESCE keeps
// an existing baseline; GREATEST keeps the higher peak, so concurrent
// refreshes cannot regress either value.
func (s *FeaturedSlotStore) UpsertScoreSnapshot(ctx context.Context, slotID string, baselineScore, peakScore *float64) error {
	query := `
		UPDATE featured_slots SET
			baseline_score = COALESCE(baseline_score, $2),
			peak_score = GREATEST(COALESCE(peak_score, $3), COALESCE($3, peak_score))
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, slotID, baselineScore, peakScore)
	if err != nil {
		return fmt.Errorf("upsert slot score snapshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanSlot scans a single row into a FeaturedSlot.
func scanSlot(row pgx.Row) (*domain.FeaturedSlot, error) {
	var slot domain.FeaturedSlot

	err := row.Scan(
		&slot.ID,
		&slot.ListID,
		&slot.Position,
		&slot.StartsAt,
		&slot.EndsAt,
		&slot.BaselineSaves,
		&slot.BaselineScore,
		&slot.PeakScore,
		&slot.SavesDuring,
		&slot.Impressions,
		&slot.Clicks,
	)
	if err != nil {
		return nil, err
	}

	return &slot, nil
}

func scanSlots(rows pgx.Rows) ([]*domain.FeaturedSlot, error) {
	var slots []*domain.FeaturedSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan featured slot: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate featured slots: %w", err)
	}
	return slots, nil
}
