// Package analytics measures how manually featured slots perform against
// the baseline captured when they were promoted.
package analytics

import (
	"context"
	"fmt"
	"time"

	"listrank/internal/domain"
	"listrank/internal/metrics"
	"listrank/internal/observability"
	"listrank/internal/storage"
)

// Impact labels.
const (
	ImpactHigh     = "High Impact"
	ImpactModerate = "Moderate"
	ImpactLow      = "Low Impact"
)

// Impact thresholds. Each condition is independently sufficient.
const (
	highImpactCTR      = 0.15
	highImpactSaveLift = 150.0

	moderateCTR      = 0.08
	moderateSaveLift = 80.0
)

// SlotPerformance is the derived performance of one featured slot. Lift
// fields are nil when the slot has no usable baseline.
type SlotPerformance struct {
	Slot             *domain.FeaturedSlot
	CTR              float64
	SaveLiftPercent  *float64
	ScoreLiftPercent *float64
	Impact           string
}

// Performance derives a slot's metrics. Pure; every ratio guards its
// denominator, so partial baselines degrade individual fields instead of
// failing the slot.
func Performance(slot *domain.FeaturedSlot) SlotPerformance {
	p := SlotPerformance{Slot: slot}

	if slot.Impressions > 0 {
		p.CTR = float64(slot.Clicks) / float64(slot.Impressions)
	}

	if slot.BaselineSaves > 0 {
		lift := float64(slot.SavesDuring) / float64(slot.BaselineSaves) * 100
		p.SaveLiftPercent = &lift
	}

	if slot.BaselineScore != nil && *slot.BaselineScore > 0 && slot.PeakScore != nil {
		lift := (*slot.PeakScore - *slot.BaselineScore) / *slot.BaselineScore * 100
		p.ScoreLiftPercent = &lift
	}

	p.Impact = impactLabel(p)
	return p
}

func impactLabel(p SlotPerformance) string {
	saveLift := 0.0
	if p.SaveLiftPercent != nil {
		saveLift = *p.SaveLiftPercent
	}
	switch {
	case p.CTR >= highImpactCTR || saveLift >= highImpactSaveLift:
		return ImpactHigh
	case p.CTR >= moderateCTR || saveLift >= moderateSaveLift:
		return ImpactModerate
	default:
		return ImpactLow
	}
}

// Service computes slot performance and maintains the engine-owned score
// snapshot fields on active slots.
type Service struct {
	slots storage.FeaturedSlotStore
	lists storage.ListStore
	agg   *metrics.Aggregator
	obs   *observability.Metrics // nil disables instrumentation

	now func() time.Time
}

// NewService creates a performance analytics service.
func NewService(slots storage.FeaturedSlotStore, lists storage.ListStore, engagement storage.EngagementStore) *Service {
	return &Service{
		slots: slots,
		lists: lists,
		agg:   metrics.NewAggregator(engagement),
		now:   time.Now,
	}
}

// SetObservability attaches Prometheus instrumentation.
func (s *Service) SetObservability(obs *observability.Metrics) { s.obs = obs }

// SlotPerformance returns one slot's derived performance.
func (s *Service) SlotPerformance(ctx context.Context, slotID string) (*SlotPerformance, error) {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("load featured slot: %w", err)
	}
	p := Performance(slot)
	return &p, nil
}

// CaptureBaseline scores the slot's list now and records the result as the
// slot's baseline score. Write-once: a baseline already captured wins.
func (s *Service) CaptureBaseline(ctx context.Context, slotID string) error {
	score, err := s.currentScore(ctx, slotID)
	if err != nil {
		return err
	}
	if err := s.slots.UpsertScoreSnapshot(ctx, slotID, &score, nil); err != nil {
		return fmt.Errorf("write baseline score: %w", err)
	}
	s.countWrite()
	return nil
}

// RefreshPeak rescores the slot's list and raises the recorded peak if the
// new score is higher. Safe to race: the store keeps the greater value.
func (s *Service) RefreshPeak(ctx context.Context, slotID string) error {
	score, err := s.currentScore(ctx, slotID)
	if err != nil {
		return err
	}
	if err := s.slots.UpsertScoreSnapshot(ctx, slotID, nil, &score); err != nil {
		return fmt.Errorf("write peak score: %w", err)
	}
	s.countWrite()
	return nil
}

func (s *Service) currentScore(ctx context.Context, slotID string) (float64, error) {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return 0, fmt.Errorf("load featured slot: %w", err)
	}
	list, err := s.lists.GetByID(ctx, slot.ListID)
	if err != nil {
		return 0, fmt.Errorf("load featured list: %w", err)
	}

	wm, err := s.agg.WindowMetricsFor(ctx, []*domain.List{list}, metrics.WindowWeek, s.now())
	if err != nil {
		return 0, err
	}
	return metrics.Score(wm[list.ID]), nil
}

func (s *Service) countWrite() {
	if s.obs != nil {
		s.obs.SnapshotWrites.Inc()
	}
}
