package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"listrank/internal/domain"
)

// Recommendation rule thresholds for the weekly report.
const (
	lowAvgCTR     = 0.08
	strongAvgLift = 150.0
	reportWeek    = 7 * 24 * time.Hour

	// defaultInsightRangeDays is the lookback when no range is requested.
	defaultInsightRangeDays = 28
)

// WeeklyReport summarizes featured-slot performance over one week.
type WeeklyReport struct {
	WeekStart time.Time
	WeekEnd   time.Time

	Slots []SlotPerformance

	AvgCTR          float64
	AvgSaveLift     float64 // over slots with a usable baseline
	HighImpactCount int

	Recommendations []string
}

// CategoryInsight aggregates slot performance per list category.
type CategoryInsight struct {
	Category    string
	SlotCount   int
	AvgCTR      float64
	AvgSaveLift float64
	HighImpact  int

	Recommendations []string
}

// WeeklyReport builds a report for the week starting at weekStart. Slots
// merely overlapping the week count in full; featured windows are short
// enough that prorating would add noise, not signal.
func (s *Service) WeeklyReport(ctx context.Context, weekStart time.Time) (*WeeklyReport, error) {
	weekEnd := weekStart.Add(reportWeek)
	slots, err := s.slots.InRange(ctx, weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("load featured slots: %w", err)
	}

	r := &WeeklyReport{WeekStart: weekStart, WeekEnd: weekEnd}
	var ctrSum, liftSum float64
	var liftCount int
	for _, slot := range slots {
		p := Performance(slot)
		r.Slots = append(r.Slots, p)

		ctrSum += p.CTR
		if p.SaveLiftPercent != nil {
			liftSum += *p.SaveLiftPercent
			liftCount++
		}
		if p.Impact == ImpactHigh {
			r.HighImpactCount++
		}
	}
	if len(r.Slots) > 0 {
		r.AvgCTR = ctrSum / float64(len(r.Slots))
	}
	if liftCount > 0 {
		r.AvgSaveLift = liftSum / float64(liftCount)
	}
	r.Recommendations = recommendations(r)
	return r, nil
}

// recommendations applies fixed editorial rules to the aggregate numbers.
// Rules are independent; a week can trigger several.
func recommendations(r *WeeklyReport) []string {
	if len(r.Slots) == 0 {
		return []string{"no featured slots ran this week; schedule at least one placement"}
	}

	var recs []string
	if r.AvgCTR < lowAvgCTR {
		recs = append(recs, fmt.Sprintf(
			"average CTR %.1f%% is below %.0f%%; refresh hero artwork and copy for featured placements",
			r.AvgCTR*100, lowAvgCTR*100))
	}
	if r.HighImpactCount == 0 {
		recs = append(recs, "no high-impact slots this week; rotate in different lists or categories")
	}
	if r.AvgSaveLift >= strongAvgLift {
		recs = append(recs, fmt.Sprintf(
			"average save lift %.0f%% is strong; consider expanding featured inventory",
			r.AvgSaveLift))
	}
	if len(recs) == 0 {
		recs = append(recs, "performance is within expected ranges; keep the current rotation")
	}
	return recs
}

// CategoryInsights groups slot performance by the featured list's category
// over the trailing rangeDays, highest average CTR first. rangeDays <= 0
// selects the default lookback.
func (s *Service) CategoryInsights(ctx context.Context, rangeDays int) ([]CategoryInsight, error) {
	if rangeDays <= 0 {
		rangeDays = defaultInsightRangeDays
	}
	now := s.now()
	slots, err := s.slots.InRange(ctx, now.Add(-time.Duration(rangeDays)*24*time.Hour), now)
	if err != nil {
		return nil, fmt.Errorf("load featured slots: %w", err)
	}
	if len(slots) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(slots))
	for _, slot := range slots {
		ids = append(ids, slot.ListID)
	}
	lists, err := s.lists.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load featured lists: %w", err)
	}
	byID := make(map[string]*domain.List, len(lists))
	for _, l := range lists {
		byID[l.ID] = l
	}

	type acc struct {
		ctrSum, liftSum float64
		liftCount       int
		insight         CategoryInsight
	}
	buckets := make(map[string]*acc)
	for _, slot := range slots {
		list, ok := byID[slot.ListID]
		if !ok {
			continue // list deleted since the slot ran
		}
		b := buckets[list.Category]
		if b == nil {
			b = &acc{insight: CategoryInsight{Category: list.Category}}
			buckets[list.Category] = b
		}
		p := Performance(slot)
		b.insight.SlotCount++
		b.ctrSum += p.CTR
		if p.SaveLiftPercent != nil {
			b.liftSum += *p.SaveLiftPercent
			b.liftCount++
		}
		if p.Impact == ImpactHigh {
			b.insight.HighImpact++
		}
	}

	out := make([]CategoryInsight, 0, len(buckets))
	for _, b := range buckets {
		b.insight.AvgCTR = b.ctrSum / float64(b.insight.SlotCount)
		if b.liftCount > 0 {
			b.insight.AvgSaveLift = b.liftSum / float64(b.liftCount)
		}
		b.insight.Recommendations = categoryRecommendations(b.insight)
		out = append(out, b.insight)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgCTR != out[j].AvgCTR {
			return out[i].AvgCTR > out[j].AvgCTR
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// categoryRecommendations applies the per-category editorial rules.
func categoryRecommendations(in CategoryInsight) []string {
	var recs []string
	if in.AvgSaveLift >= strongAvgLift {
		recs = append(recs, fmt.Sprintf(
			"%s placements average %.0f%% save lift; expand featured inventory in this category",
			in.Category, in.AvgSaveLift))
	}
	if in.AvgCTR < lowAvgCTR {
		recs = append(recs, fmt.Sprintf(
			"%s placements average %.1f%% CTR; feature different lists from this category",
			in.Category, in.AvgCTR*100))
	}
	return recs
}
