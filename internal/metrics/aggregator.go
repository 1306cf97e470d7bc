package metrics

import (
	"context"
	"time"

	"listrank/internal/domain"
	"listrank/internal/storage"
)

// Default window lengths for the trending views.
const (
	WindowWeek  = 7 * 24 * time.Hour
	WindowDay   = 24 * time.Hour
	WindowMonth = 30 * 24 * time.Hour
)

// Aggregator builds per-list WindowMetrics from the engagement store.
// Stateless; safe for concurrent use.
type Aggregator struct {
	engagement storage.EngagementStore
}

// NewAggregator creates an aggregator over the given engagement store.
func NewAggregator(engagement storage.EngagementStore) *Aggregator {
	return &Aggregator{engagement: engagement}
}

// WindowMetricsFor computes WindowMetrics for every list, as of now, over
// the trailing window. One grouped query per metric kind regardless of how
// many lists are passed. Lists with zero activity still get an entry with
// AgeDays derived from creation time. Storage failures surface as
// storage.AggregationError; missing data never does.
func (a *Aggregator) WindowMetricsFor(ctx context.Context, lists []*domain.List, window time.Duration, now time.Time) (map[string]domain.WindowMetrics, error) {
	out := make(map[string]domain.WindowMetrics, len(lists))
	if len(lists) == 0 {
		return out, nil
	}

	ids := make([]string, len(lists))
	for i, l := range lists {
		ids[i] = l.ID
	}
	since := now.Add(-window)

	saves, err := a.engagement.CountByList(ctx, ids, domain.EventSave, since)
	if err != nil {
		return nil, storage.NewAggregationError("count save events", err)
	}
	likes, err := a.engagement.CountByList(ctx, ids, domain.EventLike, since)
	if err != nil {
		return nil, storage.NewAggregationError("count like events", err)
	}
	comments, err := a.engagement.CountByList(ctx, ids, domain.EventComment, since)
	if err != nil {
		return nil, storage.NewAggregationError("count comment events", err)
	}
	// Views are not tracked upstream; the formula still carries the term.
	lastSaves, err := a.engagement.LastSaveAt(ctx, ids)
	if err != nil {
		return nil, storage.NewAggregationError("last save timestamps", err)
	}

	for _, l := range lists {
		ageDays := now.Sub(l.CreatedAt).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}

		windowSaves := saves[l.ID]
		daysSinceLastSave := ageDays
		if last, ok := lastSaves[l.ID]; ok {
			daysSinceLastSave = now.Sub(last).Hours() / 24
			if daysSinceLastSave < 0 {
				daysSinceLastSave = 0
			}
		}

		out[l.ID] = domain.WindowMetrics{
			Saves:        windowSaves,
			Likes:        likes[l.ID],
			Comments:     comments[l.ID],
			AgeDays:      ageDays,
			SaveVelocity: SaveVelocity(windowSaves, daysSinceLastSave),
		}
	}

	return out, nil
}
