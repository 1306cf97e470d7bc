// Package spotlight picks the single top personalized creator and writes
// the human-readable justification shown next to them.
package spotlight

import (
	"context"
	"fmt"

	"listrank/internal/discovery"
	"listrank/internal/domain"
	"listrank/internal/storage"
)

// Affinity-weighted score variant for the spotlight pick.
const (
	affinityWeight  = 0.5
	influenceWeight = 0.2
	momentumWeight  = 0.2
	behaviorWeight  = 0.1

	defaultBehavior = 0.1 // neutral behavior term when overlap is unknown
)

// risingExplanation is the fixed text of the cold-start fallback.
const risingExplanation = "rising creator this week"

// Selector picks the spotlight creator.
type Selector struct {
	discovery  *discovery.Engine
	engagement storage.EngagementStore
	lists      storage.ListStore
}

// NewSelector creates a spotlight selector on top of a discovery engine.
func NewSelector(d *discovery.Engine, engagement storage.EngagementStore, lists storage.ListStore) *Selector {
	return &Selector{discovery: d, engagement: engagement, lists: lists}
}

// Spotlight returns the top personalized creator with an explanation, the
// rising-creator fallback for users with no taste signal yet, or nil when
// the catalog has no eligible creators.
func (s *Selector) Spotlight(ctx context.Context, userID string) (*domain.Spotlight, error) {
	userVec, err := s.discovery.AffinityVector(ctx, userID)
	if err != nil {
		return nil, err
	}

	signals, err := s.discovery.CandidateSignalsWith(ctx, userID, userVec)
	if err != nil {
		return nil, err
	}
	if len(signals) == 0 {
		return nil, nil
	}

	if len(userVec) == 0 {
		return risingFallback(signals), nil
	}

	best := signals[0]
	bestScore := spotlightScore(best)
	for _, sig := range signals[1:] {
		score := spotlightScore(sig)
		if score > bestScore || (score == bestScore && sig.Creator.ID < best.Creator.ID) {
			best = sig
			bestScore = score
		}
	}

	category := best.TopCategory
	if category == "" {
		category = userVec.TopCategory()
	}
	explanation, err := s.explain(ctx, userID, category)
	if err != nil {
		return nil, err
	}

	return &domain.Spotlight{
		Creator:     best.Creator,
		Score:       bestScore,
		Category:    category,
		Explanation: explanation,
	}, nil
}

func spotlightScore(sig discovery.CreatorSignals) float64 {
	behavior := sig.Behavior
	if !sig.BehaviorKnown {
		behavior = defaultBehavior
	}
	return affinityWeight*sig.Affinity +
		influenceWeight*sig.Influence +
		momentumWeight*sig.Momentum +
		behaviorWeight*behavior
}

// risingFallback picks the highest-momentum candidate, id ascending on ties.
func risingFallback(signals []discovery.CreatorSignals) *domain.Spotlight {
	best := signals[0]
	for _, sig := range signals[1:] {
		if sig.Momentum > best.Momentum ||
			(sig.Momentum == best.Momentum && sig.Creator.ID < best.Creator.ID) {
			best = sig
		}
	}
	return &domain.Spotlight{
		Creator:          best.Creator,
		Score:            best.Momentum,
		Category:         best.TopCategory,
		Explanation:      risingExplanation,
		IsRisingFallback: true,
	}
}

// explain counts the user's own activity in the creator's dominant
// category and renders the justification.
func (s *Selector) explain(ctx context.Context, userID, category string) (string, error) {
	saves, err := s.engagement.UserCategoryCounts(ctx, userID, domain.EventSave)
	if err != nil {
		return "", storage.NewAggregationError("user save counts", err)
	}
	created, err := s.lists.CreatedCategoryCounts(ctx, userID)
	if err != nil {
		return "", storage.NewAggregationError("user created counts", err)
	}

	saved := saves[category]
	made := created[category]
	switch {
	case saved > 0 && made > 0:
		return fmt.Sprintf("because you saved %d %s items and created %d %s lists", saved, category, made, category), nil
	case saved > 0:
		return fmt.Sprintf("because you saved %d %s items", saved, category), nil
	case made > 0:
		return fmt.Sprintf("because you created %d %s lists", made, category), nil
	default:
		return fmt.Sprintf("because you're active in %s", category), nil
	}
}
