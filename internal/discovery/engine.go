// Package discovery recommends creators to follow by blending a user's
// category affinity with behavioral overlap, precomputed influence and
// momentum, and a diversity rule.
package discovery

import (
	"context"
	"sort"

	"listrank/internal/domain"
	"listrank/internal/storage"
)

// Composite score weights for creator recommendation.
const (
	affinityWeight  = 0.35
	behaviorWeight  = 0.25
	influenceWeight = 0.20
	momentumWeight  = 0.10
	diversityWeight = 0.10

	diversityBonus = 0.1 // flat bonus term

	// Neutral defaults when a signal is absent.
	defaultAffinity = 0.5
	defaultBehavior = 0.3

	affinityScale = 1.5 // dot-product stretch before clamping to 1

	// DefaultLimit is the recommendation count when none is requested.
	DefaultLimit = 10

	// diversityInjections is how many duplicate-category creators are
	// allowed back into the diversified result.
	diversityInjections = 2
)

// Affinity vector event weights.
const (
	affinitySaveWeight   = 2.0
	affinityCreateWeight = 3.0
	affinityLikeWeight   = 1.0
)

// Engine recommends creators for a user.
type Engine struct {
	lists      storage.ListStore
	creators   storage.CreatorStore
	ranks      storage.CreatorRankStore
	engagement storage.EngagementStore
	policy     domain.CreatorPolicy
}

// NewEngine creates a discovery engine. A nil policy admits every creator.
func NewEngine(lists storage.ListStore, creators storage.CreatorStore, ranks storage.CreatorRankStore, engagement storage.EngagementStore, policy domain.CreatorPolicy) *Engine {
	if policy == nil {
		policy = func(*domain.Creator) bool { return true }
	}
	return &Engine{
		lists:      lists,
		creators:   creators,
		ranks:      ranks,
		engagement: engagement,
		policy:     policy,
	}
}

// AffinityVector derives a user's taste vector from saves, created public
// lists and likes, weighted 2/3/1 and normalized to sum 1. An inactive
// user yields an empty vector, not an error.
func (e *Engine) AffinityVector(ctx context.Context, userID string) (domain.AffinityVector, error) {
	saves, err := e.engagement.UserCategoryCounts(ctx, userID, domain.EventSave)
	if err != nil {
		return nil, storage.NewAggregationError("user save counts", err)
	}
	likes, err := e.engagement.UserCategoryCounts(ctx, userID, domain.EventLike)
	if err != nil {
		return nil, storage.NewAggregationError("user like counts", err)
	}
	created, err := e.lists.CreatedCategoryCounts(ctx, userID)
	if err != nil {
		return nil, storage.NewAggregationError("user created counts", err)
	}

	vec := make(domain.AffinityVector)
	for cat, n := range saves {
		vec[cat] += affinitySaveWeight * float64(n)
	}
	for cat, n := range created {
		vec[cat] += affinityCreateWeight * float64(n)
	}
	for cat, n := range likes {
		vec[cat] += affinityLikeWeight * float64(n)
	}
	vec.Normalize()
	return vec, nil
}

// CreatorSignals carries one candidate's raw formula terms so different
// selectors can weight them their own way.
type CreatorSignals struct {
	Creator       *domain.Creator
	Vector        domain.AffinityVector
	TopCategory   string
	Affinity      float64 // min(1, dot·1.5), or defaultAffinity
	Behavior      float64 // normalized overlap weight; valid iff BehaviorKnown
	BehaviorKnown bool
	Influence     float64 // normalized against the pool max
	Momentum      float64 // normalized against the pool max
}

// CandidateSignals scores every eligible creator's raw signal terms for a
// user. A cold catalog yields an empty slice, not an error.
func (e *Engine) CandidateSignals(ctx context.Context, userID string) ([]CreatorSignals, error) {
	userVec, err := e.AffinityVector(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e.candidateSignals(ctx, userID, userVec)
}

// CandidateSignalsWith is CandidateSignals with a caller-supplied user
// vector, so callers that already derived it avoid recomputing.
func (e *Engine) CandidateSignalsWith(ctx context.Context, userID string, userVec domain.AffinityVector) ([]CreatorSignals, error) {
	return e.candidateSignals(ctx, userID, userVec)
}

func (e *Engine) candidateSignals(ctx context.Context, userID string, userVec domain.AffinityVector) ([]CreatorSignals, error) {
	pool, err := e.eligiblePool(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, nil
	}

	ids := make([]string, len(pool))
	for i, c := range pool {
		ids[i] = c.ID
	}

	// One batched read per signal set across the whole pool.
	listsByCreator, err := e.lists.PublicListsByCreators(ctx, ids)
	if err != nil {
		return nil, storage.NewAggregationError("creator lists", err)
	}
	overlaps, err := e.engagement.CreatorOverlapCounts(ctx, userID)
	if err != nil {
		return nil, storage.NewAggregationError("creator overlap", err)
	}
	ranks, err := e.ranks.GetByIDs(ctx, ids)
	if err != nil {
		return nil, storage.NewAggregationError("creator ranks", err)
	}

	maxOverlap := 0.0
	for _, o := range overlaps {
		if w := overlapWeight(o); w > maxOverlap {
			maxOverlap = w
		}
	}
	maxInfluence, maxMomentum := 0.0, 0.0
	for _, id := range ids {
		if r, ok := ranks[id]; ok {
			if r.InfluenceScore > maxInfluence {
				maxInfluence = r.InfluenceScore
			}
			if r.MomentumScore > maxMomentum {
				maxMomentum = r.MomentumScore
			}
		}
	}

	signals := make([]CreatorSignals, 0, len(pool))
	for _, c := range pool {
		vec := creatorVector(listsByCreator[c.ID])

		affinity := defaultAffinity
		if len(userVec) > 0 && len(vec) > 0 {
			affinity = userVec.Dot(vec) * affinityScale
			if affinity > 1 {
				affinity = 1
			}
		}

		behavior := 0.0
		behaviorKnown := false
		if o, ok := overlaps[c.ID]; ok && maxOverlap > 0 {
			behavior = overlapWeight(o) / maxOverlap
			behaviorKnown = true
		}

		influence, momentum := 0.0, 0.0
		if r, ok := ranks[c.ID]; ok {
			if maxInfluence > 0 {
				influence = r.InfluenceScore / maxInfluence
			}
			if maxMomentum > 0 {
				momentum = r.MomentumScore / maxMomentum
			}
		}

		signals = append(signals, CreatorSignals{
			Creator:       c,
			Vector:        vec,
			TopCategory:   vec.TopCategory(),
			Affinity:      affinity,
			Behavior:      behavior,
			BehaviorKnown: behaviorKnown,
			Influence:     influence,
			Momentum:      momentum,
		})
	}
	return signals, nil
}

// RecommendCreators returns up to limit creators ranked by the composite
// score, with up to two duplicate-category creators injected back after
// the per-category diversity pass. An empty result means a cold catalog.
func (e *Engine) RecommendCreators(ctx context.Context, userID string, limit int) ([]domain.RecommendedCreator, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	signals, err := e.CandidateSignals(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(signals) == 0 {
		return nil, nil
	}

	recs := make([]domain.RecommendedCreator, 0, len(signals))
	for _, sig := range signals {
		behavior := sig.Behavior
		if !sig.BehaviorKnown {
			behavior = defaultBehavior
		}
		score := affinityWeight*sig.Affinity +
			behaviorWeight*behavior +
			influenceWeight*sig.Influence +
			momentumWeight*sig.Momentum +
			diversityWeight*diversityBonus
		recs = append(recs, domain.RecommendedCreator{
			Creator:     sig.Creator,
			Score:       score,
			Affinity:    sig.Affinity,
			Behavior:    behavior,
			Influence:   sig.Influence,
			Momentum:    sig.Momentum,
			TopCategory: sig.TopCategory,
		})
	}
	sortRecommended(recs)

	recs = injectDiversity(recs)
	sortRecommended(recs)
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// eligiblePool returns policy-passing creators with at least one public
// active list, excluding the user and everyone they already follow.
func (e *Engine) eligiblePool(ctx context.Context, userID string) ([]*domain.Creator, error) {
	pool, err := e.creators.EligibleCreators(ctx, userID)
	if err != nil {
		return nil, storage.NewAggregationError("eligible creators", err)
	}
	following, err := e.creators.Following(ctx, userID)
	if err != nil {
		return nil, storage.NewAggregationError("followed creators", err)
	}

	followed := make(map[string]struct{}, len(following))
	for _, id := range following {
		followed[id] = struct{}{}
	}

	kept := pool[:0]
	for _, c := range pool {
		if _, ok := followed[c.ID]; ok {
			continue
		}
		if e.policy(c) {
			kept = append(kept, c)
		}
	}
	return kept, nil
}

// injectDiversity keeps one creator per dominant category in score order,
// then re-admits up to diversityInjections of the displaced ones.
func injectDiversity(recs []domain.RecommendedCreator) []domain.RecommendedCreator {
	seen := make(map[string]struct{})
	kept := make([]domain.RecommendedCreator, 0, len(recs))
	var displaced []domain.RecommendedCreator
	for _, r := range recs {
		if _, dup := seen[r.TopCategory]; dup {
			displaced = append(displaced, r)
			continue
		}
		seen[r.TopCategory] = struct{}{}
		kept = append(kept, r)
	}

	n := diversityInjections
	if n > len(displaced) {
		n = len(displaced)
	}
	return append(kept, displaced[:n]...)
}

func sortRecommended(recs []domain.RecommendedCreator) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].Creator.ID < recs[j].Creator.ID
	})
}

// creatorVector builds a creator's normalized category distribution from
// their public lists.
func creatorVector(lists []*domain.List) domain.AffinityVector {
	vec := make(domain.AffinityVector)
	for _, l := range lists {
		if l.Category != "" {
			vec[l.Category]++
		}
	}
	vec.Normalize()
	return vec
}

func overlapWeight(o domain.CreatorOverlap) float64 {
	return 2*float64(o.Saves) + float64(o.Likes)
}
