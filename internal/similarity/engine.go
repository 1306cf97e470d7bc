// Package similarity finds the lists most similar to a source list through
// a cascade of strategies: behavioral co-save overlap blended with content
// signals, content-only matching, then popularity fallbacks.
package similarity

import (
	"context"
	"fmt"
	"sort"

	"listrank/internal/domain"
	"listrank/internal/storage"
)

// Cascade parameters.
const (
	// MaxResults is the hard cap on similar lists returned.
	MaxResults = 4

	minCohortSize      = 5   // distinct savers required for the behavioral stage
	saverCohortCap     = 500 // savers fetched for the cohort
	contentCandidates  = 30  // candidate cap for the content stage
	fallbackCandidates = 12  // fetch size for the popularity fallbacks

	behaviorWeight = 0.6 // blend weight of the co-save signal
	contentWeight  = 0.4 // blend weight of the normalized content signal
)

// Content score term weights.
const (
	tagOverlapWeight   = 0.5
	sameCategoryWeight = 0.3
	saveSimWeight      = 0.2
	sharedTitleWeight  = 0.1

	sharedTitleCap = 3 // shared item titles counted at most this many times
)

// Engine computes similar lists.
type Engine struct {
	lists      storage.ListStore
	engagement storage.EngagementStore
	creators   storage.CreatorStore
	policy     domain.CreatorPolicy
}

// NewEngine creates a similarity engine. A nil policy admits every creator.
func NewEngine(lists storage.ListStore, engagement storage.EngagementStore, creators storage.CreatorStore, policy domain.CreatorPolicy) *Engine {
	if policy == nil {
		policy = func(*domain.Creator) bool { return true }
	}
	return &Engine{
		lists:      lists,
		engagement: engagement,
		creators:   creators,
		policy:     policy,
	}
}

// cascadeState accumulates picks across stages.
type cascadeState struct {
	source *domain.List
	picked []domain.SimilarList
	seen   map[string]struct{}
}

func (c *cascadeState) full() bool { return len(c.picked) >= MaxResults }

func (c *cascadeState) add(l *domain.List, score float64, stage string) {
	if c.full() {
		return
	}
	if _, dup := c.seen[l.ID]; dup {
		return
	}
	c.seen[l.ID] = struct{}{}
	c.picked = append(c.picked, domain.SimilarList{List: l, Score: score, Stage: stage})
}

// stage is one tier of the cascade. Stages run in order until the result
// is full; a stage that finds nothing is not an error.
type stage struct {
	name string
	run  func(ctx context.Context, state *cascadeState) error
}

// TopSimilar returns up to MaxResults lists similar to the given list.
// Exhausting every stage with an empty result is valid, not an error.
func (e *Engine) TopSimilar(ctx context.Context, listID string) ([]domain.SimilarList, error) {
	source, err := e.lists.GetByID(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("load source list: %w", err)
	}

	state := &cascadeState{
		source: source,
		seen:   map[string]struct{}{source.ID: {}},
	}

	stages := []stage{
		{domain.SimilarityStageBehavioral, e.behavioralStage},
		{domain.SimilarityStageContent, e.contentStage},
		{domain.SimilarityStageCategoryPopularity, e.categoryPopularityStage},
		{domain.SimilarityStageGlobalPopularity, e.globalPopularityStage},
	}
	for _, st := range stages {
		if state.full() {
			break
		}
		if err := st.run(ctx, state); err != nil {
			return nil, fmt.Errorf("similarity stage %s: %w", st.name, err)
		}
	}

	return state.picked, nil
}

// behavioralStage blends co-save overlap of the source's saver cohort with
// content similarity. Skipped when the cohort is too small to be a signal.
func (e *Engine) behavioralStage(ctx context.Context, state *cascadeState) error {
	savers, err := e.engagement.Savers(ctx, state.source.ID, saverCohortCap)
	if err != nil {
		return storage.NewAggregationError("saver cohort", err)
	}
	if len(savers) < minCohortSize {
		return nil
	}

	coCounts, err := e.engagement.CoSavedCounts(ctx, savers, state.source.ID)
	if err != nil {
		return storage.NewAggregationError("co-saved counts", err)
	}
	if len(coCounts) == 0 {
		return nil
	}

	ids := make([]string, 0, len(coCounts))
	for id := range coCounts {
		ids = append(ids, id)
	}
	candidates, err := e.eligibleLists(ctx, ids, state.source.ID)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil
	}

	// Content scores normalized by their max so the blend stays in [0,1].
	content := make(map[string]float64, len(candidates))
	maxContent := 0.0
	maxSaves := maxSaveCount(state.source, candidates)
	for _, c := range candidates {
		cs := contentScore(state.source, c, maxSaves)
		content[c.ID] = cs
		if cs > maxContent {
			maxContent = cs
		}
	}

	cohort := float64(len(savers))
	type scored struct {
		list  *domain.List
		score float64
	}
	entries := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		behavior := float64(coCounts[c.ID]) / cohort
		if behavior > 1 {
			behavior = 1
		}
		normContent := 0.0
		if maxContent > 0 {
			normContent = content[c.ID] / maxContent
		}
		entries = append(entries, scored{c, behaviorWeight*behavior + contentWeight*normContent})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].list.ID < entries[j].list.ID
	})

	for _, en := range entries {
		state.add(en.list, en.score, domain.SimilarityStageBehavioral)
	}
	return nil
}

// contentStage matches on shared category or tags only.
func (e *Engine) contentStage(ctx context.Context, state *cascadeState) error {
	pool, err := e.lists.ByCategoryOrTags(ctx, state.source.Category, state.source.Tags, state.source.ID, contentCandidates)
	if err != nil {
		return storage.NewAggregationError("content candidates", err)
	}
	candidates, err := e.filterByCreator(ctx, pool)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil
	}

	maxSaves := maxSaveCount(state.source, candidates)
	type scored struct {
		list  *domain.List
		score float64
	}
	entries := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		entries = append(entries, scored{c, contentScore(state.source, c, maxSaves)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].list.ID < entries[j].list.ID
	})

	for _, en := range entries {
		state.add(en.list, en.score, domain.SimilarityStageContent)
	}
	return nil
}

// categoryPopularityStage falls back to the source category's most saved.
func (e *Engine) categoryPopularityStage(ctx context.Context, state *cascadeState) error {
	pool, err := e.lists.TopByCategory(ctx, state.source.Category, fallbackCandidates)
	if err != nil {
		return storage.NewAggregationError("category popularity", err)
	}
	return e.appendPopular(ctx, state, pool, domain.SimilarityStageCategoryPopularity)
}

// globalPopularityStage falls back to the most saved lists anywhere.
func (e *Engine) globalPopularityStage(ctx context.Context, state *cascadeState) error {
	pool, err := e.lists.TopBySaves(ctx, fallbackCandidates)
	if err != nil {
		return storage.NewAggregationError("global popularity", err)
	}
	return e.appendPopular(ctx, state, pool, domain.SimilarityStageGlobalPopularity)
}

func (e *Engine) appendPopular(ctx context.Context, state *cascadeState, pool []*domain.List, stageName string) error {
	candidates, err := e.filterByCreator(ctx, pool)
	if err != nil {
		return err
	}
	for _, c := range candidates {
		if c.ID == state.source.ID {
			continue
		}
		state.add(c, 0, stageName)
	}
	return nil
}

// eligibleLists loads lists by id and keeps only eligible ones.
func (e *Engine) eligibleLists(ctx context.Context, ids []string, excludeID string) ([]*domain.List, error) {
	lists, err := e.lists.GetByIDs(ctx, ids)
	if err != nil {
		return nil, storage.NewAggregationError("candidate lists", err)
	}
	kept := lists[:0]
	for _, l := range lists {
		if l.Eligible() && l.ID != excludeID {
			kept = append(kept, l)
		}
	}
	return e.filterByCreator(ctx, kept)
}

// filterByCreator drops lists whose creator fails the injected policy,
// resolving all creators in one batched read.
func (e *Engine) filterByCreator(ctx context.Context, lists []*domain.List) ([]*domain.List, error) {
	if len(lists) == 0 {
		return lists, nil
	}

	ids := make([]string, 0, len(lists))
	seen := make(map[string]struct{}, len(lists))
	for _, l := range lists {
		if _, ok := seen[l.CreatorID]; !ok {
			seen[l.CreatorID] = struct{}{}
			ids = append(ids, l.CreatorID)
		}
	}

	creators, err := e.creators.GetByIDs(ctx, ids)
	if err != nil {
		return nil, storage.NewAggregationError("candidate creators", err)
	}

	kept := lists[:0]
	for _, l := range lists {
		if e.policy(creators[l.CreatorID]) {
			kept = append(kept, l)
		}
	}
	return kept, nil
}

// contentScore blends tag overlap, category match, save-count similarity
// and shared item titles. maxSaves bounds the save similarity term.
func contentScore(source, candidate *domain.List, maxSaves int) float64 {
	overlap := overlapCount(source.Tags, candidate.Tags)

	sameCategory := 0.0
	if candidate.Category == source.Category && source.Category != "" {
		sameCategory = 1
	}

	if maxSaves < 1 {
		maxSaves = 1
	}
	diff := source.SaveCount - candidate.SaveCount
	if diff < 0 {
		diff = -diff
	}
	saveSim := 1 - float64(diff)/float64(maxSaves)
	if saveSim < 0 {
		saveSim = 0
	} else if saveSim > 1 {
		saveSim = 1
	}

	shared := overlapCount(source.ItemTitles, candidate.ItemTitles)
	if shared > sharedTitleCap {
		shared = sharedTitleCap
	}

	return tagOverlapWeight*float64(overlap) +
		sameCategoryWeight*sameCategory +
		saveSimWeight*saveSim +
		sharedTitleWeight*float64(shared)
}

func overlapCount(a, b []string) int {
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	n := 0
	for _, s := range b {
		if _, ok := set[s]; ok {
			n++
			delete(set, s) // count each shared value once
		}
	}
	return n
}

func maxSaveCount(source *domain.List, candidates []*domain.List) int {
	maxSaves := source.SaveCount
	for _, c := range candidates {
		if c.SaveCount > maxSaves {
			maxSaves = c.SaveCount
		}
	}
	return maxSaves
}
