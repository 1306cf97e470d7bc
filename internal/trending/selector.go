// Package trending ranks curated lists into the trending views: global,
// per-category, fast-rising, monthly popular, and the uncapped debug view.
package trending

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"listrank/internal/domain"
	"listrank/internal/metrics"
	"listrank/internal/observability"
	"listrank/internal/storage"
)

// Selection parameters.
const (
	perCategoryTopK = 10 // candidates fetched per category for the global merge
	fullSortedTopK  = 20 // candidates fetched per category for the debug view
	maxPerCategory  = 3  // diversity cap in the merged global view

	defaultGlobalLimit     = 6
	defaultCategoryLimit   = 10
	defaultFastRisingLimit = 6
	defaultMonthlyLimit    = 10

	fastRisingPoolCap = 100 // lists with 24h saves considered for fast-rising
	monthlyPoolCap    = 100 // raw-save prefilter for the monthly view

	// DefaultCacheTTL is how long a trending snapshot stays fresh.
	DefaultCacheTTL = 10 * time.Minute
)

// CachePolicy controls snapshot cache usage for one request.
type CachePolicy int

const (
	// CacheDefault serves a fresh snapshot when one exists.
	CacheDefault CachePolicy = iota
	// ForceRecompute bypasses the snapshot and recomputes (admin debug).
	ForceRecompute
)

// Options tune a single trending request. Zero values select the view
// defaults, so Options{} is always valid.
type Options struct {
	Limit  int           // result cap; 0 = view default
	Window time.Duration // metric window override; 0 = view default
	Policy CachePolicy
}

// Selector computes the trending views.
type Selector struct {
	lists     storage.ListStore
	agg       *metrics.Aggregator
	snapshots storage.TrendingSnapshotStore // nil disables caching
	cacheTTL  time.Duration
	obs       *observability.Metrics // nil disables instrumentation

	engagement storage.EngagementStore

	now func() time.Time
}

// NewSelector creates a trending selector. snapshots may be nil to disable
// the snapshot cache; cacheTTL <= 0 selects DefaultCacheTTL.
func NewSelector(lists storage.ListStore, engagement storage.EngagementStore, snapshots storage.TrendingSnapshotStore, cacheTTL time.Duration) *Selector {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Selector{
		lists:      lists,
		agg:        metrics.NewAggregator(engagement),
		snapshots:  snapshots,
		cacheTTL:   cacheTTL,
		engagement: engagement,
		now:        time.Now,
	}
}

// SetObservability attaches Prometheus instrumentation.
func (s *Selector) SetObservability(obs *observability.Metrics) { s.obs = obs }

// scoredList pairs a list with its trending result so the merge can apply
// the per-category diversity cap after sorting.
type scoredList struct {
	list   *domain.List
	result domain.TrendingResult
}

// Global returns the merged cross-category trending view: per-category
// top-10 scored and merged, at most 3 lists per category, default limit 6.
func (s *Selector) Global(ctx context.Context, opts Options) ([]domain.TrendingResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultGlobalLimit
	}
	key := fmt.Sprintf("%s:%d", domain.ViewGlobal, limit)

	if cached := s.fromCache(ctx, key, opts); cached != nil {
		return cached, nil
	}
	defer s.observeDuration(time.Now())

	entries, err := s.mergedByCategory(ctx, perCategoryTopK, windowOr(opts, metrics.WindowWeek))
	if err != nil {
		s.countError(domain.ViewGlobal)
		return nil, err
	}
	entries = applyDiversityCap(entries, maxPerCategory)

	results := toResults(entries, limit)
	s.storeCache(ctx, key, limit, opts, results)
	s.count(domain.ViewGlobal)
	return results, nil
}

// Category returns the trending view restricted to one category. No
// diversity cap: a single category is already uniform.
func (s *Selector) Category(ctx context.Context, category string, opts Options) ([]domain.TrendingResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultCategoryLimit
	}
	key := fmt.Sprintf("%s:%s:%d", domain.ViewCategory, category, limit)

	if cached := s.fromCache(ctx, key, opts); cached != nil {
		return cached, nil
	}
	defer s.observeDuration(time.Now())

	fetch := limit * 2
	if fetch < fullSortedTopK {
		fetch = fullSortedTopK
	}
	pool, err := s.lists.TopByCategory(ctx, category, fetch)
	if err != nil {
		s.countError(domain.ViewCategory)
		return nil, storage.NewAggregationError("category candidates", err)
	}

	entries, err := s.score(ctx, pool, windowOr(opts, metrics.WindowWeek))
	if err != nil {
		s.countError(domain.ViewCategory)
		return nil, err
	}

	results := toResults(entries, limit)
	s.storeCache(ctx, key, limit, opts, results)
	s.count(domain.ViewCategory)
	return results, nil
}

// FastRising returns the 24h spike view: only lists with at least one save
// in the window, scored on 1-day metrics with the fast-rising boost.
func (s *Selector) FastRising(ctx context.Context, opts Options) ([]domain.TrendingResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultFastRisingLimit
	}
	window := windowOr(opts, metrics.WindowDay)
	key := fmt.Sprintf("%s:%d", domain.ViewFastRising, limit)

	if cached := s.fromCache(ctx, key, opts); cached != nil {
		return cached, nil
	}
	defer s.observeDuration(time.Now())

	now := s.now()
	ids, err := s.engagement.ListsWithSavesSince(ctx, now.Add(-window), fastRisingPoolCap)
	if err != nil {
		s.countError(domain.ViewFastRising)
		return nil, storage.NewAggregationError("lists with recent saves", err)
	}

	pool, err := s.lists.GetByIDs(ctx, ids)
	if err != nil {
		s.countError(domain.ViewFastRising)
		return nil, storage.NewAggregationError("fast-rising candidates", err)
	}
	pool = eligibleOnly(pool)

	wm, err := s.agg.WindowMetricsFor(ctx, pool, window, now)
	if err != nil {
		s.countError(domain.ViewFastRising)
		return nil, err
	}

	entries := make([]scoredList, 0, len(pool))
	for _, l := range pool {
		m := wm[l.ID]
		savesLast24h := m.Saves // 1-day window metrics: saves == S1
		score := metrics.FastRisingBoost(metrics.Score(m), savesLast24h)
		entries = append(entries, scoredList{
			list: l,
			result: domain.TrendingResult{
				ListID:       l.ID,
				Score:        score,
				Badge:        metrics.BadgeFor(score),
				IsFastRising: metrics.IsFastRising(savesLast24h),
			},
		})
	}
	sortScored(entries)

	results := toResults(entries, limit)
	s.storeCache(ctx, key, limit, opts, results)
	s.count(domain.ViewFastRising)
	return results, nil
}

// MonthlyPopular returns the 30-day view over a candidate pool prefiltered
// by raw save count, bounding aggregation cost.
func (s *Selector) MonthlyPopular(ctx context.Context, opts Options) ([]domain.TrendingResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultMonthlyLimit
	}
	key := fmt.Sprintf("%s:%d", domain.ViewMonthly, limit)

	if cached := s.fromCache(ctx, key, opts); cached != nil {
		return cached, nil
	}
	defer s.observeDuration(time.Now())

	pool, err := s.lists.TopBySaves(ctx, monthlyPoolCap)
	if err != nil {
		s.countError(domain.ViewMonthly)
		return nil, storage.NewAggregationError("monthly candidates", err)
	}

	entries, err := s.score(ctx, pool, windowOr(opts, metrics.WindowMonth))
	if err != nil {
		s.countError(domain.ViewMonthly)
		return nil, err
	}

	results := toResults(entries, limit)
	s.storeCache(ctx, key, limit, opts, results)
	s.count(domain.ViewMonthly)
	return results, nil
}

// FullSorted returns the uncapped merged ranking for debugging and rank
// lookup. Never cached. maxItems <= 0 returns everything.
func (s *Selector) FullSorted(ctx context.Context, maxItems int) ([]domain.TrendingResult, error) {
	defer s.observeDuration(time.Now())
	entries, err := s.mergedByCategory(ctx, fullSortedTopK, metrics.WindowWeek)
	if err != nil {
		s.countError(domain.ViewFullSorted)
		return nil, err
	}
	s.count(domain.ViewFullSorted)
	return toResults(entries, maxItems), nil
}

// GlobalRank returns a list's 1-based position in the uncapped global
// ranking. Returns storage.ErrNotFound when the list does not rank.
func (s *Selector) GlobalRank(ctx context.Context, listID string) (int, error) {
	results, err := s.FullSorted(ctx, 0)
	if err != nil {
		return 0, err
	}
	for i, r := range results {
		if r.ListID == listID {
			return i + 1, nil
		}
	}
	return 0, storage.ErrNotFound
}

// mergedByCategory fetches every category's top-K pool, scores the merged
// pool on one batched aggregation and sorts it.
func (s *Selector) mergedByCategory(ctx context.Context, perCategory int, window time.Duration) ([]scoredList, error) {
	cats, err := s.lists.Categories(ctx)
	if err != nil {
		return nil, storage.NewAggregationError("list categories", err)
	}

	var pool []*domain.List
	for _, cat := range cats {
		top, err := s.lists.TopByCategory(ctx, cat, perCategory)
		if err != nil {
			return nil, storage.NewAggregationError("category candidates", err)
		}
		pool = append(pool, top...)
	}

	return s.score(ctx, pool, window)
}

// score builds window metrics for the pool in one batched pass and returns
// sorted scored entries.
func (s *Selector) score(ctx context.Context, pool []*domain.List, window time.Duration) ([]scoredList, error) {
	pool = eligibleOnly(pool)
	wm, err := s.agg.WindowMetricsFor(ctx, pool, window, s.now())
	if err != nil {
		return nil, err
	}

	entries := make([]scoredList, 0, len(pool))
	for _, l := range pool {
		score := metrics.Score(wm[l.ID])
		entries = append(entries, scoredList{
			list: l,
			result: domain.TrendingResult{
				ListID: l.ID,
				Score:  score,
				Badge:  metrics.BadgeFor(score),
			},
		})
	}
	sortScored(entries)
	return entries, nil
}

// sortScored orders by score descending, list id ascending on ties.
func sortScored(entries []scoredList) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].result.Score != entries[j].result.Score {
			return entries[i].result.Score > entries[j].result.Score
		}
		return entries[i].result.ListID < entries[j].result.ListID
	})
}

// applyDiversityCap keeps at most max entries per category, preserving
// score order.
func applyDiversityCap(entries []scoredList, max int) []scoredList {
	perCategory := make(map[string]int)
	capped := make([]scoredList, 0, len(entries))
	for _, e := range entries {
		if perCategory[e.list.Category] >= max {
			continue
		}
		perCategory[e.list.Category]++
		capped = append(capped, e)
	}
	return capped
}

func toResults(entries []scoredList, limit int) []domain.TrendingResult {
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	results := make([]domain.TrendingResult, len(entries))
	for i, e := range entries {
		results[i] = e.result
	}
	return results
}

func eligibleOnly(lists []*domain.List) []*domain.List {
	kept := lists[:0]
	for _, l := range lists {
		if l.Eligible() {
			kept = append(kept, l)
		}
	}
	return kept
}

func windowOr(opts Options, def time.Duration) time.Duration {
	if opts.Window > 0 {
		return opts.Window
	}
	return def
}

// fromCache returns a fresh snapshot's results, or nil to recompute. Cache
// failures degrade to recompute, never fail the request. Requests with a
// window override never touch the cache: snapshot keys encode only view and
// limit, so serving or storing nonstandard-window results would mix windows
// under one key.
func (s *Selector) fromCache(ctx context.Context, key string, opts Options) []domain.TrendingResult {
	if s.snapshots == nil || opts.Policy == ForceRecompute || opts.Window > 0 {
		return nil
	}

	snap, err := s.snapshots.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.countError("snapshot_read")
		}
		s.cacheMiss()
		return nil
	}
	if s.now().Sub(snap.ComputedAt) > s.cacheTTL {
		s.cacheMiss()
		return nil
	}

	s.cacheHit()
	return snap.Results
}

// storeCache persists a snapshot best-effort. Window-override results stay
// out of the cache for the same reason fromCache skips them.
func (s *Selector) storeCache(ctx context.Context, key string, limit int, opts Options, results []domain.TrendingResult) {
	if s.snapshots == nil || opts.Window > 0 {
		return
	}
	snap := &domain.TrendingSnapshot{
		View:       key,
		Limit:      limit,
		ComputedAt: s.now(),
		Results:    results,
	}
	if err := s.snapshots.Put(ctx, snap); err != nil {
		s.countError("snapshot_write")
	}
}

func (s *Selector) count(view string) {
	if s.obs != nil {
		s.obs.ComputationsTotal.WithLabelValues("trending", view).Inc()
	}
}

func (s *Selector) observeDuration(start time.Time) {
	if s.obs != nil {
		s.obs.ComputationDuration.WithLabelValues("trending").Observe(time.Since(start).Seconds())
	}
}

func (s *Selector) countError(view string) {
	if s.obs != nil {
		s.obs.ComputationErrors.WithLabelValues("trending/" + view).Inc()
	}
}

func (s *Selector) cacheHit() {
	if s.obs != nil {
		s.obs.CacheHits.Inc()
	}
}

func (s *Selector) cacheMiss() {
	if s.obs != nil {
		s.obs.CacheMisses.Inc()
	}
}
