package domain

import "time"

// Badge is the discrete trending tier derived from score thresholds.
type Badge string

// Badge tiers. Thresholds are inclusive on the lower bound.
const (
	BadgeNone  Badge = "none"
	BadgeHot   Badge = "hot"
	BadgeViral Badge = "viral"
)

// TrendingResult is one scored entry of a trending view.
// Ephemeral: recomputed per request unless served from a snapshot.
type TrendingResult struct {
	ListID       string
	Score        float64
	Badge        Badge
	IsFastRising bool
}

// Trending view identifiers, used as snapshot keys.
const (
	ViewGlobal     = "global"
	ViewCategory   = "category"
	ViewFastRising = "fast_rising"
	ViewMonthly    = "monthly"
	ViewFullSorted = "full_sorted"
)

// TrendingSnapshot is a cached trending view with its computation time.
// Corresponds to the trending_snapshots table in PostgreSQL.
type TrendingSnapshot struct {
	View       string // snapshot key, e.g. "global:6" or "category:design:10"
	Limit      int
	ComputedAt time.Time
	Results    []TrendingResult
}
