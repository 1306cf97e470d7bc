// Package metrics turns raw engagement signals into trending scores.
// The formula functions are pure; the Aggregator is the only part that
// touches storage.
package metrics

import (
	"math"

	"listrank/internal/domain"
)

// Signal weights of the trending score formula.
const (
	weightSaves    = 4.0
	weightComments = 3.0
	weightLikes    = 2.0
	weightViews    = 0.5
	weightVelocity = 5.0

	// ageDecay dampens the score as the list ages: divisor 1 + AgeDays*ageDecay.
	ageDecay = 0.1
)

// Badge thresholds, inclusive on the lower bound.
const (
	badgeHotThreshold   = 300.0
	badgeViralThreshold = 600.0
)

// Fast-rising constants for the 24h view.
const (
	fastRisingBoostSaves = 20   // saves in 24h required for the boost
	fastRisingBoost      = 20.0 // flat score boost
	fastRisingFlagSaves  = 5    // saves in 24h required for the IsFastRising flag
)

// Score computes the trending score for one window. Inputs are assumed
// clamped non-negative by the caller; the result is never negative.
func Score(m domain.WindowMetrics) float64 {
	raw := float64(m.Saves)*weightSaves +
		float64(m.Comments)*weightComments +
		float64(m.Likes)*weightLikes +
		float64(m.Views)*weightViews +
		m.SaveVelocity*weightVelocity

	score := raw / (1 + m.AgeDays*ageDecay)
	if score < 0 {
		return 0
	}
	return score
}

// BadgeFor maps a score to its badge tier.
func BadgeFor(score float64) domain.Badge {
	switch {
	case score >= badgeViralThreshold:
		return domain.BadgeViral
	case score >= badgeHotThreshold:
		return domain.BadgeHot
	default:
		return domain.BadgeNone
	}
}

// SaveVelocity normalizes window saves by how recently the last save
// happened. The divisor rounds the fractional day up to the next tenth and
// is floored at 1, so a single very recent save is not over-rewarded.
func SaveVelocity(saves int, daysSinceLastSave float64) float64 {
	if saves <= 0 {
		return 0
	}
	divisor := math.Ceil(daysSinceLastSave*10) / 10
	if divisor < 1 {
		divisor = 1
	}
	return float64(saves) / divisor
}

// FastRisingBoost adds a flat boost when the 24h save count indicates a
// sudden spike. Used only by the fast-rising view.
func FastRisingBoost(score float64, savesLast24h int) float64 {
	if savesLast24h >= fastRisingBoostSaves {
		return score + fastRisingBoost
	}
	return score
}

// IsFastRising reports whether the 24h save count earns the fast-rising flag.
func IsFastRising(savesLast24h int) bool {
	return savesLast24h >= fastRisingFlagSaves
}
