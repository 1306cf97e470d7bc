package domain

import "time"

// Creator roles as stored by the platform.
const (
	RoleUser    = "user"
	RoleCurator = "curator"
	RoleAdmin   = "admin"
)

// Creator represents a user who owns curated lists.
type Creator struct {
	ID          string // PRIMARY KEY, opaque id (UUID)
	Username    string
	DisplayName string
	Role        string // user | curator | admin
	CreatedAt   time.Time
}

// CreatorPolicy decides whether a creator may appear in recommendation and
// similarity output. Injected so the engine stays testable without a real
// role system.
type CreatorPolicy func(*Creator) bool

// DefaultCreatorPolicy excludes plain end-users from ranked creator output.
func DefaultCreatorPolicy(c *Creator) bool {
	return c != nil && c.Role != RoleUser
}

// CreatorRank is a precomputed per-creator ranking snapshot.
// Freshness is owned by an external ranking job; the engine only reads.
type CreatorRank struct {
	UserID         string
	InfluenceScore float64
	MomentumScore  float64
	ComputedAt     time.Time
}

// AffinityVector maps category slugs to normalized weights.
// Invariant: all weights non-negative; they sum to 1 when non-empty.
type AffinityVector map[string]float64

// Normalize scales the vector in place so weights sum to 1.
// A vector whose weights sum to zero is left empty.
func (v AffinityVector) Normalize() {
	total := 0.0
	for _, w := range v {
		total += w
	}
	if total <= 0 {
		for k := range v {
			delete(v, k)
		}
		return
	}
	for k, w := range v {
		v[k] = w / total
	}
}

// Dot returns the dot product of two affinity vectors.
func (v AffinityVector) Dot(other AffinityVector) float64 {
	sum := 0.0
	for cat, w := range v {
		sum += w * other[cat]
	}
	return sum
}

// TopCategory returns the highest-weighted category, breaking ties by
// lexicographically smallest slug. Empty string for an empty vector.
func (v AffinityVector) TopCategory() string {
	best := ""
	bestW := -1.0
	for cat, w := range v {
		if w > bestW || (w == bestW && cat < best) {
			best = cat
			bestW = w
		}
	}
	return best
}

// RecommendedCreator is one scored entry of a creator recommendation,
// carrying its formula terms so every score is explainable.
type RecommendedCreator struct {
	Creator     *Creator
	Score       float64
	Affinity    float64 // category affinity term
	Behavior    float64 // behavioral overlap term
	Influence   float64 // normalized influence term
	Momentum    float64 // normalized momentum term
	TopCategory string  // creator's dominant category
}

// Spotlight is the single top personalized creator with a human-readable
// justification.
type Spotlight struct {
	Creator          *Creator
	Score            float64
	Category         string // dominant category the explanation refers to
	Explanation      string
	IsRisingFallback bool
}
