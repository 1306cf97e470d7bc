package domain

// Similarity cascade stage names, recorded on each result so a pick is
// traceable to the stage that produced it.
const (
	SimilarityStageBehavioral         = "behavioral"
	SimilarityStageContent            = "content"
	SimilarityStageCategoryPopularity = "category_popularity"
	SimilarityStageGlobalPopularity   = "global_popularity"
)

// SimilarList is one entry of a similar-lists result.
type SimilarList struct {
	List  *List
	Score float64
	Stage string // cascade stage that produced this entry
}
