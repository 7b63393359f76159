package domain

// RecommendationRequest is a single recommendation query.
type RecommendationRequest struct {
	IntentTags   []string           `json:"intentTags" binding:"required,min=1"`
	MedProfile   MedicationProfile  `json:"medProfile"`
	UsageContext UsageContext       `json:"usageContext"`
	CategoryLike string             `json:"categoryLike,omitempty"`
	TopN         int                `json:"topN,omitempty"`
}

// Recommendation is the result of one full pipeline run.
type Recommendation struct {
	Products       []RankedProduct `json:"products"`
	TotalEvaluated int             `json:"totalEvaluated"`
	ExcludedCount  int             `json:"excludedCount"`
	RankedCount    int             `json:"rankedCount"`
	Truncated      bool            `json:"truncated,omitempty"`
	RulesetVersion string          `json:"rulesetVersion,omitempty"`
	Exclusions     ExclusionLog    `json:"exclusions,omitempty"`
}

// ExclusionLog maps excluded product IDs to the single hit that excluded
// them. First qualifying exclusion wins; later rules are never evaluated.
type ExclusionLog map[int]RuleHit
