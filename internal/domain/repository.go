package domain

import "context"

// SnapshotProvider hands out the current immutable rule snapshot.
// Callers deref once at request start and use that snapshot throughout.
type SnapshotProvider interface {
	Current() (*RuleSnapshot, error)
}

// RuleSource loads the full active rule set and alias table from storage.
// Implementations validate rules and drop malformed or expired ones.
type RuleSource interface {
	LoadSnapshot(ctx context.Context) (*RuleSnapshot, error)
}

// CatalogRepository supplies candidate products and their normalized
// ingredient tags. Tag lookup is batched to bound round trips.
type CatalogRepository interface {
	ListProducts(ctx context.Context, categoryLike string, limit int) ([]Product, error)
	TagsForProducts(ctx context.Context, ids []int) (map[int][]string, error)
}

// RecommendationCache stores completed pipeline results per rule snapshot
// version. Implementations fingerprint the request; a version change
// invalidates every entry for the previous snapshot.
type RecommendationCache interface {
	Get(rulesetVersion string, request *RecommendationRequest) (*Recommendation, error)
	Set(rulesetVersion string, request *RecommendationRequest, recommendation *Recommendation)
}

// IntentMatcher scores how well a product matches the requested intent tags
// on a 0-100 scale. The pipeline treats it as an opaque collaborator and
// degrades to a neutral score if it fails.
type IntentMatcher interface {
	MatchScore(product Product, intentTags []string) (int, error)
}
