package usecase

import (
	"context"
	"fmt"
	"log"

	"github.com/dermaguide/backend/internal/domain"
)

const (
	defaultCandidateLimit = 200
	defaultTopN           = 5
	maxTopN               = 20
)

// RecommendationServiceConfig holds configuration for the pipeline.
type RecommendationServiceConfig struct {
	CandidateLimit     int
	DefaultTopN        int
	Cache              domain.RecommendationCache // nil disables result caching
	EnableDebugLogging bool
}

// RecommendationService orchestrates the full pipeline:
// candidates -> eligibility (drops some) -> scoring (annotates survivors)
// -> ranking (orders survivors) -> top-N. Data flows strictly forward;
// every stage produces a new annotated value.
type RecommendationService struct {
	snapshots   domain.SnapshotProvider
	catalog     domain.CatalogRepository
	resolver    *AliasResolver
	eligibility *EligibilityEngine
	scoring     *ScoringEngine
	ranking     *RankingService
	cache       domain.RecommendationCache

	candidateLimit int
	defaultTopN    int
}

// NewRecommendationService creates the pipeline service with its dependencies.
func NewRecommendationService(
	snapshots domain.SnapshotProvider,
	catalog domain.CatalogRepository,
	resolver *AliasResolver,
	eligibility *EligibilityEngine,
	scoring *ScoringEngine,
	ranking *RankingService,
	config RecommendationServiceConfig,
) *RecommendationService {
	limit := config.CandidateLimit
	if limit <= 0 {
		limit = defaultCandidateLimit
	}
	topN := config.DefaultTopN
	if topN <= 0 {
		topN = defaultTopN
	}
	return &RecommendationService{
		snapshots:      snapshots,
		catalog:        catalog,
		resolver:       resolver,
		eligibility:    eligibility,
		scoring:        scoring,
		ranking:        ranking,
		cache:          config.Cache,
		candidateLimit: limit,
		defaultTopN:    topN,
	}
}

// ResolveCodes expands the raw medication codes against the current
// snapshot. Exposed for callers that only need alias resolution.
func (s *RecommendationService) ResolveCodes(rawCodes []string) ([]string, error) {
	snapshot, err := s.snapshots.Current()
	if err != nil {
		return nil, err
	}
	return s.resolver.Resolve(snapshot, rawCodes), nil
}

// Recommend runs one request through the whole pipeline.
//
// The rule snapshot is dereferenced exactly once and medication codes are
// resolved exactly once, so eligibility and scoring are guaranteed to see
// an identical rule set and code set.
func (s *RecommendationService) Recommend(ctx context.Context, request *domain.RecommendationRequest) (*domain.Recommendation, error) {
	if request == nil || len(request.IntentTags) == 0 {
		return nil, domain.ErrInvalidRequest
	}

	snapshot, err := s.snapshots.Current()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSnapshotUnavailable, err)
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(snapshot.Version, request); err == nil {
			return cached, nil
		}
	}

	candidates, err := s.catalog.ListProducts(ctx, request.CategoryLike, s.candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, domain.ErrNoCandidates
	}

	ids := make([]int, len(candidates))
	for i, p := range candidates {
		ids[i] = p.ID
	}

	resolvedCodes := s.resolver.Resolve(snapshot, request.MedProfile.Codes)
	evalCtx := domain.EvalContext(request.UsageContext, request.MedProfile)

	recommendation := &domain.Recommendation{
		TotalEvaluated: len(candidates),
		RulesetVersion: snapshot.Version,
	}

	// A tag lookup failure means eligibility cannot be evaluated at all;
	// that is the fail-closed path, not an HTTP error.
	productTags, err := s.catalog.TagsForProducts(ctx, ids)
	var outcome EligibilityOutcome
	if err != nil {
		log.Printf("[PIPELINE] ingredient tag lookup failed, failing closed: %v", err)
		outcome = s.eligibility.failClosed(candidates, err)
	} else {
		outcome = s.eligibility.Evaluate(ctx, snapshot, candidates, resolvedCodes, productTags, evalCtx)
	}
	recommendation.ExcludedCount = len(outcome.Exclusions)
	recommendation.Exclusions = outcome.Exclusions

	if len(outcome.Survivors) == 0 {
		s.storeCached(snapshot.Version, request, recommendation)
		return recommendation, nil
	}

	scores, truncated := s.scoring.Evaluate(ctx, snapshot, outcome.Survivors, resolvedCodes, productTags, evalCtx)
	recommendation.Truncated = truncated

	survivors := outcome.Survivors
	if truncated {
		// Rank only what was scored before the deadline; dropping the rest
		// is visible through the truncation flag.
		scored := survivors[:0:0]
		for _, p := range survivors {
			if _, ok := scores[p.ID]; ok {
				scored = append(scored, p)
			}
		}
		survivors = scored
	}

	ranked := s.ranking.Rank(survivors, scores, request.IntentTags, request.CategoryLike)
	recommendation.RankedCount = len(ranked)

	topN := request.TopN
	if topN <= 0 {
		topN = s.defaultTopN
	}
	if topN > maxTopN {
		topN = maxTopN
	}
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	recommendation.Products = ranked

	s.storeCached(snapshot.Version, request, recommendation)
	return recommendation, nil
}

// storeCached records a completed result for reuse under the same snapshot.
// Truncated and fail-closed results are never cached: both reflect a
// transient condition, not the pipeline's answer for this request.
func (s *RecommendationService) storeCached(version string, request *domain.RecommendationRequest, recommendation *domain.Recommendation) {
	if s.cache == nil || recommendation.Truncated {
		return
	}
	for _, hit := range recommendation.Exclusions {
		if hit.RuleID == systemErrorRuleID {
			return
		}
	}
	s.cache.Set(version, request, recommendation)
}
