package usecase

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/dermaguide/backend/internal/domain"
)

// Intent-match score applied when the matcher is unavailable. Ranking still
// proceeds; the intent tie-break just becomes uninformative.
const neutralIntentScore = 50

const defaultMaxReasons = 3

// Brand preference scores for the ranking tie-break.
const (
	brandScorePremium = 10
	brandScorePopular = 5
	brandScoreDefault = 1
)

// Category match scores against the requested category filter.
const (
	categoryScoreExact   = 10
	categoryScorePartial = 5
)

// premiumBrands are dermatologist-recommended brands favored in tie-breaks.
var premiumBrands = map[string]bool{
	"la roche-posay": true, "avene": true, "vichy": true,
	"cetaphil": true, "eucerin": true, "bioderma": true,
}

// popularBrands are widely available mass-market brands.
var popularBrands = map[string]bool{
	"innisfree": true, "etude house": true, "the face shop": true,
	"cerave": true, "neutrogena": true,
}

// RankingConfig holds configuration for the ranking service.
type RankingConfig struct {
	MaxReasons         int
	EnableDebugLogging bool
}

// RankingService orders surviving products deterministically. Unlike the
// per-product engines it is a whole-batch operation: ranks exist only after
// the complete sort.
type RankingService struct {
	matcher            domain.IntentMatcher
	maxReasons         int
	enableDebugLogging bool
}

// NewRankingService creates a new ranking service with the given configuration.
func NewRankingService(matcher domain.IntentMatcher, config RankingConfig) *RankingService {
	maxReasons := config.MaxReasons
	if maxReasons <= 0 {
		maxReasons = defaultMaxReasons
	}
	return &RankingService{
		matcher:            matcher,
		maxReasons:         maxReasons,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Rank produces the final total order over surviving products.
//
// Composite sort key, most significant first:
// final score desc, intent match desc, penalty rule count asc,
// brand preference desc, category match desc, product ID desc.
// Product IDs are unique, so the order is total and deterministic.
func (s *RankingService) Rank(
	survivors []domain.Product,
	scores map[int]*domain.ScoringResult,
	intentTags []string,
	categoryLike string,
) []domain.RankedProduct {
	if len(survivors) == 0 {
		return nil
	}

	ranked := make([]domain.RankedProduct, 0, len(survivors))
	for _, product := range survivors {
		rp := domain.RankedProduct{
			Product:    product,
			BaseScore:  baseScore,
			FinalScore: baseScore,
		}
		if result, ok := scores[product.ID]; ok {
			rp.FinalScore = result.FinalScore
			rp.PenaltyScore = result.PenaltyScore
			rp.RuleHits = result.RuleHits
		}

		rp.IntentMatchScore = s.intentScore(product, intentTags)
		rp.BrandPreference = brandPreferenceScore(product.Brand)
		rp.CategoryMatch = categoryMatchScore(product.Category, categoryLike)

		ranked = append(ranked, rp)
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.FinalScore != b.FinalScore {
			return a.FinalScore > b.FinalScore
		}
		if a.IntentMatchScore != b.IntentMatchScore {
			return a.IntentMatchScore > b.IntentMatchScore
		}
		if len(a.RuleHits) != len(b.RuleHits) {
			return len(a.RuleHits) < len(b.RuleHits)
		}
		if a.BrandPreference != b.BrandPreference {
			return a.BrandPreference > b.BrandPreference
		}
		if a.CategoryMatch != b.CategoryMatch {
			return a.CategoryMatch > b.CategoryMatch
		}
		return a.Product.ID > b.Product.ID
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
		ranked[i].Reasons = s.buildReasons(ranked[i], intentTags, categoryLike)
	}

	if s.enableDebugLogging {
		log.Printf("[RANKING] ranked %d products", len(ranked))
	}
	return ranked
}

// intentScore queries the intent matcher, degrading to a neutral score on
// failure rather than failing the whole request.
func (s *RankingService) intentScore(product domain.Product, intentTags []string) int {
	score, err := s.matcher.MatchScore(product, intentTags)
	if err != nil {
		log.Printf("[RANKING] intent matcher failed for product %d, using neutral score: %v", product.ID, err)
		return neutralIntentScore
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// buildReasons generates up to maxReasons human-readable justifications
// from fixed templates. Presentation only; never feeds back into ranking.
func (s *RankingService) buildReasons(rp domain.RankedProduct, intentTags []string, categoryLike string) []string {
	var reasons []string

	switch {
	case rp.IntentMatchScore >= 80:
		if len(intentTags) > 0 {
			reasons = append(reasons, fmt.Sprintf("excellent match for %s", strings.Join(firstN(intentTags, 2), ", ")))
		} else {
			reasons = append(reasons, "excellent match for your request")
		}
	case rp.IntentMatchScore >= 60:
		reasons = append(reasons, "good match for your intended use")
	}

	switch {
	case rp.PenaltyScore == 0:
		reasons = append(reasons, "no safety concerns with your medications")
	case rp.PenaltyScore <= 15:
		reasons = append(reasons, "minor cautions apply but generally safe to use")
	case rp.PenaltyScore > 25:
		reasons = append(reasons, "several cautions apply, review before use")
	}

	if rp.Product.Brand != "" {
		switch rp.BrandPreference {
		case brandScorePremium:
			reasons = append(reasons, fmt.Sprintf("%s is a brand trusted by dermatologists", rp.Product.Brand))
		case brandScorePopular:
			reasons = append(reasons, fmt.Sprintf("%s is a popular, widely used brand", rp.Product.Brand))
		}
	}

	if categoryLike != "" && rp.CategoryMatch >= categoryScoreExact {
		reasons = append(reasons, fmt.Sprintf("exactly matches the %s category you asked for", categoryLike))
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "a solid overall recommendation")
	}
	if len(reasons) > s.maxReasons {
		reasons = reasons[:s.maxReasons]
	}
	return reasons
}

// brandPreferenceScore looks the brand up in the curated tier tables.
func brandPreferenceScore(brand string) int {
	if brand == "" {
		return 0
	}
	brandLower := strings.ToLower(brand)
	for premium := range premiumBrands {
		if strings.Contains(brandLower, premium) {
			return brandScorePremium
		}
	}
	for popular := range popularBrands {
		if strings.Contains(brandLower, popular) {
			return brandScorePopular
		}
	}
	return brandScoreDefault
}

// categoryMatchScore compares a product's category to the requested filter:
// full substring match scores highest, any shared word scores partial.
func categoryMatchScore(category, categoryLike string) int {
	if category == "" || categoryLike == "" {
		return 0
	}
	categoryLower := strings.ToLower(category)
	wantLower := strings.ToLower(categoryLike)

	if strings.Contains(categoryLower, wantLower) {
		return categoryScoreExact
	}
	for _, word := range strings.Fields(wantLower) {
		if strings.Contains(categoryLower, word) {
			return categoryScorePartial
		}
	}
	return 0
}

func firstN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
