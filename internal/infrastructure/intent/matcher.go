package intent

import (
	"strings"

	"github.com/dermaguide/backend/internal/domain"
)

// Match score tiers.
const (
	scoreNoIntentTags  = 50 // no intent requested, everything is neutral
	scoreNoProductTags = 30 // untagged products score low but not zero
	scoreNoOverlap     = 20
	maxMatchBonus      = 20
)

// TagMatcher scores products against intent tags by set overlap.
// It implements domain.IntentMatcher.
type TagMatcher struct{}

// NewTagMatcher creates a tag-overlap intent matcher.
func NewTagMatcher() *TagMatcher {
	return &TagMatcher{}
}

// MatchScore returns a 0-100 score for how well the product's tags cover
// the requested intent tags. Full coverage scores 100; partial coverage
// scales with the matched fraction plus a small per-match bonus.
func (m *TagMatcher) MatchScore(product domain.Product, intentTags []string) (int, error) {
	if len(intentTags) == 0 {
		return scoreNoIntentTags, nil
	}
	if len(product.Tags) == 0 {
		return scoreNoProductTags, nil
	}

	intent := normalize(intentTags)
	productTags := normalize(product.Tags)

	matches := 0
	for tag := range intent {
		if productTags[tag] {
			matches++
		}
	}
	if matches == 0 {
		return scoreNoOverlap, nil
	}

	ratio := float64(matches) / float64(len(intent))
	score := int(ratio*80) + 20

	bonus := matches * 5
	if bonus > maxMatchBonus {
		bonus = maxMatchBonus
	}

	score += bonus
	if score > 100 {
		score = 100
	}
	return score, nil
}

func normalize(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, tag := range tags {
		normalized := strings.ToLower(strings.TrimSpace(tag))
		if normalized != "" {
			set[normalized] = true
		}
	}
	return set
}
