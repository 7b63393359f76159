package usecase

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dermaguide/backend/internal/domain"
)

// stubMatcher returns fixed scores per product ID.
type stubMatcher struct {
	scores map[int]int
	err    error
}

func (m *stubMatcher) MatchScore(product domain.Product, intentTags []string) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	if score, ok := m.scores[product.ID]; ok {
		return score, nil
	}
	return 0, nil
}

func scoresFor(finals map[int]float64) map[int]*domain.ScoringResult {
	results := make(map[int]*domain.ScoringResult, len(finals))
	for id, final := range finals {
		results[id] = &domain.ScoringResult{
			ProductID:    id,
			BaseScore:    100,
			FinalScore:   final,
			PenaltyScore: 100 - final,
		}
	}
	return results
}

func rankedIDs(ranked []domain.RankedProduct) []int {
	ids := make([]int, len(ranked))
	for i, rp := range ranked {
		ids[i] = rp.Product.ID
	}
	return ids
}

func TestRank(t *testing.T) {
	t.Run("returns nil for empty survivors", func(t *testing.T) {
		svc := NewRankingService(&stubMatcher{}, RankingConfig{})
		if got := svc.Rank(nil, nil, nil, ""); got != nil {
			t.Errorf("Rank(nil) = %v, want nil", got)
		}
	})

	t.Run("orders by final score first", func(t *testing.T) {
		svc := NewRankingService(&stubMatcher{}, RankingConfig{})
		survivors := []domain.Product{{ID: 1}, {ID: 2}, {ID: 3}}
		scores := scoresFor(map[int]float64{1: 70, 2: 95, 3: 40})

		ranked := svc.Rank(survivors, scores, nil, "")
		if got, want := rankedIDs(ranked), []int{2, 1, 3}; !reflect.DeepEqual(got, want) {
			t.Errorf("order = %v, want %v", got, want)
		}
		for i, rp := range ranked {
			if rp.Rank != i+1 {
				t.Errorf("rank at %d = %d, want %d", i, rp.Rank, i+1)
			}
		}
	})

	t.Run("ties break on intent match", func(t *testing.T) {
		matcher := &stubMatcher{scores: map[int]int{1: 40, 2: 90}}
		svc := NewRankingService(matcher, RankingConfig{})
		survivors := []domain.Product{{ID: 1}, {ID: 2}}
		scores := scoresFor(map[int]float64{1: 80, 2: 80})

		ranked := svc.Rank(survivors, scores, []string{"hydrating"}, "")
		if got, want := rankedIDs(ranked), []int{2, 1}; !reflect.DeepEqual(got, want) {
			t.Errorf("order = %v, want %v", got, want)
		}
	})

	t.Run("ties break on fewer rule hits", func(t *testing.T) {
		matcher := &stubMatcher{scores: map[int]int{1: 60, 2: 60}}
		svc := NewRankingService(matcher, RankingConfig{})
		survivors := []domain.Product{{ID: 1}, {ID: 2}}

		scores := scoresFor(map[int]float64{1: 80, 2: 80})
		scores[1].RuleHits = []domain.RuleHit{{RuleID: "A"}, {RuleID: "B"}}
		scores[2].RuleHits = []domain.RuleHit{{RuleID: "A"}}

		ranked := svc.Rank(survivors, scores, []string{"hydrating"}, "")
		if got, want := rankedIDs(ranked), []int{2, 1}; !reflect.DeepEqual(got, want) {
			t.Errorf("order = %v, want %v (fewer hits rank higher)", got, want)
		}
	})

	t.Run("ties break on brand preference", func(t *testing.T) {
		matcher := &stubMatcher{scores: map[int]int{1: 60, 2: 60}}
		svc := NewRankingService(matcher, RankingConfig{})
		survivors := []domain.Product{
			{ID: 1, Brand: "Unknown Brand"},
			{ID: 2, Brand: "CeraVe"},
		}
		scores := scoresFor(map[int]float64{1: 80, 2: 80})

		ranked := svc.Rank(survivors, scores, []string{"hydrating"}, "")
		if got, want := rankedIDs(ranked), []int{2, 1}; !reflect.DeepEqual(got, want) {
			t.Errorf("order = %v, want %v (popular brand ranks higher)", got, want)
		}
	})

	t.Run("higher product ID wins final tie-break", func(t *testing.T) {
		matcher := &stubMatcher{scores: map[int]int{1: 60, 2: 60}}
		svc := NewRankingService(matcher, RankingConfig{})
		survivors := []domain.Product{{ID: 1}, {ID: 2}}
		scores := scoresFor(map[int]float64{1: 80, 2: 80})

		ranked := svc.Rank(survivors, scores, []string{"hydrating"}, "")
		if got, want := rankedIDs(ranked), []int{2, 1}; !reflect.DeepEqual(got, want) {
			t.Errorf("order = %v, want %v (newer product wins)", got, want)
		}
	})

	t.Run("repeated runs produce identical output", func(t *testing.T) {
		matcher := &stubMatcher{scores: map[int]int{1: 55, 2: 55, 3: 70, 4: 55}}
		svc := NewRankingService(matcher, RankingConfig{})
		survivors := []domain.Product{
			{ID: 3, Brand: "CeraVe"},
			{ID: 1, Brand: "Avene"},
			{ID: 4},
			{ID: 2, Brand: "Avene"},
		}
		scores := scoresFor(map[int]float64{1: 85, 2: 85, 3: 85, 4: 60})

		first := svc.Rank(survivors, scores, []string{"soothing"}, "")
		second := svc.Rank(survivors, scores, []string{"soothing"}, "")
		if !reflect.DeepEqual(rankedIDs(first), rankedIDs(second)) {
			t.Errorf("repeated runs diverged: %v vs %v", rankedIDs(first), rankedIDs(second))
		}
	})

	t.Run("matcher failure degrades to neutral score", func(t *testing.T) {
		matcher := &stubMatcher{err: errors.New("matcher down")}
		svc := NewRankingService(matcher, RankingConfig{})
		survivors := []domain.Product{{ID: 1}}
		scores := scoresFor(map[int]float64{1: 90})

		ranked := svc.Rank(survivors, scores, []string{"hydrating"}, "")
		if ranked[0].IntentMatchScore != neutralIntentScore {
			t.Errorf("IntentMatchScore = %d, want neutral %d", ranked[0].IntentMatchScore, neutralIntentScore)
		}
	})

	t.Run("missing score falls back to base score", func(t *testing.T) {
		svc := NewRankingService(&stubMatcher{}, RankingConfig{})
		survivors := []domain.Product{{ID: 42}}

		ranked := svc.Rank(survivors, map[int]*domain.ScoringResult{}, nil, "")
		if ranked[0].FinalScore != 100 {
			t.Errorf("FinalScore = %v, want 100", ranked[0].FinalScore)
		}
	})

	t.Run("reasons are capped and never empty", func(t *testing.T) {
		matcher := &stubMatcher{scores: map[int]int{1: 95, 2: 10}}
		svc := NewRankingService(matcher, RankingConfig{MaxReasons: 2})
		survivors := []domain.Product{
			{ID: 1, Brand: "La Roche-Posay", Category: "sunscreen"},
			{ID: 2},
		}
		scores := scoresFor(map[int]float64{1: 100, 2: 100})

		ranked := svc.Rank(survivors, scores, []string{"spf", "light"}, "sunscreen")
		for _, rp := range ranked {
			if len(rp.Reasons) == 0 {
				t.Errorf("product %d has no reasons", rp.Product.ID)
			}
			if len(rp.Reasons) > 2 {
				t.Errorf("product %d reasons = %d, want <= 2", rp.Product.ID, len(rp.Reasons))
			}
		}
	})
}

func TestBrandPreferenceScore(t *testing.T) {
	tests := []struct {
		brand string
		want  int
	}{
		{"La Roche-Posay", brandScorePremium},
		{"CeraVe", brandScorePopular},
		{"Some Indie Brand", brandScoreDefault},
		{"", 0},
	}
	for _, tt := range tests {
		if got := brandPreferenceScore(tt.brand); got != tt.want {
			t.Errorf("brandPreferenceScore(%q) = %d, want %d", tt.brand, got, tt.want)
		}
	}
}

func TestCategoryMatchScore(t *testing.T) {
	tests := []struct {
		category string
		filter   string
		want     int
	}{
		{"facial sunscreen", "sunscreen", categoryScoreExact},
		{"sunscreen stick", "facial sunscreen", categoryScorePartial},
		{"cleanser", "sunscreen", 0},
		{"", "sunscreen", 0},
		{"cleanser", "", 0},
	}
	for _, tt := range tests {
		if got := categoryMatchScore(tt.category, tt.filter); got != tt.want {
			t.Errorf("categoryMatchScore(%q, %q) = %d, want %d", tt.category, tt.filter, got, tt.want)
		}
	}
}
