package usecase

import (
	"context"
	"log"
	"sync"

	"github.com/dermaguide/backend/internal/domain"
)

const (
	baseScore              = 100.0
	defaultGroupPenaltyCap = 50.0
	defaultScoringWorkers  = 8
)

// ScoringConfig holds configuration for the scoring engine.
type ScoringConfig struct {
	GroupPenaltyCap    float64
	Workers            int
	EnableDebugLogging bool
}

// ScoringEngine computes penalty scores for products that survived
// eligibility. Matching is cumulative (no short-circuit); penalties from
// related rules are capped per rule group, then amplified by a severity
// multiplier derived from which risk-tier groups co-occur.
//
// Policy note: each group is capped first, then the capped sums are added
// and multiplied by the severity factor. This keeps the final score
// independent of rule evaluation order.
type ScoringEngine struct {
	groupCap           float64
	workers            int
	groups             GroupTable
	severity           SeverityTable
	enableDebugLogging bool
}

// NewScoringEngine creates a new scoring engine with the given configuration.
func NewScoringEngine(config ScoringConfig, groups GroupTable, severity SeverityTable) *ScoringEngine {
	cap := config.GroupPenaltyCap
	if cap <= 0 {
		cap = defaultGroupPenaltyCap
	}
	workers := config.Workers
	if workers <= 0 {
		workers = defaultScoringWorkers
	}
	return &ScoringEngine{
		groupCap:           cap,
		workers:            workers,
		groups:             groups,
		severity:           severity,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Evaluate scores each survivor independently with bounded parallelism.
// The boolean result reports truncation: when the context expires mid-batch
// the results computed so far are returned and the flag is set. Scoring
// errors only bias ranking, so unlike eligibility they never fail the batch.
func (s *ScoringEngine) Evaluate(
	ctx context.Context,
	snapshot *domain.RuleSnapshot,
	survivors []domain.Product,
	resolvedCodes []string,
	productTags map[int][]string,
	evalCtx map[string]bool,
) (map[int]*domain.ScoringResult, bool) {
	results := make(map[int]*domain.ScoringResult, len(survivors))
	if len(survivors) == 0 {
		return results, false
	}

	rules := snapshot.ScoringRules
	codeSet := toCodeSet(resolvedCodes)

	scored := make([]*domain.ScoringResult, len(survivors))
	truncated := false
	var truncMu sync.Mutex

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for i := range survivors {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			if ctx.Err() != nil {
				truncMu.Lock()
				truncated = true
				truncMu.Unlock()
				return
			}
			product := survivors[i]
			tagSet := normalizeTagSet(productTags[product.ID])
			scored[i] = s.scoreProduct(product, rules, codeSet, tagSet, evalCtx)
		}(i)
	}
	wg.Wait()

	for _, result := range scored {
		if result != nil {
			results[result.ProductID] = result
		}
	}
	return results, truncated
}

// scoredHit pairs a rule hit with its group before capping.
type scoredHit struct {
	hit   domain.RuleHit
	group string
}

// scoreProduct applies every matching scoring rule to one product.
func (s *ScoringEngine) scoreProduct(
	product domain.Product,
	rules []domain.Rule,
	codeSet map[string]bool,
	tagSet map[string]bool,
	evalCtx map[string]bool,
) *domain.ScoringResult {
	result := &domain.ScoringResult{
		ProductID:          product.ID,
		BaseScore:          baseScore,
		FinalScore:         baseScore,
		Severity:           SeverityLow,
		SeverityMultiplier: 1.0,
		Groups:             make(map[string]struct{}),
	}

	var matched []scoredHit
	groupSums := make(map[string]float64)

	for _, rule := range rules {
		if rule.MedCode == "" && rule.IngredientTag == "" {
			// Malformed rules are skipped locally; scoring errors bias
			// ranking but never create an unsafe recommendation.
			log.Printf("[SCORING] skipping rule %s with no predicate", rule.ID)
			continue
		}
		if !rule.Matches(codeSet, tagSet) {
			continue
		}
		if !rule.ConditionsMet(evalCtx) {
			continue
		}

		group := s.groups.GroupForRule(rule)
		matched = append(matched, scoredHit{
			hit: domain.RuleHit{
				Action:      domain.ActionPenalize,
				RuleID:      rule.ID,
				Weight:      rule.Weight,
				Rationale:   penaltyRationale(rule),
				CitationURL: rule.CitationURL,
			},
			group: group,
		})
		groupSums[group] += rule.Weight
	}

	if len(matched) == 0 {
		return result
	}

	// Per-group cap: scale every hit in an over-cap group by cap/sum so the
	// group's total contribution equals exactly the cap.
	scale := make(map[string]float64, len(groupSums))
	for group, sum := range groupSums {
		if sum > s.groupCap {
			scale[group] = s.groupCap / sum
			if s.enableDebugLogging {
				log.Printf("[SCORING] product %d group %s capped: %.1f -> %.1f", product.ID, group, sum, s.groupCap)
			}
		} else {
			scale[group] = 1.0
		}
	}

	var rawPenalty float64
	for _, sh := range matched {
		applied := sh.hit
		applied.Weight = sh.hit.Weight * scale[sh.group]
		result.RuleHits = append(result.RuleHits, applied)
		result.Groups[sh.group] = struct{}{}
		rawPenalty += applied.Weight
	}

	result.RawPenalty = rawPenalty
	result.Severity = s.severity.Classify(result.Groups)
	result.SeverityMultiplier = s.severity.Multiplier(result.Severity)
	result.PenaltyScore = rawPenalty * result.SeverityMultiplier
	result.FinalScore = clampScore(baseScore - result.PenaltyScore)

	if s.enableDebugLogging {
		log.Printf("[SCORING] product %d: %d hits, raw=%.1f, severity=%s, final=%.1f",
			product.ID, len(result.RuleHits), rawPenalty, result.Severity, result.FinalScore)
	}
	return result
}

// penaltyRationale guarantees every penalty hit carries a rationale string.
func penaltyRationale(rule domain.Rule) string {
	if rule.Rationale != "" {
		return rule.Rationale
	}
	return "elevated risk"
}

// clampScore keeps final scores within [0, 100].
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > baseScore {
		return baseScore
	}
	return score
}
