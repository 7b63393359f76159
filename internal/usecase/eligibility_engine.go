package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/dermaguide/backend/internal/domain"
)

// Synthetic hit applied to every candidate when eligibility evaluation
// fails unexpectedly. The weight is deliberately far above any real rule.
const (
	systemErrorRuleID = "SYSTEM_ERROR"
	systemErrorWeight = 1000
)

const defaultEligibilityWorkers = 8

// EligibilityConfig holds configuration for the eligibility engine.
type EligibilityConfig struct {
	Workers            int
	EnableDebugLogging bool
}

// EligibilityEngine decides hard exclusion per product. Products are
// evaluated independently with bounded parallelism; no product's outcome
// depends on another's.
type EligibilityEngine struct {
	workers            int
	enableDebugLogging bool
}

// NewEligibilityEngine creates a new eligibility engine with the given configuration.
func NewEligibilityEngine(config EligibilityConfig) *EligibilityEngine {
	workers := config.Workers
	if workers <= 0 {
		workers = defaultEligibilityWorkers
	}
	return &EligibilityEngine{
		workers:            workers,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// EligibilityOutcome is the result of evaluating one candidate batch.
type EligibilityOutcome struct {
	Survivors  []domain.Product
	Exclusions domain.ExclusionLog
}

// Evaluate runs every candidate through the active eligibility rules.
//
// Per product: rules whose predicate matches (med code in the resolved set,
// or ingredient tag in the product's tag set) are checked in rule load
// order; the first rule whose condition set also holds excludes the product
// and evaluation for that product stops.
//
// Fail-closed policy: if evaluation of any product errors (malformed rule,
// cancelled context), the entire batch is excluded with a synthetic
// system-error hit. A correctness bug must never silently produce an
// unsafe recommendation.
func (e *EligibilityEngine) Evaluate(
	ctx context.Context,
	snapshot *domain.RuleSnapshot,
	candidates []domain.Product,
	resolvedCodes []string,
	productTags map[int][]string,
	evalCtx map[string]bool,
) EligibilityOutcome {
	outcome := EligibilityOutcome{Exclusions: make(domain.ExclusionLog)}
	if len(candidates) == 0 {
		return outcome
	}

	rules := snapshot.EligibilityRules
	if len(rules) == 0 {
		log.Printf("[ELIGIBILITY] no active exclusion rules, all %d candidates pass", len(candidates))
		outcome.Survivors = append(outcome.Survivors, candidates...)
		return outcome
	}

	codeSet := toCodeSet(resolvedCodes)

	hits := make([]*domain.RuleHit, len(candidates))
	errs := make([]error, len(candidates))

	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup
	for i := range candidates {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			product := candidates[i]
			tagSet := normalizeTagSet(productTags[product.ID])
			hits[i], errs[i] = e.evaluateProduct(product, rules, codeSet, tagSet, evalCtx)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			log.Printf("[ELIGIBILITY] evaluation error on product %d, failing closed for the batch: %v", candidates[i].ID, err)
			return e.failClosed(candidates, err)
		}
	}

	for i, product := range candidates {
		if hit := hits[i]; hit != nil {
			outcome.Exclusions[product.ID] = *hit
			if e.enableDebugLogging {
				log.Printf("[ELIGIBILITY] product %d excluded by %s: %s", product.ID, hit.RuleID, hit.Rationale)
			}
			continue
		}
		outcome.Survivors = append(outcome.Survivors, product)
	}

	return outcome
}

// evaluateProduct checks one product against the rule set in load order,
// stopping at the first qualifying exclusion.
func (e *EligibilityEngine) evaluateProduct(
	product domain.Product,
	rules []domain.Rule,
	codeSet map[string]bool,
	tagSet map[string]bool,
	evalCtx map[string]bool,
) (*domain.RuleHit, error) {
	for _, rule := range rules {
		if rule.MedCode == "" && rule.IngredientTag == "" {
			// Load-time validation should make this unreachable; escalate
			// so the batch fails closed rather than silently passing.
			return nil, fmt.Errorf("product %d: rule %s: %w", product.ID, rule.ID, domain.ErrInvalidRule)
		}
		if !rule.Matches(codeSet, tagSet) {
			continue
		}
		if !rule.ConditionsMet(evalCtx) {
			continue
		}
		hit := domain.RuleHit{
			Action:      domain.ActionExclude,
			RuleID:      rule.ID,
			Weight:      rule.Weight,
			Rationale:   exclusionRationale(rule),
			CitationURL: rule.CitationURL,
		}
		return &hit, nil
	}
	return nil, nil
}

// failClosed excludes every candidate with a synthetic system-error hit.
func (e *EligibilityEngine) failClosed(candidates []domain.Product, cause error) EligibilityOutcome {
	outcome := EligibilityOutcome{Exclusions: make(domain.ExclusionLog, len(candidates))}
	hit := domain.RuleHit{
		Action:    domain.ActionExclude,
		RuleID:    systemErrorRuleID,
		Weight:    systemErrorWeight,
		Rationale: fmt.Sprintf("excluded for safety due to a system error: %v", cause),
	}
	for _, product := range candidates {
		outcome.Exclusions[product.ID] = hit
	}
	return outcome
}

// exclusionRationale guarantees every exclusion carries a rationale string.
func exclusionRationale(rule domain.Rule) string {
	if rule.Rationale != "" {
		return rule.Rationale
	}
	return "safety concern"
}

func toCodeSet(codes []string) map[string]bool {
	set := make(map[string]bool, len(codes))
	for _, code := range codes {
		set[code] = true
	}
	return set
}

// normalizeTagSet lowercases and trims ingredient tags for set matching.
func normalizeTagSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, tag := range tags {
		normalized := strings.ToLower(strings.TrimSpace(tag))
		if normalized != "" {
			set[normalized] = true
		}
	}
	return set
}
