package domain

import (
	"fmt"
	"strings"
	"time"
)

// RuleKind distinguishes hard-exclusion rules from penalty rules.
type RuleKind string

// RuleAction is the effect a matching rule has on a product.
type RuleAction string

const (
	KindEligibility RuleKind = "eligibility"
	KindScoring     RuleKind = "scoring"

	ActionExclude  RuleAction = "exclude"
	ActionPenalize RuleAction = "penalize"
)

// GroupAliasPrefix marks grouped medication codes (e.g. "GROUP:HYPERTENSION")
// that the alias resolver expands into literal classification codes.
const GroupAliasPrefix = "GROUP:"

// Rule is a declarative safety rule. Rules are immutable once loaded;
// a refresh replaces the whole active set, never individual rules.
// The predicate is either MedCode or IngredientTag (at least one set).
type Rule struct {
	ID            string          `json:"ruleId"`
	Kind          RuleKind        `json:"kind"`
	Action        RuleAction      `json:"action"`
	MedCode       string          `json:"medCode,omitempty"`
	IngredientTag string          `json:"ingredientTag,omitempty"`
	Conditions    map[string]bool `json:"conditions,omitempty"`
	Weight        float64         `json:"weight,omitempty"`
	Rationale     string          `json:"rationale"`
	CitationURL   string          `json:"citationUrl,omitempty"`
	ExpiresAt     *time.Time      `json:"expiresAt,omitempty"`
}

// Validate checks the structural invariants enforced at snapshot load time.
// Evaluation code may assume any rule in the active set passed this check.
func (r Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: missing rule id", ErrInvalidRule)
	}
	switch r.Kind {
	case KindEligibility:
		if r.Action != ActionExclude {
			return fmt.Errorf("%w: eligibility rule %s has action %q, want %q", ErrInvalidRule, r.ID, r.Action, ActionExclude)
		}
	case KindScoring:
		if r.Action != ActionPenalize {
			return fmt.Errorf("%w: scoring rule %s has action %q, want %q", ErrInvalidRule, r.ID, r.Action, ActionPenalize)
		}
		if r.Weight <= 0 {
			return fmt.Errorf("%w: scoring rule %s has non-positive weight %.1f", ErrInvalidRule, r.ID, r.Weight)
		}
	default:
		return fmt.Errorf("%w: rule %s has unknown kind %q", ErrInvalidRule, r.ID, r.Kind)
	}
	if r.MedCode == "" && r.IngredientTag == "" {
		return fmt.Errorf("%w: rule %s has no predicate (med code or ingredient tag)", ErrInvalidRule, r.ID)
	}
	for facet := range r.Conditions {
		if !KnownFacets[facet] {
			return fmt.Errorf("%w: rule %s conditions reference unknown facet %q", ErrInvalidRule, r.ID, facet)
		}
	}
	return nil
}

// Expired reports whether the rule's optional expiry has passed.
func (r Rule) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

// Matches reports whether the rule's predicate applies: its medication code
// is in the resolved code set, or its ingredient tag is in the product's
// normalized tag set.
func (r Rule) Matches(resolvedCodes map[string]bool, ingredientTags map[string]bool) bool {
	if r.MedCode != "" && resolvedCodes[r.MedCode] {
		return true
	}
	if r.IngredientTag != "" && ingredientTags[strings.ToLower(strings.TrimSpace(r.IngredientTag))] {
		return true
	}
	return false
}

// ConditionsMet evaluates the rule's condition set against the request's
// facet map using conjunction: every declared facet must equal the required
// value. An empty condition set is vacuously true.
func (r Rule) ConditionsMet(evalCtx map[string]bool) bool {
	for facet, want := range r.Conditions {
		if evalCtx[facet] != want {
			return false
		}
	}
	return true
}

// RuleHit records that a rule matched a product. Hits are created fresh per
// evaluation and never mutated afterwards.
type RuleHit struct {
	Action      RuleAction `json:"action"`
	RuleID      string     `json:"ruleId"`
	Weight      float64    `json:"weight"`
	Rationale   string     `json:"rationale"`
	CitationURL string     `json:"citationUrl,omitempty"`
}

// ScoringResult is the per-product penalty accumulator produced by the
// scoring engine and handed read-only to ranking.
type ScoringResult struct {
	ProductID          int                 `json:"productId"`
	BaseScore          float64             `json:"baseScore"`
	RawPenalty         float64             `json:"rawPenalty"` // post group-cap, pre severity
	PenaltyScore       float64             `json:"penaltyScore"`
	FinalScore         float64             `json:"finalScore"`
	Severity           string              `json:"severity"`
	SeverityMultiplier float64             `json:"severityMultiplier"`
	Groups             map[string]struct{} `json:"-"`
	RuleHits           []RuleHit           `json:"ruleHits,omitempty"`
}

// RuleSnapshot is an immutable view of the active rule set plus the
// medication alias table. In-flight requests keep the snapshot they started
// with; refreshes swap in a whole new value.
type RuleSnapshot struct {
	EligibilityRules []Rule
	ScoringRules     []Rule
	AliasMap         map[string][]string
	LoadedAt         time.Time
	Version          string
}
