package usecase

import (
	"strings"

	"github.com/dermaguide/backend/internal/domain"
)

// GroupTable maps rules to rule groups, the classification buckets used to
// cap cumulative penalties from related rules. The table is plain data so
// new medication classes and ingredient families don't require code changes.
type GroupTable struct {
	// MedPrefixes maps medication-code class prefixes to group names,
	// e.g. "B01" -> "anticoagulant". Longest prefix wins.
	MedPrefixes map[string]string
	// TagFamilies assigns ingredient tags to families by substring,
	// checked in order.
	TagFamilies []TagFamily
}

// TagFamily groups ingredient tags containing any of the listed substrings.
type TagFamily struct {
	Substrings []string
	Group      string
}

// DefaultGroupTable returns the curated medication/ingredient grouping.
func DefaultGroupTable() GroupTable {
	return GroupTable{
		MedPrefixes: map[string]string{
			"B01": "anticoagulant",
			"H02": "steroid",
		},
		TagFamilies: []TagFamily{
			{Substrings: []string{"aha", "bha"}, Group: "exfoliant"},
			{Substrings: []string{"retinoid", "retinol"}, Group: "retinoid"},
			{Substrings: []string{"vitamin_c"}, Group: "vitamin_c"},
		},
	}
}

// GroupForRule derives the rule group deterministically from the rule's
// predicate. Codes and tags outside the known families form singleton
// groups keyed by their literal value, so unrelated rules never share a cap.
func (t GroupTable) GroupForRule(rule domain.Rule) string {
	if rule.MedCode != "" {
		code := rule.MedCode
		if strings.HasPrefix(code, domain.GroupAliasPrefix) {
			return strings.ToLower(strings.TrimPrefix(code, domain.GroupAliasPrefix))
		}
		best := ""
		for prefix := range t.MedPrefixes {
			if strings.HasPrefix(code, prefix) && len(prefix) > len(best) {
				best = prefix
			}
		}
		if best != "" {
			return t.MedPrefixes[best]
		}
		prefix := code
		if len(prefix) > 3 {
			prefix = prefix[:3]
		}
		return "med_" + strings.ToLower(prefix)
	}

	tag := strings.ToLower(strings.TrimSpace(rule.IngredientTag))
	for _, family := range t.TagFamilies {
		for _, sub := range family.Substrings {
			if strings.Contains(tag, sub) {
				return family.Group
			}
		}
	}
	return "ingredient_" + tag
}

// Severity classes applied after per-group capping.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// SeverityTable classifies the set of contributing rule groups into a
// severity class and the multiplier applied to the capped penalty.
// Groups outside both risk tiers still contribute penalty but are neutral
// for classification.
type SeverityTable struct {
	HighRiskGroups   map[string]bool
	MediumRiskGroups map[string]bool
	Multipliers      map[string]float64
}

// DefaultSeverityTable returns the fixed risk-tier configuration.
func DefaultSeverityTable() SeverityTable {
	return SeverityTable{
		HighRiskGroups:   map[string]bool{"anticoagulant": true, "steroid": true},
		MediumRiskGroups: map[string]bool{"exfoliant": true, "retinoid": true},
		Multipliers: map[string]float64{
			SeverityHigh:   2.0,
			SeverityMedium: 1.5,
			SeverityLow:    1.0,
		},
	}
}

// Classify determines the severity class from the set of contributing
// groups. It is a pure function of the set: hit order never matters.
func (t SeverityTable) Classify(groups map[string]struct{}) string {
	high, medium := 0, 0
	for group := range groups {
		if t.HighRiskGroups[group] {
			high++
		} else if t.MediumRiskGroups[group] {
			medium++
		}
	}

	switch {
	case high >= 2, high >= 1 && medium >= 1:
		return SeverityHigh
	case high == 1, medium >= 2:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Multiplier returns the amplification factor for a severity class.
func (t SeverityTable) Multiplier(severity string) float64 {
	if m, ok := t.Multipliers[severity]; ok {
		return m
	}
	return 1.0
}
