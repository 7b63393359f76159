package usecase

import (
	"log"
	"strings"

	"github.com/dermaguide/backend/internal/domain"
)

// AliasResolver expands grouped medication codes into literal
// classification codes using the alias table of a rule snapshot.
type AliasResolver struct {
	enableDebugLogging bool
}

// NewAliasResolver creates a new alias resolver.
func NewAliasResolver(enableDebugLogging bool) *AliasResolver {
	return &AliasResolver{enableDebugLogging: enableDebugLogging}
}

// Resolve flattens the raw medication-profile codes into a deduplicated
// list of literal codes. Literal codes pass through unchanged; GROUP:
// aliases expand via the snapshot's alias map. Unknown aliases are dropped
// silently: conservative non-matching is preferred over failing a request.
//
// Resolution runs once per request and the result is shared by both the
// eligibility and scoring engines so they see an identical code set.
func (r *AliasResolver) Resolve(snapshot *domain.RuleSnapshot, rawCodes []string) []string {
	if len(rawCodes) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(rawCodes))
	resolved := make([]string, 0, len(rawCodes))

	add := func(code string) {
		if code == "" || seen[code] {
			return
		}
		seen[code] = true
		resolved = append(resolved, code)
	}

	for _, raw := range rawCodes {
		code := strings.TrimSpace(raw)
		if !strings.HasPrefix(code, domain.GroupAliasPrefix) {
			add(code)
			continue
		}

		expansion, ok := snapshot.AliasMap[code]
		if !ok {
			if r.enableDebugLogging {
				log.Printf("[ALIAS] unknown alias %q dropped", code)
			}
			continue
		}
		for _, literal := range expansion {
			add(literal)
		}
	}

	return resolved
}
