package rulestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dermaguide/backend/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "rules.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLoadSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	snapshot, err := store.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("seed rules split by kind", func(t *testing.T) {
		if len(snapshot.EligibilityRules) != 3 {
			t.Errorf("eligibility rules = %d, want 3", len(snapshot.EligibilityRules))
		}
		if len(snapshot.ScoringRules) != 5 {
			t.Errorf("scoring rules = %d, want 5", len(snapshot.ScoringRules))
		}
	})

	t.Run("rules load in stable order", func(t *testing.T) {
		if len(snapshot.EligibilityRules) == 0 {
			t.Fatal("no eligibility rules loaded")
		}
		if got := snapshot.EligibilityRules[0].ID; got != "ELG_001" {
			t.Errorf("first eligibility rule = %s, want ELG_001", got)
		}
	})

	t.Run("every loaded rule is valid", func(t *testing.T) {
		for _, rule := range append(snapshot.EligibilityRules, snapshot.ScoringRules...) {
			if err := rule.Validate(); err != nil {
				t.Errorf("loaded rule %s fails validation: %v", rule.ID, err)
			}
		}
	})

	t.Run("conditions decode from json", func(t *testing.T) {
		var found bool
		for _, rule := range snapshot.EligibilityRules {
			if rule.ID == "ELG_002" {
				found = true
				if !rule.Conditions[domain.FacetPregLact] {
					t.Error("ELG_002 should require preg_lact = true")
				}
			}
		}
		if !found {
			t.Error("ELG_002 not loaded")
		}
	})

	t.Run("alias table groups codes per alias", func(t *testing.T) {
		if len(snapshot.AliasMap) != 4 {
			t.Errorf("aliases = %d, want 4", len(snapshot.AliasMap))
		}
		if got := len(snapshot.AliasMap["GROUP:ANTICOAG"]); got != 3 {
			t.Errorf("GROUP:ANTICOAG codes = %d, want 3", got)
		}
	})

	t.Run("version reflects rule counts", func(t *testing.T) {
		if snapshot.Version == "" {
			t.Error("version is empty")
		}
	})
}

func TestLoadSnapshotDropsInvalidRules(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// A scoring rule with no predicate, an eligibility rule with a bad
	// action, an inactive rule and an expired rule must all be dropped.
	inserts := []string{
		`INSERT INTO rules (rule_id, kind, action, weight) VALUES ('BAD_001', 'scoring', 'penalize', 10)`,
		`INSERT INTO rules (rule_id, kind, action, ingredient_tag) VALUES ('BAD_002', 'eligibility', 'penalize', 'aha')`,
		`INSERT INTO rules (rule_id, kind, action, ingredient_tag, active) VALUES ('OFF_001', 'eligibility', 'exclude', 'aha', 0)`,
		`INSERT INTO rules (rule_id, kind, action, ingredient_tag, expires_at) VALUES ('EXP_001', 'eligibility', 'exclude', 'aha', '2000-01-01 00:00:00')`,
		`INSERT INTO rules (rule_id, kind, action, ingredient_tag, conditions) VALUES ('BAD_003', 'eligibility', 'exclude', 'aha', 'not json')`,
	}
	for _, stmt := range inserts {
		if _, err := store.db.Exec(stmt); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	snapshot, err := store.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, rule := range append(snapshot.EligibilityRules, snapshot.ScoringRules...) {
		switch rule.ID {
		case "BAD_001", "BAD_002", "OFF_001", "EXP_001", "BAD_003":
			t.Errorf("rule %s should have been dropped", rule.ID)
		}
	}
}
