package rulestore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dermaguide/backend/internal/domain"
)

//go:embed schema.sql
var schema string

// Store loads rule definitions and the medication alias table from sqlite.
type Store struct {
	db *sql.DB
}

// New opens the rule database and initializes the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open rule database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init rule schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadSnapshot reads the full active rule set and alias table into a fresh
// immutable snapshot. Rules failing validation, and expired rules, are
// dropped here with a log line; per-request evaluation may assume every
// rule in the snapshot is well formed.
func (s *Store) LoadSnapshot(ctx context.Context) (*domain.RuleSnapshot, error) {
	rules, rejected, err := s.loadRules(ctx)
	if err != nil {
		return nil, err
	}
	aliases, err := s.loadAliases(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &domain.RuleSnapshot{
		AliasMap: aliases,
		LoadedAt: time.Now(),
	}
	for _, rule := range rules {
		switch rule.Kind {
		case domain.KindEligibility:
			snapshot.EligibilityRules = append(snapshot.EligibilityRules, rule)
		case domain.KindScoring:
			snapshot.ScoringRules = append(snapshot.ScoringRules, rule)
		}
	}
	snapshot.Version = fmt.Sprintf("e%d-s%d-%d", len(snapshot.EligibilityRules), len(snapshot.ScoringRules), snapshot.LoadedAt.Unix())

	log.Printf("[RULESTORE] snapshot loaded: %d eligibility, %d scoring, %d aliases (%d rejected)",
		len(snapshot.EligibilityRules), len(snapshot.ScoringRules), len(aliases), rejected)
	return snapshot, nil
}

// loadRules returns validated rules in load (rowid) order, which defines
// the stable evaluation order the eligibility short-circuit depends on.
func (s *Store) loadRules(ctx context.Context) ([]domain.Rule, int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rule_id, kind, action, med_code, ingredient_tag, conditions,
		       weight, rationale, citation_url, expires_at
		FROM rules
		WHERE active = 1
		ORDER BY rowid
	`)
	if err != nil {
		return nil, 0, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	now := time.Now()
	var rules []domain.Rule
	rejected := 0

	for rows.Next() {
		var (
			rule          domain.Rule
			medCode       sql.NullString
			ingredientTag sql.NullString
			conditions    sql.NullString
			citationURL   sql.NullString
			expiresAt     sql.NullTime
		)
		if err := rows.Scan(&rule.ID, &rule.Kind, &rule.Action, &medCode, &ingredientTag,
			&conditions, &rule.Weight, &rule.Rationale, &citationURL, &expiresAt); err != nil {
			return nil, 0, fmt.Errorf("scan rule: %w", err)
		}
		rule.MedCode = medCode.String
		rule.IngredientTag = ingredientTag.String
		rule.CitationURL = citationURL.String
		if expiresAt.Valid {
			t := expiresAt.Time
			rule.ExpiresAt = &t
		}

		if conditions.Valid && conditions.String != "" {
			if err := json.Unmarshal([]byte(conditions.String), &rule.Conditions); err != nil {
				log.Printf("[RULESTORE] rejecting rule %s: malformed conditions: %v", rule.ID, err)
				rejected++
				continue
			}
		}

		if err := rule.Validate(); err != nil {
			log.Printf("[RULESTORE] rejecting rule: %v", err)
			rejected++
			continue
		}
		if rule.Expired(now) {
			log.Printf("[RULESTORE] dropping expired rule %s", rule.ID)
			rejected++
			continue
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate rules: %w", err)
	}
	return rules, rejected, nil
}

func (s *Store) loadAliases(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT alias, med_code FROM med_aliases ORDER BY alias, med_code
	`)
	if err != nil {
		return nil, fmt.Errorf("query aliases: %w", err)
	}
	defer rows.Close()

	aliases := make(map[string][]string)
	for rows.Next() {
		var alias, code string
		if err := rows.Scan(&alias, &code); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		aliases[alias] = append(aliases[alias], code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aliases: %w", err)
	}
	return aliases, nil
}
