package rules

import (
	"path/filepath"
	"testing"

	pkgerrors "github.com/magnatepoint/mvp1-sub001/pkg/errors"
)

func TestAddAssignsIDAndNormalizes(t *testing.T) {
	repo := NewRepository()

	added, err := repo.Add(Rule{
		Strategy:        StrategyDescriptionPattern,
		Pattern:         `\brent\b`,
		CategoryCode:    "  RENT ",
		SubcategoryCode: "Monthly",
		Priority:        30,
		Confidence:      0.8,
		Active:          true,
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if added.ID == "" {
		t.Error("Add should assign an ID")
	}
	if added.CategoryCode != "rent" {
		t.Errorf("CategoryCode = %q, want lowercased rent", added.CategoryCode)
	}
	if added.SubcategoryCode != "monthly" {
		t.Errorf("SubcategoryCode = %q, want lowercased monthly", added.SubcategoryCode)
	}

	got, ok := repo.Get(added.ID)
	if !ok || got.Pattern != added.Pattern {
		t.Error("Get should return the stored rule")
	}
}

func TestAddRejectsInvalidRules(t *testing.T) {
	repo := NewRepository()

	tests := []struct {
		name string
		rule Rule
	}{
		{"bad pattern", Rule{Strategy: StrategyDescriptionPattern, Pattern: `([`, CategoryCode: "rent", Confidence: 0.8, Active: true}},
		{"no category", Rule{Strategy: StrategyDescriptionPattern, Pattern: `\brent\b`, Confidence: 0.8, Active: true}},
		{"keyword rule without keywords", Rule{Strategy: StrategyKeyword, CategoryCode: "rent", Confidence: 0.8, Active: true}},
		{"confidence out of range", Rule{Strategy: StrategyDescriptionPattern, Pattern: `\brent\b`, CategoryCode: "rent", Confidence: 1.5, Active: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := repo.Add(tt.rule); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestSnapshotVersioning(t *testing.T) {
	repo := NewRepository()
	v1 := repo.Snapshot()

	added, err := repo.Add(Rule{
		Strategy:     StrategyDescriptionPattern,
		Pattern:      `\brent\b`,
		CategoryCode: "rent",
		Confidence:   0.8,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	v2 := repo.Snapshot()
	if v2.Version <= v1.Version {
		t.Errorf("mutation should bump version: %d -> %d", v1.Version, v2.Version)
	}

	// Bound snapshots are immutable: deactivating the rule must not
	// change what v2 already published.
	if err := repo.Deactivate(added.ID, "test"); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}
	if len(v2.PatternRules()) != 1 {
		t.Error("earlier snapshot should still contain the rule")
	}
	if len(repo.Snapshot().PatternRules()) != 0 {
		t.Error("current snapshot should drop the deactivated rule")
	}
}

func TestPatternRuleOrdering(t *testing.T) {
	repo := NewRepository()

	low, _ := repo.Add(Rule{Strategy: StrategyDescriptionPattern, Pattern: `a`, CategoryCode: "rent", Priority: 10, Confidence: 0.9, Active: true})
	high, _ := repo.Add(Rule{Strategy: StrategyDescriptionPattern, Pattern: `b`, CategoryCode: "rent", Priority: 90, Confidence: 0.5, Active: true})
	mid, _ := repo.Add(Rule{Strategy: StrategyDescriptionPattern, Pattern: `c`, CategoryCode: "rent", Priority: 10, Confidence: 0.95, Active: true})

	ordered := repo.Snapshot().PatternRules()
	if len(ordered) != 3 {
		t.Fatalf("expected 3 pattern rules, got %d", len(ordered))
	}
	// Priority descending, then confidence descending.
	if ordered[0].ID != high.ID {
		t.Errorf("first rule = %s, want highest priority %s", ordered[0].ID, high.ID)
	}
	if ordered[1].ID != mid.ID {
		t.Errorf("second rule = %s, want higher confidence %s", ordered[1].ID, mid.ID)
	}
	if ordered[2].ID != low.ID {
		t.Errorf("third rule = %s, want %s", ordered[2].ID, low.ID)
	}
}

func TestDeactivatePreservesRule(t *testing.T) {
	repo := NewRepository()
	added, _ := repo.Add(Rule{
		Strategy:     StrategyDescriptionPattern,
		Pattern:      `\brent\b`,
		CategoryCode: "rent",
		Confidence:   0.8,
		Active:       true,
	})

	if err := repo.Deactivate(added.ID, "category rent retired from taxonomy v7"); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}

	got, ok := repo.Get(added.ID)
	if !ok {
		t.Fatal("deactivated rule must remain readable")
	}
	if got.Active {
		t.Error("rule should be inactive")
	}
	if got.Notes != "category rent retired from taxonomy v7" {
		t.Errorf("Notes = %q, want the deactivation note", got.Notes)
	}

	// Idempotent: second deactivation is a no-op, not a duplicate note.
	if err := repo.Deactivate(added.ID, "again"); err != nil {
		t.Fatalf("repeat Deactivate failed: %v", err)
	}
	got, _ = repo.Get(added.ID)
	if got.Notes != "category rent retired from taxonomy v7" {
		t.Errorf("repeat deactivation appended a note: %q", got.Notes)
	}
}

func TestClearSubcategory(t *testing.T) {
	repo := NewRepository()
	added, _ := repo.Add(Rule{
		Strategy:        StrategyDescriptionPattern,
		Pattern:         `\bbigbasket\b`,
		CategoryCode:    "groceries",
		SubcategoryCode: "online_groceries",
		Confidence:      0.9,
		Active:          true,
	})

	if err := repo.ClearSubcategory(added.ID, "subcategory online_groceries retired from taxonomy v8"); err != nil {
		t.Fatalf("ClearSubcategory failed: %v", err)
	}

	got, _ := repo.Get(added.ID)
	if got.SubcategoryCode != "" {
		t.Errorf("SubcategoryCode = %q, want cleared", got.SubcategoryCode)
	}
	if !got.Active {
		t.Error("clearing a subcategory must not deactivate the rule")
	}
	if got.CategoryCode != "groceries" {
		t.Error("category target must survive subcategory clearing")
	}
}

func TestUnknownRuleOperations(t *testing.T) {
	repo := NewRepository()

	if err := repo.Deactivate("missing", "note"); !pkgerrors.IsCode(err, pkgerrors.CodeUnknownRule) {
		t.Errorf("Deactivate(missing) error = %v, want unknown_rule", err)
	}
	if err := repo.ClearSubcategory("missing", "note"); !pkgerrors.IsCode(err, pkgerrors.CodeUnknownRule) {
		t.Errorf("ClearSubcategory(missing) error = %v, want unknown_rule", err)
	}
	if err := repo.Update(Rule{ID: "missing", Strategy: StrategyDescriptionPattern, Pattern: `a`, CategoryCode: "rent", Confidence: 0.5}); !pkgerrors.IsCode(err, pkgerrors.CodeUnknownRule) {
		t.Errorf("Update(missing) error = %v, want unknown_rule", err)
	}
}

func TestExactNameLookupIsNormalized(t *testing.T) {
	repo := NewRepository()
	repo.Add(Rule{
		Strategy:     StrategyExactName,
		Pattern:      "Netflix",
		MerchantName: "Netflix",
		CategoryCode: "entertainment",
		Confidence:   0.95,
		Active:       true,
	})

	if _, ok := repo.Snapshot().ExactNameRule("  NETFLIX  "); !ok {
		t.Error("exact-name lookup should be case and whitespace insensitive")
	}
	if _, ok := repo.Snapshot().ExactNameRule("netflix india"); ok {
		t.Error("exact-name lookup must not partially match")
	}
}

func TestLoadSeedFile(t *testing.T) {
	repo, err := LoadSeedFile(filepath.Join("..", "..", "testdata", "rules.yaml"))
	if err != nil {
		t.Fatalf("LoadSeedFile failed: %v", err)
	}

	all := repo.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(all))
	}
	for _, rule := range all {
		if rule.ID == "" {
			t.Error("seeded rules should receive IDs")
		}
		if rule.Provenance != ProvenanceSeed {
			t.Errorf("Provenance = %q, want seed", rule.Provenance)
		}
	}

	snapshot := repo.Snapshot()
	if len(snapshot.PatternRules()) != 2 {
		t.Errorf("expected 2 pattern rules, got %d", len(snapshot.PatternRules()))
	}
	if len(snapshot.KeywordRules()) != 1 {
		t.Errorf("expected 1 keyword rule, got %d", len(snapshot.KeywordRules()))
	}
}

func TestDefaultRepositoryIsWellFormed(t *testing.T) {
	repo := DefaultRepository()

	for _, rule := range repo.All() {
		if err := rule.Validate(); err != nil {
			t.Errorf("default rule %s invalid: %v", rule.ID, err)
		}
		if !rule.Active {
			t.Errorf("default rule %s should be active", rule.ID)
		}
	}
}

func TestExactNameCollisionTieBreak(t *testing.T) {
	repo := NewRepository()

	low, err := repo.Add(Rule{
		Strategy:     StrategyExactName,
		Pattern:      "Big Basket",
		CategoryCode: "shopping",
		Priority:     10,
		Confidence:   0.80,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	high, err := repo.Add(Rule{
		Strategy:     StrategyExactName,
		Pattern:      "BIG  BASKET",
		CategoryCode: "groceries",
		Priority:     20,
		Confidence:   0.70,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	// Both rules normalize to the same name; the higher-priority rule must
	// win regardless of insertion order.
	got, ok := repo.Snapshot().ExactNameRule("big basket")
	if !ok {
		t.Fatal("expected an exact-name rule for the colliding name")
	}
	if got.ID != high.ID {
		t.Errorf("exact-name winner = %s (category %s), want the higher-priority rule %s",
			got.ID, got.CategoryCode, high.ID)
	}

	// Deactivating the winner lets the loser take the slot back.
	if err := repo.Deactivate(high.ID, "retired"); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	got, ok = repo.Snapshot().ExactNameRule("big basket")
	if !ok {
		t.Fatal("expected the remaining rule to serve the name")
	}
	if got.ID != low.ID {
		t.Errorf("exact-name rule = %s, want %s after winner deactivation", got.ID, low.ID)
	}
}

func TestExactNameCollisionConfidenceTieBreak(t *testing.T) {
	repo := NewRepository()

	if _, err := repo.Add(Rule{
		Strategy:     StrategyExactName,
		Pattern:      "zomato",
		CategoryCode: "shopping",
		Priority:     10,
		Confidence:   0.60,
		Active:       true,
	}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	strong, err := repo.Add(Rule{
		Strategy:     StrategyExactName,
		Pattern:      "zomato",
		CategoryCode: "dining",
		Priority:     10,
		Confidence:   0.90,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got, ok := repo.Snapshot().ExactNameRule("zomato")
	if !ok {
		t.Fatal("expected an exact-name rule")
	}
	if got.ID != strong.ID {
		t.Errorf("equal priority should fall through to confidence; got %s, want %s", got.ID, strong.ID)
	}
}
