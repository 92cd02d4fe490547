package rules

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/magnatepoint/mvp1-sub001/internal/models"
	"github.com/magnatepoint/mvp1-sub001/internal/taxonomy"
	pkgerrors "github.com/magnatepoint/mvp1-sub001/pkg/errors"
)

// Snapshot is an immutable, versioned view of the rule set. A
// classification run binds one snapshot for its whole batch; curation
// publishes a new snapshot atomically.
type Snapshot struct {
	Version int64

	patternRules []Rule
	exactNames   map[string]Rule
	fuzzyRules   []Rule
	keywordRules []Rule
	compiled     map[string]*regexp.Regexp
}

// Repository is the mutable, curated rule collection.
type Repository struct {
	mu      sync.RWMutex
	version int64
	rules   map[string]Rule
	order   []string
	current *Snapshot
}

// NewRepository creates an empty rule repository.
func NewRepository() *Repository {
	r := &Repository{rules: make(map[string]Rule)}
	r.publishLocked()
	return r
}

// Snapshot returns the current immutable rule snapshot.
func (r *Repository) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Add validates and inserts a rule, assigning an ID when absent.
func (r *Repository) Add(rule Rule) (Rule, error) {
	rule.CategoryCode = strings.ToLower(strings.TrimSpace(rule.CategoryCode))
	rule.SubcategoryCode = strings.ToLower(strings.TrimSpace(rule.SubcategoryCode))
	if rule.ID == "" {
		rule.ID = newRuleID()
	}

	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rules[rule.ID]; !exists {
		r.order = append(r.order, rule.ID)
	}
	r.rules[rule.ID] = rule
	r.publishLocked()
	return rule, nil
}

// Update replaces an existing rule definition.
func (r *Repository) Update(rule Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[rule.ID]; !ok {
		return pkgerrors.RuleError(pkgerrors.CodeUnknownRule, rule.ID, nil)
	}
	r.rules[rule.ID] = rule
	r.publishLocked()
	return nil
}

// Get returns a rule by ID.
func (r *Repository) Get(id string) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[id]
	return rule, ok
}

// Deactivate turns a rule off, appending a note. Rules are never deleted;
// this is the retirement mechanism the consistency guard uses.
func (r *Repository) Deactivate(id, note string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return pkgerrors.RuleError(pkgerrors.CodeUnknownRule, id, nil)
	}
	if !rule.Active {
		return nil
	}
	rule.Active = false
	rule.Notes = appendNote(rule.Notes, note)
	r.rules[id] = rule
	r.publishLocked()
	return nil
}

// ClearSubcategory nulls a rule's subcategory target, appending a note.
func (r *Repository) ClearSubcategory(id, note string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return pkgerrors.RuleError(pkgerrors.CodeUnknownRule, id, nil)
	}
	if rule.SubcategoryCode == "" {
		return nil
	}
	rule.SubcategoryCode = ""
	rule.Notes = appendNote(rule.Notes, note)
	r.rules[id] = rule
	r.publishLocked()
	return nil
}

// Refs implements the consistency guard's RuleStore view.
func (r *Repository) Refs() []taxonomy.RuleRef {
	r.mu.RLock()
	defer r.mu.RUnlock()

	refs := make([]taxonomy.RuleRef, 0, len(r.order))
	for _, id := range r.order {
		rule := r.rules[id]
		refs = append(refs, taxonomy.RuleRef{
			ID:              rule.ID,
			CategoryCode:    rule.CategoryCode,
			SubcategoryCode: rule.SubcategoryCode,
			Active:          rule.Active,
		})
	}
	return refs
}

// All returns every rule in insertion order, active or not.
func (r *Repository) All() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Rule, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.rules[id])
	}
	return out
}

// publishLocked rebuilds the snapshot. Caller holds r.mu.
func (r *Repository) publishLocked() {
	r.version++

	snapshot := &Snapshot{
		Version:    r.version,
		exactNames: make(map[string]Rule),
		compiled:   make(map[string]*regexp.Regexp),
	}

	for _, id := range r.order {
		rule := r.rules[id]
		if !rule.Active {
			continue
		}

		switch rule.Strategy {
		case StrategyMerchantPattern, StrategyDescriptionPattern:
			re, err := compilePattern(rule.Pattern)
			if err != nil {
				// Validate rejected it at insert; an uncompilable pattern
				// here means seed data bypassed Add, so skip it.
				continue
			}
			snapshot.compiled[rule.ID] = re
			snapshot.patternRules = append(snapshot.patternRules, rule)
		case StrategyExactName:
			// Two active rules can normalize to the same name; resolve the
			// collision with the same priority-then-confidence tie-break the
			// other tiers use.
			name := rule.ExactName()
			if existing, ok := snapshot.exactNames[name]; ok && !outranks(rule, existing) {
				continue
			}
			snapshot.exactNames[name] = rule
		case StrategyKeyword:
			snapshot.keywordRules = append(snapshot.keywordRules, rule)
		}

		if models.NormalizeText(rule.MerchantName) != "" {
			snapshot.fuzzyRules = append(snapshot.fuzzyRules, rule)
		}
	}

	// Pattern tier tie-break: highest priority first, then highest
	// confidence, then rule ID for full determinism.
	sort.SliceStable(snapshot.patternRules, func(i, j int) bool {
		a, b := snapshot.patternRules[i], snapshot.patternRules[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.ID < b.ID
	})

	sort.SliceStable(snapshot.keywordRules, func(i, j int) bool {
		a, b := snapshot.keywordRules[i], snapshot.keywordRules[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.ID < b.ID
	})

	r.current = snapshot
}

// outranks reports whether a beats b under the shared tie-break order:
// highest priority, then highest confidence, then lowest rule ID.
func outranks(a, b Rule) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.ID < b.ID
}

// PatternRules returns active pattern rules in evaluation order.
func (s *Snapshot) PatternRules() []Rule {
	return s.patternRules
}

// Pattern returns the compiled case-insensitive pattern of a rule.
func (s *Snapshot) Pattern(ruleID string) *regexp.Regexp {
	return s.compiled[ruleID]
}

// ExactNameRule looks up an exact-name rule by normalized merchant name.
func (s *Snapshot) ExactNameRule(name string) (Rule, bool) {
	rule, ok := s.exactNames[models.NormalizeText(name)]
	return rule, ok
}

// FuzzyRules returns active rules carrying a reference merchant name.
func (s *Snapshot) FuzzyRules() []Rule {
	return s.fuzzyRules
}

// KeywordRules returns active keyword rules in evaluation order.
func (s *Snapshot) KeywordRules() []Rule {
	return s.keywordRules
}

func appendNote(existing, note string) string {
	if note == "" {
		return existing
	}
	if existing == "" {
		return note
	}
	return existing + "; " + note
}
