// Package rules holds the classification rule model and the versioned
// rule repository the matching cascade evaluates against.
package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/magnatepoint/mvp1-sub001/internal/models"
	pkgerrors "github.com/magnatepoint/mvp1-sub001/pkg/errors"
)

// Strategy identifies how a rule's condition is evaluated.
type Strategy string

const (
	// StrategyMerchantPattern matches the rule pattern against the
	// normalized merchant subject.
	StrategyMerchantPattern Strategy = "merchant_pattern"
	// StrategyDescriptionPattern matches the rule pattern against the raw
	// description.
	StrategyDescriptionPattern Strategy = "description_pattern"
	// StrategyExactName matches by normalized merchant-name equality.
	StrategyExactName Strategy = "exact_name"
	// StrategyKeyword matches when any keyword appears as a substring.
	StrategyKeyword Strategy = "keyword"
)

// IsValid checks whether the strategy is known.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyMerchantPattern, StrategyDescriptionPattern, StrategyExactName, StrategyKeyword:
		return true
	}
	return false
}

// Provenance records where a rule came from.
type Provenance string

const (
	ProvenanceSeed Provenance = "seed"
	ProvenanceOps  Provenance = "ops"
	ProvenanceUser Provenance = "user"
)

// Rule maps one matching condition to a category target. Rules are
// curated administratively; retiring a taxonomy code deactivates the
// rules that target it rather than deleting them.
type Rule struct {
	ID              string     `yaml:"id,omitempty" json:"id"`
	CategoryCode    string     `yaml:"category_code" json:"category_code"`
	SubcategoryCode string     `yaml:"subcategory_code,omitempty" json:"subcategory_code,omitempty"`
	Strategy        Strategy   `yaml:"strategy" json:"strategy"`
	Pattern         string     `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Keywords        []string   `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	MerchantName    string     `yaml:"merchant_name,omitempty" json:"merchant_name,omitempty"`
	Priority        int        `yaml:"priority" json:"priority"`
	Confidence      float64    `yaml:"confidence" json:"confidence"`
	Active          bool       `yaml:"active" json:"active"`
	Provenance      Provenance `yaml:"provenance,omitempty" json:"provenance,omitempty"`
	Notes           string     `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// Validate checks the rule definition, including that pattern strategies
// carry a compilable pattern. Patterns use Go RE2 syntax; the repository
// compiles them case-insensitively, so rules should not embed (?i)
// themselves.
func (r *Rule) Validate() error {
	if !r.Strategy.IsValid() {
		return pkgerrors.ValidationError(pkgerrors.CodeInvalidData, "rule.strategy", string(r.Strategy), nil)
	}

	if strings.TrimSpace(r.CategoryCode) == "" {
		return pkgerrors.ValidationError(pkgerrors.CodeMissingField, "rule.category_code", r.CategoryCode, nil)
	}

	if r.Confidence < 0 || r.Confidence > 1 {
		return pkgerrors.ValidationError(pkgerrors.CodeOutOfRange, "rule.confidence", r.Confidence, nil)
	}

	switch r.Strategy {
	case StrategyMerchantPattern, StrategyDescriptionPattern:
		if strings.TrimSpace(r.Pattern) == "" {
			return pkgerrors.ValidationError(pkgerrors.CodeMissingField, "rule.pattern", r.Pattern, nil)
		}
		if _, err := compilePattern(r.Pattern); err != nil {
			return pkgerrors.RuleError(pkgerrors.CodeInvalidPattern, r.ID, err)
		}
	case StrategyExactName:
		if strings.TrimSpace(r.Pattern) == "" && strings.TrimSpace(r.MerchantName) == "" {
			return pkgerrors.ValidationError(pkgerrors.CodeMissingField, "rule.pattern", r.Pattern, nil)
		}
	case StrategyKeyword:
		if len(r.Keywords) == 0 {
			return pkgerrors.ValidationError(pkgerrors.CodeMissingField, "rule.keywords", nil, nil)
		}
	}

	return nil
}

// ExactName returns the normalized merchant name an exact-name rule keys
// on: the pattern field if set, else the reference merchant name.
func (r *Rule) ExactName() string {
	if s := models.NormalizeText(r.Pattern); s != "" {
		return s
	}
	return models.NormalizeText(r.MerchantName)
}

// String returns a short representation for logs.
func (r *Rule) String() string {
	return fmt.Sprintf("Rule{ID: %s, Strategy: %s, Category: %s, Priority: %d, Confidence: %.2f}",
		r.ID, r.Strategy, r.CategoryCode, r.Priority, r.Confidence)
}

// compilePattern compiles a rule pattern case-insensitively. The single
// supported dialect is Go RE2, with \b as the word-boundary convention.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}

func newRuleID() string {
	return uuid.NewString()
}
