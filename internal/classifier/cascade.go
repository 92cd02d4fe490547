// Package classifier implements the matching cascade: a fixed-precedence
// sequence of rule tiers evaluated over one transaction at a time.
//
// Tier precedence, first non-empty result wins:
//  1. Exact-pattern rules (merchant or description field)
//  2. Exact-name rules (normalized merchant-name equality)
//  3. Curated taxonomy-merchant table (exact, then >=0.80, then >=0.70)
//  4. Fuzzy rule match (reference merchant similarity >= 0.40)
//  5. Keyword rules (substring, case-insensitive)
//
// Unmatched transactions resolve to the low-confidence transfer fallback,
// never to an error. The engine is a pure function of its bound rule and
// taxonomy snapshots, so batches can classify concurrently.
package classifier

import (
	"sort"
	"strings"
	"time"

	"github.com/magnatepoint/mvp1-sub001/internal/models"
	"github.com/magnatepoint/mvp1-sub001/internal/rules"
	"github.com/magnatepoint/mvp1-sub001/internal/taxonomy"
	"github.com/magnatepoint/mvp1-sub001/pkg/logger"
)

// FallbackConfidence marks fallback classifications as low-trust,
// requiring review.
const FallbackConfidence = 0.70

// Similarity thresholds for the merchant tiers.
const (
	merchantHighBand = 0.80
	merchantFloor    = 0.70
	fuzzyRuleFloor   = 0.40
)

// Match is the tagged result threaded through the tiers.
type Match struct {
	Found           bool
	CategoryCode    string
	SubcategoryCode string
	RuleID          string
	Confidence      float64
	Strategy        models.MatchStrategy
	Reason          string
}

// Engine evaluates the cascade against one bound rule snapshot and one
// bound taxonomy snapshot.
type Engine struct {
	rules    *rules.Snapshot
	taxonomy *taxonomy.Snapshot
	log      logger.Logger
	now      func() time.Time
}

// NewEngine binds an engine to the given snapshots.
func NewEngine(ruleSet *rules.Snapshot, catalog *taxonomy.Snapshot) *Engine {
	return &Engine{
		rules:    ruleSet,
		taxonomy: catalog,
		log:      logger.GetGlobalLogger().WithComponent("cascade"),
		now:      time.Now,
	}
}

// Classify produces the classification for one transaction. It always
// returns a result: when no tier matches, the transfer fallback applies.
func (e *Engine) Classify(tx *models.Transaction, parsed *models.ParsedTransaction) models.Classification {
	subject := tx.MatchSubject(parsed)
	description := models.NormalizeText(tx.Description)

	match := e.matchExactPattern(subject, description)
	if !match.Found {
		match = e.matchExactName(subject)
	}
	if !match.Found {
		match = e.matchTaxonomyMerchant(subject)
	}
	if !match.Found {
		match = e.matchFuzzy(subject)
	}
	if !match.Found {
		match = e.matchKeyword(subject, description)
	}
	if !match.Found {
		match = e.fallback(tx, parsed)
	}

	// A matched rule with no subcategory inherits the category's default,
	// when one is declared.
	if match.SubcategoryCode == "" {
		match.SubcategoryCode = e.taxonomy.DefaultSubcategory(match.CategoryCode)
	}

	classType, _ := e.taxonomy.TypeOf(match.CategoryCode)

	return models.Classification{
		TransactionID:   tx.ID,
		CategoryCode:    match.CategoryCode,
		SubcategoryCode: match.SubcategoryCode,
		Type:            classType,
		RuleID:          match.RuleID,
		Confidence:      match.Confidence,
		Strategy:        match.Strategy,
		ClassifiedAt:    e.now(),
	}
}

// matchExactPattern evaluates tier 1. Rules arrive pre-sorted by priority
// then confidence; the first admissible hit wins, and multi-candidate
// resolutions are logged for audit.
func (e *Engine) matchExactPattern(subject, description string) Match {
	var winner *rules.Rule
	var runnersUp int

	for _, rule := range e.rules.PatternRules() {
		if !e.admissible(rule) {
			continue
		}

		field := subject
		if rule.Strategy == rules.StrategyDescriptionPattern {
			field = description
		}

		re := e.rules.Pattern(rule.ID)
		if re == nil || !re.MatchString(field) {
			continue
		}

		if winner == nil {
			winner = &rule
		} else {
			runnersUp++
		}
	}

	if winner == nil {
		return Match{}
	}

	if runnersUp > 0 {
		e.log.WithFields(logger.Fields{
			"rule_id":    winner.ID,
			"priority":   winner.Priority,
			"confidence": winner.Confidence,
			"runners_up": runnersUp,
		}).Debug("Pattern tier tie resolved by priority/confidence order")
	}

	return Match{
		Found:           true,
		CategoryCode:    winner.CategoryCode,
		SubcategoryCode: winner.SubcategoryCode,
		RuleID:          winner.ID,
		Confidence:      winner.Confidence,
		Strategy:        models.StrategyExactPattern,
		Reason:          "pattern match",
	}
}

// matchExactName evaluates tier 2.
func (e *Engine) matchExactName(subject string) Match {
	rule, ok := e.rules.ExactNameRule(subject)
	if !ok || !e.admissible(rule) {
		return Match{}
	}

	return Match{
		Found:           true,
		CategoryCode:    rule.CategoryCode,
		SubcategoryCode: rule.SubcategoryCode,
		RuleID:          rule.ID,
		Confidence:      rule.Confidence,
		Strategy:        models.StrategyExactName,
		Reason:          "exact merchant name",
	}
}

// matchTaxonomyMerchant evaluates tier 3 against the curated merchant
// reference table: exact equality outranks the 0.80 band, which outranks
// the 0.70 band. Within a band, the highest similarity wins, then table
// order for determinism.
func (e *Engine) matchTaxonomyMerchant(subject string) Match {
	if subject == "" {
		return Match{}
	}

	var best taxonomy.MerchantMapping
	var bestScore float64

	for _, m := range e.taxonomy.Merchants() {
		if !e.taxonomy.HasActiveCategory(m.CategoryCode) {
			continue
		}

		score := Similarity(subject, m.Name)
		if score < merchantFloor {
			continue
		}
		if score > bestScore {
			best = m
			bestScore = score
		}
	}

	if bestScore == 0 {
		return Match{}
	}

	return Match{
		Found:           true,
		CategoryCode:    best.CategoryCode,
		SubcategoryCode: best.SubcategoryCode,
		Confidence:      bestScore,
		Strategy:        models.StrategyTaxonomyMerchant,
		Reason:          "curated merchant table",
	}
}

// matchFuzzy evaluates tier 4: rules whose reference merchant name is
// similar enough to the subject. Ties break by similarity, then priority.
func (e *Engine) matchFuzzy(subject string) Match {
	if subject == "" {
		return Match{}
	}

	type candidate struct {
		rule  rules.Rule
		score float64
	}
	var candidates []candidate

	for _, rule := range e.rules.FuzzyRules() {
		if !e.admissible(rule) {
			continue
		}
		score := Similarity(subject, rule.MerchantName)
		if score >= fuzzyRuleFloor {
			candidates = append(candidates, candidate{rule: rule, score: score})
		}
	}

	if len(candidates) == 0 {
		return Match{}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].rule.Priority != candidates[j].rule.Priority {
			return candidates[i].rule.Priority > candidates[j].rule.Priority
		}
		return candidates[i].rule.ID < candidates[j].rule.ID
	})

	winner := candidates[0]
	if len(candidates) > 1 {
		e.log.WithFields(logger.Fields{
			"rule_id":    winner.rule.ID,
			"similarity": winner.score,
			"candidates": len(candidates),
		}).Debug("Fuzzy tier tie resolved by similarity/priority order")
	}

	return Match{
		Found:           true,
		CategoryCode:    winner.rule.CategoryCode,
		SubcategoryCode: winner.rule.SubcategoryCode,
		RuleID:          winner.rule.ID,
		Confidence:      winner.rule.Confidence,
		Strategy:        models.StrategyFuzzy,
		Reason:          "fuzzy merchant similarity",
	}
}

// matchKeyword evaluates tier 5: any keyword appearing as a substring of
// the subject or the normalized description.
func (e *Engine) matchKeyword(subject, description string) Match {
	for _, rule := range e.rules.KeywordRules() {
		if !e.admissible(rule) {
			continue
		}

		for _, kw := range rule.Keywords {
			kw = models.NormalizeText(kw)
			if kw == "" {
				continue
			}
			if containsSubstring(subject, kw) || containsSubstring(description, kw) {
				return Match{
					Found:           true,
					CategoryCode:    rule.CategoryCode,
					SubcategoryCode: rule.SubcategoryCode,
					RuleID:          rule.ID,
					Confidence:      rule.Confidence,
					Strategy:        models.StrategyKeyword,
					Reason:          "keyword " + kw,
				}
			}
		}
	}
	return Match{}
}

// fallback resolves unmatched transactions to the low-trust transfer
// categories. Outbound becomes transfer_out, with the wallet subcategory
// for peer-to-peer rails; inbound becomes transfer_in.
func (e *Engine) fallback(tx *models.Transaction, parsed *models.ParsedTransaction) Match {
	outbound := tx.IsDebit()
	if parsed != nil && parsed.Flow == models.FlowIn {
		outbound = false
	}

	if outbound {
		sub := "other_out"
		if parsed != nil && parsed.Channel == models.ChannelUPI {
			sub = "wallet"
		}
		return Match{
			Found:           true,
			CategoryCode:    taxonomy.TransferOutCategory,
			SubcategoryCode: sub,
			Confidence:      FallbackConfidence,
			Strategy:        models.StrategyFallback,
			Reason:          "unmatched outbound",
		}
	}

	return Match{
		Found:        true,
		CategoryCode: taxonomy.TransferInCategory,
		Confidence:   FallbackConfidence,
		Strategy:     models.StrategyFallback,
		Reason:       "unmatched inbound",
	}
}

// admissible filters rules whose category target is not valid in the
// bound taxonomy snapshot. The consistency guard normally prevents this;
// the check keeps a stale rule from producing an invalid classification
// between catalog mutation and the guard sweep.
func (e *Engine) admissible(rule rules.Rule) bool {
	if !e.taxonomy.HasActiveCategory(rule.CategoryCode) {
		return false
	}
	if rule.SubcategoryCode != "" && !e.taxonomy.Belongs(rule.SubcategoryCode, rule.CategoryCode) {
		return false
	}
	return true
}

func containsSubstring(haystack, needle string) bool {
	return haystack != "" && needle != "" && strings.Contains(haystack, needle)
}
