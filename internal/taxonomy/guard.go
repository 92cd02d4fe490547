package taxonomy

import (
	"strconv"

	"github.com/magnatepoint/mvp1-sub001/internal/models"
	"github.com/magnatepoint/mvp1-sub001/pkg/logger"
)

// RuleRef is the slice of a rule the guard needs to see.
type RuleRef struct {
	ID              string
	CategoryCode    string
	SubcategoryCode string
	Active          bool
}

// RuleStore is the rule-repository surface the guard corrects.
type RuleStore interface {
	Refs() []RuleRef
	Deactivate(id, note string) error
	ClearSubcategory(id, note string) error
}

// ClassificationStore is the classification surface the guard corrects.
type ClassificationStore interface {
	AllClassifications() []models.Classification
	ReplaceClassification(c models.Classification) error
}

// SweepReport summarizes one guard pass.
type SweepReport struct {
	CatalogVersion            int64 `json:"catalog_version"`
	RulesDeactivated          int   `json:"rules_deactivated"`
	RuleSubcategoriesCleared  int   `json:"rule_subcategories_cleared"`
	ClassificationsReassigned int   `json:"classifications_reassigned"`
	ClassSubcategoriesCleared int   `json:"classification_subcategories_cleared"`
}

// Guard enforces taxonomy consistency over the rule repository and the
// classification records after catalog changes. Every correction is a
// deactivation or a null-out, never a delete, so audit history survives.
type Guard struct {
	catalog *Catalog
	rules   RuleStore
	classes ClassificationStore
	log     logger.Logger
}

// NewGuard creates a consistency guard over the given stores.
func NewGuard(catalog *Catalog, rules RuleStore, classes ClassificationStore) *Guard {
	return &Guard{
		catalog: catalog,
		rules:   rules,
		classes: classes,
		log:     logger.GetGlobalLogger().WithComponent("taxonomy_guard"),
	}
}

// Sweep runs one full consistency pass against the current catalog
// snapshot. The pass is idempotent: re-running it against an unchanged
// catalog finds nothing left to correct.
func (g *Guard) Sweep() (*SweepReport, error) {
	snapshot := g.catalog.Snapshot()
	report := &SweepReport{CatalogVersion: snapshot.Version}

	if g.rules != nil {
		if err := g.sweepRules(snapshot, report); err != nil {
			return report, err
		}
	}
	if g.classes != nil {
		if err := g.sweepClassifications(snapshot, report); err != nil {
			return report, err
		}
	}

	g.log.WithFields(logger.Fields{
		"catalog_version":            report.CatalogVersion,
		"rules_deactivated":          report.RulesDeactivated,
		"rule_subcategories_cleared": report.RuleSubcategoriesCleared,
		"classifications_reassigned": report.ClassificationsReassigned,
	}).Info("Consistency sweep completed")

	return report, nil
}

func (g *Guard) sweepRules(snapshot *Snapshot, report *SweepReport) error {
	for _, ref := range g.rules.Refs() {
		if !ref.Active {
			continue
		}

		if !snapshot.HasActiveCategory(ref.CategoryCode) {
			note := "category " + ref.CategoryCode + " retired from taxonomy v" + strconv.FormatInt(snapshot.Version, 10)
			if err := g.rules.Deactivate(ref.ID, note); err != nil {
				return err
			}
			report.RulesDeactivated++
			g.log.WithFields(logger.Fields{
				"rule_id":  ref.ID,
				"category": ref.CategoryCode,
			}).Warn("Deactivated rule targeting retired category")
			continue
		}

		if ref.SubcategoryCode != "" && !snapshot.HasActiveSubcategory(ref.SubcategoryCode) {
			note := "subcategory " + ref.SubcategoryCode + " retired from taxonomy v" + strconv.FormatInt(snapshot.Version, 10)
			if err := g.rules.ClearSubcategory(ref.ID, note); err != nil {
				return err
			}
			report.RuleSubcategoriesCleared++
			g.log.WithFields(logger.Fields{
				"rule_id":     ref.ID,
				"subcategory": ref.SubcategoryCode,
			}).Warn("Cleared retired subcategory on rule")
		}
	}
	return nil
}

func (g *Guard) sweepClassifications(snapshot *Snapshot, report *SweepReport) error {
	for _, class := range g.classes.AllClassifications() {
		changed := false

		if !snapshot.HasActiveCategory(class.CategoryCode) {
			class.CategoryCode = FallbackCategory
			class.SubcategoryCode = ""
			if t, ok := snapshot.TypeOf(FallbackCategory); ok {
				class.Type = t
			}
			changed = true
			report.ClassificationsReassigned++
		} else if class.SubcategoryCode != "" && !snapshot.HasActiveSubcategory(class.SubcategoryCode) {
			class.SubcategoryCode = ""
			changed = true
			report.ClassSubcategoriesCleared++
		}

		if changed {
			if err := g.classes.ReplaceClassification(class); err != nil {
				return err
			}
		}
	}
	return nil
}
