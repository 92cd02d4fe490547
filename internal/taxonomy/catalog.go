// Package taxonomy holds the authoritative catalog of category and
// subcategory codes, the curated merchant reference table, and the
// consistency guard that keeps rules and classifications aligned with it.
//
// The catalog is read-mostly shared reference data. Reads go through
// immutable versioned snapshots: a classification run binds one snapshot
// for its whole batch, and every mutation publishes a new snapshot
// atomically, so a run never observes a half-updated catalog.
package taxonomy

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/magnatepoint/mvp1-sub001/internal/models"
	pkgerrors "github.com/magnatepoint/mvp1-sub001/pkg/errors"
)

// Category is one entry in the controlled vocabulary. Code is the stable
// machine key; Name is display-only and may change freely.
type Category struct {
	Code               string                 `yaml:"code" json:"code"`
	Name               string                 `yaml:"name" json:"name"`
	Type               models.TransactionType `yaml:"type" json:"type"`
	DisplayOrder       int                    `yaml:"display_order" json:"display_order"`
	Active             bool                   `yaml:"active" json:"active"`
	DefaultSubcategory string                 `yaml:"default_subcategory,omitempty" json:"default_subcategory,omitempty"`
}

// Subcategory belongs to exactly one parent category.
type Subcategory struct {
	Code         string `yaml:"code" json:"code"`
	CategoryCode string `yaml:"category_code" json:"category_code"`
	Name         string `yaml:"name" json:"name"`
	DisplayOrder int    `yaml:"display_order" json:"display_order"`
	Active       bool   `yaml:"active" json:"active"`
}

// MerchantMapping is one row of the curated merchant reference table used
// by the taxonomy-merchant cascade tier.
type MerchantMapping struct {
	Name            string `yaml:"name" json:"name"`
	CategoryCode    string `yaml:"category_code" json:"category_code"`
	SubcategoryCode string `yaml:"subcategory_code,omitempty" json:"subcategory_code,omitempty"`
}

// Snapshot is an immutable view of the catalog at one version. All lookup
// methods are safe for concurrent use; nothing in a snapshot ever mutates.
type Snapshot struct {
	Version       int64
	categories    map[string]Category
	subcategories map[string]Subcategory
	byCategory    map[string][]Subcategory
	merchants     []MerchantMapping
}

// Catalog is the mutable owner of the taxonomy. Mutations are serialized
// and publish a fresh Snapshot.
type Catalog struct {
	mu            sync.RWMutex
	version       int64
	current       *Snapshot
	categories    map[string]Category
	subcategories map[string]Subcategory
	merchants     []MerchantMapping
}

// NewCatalog creates an empty catalog at version 1.
func NewCatalog() *Catalog {
	c := &Catalog{
		categories:    make(map[string]Category),
		subcategories: make(map[string]Subcategory),
	}
	c.publishLocked()
	return c
}

// Snapshot returns the current immutable snapshot.
func (c *Catalog) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// AddCategory inserts or replaces a category definition.
func (c *Catalog) AddCategory(cat Category) error {
	cat.Code = normalizeCode(cat.Code)
	if cat.Code == "" {
		return pkgerrors.ValidationError(pkgerrors.CodeMissingField, "category.code", cat.Code, nil)
	}
	if !cat.Type.IsValid() {
		return pkgerrors.ValidationError(pkgerrors.CodeInvalidData, "category.type", string(cat.Type), nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.categories[cat.Code] = cat
	c.publishLocked()
	return nil
}

// AddSubcategory inserts or replaces a subcategory definition. The parent
// category must already exist.
func (c *Catalog) AddSubcategory(sub Subcategory) error {
	sub.Code = normalizeCode(sub.Code)
	sub.CategoryCode = normalizeCode(sub.CategoryCode)
	if sub.Code == "" {
		return pkgerrors.ValidationError(pkgerrors.CodeMissingField, "subcategory.code", sub.Code, nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.categories[sub.CategoryCode]; !ok {
		return pkgerrors.TaxonomyError(pkgerrors.CodeUnknownCategory, sub.CategoryCode, sub.Code)
	}
	c.subcategories[sub.Code] = sub
	c.publishLocked()
	return nil
}

// AddMerchant appends a merchant mapping to the reference table.
func (c *Catalog) AddMerchant(m MerchantMapping) error {
	m.Name = models.NormalizeText(m.Name)
	m.CategoryCode = normalizeCode(m.CategoryCode)
	m.SubcategoryCode = normalizeCode(m.SubcategoryCode)
	if m.Name == "" {
		return pkgerrors.ValidationError(pkgerrors.CodeMissingField, "merchant.name", m.Name, nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.categories[m.CategoryCode]; !ok {
		return pkgerrors.TaxonomyError(pkgerrors.CodeUnknownCategory, m.CategoryCode, m.SubcategoryCode)
	}
	c.merchants = append(c.merchants, m)
	c.publishLocked()
	return nil
}

// RetireCategory deactivates a category. History referencing it is left in
// place for the consistency guard to correct; the category itself is never
// deleted.
func (c *Catalog) RetireCategory(code string) error {
	code = normalizeCode(code)

	c.mu.Lock()
	defer c.mu.Unlock()
	cat, ok := c.categories[code]
	if !ok {
		return pkgerrors.TaxonomyError(pkgerrors.CodeUnknownCategory, code, "")
	}
	cat.Active = false
	c.categories[code] = cat
	c.publishLocked()
	return nil
}

// RetireSubcategory deactivates a subcategory.
func (c *Catalog) RetireSubcategory(code string) error {
	code = normalizeCode(code)

	c.mu.Lock()
	defer c.mu.Unlock()
	sub, ok := c.subcategories[code]
	if !ok {
		return pkgerrors.TaxonomyError(pkgerrors.CodeUnknownSubcategory, "", code)
	}
	sub.Active = false
	c.subcategories[code] = sub
	c.publishLocked()
	return nil
}

// publishLocked rebuilds the immutable snapshot. Caller holds c.mu.
func (c *Catalog) publishLocked() {
	c.version++

	categories := make(map[string]Category, len(c.categories))
	for k, v := range c.categories {
		categories[k] = v
	}

	subcategories := make(map[string]Subcategory, len(c.subcategories))
	byCategory := make(map[string][]Subcategory)
	for k, v := range c.subcategories {
		subcategories[k] = v
		byCategory[v.CategoryCode] = append(byCategory[v.CategoryCode], v)
	}
	for _, subs := range byCategory {
		sort.Slice(subs, func(i, j int) bool { return subs[i].DisplayOrder < subs[j].DisplayOrder })
	}

	merchants := make([]MerchantMapping, len(c.merchants))
	copy(merchants, c.merchants)

	c.current = &Snapshot{
		Version:       c.version,
		categories:    categories,
		subcategories: subcategories,
		byCategory:    byCategory,
		merchants:     merchants,
	}
}

// Category looks up a category by code, active or not.
func (s *Snapshot) Category(code string) (Category, bool) {
	cat, ok := s.categories[normalizeCode(code)]
	return cat, ok
}

// Subcategory looks up a subcategory by code, active or not.
func (s *Snapshot) Subcategory(code string) (Subcategory, bool) {
	sub, ok := s.subcategories[normalizeCode(code)]
	return sub, ok
}

// HasActiveCategory reports whether code names an active category.
func (s *Snapshot) HasActiveCategory(code string) bool {
	cat, ok := s.categories[normalizeCode(code)]
	return ok && cat.Active
}

// HasActiveSubcategory reports whether code names an active subcategory.
func (s *Snapshot) HasActiveSubcategory(code string) bool {
	sub, ok := s.subcategories[normalizeCode(code)]
	return ok && sub.Active
}

// Belongs reports whether subcategory subCode is declared under catCode.
func (s *Snapshot) Belongs(subCode, catCode string) bool {
	sub, ok := s.subcategories[normalizeCode(subCode)]
	return ok && sub.CategoryCode == normalizeCode(catCode)
}

// DefaultSubcategory returns the default subcategory code declared for a
// category, or "" when none is declared or the default itself is inactive.
func (s *Snapshot) DefaultSubcategory(catCode string) string {
	cat, ok := s.categories[normalizeCode(catCode)]
	if !ok || cat.DefaultSubcategory == "" {
		return ""
	}
	if !s.HasActiveSubcategory(cat.DefaultSubcategory) {
		return ""
	}
	return cat.DefaultSubcategory
}

// TypeOf returns the transaction-type class of a category.
func (s *Snapshot) TypeOf(catCode string) (models.TransactionType, bool) {
	cat, ok := s.categories[normalizeCode(catCode)]
	if !ok {
		return "", false
	}
	return cat.Type, true
}

// Merchants returns the curated merchant reference table.
func (s *Snapshot) Merchants() []MerchantMapping {
	return s.merchants
}

// Categories returns all categories ordered by display order then code.
func (s *Snapshot) Categories() []Category {
	out := make([]Category, 0, len(s.categories))
	for _, cat := range s.categories {
		out = append(out, cat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// SubcategoriesOf returns the subcategories declared under a category.
func (s *Snapshot) SubcategoriesOf(catCode string) []Subcategory {
	return s.byCategory[normalizeCode(catCode)]
}

// ValidateAssignment checks that catCode is an active category and that
// subCode, when non-empty, is an active subcategory belonging to it.
func (s *Snapshot) ValidateAssignment(catCode, subCode string) error {
	if !s.HasActiveCategory(catCode) {
		return pkgerrors.TaxonomyError(pkgerrors.CodeUnknownCategory, catCode, subCode)
	}
	if subCode == "" {
		return nil
	}
	if !s.HasActiveSubcategory(subCode) {
		return pkgerrors.TaxonomyError(pkgerrors.CodeUnknownSubcategory, catCode, subCode)
	}
	if !s.Belongs(subCode, catCode) {
		return pkgerrors.TaxonomyError(pkgerrors.CodeSubcategoryMismatch, catCode, subCode)
	}
	return nil
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// FallbackCategory is the safe generic category the guard reassigns
// orphaned classifications to. It must exist in every seeded catalog.
const FallbackCategory = "uncategorized"

// TransferOutCategory and TransferInCategory are the terminal fallback
// targets of the matching cascade. BuildCatalog rejects seeds that lack
// them, so classifications always land inside the catalog.
const (
	TransferOutCategory = "transfer_out"
	TransferInCategory  = "transfer_in"
)

func (s *Snapshot) String() string {
	return fmt.Sprintf("taxonomy snapshot v%d (%d categories, %d subcategories, %d merchants)",
		s.Version, len(s.categories), len(s.subcategories), len(s.merchants))
}
