package taxonomy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/magnatepoint/mvp1-sub001/internal/models"
	pkgerrors "github.com/magnatepoint/mvp1-sub001/pkg/errors"
)

// SeedFile is the YAML layout of a taxonomy seed file.
type SeedFile struct {
	Categories    []Category        `yaml:"categories"`
	Subcategories []Subcategory     `yaml:"subcategories"`
	Merchants     []MerchantMapping `yaml:"merchants"`
}

// LoadSeedFile reads a YAML seed file and applies it to a fresh catalog.
func LoadSeedFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading taxonomy seed %s: %w", path, err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing taxonomy seed %s: %w", path, err)
	}

	return BuildCatalog(seed)
}

// BuildCatalog applies a seed to a new catalog, categories first so
// subcategory parent checks pass.
func BuildCatalog(seed SeedFile) (*Catalog, error) {
	catalog := NewCatalog()

	for _, cat := range seed.Categories {
		if err := catalog.AddCategory(cat); err != nil {
			return nil, fmt.Errorf("seeding category %s: %w", cat.Code, err)
		}
	}
	for _, sub := range seed.Subcategories {
		if err := catalog.AddSubcategory(sub); err != nil {
			return nil, fmt.Errorf("seeding subcategory %s: %w", sub.Code, err)
		}
	}
	for _, m := range seed.Merchants {
		if err := catalog.AddMerchant(m); err != nil {
			return nil, fmt.Errorf("seeding merchant %s: %w", m.Name, err)
		}
	}

	// The cascade's terminal fallback and the consistency guard target
	// these categories unconditionally; a catalog without them would let
	// classifications escape the catalog entirely.
	snapshot := catalog.Snapshot()
	for _, required := range []string{TransferOutCategory, TransferInCategory, FallbackCategory} {
		if !snapshot.HasActiveCategory(required) {
			return nil, pkgerrors.TaxonomyError(pkgerrors.CodeUnknownCategory, required, "").
				WithSuggestion("seed files must define the active categories " +
					TransferOutCategory + ", " + TransferInCategory + " and " + FallbackCategory)
		}
	}

	return catalog, nil
}

// DefaultCatalog returns the built-in catalog used when no seed file is
// configured. The transfer and uncategorized categories are load-bearing:
// the cascade's terminal fallback and the consistency guard both depend on
// them existing.
func DefaultCatalog() *Catalog {
	seed := SeedFile{
		Categories: []Category{
			{Code: "salary", Name: "Salary", Type: models.TypeIncome, DisplayOrder: 10, Active: true},
			{Code: "interest", Name: "Interest", Type: models.TypeIncome, DisplayOrder: 20, Active: true},
			{Code: "transfer_in", Name: "Transfer In", Type: models.TypeIncome, DisplayOrder: 30, Active: true, DefaultSubcategory: "other_in"},
			{Code: "groceries", Name: "Groceries", Type: models.TypeNeeds, DisplayOrder: 40, Active: true, DefaultSubcategory: "supermarket"},
			{Code: "utilities", Name: "Utilities", Type: models.TypeNeeds, DisplayOrder: 50, Active: true},
			{Code: "rent", Name: "Rent", Type: models.TypeNeeds, DisplayOrder: 60, Active: true},
			{Code: "fuel", Name: "Fuel", Type: models.TypeNeeds, DisplayOrder: 70, Active: true},
			{Code: "dining", Name: "Dining Out", Type: models.TypeWants, DisplayOrder: 80, Active: true, DefaultSubcategory: "restaurant"},
			{Code: "shopping", Name: "Shopping", Type: models.TypeWants, DisplayOrder: 90, Active: true, DefaultSubcategory: "online"},
			{Code: "travel", Name: "Travel", Type: models.TypeWants, DisplayOrder: 100, Active: true},
			{Code: "entertainment", Name: "Entertainment", Type: models.TypeWants, DisplayOrder: 110, Active: true},
			{Code: "investments", Name: "Investments", Type: models.TypeAssets, DisplayOrder: 120, Active: true},
			{Code: "emi", Name: "Loan EMI", Type: models.TypeDebt, DisplayOrder: 130, Active: true},
			{Code: "insurance", Name: "Insurance", Type: models.TypeProtection, DisplayOrder: 140, Active: true},
			{Code: "transfer_out", Name: "Transfer Out", Type: models.TypeWants, DisplayOrder: 150, Active: true, DefaultSubcategory: "other_out"},
			{Code: FallbackCategory, Name: "Uncategorized", Type: models.TypeWants, DisplayOrder: 160, Active: true},
		},
		Subcategories: []Subcategory{
			{Code: "supermarket", CategoryCode: "groceries", Name: "Supermarket", DisplayOrder: 10, Active: true},
			{Code: "online_groceries", CategoryCode: "groceries", Name: "Online Groceries", DisplayOrder: 20, Active: true},
			{Code: "restaurant", CategoryCode: "dining", Name: "Restaurant", DisplayOrder: 10, Active: true},
			{Code: "food_delivery", CategoryCode: "dining", Name: "Food Delivery", DisplayOrder: 20, Active: true},
			{Code: "online", CategoryCode: "shopping", Name: "Online", DisplayOrder: 10, Active: true},
			{Code: "in_store", CategoryCode: "shopping", Name: "In Store", DisplayOrder: 20, Active: true},
			{Code: "electricity", CategoryCode: "utilities", Name: "Electricity", DisplayOrder: 10, Active: true},
			{Code: "mobile", CategoryCode: "utilities", Name: "Mobile & Internet", DisplayOrder: 20, Active: true},
			{Code: "flights", CategoryCode: "travel", Name: "Flights", DisplayOrder: 10, Active: true},
			{Code: "cab", CategoryCode: "travel", Name: "Cab & Rideshare", DisplayOrder: 20, Active: true},
			{Code: "streaming", CategoryCode: "entertainment", Name: "Streaming", DisplayOrder: 10, Active: true},
			{Code: "mutual_funds", CategoryCode: "investments", Name: "Mutual Funds", DisplayOrder: 10, Active: true},
			{Code: "wallet", CategoryCode: "transfer_out", Name: "Wallet & Peer", DisplayOrder: 10, Active: true},
			{Code: "other_out", CategoryCode: "transfer_out", Name: "Other", DisplayOrder: 20, Active: true},
			{Code: "other_in", CategoryCode: "transfer_in", Name: "Other", DisplayOrder: 10, Active: true},
		},
		Merchants: []MerchantMapping{
			{Name: "zomato", CategoryCode: "dining", SubcategoryCode: "food_delivery"},
			{Name: "swiggy", CategoryCode: "dining", SubcategoryCode: "food_delivery"},
			{Name: "bigbasket", CategoryCode: "groceries", SubcategoryCode: "online_groceries"},
			{Name: "amazon", CategoryCode: "shopping", SubcategoryCode: "online"},
			{Name: "flipkart", CategoryCode: "shopping", SubcategoryCode: "online"},
			{Name: "netflix", CategoryCode: "entertainment", SubcategoryCode: "streaming"},
			{Name: "uber", CategoryCode: "travel", SubcategoryCode: "cab"},
			{Name: "ola", CategoryCode: "travel", SubcategoryCode: "cab"},
			{Name: "irctc", CategoryCode: "travel"},
			{Name: "indian oil", CategoryCode: "fuel"},
		},
	}

	catalog, err := BuildCatalog(seed)
	if err != nil {
		// The built-in seed is fixed data; a failure here is a programming error.
		panic(fmt.Sprintf("building default catalog: %v", err))
	}
	return catalog
}
