package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML layout of a rule seed file.
type SeedFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadSeedFile reads a YAML rule seed and loads it into a fresh repository.
func LoadSeedFile(path string) (*Repository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule seed %s: %w", path, err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing rule seed %s: %w", path, err)
	}

	repo := NewRepository()
	for i, rule := range seed.Rules {
		if rule.Provenance == "" {
			rule.Provenance = ProvenanceSeed
		}
		if _, err := repo.Add(rule); err != nil {
			return nil, fmt.Errorf("seeding rule %d (%s): %w", i, rule.Pattern, err)
		}
	}
	return repo, nil
}

// SaveSeedFile writes the repository's full rule set back to a YAML seed,
// preserving deactivations and notes applied since loading.
func SaveSeedFile(repo *Repository, path string) error {
	seed := SeedFile{Rules: repo.All()}

	data, err := yaml.Marshal(&seed)
	if err != nil {
		return fmt.Errorf("encoding rule seed: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing rule seed %s: %w", path, err)
	}
	return nil
}

// DefaultRepository returns the built-in starter rule set used when no
// seed file is configured.
func DefaultRepository() *Repository {
	repo := NewRepository()

	seed := []Rule{
		{Strategy: StrategyDescriptionPattern, Pattern: `\binterest\b`, CategoryCode: "interest", Priority: 80, Confidence: 0.95, Active: true, Provenance: ProvenanceSeed},
		{Strategy: StrategyDescriptionPattern, Pattern: `\bsalary\b|\bsal\b`, CategoryCode: "salary", Priority: 90, Confidence: 0.95, Active: true, Provenance: ProvenanceSeed},
		{Strategy: StrategyDescriptionPattern, Pattern: `\bemi\b|\bloan\b`, CategoryCode: "emi", Priority: 70, Confidence: 0.9, Active: true, Provenance: ProvenanceSeed},
		{Strategy: StrategyDescriptionPattern, Pattern: `\binsurance\b|\blic\b`, CategoryCode: "insurance", Priority: 70, Confidence: 0.9, Active: true, Provenance: ProvenanceSeed},
		{Strategy: StrategyMerchantPattern, Pattern: `zomato|swiggy`, CategoryCode: "dining", SubcategoryCode: "food_delivery", MerchantName: "zomato", Priority: 60, Confidence: 0.9, Active: true, Provenance: ProvenanceSeed},
		{Strategy: StrategyMerchantPattern, Pattern: `\bbigbasket\b`, CategoryCode: "groceries", SubcategoryCode: "online_groceries", MerchantName: "bigbasket", Priority: 60, Confidence: 0.9, Active: true, Provenance: ProvenanceSeed},
		{Strategy: StrategyExactName, Pattern: "netflix", CategoryCode: "entertainment", SubcategoryCode: "streaming", MerchantName: "netflix", Priority: 50, Confidence: 0.95, Active: true, Provenance: ProvenanceSeed},
		{Strategy: StrategyKeyword, Keywords: []string{"electricity", "power bill", "bescom", "mseb"}, CategoryCode: "utilities", SubcategoryCode: "electricity", Priority: 40, Confidence: 0.85, Active: true, Provenance: ProvenanceSeed},
		{Strategy: StrategyKeyword, Keywords: []string{"petrol", "diesel", "fuel", "hpcl", "bpcl"}, CategoryCode: "fuel", Priority: 40, Confidence: 0.85, Active: true, Provenance: ProvenanceSeed},
		{Strategy: StrategyKeyword, Keywords: []string{"rent"}, CategoryCode: "rent", Priority: 30, Confidence: 0.8, Active: true, Provenance: ProvenanceSeed},
		{Strategy: StrategyKeyword, Keywords: []string{"mutual fund", "sip", "zerodha", "groww"}, CategoryCode: "investments", SubcategoryCode: "mutual_funds", Priority: 40, Confidence: 0.85, Active: true, Provenance: ProvenanceSeed},
	}

	for _, rule := range seed {
		if _, err := repo.Add(rule); err != nil {
			panic(fmt.Sprintf("building default rule set: %v", err))
		}
	}
	return repo
}
