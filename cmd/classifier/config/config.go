// Package config assembles component configurations for the classifier CLI.
package config

import (
	"fmt"

	"github.com/magnatepoint/mvp1-sub001/internal/engine"
	"github.com/magnatepoint/mvp1-sub001/internal/ingest"
	"github.com/magnatepoint/mvp1-sub001/internal/reporter"
	"github.com/magnatepoint/mvp1-sub001/internal/rules"
	"github.com/magnatepoint/mvp1-sub001/internal/taxonomy"
)

// LoadCatalog loads the taxonomy catalog from a seed file, or the built-in
// default catalog when no path is given.
func LoadCatalog(path string) (*taxonomy.Catalog, error) {
	if path == "" {
		return taxonomy.DefaultCatalog(), nil
	}
	catalog, err := taxonomy.LoadSeedFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load taxonomy seed file: %w", err)
	}
	return catalog, nil
}

// LoadRules loads the rule repository from a seed file, or the built-in
// default rule set when no path is given.
func LoadRules(path string) (*rules.Repository, error) {
	if path == "" {
		return rules.DefaultRepository(), nil
	}
	repo, err := rules.LoadSeedFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules seed file: %w", err)
	}
	return repo, nil
}

// CreateIngestConfig builds the statement CSV reader configuration.
func CreateIngestConfig(bankCode string, delimiter string, noHeader bool) (*ingest.Config, error) {
	cfg := ingest.DefaultConfig()
	cfg.DefaultBankCode = bankCode
	cfg.HasHeader = !noHeader

	if delimiter != "" {
		runes := []rune(delimiter)
		if len(runes) != 1 {
			return nil, fmt.Errorf("delimiter must be a single character, got %q", delimiter)
		}
		cfg.Delimiter = runes[0]
	}

	return cfg, nil
}

// CreateEngineConfig builds the classification service configuration.
func CreateEngineConfig(workers int, reviewThreshold float64) *engine.Config {
	cfg := engine.DefaultConfig()
	if workers > 0 {
		cfg.MaxConcurrentWorkers = workers
	}
	if reviewThreshold > 0 {
		cfg.ReviewThreshold = reviewThreshold
	}
	return cfg
}

// CreateReportConfig builds the report generator configuration.
func CreateReportConfig(format string, includeTransactions bool, reviewThreshold float64) (*reporter.ReportConfig, error) {
	cfg := reporter.DefaultReportConfig()
	cfg.Format = reporter.OutputFormat(format)
	cfg.IncludeTransactions = includeTransactions
	if reviewThreshold > 0 {
		cfg.ReviewThreshold = reviewThreshold
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
