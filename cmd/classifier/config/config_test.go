package config

import (
	"testing"

	"github.com/magnatepoint/mvp1-sub001/internal/reporter"
)

func TestLoadCatalogDefault(t *testing.T) {
	catalog, err := LoadCatalog("")
	if err != nil {
		t.Fatalf("failed to load default catalog: %v", err)
	}

	snapshot := catalog.Snapshot()
	if !snapshot.HasActiveCategory("groceries") {
		t.Error("default catalog should carry the groceries category")
	}
	if !snapshot.HasActiveCategory("uncategorized") {
		t.Error("default catalog must carry the fallback category")
	}
}

func TestLoadCatalogFromSeedFile(t *testing.T) {
	catalog, err := LoadCatalog("../../../testdata/taxonomy.yaml")
	if err != nil {
		t.Fatalf("failed to load taxonomy seed: %v", err)
	}

	if !catalog.Snapshot().HasActiveCategory("dining") {
		t.Error("seeded catalog should carry the dining category")
	}
}

func TestLoadCatalogMissingFile(t *testing.T) {
	if _, err := LoadCatalog("/nonexistent/taxonomy.yaml"); err == nil {
		t.Error("expected error for missing seed file")
	}
}

func TestLoadRulesDefault(t *testing.T) {
	repo, err := LoadRules("")
	if err != nil {
		t.Fatalf("failed to load default rules: %v", err)
	}

	if len(repo.All()) == 0 {
		t.Error("default repository should not be empty")
	}
}

func TestLoadRulesFromSeedFile(t *testing.T) {
	repo, err := LoadRules("../../../testdata/rules.yaml")
	if err != nil {
		t.Fatalf("failed to load rules seed: %v", err)
	}

	if got := len(repo.All()); got != 3 {
		t.Errorf("expected 3 seeded rules, got %d", got)
	}
}

func TestCreateIngestConfig(t *testing.T) {
	cfg, err := CreateIngestConfig("HDFC", "", false)
	if err != nil {
		t.Fatalf("failed to create ingest config: %v", err)
	}

	if cfg.DefaultBankCode != "HDFC" {
		t.Errorf("expected DefaultBankCode 'HDFC', got '%s'", cfg.DefaultBankCode)
	}
	if !cfg.HasHeader {
		t.Error("expected HasHeader to be true")
	}
	if cfg.Delimiter != ',' {
		t.Errorf("expected Delimiter ',', got '%c'", cfg.Delimiter)
	}
	if len(cfg.ColumnAliases) == 0 {
		t.Error("expected column aliases to be set")
	}
	if cfg.ColumnAliases["narration"] != "description" {
		t.Error("expected 'narration' alias to map to 'description'")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("ingest config should be valid: %v", err)
	}
}

func TestCreateIngestConfigDelimiter(t *testing.T) {
	tests := []struct {
		name        string
		delimiter   string
		expectError bool
	}{
		{"semicolon", ";", false},
		{"tab", "\t", false},
		{"empty keeps default", "", false},
		{"multi-character", "ab", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := CreateIngestConfig("", tt.delimiter, false)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error for delimiter %q", tt.delimiter)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.delimiter != "" && cfg.Delimiter != []rune(tt.delimiter)[0] {
				t.Errorf("expected delimiter %q, got %q", tt.delimiter, cfg.Delimiter)
			}
		})
	}
}

func TestCreateEngineConfig(t *testing.T) {
	tests := []struct {
		name            string
		workers         int
		reviewThreshold float64
		wantWorkers     int
		wantThreshold   float64
	}{
		{"explicit values", 8, 0.65, 8, 0.65},
		{"zero keeps defaults", 0, 0, 4, 0.50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := CreateEngineConfig(tt.workers, tt.reviewThreshold)

			if cfg.MaxConcurrentWorkers != tt.wantWorkers {
				t.Errorf("expected %d workers, got %d", tt.wantWorkers, cfg.MaxConcurrentWorkers)
			}
			if cfg.ReviewThreshold != tt.wantThreshold {
				t.Errorf("expected threshold %f, got %f", tt.wantThreshold, cfg.ReviewThreshold)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("engine config should be valid: %v", err)
			}
		})
	}
}

func TestCreateReportConfig(t *testing.T) {
	tests := []struct {
		name         string
		format       string
		expectedType reporter.OutputFormat
	}{
		{"console format", "console", reporter.FormatConsole},
		{"json format", "json", reporter.FormatJSON},
		{"csv format", "csv", reporter.FormatCSV},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := CreateReportConfig(tt.format, true, 0.5)
			if err != nil {
				t.Fatalf("failed to create report config: %v", err)
			}

			if cfg.Format != tt.expectedType {
				t.Errorf("expected Format %s, got %s", tt.expectedType, cfg.Format)
			}
			if !cfg.IncludeTransactions {
				t.Error("expected IncludeTransactions to be true")
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("report config should be valid: %v", err)
			}
		})
	}
}

func TestCreateReportConfigInvalidFormat(t *testing.T) {
	if _, err := CreateReportConfig("xml", false, 0.5); err == nil {
		t.Error("expected error for unsupported format")
	}
}
