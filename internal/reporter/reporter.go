// Package reporter generates classification run reports in various formats.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/magnatepoint/mvp1-sub001/internal/engine"
	"github.com/magnatepoint/mvp1-sub001/internal/models"
)

// OutputFormat identifies a supported report format.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported.
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation.
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Detail level options
	IncludeTransactions bool `json:"include_transactions"`
	IncludeReviewQueue  bool `json:"include_review_queue"`
	IncludeStrategies   bool `json:"include_strategies"`

	// ReviewThreshold flags effective views below this confidence.
	ReviewThreshold float64 `json:"review_threshold"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration.
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:              FormatConsole,
		IncludeTransactions: true,
		IncludeReviewQueue:  true,
		IncludeStrategies:   true,
		ReviewThreshold:     0.50,
		CSVDelimiter:        ',',
		CSVHeaders:          true,
	}
}

// Validate validates the report configuration.
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.ReviewThreshold < 0 || c.ReviewThreshold > 1 {
		return fmt.Errorf("review threshold must be between 0 and 1, got %f", c.ReviewThreshold)
	}
	return nil
}

// Report is the full output of one classification run.
type Report struct {
	Summary     *engine.RunSummary     `json:"summary,omitempty"`
	Views       []models.EffectiveView `json:"transactions,omitempty"`
	ReviewQueue []models.EffectiveView `json:"review_queue,omitempty"`
	GeneratedAt time.Time              `json:"generated_at"`
}

// ReportGenerator renders reports in the configured format.
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a report generator with the given configuration.
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	return &ReportGenerator{config: config}, nil
}

// Build assembles a Report from a run summary and resolved views.
func (rg *ReportGenerator) Build(summary *engine.RunSummary, views []models.EffectiveView) *Report {
	report := &Report{
		Summary:     summary,
		GeneratedAt: time.Now(),
	}
	if rg.config.IncludeTransactions {
		report.Views = views
	}
	if rg.config.IncludeReviewQueue {
		report.ReviewQueue = rg.reviewQueue(views)
	}
	return report
}

// reviewQueue collects views an operator should look at: low-confidence
// results and fallbacks, lowest confidence first. Overridden views are
// excluded since a human has already decided.
func (rg *ReportGenerator) reviewQueue(views []models.EffectiveView) []models.EffectiveView {
	var queue []models.EffectiveView
	for _, v := range views {
		if v.Overridden {
			continue
		}
		if v.Confidence < rg.config.ReviewThreshold || v.Strategy == models.StrategyFallback {
			queue = append(queue, v)
		}
	}
	sort.SliceStable(queue, func(i, j int) bool {
		return queue[i].Confidence < queue[j].Confidence
	})
	return queue
}

// Generate writes the report to the provided writer.
func (rg *ReportGenerator) Generate(report *Report, writer io.Writer) error {
	if report == nil {
		return fmt.Errorf("report cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(report, writer)
	case FormatJSON:
		return rg.generateJSONReport(report, writer)
	case FormatCSV:
		return rg.generateCSVReport(report, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func (rg *ReportGenerator) generateConsoleReport(report *Report, writer io.Writer) error {
	fmt.Fprintf(writer, "CLASSIFICATION REPORT\n")
	fmt.Fprintf(writer, "Generated: %s\n\n", report.GeneratedAt.Format(time.RFC3339))

	if report.Summary != nil {
		s := report.Summary
		fmt.Fprintf(writer, "=== SUMMARY ===\n")
		fmt.Fprintf(writer, "%-28s %d\n", "Total Transactions:", s.TotalTransactions)
		fmt.Fprintf(writer, "%-28s %d\n", "Classified:", s.Classified)
		fmt.Fprintf(writer, "%-28s %d (%.1f%%)\n", "Fallbacks:", s.Fallbacks,
			percentage(s.Fallbacks, s.Classified))
		fmt.Fprintf(writer, "%-28s %d\n", "Needs Review:", s.NeedsReview)
		fmt.Fprintf(writer, "%-28s %d\n", "Rule Snapshot Version:", s.RuleSnapshotVersion)
		fmt.Fprintf(writer, "%-28s %d\n", "Catalog Snapshot Version:", s.CatalogSnapshotVersion)
		fmt.Fprintf(writer, "%-28s %v\n\n", "Duration:", s.Duration)

		if rg.config.IncludeStrategies && len(s.ByStrategy) > 0 {
			fmt.Fprintf(writer, "=== MATCH STRATEGY BREAKDOWN ===\n")
			for _, strategy := range sortedKeys(s.ByStrategy) {
				count := s.ByStrategy[strategy]
				fmt.Fprintf(writer, "%-28s %d (%.1f%%)\n", strategy+":", count,
					percentage(count, s.Classified))
			}
			fmt.Fprintf(writer, "\n")
		}
	}

	if rg.config.IncludeReviewQueue && len(report.ReviewQueue) > 0 {
		fmt.Fprintf(writer, "=== REVIEW QUEUE (%d) ===\n", len(report.ReviewQueue))
		fmt.Fprintf(writer, "%-38s %-12s %-16s %-12s %s\n",
			"Transaction", "Amount", "Category", "Confidence", "Strategy")
		for _, v := range report.ReviewQueue {
			fmt.Fprintf(writer, "%-38s %-12s %-16s %-12.2f %s\n",
				v.TransactionID, v.Amount.StringFixed(2), v.CategoryCode, v.Confidence, v.Strategy)
		}
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeTransactions && len(report.Views) > 0 {
		fmt.Fprintf(writer, "=== TRANSACTIONS (%d) ===\n", len(report.Views))
		fmt.Fprintf(writer, "%-38s %-12s %-10s %-16s %-16s %s\n",
			"Transaction", "Amount", "Channel", "Category", "Subcategory", "Overridden")
		for _, v := range report.Views {
			fmt.Fprintf(writer, "%-38s %-12s %-10s %-16s %-16s %t\n",
				v.TransactionID, v.Amount.StringFixed(2), v.Channel,
				v.CategoryCode, v.SubcategoryCode, v.Overridden)
		}
	}

	return nil
}

func (rg *ReportGenerator) generateJSONReport(report *Report, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func (rg *ReportGenerator) generateCSVReport(report *Report, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		headers := []string{
			"Transaction_ID", "Owner_ID", "Date", "Amount", "Direction",
			"Channel", "Category", "Subcategory", "Transaction_Type",
			"Merchant", "Confidence", "Strategy", "Overridden",
		}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, v := range report.Views {
		record := []string{
			v.TransactionID,
			v.OwnerID,
			v.Date.Format("2006-01-02"),
			v.Amount.StringFixed(2),
			string(v.Direction),
			string(v.Channel),
			v.CategoryCode,
			v.SubcategoryCode,
			string(v.Type),
			v.MerchantName,
			fmt.Sprintf("%.2f", v.Confidence),
			string(v.Strategy),
			fmt.Sprintf("%t", v.Overridden),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record for %s: %w", v.TransactionID, err)
		}
	}

	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
