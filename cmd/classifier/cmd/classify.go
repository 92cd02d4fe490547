package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/magnatepoint/mvp1-sub001/cmd/classifier/config"
	"github.com/magnatepoint/mvp1-sub001/internal/engine"
	"github.com/magnatepoint/mvp1-sub001/internal/ingest"
	"github.com/magnatepoint/mvp1-sub001/internal/parser"
	"github.com/magnatepoint/mvp1-sub001/internal/reporter"
	"github.com/magnatepoint/mvp1-sub001/internal/store"
)

// Flags for the classify command
var (
	statementFiles  []string
	bankCode        string
	csvDelimiter    string
	noHeader        bool
	taxonomyFile    string
	rulesFile       string
	outputFormat    string
	outputFile      string
	workers         int
	reviewThreshold float64
	includeAll      bool
	showProgress    bool
)

// classifyCmd represents the classify command
var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Parse and categorize bank statement transactions",
	Long: `Classify ingests one or more bank statement CSV files, parses each
transaction description using bank-specific format strategies, and assigns
a category through the matching cascade. Duplicate rows are detected by
content fingerprint and skipped.

Examples:
  # Basic classification with the built-in taxonomy and rules
  classifier classify --statement-files statements.csv

  # Multiple files with a bank hint and custom rule catalog
  classifier classify --statement-files hdfc1.csv,hdfc2.csv \
    --bank-code hdfc --rules-file rules.yaml

  # JSON report to a file
  classifier classify --statement-files stmt.csv \
    --output-format json --output-file report.json

  # With progress indicators
  classifier classify --statement-files stmt.csv --progress`,

	PreRunE: validateClassifyFlags,
	RunE:    runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	// Required flags
	classifyCmd.Flags().StringSliceVarP(&statementFiles, "statement-files", "s", []string{}, "comma-separated paths to statement CSV files (required)")

	// Input flags
	classifyCmd.Flags().StringVarP(&bankCode, "bank-code", "b", "", "bank code for files lacking a bank column (hdfc, icici, sbi)")
	classifyCmd.Flags().StringVar(&csvDelimiter, "delimiter", ",", "CSV field delimiter")
	classifyCmd.Flags().BoolVar(&noHeader, "no-header", false, "treat files as headerless positional CSV")

	// Catalog flags
	classifyCmd.Flags().StringVar(&taxonomyFile, "taxonomy-file", "", "taxonomy seed file (YAML, default: built-in)")
	classifyCmd.Flags().StringVar(&rulesFile, "rules-file", "", "rule catalog seed file (YAML, default: built-in)")

	// Output flags
	classifyCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	classifyCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")
	classifyCmd.Flags().BoolVar(&includeAll, "include-all", true, "include every transaction in the report")

	// Processing flags
	classifyCmd.Flags().IntVarP(&workers, "workers", "w", 4, "classification worker count")
	classifyCmd.Flags().Float64Var(&reviewThreshold, "review-threshold", 0.50, "flag classifications below this confidence for review")
	classifyCmd.Flags().BoolVar(&showProgress, "progress", false, "show progress indicators")

	classifyCmd.MarkFlagRequired("statement-files")

	viper.BindPFlag("statement-files", classifyCmd.Flags().Lookup("statement-files"))
	viper.BindPFlag("bank-code", classifyCmd.Flags().Lookup("bank-code"))
	viper.BindPFlag("delimiter", classifyCmd.Flags().Lookup("delimiter"))
	viper.BindPFlag("no-header", classifyCmd.Flags().Lookup("no-header"))
	viper.BindPFlag("taxonomy-file", classifyCmd.Flags().Lookup("taxonomy-file"))
	viper.BindPFlag("rules-file", classifyCmd.Flags().Lookup("rules-file"))
	viper.BindPFlag("output-format", classifyCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", classifyCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("workers", classifyCmd.Flags().Lookup("workers"))
	viper.BindPFlag("review-threshold", classifyCmd.Flags().Lookup("review-threshold"))
	viper.BindPFlag("progress", classifyCmd.Flags().Lookup("progress"))
}

func validateClassifyFlags(cmd *cobra.Command, args []string) error {
	// Viper values allow override from config file
	statementFiles = viper.GetStringSlice("statement-files")
	bankCode = viper.GetString("bank-code")
	csvDelimiter = viper.GetString("delimiter")
	noHeader = viper.GetBool("no-header")
	taxonomyFile = viper.GetString("taxonomy-file")
	rulesFile = viper.GetString("rules-file")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	workers = viper.GetInt("workers")
	reviewThreshold = viper.GetFloat64("review-threshold")
	showProgress = viper.GetBool("progress")

	if len(statementFiles) == 0 {
		return fmt.Errorf("at least one statement-file is required")
	}

	for i, file := range statementFiles {
		if err := validateFileExists(file, fmt.Sprintf("statement file %d", i+1)); err != nil {
			return err
		}
	}
	if taxonomyFile != "" {
		if err := validateFileExists(taxonomyFile, "taxonomy seed file"); err != nil {
			return err
		}
	}
	if rulesFile != "" {
		if err := validateFileExists(rulesFile, "rules seed file"); err != nil {
			return err
		}
	}

	if !reporter.OutputFormat(outputFormat).IsValid() {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	if workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if reviewThreshold < 0 || reviewThreshold > 1 {
		return fmt.Errorf("review threshold must be between 0.0 and 1.0")
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	errorHandler := NewCLIErrorHandler()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting classification...\n")
		fmt.Fprintf(os.Stderr, "Statement files: %s\n", strings.Join(statementFiles, ", "))
		fmt.Fprintf(os.Stderr, "Output format: %s\n", outputFormat)
	}

	catalog, err := config.LoadCatalog(taxonomyFile)
	if err != nil {
		return errorHandler.Exit(err)
	}
	ruleRepo, err := config.LoadRules(rulesFile)
	if err != nil {
		return errorHandler.Exit(err)
	}
	ingestConfig, err := config.CreateIngestConfig(bankCode, csvDelimiter, noHeader)
	if err != nil {
		return errorHandler.Exit(err)
	}

	st := store.New()
	reader, err := ingest.NewReader(ingestConfig, st)
	if err != nil {
		return errorHandler.Exit(err)
	}

	var totalDuplicates, totalFailed int
	for _, file := range statementFiles {
		result, err := reader.IngestFile(file)
		if err != nil {
			return errorHandler.Exit(err)
		}
		totalDuplicates += result.Duplicates
		totalFailed += result.Failed

		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Ingested %s: %d rows, %d duplicates, %d failed\n",
				file, result.Ingested, result.Duplicates, result.Failed)
		}
	}

	service, err := engine.NewService(st, parser.New(), ruleRepo, catalog,
		config.CreateEngineConfig(workers, reviewThreshold))
	if err != nil {
		return errorHandler.Exit(err)
	}

	if showProgress {
		service.AddProgressCallback(func(processed, total int) {
			fmt.Fprintf(os.Stderr, "\rClassifying [%d/%d]", processed, total)
		})
	}

	summary, err := service.ClassifyAll(ctx)
	if err != nil {
		return errorHandler.Exit(err)
	}
	if showProgress {
		fmt.Fprintf(os.Stderr, "\n")
	}

	reportConfig, err := config.CreateReportConfig(outputFormat, includeAll, reviewThreshold)
	if err != nil {
		return errorHandler.Exit(err)
	}
	generator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return errorHandler.Exit(err)
	}

	writer := os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return errorHandler.Exit(fmt.Errorf("failed to create output file: %w", err))
		}
		defer f.Close()
		writer = f
	}

	report := generator.Build(summary, service.EffectiveViews())
	if err := generator.Generate(report, writer); err != nil {
		return errorHandler.Exit(err)
	}

	if totalDuplicates > 0 || totalFailed > 0 {
		fmt.Fprintf(os.Stderr, "Skipped %d duplicate and %d failed rows during ingestion\n",
			totalDuplicates, totalFailed)
	}

	return nil
}
