// Package engine provides high-level orchestration for the classification
// pipeline.
//
// This package coordinates the complete workflow over stored transactions:
//   - Description parsing per bank strategy
//   - Rule and taxonomy snapshot binding
//   - Concurrent classification with progress tracking
//   - Atomic re-classification via shadow result sets
//   - Taxonomy mutations coupled with the consistency guard
//
// The Service is the main entry point. A classification run binds one rule
// snapshot and one taxonomy snapshot up front, so every transaction in the
// run is judged against the same state even while operators mutate rules
// or the catalog concurrently.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/magnatepoint/mvp1-sub001/internal/classifier"
	"github.com/magnatepoint/mvp1-sub001/internal/models"
	"github.com/magnatepoint/mvp1-sub001/internal/parser"
	"github.com/magnatepoint/mvp1-sub001/internal/resolver"
	"github.com/magnatepoint/mvp1-sub001/internal/rules"
	"github.com/magnatepoint/mvp1-sub001/internal/store"
	"github.com/magnatepoint/mvp1-sub001/internal/taxonomy"
	pkgerrors "github.com/magnatepoint/mvp1-sub001/pkg/errors"
	"github.com/magnatepoint/mvp1-sub001/pkg/logger"
)

// Config holds configuration options for the classification service.
type Config struct {
	// MaxConcurrentWorkers bounds the classification worker pool.
	MaxConcurrentWorkers int

	// ProgressInterval throttles progress log lines during long runs.
	ProgressInterval time.Duration

	// ReviewThreshold marks classifications below this confidence for
	// manual review in run summaries.
	ReviewThreshold float64
}

// DefaultConfig returns a default configuration for the service.
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrentWorkers: 4,
		ProgressInterval:     2 * time.Second,
		ReviewThreshold:      0.50,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.MaxConcurrentWorkers <= 0 {
		return pkgerrors.ConfigurationError(pkgerrors.CodeInvalidConfig,
			"max_concurrent_workers", c.MaxConcurrentWorkers, nil).
			WithSuggestion("Set max_concurrent_workers to a positive value")
	}
	if c.ReviewThreshold < 0 || c.ReviewThreshold > 1 {
		return pkgerrors.ConfigurationError(pkgerrors.CodeInvalidConfig,
			"review_threshold", c.ReviewThreshold, nil).
			WithSuggestion("Set review_threshold between 0.0 and 1.0")
	}
	return nil
}

// RunSummary describes the outcome of one classification run.
type RunSummary struct {
	TotalTransactions int            `json:"total_transactions"`
	Classified        int            `json:"classified"`
	Fallbacks         int            `json:"fallbacks"`
	NeedsReview       int            `json:"needs_review"`
	ByStrategy        map[string]int `json:"by_strategy"`

	RuleSnapshotVersion    int64         `json:"rule_snapshot_version"`
	CatalogSnapshotVersion int64         `json:"catalog_snapshot_version"`
	StartedAt              time.Time     `json:"started_at"`
	Duration               time.Duration `json:"duration"`
}

// ProgressCallback is invoked as a classification run advances.
type ProgressCallback func(processed, total int)

// Service coordinates parsing and classification over the store.
type Service struct {
	store   *store.Store
	parser  *parser.Parser
	rules   *rules.Repository
	catalog *taxonomy.Catalog
	guard   *taxonomy.Guard
	config  *Config
	logger  logger.Logger

	callbackMu sync.Mutex
	callbacks  []ProgressCallback
}

// NewService creates a classification service.
func NewService(
	st *store.Store,
	p *parser.Parser,
	ruleRepo *rules.Repository,
	catalog *taxonomy.Catalog,
	config *Config,
) (*Service, error) {
	if st == nil {
		return nil, pkgerrors.ValidationError(pkgerrors.CodeMissingField, "store", nil, nil)
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if p == nil {
		p = parser.New()
	}

	return &Service{
		store:   st,
		parser:  p,
		rules:   ruleRepo,
		catalog: catalog,
		guard:   taxonomy.NewGuard(catalog, ruleRepo, st),
		config:  config,
		logger:  logger.GetGlobalLogger().WithComponent("engine"),
	}, nil
}

// AddProgressCallback registers a callback for run progress.
func (s *Service) AddProgressCallback(cb ProgressCallback) {
	s.callbackMu.Lock()
	defer s.callbackMu.Unlock()
	s.callbacks = append(s.callbacks, cb)
}

func (s *Service) reportProgress(processed, total int) {
	s.callbackMu.Lock()
	callbacks := make([]ProgressCallback, len(s.callbacks))
	copy(callbacks, s.callbacks)
	s.callbackMu.Unlock()

	for _, cb := range callbacks {
		cb(processed, total)
	}
}

// ClassifyAll parses and classifies every stored transaction, writing the
// results into the store as they are produced.
func (s *Service) ClassifyAll(ctx context.Context) (*RunSummary, error) {
	return s.run(ctx, func(c models.Classification) error {
		return s.store.PutClassification(c)
	})
}

// Reclassify re-runs classification under the current snapshots and
// replaces the stored result set in one atomic swap, so readers never see
// a half-reclassified store. Manual overrides are untouched: they live in
// their own history and reassert themselves at read time.
func (s *Service) Reclassify(ctx context.Context) (*RunSummary, error) {
	staged := make(map[string]models.Classification)
	var stagedMu sync.Mutex

	summary, err := s.run(ctx, func(c models.Classification) error {
		stagedMu.Lock()
		staged[c.TransactionID] = c
		stagedMu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.store.SwapClassifications(staged)
	s.logger.WithFields(logger.Fields{
		"classifications": len(staged),
		"rule_version":    summary.RuleSnapshotVersion,
		"catalog_version": summary.CatalogSnapshotVersion,
	}).Info("Reclassification swap committed")

	return summary, nil
}

func (s *Service) run(ctx context.Context, sink func(models.Classification) error) (*RunSummary, error) {
	started := time.Now()

	ruleSnap := s.rules.Snapshot()
	catalogSnap := s.catalog.Snapshot()
	cascade := classifier.NewEngine(ruleSnap, catalogSnap)

	transactions := s.store.AllTransactions()
	summary := &RunSummary{
		TotalTransactions:      len(transactions),
		ByStrategy:             make(map[string]int),
		RuleSnapshotVersion:    ruleSnap.Version,
		CatalogSnapshotVersion: catalogSnap.Version,
		StartedAt:              started,
	}

	s.logger.WithFields(logger.Fields{
		"transactions":    len(transactions),
		"workers":         s.config.MaxConcurrentWorkers,
		"rule_version":    ruleSnap.Version,
		"catalog_version": catalogSnap.Version,
	}).Info("Classification run started")

	tracker := logger.NewProgressTracker("classify", int64(len(transactions)), s.config.ProgressInterval)

	jobs := make(chan models.Transaction)
	results := make(chan models.Classification, s.config.MaxConcurrentWorkers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.MaxConcurrentWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tx := range jobs {
				parsed := s.parser.Parse(tx.ID, tx.BankCode, tx.Description)
				s.store.PutParsed(parsed)
				results <- cascade.Classify(&tx, &parsed)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, tx := range transactions {
			select {
			case <-ctx.Done():
				return
			case jobs <- tx:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var sinkErr error
	processed := 0
	for classification := range results {
		if sinkErr == nil {
			sinkErr = sink(classification)
		}
		if sinkErr != nil {
			continue
		}

		processed++
		tracker.Increment()
		s.reportProgress(processed, len(transactions))

		summary.Classified++
		summary.ByStrategy[string(classification.Strategy)]++
		if classification.Strategy == models.StrategyFallback {
			summary.Fallbacks++
		}
		if classification.Confidence < s.config.ReviewThreshold {
			summary.NeedsReview++
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CategoryClassification, pkgerrors.CodeUnexpectedError,
			"classification run cancelled")
	}
	if sinkErr != nil {
		return nil, sinkErr
	}

	tracker.Complete()
	summary.Duration = time.Since(started)

	s.logger.WithFields(logger.Fields{
		"classified":   summary.Classified,
		"fallbacks":    summary.Fallbacks,
		"needs_review": summary.NeedsReview,
		"duration":     summary.Duration,
	}).Info("Classification run completed")

	return summary, nil
}

// TaxonomyMutation applies one change to the catalog, e.g. retiring a
// subcategory.
type TaxonomyMutation func(*taxonomy.Catalog) error

// ApplyTaxonomyChange applies a catalog mutation and immediately sweeps
// rules and stored classifications for references the change invalidated.
// Mutation and sweep run as one unit so referential integrity holds before
// any later classification run observes the new catalog version.
func (s *Service) ApplyTaxonomyChange(mutate TaxonomyMutation) (*taxonomy.SweepReport, error) {
	if err := mutate(s.catalog); err != nil {
		return nil, err
	}

	report, err := s.guard.Sweep()
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logger.Fields{
		"catalog_version":            report.CatalogVersion,
		"rules_deactivated":          report.RulesDeactivated,
		"rule_subcategories_cleared": report.RuleSubcategoriesCleared,
		"reassigned":                 report.ClassificationsReassigned,
	}).Info("Taxonomy change applied and swept")

	return report, nil
}

// EffectiveView resolves the read-time value for one transaction.
func (s *Service) EffectiveView(transactionID string) (models.EffectiveView, error) {
	tx, ok := s.store.GetTransaction(transactionID)
	if !ok {
		return models.EffectiveView{}, pkgerrors.New(pkgerrors.CategoryClassification,
			pkgerrors.CodeUnknownTransaction, "transaction "+transactionID+" not found")
	}

	var parsed *models.ParsedTransaction
	if p, ok := s.store.GetParsed(transactionID); ok {
		parsed = &p
	}
	var class *models.Classification
	if c, ok := s.store.GetClassification(transactionID); ok {
		class = &c
	}

	return resolver.Resolve(tx, parsed, class, s.store.Overrides(transactionID), s.catalog.Snapshot()), nil
}

// EffectiveViews resolves read-time values for all stored transactions in
// insertion order.
func (s *Service) EffectiveViews() []models.EffectiveView {
	catalogSnap := s.catalog.Snapshot()
	transactions := s.store.AllTransactions()
	views := make([]models.EffectiveView, 0, len(transactions))

	for _, tx := range transactions {
		var parsed *models.ParsedTransaction
		if p, ok := s.store.GetParsed(tx.ID); ok {
			parsed = &p
		}
		var class *models.Classification
		if c, ok := s.store.GetClassification(tx.ID); ok {
			class = &c
		}
		views = append(views, resolver.Resolve(tx, parsed, class, s.store.Overrides(tx.ID), catalogSnap))
	}

	return views
}

// Override records a manual correction for a transaction.
func (s *Service) Override(o models.ManualOverride) error {
	snapshot := s.catalog.Snapshot()
	if o.CategoryCode != nil {
		sub := ""
		if o.SubcategoryCode != nil {
			sub = *o.SubcategoryCode
		}
		if err := snapshot.ValidateAssignment(*o.CategoryCode, sub); err != nil {
			return err
		}
	} else if o.SubcategoryCode != nil && *o.SubcategoryCode != "" {
		// An empty string clears the subcategory; only real codes need to
		// exist in the catalog.
		if !snapshot.HasActiveSubcategory(*o.SubcategoryCode) {
			return pkgerrors.TaxonomyError(pkgerrors.CodeUnknownSubcategory, "", *o.SubcategoryCode)
		}
	}

	return s.store.AppendOverride(o)
}
