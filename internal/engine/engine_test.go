package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magnatepoint/mvp1-sub001/internal/models"
	"github.com/magnatepoint/mvp1-sub001/internal/parser"
	"github.com/magnatepoint/mvp1-sub001/internal/rules"
	"github.com/magnatepoint/mvp1-sub001/internal/store"
	"github.com/magnatepoint/mvp1-sub001/internal/taxonomy"
	pkgerrors "github.com/magnatepoint/mvp1-sub001/pkg/errors"
)

type fixture struct {
	store   *store.Store
	rules   *rules.Repository
	catalog *taxonomy.Catalog
	service *Service
	ruleID  string
}

// newFixture seeds two debit transactions: one matching a description
// pattern rule, one that only the terminal fallback can place.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := store.New()
	insert := func(id, bank, description string) {
		t.Helper()
		err := st.InsertTransaction(models.Transaction{
			ID:          id,
			OwnerID:     "user-1",
			Date:        time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
			Amount:      decimal.NewFromFloat(499.00),
			Direction:   models.DirectionDebit,
			Description: description,
			BankCode:    bank,
			Fingerprint: "fp-" + id,
		})
		require.NoError(t, err)
	}
	insert("tx-pattern", "HDFC", "POS 412345 BIGBASKET MUMBAI")
	insert("tx-fallback", "HDFC", "UPI/DR/123456789012/JOHN DOE/HDFC/johndoe@upi/NOTE")

	repo := rules.NewRepository()
	rule, err := repo.Add(rules.Rule{
		Strategy:        rules.StrategyDescriptionPattern,
		Pattern:         `\bbigbasket\b`,
		CategoryCode:    "groceries",
		SubcategoryCode: "online_groceries",
		Confidence:      0.9,
		Active:          true,
	})
	require.NoError(t, err)

	catalog := taxonomy.DefaultCatalog()
	service, err := NewService(st, parser.New(), repo, catalog, DefaultConfig())
	require.NoError(t, err)

	return &fixture{store: st, rules: repo, catalog: catalog, service: service, ruleID: rule.ID}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.MaxConcurrentWorkers = 0
	assert.True(t, pkgerrors.IsCode(bad.Validate(), pkgerrors.CodeInvalidConfig))

	bad = DefaultConfig()
	bad.ReviewThreshold = 1.5
	assert.True(t, pkgerrors.IsCode(bad.Validate(), pkgerrors.CodeInvalidConfig))
}

func TestNewServiceRequiresStore(t *testing.T) {
	_, err := NewService(nil, nil, rules.NewRepository(), taxonomy.DefaultCatalog(), nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeMissingField))
}

func TestClassifyAll(t *testing.T) {
	f := newFixture(t)

	summary, err := f.service.ClassifyAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalTransactions)
	assert.Equal(t, 2, summary.Classified)
	assert.Equal(t, 1, summary.Fallbacks)
	assert.Equal(t, 0, summary.NeedsReview)
	assert.Equal(t, 1, summary.ByStrategy[string(models.StrategyExactPattern)])
	assert.Equal(t, 1, summary.ByStrategy[string(models.StrategyFallback)])
	assert.Equal(t, int64(2), summary.RuleSnapshotVersion, "empty publish then one add")

	class, ok := f.store.GetClassification("tx-pattern")
	require.True(t, ok)
	assert.Equal(t, "groceries", class.CategoryCode)
	assert.Equal(t, "online_groceries", class.SubcategoryCode)

	class, ok = f.store.GetClassification("tx-fallback")
	require.True(t, ok)
	assert.Equal(t, "transfer_out", class.CategoryCode)
	assert.Equal(t, "wallet", class.SubcategoryCode)

	// Parsing runs as part of the same pass.
	parsed, ok := f.store.GetParsed("tx-fallback")
	require.True(t, ok)
	assert.Equal(t, models.ChannelUPI, parsed.Channel)
}

func TestClassifyAllCancelled(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.ClassifyAll(ctx)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnexpectedError))
}

func TestReclassifySwapsResults(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.ClassifyAll(context.Background())
	require.NoError(t, err)

	// With the rule gone the pattern transaction can only fall back.
	require.NoError(t, f.rules.Deactivate(f.ruleID, "superseded"))

	summary, err := f.service.Reclassify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Fallbacks)
	assert.Equal(t, int64(3), summary.RuleSnapshotVersion)

	class, ok := f.store.GetClassification("tx-pattern")
	require.True(t, ok)
	assert.Equal(t, models.StrategyFallback, class.Strategy)
	assert.Equal(t, "transfer_out", class.CategoryCode)
}

func TestReclassifyPreservesOverrides(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.ClassifyAll(context.Background())
	require.NoError(t, err)

	dining := "dining"
	require.NoError(t, f.service.Override(models.ManualOverride{
		TransactionID: "tx-pattern",
		CategoryCode:  &dining,
	}))

	_, err = f.service.Reclassify(context.Background())
	require.NoError(t, err)

	view, err := f.service.EffectiveView("tx-pattern")
	require.NoError(t, err)
	assert.Equal(t, "dining", view.CategoryCode)
	assert.True(t, view.Overridden, "overrides survive re-classification")
}

func TestApplyTaxonomyChange(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.ClassifyAll(context.Background())
	require.NoError(t, err)

	report, err := f.service.ApplyTaxonomyChange(func(c *taxonomy.Catalog) error {
		return c.RetireSubcategory("online_groceries")
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.RuleSubcategoriesCleared)
	assert.Equal(t, 1, report.ClassSubcategoriesCleared)

	class, _ := f.store.GetClassification("tx-pattern")
	assert.Empty(t, class.SubcategoryCode)
	rule, _ := f.rules.Get(f.ruleID)
	assert.Empty(t, rule.SubcategoryCode)
}

func TestApplyTaxonomyChangeMutationError(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.ApplyTaxonomyChange(func(c *taxonomy.Catalog) error {
		return c.RetireCategory("no-such-category")
	})
	assert.Error(t, err)
}

func TestEffectiveViewUnknownTransaction(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.EffectiveView("missing")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnknownTransaction))
}

func TestEffectiveViewsOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.ClassifyAll(context.Background())
	require.NoError(t, err)

	views := f.service.EffectiveViews()
	require.Len(t, views, 2)
	assert.Equal(t, "tx-pattern", views[0].TransactionID)
	assert.Equal(t, "tx-fallback", views[1].TransactionID)
}

func TestOverrideValidation(t *testing.T) {
	f := newFixture(t)

	bogus := "no-such-category"
	err := f.service.Override(models.ManualOverride{TransactionID: "tx-pattern", CategoryCode: &bogus})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnknownCategory))

	ghost := "no-such-subcategory"
	err = f.service.Override(models.ManualOverride{TransactionID: "tx-pattern", SubcategoryCode: &ghost})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnknownSubcategory))

	// Clearing the subcategory with an empty string is always legal.
	cleared := ""
	assert.NoError(t, f.service.Override(models.ManualOverride{
		TransactionID:   "tx-pattern",
		SubcategoryCode: &cleared,
	}))
}

func TestProgressCallbacks(t *testing.T) {
	f := newFixture(t)

	var mu sync.Mutex
	var calls int
	var last int
	f.service.AddProgressCallback(func(processed, total int) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		last = processed
		assert.Equal(t, 2, total)
	})

	_, err := f.service.ClassifyAll(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, last)
}

func TestReclassifyUnchangedSnapshotsIsIdempotent(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.ClassifyAll(context.Background())
	require.NoError(t, err)

	before := make(map[string]models.Classification)
	for _, tx := range f.store.AllTransactions() {
		class, ok := f.store.GetClassification(tx.ID)
		require.True(t, ok)
		before[tx.ID] = class
	}

	// Nothing mutated between runs, so every verdict must come out the same.
	_, err = f.service.Reclassify(context.Background())
	require.NoError(t, err)

	for id, prev := range before {
		class, ok := f.store.GetClassification(id)
		require.True(t, ok)
		assert.Equal(t, prev.CategoryCode, class.CategoryCode, "category for %s", id)
		assert.Equal(t, prev.SubcategoryCode, class.SubcategoryCode, "subcategory for %s", id)
		assert.Equal(t, prev.Type, class.Type, "type for %s", id)
		assert.Equal(t, prev.Confidence, class.Confidence, "confidence for %s", id)
		assert.Equal(t, prev.Strategy, class.Strategy, "strategy for %s", id)
		assert.Equal(t, prev.RuleID, class.RuleID, "rule for %s", id)
	}
}
