// Package resolver computes the effective view of a transaction: the
// single (category, subcategory, type, merchant, channel) tuple exposed
// to analytics consumers after manual-override precedence is applied.
//
// The resolver is a pure projection over its inputs and holds no state of
// its own, so it is recomputed on every read and is always consistent
// with the latest override and the latest classification without any
// invalidation machinery.
package resolver

import (
	"github.com/magnatepoint/mvp1-sub001/internal/models"
	"github.com/magnatepoint/mvp1-sub001/internal/taxonomy"
)

// overlay is the latest non-nil value per override field across the
// append-only log. Fields resolve independently: overriding the type
// alone does not clear an automatically-derived category.
type overlay struct {
	category    *string
	subcategory *string
	txType      *models.TransactionType
}

func buildOverlay(history []models.ManualOverride) overlay {
	var o overlay
	// History arrives oldest first; later events win per field.
	for i := range history {
		ev := history[i]
		if ev.CategoryCode != nil {
			o.category = ev.CategoryCode
		}
		if ev.SubcategoryCode != nil {
			o.subcategory = ev.SubcategoryCode
		}
		if ev.Type != nil {
			o.txType = ev.Type
		}
	}
	return o
}

// Resolve computes the effective view for one transaction.
//
// Precedence per field: manual override, then classification, then for
// the transaction type a direction fallback (credit means income) and
// finally the taxonomy type of the resolved category.
func Resolve(
	tx models.Transaction,
	parsed *models.ParsedTransaction,
	class *models.Classification,
	history []models.ManualOverride,
	catalog *taxonomy.Snapshot,
) models.EffectiveView {
	view := models.EffectiveView{
		TransactionID: tx.ID,
		OwnerID:       tx.OwnerID,
		Date:          tx.Date,
		Amount:        tx.Amount,
		Direction:     tx.Direction,
		MerchantName:  tx.MerchantName,
		Channel:       models.ChannelOther,
	}

	if parsed != nil {
		view.Channel = parsed.Channel
		if view.MerchantName == "" {
			view.MerchantName = parsed.CounterpartyName
		}
	}

	if class != nil {
		view.CategoryCode = class.CategoryCode
		view.SubcategoryCode = class.SubcategoryCode
		view.Type = class.Type
		view.Confidence = class.Confidence
		view.Strategy = class.Strategy
	}

	o := buildOverlay(history)
	if o.category != nil {
		view.CategoryCode = *o.category
		view.Overridden = true
	}
	if o.subcategory != nil {
		view.SubcategoryCode = *o.subcategory
		view.Overridden = true
	}
	if o.txType != nil {
		view.Type = *o.txType
		view.Overridden = true
	}

	// An overridden category invalidates a subcategory inherited from the
	// classification when it no longer belongs to the new category.
	if o.category != nil && o.subcategory == nil && view.SubcategoryCode != "" {
		if catalog != nil && !catalog.Belongs(view.SubcategoryCode, view.CategoryCode) {
			view.SubcategoryCode = ""
		}
	}

	if view.Type == "" {
		view.Type = fallbackType(tx, view.CategoryCode, catalog)
	}

	return view
}

// fallbackType derives a transaction type when neither an override nor
// the classification determined one.
func fallbackType(tx models.Transaction, categoryCode string, catalog *taxonomy.Snapshot) models.TransactionType {
	if tx.IsCredit() {
		return models.TypeIncome
	}
	if catalog != nil && categoryCode != "" {
		if t, ok := catalog.TypeOf(categoryCode); ok {
			return t
		}
	}
	return models.TypeWants
}
