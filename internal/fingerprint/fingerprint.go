// Package fingerprint derives the stable content hash used to reject
// duplicate ingestion of the same transaction across repeated uploads.
//
// The digest input is fixed and documented below; any change to the field
// order, formatting, or normalization breaks comparability with every
// fingerprint already stored, so treat the layout as frozen.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/magnatepoint/mvp1-sub001/internal/models"
)

// Compute returns the hex SHA-256 fingerprint of a transaction.
//
// Digest input, joined with "|" in exactly this order:
//  1. owner id, lower-cased and trimmed
//  2. date as YYYY-MM-DD
//  3. amount formatted to two decimal places
//  4. direction (DEBIT or CREDIT)
//  5. description, whitespace-normalized and lower-cased
//  6. merchant name, whitespace-normalized and lower-cased
//  7. account reference, trimmed
func Compute(tx *models.Transaction) string {
	fields := []string{
		strings.ToLower(strings.TrimSpace(tx.OwnerID)),
		tx.Date.Format("2006-01-02"),
		tx.Amount.StringFixed(2),
		tx.Direction.String(),
		models.NormalizeText(tx.Description),
		models.NormalizeText(tx.MerchantName),
		strings.TrimSpace(tx.AccountRef),
	}

	sum := sha256.Sum256([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(sum[:])
}

// Backfill computes fingerprints for legacy rows that have none. Rows
// already carrying a fingerprint are left untouched, so repeated backfill
// runs are idempotent. Returns the number of rows updated.
func Backfill(txs []*models.Transaction) int {
	var updated int
	for _, tx := range txs {
		if tx == nil || tx.Fingerprint != "" {
			continue
		}
		tx.Fingerprint = Compute(tx)
		updated++
	}
	return updated
}
