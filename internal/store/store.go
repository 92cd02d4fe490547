// Package store provides the in-memory persistence layer for the
// pipeline: the transaction fact table with fingerprint uniqueness, the
// parsed and classification derivations, and the append-only override
// log. Catalog-backed deployments swap this for a database-backed
// implementation with the same surface.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/magnatepoint/mvp1-sub001/internal/models"
	pkgerrors "github.com/magnatepoint/mvp1-sub001/pkg/errors"
)

// Store is a concurrency-safe in-memory store for all pipeline records.
type Store struct {
	mu              sync.RWMutex
	transactions    map[string]models.Transaction
	order           []string
	byFingerprint   map[string]string
	parsed          map[string]models.ParsedTransaction
	classifications map[string]models.Classification
	overrides       map[string][]models.ManualOverride
}

// New creates an empty store.
func New() *Store {
	return &Store{
		transactions:    make(map[string]models.Transaction),
		byFingerprint:   make(map[string]string),
		parsed:          make(map[string]models.ParsedTransaction),
		classifications: make(map[string]models.Classification),
		overrides:       make(map[string][]models.ManualOverride),
	}
}

// InsertTransaction stores a new transaction fact. Inserts carrying a
// fingerprint already present are rejected as duplicates; rows with no
// fingerprint are exempt from uniqueness enforcement.
func (s *Store) InsertTransaction(tx models.Transaction) error {
	if err := tx.Validate(); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CategoryValidation, pkgerrors.CodeInvalidData, "invalid transaction")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[tx.ID]; exists {
		return pkgerrors.New(pkgerrors.CategoryValidation, pkgerrors.CodeInvalidData,
			"transaction "+tx.ID+" already exists")
	}

	if tx.Fingerprint != "" {
		if existingID, dup := s.byFingerprint[tx.Fingerprint]; dup {
			return pkgerrors.DuplicateError(tx.Fingerprint, existingID)
		}
		s.byFingerprint[tx.Fingerprint] = tx.ID
	}

	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	s.transactions[tx.ID] = tx
	s.order = append(s.order, tx.ID)
	return nil
}

// GetTransaction returns a transaction by ID.
func (s *Store) GetTransaction(id string) (models.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[id]
	return tx, ok
}

// AllTransactions returns every transaction in insertion order.
func (s *Store) AllTransactions() []models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Transaction, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.transactions[id])
	}
	return out
}

// SetFingerprint backfills a fingerprint onto a legacy row. It refuses to
// change a non-empty fingerprint: the hash is written once at ingestion
// and never mutated.
func (s *Store) SetFingerprint(id, fp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return pkgerrors.New(pkgerrors.CategoryClassification, pkgerrors.CodeUnknownTransaction,
			"transaction "+id+" not found")
	}
	if tx.Fingerprint != "" {
		return nil
	}
	if existingID, dup := s.byFingerprint[fp]; dup && existingID != id {
		return pkgerrors.DuplicateError(fp, existingID)
	}

	tx.Fingerprint = fp
	s.transactions[id] = tx
	s.byFingerprint[fp] = id
	return nil
}

// PutParsed stores the parsed derivation for a transaction.
func (s *Store) PutParsed(p models.ParsedTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parsed[p.TransactionID] = p
}

// GetParsed returns the parsed derivation for a transaction.
func (s *Store) GetParsed(transactionID string) (models.ParsedTransaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parsed[transactionID]
	return p, ok
}

// PutClassification stores one classification verdict.
func (s *Store) PutClassification(c models.Classification) error {
	if err := c.Validate(); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CategoryClassification, pkgerrors.CodeInvalidData, "invalid classification")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.classifications[c.TransactionID] = c
	return nil
}

// GetClassification returns the classification for a transaction.
func (s *Store) GetClassification(transactionID string) (models.Classification, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.classifications[transactionID]
	return c, ok
}

// AllClassifications returns every classification, ordered by transaction
// ID for determinism. Implements the consistency guard's view.
func (s *Store) AllClassifications() []models.Classification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Classification, 0, len(s.classifications))
	for _, c := range s.classifications {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransactionID < out[j].TransactionID })
	return out
}

// ReplaceClassification overwrites one classification in place. Used by
// the consistency guard's corrections.
func (s *Store) ReplaceClassification(c models.Classification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.classifications[c.TransactionID]; !ok {
		return pkgerrors.New(pkgerrors.CategoryClassification, pkgerrors.CodeUnknownTransaction,
			"no classification for transaction "+c.TransactionID)
	}
	s.classifications[c.TransactionID] = c
	return nil
}

// SwapClassifications atomically replaces the whole classification set.
// Re-classification runs stage their results into a shadow set and swap
// it in here, so readers never observe a half-recomputed state.
func (s *Store) SwapClassifications(next map[string]models.Classification) {
	staged := make(map[string]models.Classification, len(next))
	for k, v := range next {
		staged[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.classifications = staged
}

// AppendOverride appends one manual correction event. The log is
// append-only; corrections are additive and never deleted.
func (s *Store) AppendOverride(o models.ManualOverride) error {
	if o.IsEmpty() {
		return pkgerrors.ValidationError(pkgerrors.CodeMissingField, "override", nil, nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[o.TransactionID]; !ok {
		return pkgerrors.New(pkgerrors.CategoryClassification, pkgerrors.CodeUnknownTransaction,
			"transaction "+o.TransactionID+" not found")
	}
	if o.At.IsZero() {
		o.At = time.Now()
	}
	s.overrides[o.TransactionID] = append(s.overrides[o.TransactionID], o)
	return nil
}

// Overrides returns the override history for a transaction, oldest first.
func (s *Store) Overrides(transactionID string) []models.ManualOverride {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.overrides[transactionID]
	out := make([]models.ManualOverride, len(history))
	copy(out, history)
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}

// Counts returns basic row counts for logs and reports.
func (s *Store) Counts() (transactions, classifications, overrides int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, events := range s.overrides {
		overrides += len(events)
	}
	return len(s.transactions), len(s.classifications), overrides
}
