// Package models defines the core records of the categorization pipeline:
// the immutable transaction fact, its parsed and classified derivations,
// and the append-only manual override log.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction represents the ledger direction of a transaction
type Direction string

const (
	// DirectionDebit represents money leaving the account
	DirectionDebit Direction = "DEBIT"
	// DirectionCredit represents money entering the account
	DirectionCredit Direction = "CREDIT"
)

// String returns the string representation of Direction
func (d Direction) String() string {
	return string(d)
}

// IsValid checks if the direction is valid
func (d Direction) IsValid() bool {
	return d == DirectionDebit || d == DirectionCredit
}

// ChannelType enumerates the payment rails a transaction can settle through
type ChannelType string

const (
	ChannelUPI     ChannelType = "upi"
	ChannelIMPS    ChannelType = "imps"
	ChannelNEFT    ChannelType = "neft"
	ChannelRTGS    ChannelType = "rtgs"
	ChannelBillPay ChannelType = "billpay"
	ChannelCard    ChannelType = "card"
	ChannelMandate ChannelType = "mandate"
	ChannelOther   ChannelType = "other"
)

// FlowDirection is the direction inferred from the description text,
// which is finer-grained than the ledger direction.
type FlowDirection string

const (
	FlowIn       FlowDirection = "in"
	FlowOut      FlowDirection = "out"
	FlowReversal FlowDirection = "reversal"
	FlowInternal FlowDirection = "internal"
)

// TransactionType is the budgeting classification of a category
type TransactionType string

const (
	TypeIncome     TransactionType = "income"
	TypeNeeds      TransactionType = "needs"
	TypeWants      TransactionType = "wants"
	TypeAssets     TransactionType = "assets"
	TypeDebt       TransactionType = "debt"
	TypeProtection TransactionType = "protection"
)

// IsValid checks if the transaction type is one of the known classes
func (t TransactionType) IsValid() bool {
	switch t {
	case TypeIncome, TypeNeeds, TypeWants, TypeAssets, TypeDebt, TypeProtection:
		return true
	}
	return false
}

// MatchStrategy identifies which cascade tier produced a classification
type MatchStrategy string

const (
	StrategyExactPattern     MatchStrategy = "exact_pattern"
	StrategyExactName        MatchStrategy = "exact_name"
	StrategyTaxonomyMerchant MatchStrategy = "taxonomy_merchant"
	StrategyFuzzy            MatchStrategy = "fuzzy"
	StrategyKeyword          MatchStrategy = "keyword"
	StrategyFallback         MatchStrategy = "fallback"
)

// Transaction is the immutable ingested fact. Only the fingerprint may be
// set after creation, and only once (backfill of legacy rows).
type Transaction struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"owner_id"`
	Date         time.Time       `json:"date"`
	Amount       decimal.Decimal `json:"amount"`
	Direction    Direction       `json:"direction"`
	Description  string          `json:"description"`
	Currency     string          `json:"currency"`
	BankCode     string          `json:"bank_code,omitempty"`
	AccountRef   string          `json:"account_ref,omitempty"`
	MerchantName string          `json:"merchant_name,omitempty"`
	Fingerprint  string          `json:"fingerprint,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Validate performs basic validation on the Transaction
func (t *Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("transaction ID cannot be empty")
	}

	if strings.TrimSpace(t.OwnerID) == "" {
		return fmt.Errorf("transaction owner cannot be empty")
	}

	if t.Amount.IsZero() {
		return fmt.Errorf("transaction amount cannot be zero")
	}

	if !t.Direction.IsValid() {
		return fmt.Errorf("invalid transaction direction: %s", t.Direction)
	}

	if t.Date.IsZero() {
		return fmt.Errorf("transaction date cannot be zero")
	}

	return nil
}

// String returns a string representation of the Transaction
func (t *Transaction) String() string {
	return fmt.Sprintf("Transaction{ID: %s, Amount: %s, Direction: %s, Date: %s}",
		t.ID, t.Amount.String(), t.Direction, t.Date.Format("2006-01-02"))
}

// IsDebit returns true if the transaction is a debit
func (t *Transaction) IsDebit() bool {
	return t.Direction == DirectionDebit
}

// IsCredit returns true if the transaction is a credit
func (t *Transaction) IsCredit() bool {
	return t.Direction == DirectionCredit
}

// MatchSubject returns the single normalized string the cascade matches
// against: merchant name first, then parsed counterparty, then the raw
// description.
func (t *Transaction) MatchSubject(parsed *ParsedTransaction) string {
	if s := NormalizeText(t.MerchantName); s != "" {
		return s
	}
	if parsed != nil {
		if s := NormalizeText(parsed.CounterpartyName); s != "" {
			return s
		}
	}
	return NormalizeText(t.Description)
}

// ParsedTransaction is the one-to-one derivation produced by the
// description parser. Optional fields stay empty when the bank format is
// not covered; consumers must tolerate that.
type ParsedTransaction struct {
	TransactionID    string        `json:"transaction_id"`
	BankCode         string        `json:"bank_code,omitempty"`
	Channel          ChannelType   `json:"channel"`
	Flow             FlowDirection `json:"flow"`
	CounterpartyName string        `json:"counterparty_name,omitempty"`
	CounterpartyBank string        `json:"counterparty_bank,omitempty"`
	AccountMask      string        `json:"account_mask,omitempty"`
	VPA              string        `json:"vpa,omitempty"`
	ReferenceID      string        `json:"reference_id,omitempty"`
	ParsedAt         time.Time     `json:"parsed_at"`
}

// Classification is the cascade's verdict for one transaction. Recreated
// wholesale on re-classification runs.
type Classification struct {
	TransactionID   string          `json:"transaction_id"`
	CategoryCode    string          `json:"category_code"`
	SubcategoryCode string          `json:"subcategory_code,omitempty"`
	Type            TransactionType `json:"transaction_type"`
	RuleID          string          `json:"rule_id,omitempty"`
	Confidence      float64         `json:"confidence"`
	Strategy        MatchStrategy   `json:"strategy"`
	ClassifiedAt    time.Time       `json:"classified_at"`
}

// Validate performs basic validation on the Classification
func (c *Classification) Validate() error {
	if strings.TrimSpace(c.TransactionID) == "" {
		return fmt.Errorf("classification transaction ID cannot be empty")
	}

	if strings.TrimSpace(c.CategoryCode) == "" {
		return fmt.Errorf("classification category code cannot be empty")
	}

	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("classification confidence %f out of range [0,1]", c.Confidence)
	}

	return nil
}

// ManualOverride is one event in the append-only correction log.
// Nil-able fields distinguish "not overridden" from "cleared".
type ManualOverride struct {
	TransactionID   string           `json:"transaction_id"`
	CategoryCode    *string          `json:"category_code,omitempty"`
	SubcategoryCode *string          `json:"subcategory_code,omitempty"`
	Type            *TransactionType `json:"transaction_type,omitempty"`
	At              time.Time        `json:"at"`
}

// IsEmpty reports whether the override carries no field at all
func (o *ManualOverride) IsEmpty() bool {
	return o.CategoryCode == nil && o.SubcategoryCode == nil && o.Type == nil
}

// EffectiveView is the resolved, consumer-facing projection of one
// transaction after override precedence is applied.
type EffectiveView struct {
	TransactionID   string          `json:"transaction_id"`
	OwnerID         string          `json:"owner_id"`
	Date            time.Time       `json:"date"`
	Amount          decimal.Decimal `json:"amount"`
	Direction       Direction       `json:"direction"`
	CategoryCode    string          `json:"category_code"`
	SubcategoryCode string          `json:"subcategory_code,omitempty"`
	Type            TransactionType `json:"transaction_type"`
	MerchantName    string          `json:"merchant_name,omitempty"`
	Channel         ChannelType     `json:"channel"`
	Confidence      float64         `json:"confidence"`
	Strategy        MatchStrategy   `json:"strategy"`
	Overridden      bool            `json:"overridden"`
}

// Utility functions for parsing and normalization

// NormalizeText lower-cases, trims and collapses internal whitespace.
// This is the single normalization applied before matching, keyword
// lookup, and fingerprinting, so it must not change shape.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

// ParseDecimalFromString parses a decimal value from string with validation
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	// Strip currency symbols and thousand separators
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "₹", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// ParseDirection parses and validates a ledger direction from string
func ParseDirection(s string) (Direction, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	switch s {
	case "DEBIT", "D", "DR", "WITHDRAWAL":
		return DirectionDebit, nil
	case "CREDIT", "C", "CR", "DEPOSIT":
		return DirectionCredit, nil
	default:
		return "", fmt.Errorf("invalid direction '%s': must be DEBIT or CREDIT", s)
	}
}

// ParseTransactionType parses a transaction type class from string
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("invalid transaction type '%s'", s)
	}
	return t, nil
}

// ParseTimeWithFormats attempts to parse time from string using multiple common formats
func ParseTimeWithFormats(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("time string cannot be empty")
	}

	// Common date formats seen in statement exports
	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
		"02/01/2006",
		"02-01-2006",
		"2006/01/02",
		"02 Jan 2006",
		"Jan 2, 2006",
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time '%s': %w", s, lastErr)
}
