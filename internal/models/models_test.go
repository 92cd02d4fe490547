package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  ZOMATO  ", "zomato"},
		{"Big   Basket", "big basket"},
		{"UPI/DR/123", "upi/dr/123"},
		{"", ""},
		{"   ", ""},
		{"\tMiXeD\n Case ", "mixed case"},
	}

	for _, tt := range tests {
		if got := NormalizeText(tt.input); got != tt.want {
			t.Errorf("NormalizeText(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		input   string
		want    Direction
		wantErr bool
	}{
		{"DEBIT", DirectionDebit, false},
		{"dr", DirectionDebit, false},
		{"withdrawal", DirectionDebit, false},
		{"CREDIT", DirectionCredit, false},
		{" cr ", DirectionCredit, false},
		{"DEPOSIT", DirectionCredit, false},
		{"sideways", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseDirection(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDirection(%q) error = %v, wantErr %t", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDirection(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseDecimalFromString(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"420.50", "420.5", false},
		{"1,250.00", "1250", false},
		{"₹85000", "85000", false},
		{"$10.25", "10.25", false},
		{"-42.00", "-42", false},
		{"not-a-number", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseDecimalFromString(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDecimalFromString(%q) error = %v, wantErr %t", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got.String() != tt.want {
			t.Errorf("ParseDecimalFromString(%q) = %s, want %s", tt.input, got.String(), tt.want)
		}
	}
}

func TestParseTimeWithFormats(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"2026-01-05", false},
		{"2026-01-05 14:30:00", false},
		{"05/01/2026", false},
		{"05 Jan 2026", false},
		{"garbage", true},
		{"", true},
	}

	for _, tt := range tests {
		_, err := ParseTimeWithFormats(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTimeWithFormats(%q) error = %v, wantErr %t", tt.input, err, tt.wantErr)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{
		ID:        "tx-1",
		OwnerID:   "user-1",
		Date:      time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		Amount:    decimal.NewFromFloat(420.50),
		Direction: DirectionDebit,
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid transaction failed validation: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Transaction)
	}{
		{"empty ID", func(tx *Transaction) { tx.ID = "" }},
		{"empty owner", func(tx *Transaction) { tx.OwnerID = "" }},
		{"zero amount", func(tx *Transaction) { tx.Amount = decimal.Zero }},
		{"bad direction", func(tx *Transaction) { tx.Direction = "SIDEWAYS" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid
			tt.mutate(&tx)
			if err := tx.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestMatchSubject(t *testing.T) {
	tx := Transaction{Description: "UPI/DR/123/JOHN DOE"}

	// Description is the last resort.
	if got := tx.MatchSubject(nil); got != "upi/dr/123/john doe" {
		t.Errorf("MatchSubject = %q, want normalized description", got)
	}

	// Parsed counterparty outranks description.
	parsed := ParsedTransaction{CounterpartyName: "JOHN DOE"}
	if got := tx.MatchSubject(&parsed); got != "john doe" {
		t.Errorf("MatchSubject = %q, want john doe", got)
	}

	// Explicit merchant outranks both.
	tx.MerchantName = "  Zomato  "
	if got := tx.MatchSubject(&parsed); got != "zomato" {
		t.Errorf("MatchSubject = %q, want zomato", got)
	}
}

func TestManualOverrideIsEmpty(t *testing.T) {
	var o ManualOverride
	if !o.IsEmpty() {
		t.Error("zero override should be empty")
	}

	cat := "dining"
	o.CategoryCode = &cat
	if o.IsEmpty() {
		t.Error("override with category should not be empty")
	}

	// A pointer to the empty string is a deliberate clear, not absence.
	cleared := ""
	o = ManualOverride{SubcategoryCode: &cleared}
	if o.IsEmpty() {
		t.Error("override clearing a subcategory should not be empty")
	}
}
