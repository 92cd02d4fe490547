// Package ingest reads raw statement-export CSV files into transaction
// facts. It is the raw-input surface fed by statement-upload
// collaborators.
//
// Real statement exports disagree on column naming, so the reader maps
// headers through a configurable alias table. A bad row never aborts the
// batch: each row's error is isolated, reported in the result, and the
// reader moves on. Duplicate rows (by content fingerprint) are rejected
// per row and surfaced as duplicates, not silently dropped.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/magnatepoint/mvp1-sub001/internal/fingerprint"
	"github.com/magnatepoint/mvp1-sub001/internal/models"
	"github.com/magnatepoint/mvp1-sub001/internal/store"
	pkgerrors "github.com/magnatepoint/mvp1-sub001/pkg/errors"
	"github.com/magnatepoint/mvp1-sub001/pkg/logger"
)

// Config describes the CSV layout of one statement export.
type Config struct {
	OwnerColumn       string
	DateColumn        string
	AmountColumn      string
	DirectionColumn   string
	DescriptionColumn string
	CurrencyColumn    string
	BankCodeColumn    string
	AccountRefColumn  string
	MerchantColumn    string

	// HasHeader toggles header-driven column mapping. Headerless files use
	// the fixed positional order owner, date, amount, direction,
	// description, currency, bank code, account ref, merchant; columns
	// past the fifth are optional.
	HasHeader     bool
	Delimiter     rune
	ColumnAliases map[string]string

	// DefaultBankCode applies when the export has no bank column.
	DefaultBankCode string
	// DefaultCurrency applies when the export has no currency column.
	DefaultCurrency string
}

// DefaultConfig returns the canonical column layout with common aliases.
func DefaultConfig() *Config {
	return &Config{
		OwnerColumn:       "owner_id",
		DateColumn:        "date",
		AmountColumn:      "amount",
		DirectionColumn:   "direction",
		DescriptionColumn: "description",
		CurrencyColumn:    "currency",
		BankCodeColumn:    "bank_code",
		AccountRefColumn:  "account_ref",
		MerchantColumn:    "merchant",
		HasHeader:         true,
		Delimiter:         ',',
		DefaultCurrency:   "INR",
		ColumnAliases: map[string]string{
			"user":             "owner_id",
			"user_id":          "owner_id",
			"owner":            "owner_id",
			"txn_date":         "date",
			"transaction_date": "date",
			"value_date":       "date",
			"amt":              "amount",
			"value":            "amount",
			"type":             "direction",
			"dr_cr":            "direction",
			"debit_credit":     "direction",
			"narration":        "description",
			"particulars":      "description",
			"remarks":          "description",
			"ccy":              "currency",
			"bank":             "bank_code",
			"account":          "account_ref",
			"account_number":   "account_ref",
			"merchant_name":    "merchant",
			"payee":            "merchant",
		},
	}
}

// Validate checks that the required columns are configured.
func (c *Config) Validate() error {
	required := map[string]string{
		"owner_column":       c.OwnerColumn,
		"date_column":        c.DateColumn,
		"amount_column":      c.AmountColumn,
		"direction_column":   c.DirectionColumn,
		"description_column": c.DescriptionColumn,
	}
	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			return pkgerrors.ConfigurationError(pkgerrors.CodeMissingConfig, name, value, nil)
		}
	}
	return nil
}

// RowError records one isolated row failure.
type RowError struct {
	Line      int    `json:"line"`
	Duplicate bool   `json:"duplicate"`
	Err       error  `json:"-"`
	Message   string `json:"message"`
}

// Result summarizes one ingestion run.
type Result struct {
	File       string     `json:"file"`
	TotalRows  int        `json:"total_rows"`
	Ingested   int        `json:"ingested"`
	Duplicates int        `json:"duplicates"`
	Failed     int        `json:"failed"`
	Errors     []RowError `json:"errors,omitempty"`
}

// Reader ingests statement CSV files into the store.
type Reader struct {
	config *Config
	store  *store.Store
	logger logger.Logger
}

// NewReader creates a reader over the given store.
func NewReader(config *Config, st *store.Store) (*Reader, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Reader{
		config: config,
		store:  st,
		logger: logger.GetGlobalLogger().WithComponent("ingest"),
	}, nil
}

// IngestFile reads one CSV file and inserts its rows.
func (r *Reader) IngestFile(path string) (*Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CategoryFile, pkgerrors.CodeFileNotFound,
			"opening statement file "+path)
	}
	defer file.Close()

	result, err := r.Ingest(file, path)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Ingest reads CSV rows from rd, isolating per-row failures.
func (r *Reader) Ingest(rd io.Reader, name string) (*Result, error) {
	cr := csv.NewReader(rd)
	cr.Comma = r.config.Delimiter
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	result := &Result{File: name}

	columns, err := r.readHeader(cr, name)
	if err != nil {
		return nil, err
	}

	line := 1
	for {
		line++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.TotalRows++
			result.Failed++
			result.Errors = append(result.Errors, RowError{
				Line:    line,
				Err:     err,
				Message: fmt.Sprintf("malformed CSV row: %v", err),
			})
			continue
		}
		if isEmptyRecord(record) {
			continue
		}

		result.TotalRows++
		tx, err := r.buildTransaction(columns, record, name, line)
		if err == nil {
			err = r.store.InsertTransaction(tx)
		}
		if err == nil {
			result.Ingested++
			continue
		}

		dup := pkgerrors.IsCode(err, pkgerrors.CodeDuplicateTransaction)
		if dup {
			result.Duplicates++
		} else {
			result.Failed++
		}
		result.Errors = append(result.Errors, RowError{
			Line:      line,
			Duplicate: dup,
			Err:       err,
			Message:   err.Error(),
		})
	}

	r.logger.WithFields(logger.Fields{
		"file":       name,
		"rows":       result.TotalRows,
		"ingested":   result.Ingested,
		"duplicates": result.Duplicates,
		"failed":     result.Failed,
	}).Info("Statement ingestion completed")

	return result, nil
}

// readHeader maps the header row to column indexes via the alias table.
func (r *Reader) readHeader(cr *csv.Reader, name string) (map[string]int, error) {
	if !r.config.HasHeader {
		// Positional layout: canonical column order, required columns
		// first. Short rows simply leave the trailing optionals empty.
		columns := map[string]int{
			r.config.OwnerColumn:       0,
			r.config.DateColumn:        1,
			r.config.AmountColumn:      2,
			r.config.DirectionColumn:   3,
			r.config.DescriptionColumn: 4,
		}
		optionals := []string{
			r.config.CurrencyColumn, r.config.BankCodeColumn,
			r.config.AccountRefColumn, r.config.MerchantColumn,
		}
		for i, col := range optionals {
			if strings.TrimSpace(col) != "" {
				columns[col] = 5 + i
			}
		}
		return columns, nil
	}

	header, err := cr.Read()
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CategoryParse, pkgerrors.CodeInvalidFormat,
			"reading header of "+name)
	}

	columns := make(map[string]int, len(header))
	for i, raw := range header {
		col := strings.ToLower(strings.TrimSpace(raw))
		if canonical, ok := r.config.ColumnAliases[col]; ok {
			col = canonical
		}
		columns[col] = i
	}

	for _, required := range []string{
		r.config.DateColumn, r.config.AmountColumn,
		r.config.DirectionColumn, r.config.DescriptionColumn,
	} {
		if _, ok := columns[required]; !ok {
			return nil, pkgerrors.ParseRowError(pkgerrors.CodeMissingColumn, name, 1, required, "", nil)
		}
	}

	return columns, nil
}

func (r *Reader) buildTransaction(columns map[string]int, record []string, file string, line int) (models.Transaction, error) {
	get := func(col string) string {
		idx, ok := columns[col]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	date, err := models.ParseTimeWithFormats(get(r.config.DateColumn))
	if err != nil {
		return models.Transaction{}, pkgerrors.ParseRowError(
			pkgerrors.CodeInvalidData, file, line, r.config.DateColumn, get(r.config.DateColumn), err)
	}

	amount, err := models.ParseDecimalFromString(get(r.config.AmountColumn))
	if err != nil {
		return models.Transaction{}, pkgerrors.ParseRowError(
			pkgerrors.CodeInvalidData, file, line, r.config.AmountColumn, get(r.config.AmountColumn), err)
	}

	direction, err := models.ParseDirection(get(r.config.DirectionColumn))
	if err != nil {
		return models.Transaction{}, pkgerrors.ParseRowError(
			pkgerrors.CodeInvalidData, file, line, r.config.DirectionColumn, get(r.config.DirectionColumn), err)
	}

	currency := get(r.config.CurrencyColumn)
	if currency == "" {
		currency = r.config.DefaultCurrency
	}
	bankCode := get(r.config.BankCodeColumn)
	if bankCode == "" {
		bankCode = r.config.DefaultBankCode
	}

	tx := models.Transaction{
		ID:           uuid.NewString(),
		OwnerID:      get(r.config.OwnerColumn),
		Date:         date,
		Amount:       amount,
		Direction:    direction,
		Description:  get(r.config.DescriptionColumn),
		Currency:     currency,
		BankCode:     bankCode,
		AccountRef:   get(r.config.AccountRefColumn),
		MerchantName: get(r.config.MerchantColumn),
	}
	tx.Fingerprint = fingerprint.Compute(&tx)

	return tx, nil
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
