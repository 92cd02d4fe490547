// Package errors provides structured error types for the categorization
// pipeline, with categories, stable codes, suggestions, and stack traces.
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryFile           ErrorCategory = "file"
	CategoryParse          ErrorCategory = "parse"
	CategoryValidation     ErrorCategory = "validation"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryTaxonomy       ErrorCategory = "taxonomy"
	CategoryRule           ErrorCategory = "rule"
	CategoryDedup          ErrorCategory = "dedup"
	CategoryClassification ErrorCategory = "classification"
	CategoryInternal       ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"

	// Parse errors
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeMissingColumn ErrorCode = "missing_column"
	CodeInvalidData   ErrorCode = "invalid_data"

	// Validation errors
	CodeInvalidAmount ErrorCode = "invalid_amount"
	CodeInvalidDate   ErrorCode = "invalid_date"
	CodeMissingField  ErrorCode = "missing_field"
	CodeOutOfRange    ErrorCode = "out_of_range"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Taxonomy errors
	CodeUnknownCategory     ErrorCode = "unknown_category"
	CodeUnknownSubcategory  ErrorCode = "unknown_subcategory"
	CodeSubcategoryMismatch ErrorCode = "subcategory_mismatch"
	CodeCategoryRetired     ErrorCode = "category_retired"

	// Rule errors
	CodeInvalidPattern ErrorCode = "invalid_pattern"
	CodeUnknownRule    ErrorCode = "unknown_rule"

	// Dedup errors
	CodeDuplicateTransaction ErrorCode = "duplicate_transaction"

	// Classification errors
	CodeUnknownTransaction ErrorCode = "unknown_transaction"
	CodeSnapshotStale      ErrorCode = "snapshot_stale"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// PipelineError is the base error type for all application errors
type PipelineError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *PipelineError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *PipelineError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryTaxonomy, CategoryRule:
		return 5
	case CategoryDedup:
		return 6
	case CategoryClassification, CategoryInternal:
		return 7
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *PipelineError) WithContext(key string, value interface{}) *PipelineError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *PipelineError) WithSuggestion(suggestion string) *PipelineError {
	e.Suggestion = suggestion
	return e
}

// New creates a new PipelineError
func New(category ErrorCategory, code ErrorCode, message string) *PipelineError {
	return &PipelineError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with PipelineError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *PipelineError {
	if err == nil {
		return nil
	}

	return &PipelineError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Specific error constructors

// ValidationError creates a validation-related error
func ValidationError(code ErrorCode, field string, value interface{}, err error) *PipelineError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidAmount:
		message = fmt.Sprintf("invalid amount in field '%s': %v", field, value)
		suggestion = "ensure amounts are valid decimal numbers (e.g., '12.34')"
	case CodeInvalidDate:
		message = fmt.Sprintf("invalid date in field '%s': %v", field, value)
		suggestion = "use date format YYYY-MM-DD or YYYY-MM-DD HH:MM:SS"
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
		suggestion = "provide a value for this required field"
	case CodeOutOfRange:
		message = fmt.Sprintf("value out of range in field '%s': %v", field, value)
		suggestion = "ensure the value is within the acceptable range"
	default:
		message = fmt.Sprintf("validation error in field '%s': %v", field, value)
		suggestion = "check the field value and format"
	}

	var result *PipelineError
	if err != nil {
		result = Wrap(err, CategoryValidation, code, message)
	} else {
		result = New(CategoryValidation, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// TaxonomyError creates a taxonomy-related error
func TaxonomyError(code ErrorCode, categoryCode, subcategoryCode string) *PipelineError {
	var message string
	var suggestion string

	switch code {
	case CodeUnknownCategory:
		message = fmt.Sprintf("category code '%s' does not exist in the taxonomy", categoryCode)
		suggestion = "use an active category code from the taxonomy catalog"
	case CodeUnknownSubcategory:
		message = fmt.Sprintf("subcategory code '%s' does not exist in the taxonomy", subcategoryCode)
		suggestion = "use an active subcategory code from the taxonomy catalog"
	case CodeSubcategoryMismatch:
		message = fmt.Sprintf("subcategory '%s' does not belong to category '%s'", subcategoryCode, categoryCode)
		suggestion = "pick a subcategory declared under the target category"
	case CodeCategoryRetired:
		message = fmt.Sprintf("category code '%s' has been retired", categoryCode)
		suggestion = "run the consistency guard or retarget the rule"
	default:
		message = fmt.Sprintf("taxonomy error for category '%s'", categoryCode)
		suggestion = "check the taxonomy catalog"
	}

	return New(CategoryTaxonomy, code, message).
		WithSuggestion(suggestion).
		WithContext("category_code", categoryCode).
		WithContext("subcategory_code", subcategoryCode)
}

// RuleError creates a rule-related error
func RuleError(code ErrorCode, ruleID string, err error) *PipelineError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidPattern:
		message = fmt.Sprintf("rule %s has an invalid match pattern", ruleID)
		suggestion = "fix the regular expression; patterns use Go RE2 syntax"
	case CodeUnknownRule:
		message = fmt.Sprintf("rule %s does not exist", ruleID)
		suggestion = "check the rule identifier"
	default:
		message = fmt.Sprintf("rule error for %s", ruleID)
		suggestion = "check the rule definition"
	}

	var result *PipelineError
	if err != nil {
		result = Wrap(err, CategoryRule, code, message)
	} else {
		result = New(CategoryRule, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("rule_id", ruleID)
}

// DuplicateError creates a dedup rejection error for an insert
func DuplicateError(fingerprint, existingID string) *PipelineError {
	return New(CategoryDedup, CodeDuplicateTransaction,
		fmt.Sprintf("transaction with fingerprint %s already ingested as %s", fingerprint, existingID)).
		WithSuggestion("this row appears to be a re-upload of an existing transaction").
		WithContext("fingerprint", fingerprint).
		WithContext("existing_id", existingID)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *PipelineError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this configuration setting or use a config file"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	var result *PipelineError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// ParseRowError creates a parse error for a specific ingestion row
func ParseRowError(code ErrorCode, file string, line int, column, value string, err error) *PipelineError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidFormat:
		message = fmt.Sprintf("invalid format in file %s at line %d, column '%s': '%s'", file, line, column, value)
		suggestion = "check the data format and ensure it matches the expected structure"
	case CodeMissingColumn:
		message = fmt.Sprintf("missing required column '%s' in file %s", column, file)
		suggestion = "verify the file has all required columns with correct headers"
	case CodeInvalidData:
		message = fmt.Sprintf("invalid data in file %s at line %d, column '%s': '%s'", file, line, column, value)
		suggestion = "correct the data format or remove the invalid entry"
	default:
		message = fmt.Sprintf("parse error in file %s at line %d", file, line)
		suggestion = "check the file format and data integrity"
	}

	var result *PipelineError
	if err != nil {
		result = Wrap(err, CategoryParse, code, message)
	} else {
		result = New(CategoryParse, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file", file).
		WithContext("line", line).
		WithContext("column", column).
		WithContext("value", value)
}

// IsCategory checks whether err is a PipelineError of the given category
func IsCategory(err error, category ErrorCategory) bool {
	pe, ok := AsPipelineError(err)
	return ok && pe.Category == category
}

// IsCode checks whether err is a PipelineError with the given code
func IsCode(err error, code ErrorCode) bool {
	pe, ok := AsPipelineError(err)
	return ok && pe.Code == code
}

// AsPipelineError extracts a PipelineError from an error chain
func AsPipelineError(err error) (*PipelineError, bool) {
	for err != nil {
		if pe, ok := err.(*PipelineError); ok {
			return pe, true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = unwrapper.Unwrap()
	}
	return nil, false
}
