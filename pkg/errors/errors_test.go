package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestPipelineError(t *testing.T) {
	tests := []struct {
		name       string
		category   ErrorCategory
		code       ErrorCode
		message    string
		cause      error
		expectCode int
	}{
		{
			name:       "file error",
			category:   CategoryFile,
			code:       CodeFileNotFound,
			message:    "file not found",
			cause:      errors.New("no such file"),
			expectCode: 2,
		},
		{
			name:       "parse error",
			category:   CategoryParse,
			code:       CodeInvalidFormat,
			message:    "invalid format",
			cause:      nil,
			expectCode: 3,
		},
		{
			name:       "configuration error",
			category:   CategoryConfiguration,
			code:       CodeInvalidConfig,
			message:    "invalid config",
			cause:      errors.New("missing field"),
			expectCode: 4,
		},
		{
			name:       "taxonomy error",
			category:   CategoryTaxonomy,
			code:       CodeUnknownCategory,
			message:    "unknown category",
			cause:      nil,
			expectCode: 5,
		},
		{
			name:       "dedup error",
			category:   CategoryDedup,
			code:       CodeDuplicateTransaction,
			message:    "duplicate transaction",
			cause:      nil,
			expectCode: 6,
		},
		{
			name:       "classification error",
			category:   CategoryClassification,
			code:       CodeUnknownTransaction,
			message:    "unknown transaction",
			cause:      nil,
			expectCode: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err *PipelineError
			if tt.cause != nil {
				err = Wrap(tt.cause, tt.category, tt.code, tt.message)
			} else {
				err = New(tt.category, tt.code, tt.message)
			}

			if err.Category != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, err.Category)
			}
			if err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, err.Code)
			}
			if err.Message != tt.message {
				t.Errorf("expected message %s, got %s", tt.message, err.Message)
			}

			if err.GetExitCode() != tt.expectCode {
				t.Errorf("expected exit code %d, got %d", tt.expectCode, err.GetExitCode())
			}

			if err.Error() != tt.message {
				t.Errorf("expected error string %s, got %s", tt.message, err.Error())
			}

			if tt.cause != nil && err.Unwrap() != tt.cause {
				t.Errorf("expected to unwrap to %v, got %v", tt.cause, err.Unwrap())
			}
		})
	}
}

func TestErrorStringIncludesSuggestion(t *testing.T) {
	err := New(CategoryRule, CodeUnknownRule, "rule missing").
		WithSuggestion("check the rule identifier")

	expected := "rule missing (suggestion: check the rule identifier)"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}

func TestWithContext(t *testing.T) {
	err := New(CategoryParse, CodeInvalidData, "bad row").
		WithContext("file", "statements.csv").
		WithContext("line", 7)

	if err.Context["file"] != "statements.csv" {
		t.Errorf("expected file context, got %v", err.Context["file"])
	}
	if err.Context["line"] != 7 {
		t.Errorf("expected line context, got %v", err.Context["line"])
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(nil, CategoryFile, CodeFileNotFound, "whatever"); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

func TestValidationError(t *testing.T) {
	err := ValidationError(CodeMissingField, "amount", nil, nil)

	if err.Category != CategoryValidation {
		t.Errorf("expected validation category, got %s", err.Category)
	}
	if err.Code != CodeMissingField {
		t.Errorf("expected missing_field code, got %s", err.Code)
	}
	if err.Suggestion == "" {
		t.Error("expected a suggestion")
	}
	if err.Context["field"] != "amount" {
		t.Errorf("expected field context, got %v", err.Context["field"])
	}
}

func TestTaxonomyError(t *testing.T) {
	err := TaxonomyError(CodeSubcategoryMismatch, "groceries", "food_delivery")

	if err.Category != CategoryTaxonomy {
		t.Errorf("expected taxonomy category, got %s", err.Category)
	}
	if err.Context["category_code"] != "groceries" {
		t.Errorf("expected category context, got %v", err.Context["category_code"])
	}
	if err.Context["subcategory_code"] != "food_delivery" {
		t.Errorf("expected subcategory context, got %v", err.Context["subcategory_code"])
	}
}

func TestRuleError(t *testing.T) {
	cause := errors.New("error parsing regexp")
	err := RuleError(CodeInvalidPattern, "rule-42", cause)

	if err.Category != CategoryRule {
		t.Errorf("expected rule category, got %s", err.Category)
	}
	if err.Unwrap() != cause {
		t.Errorf("expected cause to survive wrapping, got %v", err.Unwrap())
	}
}

func TestDuplicateError(t *testing.T) {
	err := DuplicateError("abcd1234", "tx-existing")

	if !IsCode(err, CodeDuplicateTransaction) {
		t.Error("expected duplicate_transaction code")
	}
	if !IsCategory(err, CategoryDedup) {
		t.Error("expected dedup category")
	}
	if err.Context["existing_id"] != "tx-existing" {
		t.Errorf("expected existing_id context, got %v", err.Context["existing_id"])
	}
}

func TestParseRowError(t *testing.T) {
	err := ParseRowError(CodeInvalidData, "statements.csv", 12, "amount", "abc", nil)

	if err.Context["line"] != 12 {
		t.Errorf("expected line context, got %v", err.Context["line"])
	}
	if err.Context["column"] != "amount" {
		t.Errorf("expected column context, got %v", err.Context["column"])
	}
}

func TestIsCodeThroughWrapping(t *testing.T) {
	inner := New(CategoryDedup, CodeDuplicateTransaction, "duplicate")
	outer := fmt.Errorf("inserting row: %w", inner)

	if !IsCode(outer, CodeDuplicateTransaction) {
		t.Error("IsCode should see through fmt.Errorf wrapping")
	}
	if IsCode(outer, CodeFileNotFound) {
		t.Error("IsCode matched the wrong code")
	}
	if IsCode(nil, CodeFileNotFound) {
		t.Error("IsCode(nil) should be false")
	}
	if IsCode(errors.New("plain"), CodeFileNotFound) {
		t.Error("IsCode on a plain error should be false")
	}
}

func TestAsPipelineError(t *testing.T) {
	pe := New(CategoryFile, CodeFileNotFound, "missing")

	got, ok := AsPipelineError(fmt.Errorf("outer: %w", pe))
	if !ok || got != pe {
		t.Errorf("AsPipelineError = %v, %v; want the inner error", got, ok)
	}

	if _, ok := AsPipelineError(errors.New("plain")); ok {
		t.Error("plain errors should not convert")
	}
}
