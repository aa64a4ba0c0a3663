package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestBuildError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *BuildError
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(CategoryConfig, SeverityFatal, "configuration invalid"),
			expected: "config (fatal): configuration invalid",
		},
		{
			name:     "error with cause",
			err:      Wrap(fmt.Errorf("file not found"), CategoryConfig, SeverityFatal, "failed to load config"),
			expected: "config (fatal): failed to load config: file not found",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := test.err.Error()
			if result != test.expected {
				t.Errorf("Error() = %q, want %q", result, test.expected)
			}
		})
	}
}

func TestBuildError_WithContext(t *testing.T) {
	err := New(CategoryBundle, SeverityError, "bundle failed").
		WithContext("unit", "widgets").
		WithContext("phase", "bundle")

	if err.Context == nil {
		t.Fatal("Context should not be nil")
	}
	if err.Context["unit"] != "widgets" {
		t.Errorf("Context[unit] = %v, want widgets", err.Context["unit"])
	}
	if err.Context["phase"] != "bundle" {
		t.Errorf("Context[phase] = %v, want bundle", err.Context["phase"])
	}
}

func TestIsCategory(t *testing.T) {
	configErr := New(CategoryConfig, SeverityFatal, "config error")
	wrapped := fmt.Errorf("outer: %w", New(CategoryRollup, SeverityError, "rollup error"))
	standardErr := fmt.Errorf("standard error")

	tests := []struct {
		name     string
		err      error
		category ErrorCategory
		expected bool
	}{
		{"config error matches config category", configErr, CategoryConfig, true},
		{"config error doesn't match rollup category", configErr, CategoryRollup, false},
		{"wrapped error is unwrapped", wrapped, CategoryRollup, true},
		{"standard error doesn't match any category", standardErr, CategoryConfig, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if result := IsCategory(test.err, test.category); result != test.expected {
				t.Errorf("IsCategory() = %v, want %v", result, test.expected)
			}
		})
	}
}

func TestGetCategory(t *testing.T) {
	if got := GetCategory(fmt.Errorf("plain")); got != CategoryInternal {
		t.Errorf("GetCategory(plain) = %v, want internal", got)
	}
	if got := GetCategory(New(CategoryExtract, SeverityError, "x")); got != CategoryExtract {
		t.Errorf("GetCategory = %v, want extract", got)
	}
}

func TestConvenienceFunctions(t *testing.T) {
	t.Run("DiscoveryError", func(t *testing.T) {
		cause := fmt.Errorf("permission denied")
		err := DiscoveryError("/src/packages", cause)
		if err.Category != CategoryDiscovery {
			t.Errorf("Category = %v, want %v", err.Category, CategoryDiscovery)
		}
		if err.Severity != SeverityFatal {
			t.Errorf("Severity = %v, want %v", err.Severity, SeverityFatal)
		}
		if !stdErrors.Is(err, cause) {
			t.Errorf("Cause should match wrapped cause: %v", cause)
		}
	})

	t.Run("PhaseFailed", func(t *testing.T) {
		err := PhaseFailed(CategoryBundle, "bundle", "widgets", fmt.Errorf("exit 1"))
		if err.Context["phase"] != "bundle" || err.Context["unit"] != "widgets" {
			t.Errorf("unexpected context %v", err.Context)
		}
	})

	t.Run("ValidationFailed", func(t *testing.T) {
		err := ValidationFailed("api.mode", "unsupported value")
		if err.Category != CategoryValidation {
			t.Errorf("Category = %v, want %v", err.Category, CategoryValidation)
		}
		if err.Context["field"] != "api.mode" {
			t.Errorf("Context[field] = %v, want api.mode", err.Context["field"])
		}
		if err.Context["reason"] != "unsupported value" {
			t.Errorf("Context[reason] = %v, want unsupported value", err.Context["reason"])
		}
	})
}
