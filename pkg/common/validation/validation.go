// Package validation provides common validation utilities for the poolmon packages.
package validation

import (
	"fmt"
	"reflect"

	pmerrors "github.com/vnykmshr/poolmon/pkg/common/errors"
)

// ValidatePositive validates that an integer value is positive (> 0).
// Returns a ValidationError if the value is not positive.
func ValidatePositive(module, field string, value int) error {
	if value <= 0 {
		return pmerrors.NewValidationError(module, field, value, "must be positive").
			WithHint("value must be greater than 0")
	}
	return nil
}

// ValidateNonNegative validates that a numeric value is non-negative (>= 0).
// Returns a ValidationError if the value is negative.
func ValidateNonNegative(module, field string, value float64) error {
	if value < 0 {
		return pmerrors.NewValidationError(module, field, value, "cannot be negative").
			WithHint("use 0 or a positive value")
	}
	return nil
}

// ValidateAtLeast validates that an integer value is not below min.
func ValidateAtLeast(module, field string, value, min int) error {
	if value < min {
		return pmerrors.NewValidationError(module, field, value, fmt.Sprintf("must be >= %d", min)).
			WithHint(fmt.Sprintf("use %d or a larger value", min))
	}
	return nil
}

// ValidateNotNil validates that an interface value is not nil, including an
// interface holding a nil pointer, map, slice, channel or func.
// Returns a ValidationError if the value is nil.
func ValidateNotNil(module, field string, value interface{}) error {
	if isNil(value) {
		return pmerrors.NewValidationError(module, field, nil, "cannot be nil").
			WithHint("provide a valid " + field)
	}
	return nil
}

// ValidateNotEmpty validates that a string value is not empty.
// Returns a ValidationError if the string is empty.
func ValidateNotEmpty(module, field string, value string) error {
	if value == "" {
		return pmerrors.NewValidationError(module, field, value, "cannot be empty").
			WithHint("provide a non-empty " + field)
	}
	return nil
}

// ValidateMaxLength validates that a string is at most max bytes long.
func ValidateMaxLength(module, field, value string, max int) error {
	if len(value) > max {
		return pmerrors.NewValidationError(module, field, len(value), fmt.Sprintf("too long (max %d characters)", max)).
			WithHint("shorten the " + field)
	}
	return nil
}

func isNil(value interface{}) bool {
	if value == nil {
		return true
	}
	switch v := reflect.ValueOf(value); v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}
