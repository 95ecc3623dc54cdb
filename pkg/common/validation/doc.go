// Package validation provides common validation utilities for configuration
// parameters across the poolmon packages.
//
// This package offers reusable validation functions that help ensure
// consistent error messages and reduce boilerplate code in constructors
// such as workerpool.NewWithConfig and the scheduler's Schedule methods.
package validation
