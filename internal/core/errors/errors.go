// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Record validation errors. A record failing any of these checks is rejected
// at the ingestion boundary before a single keyword of it is accumulated.
var (
	// ErrUnknownCategory indicates a record's category is outside the configured set.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrNegativeArticleCount indicates a record with article_count below zero.
	ErrNegativeArticleCount = errors.New("negative article count")

	// ErrInvalidKeywordCount indicates a keyword occurrence count below one.
	ErrInvalidKeywordCount = errors.New("keyword count must be at least 1")

	// ErrInvalidIssueRank indicates an issue rank outside the published 1..10 range.
	ErrInvalidIssueRank = errors.New("issue rank out of range")

	// ErrInvalidWeekStart indicates a record without a usable week start date.
	ErrInvalidWeekStart = errors.New("invalid week start date")
)

// Query errors.
var (
	// ErrInvalidTopN indicates a top-N query with n below one.
	ErrInvalidTopN = errors.New("top-n must be positive")

	// ErrCategoryNotIngested indicates a time series query for a category
	// with zero ingested records.
	ErrCategoryNotIngested = errors.New("category has no ingested records")

	// ErrInvalidScope indicates a scope that names a month without a category.
	ErrInvalidScope = errors.New("scope month requires a category")
)

// Storage errors.
var (
	// ErrNotFound is a generic not found error.
	ErrNotFound = errors.New("not found")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
