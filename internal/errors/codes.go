// Package errors provides structured error handling for addrmatch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors (reported at construction, never during search)
//   - 2XX: Candidate source errors (file, directory, database)
//   - 4XX: Input validation errors
//   - 5XX: Internal errors
//
// An empty result is not an error: "searched and found nothing" is an empty
// slice, while a source error means the search could not run.
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates invalid matcher or file configuration.
	CategoryConfig Category = "CONFIG"
	// CategorySource indicates a candidate source could not be read.
	CategorySource Category = "SOURCE"
	// CategoryValidation indicates invalid caller input.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeInvalidSensitivity = "ERR_101_INVALID_SENSITIVITY"
	ErrCodeInvalidKeep        = "ERR_102_INVALID_KEEP"
	ErrCodeInvalidWorkers     = "ERR_103_INVALID_WORKERS"
	ErrCodeConfigInvalid      = "ERR_104_CONFIG_INVALID"

	// Source errors (200-299)
	ErrCodeSourceNotFound   = "ERR_201_SOURCE_NOT_FOUND"
	ErrCodeSourceUnreadable = "ERR_202_SOURCE_UNREADABLE"
	ErrCodeShardFailed      = "ERR_203_SHARD_FAILED"

	// Validation errors (400-499)
	ErrCodeInvalidInput       = "ERR_401_INVALID_INPUT"
	ErrCodeMissingHouseNumber = "ERR_402_MISSING_HOUSE_NUMBER"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	// "ERR_" prefix plus three digits
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategorySource
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}
