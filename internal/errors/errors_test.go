package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("permission denied")

	// When: wrapping it as a source error
	err := SourceError(ErrCodeSourceUnreadable, "/data/plzs/1201", originalErr)

	// Then: unwrapping returns the original error
	require.NotNil(t, err)
	assert.Equal(t, originalErr, errors.Unwrap(err))
	assert.True(t, errors.Is(err, originalErr))
	assert.Equal(t, "/data/plzs/1201", err.Details["source"])
}

func TestError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "sensitivity",
			code:     ErrCodeInvalidSensitivity,
			message:  "sensitivity must be within [0, 1]",
			expected: "[ERR_101_INVALID_SENSITIVITY] sensitivity must be within [0, 1]",
		},
		{
			name:     "source",
			code:     ErrCodeSourceNotFound,
			message:  "no such directory",
			expected: "[ERR_201_SOURCE_NOT_FOUND] no such directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestError_Is_MatchesByCode(t *testing.T) {
	err := New(ErrCodeInvalidKeep, "keep must be non-negative", nil)
	wrapped := fmt.Errorf("building matcher: %w", err)

	assert.True(t, errors.Is(wrapped, New(ErrCodeInvalidKeep, "", nil)))
	assert.False(t, errors.Is(wrapped, New(ErrCodeInvalidSensitivity, "", nil)))
}

func TestCategoryFromCode(t *testing.T) {
	assert.Equal(t, CategoryConfig, categoryFromCode(ErrCodeInvalidWorkers))
	assert.Equal(t, CategorySource, categoryFromCode(ErrCodeShardFailed))
	assert.Equal(t, CategoryValidation, categoryFromCode(ErrCodeMissingHouseNumber))
	assert.Equal(t, CategoryInternal, categoryFromCode(ErrCodeInternal))
	assert.Equal(t, CategoryInternal, categoryFromCode("bad"))
}

func TestIsConfigAndSourceError(t *testing.T) {
	cfgErr := fmt.Errorf("wrap: %w", ConfigError(ErrCodeInvalidSensitivity, "too high"))
	srcErr := SourceError(ErrCodeSourceNotFound, "missing.txt", nil)

	assert.True(t, IsConfigError(cfgErr))
	assert.False(t, IsSourceError(cfgErr))
	assert.True(t, IsSourceError(srcErr))
	assert.False(t, IsConfigError(srcErr))
	assert.False(t, IsConfigError(errors.New("plain")))
	assert.False(t, IsSourceError(nil))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestFormatForCLI(t *testing.T) {
	err := ConfigError(ErrCodeInvalidKeep, "keep must be non-negative, got -1").
		WithSuggestion("pass --keep 0 or greater")

	out := FormatForCLI(err)

	assert.Contains(t, out, "Error: keep must be non-negative, got -1")
	assert.Contains(t, out, "Hint: pass --keep 0 or greater")
	assert.Contains(t, out, "Code: ERR_102_INVALID_KEEP")
	assert.Empty(t, FormatForCLI(nil))
	assert.Contains(t, FormatForCLI(errors.New("boom")), ErrCodeInternal)
}

func TestFormatJSON(t *testing.T) {
	err := SourceError(ErrCodeSourceUnreadable, "db.sqlite", errors.New("locked"))

	data, jerr := FormatJSON(err)
	require.NoError(t, jerr)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ErrCodeSourceUnreadable, decoded["code"])
	assert.Equal(t, "SOURCE", decoded["category"])
	assert.Equal(t, "locked", decoded["cause"])
}

func TestLogAttrs(t *testing.T) {
	err := SourceError(ErrCodeShardFailed, "1201", nil)

	attrs := LogAttrs(err)

	assert.Contains(t, attrs, "error_code")
	assert.Contains(t, attrs, ErrCodeShardFailed)
	assert.Contains(t, attrs, "detail_source")
	assert.Equal(t, []any{"error", "plain"}, LogAttrs(errors.New("plain")))
	assert.Nil(t, LogAttrs(nil))
}
