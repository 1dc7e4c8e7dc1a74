// Package mcp exposes addrmatch over the Model Context Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"

	amerrors "github.com/Aman-CERP/addrmatch/internal/errors"
)

// Custom MCP error codes.
const (
	// ErrCodeSourceUnavailable indicates a candidate file, directory or
	// database could not be read.
	ErrCodeSourceUnavailable = -32001

	// ErrCodeTimeout indicates the request timed out or was canceled.
	ErrCodeTimeout = -32003

	// ErrCodeStreetDataMissing indicates match_street was called without
	// a configured street data directory.
	ErrCodeStreetDataMissing = -32004

	// Standard JSON-RPC error codes.
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// ErrStreetDataMissing is returned by match_street when the server has no
// street matcher.
var ErrStreetDataMissing = errors.New("street data not configured")

// MCPError is a protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors. Structured errors keep
// their message and suggestion.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	var e *amerrors.Error
	if errors.As(err, &e) {
		return mapStructured(e)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	case errors.Is(err, ErrStreetDataMissing):
		return &MCPError{
			Code:    ErrCodeStreetDataMissing,
			Message: "Street data is not configured. Set street.data_dir or ADDRMATCH_DATA_DIR.",
		}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("Tool '%s' not found.", name)}
}

func mapStructured(e *amerrors.Error) *MCPError {
	message := e.Message
	if e.Suggestion != "" {
		message = fmt.Sprintf("%s %s", e.Message, e.Suggestion)
	}

	switch e.Category {
	case amerrors.CategoryConfig, amerrors.CategoryValidation:
		// Tool arguments carry the settings, so both are caller mistakes.
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case amerrors.CategorySource:
		return &MCPError{Code: ErrCodeSourceUnavailable, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
