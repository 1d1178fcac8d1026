// Package mcp implements the Model Context Protocol (MCP) server for Caselaw.
package mcp

import (
	"context"
	"errors"
	"fmt"

	caselawerrors "github.com/swiss-caselaw/caselawmcp/internal/errors"
)

// Custom MCP error codes for Caselaw.
const (
	// ErrCodeCorpusUnavailable indicates no decisions corpus is open.
	ErrCodeCorpusUnavailable = -32001

	// ErrCodeEmbeddingFailed indicates embedding generation failed.
	ErrCodeEmbeddingFailed = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// ErrCodeDecisionNotFound indicates a decision_id/docket did not resolve.
	ErrCodeDecisionNotFound = -32004

	// ErrCodeGraphUnavailable indicates the citation graph database is not loaded.
	ErrCodeGraphUnavailable = -32005

	// ErrCodeStatutesUnavailable indicates the Fedlex statute database is not loaded.
	ErrCodeStatutesUnavailable = -32006

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Sentinel errors for internal use.
var (
	// ErrCorpusUnavailable indicates no decisions corpus is open.
	ErrCorpusUnavailable = errors.New("decisions corpus not available")

	// ErrEmbeddingFailed indicates embedding generation failed.
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrToolNotFound indicates the requested tool does not exist.
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidParams indicates invalid parameters were provided.
	ErrInvalidParams = errors.New("invalid parameters")

	// ErrResourceNotFound indicates the requested resource does not exist.
	ErrResourceNotFound = errors.New("resource not found")
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
// It maps known error types to appropriate MCP error codes and messages.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var caselawErr *caselawerrors.CaselawError
	if errors.As(err, &caselawErr) {
		return mapCaselawError(caselawErr)
	}

	switch {
	case errors.Is(err, ErrCorpusUnavailable):
		return &MCPError{
			Code:    ErrCodeCorpusUnavailable,
			Message: "No decisions corpus found. Run 'caselaw index' first.",
		}
	case errors.Is(err, ErrEmbeddingFailed):
		return &MCPError{
			Code:    ErrCodeEmbeddingFailed,
			Message: "Embedding generation failed. Using BM25-only results.",
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request timed out.",
		}
	case errors.Is(err, context.Canceled):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request was canceled.",
		}
	case errors.Is(err, ErrToolNotFound):
		return &MCPError{
			Code:    ErrCodeMethodNotFound,
			Message: "Tool not found.",
		}
	case errors.Is(err, ErrInvalidParams):
		return &MCPError{
			Code:    ErrCodeInvalidParams,
			Message: "Invalid parameters.",
		}
	case errors.Is(err, ErrResourceNotFound):
		return &MCPError{
			Code:    ErrCodeMethodNotFound,
			Message: "Resource not found.",
		}
	default:
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: "Internal server error.",
		}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{
		Code:    ErrCodeInvalidParams,
		Message: msg,
	}
}

// NewMethodNotFoundError creates an error for unknown methods/tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

// NewResourceNotFoundError creates an error for unknown resources.
func NewResourceNotFoundError(uri string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Resource '%s' not found.", uri),
	}
}

// mapCaselawError converts a CaselawError to an MCPError, preferring the
// domain-specific corpus/graph/statutes codes over the generic category
// mapping when the error carries one of those codes.
func mapCaselawError(ce *caselawerrors.CaselawError) *MCPError {
	message := ce.Message
	if ce.Suggestion != "" {
		message = fmt.Sprintf("%s %s", ce.Message, ce.Suggestion)
	}

	switch ce.Code {
	case caselawerrors.ErrCodeDecisionNotFound, caselawerrors.ErrCodeDocketInvalid:
		return &MCPError{Code: ErrCodeDecisionNotFound, Message: message}
	case caselawerrors.ErrCodeCorpusUnavailable:
		return &MCPError{Code: ErrCodeCorpusUnavailable, Message: message}
	case caselawerrors.ErrCodeGraphUnavailable, caselawerrors.ErrCodeChainTooDeep:
		return &MCPError{Code: ErrCodeGraphUnavailable, Message: message}
	case caselawerrors.ErrCodeStatutesUnavailable, caselawerrors.ErrCodeLawNotFound, caselawerrors.ErrCodeArticleNotFound:
		return &MCPError{Code: ErrCodeStatutesUnavailable, Message: message}
	}

	switch ce.Category {
	case caselawerrors.CategoryConfig, caselawerrors.CategoryIO:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	case caselawerrors.CategoryNetwork:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	case caselawerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	default: // CategoryInternal and unknown
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
