package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	caselawerrors "github.com/swiss-caselaw/caselawmcp/internal/errors"
)

func TestMapError_NilError(t *testing.T) {
	var err error = nil

	result := MapError(err)

	assert.Nil(t, result)
}

func TestMapError_CorpusUnavailable(t *testing.T) {
	err := ErrCorpusUnavailable

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeCorpusUnavailable, result.Code)
	assert.Contains(t, result.Message, "corpus")
}

func TestMapError_EmbeddingFailed(t *testing.T) {
	err := ErrEmbeddingFailed

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeEmbeddingFailed, result.Code)
	assert.Contains(t, result.Message, "Embedding")
}

func TestMapError_DeadlineExceeded(t *testing.T) {
	err := context.DeadlineExceeded

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeTimeout, result.Code)
	assert.Contains(t, result.Message, "timed out")
}

func TestMapError_Canceled(t *testing.T) {
	err := context.Canceled

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeTimeout, result.Code)
	assert.Contains(t, result.Message, "canceled")
}

func TestMapError_ToolNotFound(t *testing.T) {
	err := ErrToolNotFound

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeMethodNotFound, result.Code)
}

func TestMapError_InvalidParams(t *testing.T) {
	err := ErrInvalidParams

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeInvalidParams, result.Code)
}

func TestMapError_UnknownError(t *testing.T) {
	err := errors.New("some unknown error")

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeInternalError, result.Code)
	assert.Contains(t, result.Message, "Internal server error")
}

func TestMapError_WrappedError(t *testing.T) {
	err := fmt.Errorf("failed to search: %w", ErrCorpusUnavailable)

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeCorpusUnavailable, result.Code)
}

func TestMCPError_Error(t *testing.T) {
	err := &MCPError{
		Code:    ErrCodeInvalidParams,
		Message: "missing required field",
	}

	msg := err.Error()

	assert.Contains(t, msg, "MCP error")
	assert.Contains(t, msg, "-32602")
	assert.Contains(t, msg, "missing required field")
}

func TestNewInvalidParamsError(t *testing.T) {
	msg := "query parameter is required"

	err := NewInvalidParamsError(msg)

	assert.Equal(t, ErrCodeInvalidParams, err.Code)
	assert.Equal(t, msg, err.Message)
}

func TestNewMethodNotFoundError(t *testing.T) {
	name := "unknown_tool"

	err := NewMethodNotFoundError(name)

	assert.Equal(t, ErrCodeMethodNotFound, err.Code)
	assert.Contains(t, err.Message, name)
}

func TestNewResourceNotFoundError(t *testing.T) {
	uri := "decision://BGE_148_III_1"

	err := NewResourceNotFoundError(uri)

	assert.Equal(t, ErrCodeMethodNotFound, err.Code)
	assert.Contains(t, err.Message, uri)
}

func TestMapError_CaselawError_DecisionNotFound(t *testing.T) {
	err := caselawerrors.New(caselawerrors.ErrCodeDecisionNotFound, "decision '9C_1/2023' not found", nil)

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeDecisionNotFound, result.Code)
	assert.Contains(t, result.Message, "9C_1/2023")
}

func TestMapError_CaselawError_DocketInvalid(t *testing.T) {
	err := caselawerrors.New(caselawerrors.ErrCodeDocketInvalid, "docket number is malformed", nil)

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeDecisionNotFound, result.Code)
}

func TestMapError_CaselawError_CorpusUnavailable(t *testing.T) {
	err := caselawerrors.New(caselawerrors.ErrCodeCorpusUnavailable, "decisions.db not found", nil)

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeCorpusUnavailable, result.Code)
}

func TestMapError_CaselawError_GraphUnavailable(t *testing.T) {
	err := caselawerrors.New(caselawerrors.ErrCodeGraphUnavailable, "citation graph not loaded", nil)

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeGraphUnavailable, result.Code)
}

func TestMapError_CaselawError_ChainTooDeep(t *testing.T) {
	err := caselawerrors.New(caselawerrors.ErrCodeChainTooDeep, "appeal chain exceeds max depth", nil)

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeGraphUnavailable, result.Code)
}

func TestMapError_CaselawError_StatutesUnavailable(t *testing.T) {
	err := caselawerrors.New(caselawerrors.ErrCodeStatutesUnavailable, "statutes.db not found", nil)

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeStatutesUnavailable, result.Code)
}

func TestMapError_CaselawError_LawNotFound(t *testing.T) {
	err := caselawerrors.New(caselawerrors.ErrCodeLawNotFound, "law 'XX' not found", nil)

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeStatutesUnavailable, result.Code)
}

func TestMapError_CaselawError_ValidationFallsBackToCategory(t *testing.T) {
	err := caselawerrors.New(caselawerrors.ErrCodeQueryEmpty, "query cannot be empty", nil)

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeInvalidParams, result.Code)
}

func TestMapError_CaselawError_NetworkFallsBackToTimeout(t *testing.T) {
	err := caselawerrors.New(caselawerrors.ErrCodeNetworkTimeout, "connection timed out", nil)

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeTimeout, result.Code)
}

func TestMapError_CaselawError_WithSuggestion(t *testing.T) {
	err := caselawerrors.New(caselawerrors.ErrCodeStatutesUnavailable, "statutes.db not found", nil).
		WithSuggestion("deploy statutes.db to enable statute lookup")

	result := MapError(err)

	require.NotNil(t, result)
	assert.Contains(t, result.Message, "statutes.db not found")
	assert.Contains(t, result.Message, "deploy statutes.db")
}

func TestMapError_CaselawError_Internal(t *testing.T) {
	err := caselawerrors.New(caselawerrors.ErrCodeInternal, "unexpected error", nil)

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeInternalError, result.Code)
}

func TestMapError_WrappedCaselawError(t *testing.T) {
	inner := caselawerrors.New(caselawerrors.ErrCodeNetworkTimeout, "timeout", nil)
	err := fmt.Errorf("operation failed: %w", inner)

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeTimeout, result.Code)
}
