package flows

import (
	"context"
	"errors"

	"buildmycv-backend/internal/extract"
	"buildmycv-backend/internal/llm"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrSchemaMismatch = errors.New("model output does not match schema")
)

// Error codes shared by logs, run history and the HTTP API.
const (
	CodeValidation     = "validation_error"
	CodeTimeout        = "llm_timeout"
	CodeContentBlocked = "content_blocked"
	CodeSchemaMismatch = "schema_mismatch"
	CodeLLM            = "llm_error"
	CodeInternal       = "internal"
)

// ErrorCode classifies a flow error.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return CodeValidation
	case errors.Is(err, ErrSchemaMismatch):
		return CodeSchemaMismatch
	case errors.Is(err, llm.ErrModelTimeout):
		return CodeTimeout
	case errors.Is(err, llm.ErrContentBlocked):
		return CodeContentBlocked
	case errors.Is(err, llm.ErrTemplate), errors.Is(err, context.Canceled):
		return CodeInternal
	default:
		return CodeLLM
	}
}

// classifyModelError folds provider output failures into ErrSchemaMismatch
// and unreadable documents into ErrInvalidInput.
func classifyModelError(err error) error {
	switch {
	case errors.Is(err, llm.ErrMalformedOutput), errors.Is(err, llm.ErrEmptyResponse):
		return errors.Join(ErrSchemaMismatch, err)
	case errors.Is(err, extract.ErrUnsupportedType), errors.Is(err, extract.ErrEmptyDocument),
		errors.Is(err, extract.ErrUnreadable):
		return errors.Join(ErrInvalidInput, err)
	}
	return err
}
