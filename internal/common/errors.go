package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInternal         = errors.New("internal error")
	ErrDatabase         = errors.New("database error")
	ErrValidation       = errors.New("validation failed")
	ErrOCRUnavailable   = errors.New("ocr unavailable")
	ErrExtractionFailed = errors.New("extraction failed")
	ErrSchemaMismatch   = errors.New("feature schema mismatch")
)

// Error codes used in AppError.Code.
const (
	CodeConfig     = "CONFIG_ERROR"
	CodeDatabase   = "DATABASE_ERROR"
	CodeExtraction = "EXTRACTION_ERROR"
	CodeFetch      = "FETCH_ERROR"
	CodeModel      = "MODEL_ERROR"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsFatalToBatch reports whether err means the store is gone and the batch should stop.
func IsFatalToBatch(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code == CodeDatabase {
		return true
	}
	return errors.Is(err, ErrDatabase)
}
