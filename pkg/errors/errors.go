// Package errors provides the structured error system for the storage
// engine, with error codes, categories, and contextual details.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ErrorCode identifies a specific failure mode of the engine.
type ErrorCode string

const (
	// Input validation (rejected before any state mutation)
	ErrCodeEmptyPayload         ErrorCode = "EMPTY_PAYLOAD"
	ErrCodeUnsupportedAlgorithm ErrorCode = "UNSUPPORTED_ALGORITHM"
	ErrCodeLevelOutOfRange      ErrorCode = "LEVEL_OUT_OF_RANGE"
	ErrCodeInvalidInput         ErrorCode = "INVALID_INPUT"

	// Corruption (fatal, never silently recovered)
	ErrCodeChecksumMismatch ErrorCode = "CHECKSUM_MISMATCH"
	ErrCodeCRCMismatch      ErrorCode = "CRC_MISMATCH"
	ErrCodeDeltaCorrupt     ErrorCode = "DELTA_CORRUPT"
	ErrCodePackCorrupt      ErrorCode = "PACK_CORRUPT"

	// Capacity (fatal for the operation; the engine never resizes)
	ErrCodePackSizeExceeded ErrorCode = "PACK_SIZE_EXCEEDED"
	ErrCodeCacheFull        ErrorCode = "CACHE_FULL"

	// Storage and bookkeeping
	ErrCodeObjectNotFound ErrorCode = "OBJECT_NOT_FOUND"
	ErrCodeBlobNotFound   ErrorCode = "BLOB_NOT_FOUND"
	ErrCodeStorageWrite   ErrorCode = "STORAGE_WRITE"
	ErrCodeStorageRead    ErrorCode = "STORAGE_READ"
	ErrCodeRefUnderflow   ErrorCode = "REF_UNDERFLOW"
	ErrCodeChainTooDeep   ErrorCode = "CHAIN_TOO_DEEP"

	// Configuration
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	ErrCodeConfigLoad    ErrorCode = "CONFIG_LOAD"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// ErrorCategory is the broad family an error code belongs to. The
// calling write pipeline keys its abort decision off this.
type ErrorCategory string

const (
	CategoryInput      ErrorCategory = "input"
	CategoryCorruption ErrorCategory = "corruption"
	CategoryCapacity   ErrorCategory = "capacity"
	CategoryStorage    ErrorCategory = "storage"
	CategoryConfig     ErrorCategory = "config"
	CategoryInternal   ErrorCategory = "internal"
)

var codeCategories = map[ErrorCode]ErrorCategory{
	ErrCodeEmptyPayload:         CategoryInput,
	ErrCodeUnsupportedAlgorithm: CategoryInput,
	ErrCodeLevelOutOfRange:      CategoryInput,
	ErrCodeInvalidInput:         CategoryInput,
	ErrCodeChecksumMismatch:     CategoryCorruption,
	ErrCodeCRCMismatch:          CategoryCorruption,
	ErrCodeDeltaCorrupt:         CategoryCorruption,
	ErrCodePackCorrupt:          CategoryCorruption,
	ErrCodePackSizeExceeded:     CategoryCapacity,
	ErrCodeCacheFull:            CategoryCapacity,
	ErrCodeObjectNotFound:       CategoryStorage,
	ErrCodeBlobNotFound:         CategoryStorage,
	ErrCodeStorageWrite:         CategoryStorage,
	ErrCodeStorageRead:          CategoryStorage,
	ErrCodeRefUnderflow:         CategoryStorage,
	ErrCodeChainTooDeep:         CategoryStorage,
	ErrCodeInvalidConfig:        CategoryConfig,
	ErrCodeConfigLoad:           CategoryConfig,
	ErrCodeInternal:             CategoryInternal,
}

// GetCategory returns the category for a code, defaulting to internal
// for codes it does not know.
func GetCategory(code ErrorCode) ErrorCategory {
	if cat, ok := codeCategories[code]; ok {
		return cat
	}
	return CategoryInternal
}

// EngineError is the structured error type returned by every engine
// component. It carries a code, a category derived from the code, the
// component and operation that produced it, and optional details.
type EngineError struct {
	Code     ErrorCode      `json:"code"`
	Category ErrorCategory  `json:"category"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`

	Component string    `json:"component,omitempty"`
	Operation string    `json:"operation,omitempty"`
	Cause     error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Component != "" {
		if e.Operation != "" {
			return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Code, e.Message)
		}
		return fmt.Sprintf("[%s] %s: %s", e.Component, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// Is matches on error code so callers can compare against a bare
// New(code, "") sentinel.
func (e *EngineError) Is(target error) bool {
	if other, ok := target.(*EngineError); ok {
		return e.Code == other.Code
	}
	return false
}

// String returns a detailed representation for logs.
func (e *EngineError) String() string {
	parts := []string{
		fmt.Sprintf("Code=%s", e.Code),
		fmt.Sprintf("Category=%s", e.Category),
		fmt.Sprintf("Message=%q", e.Message),
	}
	if e.Component != "" {
		parts = append(parts, fmt.Sprintf("Component=%s", e.Component))
	}
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("Operation=%s", e.Operation))
	}
	for k, v := range e.Details {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("Cause=%q", e.Cause.Error()))
	}
	return fmt.Sprintf("EngineError{%s}", strings.Join(parts, ", "))
}

// New creates an EngineError with the given code and message.
func New(code ErrorCode, message string) *EngineError {
	return &EngineError{
		Code:      code,
		Category:  GetCategory(code),
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Newf creates an EngineError with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *EngineError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap creates an EngineError wrapping a cause.
func Wrap(code ErrorCode, message string, cause error) *EngineError {
	e := New(code, message)
	e.Cause = cause
	return e
}

// In attaches the component name producing the error.
func (e *EngineError) In(component string) *EngineError {
	e.Component = component
	return e
}

// During attaches the operation name producing the error.
func (e *EngineError) During(operation string) *EngineError {
	e.Operation = operation
	return e
}

// WithDetail attaches one key/value pair of context.
func (e *EngineError) WithDetail(key string, value any) *EngineError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// IsCorruption reports whether err is an engine corruption error.
func IsCorruption(err error) bool {
	return hasCategory(err, CategoryCorruption)
}

// IsCapacity reports whether err is an engine capacity error.
func IsCapacity(err error) bool {
	return hasCategory(err, CategoryCapacity)
}

// IsInvalidInput reports whether err is an input validation error.
func IsInvalidInput(err error) bool {
	return hasCategory(err, CategoryInput)
}

func hasCategory(err error, cat ErrorCategory) bool {
	for err != nil {
		if e, ok := err.(*EngineError); ok {
			return e.Category == cat
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
