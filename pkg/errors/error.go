// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Validation errors (100-199): Invalid parameters, orders, bars and data layouts
//   - Data/Resource errors (200-299): Data not found, query failures, lookback underrun
//   - Product configuration errors (300-399): Tick size lookup misses
//   - Strategy errors (400-499): Strategy loading, configuration, and runtime errors
//   - Trading errors (500-599): Order matching and position ledger invariants
//   - Backtest errors (600-699): Backtesting engine and state errors
//   - Market data errors (700-799): Bar parsing and result export failures
//   - Callback errors (800-899): Callback execution failures
//
// Every constructor returns *Error, which prints as "[code] message: cause".
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInvalidParameter, "invalid parameter value")
//
//	// Create a formatted error
//	err := errors.Newf(errors.ErrCodeConfigNotFound, "product id `%d` is not found", id)
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeQueryFailed, "failed to execute query", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeDataNotFound) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// InsufficientBarsError reports a bar file too short to fill one lookback window.
type InsufficientBarsError struct {
	Lookback int
	Bars     int
}

func NewInsufficientBarsError(lookback, bars int) *InsufficientBarsError {
	return &InsufficientBarsError{
		Lookback: lookback,
		Bars:     bars,
	}
}

func (e *InsufficientBarsError) Error() string {
	return fmt.Sprintf("need %d bars for the lookback, got %d", e.Lookback, e.Bars)
}

// Missing returns how many bars are short of one full window.
func (e *InsufficientBarsError) Missing() int {
	return max(e.Lookback-e.Bars, 0)
}

// IsInsufficientBarsError checks the chain of err for an InsufficientBarsError.
func IsInsufficientBarsError(err error) bool {
	var barsErr *InsufficientBarsError

	return errors.As(err, &barsErr)
}
