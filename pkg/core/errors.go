package core

import (
	"errors"
	"fmt"
)

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string         // Machine-readable code: resolution_miss, wait_timeout, etc.
	Message  string         // Human-readable message
	Details  map[string]any // Additional context
	Cause    error          // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is matches any ExecutionError with the same code, so copies made with
// WithCause/WithMessage still match the predefined values.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok {
		return false
	}
	return e.Code != "" && e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithMessagef is WithMessage with formatting
func (e *ExecutionError) WithMessagef(format string, args ...any) *ExecutionError {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]any) *ExecutionError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined errors
var (
	// Resolution errors (transient while waiting)
	ErrResolutionMiss = &ExecutionError{
		Category: ErrCategoryResolution,
		Code:     "resolution_miss",
		Message:  "no element matches locator",
	}
	ErrStaleElement = &ExecutionError{
		Category: ErrCategoryResolution,
		Code:     "stale_element",
		Message:  "element is no longer attached to the page",
	}

	// Timeout errors
	ErrWaitTimeout = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     "wait_timeout",
		Message:  "wait condition timed out",
	}

	// Interaction errors
	ErrActionRejected = &ExecutionError{
		Category: ErrCategoryRejected,
		Code:     "action_rejected",
		Message:  "element is not interactable",
	}

	// Assertion errors
	ErrAssertionMismatch = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "assertion_mismatch",
		Message:  "observed state does not match expectation",
	}

	// Driver errors
	ErrDriverFault = &ExecutionError{
		Category: ErrCategoryDriver,
		Code:     "driver_fault",
		Message:  "browser session is unreachable",
	}

	// Config errors
	ErrInvalidStep = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "invalid_step",
		Message:  "invalid step definition",
	}
)

// NewExecutionError creates a new ExecutionError with the given parameters
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// CategoryOf returns the category of the first ExecutionError in err's chain.
// Errors outside the taxonomy are attributed to the driver.
func CategoryOf(err error) ErrorCategory {
	if err == nil {
		return ErrCategoryNone
	}
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Category
	}
	return ErrCategoryDriver
}

// IsTransient reports whether err is a state a wait may outlive:
// a missing or detached element.
func IsTransient(err error) bool {
	return errors.Is(err, ErrResolutionMiss) || errors.Is(err, ErrStaleElement)
}

// IsFatal reports whether err must abort the run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrDriverFault)
}
