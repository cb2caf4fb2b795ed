package errors

import (
	"fmt"
)

// AppError is the unified error type of the injection layer.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Common Error Constructors ---

// InvalidArgument creates a new AppError for a malformed request argument.
func InvalidArgument(argument, reason string) *AppError {
	details := make(map[string]any)
	if argument != "" {
		details["argument"] = argument
	}
	return &AppError{
		Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("Invalid argument %s: %s", argument, reason),
		Retryable: false, Details: details,
	}
}

// NotRegistered creates a new AppError for a service key without registration.
func NotRegistered(service string) *AppError {
	return &AppError{
		Code: ErrCodeNotRegistered, Message: fmt.Sprintf("No registration found for %s.", service),
		Retryable: false,
		Details:   map[string]any{"service": service},
	}
}

// UseAfterDispose creates a new AppError for an operation on a disposed resource.
func UseAfterDispose(resource, operation string) *AppError {
	return &AppError{
		Code: ErrCodeUseAfterDispose, Message: fmt.Sprintf("Cannot %s: %s has been disposed.", operation, resource),
		Retryable: false,
		Details:   map[string]any{"resource": resource, "operation": operation},
	}
}

// ConstructionFailed creates a new AppError for a producer that failed.
// The cause is kept as-is so callers can inspect it.
func ConstructionFailed(service string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeConstructionFailure, Message: fmt.Sprintf("Failed to construct %s.", service),
		Retryable: true, Cause: cause,
		Details: map[string]any{"service": service},
	}
}

// DisposeFailed creates a new AppError for a release that reported errors.
func DisposeFailed(resource string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeDisposeFailure, Message: fmt.Sprintf("Disposing %s reported errors.", resource),
		Retryable: false, Cause: cause,
		Details: map[string]any{"resource": resource},
	}
}

// Validation creates a new AppError for a value that failed validation.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidArgument, Message: message,
		Retryable: false,
	}
}

// Internal creates a new AppError for an unexpected adapter failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred inside the container adapter.",
		Retryable: false, Cause: cause,
	}
}
