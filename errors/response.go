package errors

import (
	stderrors "errors"
)

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the outermost AppError in the chain, or an
// empty code when there is none.
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ""
}

// IsInvalidArgument reports whether err is an INVALID_ARGUMENT failure.
func IsInvalidArgument(err error) bool { return CodeOf(err) == ErrCodeInvalidArgument }

// IsNotRegistered reports whether err is a NOT_REGISTERED failure.
// A construction failure caused by a missing dependency is not.
func IsNotRegistered(err error) bool { return CodeOf(err) == ErrCodeNotRegistered }

// IsUseAfterDispose reports whether err is a USE_AFTER_DISPOSE failure.
func IsUseAfterDispose(err error) bool { return CodeOf(err) == ErrCodeUseAfterDispose }

// IsConstructionFailure reports whether err is a CONSTRUCTION_FAILURE.
func IsConstructionFailure(err error) bool { return CodeOf(err) == ErrCodeConstructionFailure }

// Join combines errors collected while releasing several resources.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}
