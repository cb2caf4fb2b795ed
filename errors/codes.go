package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Contract violations (never recovered)
const (
	// ErrCodeInvalidArgument indicates a malformed registration request or a
	// nil collaborator handed to a constructor.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
)

// Resolution errors
const (
	// ErrCodeNotRegistered indicates that no registration exists for a service key.
	ErrCodeNotRegistered ErrorCode = "NOT_REGISTERED"
	// ErrCodeUseAfterDispose indicates an operation on a disposed scope.
	ErrCodeUseAfterDispose ErrorCode = "USE_AFTER_DISPOSE"
	// ErrCodeConstructionFailure indicates that a constructor, factory or
	// native container failed while producing an instance.
	ErrCodeConstructionFailure ErrorCode = "CONSTRUCTION_FAILURE"
)

// Lifecycle errors
const (
	// ErrCodeDisposeFailure indicates that releasing one or more owned
	// resources failed. Disposal still completes.
	ErrCodeDisposeFailure ErrorCode = "DISPOSE_FAILURE"
	// ErrCodeInternal indicates an unexpected failure inside an adapter.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// A failed singleton construction leaves no cached value behind, so the
// same Resolve may succeed on the next call.
var retryableCodes = map[ErrorCode]bool{
	ErrCodeConstructionFailure: true,
	ErrCodeInvalidArgument:     false,
	ErrCodeNotRegistered:       false,
	ErrCodeUseAfterDispose:     false,
	ErrCodeDisposeFailure:      false,
	ErrCodeInternal:            false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
