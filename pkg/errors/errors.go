package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown        ErrorCode = "UNKNOWN"
	ErrInternal       ErrorCode = "INTERNAL"
	ErrInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrPermission     ErrorCode = "PERMISSION"
	ErrNotImplemented ErrorCode = "NOT_IMPLEMENTED"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigValid ErrorCode = "CONFIG_INVALID"

	// State errors
	ErrStateMissing       ErrorCode = "STATE_MISSING"
	ErrStateCorrupt       ErrorCode = "STATE_CORRUPT"
	ErrStateExists        ErrorCode = "STATE_EXISTS"
	ErrMigrationFailed    ErrorCode = "MIGRATION_FAILED"
	ErrUnsupportedVersion ErrorCode = "UNSUPPORTED_VERSION"

	// Lock errors
	ErrLockHeld     ErrorCode = "LOCK_HELD"
	ErrLockNotOwned ErrorCode = "LOCK_NOT_OWNED"
	ErrLockRequired ErrorCode = "LOCK_REQUIRED"

	// Conflict errors
	ErrConflictUnresolved ErrorCode = "CONFLICT_UNRESOLVED"

	// Remote errors
	ErrRemoteUnreachable ErrorCode = "REMOTE_UNREACHABLE"
	ErrRemoteFailed      ErrorCode = "REMOTE_FAILED"

	// FileSystem errors
	ErrFileAccess ErrorCode = "FILE_ACCESS"
	ErrFileWrite  ErrorCode = "FILE_WRITE"
	ErrDirCreate  ErrorCode = "DIR_CREATE"
)

// Exit codes returned by the heimdal binary.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitConflict   = 2
	ExitLockHeld   = 3
	ExitStateError = 4
)

// HeimdalError represents a structured error with code and details
type HeimdalError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *HeimdalError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *HeimdalError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *HeimdalError) Is(target error) bool {
	var targetErr *HeimdalError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new HeimdalError with the given code and message
func New(code ErrorCode, message string) *HeimdalError {
	return &HeimdalError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new HeimdalError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *HeimdalError {
	return &HeimdalError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a HeimdalError
func Wrap(err error, code ErrorCode, message string) *HeimdalError {
	if err == nil {
		return nil
	}
	return &HeimdalError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *HeimdalError {
	if err == nil {
		return nil
	}
	return &HeimdalError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *HeimdalError) WithDetail(key string, value interface{}) *HeimdalError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *HeimdalError) WithDetails(details map[string]interface{}) *HeimdalError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var hErr *HeimdalError
	if errors.As(err, &hErr) {
		return hErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a HeimdalError
func GetErrorCode(err error) ErrorCode {
	var hErr *HeimdalError
	if errors.As(err, &hErr) {
		return hErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a HeimdalError
func GetErrorDetails(err error) map[string]interface{} {
	var hErr *HeimdalError
	if errors.As(err, &hErr) {
		return hErr.Details
	}
	return nil
}

// ExitCode maps an error to the process exit status. A nil error is ExitOK.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch GetErrorCode(err) {
	case ErrConflictUnresolved:
		return ExitConflict
	case ErrLockHeld:
		return ExitLockHeld
	case ErrStateMissing, ErrStateCorrupt, ErrMigrationFailed, ErrUnsupportedVersion:
		return ExitStateError
	default:
		return ExitFailure
	}
}
