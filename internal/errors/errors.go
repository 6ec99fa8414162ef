package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	// Field names the offending request field for validation failures.
	Field string
	Cause error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError carrying the same code, so
// sentinel values such as ErrInfeasible work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == "" && t.Cause == nil
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message
func Newf(code, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Field:   appErr.Field,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Field:   appErr.Field,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code string) bool {
	return err != nil && GetCode(err) == code
}

// GetField returns the request field blamed by a validation error, if any.
func GetField(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}

// Predefined error codes
const (
	CodeConfigInvalid     = "CONFIG_INVALID"
	CodeValidationError   = "VALIDATION_ERROR"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeDomainError       = "DOMAIN_ERROR"
	CodeInvalidStructure  = "INVALID_STRUCTURE"
	CodeBracketingFailure = "BRACKETING_FAILURE"
	CodeNoConvergence     = "NO_CONVERGENCE"
	CodeInfeasible        = "INFEASIBLE"
	CodeInternalError     = "INTERNAL_ERROR"
)

// Sentinels for errors.Is comparisons.
var (
	ErrValidation        = &AppError{Code: CodeValidationError}
	ErrDomain            = &AppError{Code: CodeDomainError}
	ErrInvalidStructure  = &AppError{Code: CodeInvalidStructure}
	ErrBracketingFailure = &AppError{Code: CodeBracketingFailure}
	ErrNoConvergence     = &AppError{Code: CodeNoConvergence}
	ErrInfeasible        = &AppError{Code: CodeInfeasible}
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

// ValidationError reports a malformed or out-of-domain request field.
func ValidationError(field, message string) *AppError {
	return &AppError{
		Code:    CodeValidationError,
		Message: fmt.Sprintf("%s: %s", field, message),
		Field:   field,
	}
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func DomainError(format string, args ...interface{}) *AppError {
	return Newf(CodeDomainError, format, args...)
}

func InvalidStructure(format string, args ...interface{}) *AppError {
	return Newf(CodeInvalidStructure, format, args...)
}

func BracketingFailure(format string, args ...interface{}) *AppError {
	return Newf(CodeBracketingFailure, format, args...)
}

func NoConvergence(format string, args ...interface{}) *AppError {
	return Newf(CodeNoConvergence, format, args...)
}

func Infeasible(format string, args ...interface{}) *AppError {
	return Newf(CodeInfeasible, format, args...)
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}
